// Copyright 2024 The mus-fuse Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package musfs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/house-of-vanity/mus-fuse/internal/catalog"
	"github.com/house-of-vanity/mus-fuse/internal/headcache"
	"github.com/house-of-vanity/mus-fuse/internal/lengthcache"
	"github.com/house-of-vanity/mus-fuse/internal/logger"
	"github.com/house-of-vanity/mus-fuse/internal/metrics"
	"github.com/house-of-vanity/mus-fuse/internal/source"
)

// Config bundles everything needed to build a FileSystem: the already
// fetched catalog, the configured tunables and the HTTP client used to
// reach the remote origin. It plays the role ServerConfig plays for the
// teacher's gcsfuse.
type Config struct {
	Tracks     []catalog.Track
	CacheHead  int64
	CacheMax   int
	ServerAddr string
	Source     *source.Client
}

// FileSystem implements fuseutil.FileSystem. The default build takes no
// lock of its own: every upcall is serialized by the FUSE bridge itself
// (spec.md §5), so concurrent access to inodes, headc and metrics never
// happens in the first place. lenc carries its own mutex regardless,
// since lengthcache is meant to stay safe if a future worker-pool mode
// starts calling into it from more than one upcall at a time.
type FileSystem struct {
	fuseutil.NotImplementedFileSystem

	inodes    *inodeTable
	lenc      *lengthcache.Cache
	headc     *headcache.Cache
	metrics   *metrics.Counters
	source    *source.Client
	cacheHead int64
}

// New builds a FileSystem from an already-fetched catalog. mountTime
// stamps every inode's atime/mtime/ctime/crtime, per spec.md §3's note
// that the remote offers no mtime protocol to mirror.
func New(cfg Config, mountTime time.Time) *FileSystem {
	counters := metrics.New(cfg.ServerAddr)
	table := newInodeTable(cfg.Tracks, metrics.FileSize, mountTime)

	return &FileSystem{
		inodes:    table,
		lenc:      lengthcache.New(),
		headc:     headcache.New(cfg.CacheMax),
		metrics:   counters,
		source:    cfg.Source,
		cacheHead: cfg.CacheHead,
	}
}

// NewServer adapts a FileSystem into a fuse.Server, mirroring
// gcsfuse's cmd.NewServer(cfg) -> fuse.Server convention.
func NewServer(fs *FileSystem) fuse.Server {
	return fuseutil.NewFileSystemServer(fs)
}

var _ fuseutil.FileSystem = (*FileSystem)(nil)

// LookUpInode resolves parent/name against the root's name map. The
// catalog is flat (spec.md non-goals: no directory hierarchy beyond a
// single root), so any parent other than the root has no children.
func (fs *FileSystem) LookUpInode(op *fuseops.LookUpInodeOp) error {
	if op.Parent != RootInode {
		return fuse.ENOENT
	}

	ino, attrs, ok := fs.inodes.LookUpByName(op.Name)
	if !ok {
		return fuse.ENOENT
	}

	op.Entry.Child = ino
	op.Entry.Attributes = attrs
	op.Entry.AttributesExpiration = time.Now().Add(time.Second)
	op.Entry.EntryExpiration = time.Now().Add(time.Second)
	return nil
}

// GetInodeAttributes forwards to the inode table; unknown inodes are
// ENOENT per spec.md §7.
func (fs *FileSystem) GetInodeAttributes(op *fuseops.GetInodeAttributesOp) error {
	attrs, ok := fs.inodes.GetAttr(op.Inode)
	if !ok {
		return fuse.ENOENT
	}

	op.Attributes = attrs
	op.AttributesExpiration = time.Now().Add(time.Second)
	return nil
}

// OpenDir only ever succeeds for the root, since the tree has no other
// directories.
func (fs *FileSystem) OpenDir(op *fuseops.OpenDirOp) error {
	if op.Inode != RootInode {
		return fuse.ENOENT
	}
	return nil
}

// ReadDir emits "." and ".." at offset zero, then every catalog track
// and the metrics file, each carrying the index of the entry after it
// (its own index plus one) as the next-offset cookie, per spec.md §4.G.
func (fs *FileSystem) ReadDir(op *fuseops.ReadDirOp) error {
	if op.Inode != RootInode {
		return fuse.ENOENT
	}

	entries := fs.inodes.ListEntries()

	buf := make([]byte, op.Size)
	var n int
	for i := int(op.Offset); i < len(entries); i++ {
		e := entries[i]
		written := fuseutil.WriteDirent(buf[n:], fuseops.Dirent{
			Offset: fuseops.DirOffset(i + 1),
			Inode:  e.Inode,
			Name:   e.Name,
			Type:   e.Type,
		})
		if written == 0 {
			break
		}
		n += written
	}

	op.Data = buf[:n]
	return nil
}

// OpenFile validates that the inode exists; there is no per-handle
// state to allocate since reads are serviced statelessly from caches.
func (fs *FileSystem) OpenFile(op *fuseops.OpenFileOp) error {
	if op.Inode == fs.inodes.MetricsInode() {
		return nil
	}
	if _, ok := fs.inodes.TrackFor(op.Inode); !ok {
		return fuse.ENOENT
	}
	return nil
}

// ReadFile is the read engine: component E of the design. It routes to
// the metrics snapshot or to the two-tier cache / HTTP Range path,
// exactly per spec.md §4.E.
func (fs *FileSystem) ReadFile(op *fuseops.ReadFileOp) error {
	// No cancellation or timeout layer applies to the read path (spec.md
	// §5): a stuck HTTP call stalls the filesystem until the transport's
	// own timeout, if any, fires.
	ctx := context.Background()

	if op.Inode == fs.inodes.MetricsInode() {
		op.Data = fs.metrics.ReadAt(op.Offset, op.Size)
		return nil
	}

	track, ok := fs.inodes.TrackFor(op.Inode)
	if !ok {
		return fuse.ENOENT
	}

	fs.headc.EvictExcept(op.Inode)

	contentLength, err := fs.lengthFor(ctx, track)
	if err != nil {
		logger.Warnf("read %s: length lookup failed: %v", track.Path, err)
		return fuse.EIO
	}

	data, err := fs.readRange(ctx, op.Inode, track, op.Offset, int64(op.Size), contentLength)
	if err != nil {
		logger.Warnf("read %s: %v", track.Path, err)
		return fuse.EIO
	}

	op.Data = data
	return nil
}

// lengthFor implements component C: the length cache, with HTTP HEAD as
// the miss path.
func (fs *FileSystem) lengthFor(ctx context.Context, track *catalog.Track) (int64, error) {
	if length, ok := fs.lenc.Get(track.ID); ok {
		fs.metrics.HitLenCache.Add(1)
		return length, nil
	}

	fs.metrics.HTTPRequests.Add(1)
	length, err := fs.source.Head(ctx, track.Path)
	if err != nil {
		if errors.Is(err, source.ErrTransport) {
			fs.metrics.ConnectErrors.Add(1)
		}
		return 0, fmt.Errorf("HEAD %s: %w", track.Path, err)
	}

	fs.metrics.MissLenCache.Add(1)
	fs.lenc.Put(track.ID, length)
	return length, nil
}

// readRange implements the routing and range computation of spec.md
// §4.E: out-of-range reads return empty bytes, reads whose end lies
// below CACHE_HEAD prefer the head cache, and reads whose end reaches
// CACHE_HEAD or beyond always go straight to the origin uncached.
func (fs *FileSystem) readRange(ctx context.Context, ino fuseops.InodeID, track *catalog.Track, offset, size, contentLength int64) ([]byte, error) {
	if offset >= contentLength {
		logger.Warnf("read %s: offset %d past content length %d", track.Path, offset, contentLength)
		return nil, nil
	}

	endOfChunk := offset + size
	if endOfChunk > contentLength {
		endOfChunk = contentLength
	}

	if endOfChunk < fs.cacheHead {
		return fs.readPrefix(ctx, ino, track, offset, endOfChunk, contentLength)
	}
	return fs.readTail(ctx, track, offset, endOfChunk)
}

func (fs *FileSystem) readPrefix(ctx context.Context, ino fuseops.InodeID, track *catalog.Track, offset, endOfChunk, contentLength int64) ([]byte, error) {
	if cached, ok := fs.headc.Get(ino); ok {
		fs.metrics.HitDataCache.Add(1)
		return sliceWithin(cached, offset, endOfChunk), nil
	}

	prefixEnd := fs.cacheHead
	if prefixEnd > contentLength {
		prefixEnd = contentLength
	}

	fs.metrics.HTTPRequests.Add(1)
	body, err := fs.source.GetRange(ctx, track.Path, 0, prefixEnd-1)
	if err != nil {
		if errors.Is(err, source.ErrTransport) {
			fs.metrics.ConnectErrors.Add(1)
		}
		return nil, fmt.Errorf("GET %s: %w", track.Path, err)
	}

	fs.metrics.MissDataCache.Add(1)
	fs.metrics.Ingress.Add(uint64(len(body)))
	fs.headc.Put(ino, body)

	return sliceWithin(body, offset, endOfChunk), nil
}

func (fs *FileSystem) readTail(ctx context.Context, track *catalog.Track, offset, endOfChunk int64) ([]byte, error) {
	fs.metrics.HTTPRequests.Add(1)
	body, err := fs.source.GetRange(ctx, track.Path, offset, endOfChunk-1)
	if err != nil {
		if errors.Is(err, source.ErrTransport) {
			fs.metrics.ConnectErrors.Add(1)
		}
		return nil, fmt.Errorf("GET %s: %w", track.Path, err)
	}

	fs.metrics.Ingress.Add(uint64(len(body)))
	return body, nil
}

// sliceWithin returns buf[offset:endOfChunk], treating offset as an
// index relative to buf's own base (0 for the head cache's prefix).
func sliceWithin(buf []byte, offset, endOfChunk int64) []byte {
	if offset < 0 {
		offset = 0
	}
	if endOfChunk > int64(len(buf)) {
		endOfChunk = int64(len(buf))
	}
	if offset >= endOfChunk {
		return []byte{}
	}
	return buf[offset:endOfChunk]
}
