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

// Package musfs implements components B, E and G: the inode table built
// from the catalog, the read engine that turns read(ino, offset, size)
// into HTTP Range requests, and the fuseutil.FileSystem adapter that
// wires both into kernel upcalls.
package musfs

import (
	"net/url"
	"os"
	"path"
	"time"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/house-of-vanity/mus-fuse/internal/catalog"
)

const (
	// RootInode is always inode 1, per spec.md §3.
	RootInode = fuseops.RootInodeID

	// MetricsName is the basename of the synthetic metrics file.
	MetricsName = "METRICS.TXT"
)

// entry is one root-directory member: either a track or the metrics
// file. Attrs is computed once at mount time and never changes; the
// inode table is immutable post-init.
type entry struct {
	Name  string
	Attrs fuseops.InodeAttributes
	Track *catalog.Track // nil for the metrics entry
}

// inodeTable assigns stable inode numbers to tracks in catalog order,
// reserves inode N+2 for METRICS.TXT, and maintains the name->inode map
// the FUSE adapter consults for lookup. It is built once at
// mount time from the loaded catalog and never mutated afterward, so
// concurrent getattr/lookup/readdir calls need no locking (spec.md §9).
type inodeTable struct {
	mountTime time.Time

	// entries holds one item per non-root inode, indexed by ino-2. The
	// last item is always the metrics entry.
	entries []entry

	// byName maps basenames to indexes into entries. Collisions between
	// two tracks (or a track and METRICS.TXT) are resolved last-writer-
	// wins, preserving the source behaviour spec.md §9 calls out as an
	// open question.
	byName map[string]int

	rootAttrs    fuseops.InodeAttributes
	metricsInode fuseops.InodeID
}

// newInodeTable builds the table from an ordered catalog, assigning
// inodes 2..N+1 to tracks and N+2 to METRICS.TXT, per spec.md §3.
func newInodeTable(tracks []catalog.Track, metricsSize int64, mountTime time.Time) *inodeTable {
	t := &inodeTable{
		mountTime: mountTime,
		entries:   make([]entry, 0, len(tracks)+1),
		byName:    make(map[string]int, len(tracks)+1),
	}

	t.rootAttrs = fuseops.InodeAttributes{
		Nlink:  1,
		Mode:   0o755 | os.ModeDir,
		Atime:  mountTime,
		Mtime:  mountTime,
		Ctime:  mountTime,
		Crtime: mountTime,
	}

	for i := range tracks {
		tr := tracks[i]
		name := basename(tr.Path)
		t.entries = append(t.entries, entry{
			Name:  name,
			Track: &tracks[i],
			Attrs: fuseops.InodeAttributes{
				Size:    uint64(tr.Size),
				Nlink:   1,
				Mode:    0o644,
				Atime:   mountTime,
				Mtime:   mountTime,
				Ctime:   mountTime,
				Crtime:  mountTime,
			},
		})
		t.byName[name] = len(t.entries) - 1
	}

	t.entries = append(t.entries, entry{
		Name: MetricsName,
		Attrs: fuseops.InodeAttributes{
			Size:    uint64(metricsSize),
			Nlink:   1,
			Mode:    0o444,
			Atime:   mountTime,
			Mtime:   mountTime,
			Ctime:   mountTime,
			Crtime:  mountTime,
		},
	})
	t.byName[MetricsName] = len(t.entries) - 1
	t.metricsInode = fuseops.InodeID(len(t.entries) + 1)

	return t
}

// basename URL-decodes the final path segment of a catalog path, e.g.
// "/Artist/My%20Song.mp3" -> "My Song.mp3". PathUnescape is used rather
// than QueryUnescape so a literal '+' in a filename (e.g. "C++.mp3")
// survives unchanged; only "%XX" escapes are decoded.
func basename(p string) string {
	base := path.Base(p)
	if decoded, err := url.PathUnescape(base); err == nil {
		return decoded
	}
	return base
}

// MetricsInode returns the reserved inode for METRICS.TXT.
func (t *inodeTable) MetricsInode() fuseops.InodeID {
	return t.metricsInode
}

// TrackCount returns the number of track entries (excludes METRICS.TXT).
func (t *inodeTable) TrackCount() int {
	return len(t.entries) - 1
}

// indexFor converts an inode number into an index into entries, or false
// if ino does not name a root-child inode.
func (t *inodeTable) indexFor(ino fuseops.InodeID) (int, bool) {
	idx := int(ino) - 2
	if idx < 0 || idx >= len(t.entries) {
		return 0, false
	}
	return idx, true
}

// TrackFor resolves a track inode to its catalog.Track. ok is false for
// the root, the metrics inode, or an unknown inode.
func (t *inodeTable) TrackFor(ino fuseops.InodeID) (*catalog.Track, bool) {
	idx, ok := t.indexFor(ino)
	if !ok {
		return nil, false
	}
	e := t.entries[idx]
	if e.Track == nil {
		return nil, false
	}
	return e.Track, true
}

// GetAttr returns the attributes for any inode, including the root.
func (t *inodeTable) GetAttr(ino fuseops.InodeID) (fuseops.InodeAttributes, bool) {
	if ino == RootInode {
		return t.rootAttrs, true
	}
	idx, ok := t.indexFor(ino)
	if !ok {
		return fuseops.InodeAttributes{}, false
	}
	return t.entries[idx].Attrs, true
}

// LookUpByName resolves a root-directory child name to its inode and
// attributes. Lookup failure is ENOENT at the adapter layer.
func (t *inodeTable) LookUpByName(name string) (fuseops.InodeID, fuseops.InodeAttributes, bool) {
	idx, ok := t.byName[name]
	if !ok {
		return 0, fuseops.InodeAttributes{}, false
	}
	return fuseops.InodeID(idx + 2), t.entries[idx].Attrs, true
}

// dirent describes one entry this table would emit for readdir, prior
// to being serialized via fuseutil.WriteDirent.
type dirent struct {
	Inode fuseops.InodeID
	Name  string
	Type  fuseutil.DirentType
}

// ListEntries returns every root-directory member in stable order: "."
// and ".." first, then the tracks in catalog order, then METRICS.TXT. It
// always returns the full list; the caller skips ahead by the kernel's
// offset cookie, and since this order never changes after mount a plain
// index into the returned slice works as that cookie.
func (t *inodeTable) ListEntries() []dirent {
	out := make([]dirent, 0, len(t.entries)+2)
	out = append(out,
		dirent{Inode: RootInode, Name: ".", Type: fuseutil.DT_Directory},
		dirent{Inode: RootInode, Name: "..", Type: fuseutil.DT_Directory},
	)
	for i, e := range t.entries {
		out = append(out, dirent{
			Inode: fuseops.InodeID(i + 2),
			Name:  e.Name,
			Type:  fuseutil.DT_File,
		})
	}
	return out
}
