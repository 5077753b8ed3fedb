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

// Package headcache implements component D: a bounded-count cache of the
// prefetched byte prefix of each track, keyed by inode. Eviction is
// triggered by count, not recency, exactly as spec.md §4.D and §9
// describe: a single auxiliary slice records insertion order so the
// victim (oldest entry that isn't the inode currently being read) is
// always well-defined.
package headcache

import "github.com/jacobsa/fuse/fuseops"

// Cache holds at most MaxCount+1 entries at any instant between calls
// (the bound is checked before eviction, so one transient overshoot is
// tolerated, per spec.md §4.D).
type Cache struct {
	MaxCount int

	data  map[fuseops.InodeID][]byte
	order []fuseops.InodeID // insertion order; index 0 is the oldest entry
}

func New(maxCount int) *Cache {
	return &Cache{
		MaxCount: maxCount,
		data:     make(map[fuseops.InodeID][]byte),
	}
}

// Len reports the number of cached inodes. data and order are always the
// same length (invariant 1 of spec.md §8).
func (c *Cache) Len() int {
	return len(c.order)
}

// Get returns the cached bytes for ino, if any.
func (c *Cache) Get(ino fuseops.InodeID) ([]byte, bool) {
	b, ok := c.data[ino]
	return b, ok
}

// Put inserts or replaces the cached bytes for ino. Replacing an
// existing entry does not change its position in the insertion order.
func (c *Cache) Put(ino fuseops.InodeID, data []byte) {
	if _, exists := c.data[ino]; !exists {
		c.order = append(c.order, ino)
	}
	c.data[ino] = data
}

// EvictExcept runs the eviction check from spec.md §4.D: if the cache
// holds more than MaxCount entries, remove one entry whose inode is not
// current. If the only cached inode is current, no eviction occurs. This
// method does at most one eviction per call, as required.
func (c *Cache) EvictExcept(current fuseops.InodeID) {
	if len(c.order) <= c.MaxCount {
		return
	}

	for i, ino := range c.order {
		if ino == current {
			continue
		}
		c.order = append(c.order[:i], c.order[i+1:]...)
		delete(c.data, ino)
		return
	}
}
