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

// Package lengthcache implements component C: an unbounded, never
// invalidated map from track ID to the authoritative content length
// discovered via HTTP HEAD. Per spec.md §9 this cache is intentionally
// unbounded — one int64 per track is cheap even for large libraries.
package lengthcache

import "sync"

// Cache maps a track's opaque ID to the content length last observed
// from the origin's HEAD response.
type Cache struct {
	mu    sync.Mutex
	sizes map[string]int64
}

func New() *Cache {
	return &Cache{sizes: make(map[string]int64)}
}

// Get returns the cached length and true if id has been resolved before.
func (c *Cache) Get(id string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	length, ok := c.sizes[id]
	return length, ok
}

// Put records the length discovered for id. Subsequent Get calls for the
// same id return this value until a later Put for that id replaces it;
// entries are never evicted.
func (c *Cache) Put(id string, length int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sizes[id] = length
}

// Len reports the number of distinct track IDs currently cached, mostly
// useful for tests.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sizes)
}
