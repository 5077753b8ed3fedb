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

package headcache

import (
	"testing"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutAndGet(t *testing.T) {
	c := New(2)
	c.Put(2, []byte("abc"))

	data, ok := c.Get(2)
	require.True(t, ok)
	assert.Equal(t, "abc", string(data))
	assert.Equal(t, 1, c.Len())
}

func TestNoEvictionUnderBudget(t *testing.T) {
	c := New(2)
	c.Put(2, []byte("a"))
	c.Put(3, []byte("b"))

	c.EvictExcept(3)

	assert.Equal(t, 2, c.Len())
}

func TestEvictionNeverRemovesCurrent(t *testing.T) {
	c := New(1)
	c.Put(2, []byte("a"))
	c.Put(3, []byte("b"))

	c.EvictExcept(3)

	_, stillHas3 := c.Get(3)
	assert.True(t, stillHas3)
	assert.Equal(t, 1, c.Len())
}

func TestNoEvictionWhenOnlyCurrentIsCached(t *testing.T) {
	c := New(0)
	c.Put(2, []byte("a"))

	c.EvictExcept(2)

	assert.Equal(t, 1, c.Len())
	_, ok := c.Get(2)
	assert.True(t, ok)
}

func TestEvictionOfThirdTrackScenario(t *testing.T) {
	// S6: two tracks cached, CACHE_MAX_COUNT=1, a third triggers eviction
	// of exactly one of the first two, never the third.
	c := New(1)
	c.Put(2, []byte("a"))
	c.Put(3, []byte("b"))

	c.EvictExcept(4)
	c.Put(4, []byte("c"))

	assert.LessOrEqual(t, c.Len(), 2)
	_, has4 := c.Get(4)
	assert.True(t, has4)

	_, has2 := c.Get(2)
	_, has3 := c.Get(3)
	assert.True(t, has2 || has3, "exactly one of the two prior entries should survive")
	assert.False(t, has2 && has3, "eviction should have removed one of the two prior entries")
}

func TestCacheBoundedByMaxCountPlusOneInSteadyState(t *testing.T) {
	c := New(2)
	for i := fuseops.InodeID(2); i < 10; i++ {
		c.EvictExcept(i)
		c.Put(i, []byte("x"))
		assert.LessOrEqual(t, c.Len(), c.MaxCount+1)
	}
}
