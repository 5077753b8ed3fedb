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

// Package metrics implements component F: the process-lifetime counters
// backing the synthetic METRICS.TXT file, and the fixed eight-line
// rendering the read path slices by offset/size.
package metrics

import (
	"fmt"
	"sync/atomic"
)

// FileSize is the size METRICS.TXT reports via getattr. The formatted
// counters snapshot is almost always shorter; readers see natural EOF
// beyond it, exactly like every other track.
const FileSize = 4096

// Counters holds the seven process-lifetime counters from spec.md §4.F,
// plus the server address rendered as the eighth line.
// Each is an atomic.Uint64 so the optional worker-pool mode from spec.md
// §5 can increment them without a separate lock.
type Counters struct {
	ServerAddr string

	HTTPRequests  atomic.Uint64
	ConnectErrors atomic.Uint64
	Ingress       atomic.Uint64
	HitLenCache   atomic.Uint64
	HitDataCache  atomic.Uint64
	MissLenCache  atomic.Uint64
	MissDataCache atomic.Uint64
}

func New(serverAddr string) *Counters {
	return &Counters{ServerAddr: serverAddr}
}

// Render formats the counters as eight "key: value\n" lines in the fixed
// order spec.md §4.F specifies.
func (c *Counters) Render() []byte {
	return []byte(fmt.Sprintf(
		"http_requests: %d\n"+
			"connect_errors: %d\n"+
			"ingress: %d\n"+
			"hit_len_cache: %d\n"+
			"hit_data_cache: %d\n"+
			"miss_len_cache: %d\n"+
			"miss_data_cache: %d\n"+
			"server_addr: %s\n",
		c.HTTPRequests.Load(),
		c.ConnectErrors.Load(),
		c.Ingress.Load(),
		c.HitLenCache.Load(),
		c.HitDataCache.Load(),
		c.MissLenCache.Load(),
		c.MissDataCache.Load(),
		c.ServerAddr,
	))
}

// ReadAt slices the rendered snapshot by [offset, offset+size), matching
// ordinary file read semantics rather than ignoring the requested range
// and returning the whole snapshot (see SPEC_FULL.md §9). An offset at or
// past the end of the snapshot yields an empty slice.
func (c *Counters) ReadAt(offset int64, size int) []byte {
	data := c.Render()
	if offset < 0 || offset >= int64(len(data)) {
		return []byte{}
	}

	end := offset + int64(size)
	if end > int64(len(data)) {
		end = int64(len(data))
	}

	return data[offset:end]
}
