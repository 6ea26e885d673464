// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
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

package queue

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	rendezvous "github.com/dgryski/go-rendezvous"
)

// ShardRouter deterministically maps an identity key onto one of a bounded
// set of stream names using rendezvous (highest-random-weight) hashing, so
// a high-throughput deployment can split a single logical pipeline across
// several Redis streams while keeping a given source file's events ordered
// within its own shard. A single un-sharded stream (spec §4.1's "single
// named stream per logical pipeline") remains the default; ShardRouter is
// opt-in for deployments that need the extra write throughput.
type ShardRouter struct {
	r *rendezvous.Rendezvous
}

// NewShardRouter builds a router over the given shard (stream) names.
func NewShardRouter(shardNames []string) *ShardRouter {
	return &ShardRouter{r: rendezvous.New(shardNames, xxhash.Sum64String)}
}

// StreamFor returns the shard name an identity key is deterministically
// assigned to.
func (s *ShardRouter) StreamFor(identityKey string) string {
	return s.r.Lookup(identityKey)
}

// ShardNames generates "{base}-{0..n-1}" shard names for a given base
// stream name and shard count.
func ShardNames(base string, count int) []string {
	names := make([]string, count)
	for i := 0; i < count; i++ {
		names[i] = fmt.Sprintf("%s-%d", base, i)
	}
	return names
}
