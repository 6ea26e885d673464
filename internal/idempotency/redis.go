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

package idempotency

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/LittleAndi/FileHorizon/pkg/model"
)

// Setter abstracts the minimal Redis surface this store needs (SETNX with
// expiry), mirroring the wire contract in spec §6: SET key "1" NX EX ttl.
// Satisfied directly by *redis.Client and *redis.ClusterClient.
type Setter interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// RedisStore executes "SET key 1 NX EX ttlSeconds" against a shared store.
// On store errors it returns (false, err): spec §7 requires treating
// idempotency/store failures as "not marked" so callers reprocess rather
// than silently drop an event.
type RedisStore struct {
	client Setter
}

// NewRedisStore wraps an existing go-redis client/cluster-client.
func NewRedisStore(client Setter) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) TryMarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ttl = ClampTTL(ttl)
	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, model.NewIdempotency(model.CodeStoreUnavailable, "redis SETNX failed", err)
	}
	return ok, nil
}
