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

package notifier

import (
	"context"

	redis "github.com/redis/go-redis/v9"

	"github.com/LittleAndi/FileHorizon/pkg/model"
)

// RedisStreamTransport publishes notifications as entries on a Redis
// stream, the same wire mechanism the queue and bus sink use, so a
// deployment with no dedicated notification bus can still run the full
// pipeline out of one Redis instance.
type RedisStreamTransport struct {
	client redis.UniversalClient
	stream string
}

// NewRedisStreamTransport builds a Transport publishing onto stream.
func NewRedisStreamTransport(client redis.UniversalClient, stream string) *RedisStreamTransport {
	return &RedisStreamTransport{client: client, stream: stream}
}

func (t *RedisStreamTransport) Publish(ctx context.Context, msg Message) error {
	values := make(map[string]interface{}, len(msg.Attributes)+1)
	values["body"] = msg.Body
	for k, v := range msg.Attributes {
		values[k] = v
	}
	if err := t.client.XAdd(ctx, &redis.XAddArgs{Stream: t.stream, Values: values}).Err(); err != nil {
		return model.NewTransient(model.CodeBusTransient, "failed to publish notification to "+t.stream, err)
	}
	return nil
}
