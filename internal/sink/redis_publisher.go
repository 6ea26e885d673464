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

package sink

import (
	"context"

	redis "github.com/redis/go-redis/v9"

	"github.com/LittleAndi/FileHorizon/pkg/model"
)

// RedisBusPublisher publishes BusMessages as entries on a Redis stream,
// reusing the same transport the queue package uses for event delivery;
// a "bus" destination in this deployment shape is just another stream that
// downstream consumers subscribe to independently.
type RedisBusPublisher struct {
	client redis.UniversalClient
}

// NewRedisBusPublisher builds a Publisher backed by client.
func NewRedisBusPublisher(client redis.UniversalClient) *RedisBusPublisher {
	return &RedisBusPublisher{client: client}
}

func (p *RedisBusPublisher) Publish(ctx context.Context, topic string, msg BusMessage) error {
	values := map[string]interface{}{
		"contentType": msg.ContentType,
		"subject":     msg.Subject,
		"body":        msg.Body,
	}
	if err := p.client.XAdd(ctx, &redis.XAddArgs{Stream: topic, Values: values}).Err(); err != nil {
		return model.NewTransient(model.CodeBusTransient, "failed to publish to bus topic "+topic, err)
	}
	return nil
}
