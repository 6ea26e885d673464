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

// Package queue implements the distributed work queue abstraction (spec
// §4.1): an ordered log consumers pull from with at-least-once delivery.
// Two backends are provided: an in-memory buffer for tests and single-node
// deployments, and a Redis-stream-backed implementation for multi-replica
// consumer-group semantics.
package queue

import (
	"context"

	"github.com/LittleAndi/FileHorizon/pkg/model"
)

// Queue is the contract every backend implements.
type Queue interface {
	// Enqueue validates event structurally before ever touching the
	// backend, then appends it to the ordered log. Returns the
	// server-assigned entry id.
	Enqueue(ctx context.Context, event model.FileEvent) (entryID string, err error)

	// Drain returns up to maxBatch pending deliveries for this consumer,
	// non-blocking.
	Drain(ctx context.Context, maxBatch int) ([]model.DeliveryEntry, error)

	// Iterate returns a channel of deliveries, fed by a blocking pull loop
	// that respects ctx cancellation. The channel is closed once ctx is
	// done or pulling can no longer continue.
	Iterate(ctx context.Context) (<-chan model.DeliveryEntry, error)

	// Acknowledge marks entryID as successfully processed, removing it from
	// the consumer group's pending list.
	Acknowledge(ctx context.Context, entryID string) error
}
