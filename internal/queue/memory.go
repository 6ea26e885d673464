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
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/LittleAndi/FileHorizon/pkg/model"
)

// MemoryQueue is an unbounded ordered buffer used for tests and
// single-process deployments (spec §4.1).
type MemoryQueue struct {
	mu       sync.Mutex
	seq      uint64
	pending  []model.DeliveryEntry // FIFO order, oldest first
	inFlight map[string]model.DeliveryEntry
	notify   chan struct{} // best-effort wakeup for Iterate
}

// NewMemoryQueue returns an empty in-memory queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		inFlight: make(map[string]model.DeliveryEntry),
		notify:   make(chan struct{}, 1),
	}
}

func (q *MemoryQueue) Enqueue(_ context.Context, event model.FileEvent) (string, error) {
	if err := event.Validate(); err != nil {
		return "", err
	}

	q.mu.Lock()
	q.seq++
	entryID := strconv.FormatUint(q.seq, 10)
	q.pending = append(q.pending, model.DeliveryEntry{EntryID: entryID, Event: event})
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return entryID, nil
}

func (q *MemoryQueue) Drain(_ context.Context, maxBatch int) ([]model.DeliveryEntry, error) {
	if maxBatch <= 0 {
		return nil, nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	n := maxBatch
	if n > len(q.pending) {
		n = len(q.pending)
	}
	if n == 0 {
		return nil, nil
	}

	batch := make([]model.DeliveryEntry, n)
	copy(batch, q.pending[:n])
	q.pending = q.pending[n:]
	for _, d := range batch {
		q.inFlight[d.EntryID] = d
	}
	return batch, nil
}

func (q *MemoryQueue) Acknowledge(_ context.Context, entryID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inFlight, entryID)
	return nil
}

// Iterate polls the buffer on a short interval; this backend has no native
// blocking-read primitive, so cooperative cancellation is implemented with
// a select against ctx.Done() and a notify channel woken by Enqueue.
func (q *MemoryQueue) Iterate(ctx context.Context) (<-chan model.DeliveryEntry, error) {
	out := make(chan model.DeliveryEntry)
	go func() {
		defer close(out)
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-q.notify:
			case <-ticker.C:
			}
			batch, _ := q.Drain(ctx, 1<<20)
			for _, d := range batch {
				select {
				case out <- d:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Len reports the number of pending (not yet drained) entries.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
