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

package poller

import (
	"sync"

	"github.com/LittleAndi/FileHorizon/pkg/model"
)

// DispatchTracker holds, per identity key, the readiness snapshot (for
// Decide) and the size/mtime pair last successfully dispatched (to
// suppress re-enqueuing an already-handled, unchanged file every cycle —
// spec §4.4 step 4's "ready and already dispatched -> suppress duplicate").
type DispatchTracker struct {
	mu         sync.Mutex
	snapshots  map[string]model.FileObservationSnapshot
	dispatched map[string]model.FileObservationSnapshot
}

// NewDispatchTracker returns an empty tracker.
func NewDispatchTracker() *DispatchTracker {
	return &DispatchTracker{
		snapshots:  make(map[string]model.FileObservationSnapshot),
		dispatched: make(map[string]model.FileObservationSnapshot),
	}
}

// Previous returns the prior readiness snapshot for key, or nil if this is
// the first observation.
func (t *DispatchTracker) Previous(key string) *model.FileObservationSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap, ok := t.snapshots[key]
	if !ok {
		return nil
	}
	return &snap
}

// UpdateObservation records the latest readiness snapshot for key.
func (t *DispatchTracker) UpdateObservation(key string, snapshot model.FileObservationSnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snapshots[key] = snapshot
}

// AlreadyDispatched reports whether key was already dispatched at exactly
// this size+mtime.
func (t *DispatchTracker) AlreadyDispatched(key string, snapshot model.FileObservationSnapshot) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, ok := t.dispatched[key]
	if !ok {
		return false
	}
	return prev.Size == snapshot.Size && prev.LastWriteUtc.Equal(snapshot.LastWriteUtc)
}

// MarkDispatched records that key was dispatched at this size+mtime.
func (t *DispatchTracker) MarkDispatched(key string, snapshot model.FileObservationSnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dispatched[key] = snapshot
}
