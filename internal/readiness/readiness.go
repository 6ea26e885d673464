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

// Package readiness implements the size-stable readiness decision (spec
// §4.3): a file is only dispatched once it has stopped changing for a
// configured stability window.
package readiness

import (
	"time"

	"github.com/LittleAndi/FileHorizon/pkg/model"
)

// Current is what the poller observed this cycle, before any snapshot
// bookkeeping — size and mtime read straight off the remote/local entry.
type Current struct {
	Size         int64
	LastWriteUtc time.Time
	ObservedAtUtc time.Time
}

// Decide implements the table in spec §4.3. It returns whether the file is
// ready to dispatch and the snapshot that must replace/initialize the
// previous one for this identity key.
//
//   - no previous snapshot, window == 0            -> ready immediately
//   - no previous snapshot, window > 0              -> not ready (need a baseline)
//   - size/mtime changed since previous              -> not ready; baseline resets to now
//   - unchanged, aged < window                       -> not ready; baseline preserved
//   - unchanged, aged >= window                      -> ready
//
// The baseline (LastObservedUtc) is preserved across not-ready-but-unchanged
// cycles so stable duration accumulates, and is reset to now the moment
// anything changes.
func Decide(current Current, previous *model.FileObservationSnapshot, window time.Duration) (ready bool, next model.FileObservationSnapshot) {
	if previous == nil {
		next = model.FileObservationSnapshot{
			Size:             current.Size,
			LastWriteUtc:     current.LastWriteUtc,
			FirstObservedUtc: current.ObservedAtUtc,
			LastObservedUtc:  current.ObservedAtUtc,
		}
		return window <= 0, next
	}

	changed := current.Size != previous.Size || !current.LastWriteUtc.Equal(previous.LastWriteUtc)
	if changed {
		next = model.FileObservationSnapshot{
			Size:             current.Size,
			LastWriteUtc:     current.LastWriteUtc,
			FirstObservedUtc: previous.FirstObservedUtc,
			LastObservedUtc:  current.ObservedAtUtc,
		}
		return false, next
	}

	// Unchanged: preserve the baseline and decide on accumulated age.
	next = model.FileObservationSnapshot{
		Size:             previous.Size,
		LastWriteUtc:     previous.LastWriteUtc,
		FirstObservedUtc: previous.FirstObservedUtc,
		LastObservedUtc:  previous.LastObservedUtc,
	}
	aged := current.ObservedAtUtc.Sub(previous.LastObservedUtc)
	return aged >= window, next
}
