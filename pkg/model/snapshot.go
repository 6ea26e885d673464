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

package model

import "time"

// FileObservationSnapshot is per-identity-key state owned exclusively by the
// poller that discovered it. Mutated only by that poller; the readiness
// state machine (internal/readiness) reads and updates it each poll cycle.
type FileObservationSnapshot struct {
	Size             int64
	LastWriteUtc     time.Time
	FirstObservedUtc time.Time
	LastObservedUtc  time.Time
}
