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
	"sync"
	"time"
)

// Breaker is the notifier's optional circuit breaker (spec §4.9): after
// FailureThreshold consecutive publish failures it opens for ResetInterval,
// failing every call fast until the interval elapses, then allows a single
// trial call (half-open) to decide whether to close again.
type Breaker struct {
	FailureThreshold int
	ResetInterval    time.Duration

	mu              sync.Mutex
	consecutiveFail int
	openUntil       time.Time
	halfOpenInUse   bool
}

// NewBreaker builds a Breaker with the given threshold and reset interval.
func NewBreaker(failureThreshold int, resetInterval time.Duration) *Breaker {
	return &Breaker{FailureThreshold: failureThreshold, ResetInterval: resetInterval}
}

// Allow reports whether a call may proceed. While open, only a single
// half-open trial call is allowed once ResetInterval has elapsed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.openUntil.IsZero() {
		return true
	}
	if time.Now().Before(b.openUntil) {
		return false
	}
	if b.halfOpenInUse {
		return false
	}
	b.halfOpenInUse = true
	return true
}

// RecordSuccess closes the breaker and resets the failure count.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveFail = 0
	b.openUntil = time.Time{}
	b.halfOpenInUse = false
}

// RecordFailure counts a failure, opening the breaker once the threshold is
// reached. A failure while half-open reopens immediately for another
// ResetInterval.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.halfOpenInUse = false
	b.consecutiveFail++
	if b.consecutiveFail >= b.FailureThreshold {
		b.openUntil = time.Now().Add(b.ResetInterval)
	}
}
