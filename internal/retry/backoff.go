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

// Package retry provides the exponential-backoff-with-jitter loop shared by
// the bus sink (spec §4.7) and the notifier (spec §4.9).
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Policy configures a bounded exponential backoff with +/-jitterFraction
// jitter applied to each delay.
type Policy struct {
	Base           time.Duration
	Cap            time.Duration
	MaxAttempts    int // total attempts, including the first; 0 means 1 (no retry)
	JitterFraction float64
}

// Delay returns the backoff delay before attempt N (1-indexed: the delay
// before the 2nd attempt uses N=1), doubling from Base up to Cap, jittered
// by +/-JitterFraction.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := p.Base << uint(attempt-1)
	if p.Cap > 0 && delay > p.Cap {
		delay = p.Cap
	}
	if delay <= 0 {
		return 0
	}
	if p.JitterFraction <= 0 {
		return delay
	}
	spread := float64(delay) * p.JitterFraction
	jitter := (rand.Float64()*2 - 1) * spread
	jittered := float64(delay) + jitter
	if jittered < 0 {
		jittered = 0
	}
	return time.Duration(jittered)
}

func (p Policy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

// Do runs fn, retrying transient failures per Policy. fn reports whether an
// error is worth retrying via the retriable return value. Do returns the
// last error, or the ctx error if backoff was interrupted by cancellation.
func Do(ctx context.Context, policy Policy, fn func(ctx context.Context, attempt int) (retriable bool, err error)) error {
	var lastErr error
	for attempt := 1; attempt <= policy.attempts(); attempt++ {
		retriable, err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retriable || attempt == policy.attempts() {
			return lastErr
		}
		delay := policy.Delay(attempt)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}
