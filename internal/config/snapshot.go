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

package config

import "sync/atomic"

// Snapshot holds a single configuration section behind an atomic pointer so
// readers observe live updates without restarting (spec §9, "option
// monitoring"). There is no options-framework: callers just call Get/Store.
type Snapshot[T any] struct {
	v atomic.Pointer[T]
}

// NewSnapshot builds a Snapshot pre-populated with initial.
func NewSnapshot[T any](initial T) *Snapshot[T] {
	s := &Snapshot[T]{}
	s.Store(initial)
	return s
}

// Get returns the current value. Safe for concurrent use with Store.
func (s *Snapshot[T]) Get() T {
	p := s.v.Load()
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

// Store atomically replaces the current value, e.g. from a file watcher
// callback (github.com/fsnotify/fsnotify) reacting to a config reload.
func (s *Snapshot[T]) Store(value T) {
	s.v.Store(&value)
}
