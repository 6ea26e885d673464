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

// FileProcessedNotification is published by the orchestrator after every
// event, success or failure, per spec §4.9.
type FileProcessedNotification struct {
	Protocol           Protocol
	FullPath           string
	SizeBytes          int64
	LastModifiedUtc    time.Time
	Status             NotificationStatus
	ProcessingDuration time.Duration
	IdempotencyKey     string
	CorrelationID      string
	CompletedUtc       time.Time
	Destinations       []string
}

// DedupeKey returns the notifier's suppression-window key (spec §4.9):
// "notify:{idempotencyKey}:{status}".
func (n FileProcessedNotification) DedupeKey() string {
	return "notify:" + n.IdempotencyKey + ":" + string(n.Status)
}
