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

// DestinationKind identifies which sink implementation a plan targets.
type DestinationKind string

const (
	DestinationLocal      DestinationKind = "local"
	DestinationSftp       DestinationKind = "sftp"
	DestinationMessageBus DestinationKind = "bus"
)

// DestinationOptions carries per-plan write behavior.
type DestinationOptions struct {
	Overwrite     bool
	ComputeHash   bool
	RenamePattern string
}

// DestinationPlan is the immutable result of routing a FileEvent: where to
// write it, under what kind of sink, and with what options (spec §3).
type DestinationPlan struct {
	DestinationName string
	TargetPath      string
	Options         DestinationOptions
	Kind            DestinationKind
	IsTopic         bool
}

// NotificationStatus is the outcome recorded on a FileProcessedNotification.
type NotificationStatus string

const (
	StatusSuccess NotificationStatus = "Success"
	StatusFailure NotificationStatus = "Failure"
)
