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

import (
	"fmt"
	"strings"
	"time"
)

// Protocol tags the transport a FileEvent was discovered on.
type Protocol string

const (
	ProtocolLocal     Protocol = "local"
	ProtocolFTP       Protocol = "ftp"
	ProtocolSFTP      Protocol = "sftp"
	ProtocolSynthetic Protocol = "synthetic"
)

// FileMetadata is an immutable description of a discovered file. SourcePath
// is the normalized identity string; it, together with size and mtime, is
// authoritative for equality under the enhanced-idempotency-key design
// (spec §4.2). That design is not enabled: idempotency.KeyForEvent keys on
// the event id alone.
type FileMetadata struct {
	SourcePath      string
	SizeBytes       int64
	LastModifiedUtc time.Time
	HashAlgorithm   string
	Checksum        string
}

// Validate enforces the non-empty-sourcePath / non-negative-size invariants.
func (m FileMetadata) Validate() *Error {
	if strings.TrimSpace(m.SourcePath) == "" {
		return NewValidation(CodeEmptySourcePath, "metadata.sourcePath must not be empty")
	}
	if m.SizeBytes < 0 {
		return NewValidation(CodeNegativeSize, fmt.Sprintf("metadata.sizeBytes must be >= 0, got %d", m.SizeBytes))
	}
	return nil
}

// FileEvent is the envelope a poller emits and the orchestrator consumes
// exactly once. It is immutable after construction.
type FileEvent struct {
	ID                  string
	Metadata            FileMetadata
	DiscoveredAtUtc     time.Time
	Protocol            Protocol
	DestinationPath     string
	DeleteAfterTransfer bool
}

// Validate runs the structural checks the queue's Enqueue performs before
// ever touching the stream backend (spec §4.1).
func (e FileEvent) Validate() *Error {
	if strings.TrimSpace(e.ID) == "" {
		return NewValidation(CodeEmptyID, "event.id must not be empty")
	}
	if err := e.Metadata.Validate(); err != nil {
		return err
	}
	return nil
}

// FileReference is the addressing tuple readers/sinks operate on, decoupled
// from the event envelope so a reader never needs to know about routing.
type FileReference struct {
	Scheme     Protocol
	Host       string
	Port       int
	Path       string
	SourceName string
}

// IdentityKey returns the canonical string naming a file's source location,
// per spec §3: "{protocol}://{host}:{port}{normalizedPath}". The local
// scheme has no host/port, so it stands in the fixed form
// "local://_:/absolute/path" with forward slashes, matching spec.md exactly.
func IdentityKey(ref FileReference) string {
	normalized := normalizePath(ref.Path)
	if ref.Scheme == ProtocolLocal {
		return fmt.Sprintf("local://_:%s", normalized)
	}
	return fmt.Sprintf("%s://%s:%d%s", ref.Scheme, ref.Host, ref.Port, normalized)
}

func normalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// DeliveryEntry pairs a FileEvent with the queue-assigned entry id the
// orchestrator/driver must Acknowledge after processing (spec §4.1).
type DeliveryEntry struct {
	EntryID string
	Event   FileEvent
}
