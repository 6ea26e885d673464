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

// Package sink implements the destination-writing capability (spec §4.7):
// Write(targetRef, contentStream, options) -> Ok | Failure.
package sink

import (
	"context"
	"io"

	"github.com/LittleAndi/FileHorizon/pkg/model"
)

// Result carries what the orchestrator needs to report back: bytes actually
// written. LocalSink fills it in on a failed write as well; the
// orchestrator's failure notifications report zero bytes regardless.
type Result struct {
	BytesWritten int64
}

// Sink is the capability every destination kind provides.
type Sink interface {
	Write(ctx context.Context, targetPath string, content io.Reader, options model.DestinationOptions) (Result, error)
}

// Registry resolves a Sink by destination kind, mirroring reader.Registry.
type Registry struct {
	sinks map[model.DestinationKind]Sink
}

// NewRegistry builds an empty registry; use Register to populate it.
func NewRegistry() *Registry {
	return &Registry{sinks: make(map[model.DestinationKind]Sink)}
}

// Register installs s as the sink for kind.
func (reg *Registry) Register(kind model.DestinationKind, s Sink) {
	reg.sinks[kind] = s
}

// For returns the sink for kind, or a validation error if none is registered.
func (reg *Registry) For(kind model.DestinationKind) (Sink, *model.Error) {
	s, ok := reg.sinks[kind]
	if !ok {
		return nil, model.NewValidation(model.CodeUnknownDestinationKind, "no sink registered for destination kind "+string(kind))
	}
	return s, nil
}
