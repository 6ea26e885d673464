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

// Package reader implements the source-opening capability (spec §4.6):
// OpenRead and GetAttributes against a FileReference. Remote readers own
// the protocol client they connect; closing the returned stream closes
// the client too.
package reader

import (
	"context"
	"io"
	"time"

	"github.com/LittleAndi/FileHorizon/pkg/model"
)

// Attributes mirrors the remote/local stat information the orchestrator
// and readiness checker need.
type Attributes struct {
	Size         int64
	LastWriteUtc time.Time
	Hash         string
}

// Reader is the capability every protocol implementation provides.
type Reader interface {
	OpenRead(ctx context.Context, ref model.FileReference) (io.ReadCloser, error)
	GetAttributes(ctx context.Context, ref model.FileReference) (Attributes, error)
}

// Deleter is implemented by readers that can remove their source file after
// a successful transfer (spec §4.8 step 8, "protocol-aware best-effort").
// Not every Reader needs to implement it; the orchestrator type-asserts.
type Deleter interface {
	Delete(ctx context.Context, ref model.FileReference) error
}

// Registry resolves a Reader by protocol, matching spec §4.8 step 5
// ("Select reader by event.protocol. No reader -> validation failure").
type Registry struct {
	readers map[model.Protocol]Reader
}

// NewRegistry builds an empty registry; use Register to populate it.
func NewRegistry() *Registry {
	return &Registry{readers: make(map[model.Protocol]Reader)}
}

// Register installs r as the reader for protocol.
func (reg *Registry) Register(protocol model.Protocol, r Reader) {
	reg.readers[protocol] = r
}

// For returns the reader for protocol, or a validation error if none is
// registered.
func (reg *Registry) For(protocol model.Protocol) (Reader, *model.Error) {
	r, ok := reg.readers[protocol]
	if !ok {
		return nil, model.NewValidation(model.CodeUnknownProtocol, "no reader registered for protocol "+string(protocol))
	}
	return r, nil
}
