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

package reader

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/LittleAndi/FileHorizon/pkg/model"
)

// LocalReader opens files from the local filesystem for shared read.
type LocalReader struct{}

// NewLocalReader returns a reader for the "local" protocol.
func NewLocalReader() *LocalReader { return &LocalReader{} }

func (LocalReader) OpenRead(_ context.Context, ref model.FileReference) (io.ReadCloser, error) {
	if ref.Scheme != model.ProtocolLocal {
		return nil, model.NewValidation(model.CodeSchemeMismatch, "local reader given non-local reference: "+string(ref.Scheme))
	}
	f, err := os.Open(ref.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, model.NewFile(model.CodeFileNotFound, "source file not found: "+ref.Path, err)
		}
		return nil, model.NewFile(model.CodeFileIOError, "failed to open source file: "+ref.Path, err)
	}
	return f, nil
}

// Delete removes the source file, satisfying reader.Deleter.
func (LocalReader) Delete(_ context.Context, ref model.FileReference) error {
	if ref.Scheme != model.ProtocolLocal {
		return model.NewValidation(model.CodeSchemeMismatch, "local reader given non-local reference: "+string(ref.Scheme))
	}
	if err := os.Remove(ref.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return model.NewFile(model.CodeFileIOError, "failed to delete source file: "+ref.Path, err)
	}
	return nil
}

func (LocalReader) GetAttributes(_ context.Context, ref model.FileReference) (Attributes, error) {
	if ref.Scheme != model.ProtocolLocal {
		return Attributes{}, model.NewValidation(model.CodeSchemeMismatch, "local reader given non-local reference: "+string(ref.Scheme))
	}
	info, err := os.Stat(ref.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Attributes{}, model.NewFile(model.CodeFileNotFound, "source file not found: "+ref.Path, err)
		}
		return Attributes{}, model.NewFile(model.CodeFileIOError, "failed to stat source file: "+ref.Path, err)
	}
	return Attributes{Size: info.Size(), LastWriteUtc: info.ModTime().UTC()}, nil
}
