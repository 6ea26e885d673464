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

package sink

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/LittleAndi/FileHorizon/pkg/model"
)

// chunkSize is the streaming buffer size named in spec §4.7.
const chunkSize = 64 * 1024

// LocalSink writes to the local filesystem, creating parent directories as
// needed. overwrite=false uses O_CREATE|O_EXCL (an atomic guard against
// clobbering a concurrent writer); overwrite=true truncates in place.
type LocalSink struct{}

// NewLocalSink returns a sink for the "local" destination kind.
func NewLocalSink() *LocalSink { return &LocalSink{} }

func (LocalSink) Write(ctx context.Context, targetPath string, content io.Reader, options model.DestinationOptions) (Result, error) {
	dir := filepath.Dir(targetPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, model.NewFile(model.CodeFileIOError, "failed to create destination directory: "+dir, err)
	}

	flags := os.O_WRONLY | os.O_CREATE
	if options.Overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}

	f, err := os.OpenFile(targetPath, flags, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return Result{}, model.NewFile(model.CodeTargetExists, "destination file already exists: "+targetPath, err)
		}
		if errors.Is(err, os.ErrPermission) {
			return Result{}, model.NewFile(model.CodePermissionDenied, "permission denied writing: "+targetPath, err)
		}
		return Result{}, model.NewFile(model.CodeFileIOError, "failed to open destination file: "+targetPath, err)
	}
	defer f.Close()

	written, copyErr := copyInChunks(ctx, f, content)
	if copyErr != nil {
		return Result{BytesWritten: written}, model.NewFile(model.CodeFileIOError, "failed writing destination file: "+targetPath, copyErr)
	}
	if err := f.Sync(); err != nil {
		return Result{BytesWritten: written}, model.NewFile(model.CodeFileIOError, "failed to flush destination file: "+targetPath, err)
	}
	return Result{BytesWritten: written}, nil
}

// copyInChunks streams src into dst chunkSize bytes at a time, checking for
// cancellation between chunks so a large transfer can be interrupted
// promptly rather than only at EOF.
func copyInChunks(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, chunkSize)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, readErr := src.Read(buf)
		if n > 0 {
			written, writeErr := dst.Write(buf[:n])
			total += int64(written)
			if writeErr != nil {
				return total, writeErr
			}
		}
		if readErr == io.EOF {
			return total, nil
		}
		if readErr != nil {
			return total, readErr
		}
	}
}
