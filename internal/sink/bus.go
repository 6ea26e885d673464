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
	"path"
	"time"

	"github.com/LittleAndi/FileHorizon/internal/retry"
	"github.com/LittleAndi/FileHorizon/pkg/model"
)

// busRetryPolicy matches spec §4.7: base ~200ms, cap ~4s, up to 3 retries,
// +/-25% jitter.
var busRetryPolicy = retry.Policy{
	Base:           200 * time.Millisecond,
	Cap:            4 * time.Second,
	MaxAttempts:    4, // first attempt + up to 3 retries
	JitterFraction: 0.25,
}

// BusMessage is what a Publisher actually ships; Subject defaults to the
// file name per spec §4.7.
type BusMessage struct {
	ContentType string
	Subject     string
	Body        []byte
}

// Publisher is the transport a BusSink publishes through. Implementations
// translate transport-specific errors into the model.Error taxonomy so
// BusSink can decide what's retriable without transport knowledge.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg BusMessage) error
}

// BusSink wraps content in a BusMessage and publishes it to topic, retrying
// transient failures with exponential backoff and jitter.
type BusSink struct {
	publisher Publisher
	topic     string
	policy    retry.Policy
}

// NewBusSink builds a sink publishing to topic through publisher.
func NewBusSink(publisher Publisher, topic string) *BusSink {
	return &BusSink{publisher: publisher, topic: topic, policy: busRetryPolicy}
}

func (s *BusSink) Write(ctx context.Context, targetPath string, content io.Reader, options model.DestinationOptions) (Result, error) {
	body, err := io.ReadAll(content)
	if err != nil {
		return Result{}, model.NewFile(model.CodeFileIOError, "failed reading source stream for bus publish", err)
	}

	msg := BusMessage{
		ContentType: "application/octet-stream",
		Subject:     path.Base(targetPath),
		Body:        body,
	}

	var lastErr error
	doErr := retry.Do(ctx, s.policy, func(ctx context.Context, attempt int) (bool, error) {
		pubErr := s.publisher.Publish(ctx, s.topic, msg)
		if pubErr == nil {
			return false, nil
		}
		lastErr = pubErr
		fhErr := model.AsFileHorizonError(pubErr)
		return fhErr.Retriable(), pubErr
	})

	if doErr != nil {
		if errors.Is(doErr, context.Canceled) || errors.Is(doErr, context.DeadlineExceeded) {
			return Result{}, model.NewTransient(model.CodeTimeout, "bus publish cancelled during backoff", doErr)
		}
		if lastErr != nil {
			return Result{}, model.AsFileHorizonError(lastErr)
		}
		return Result{}, model.NewTransient(model.CodeBusTransient, "bus publish failed", doErr)
	}
	return Result{BytesWritten: int64(len(body))}, nil
}
