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

// Package notifier implements the processed-file notifier (spec §4.9):
// Publish(notification, ctx) -> Ok | Failure, with dedupe, retry, and an
// optional circuit breaker, none of which are ever allowed to become fatal
// to the orchestrator.
package notifier

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/LittleAndi/FileHorizon/internal/idempotency"
	"github.com/LittleAndi/FileHorizon/internal/obs"
	"github.com/LittleAndi/FileHorizon/internal/retry"
	"github.com/LittleAndi/FileHorizon/pkg/model"
)

// schemaVersion is bumped whenever the wire payload's shape changes in a
// way a consumer needs to branch on.
const schemaVersion = 1

// payload is the self-describing JSON body published for every
// notification, carrying its own schema version so a future consumer can
// tell old and new shapes apart without out-of-band coordination.
type payload struct {
	SchemaVersion      int       `json:"schemaVersion"`
	Protocol           string    `json:"protocol"`
	FullPath           string    `json:"fullPath"`
	SizeBytes          int64     `json:"sizeBytes"`
	LastModifiedUtc    time.Time `json:"lastModifiedUtc"`
	Status             string    `json:"status"`
	ProcessingDuration string    `json:"processingDuration"`
	IdempotencyKey     string    `json:"idempotencyKey"`
	CorrelationID      string    `json:"correlationId"`
	CompletedUtc       time.Time `json:"completedUtc"`
	Destinations       []string  `json:"destinations"`
}

// Message is what a Transport actually ships: a serialized payload plus the
// routing attributes called out in spec §4.9.
type Message struct {
	Body       []byte
	Attributes map[string]string
}

// Transport is the wire publisher a Notifier sends through; implementations
// translate transport errors into the model.Error taxonomy.
type Transport interface {
	Publish(ctx context.Context, msg Message) error
}

// DefaultDedupeTTL is used when the configuration leaves it unset.
const DefaultDedupeTTL = 10 * time.Minute

// Config controls a Notifier's behavior; all fields are optional except
// Transport, which must be set when Enabled is true.
type Config struct {
	Enabled        bool
	Transport      Transport
	DedupeStore    idempotency.Store
	DedupeTTL      time.Duration
	PublishTimeout time.Duration
	Retry          retry.Policy
	Breaker        *Breaker
	Hub            *obs.Hub
	Logger         *logrus.Entry
}

// Notifier publishes FileProcessedNotifications. Every exported method
// swallows its own errors into a Result; nothing here returns an error a
// caller could mistake for an orchestration failure.
type Notifier struct {
	cfg Config
}

// New builds a Notifier from cfg, filling in defaults for zero-valued
// optional fields.
func New(cfg Config) *Notifier {
	if cfg.DedupeTTL <= 0 {
		cfg.DedupeTTL = DefaultDedupeTTL
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	if cfg.Retry.Base <= 0 {
		cfg.Retry = retry.Policy{Base: 200 * time.Millisecond, Cap: 4 * time.Second, MaxAttempts: 4, JitterFraction: 0.25}
	}
	return &Notifier{cfg: cfg}
}

// Result is what Publish returns; it never returns a Go error so callers
// can't accidentally propagate a notifier failure as an orchestration one.
type Result struct {
	Published bool
	Suppressed bool
	Err        error
}

// Publish sends notification, honoring disabled mode, dedupe, retry, and
// the circuit breaker, per spec §4.9. It is safe to call even when the
// orchestration itself failed; Status carries the outcome either way.
func (n *Notifier) Publish(ctx context.Context, notification model.FileProcessedNotification) Result {
	start := time.Now()
	defer func() {
		if n.cfg.Hub != nil {
			n.cfg.Hub.ObserveNotifyPublishDuration(time.Since(start))
		}
	}()

	if !n.cfg.Enabled {
		if n.cfg.Hub != nil {
			n.cfg.Hub.IncNotificationsSuppressed()
		}
		return Result{Suppressed: true}
	}

	if n.cfg.DedupeStore != nil {
		key := notification.DedupeKey()
		fresh, err := n.cfg.DedupeStore.TryMarkProcessed(ctx, key, n.cfg.DedupeTTL)
		if err != nil {
			n.logWarn(err, "notification dedupe check failed, publishing anyway")
		} else if !fresh {
			if n.cfg.Hub != nil {
				n.cfg.Hub.IncNotificationsSuppressed()
			}
			return Result{Suppressed: true}
		}
	}

	if n.cfg.Breaker != nil && !n.cfg.Breaker.Allow() {
		err := model.NewQueue(model.CodeCircuitOpen, "notifier circuit breaker is open", nil)
		n.logWarn(err, "notification suppressed by open circuit breaker")
		if n.cfg.Hub != nil {
			n.cfg.Hub.IncNotificationsFailed()
		}
		return Result{Err: err}
	}

	msg, err := n.buildMessage(notification)
	if err != nil {
		if n.cfg.Hub != nil {
			n.cfg.Hub.IncNotificationsFailed()
		}
		return Result{Err: err}
	}

	publishCtx, cancel := context.WithTimeout(ctx, n.cfg.PublishTimeout)
	defer cancel()

	var lastErr error
	doErr := retry.Do(publishCtx, n.cfg.Retry, func(ctx context.Context, attempt int) (bool, error) {
		pubErr := n.cfg.Transport.Publish(ctx, msg)
		if pubErr == nil {
			return false, nil
		}
		lastErr = pubErr
		return model.AsFileHorizonError(pubErr).Retriable(), pubErr
	})

	if doErr != nil {
		if n.cfg.Breaker != nil {
			n.cfg.Breaker.RecordFailure()
		}
		if n.cfg.Hub != nil {
			n.cfg.Hub.IncNotificationsFailed()
		}
		if lastErr != nil {
			n.logWarn(lastErr, "notification publish failed")
			return Result{Err: model.AsFileHorizonError(lastErr)}
		}
		n.logWarn(doErr, "notification publish failed")
		return Result{Err: model.NewTransient(model.CodeTimeout, "notification publish timed out", doErr)}
	}

	if n.cfg.Breaker != nil {
		n.cfg.Breaker.RecordSuccess()
	}
	if n.cfg.Hub != nil {
		n.cfg.Hub.IncNotificationsPublished()
	}
	return Result{Published: true}
}

func (n *Notifier) buildMessage(notification model.FileProcessedNotification) (Message, error) {
	p := payload{
		SchemaVersion:      schemaVersion,
		Protocol:           string(notification.Protocol),
		FullPath:           notification.FullPath,
		SizeBytes:          notification.SizeBytes,
		LastModifiedUtc:    notification.LastModifiedUtc,
		Status:             string(notification.Status),
		ProcessingDuration: notification.ProcessingDuration.String(),
		IdempotencyKey:     notification.IdempotencyKey,
		CorrelationID:      notification.CorrelationID,
		CompletedUtc:       notification.CompletedUtc,
		Destinations:       notification.Destinations,
	}
	body, err := json.Marshal(p)
	if err != nil {
		return Message{}, model.NewUnspecified("failed to serialize notification payload", err)
	}

	prefix := notification.IdempotencyKey
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}

	return Message{
		Body: body,
		Attributes: map[string]string{
			"file.protocol":         string(notification.Protocol),
			"notify.status":         string(notification.Status),
			"notify.schema.version": strconv.Itoa(schemaVersion),
			"notify.id.key.prefix":  prefix,
		},
	}, nil
}

func (n *Notifier) logWarn(err error, msg string) {
	if n.cfg.Logger == nil {
		return
	}
	n.cfg.Logger.WithError(err).Warn(msg)
}
