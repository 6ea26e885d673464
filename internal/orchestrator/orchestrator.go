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

// Package orchestrator implements the nine-step per-event pipeline (spec
// §4.8): idempotency gate, route, select plan, resolve destination,
// select reader, open source, write sink, best-effort delete, notify.
// It is the only component that calls every other capability.
package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/LittleAndi/FileHorizon/internal/idempotency"
	"github.com/LittleAndi/FileHorizon/internal/notifier"
	"github.com/LittleAndi/FileHorizon/internal/obs"
	"github.com/LittleAndi/FileHorizon/internal/reader"
	"github.com/LittleAndi/FileHorizon/internal/sink"
	"github.com/LittleAndi/FileHorizon/pkg/model"
)

// Router is the narrow slice of router.Router the orchestrator needs,
// expressed as an interface so tests don't need a real config.Routing.
type Router interface {
	Route(event model.FileEvent) ([]model.DestinationPlan, *model.Error)
}

// Destination resolution: router.Router keeps the table mapping a plan's
// declared destination name to the root path/topic a sink writes against,
// and Route already renders the plan's TargetPath from it, so the
// orchestrator has no separate resolver and only checks that the target
// path is non-empty (spec §4.8 step 4).

// Outcome captures what the orchestrator decided for one event, for the
// driver's acknowledgement discipline: ack only once both sink write and
// idempotency mark have been durably recorded.
type Outcome struct {
	Success bool
	Err     *model.Error
}

// Config wires every collaborator the orchestrator calls into.
type Config struct {
	IdempotencyStore  idempotency.Store
	IdempotencyTTL    time.Duration
	IdempotencyEnabled bool
	Router            Router
	Readers           *reader.Registry
	Sinks             *sink.Registry
	Notifier          *notifier.Notifier
	Hub               *obs.Hub
	Logger            *logrus.Entry
}

// Orchestrator processes one FileEvent to completion, synchronously, on the
// calling goroutine (spec §4.8: "no cross-event coroutines").
type Orchestrator struct {
	cfg Config
}

// New builds an Orchestrator from cfg.
func New(cfg Config) *Orchestrator {
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = idempotency.DefaultTTL
	}
	return &Orchestrator{cfg: cfg}
}

// Process runs the full pipeline for one event under root span
// "file.orchestrate".
func (o *Orchestrator) Process(ctx context.Context, event model.FileEvent) Outcome {
	start := time.Now()
	ctx, span := o.startSpan(ctx, "file.orchestrate")
	defer span.End()

	correlationID := uuid.NewString()
	log := o.logEntry(event, correlationID)

	// Step 1: idempotency gate.
	if o.cfg.IdempotencyEnabled && o.cfg.IdempotencyStore != nil {
		key := idempotency.KeyForEvent(event.ID)
		fresh, err := o.cfg.IdempotencyStore.TryMarkProcessed(ctx, key, o.cfg.IdempotencyTTL)
		if err != nil {
			log.WithError(err).Warn("idempotency check failed, proceeding as if fresh (spec §7 conservative default)")
		} else if !fresh {
			log.Info("duplicate event, already handled")
			return Outcome{Success: true}
		}
	}

	// Step 2 & 3: route, select first plan.
	plans, routeErr := o.cfg.Router.Route(event)
	if routeErr != nil {
		return o.fail(ctx, event, correlationID, start, nil, routeErr, log)
	}
	plan := plans[0]

	// Step 4: destination root was already resolved into plan.TargetPath by
	// Route; an empty target path means a misconfigured destination.
	if plan.TargetPath == "" {
		err := model.NewValidation(model.CodeUnknownDestination, "resolved plan has an empty target path")
		return o.fail(ctx, event, correlationID, start, &plan, err, log)
	}

	// Step 5: select reader.
	r, readerErr := o.cfg.Readers.For(event.Protocol)
	if readerErr != nil {
		return o.fail(ctx, event, correlationID, start, &plan, readerErr, log)
	}

	ref := model.FileReference{Scheme: event.Protocol, Path: event.Metadata.SourcePath}

	// Step 6: open source stream.
	openCtx, openSpan := o.startSpan(ctx, "reader.open")
	stream, openErr := r.OpenRead(openCtx, ref)
	openSpan.End()
	if openErr != nil {
		return o.fail(ctx, event, correlationID, start, &plan, model.AsFileHorizonError(openErr), log)
	}
	defer stream.Close()

	// Step 7: invoke sink.
	s, sinkLookupErr := o.cfg.Sinks.For(plan.Kind)
	if sinkLookupErr != nil {
		return o.fail(ctx, event, correlationID, start, &plan, sinkLookupErr, log)
	}

	writeCtx, writeSpan := o.startSpan(ctx, "sink.write")
	result, writeErr := s.Write(writeCtx, plan.TargetPath, stream, plan.Options)
	writeSpan.End()
	if writeErr != nil {
		return o.fail(ctx, event, correlationID, start, &plan, model.AsFileHorizonError(writeErr), log)
	}
	if o.cfg.Hub != nil {
		o.cfg.Hub.AddBytesCopied(result.BytesWritten)
	}

	// Step 8: best-effort source deletion.
	if event.DeleteAfterTransfer {
		if deleter, ok := r.(reader.Deleter); ok {
			if delErr := deleter.Delete(ctx, ref); delErr != nil {
				log.WithError(delErr).Warn("source deletion failed after successful transfer; status unaffected")
			}
		}
	}

	if o.cfg.Hub != nil {
		o.cfg.Hub.IncFilesProcessed()
	}

	// Step 9: always-emit notification.
	o.notify(ctx, event, correlationID, start, &plan, model.StatusSuccess, result.BytesWritten)

	return Outcome{Success: true}
}

func (o *Orchestrator) fail(ctx context.Context, event model.FileEvent, correlationID string, start time.Time, plan *model.DestinationPlan, err *model.Error, log *logrus.Entry) Outcome {
	obs.LogError(log, err)
	if o.cfg.Hub != nil {
		o.cfg.Hub.IncFilesFailed()
	}
	o.notify(ctx, event, correlationID, start, plan, model.StatusFailure, 0)
	return Outcome{Success: false, Err: err}
}

func (o *Orchestrator) notify(ctx context.Context, event model.FileEvent, correlationID string, start time.Time, plan *model.DestinationPlan, status model.NotificationStatus, bytesWritten int64) {
	if o.cfg.Notifier == nil {
		return
	}
	// Destinations names only the destinations the file actually reached: a
	// plan selected by routing but never written to (any failure before or
	// during the sink write) doesn't count, so a failure notification always
	// reports an empty list regardless of which plan was chosen (spec §8
	// scenario 2).
	var destinations []string
	if plan != nil && status == model.StatusSuccess {
		destinations = []string{plan.DestinationName}
	}
	notification := model.FileProcessedNotification{
		Protocol:           event.Protocol,
		FullPath:           event.Metadata.SourcePath,
		SizeBytes:          bytesWritten,
		LastModifiedUtc:    event.Metadata.LastModifiedUtc,
		Status:             status,
		ProcessingDuration: time.Since(start),
		IdempotencyKey:     event.ID,
		CorrelationID:      correlationID,
		CompletedUtc:       time.Now().UTC(),
		Destinations:       destinations,
	}
	o.cfg.Notifier.Publish(ctx, notification)
}

func (o *Orchestrator) logEntry(event model.FileEvent, correlationID string) *logrus.Entry {
	if o.cfg.Logger == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return o.cfg.Logger.WithFields(logrus.Fields{
		"event.id":       event.ID,
		"correlation.id": correlationID,
	})
}

func (o *Orchestrator) startSpan(ctx context.Context, name string) (context.Context, spanEnder) {
	if o.cfg.Hub == nil {
		return ctx, noopSpan{}
	}
	spanCtx, span := o.cfg.Hub.StartSpan(ctx, name)
	return spanCtx, span
}

// spanEnder narrows *trace.Span down to the one method the orchestrator
// needs, so a nil Hub can hand back a no-op without constructing a real span.
type spanEnder interface {
	End()
}

type noopSpan struct{}

func (noopSpan) End() {}
