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

// Package driver runs the two background loops spec §4.10 calls for: a
// polling loop that drives internal/poller on a fixed interval, and a
// processing loop that drains internal/queue and hands events to
// internal/orchestrator, with adaptive idle backoff. Process Role selects
// which of the two a given replica runs.
package driver

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/LittleAndi/FileHorizon/internal/obs"
	"github.com/LittleAndi/FileHorizon/internal/orchestrator"
	"github.com/LittleAndi/FileHorizon/internal/poller"
	"github.com/LittleAndi/FileHorizon/internal/queue"
	"github.com/LittleAndi/FileHorizon/pkg/model"
)

// PollingLoop invokes a poller.Poller every interval. A cycle that overruns
// the interval logs a warning and restarts immediately rather than piling
// up; an unhandled panic-free error from Cycle itself can't happen (Cycle
// swallows per-source errors), so the only failure mode here is overrun.
type PollingLoop struct {
	Poller   *poller.Poller
	Interval time.Duration
	Logger   *logrus.Entry
}

// Run blocks until ctx is canceled.
func (l *PollingLoop) Run(ctx context.Context) {
	log := l.log()
	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("polling loop stopping")
			return
		case <-ticker.C:
			start := time.Now()
			l.Poller.Cycle(ctx)
			if elapsed := time.Since(start); elapsed > l.Interval {
				log.WithField("elapsed", elapsed).WithField("interval", l.Interval).
					Warn("poll cycle overran its interval, restarting immediately")
			}
		}
	}
}

func (l *PollingLoop) log() *logrus.Entry {
	if l.Logger != nil {
		return l.Logger
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// adaptiveBackoffCap is spec §4.10's ceiling on the processing loop's idle
// sleep: "double the sleep up to 500 ms, reset on any work."
const adaptiveBackoffCap = 500 * time.Millisecond

// ProcessingLoop drains the queue in batches and invokes the orchestrator
// per event, applying adaptive backoff when a drain comes back empty.
type ProcessingLoop struct {
	Queue        queue.Queue
	Orchestrator *orchestrator.Orchestrator
	BatchLimit   int
	Hub          *obs.Hub
	Logger       *logrus.Entry
}

// Run blocks until ctx is canceled.
func (l *ProcessingLoop) Run(ctx context.Context) {
	log := l.log()
	sleep := time.Millisecond
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("processing loop stopping")
			return
		case <-timer.C:
		}

		deliveries, err := l.Queue.Drain(ctx, l.batchLimit())
		if err != nil {
			log.WithError(err).Warn("queue drain failed")
			timer.Reset(sleep)
			continue
		}

		if len(deliveries) == 0 {
			sleep = nextBackoff(sleep)
			timer.Reset(sleep)
			continue
		}
		sleep = time.Millisecond

		for _, delivery := range deliveries {
			if l.Hub != nil {
				l.Hub.IncQueueDequeued()
			}
			l.handle(ctx, delivery)
		}
		timer.Reset(0)
	}
}

func (l *ProcessingLoop) handle(ctx context.Context, delivery model.DeliveryEntry) {
	log := l.log().WithField("eventId", delivery.Event.ID)
	outcome := l.Orchestrator.Process(ctx, delivery.Event)
	if !outcome.Success {
		log.WithError(outcome.Err).Warn("event processing failed, leaving unacknowledged for redelivery")
		return
	}
	if err := l.Queue.Acknowledge(ctx, delivery.EntryID); err != nil {
		log.WithError(err).Warn("failed to acknowledge processed event")
	}
}

func (l *ProcessingLoop) batchLimit() int {
	if l.BatchLimit <= 0 {
		return 1
	}
	return l.BatchLimit
}

func (l *ProcessingLoop) log() *logrus.Entry {
	if l.Logger != nil {
		return l.Logger
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > adaptiveBackoffCap {
		return adaptiveBackoffCap
	}
	if next <= 0 {
		return time.Millisecond
	}
	return next
}
