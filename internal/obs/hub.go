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

// Package obs is FileHorizon's single telemetry capability: a Hub bundling
// the Prometheus counters/histograms and OpenCensus spans named in spec §6.
// It is constructed once at the composition root and passed down as a
// capability (spec §9's "global telemetry instruments" design note) instead
// of being reached for as a package-level singleton by every component.
package obs

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opencensus.io/trace"
)

// Hub is the telemetry capability threaded through every component.
type Hub struct {
	reg *prometheus.Registry

	filesProcessed       prometheus.Counter
	filesFailed          prometheus.Counter
	bytesCopied          prometheus.Counter
	queueEnqueued        prometheus.Counter
	queueDequeued        prometheus.Counter
	queueFailures        *prometheus.CounterVec
	pollCycles           prometheus.Counter
	filesDiscovered      prometheus.Counter
	filesSkippedUnstable prometheus.Counter
	pollSourceErrors     *prometheus.CounterVec
	notificationsPublished  prometheus.Counter
	notificationsFailed     prometheus.Counter
	notificationsSuppressed prometheus.Counter

	processingDuration   prometheus.Histogram
	pollCycleDuration    prometheus.Histogram
	notifyPublishDuration prometheus.Histogram
}

// NewHub builds a Hub and registers every instrument against reg. Pass
// prometheus.NewRegistry() for isolated tests, or prometheus.DefaultRegisterer
// wrapped in a *prometheus.Registry at the composition root for production.
func NewHub(reg *prometheus.Registry) *Hub {
	h := &Hub{
		reg: reg,
		filesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filehorizon_files_processed_total", Help: "Files successfully processed end to end.",
		}),
		filesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filehorizon_files_failed_total", Help: "Files that failed orchestration.",
		}),
		bytesCopied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filehorizon_bytes_copied_total", Help: "Bytes streamed from reader to sink.",
		}),
		queueEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filehorizon_queue_enqueued_total", Help: "Events accepted onto the queue.",
		}),
		queueDequeued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filehorizon_queue_dequeued_total", Help: "Events drained from the queue.",
		}),
		queueFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filehorizon_queue_failures_total", Help: "Queue operation failures by op (enqueue|dequeue).",
		}, []string{"op"}),
		pollCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filehorizon_poll_cycles_total", Help: "Completed poll cycles across all sources.",
		}),
		filesDiscovered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filehorizon_files_discovered_total", Help: "Files observed by pollers (ready or not).",
		}),
		filesSkippedUnstable: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filehorizon_files_skipped_unstable_total", Help: "Files skipped this cycle for not yet being size-stable.",
		}),
		pollSourceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filehorizon_poll_source_errors_total", Help: "Poll cycle failures by source name.",
		}, []string{"source"}),
		notificationsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filehorizon_notifications_published_total", Help: "Processed-file notifications published.",
		}),
		notificationsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filehorizon_notifications_failed_total", Help: "Processed-file notifications that failed to publish.",
		}),
		notificationsSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filehorizon_notifications_suppressed_total", Help: "Notifications suppressed (disabled mode or dedupe window).",
		}),
		processingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "filehorizon_processing_duration_ms", Help: "Per-event orchestration wall-clock time.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		}),
		pollCycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "filehorizon_poll_cycle_duration_ms", Help: "Poll cycle wall-clock time across all sources.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		}),
		notifyPublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "filehorizon_notify_publish_duration_ms", Help: "Notifier publish wall-clock time.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		}),
	}

	if reg != nil {
		reg.MustRegister(
			h.filesProcessed, h.filesFailed, h.bytesCopied,
			h.queueEnqueued, h.queueDequeued, h.queueFailures,
			h.pollCycles, h.filesDiscovered, h.filesSkippedUnstable, h.pollSourceErrors,
			h.notificationsPublished, h.notificationsFailed, h.notificationsSuppressed,
			h.processingDuration, h.pollCycleDuration, h.notifyPublishDuration,
		)
	}
	return h
}

func (h *Hub) IncFilesProcessed()            { h.filesProcessed.Inc() }
func (h *Hub) IncFilesFailed()               { h.filesFailed.Inc() }
func (h *Hub) AddBytesCopied(n int64)        { h.bytesCopied.Add(float64(n)) }
func (h *Hub) IncQueueEnqueued()             { h.queueEnqueued.Inc() }
func (h *Hub) IncQueueDequeued()             { h.queueDequeued.Inc() }
func (h *Hub) IncQueueFailure(op string)     { h.queueFailures.WithLabelValues(op).Inc() }
func (h *Hub) IncPollCycles()                { h.pollCycles.Inc() }
func (h *Hub) IncFilesDiscovered()           { h.filesDiscovered.Inc() }
func (h *Hub) IncFilesSkippedUnstable()      { h.filesSkippedUnstable.Inc() }
func (h *Hub) IncPollSourceError(source string) { h.pollSourceErrors.WithLabelValues(source).Inc() }
func (h *Hub) IncNotificationsPublished()    { h.notificationsPublished.Inc() }
func (h *Hub) IncNotificationsFailed()       { h.notificationsFailed.Inc() }
func (h *Hub) IncNotificationsSuppressed()   { h.notificationsSuppressed.Inc() }

func (h *Hub) ObserveProcessingDuration(d time.Duration) {
	h.processingDuration.Observe(msFloat(d))
}
func (h *Hub) ObservePollCycleDuration(d time.Duration) {
	h.pollCycleDuration.Observe(msFloat(d))
}
func (h *Hub) ObserveNotifyPublishDuration(d time.Duration) {
	h.notifyPublishDuration.Observe(msFloat(d))
}

func msFloat(d time.Duration) float64 { return float64(d.Microseconds()) / 1000.0 }

// StartSpan opens a named OpenCensus span and returns the derived context.
// Callers defer span.End(). Attributes are attached via trace.Int64Attribute
// / trace.StringAttribute by the caller when needed.
func (h *Hub) StartSpan(ctx context.Context, name string) (context.Context, *trace.Span) {
	return trace.StartSpan(ctx, name)
}
