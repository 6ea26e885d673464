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

// Package poller implements the discovery half of the pipeline (spec
// §4.4): per-source backoff, directory enumeration, readiness-gated
// dedup, and FileEvent enqueueing.
package poller

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/LittleAndi/FileHorizon/internal/obs"
	"github.com/LittleAndi/FileHorizon/internal/queue"
	"github.com/LittleAndi/FileHorizon/internal/readiness"
	"github.com/LittleAndi/FileHorizon/pkg/model"
)

// Entry is one non-directory item an enumeration step yields.
type Entry struct {
	Path         string
	Size         int64
	LastWriteUtc time.Time
}

// SourceConfig is the subset of config.FileSource/RemoteFileSource every
// Lister needs; the poller package stays decoupled from the config package
// so pollers can be unit tested with literal values.
type SourceConfig struct {
	Name                string
	Root                string
	Recursive           bool
	Pattern             string
	DeleteAfterTransfer bool
	StabilityWindow     time.Duration
	Protocol            model.Protocol
	Host                string
	Port                int
}

// Lister enumerates one source's entries for one cycle. Implementations
// own connecting (if the protocol needs a client) and are expected to
// return a transient model.Error on connect/list failure so RegisterFailure
// backs the source off correctly.
type Lister interface {
	List(ctx context.Context, src SourceConfig) ([]Entry, error)
}

// Source pairs a Lister with its configuration.
type Source struct {
	Config SourceConfig
	Lister Lister
}

// Poller runs one discovery cycle across a fixed set of sources.
type Poller struct {
	sources  []Source
	queue    queue.Queue
	backoff  *BackoffTracker
	dispatch *DispatchTracker
	hub      *obs.Hub
	logger   *logrus.Entry
}

// New builds a Poller over sources, enqueuing discovered events onto q.
func New(sources []Source, q queue.Queue, hub *obs.Hub, logger *logrus.Entry) *Poller {
	return &Poller{
		sources:  sources,
		queue:    q,
		backoff:  NewBackoffTracker(DefaultBackoffBase, DefaultMaxBackoff),
		dispatch: NewDispatchTracker(),
		hub:      hub,
		logger:   logger,
	}
}

// Cycle runs one discovery pass over every configured source, skipping any
// still in its backoff window.
func (p *Poller) Cycle(ctx context.Context) {
	cycleCtx, cycleSpan := p.startSpan(ctx, "poll.remote.cycle")
	defer cycleSpan.End()

	start := time.Now()
	for _, source := range p.sources {
		p.pollSource(cycleCtx, source)
	}
	if p.hub != nil {
		p.hub.IncPollCycles()
		p.hub.ObservePollCycleDuration(time.Since(start))
	}
}

func (p *Poller) pollSource(ctx context.Context, source Source) {
	name := source.Config.Name

	if remaining, inBackoff := p.backoff.Remaining(name); inBackoff {
		p.log().WithField("source", name).WithField("remaining", remaining).Debug("source in backoff window, skipping")
		return
	}

	sourceCtx, sourceSpan := p.startSpan(ctx, "poll.remote.source")
	defer sourceSpan.End()

	entries, err := source.Lister.List(sourceCtx, source.Config)
	if err != nil {
		p.backoff.RegisterFailure(name)
		if p.hub != nil {
			p.hub.IncPollSourceError(name)
		}
		p.log().WithField("source", name).WithError(err).Warn("poll cycle failed for source")
		return
	}
	p.backoff.Reset(name)

	now := time.Now().UTC()
	for _, entry := range entries {
		p.handleEntry(ctx, source.Config, entry, now)
	}
}

func (p *Poller) handleEntry(ctx context.Context, src SourceConfig, entry Entry, observedAt time.Time) {
	if p.hub != nil {
		p.hub.IncFilesDiscovered()
	}

	ref := model.FileReference{Scheme: src.Protocol, Host: src.Host, Port: src.Port, Path: entry.Path, SourceName: src.Name}
	identityKey := model.IdentityKey(ref)

	previous := p.dispatch.Previous(identityKey)
	ready, next := readiness.Decide(readiness.Current{
		Size:         entry.Size,
		LastWriteUtc: entry.LastWriteUtc,
		ObservedAtUtc: observedAt,
	}, previous, src.StabilityWindow)
	p.dispatch.UpdateObservation(identityKey, next)

	if !ready {
		if p.hub != nil {
			p.hub.IncFilesSkippedUnstable()
		}
		return
	}

	if p.dispatch.AlreadyDispatched(identityKey, next) {
		return
	}

	event := model.FileEvent{
		ID: uuid.NewString(),
		Metadata: model.FileMetadata{
			SourcePath:      entry.Path,
			SizeBytes:       entry.Size,
			LastModifiedUtc: entry.LastWriteUtc,
		},
		DiscoveredAtUtc:     observedAt,
		Protocol:            src.Protocol,
		DeleteAfterTransfer: src.DeleteAfterTransfer,
	}

	if _, err := p.queue.Enqueue(ctx, event); err != nil {
		p.log().WithField("source", src.Name).WithField("path", entry.Path).WithError(err).Warn("failed to enqueue discovered file")
		return
	}
	p.dispatch.MarkDispatched(identityKey, next)
}

func (p *Poller) log() *logrus.Entry {
	if p.logger != nil {
		return p.logger
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func (p *Poller) startSpan(ctx context.Context, name string) (context.Context, spanEnder) {
	if p.hub == nil {
		return ctx, noopSpan{}
	}
	spanCtx, span := p.hub.StartSpan(ctx, name)
	return spanCtx, span
}

type spanEnder interface{ End() }
type noopSpan struct{}

func (noopSpan) End() {}
