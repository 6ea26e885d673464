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

// Package main is FileHorizon's composition root: it builds the
// configuration, wires the concrete collaborators (queue, idempotency
// store, router, readers, sinks, notifier, orchestrator) behind their
// capability interfaces, and runs whichever background loops the
// configured Role calls for until an OS signal asks it to stop.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/LittleAndi/FileHorizon/internal/config"
	"github.com/LittleAndi/FileHorizon/internal/driver"
	"github.com/LittleAndi/FileHorizon/internal/idempotency"
	"github.com/LittleAndi/FileHorizon/internal/notifier"
	"github.com/LittleAndi/FileHorizon/internal/obs"
	"github.com/LittleAndi/FileHorizon/internal/orchestrator"
	"github.com/LittleAndi/FileHorizon/internal/poller"
	"github.com/LittleAndi/FileHorizon/internal/queue"
	"github.com/LittleAndi/FileHorizon/internal/reader"
	"github.com/LittleAndi/FileHorizon/internal/retry"
	"github.com/LittleAndi/FileHorizon/internal/router"
	"github.com/LittleAndi/FileHorizon/internal/sink"
	"github.com/LittleAndi/FileHorizon/pkg/model"
)

func main() {
	role := flag.String("role", "All", "process role: Poller, Worker, or All")
	redisAddr := flag.String("redis_addr", "", "Redis address for the distributed queue/idempotency/notifier; empty runs entirely in-memory")
	streamName := flag.String("queue_stream", "filehorizon:events", "Redis stream name backing the work queue")
	consumerGroup := flag.String("queue_group", "filehorizon-workers", "Redis consumer group name")
	notifyStream := flag.String("notify_stream", "filehorizon:notifications", "Redis stream name for processed-file notifications")
	notifyEnabled := flag.Bool("notify_enabled", false, "publish a notification after every processed file")

	sourceName := flag.String("source_name", "default", "name of the local source being polled")
	sourcePath := flag.String("source_path", "", "local directory to poll; empty disables the local poller")
	sourceRecursive := flag.Bool("source_recursive", true, "recurse into subdirectories")
	sourcePattern := flag.String("source_pattern", "", "glob pattern source files must match, e.g. *.csv")
	sourceStability := flag.Duration("source_stability_window", 10*time.Second, "how long a file's size/mtime must hold steady before dispatch")
	deleteAfterTransfer := flag.Bool("delete_after_transfer", false, "best-effort delete the source file after a successful transfer")

	destRoot := flag.String("dest_root", "", "local destination root directory")
	destOverwrite := flag.Bool("dest_overwrite", false, "allow the destination sink to overwrite existing files")

	pollIntervalMs := flag.Int("poll_interval_ms", 5000, "polling loop interval in milliseconds")
	batchLimit := flag.Int("batch_limit", 16, "max deliveries drained per processing loop iteration")
	idempotencyTTL := flag.Duration("idempotency_ttl", 10*time.Minute, "idempotency gate TTL per event id")
	metricsAddr := flag.String("metrics_addr", ":9090", "Prometheus /metrics listen address")
	logLevel := flag.String("log_level", "info", "logrus level: debug, info, warn, error")
	flag.Parse()

	logger := obs.NewLogger()
	if level, err := logrus.ParseLevel(*logLevel); err == nil {
		logger.SetLevel(level)
	}
	log := logrus.NewEntry(logger)

	reg := prometheus.NewRegistry()
	hub := obs.NewHub(reg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var redisClient redis.UniversalClient
	if *redisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: *redisAddr})
	}

	q := buildQueue(ctx, redisClient, *streamName, *consumerGroup, log, hub)
	idemStore := buildIdempotencyStore(redisClient)
	n := buildNotifier(redisClient, *notifyStream, *notifyEnabled, hub, log)

	cfg := buildConfig(*role, *sourceName, *sourcePath, *sourceRecursive, *sourcePattern,
		*sourceStability, *deleteAfterTransfer, *destRoot, *destOverwrite, *idempotencyTTL)
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	rtr, err := router.New(cfg.Routing, cfg.Destinations)
	if err != nil {
		log.WithError(err).Fatal("failed to compile routing rules")
	}

	readers := reader.NewRegistry()
	readers.Register(model.ProtocolLocal, reader.NewLocalReader())

	sinks := sink.NewRegistry()
	sinks.Register(model.DestinationLocal, sink.NewLocalSink())
	if redisClient != nil {
		sinks.Register(model.DestinationMessageBus, sink.NewBusSink(sink.NewRedisBusPublisher(redisClient), "filehorizon-transfers"))
	}

	orch := orchestrator.New(orchestrator.Config{
		Router:             rtr,
		Readers:            readers,
		Sinks:              sinks,
		Notifier:           n,
		IdempotencyStore:   idemStore,
		IdempotencyEnabled: cfg.Idempotency.Enabled,
		IdempotencyTTL:     time.Duration(cfg.Idempotency.TtlSeconds) * time.Second,
		Hub:                hub,
		Logger:             log,
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{Addr: *metricsAddr, Handler: mux}
	go func() {
		log.WithField("addr", *metricsAddr).Info("metrics server listening")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("metrics server failed")
		}
	}()

	runRole(ctx, config.Role(*role), cfg, q, orch, hub, log, *pollIntervalMs, *batchLimit)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Info("shutdown signal received, stopping loops")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}

func runRole(ctx context.Context, role config.Role, cfg config.Config, q queue.Queue, orch *orchestrator.Orchestrator, hub *obs.Hub, log *logrus.Entry, pollIntervalMs, batchLimit int) {
	if role == config.RolePoller || role == config.RoleAll {
		sources := poller.BuildSources(cfg, noopSecretResolver, log)
		p := poller.New(sources, q, hub, log)
		loop := &driver.PollingLoop{Poller: p, Interval: time.Duration(pollIntervalMs) * time.Millisecond, Logger: log}
		go loop.Run(ctx)
	}
	if role == config.RoleWorker || role == config.RoleAll {
		loop := &driver.ProcessingLoop{Queue: q, Orchestrator: orch, BatchLimit: batchLimit, Hub: hub, Logger: log}
		go loop.Run(ctx)
	}
}

func noopSecretResolver(ref string) (string, error) { return ref, nil }

func buildQueue(ctx context.Context, client redis.UniversalClient, stream, group string, log *logrus.Entry, hub *obs.Hub) queue.Queue {
	if client == nil {
		return queue.NewMemoryQueue()
	}
	q, err := queue.NewRedisStreamQueue(ctx, client, stream, group, "filehorizon", "localhost", log, hub)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize redis stream queue")
	}
	return q
}

func buildIdempotencyStore(client redis.UniversalClient) idempotency.Store {
	if client == nil {
		return idempotency.NewMemoryStore()
	}
	return idempotency.NewRedisStore(client)
}

func buildNotifier(client redis.UniversalClient, stream string, enabled bool, hub *obs.Hub, log *logrus.Entry) *notifier.Notifier {
	cfg := notifier.Config{Enabled: enabled, Hub: hub, Logger: log, Retry: retry.Policy{Base: 200 * time.Millisecond, Cap: 4 * time.Second, MaxAttempts: 4, JitterFraction: 0.25}}
	if client != nil {
		cfg.Transport = notifier.NewRedisStreamTransport(client, stream)
		cfg.DedupeStore = idempotency.NewMemoryStore()
		cfg.Breaker = notifier.NewBreaker(5, 30*time.Second)
	}
	return notifier.New(cfg)
}

func buildConfig(role, sourceName, sourcePath string, recursive bool, pattern string, stability time.Duration,
	deleteAfterTransfer bool, destRoot string, overwrite bool, idemTTL time.Duration) config.Config {

	var fileSources []config.FileSource
	if sourcePath != "" {
		fileSources = append(fileSources, config.FileSource{
			Name:                sourceName,
			Path:                sourcePath,
			Recursive:           recursive,
			Pattern:             pattern,
			DeleteAfterTransfer: deleteAfterTransfer,
			StabilityWindow:     stability,
		})
	}

	destinations := config.Destinations{}
	destinationNames := []string{}
	if destRoot != "" {
		destinations.Local = append(destinations.Local, config.LocalDestination{Name: "primary", Root: destRoot})
		destinationNames = append(destinationNames, "primary")
	}

	var rules []config.RoutingRule
	if len(destinationNames) > 0 {
		rules = append(rules, config.RoutingRule{
			Name:         "catch-all",
			Destinations: destinationNames,
			Overwrite:    overwrite,
		})
	}

	return config.Config{
		Pipeline:     config.Pipeline{Role: config.Role(role)},
		Polling:      config.Polling{IntervalMs: 5000, BatchReadLimit: 16},
		Features:     config.Features{EnableLocalPoller: sourcePath != ""},
		FileSources:  fileSources,
		Destinations: destinations,
		Routing:      config.Routing{Rules: rules},
		Transfer:     config.Transfer{ChunkSizeBytes: 65536},
		Idempotency:  config.Idempotency{Enabled: true, TtlSeconds: int(idemTTL.Seconds())},
		Telemetry:    config.Telemetry{ServiceName: "filehorizon"},
	}
}
