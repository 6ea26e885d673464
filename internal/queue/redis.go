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

package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/LittleAndi/FileHorizon/internal/obs"
	"github.com/LittleAndi/FileHorizon/pkg/model"
)

// Wire field names, per spec §6's stream queue wire contract table.
const (
	fieldID              = "id"
	fieldSourcePath       = "sourcePath"
	fieldSizeBytes        = "sizeBytes"
	fieldLastModifiedUtc  = "lastModifiedUtc"
	fieldHashAlgorithm    = "hashAlgorithm"
	fieldChecksum         = "checksum"
	fieldDiscoveredAtUtc  = "discoveredAtUtc"
	fieldProtocol         = "protocol"
	fieldDestinationPath  = "destinationPath"
	fieldDeleteAfter      = "deleteAfterTransfer"
)

// RedisStreamQueue backs the queue with a single named stream and a single
// consumer group shared by every replica; each replica registers a unique
// consumer name (spec §4.1, §6).
type RedisStreamQueue struct {
	client   redis.UniversalClient
	stream   string
	group    string
	consumer string

	readBlockTimeout time.Duration
	reconnectDelay   time.Duration

	logger *logrus.Entry
	hub    *obs.Hub
}

// NewRedisStreamQueue creates (idempotently) the stream and consumer group
// and returns a ready-to-use queue. consumerPrefix + host should uniquely
// identify the replica; a UUID suffix is appended so two processes on the
// same host never collide (spec §4.1: "prefix + host + UUID").
func NewRedisStreamQueue(ctx context.Context, client redis.UniversalClient, stream, group, consumerPrefix, host string, logger *logrus.Entry, hub *obs.Hub) (*RedisStreamQueue, error) {
	consumer := fmt.Sprintf("%s-%s-%s", consumerPrefix, host, uuid.NewString())
	q := &RedisStreamQueue{
		client:           client,
		stream:           stream,
		group:            group,
		consumer:         consumer,
		readBlockTimeout: 5 * time.Second,
		reconnectDelay:   2 * time.Second,
		logger:           logger,
		hub:              hub,
	}
	if err := q.ensureGroup(ctx); err != nil {
		return nil, err
	}
	return q, nil
}

// ensureGroup creates the stream+group if missing. "group already exists"
// (BUSYGROUP) is swallowed, matching spec §4.1's idempotent startup.
func (q *RedisStreamQueue) ensureGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return model.NewQueue(model.CodeGroupMissing, "failed to create consumer group", err)
	}
	return nil
}

func (q *RedisStreamQueue) Enqueue(ctx context.Context, event model.FileEvent) (string, error) {
	if err := event.Validate(); err != nil {
		return "", err
	}

	values := map[string]interface{}{
		fieldID:             event.ID,
		fieldSourcePath:      event.Metadata.SourcePath,
		fieldSizeBytes:       strconv.FormatInt(event.Metadata.SizeBytes, 10),
		fieldLastModifiedUtc: event.Metadata.LastModifiedUtc.UnixMilli(),
		fieldHashAlgorithm:   event.Metadata.HashAlgorithm,
		fieldChecksum:        event.Metadata.Checksum,
		fieldDiscoveredAtUtc: event.DiscoveredAtUtc.UnixMilli(),
		fieldProtocol:        strings.ToLower(string(event.Protocol)),
		fieldDestinationPath: event.DestinationPath,
		fieldDeleteAfter:     strconv.FormatBool(event.DeleteAfterTransfer),
	}

	id, err := q.client.XAdd(ctx, &redis.XAddArgs{Stream: q.stream, Values: values}).Result()
	if err != nil {
		if q.hub != nil {
			q.hub.IncQueueFailure("enqueue")
		}
		return "", model.NewQueue(model.CodeEnqueueRejected, "XADD failed", err)
	}
	if q.hub != nil {
		q.hub.IncQueueEnqueued()
	}
	return id, nil
}

func (q *RedisStreamQueue) Drain(ctx context.Context, maxBatch int) ([]model.DeliveryEntry, error) {
	if maxBatch <= 0 {
		return nil, nil
	}
	res, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: q.consumer,
		Streams:  []string{q.stream, ">"},
		Count:    int64(maxBatch),
		Block:    -1, // negative omits BLOCK; zero would wait indefinitely
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if q.hub != nil {
			q.hub.IncQueueFailure("dequeue")
		}
		return nil, model.NewQueue(model.CodeDequeueFailed, "XREADGROUP failed", err)
	}
	return q.decodeStreams(ctx, res), nil
}

// Iterate performs a blocking XREADGROUP loop, cooperative with ctx
// cancellation. Transient read errors trigger a bounded delay and retry;
// a missing group triggers a one-shot re-create, per spec §4.1.
func (q *RedisStreamQueue) Iterate(ctx context.Context) (<-chan model.DeliveryEntry, error) {
	out := make(chan model.DeliveryEntry)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			res, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
				Group:    q.group,
				Consumer: q.consumer,
				Streams:  []string{q.stream, ">"},
				Count:    64,
				Block:    q.readBlockTimeout,
			}).Result()

			if err != nil {
				if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
					continue
				}
				if strings.Contains(err.Error(), "NOGROUP") {
					if q.logger != nil {
						q.logger.WithError(err).Warn("consumer group missing, recreating")
					}
					_ = q.ensureGroup(ctx)
					continue
				}
				if q.hub != nil {
					q.hub.IncQueueFailure("dequeue")
				}
				if q.logger != nil {
					q.logger.WithError(err).Warn("transient stream read error, retrying")
				}
				select {
				case <-time.After(q.reconnectDelay):
				case <-ctx.Done():
					return
				}
				continue
			}

			for _, d := range q.decodeStreams(ctx, res) {
				select {
				case out <- d:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (q *RedisStreamQueue) Acknowledge(ctx context.Context, entryID string) error {
	if err := q.client.XAck(ctx, q.stream, q.group, entryID).Err(); err != nil {
		return model.NewQueue(model.CodeDequeueFailed, "XACK failed", err)
	}
	return nil
}

func (q *RedisStreamQueue) decodeStreams(ctx context.Context, streams []redis.XStream) []model.DeliveryEntry {
	var out []model.DeliveryEntry
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			event, err := decodeEvent(msg.Values)
			if err != nil {
				// Malformed entry: log and acknowledge to avoid a poison loop (spec §4.1).
				if q.logger != nil {
					q.logger.WithField("entry.id", msg.ID).WithError(err).Warn("malformed stream entry, acknowledging and dropping")
				}
				_ = q.Acknowledge(ctx, msg.ID)
				continue
			}
			if q.hub != nil {
				q.hub.IncQueueDequeued()
			}
			out = append(out, model.DeliveryEntry{EntryID: msg.ID, Event: event})
		}
	}
	return out
}

func decodeEvent(values map[string]interface{}) (model.FileEvent, error) {
	str := func(key string) string {
		v, _ := values[key].(string)
		return v
	}
	size, err := strconv.ParseInt(str(fieldSizeBytes), 10, 64)
	if err != nil {
		return model.FileEvent{}, fmt.Errorf("sizeBytes: %w", err)
	}
	lastModMs, err := strconv.ParseInt(str(fieldLastModifiedUtc), 10, 64)
	if err != nil {
		return model.FileEvent{}, fmt.Errorf("lastModifiedUtc: %w", err)
	}
	discoveredMs, err := strconv.ParseInt(str(fieldDiscoveredAtUtc), 10, 64)
	if err != nil {
		return model.FileEvent{}, fmt.Errorf("discoveredAtUtc: %w", err)
	}
	deleteAfter, _ := strconv.ParseBool(str(fieldDeleteAfter))

	event := model.FileEvent{
		ID: str(fieldID),
		Metadata: model.FileMetadata{
			SourcePath:      str(fieldSourcePath),
			SizeBytes:       size,
			LastModifiedUtc: time.UnixMilli(lastModMs).UTC(),
			HashAlgorithm:   str(fieldHashAlgorithm),
			Checksum:        str(fieldChecksum),
		},
		DiscoveredAtUtc:     time.UnixMilli(discoveredMs).UTC(),
		Protocol:            model.Protocol(str(fieldProtocol)),
		DestinationPath:     str(fieldDestinationPath),
		DeleteAfterTransfer: deleteAfter,
	}
	if fhErr := event.Validate(); fhErr != nil {
		return model.FileEvent{}, fhErr
	}
	return event, nil
}
