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

// Package config defines the FileHorizon configuration surface (spec §6).
// Loading these structs from disk/env and resolving secret references is an
// external collaborator's job (spec §1 scope); this package only owns the
// shapes and the structural validation that must hold before the pipeline
// is allowed to start.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Role selects which background driver(s) a process runs (spec §4.10).
type Role string

const (
	RolePoller Role = "Poller"
	RoleWorker Role = "Worker"
	RoleAll    Role = "All"
)

type Pipeline struct {
	Role Role `validate:"required,oneof=Poller Worker All"`
}

type Polling struct {
	IntervalMs     int `validate:"required,min=100"`
	BatchReadLimit int `validate:"required,min=1"`
}

type Features struct {
	EnableLocalPoller   bool
	EnableFtpPoller     bool
	EnableSftpPoller    bool
	EnableFileTransfer  bool
}

type FileSource struct {
	Name                string `validate:"required"`
	Path                string `validate:"required"`
	Recursive           bool
	Pattern             string
	DeleteAfterTransfer bool
	StabilityWindow     time.Duration `validate:"min=0"`
}

type RemoteCredentials struct {
	Username     string `validate:"required"`
	PasswordRef  string
	PrivateKeyRef string
}

type RemoteFileSource struct {
	Name                string `validate:"required"`
	Host                string `validate:"required"`
	Port                int    `validate:"required,min=1,max=65535"`
	Path                string `validate:"required"`
	Recursive           bool
	Pattern             string
	DeleteAfterTransfer bool
	StabilityWindow     time.Duration `validate:"min=0"`
	Credentials         RemoteCredentials `validate:"required"`
}

type RemoteFileSources struct {
	Ftp  []RemoteFileSource `validate:"dive"`
	Sftp []RemoteFileSource `validate:"dive"`
}

type LocalDestination struct {
	Name string `validate:"required"`
	Root string `validate:"required"`
}

type SftpDestination struct {
	RemoteFileSource
	Root string `validate:"required"`
}

type BusDestination struct {
	Name        string `validate:"required"`
	ConnectionRef string `validate:"required"`
	Topic       string `validate:"required"`
}

type Destinations struct {
	Local []LocalDestination `validate:"dive"`
	Sftp  []SftpDestination  `validate:"dive"`
	Bus   []BusDestination   `validate:"dive"`
}

type MatchOn struct {
	Protocol   string
	PathGlob   string
	PathRegex  string
	SourceName string
}

type RoutingRule struct {
	Name          string  `validate:"required"`
	MatchOn       MatchOn
	Destinations  []string `validate:"required,min=1"`
	RenamePattern string
	Overwrite     bool
}

type Routing struct {
	Rules []RoutingRule `validate:"dive"`
}

type RetryPolicy struct {
	BaseDelay  time.Duration `validate:"min=0"`
	MaxDelay   time.Duration `validate:"min=0"`
	MaxRetries int           `validate:"min=0"`
}

type ChecksumPolicy struct {
	Enabled   bool
	Algorithm string
}

type Transfer struct {
	ChunkSizeBytes int            `validate:"required,min=1"`
	Retry          RetryPolicy
	Checksum       ChecksumPolicy
}

// TtlSeconds is only required to be positive when Enabled; a zero-valued
// Idempotency struct means the feature is off and carries no constraint.
type Idempotency struct {
	Enabled    bool
	TtlSeconds int
}

// FailureThreshold is only required to be positive when Enabled; a
// zero-valued CircuitBreaker means the breaker is off.
type CircuitBreaker struct {
	Enabled          bool
	FailureThreshold int
	ResetInterval    time.Duration `validate:"min=0"`
}

// DedupeTtlSeconds is only required to be positive when Enabled; a
// zero-valued ServiceBusNotification means notifications are off.
type ServiceBusNotification struct {
	Enabled         bool
	ConnectionRef   string
	Topic           string
	DedupeTtlSeconds int
	PublishTimeout  time.Duration `validate:"min=0"`
	Retry           RetryPolicy
	CircuitBreaker  CircuitBreaker
}

type Telemetry struct {
	ServiceName    string `validate:"required"`
	MetricsAddr    string
	TracingEnabled bool
}

// Config is the full configuration surface named in spec §6.
type Config struct {
	Pipeline               Pipeline
	Polling                Polling
	Features               Features
	FileSources            []FileSource `validate:"dive"`
	RemoteFileSources      RemoteFileSources
	Destinations           Destinations
	Routing                Routing
	Transfer               Transfer
	Idempotency            Idempotency
	ServiceBusNotification ServiceBusNotification
	Telemetry              Telemetry
}

var validate = validator.New()

// Validate runs structural validation (required fields, ranges) plus the
// cross-section checks that a single struct tag can't express: duplicate
// names and routing rules referencing unknown destinations.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	seen := map[string]bool{}
	names := func(kind, name string) error {
		key := kind + ":" + name
		if seen[key] {
			return fmt.Errorf("config: duplicate %s name %q", kind, name)
		}
		seen[key] = true
		return nil
	}
	for _, d := range c.Destinations.Local {
		if err := names("local destination", d.Name); err != nil {
			return err
		}
	}
	for _, d := range c.Destinations.Sftp {
		if err := names("sftp destination", d.Name); err != nil {
			return err
		}
	}
	for _, d := range c.Destinations.Bus {
		if err := names("bus destination", d.Name); err != nil {
			return err
		}
	}

	known := destinationNames(c.Destinations)
	for _, r := range c.Routing.Rules {
		for _, d := range r.Destinations {
			if !known[d] {
				return fmt.Errorf("config: routing rule %q references unknown destination %q", r.Name, d)
			}
		}
	}

	if c.Transfer.Retry.MaxDelay > 0 && c.Transfer.Retry.BaseDelay > c.Transfer.Retry.MaxDelay {
		return fmt.Errorf("config: transfer.retry.baseDelay must not exceed maxDelay")
	}

	if c.Idempotency.Enabled && c.Idempotency.TtlSeconds < 1 {
		return fmt.Errorf("config: idempotency.ttlSeconds must be 1 or greater when idempotency is enabled")
	}

	if c.ServiceBusNotification.Enabled {
		if c.ServiceBusNotification.DedupeTtlSeconds < 1 {
			return fmt.Errorf("config: serviceBusNotification.dedupeTtlSeconds must be 1 or greater when notifications are enabled")
		}
		if c.ServiceBusNotification.CircuitBreaker.Enabled && c.ServiceBusNotification.CircuitBreaker.FailureThreshold < 1 {
			return fmt.Errorf("config: serviceBusNotification.circuitBreaker.failureThreshold must be 1 or greater when the breaker is enabled")
		}
	}

	return nil
}

func destinationNames(d Destinations) map[string]bool {
	names := make(map[string]bool, len(d.Local)+len(d.Sftp)+len(d.Bus))
	for _, l := range d.Local {
		names[l.Name] = true
	}
	for _, s := range d.Sftp {
		names[s.Name] = true
	}
	for _, b := range d.Bus {
		names[b.Name] = true
	}
	return names
}

// NormalizeName lower-cases and trims a destination/source name for
// case-insensitive lookup, matching the router's protocol-matching rules.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
