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

// Package router implements the pure, config-driven Route function (spec
// §4.5): FileEvent -> ordered DestinationPlans, first-match-wins over the
// declared rule order.
package router

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gobwas/glob"

	"github.com/LittleAndi/FileHorizon/internal/config"
	"github.com/LittleAndi/FileHorizon/pkg/model"
)

type compiledRule struct {
	name          string
	protocol      string // lower-cased, empty = wildcard
	pathGlob      glob.Glob
	pathRegex     *regexp.Regexp
	sourceName    string
	destinations  []string
	renamePattern string
	overwrite     bool
}

type destination struct {
	kind model.DestinationKind
	root string
}

// Router is built once per configuration snapshot and is itself a pure
// function of its constructor arguments: Route(e) always returns the same
// plans for the same event (spec's "Routing determinism" invariant).
type Router struct {
	rules        []compiledRule
	destinations map[string]destination
}

// New compiles the routing rules and destination table. A bad glob/regex in
// the configuration is a startup-time validation failure, not a per-event one.
func New(routing config.Routing, destinations config.Destinations) (*Router, error) {
	r := &Router{destinations: map[string]destination{}}

	for _, d := range destinations.Local {
		r.destinations[d.Name] = destination{kind: model.DestinationLocal, root: d.Root}
	}
	for _, d := range destinations.Sftp {
		r.destinations[d.Name] = destination{kind: model.DestinationSftp, root: d.Root}
	}
	for _, d := range destinations.Bus {
		r.destinations[d.Name] = destination{kind: model.DestinationMessageBus, root: d.Topic}
	}

	for _, rule := range routing.Rules {
		compiled := compiledRule{
			name:          rule.Name,
			protocol:      strings.ToLower(rule.MatchOn.Protocol),
			sourceName:    rule.MatchOn.SourceName,
			destinations:  rule.Destinations,
			renamePattern: rule.RenamePattern,
			overwrite:     rule.Overwrite,
		}
		if rule.MatchOn.PathGlob != "" {
			g, err := glob.Compile(strings.ToLower(rule.MatchOn.PathGlob), '/')
			if err != nil {
				return nil, fmt.Errorf("router: rule %q: invalid pathGlob: %w", rule.Name, err)
			}
			compiled.pathGlob = g
		}
		if rule.MatchOn.PathRegex != "" {
			re, err := regexp.Compile(rule.MatchOn.PathRegex)
			if err != nil {
				return nil, fmt.Errorf("router: rule %q: invalid pathRegex: %w", rule.Name, err)
			}
			compiled.pathRegex = re
		}
		r.rules = append(r.rules, compiled)
	}
	return r, nil
}

// Route maps an event to its ordered destination plans: the first matching
// rule wins and yields one plan per destination it names, in the rule's
// order. The orchestrator processes only the first plan of the slice.
func (r *Router) Route(event model.FileEvent) ([]model.DestinationPlan, *model.Error) {
	for _, rule := range r.rules {
		if !rule.matches(event) {
			continue
		}
		plans := make([]model.DestinationPlan, 0, len(rule.destinations))
		for _, name := range rule.destinations {
			dest, ok := r.destinations[name]
			if !ok {
				return nil, model.NewValidation(model.CodeUnknownDestination, fmt.Sprintf("routing rule %q references unknown destination %q", rule.name, name))
			}
			plans = append(plans, model.DestinationPlan{
				DestinationName: name,
				TargetPath:      renderTargetPath(dest.root, rule.renamePattern, event),
				Options: model.DestinationOptions{
					Overwrite:     rule.overwrite,
					RenamePattern: rule.renamePattern,
				},
				Kind:    dest.kind,
				IsTopic: dest.kind == model.DestinationMessageBus,
			})
		}
		return plans, nil
	}
	return nil, model.NewValidation(model.CodeNoRuleMatched, "no routing rule matched event")
}

func (rule compiledRule) matches(event model.FileEvent) bool {
	if rule.protocol != "" && rule.protocol != strings.ToLower(string(event.Protocol)) {
		return false
	}
	if rule.pathGlob != nil {
		normalized := strings.ToLower(normalizeForGlob(event.Metadata.SourcePath))
		if !rule.pathGlob.Match(normalized) {
			return false
		}
	}
	if rule.pathRegex != nil && !rule.pathRegex.MatchString(event.Metadata.SourcePath) {
		return false
	}
	// sourceName is reserved for future use (spec §4.5); never excludes a match today.
	return true
}

// normalizeForGlob strips a scheme prefix, drive letter, and leading slash
// before glob matching, per spec §4.5.
func normalizeForGlob(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	if idx := strings.Index(path, "://"); idx >= 0 {
		path = path[idx+3:]
		if slash := strings.Index(path, "/"); slash >= 0 {
			path = path[slash:]
		}
	}
	if len(path) >= 2 && path[1] == ':' {
		path = path[2:]
	}
	return strings.TrimPrefix(path, "/")
}

// renderTargetPath applies the rename pattern's {fileName}/{yyyyMMdd} tokens
// to the destination root, relative to it (spec §4.5).
func renderTargetPath(root, renamePattern string, event model.FileEvent) string {
	fileName := fileNameOf(event.Metadata.SourcePath)
	if renamePattern == "" {
		renamePattern = "{fileName}"
	}
	rendered := strings.NewReplacer(
		"{fileName}", fileName,
		"{yyyyMMdd}", event.DiscoveredAtUtc.UTC().Format("20060102"),
	).Replace(renamePattern)
	return strings.TrimRight(root, "/") + "/" + strings.TrimLeft(rendered, "/")
}

func fileNameOf(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
