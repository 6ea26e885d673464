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

package obs

import (
	"github.com/sirupsen/logrus"

	"github.com/LittleAndi/FileHorizon/pkg/model"
)

// NewLogger builds the process-wide structured logger. Every component
// receives this (or a .WithField-derived entry) rather than calling
// logrus's package-level functions, so tests can swap in a captured output.
func NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	return logger
}

// LogError logs err at a level matching its taxonomy Kind: Validation/Auth
// failures are operator-actionable misconfiguration (warn), everything else
// that reaches here unexpectedly is an error.
func LogError(entry *logrus.Entry, err error) {
	fhErr := model.AsFileHorizonError(err)
	fields := entry.WithFields(logrus.Fields{
		"error.kind": fhErr.Kind,
		"error.code": fhErr.Code,
	})
	switch fhErr.Kind {
	case model.KindValidation, model.KindAuth:
		fields.Warn(fhErr.Message)
	default:
		fields.Error(fhErr.Message)
	}
}
