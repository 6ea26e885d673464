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

package poller

import (
	"github.com/sirupsen/logrus"

	"github.com/LittleAndi/FileHorizon/internal/config"
	"github.com/LittleAndi/FileHorizon/internal/reader"
	"github.com/LittleAndi/FileHorizon/pkg/model"
)

// SecretResolver turns a secret reference (config.RemoteCredentials'
// PasswordRef/PrivateKeyRef) into its resolved value. Resolution mechanics
// (vault, env, file) are an external collaborator's job; this package only
// needs the result.
type SecretResolver func(ref string) (string, error)

// BuildSources translates a loaded config.Config into the decoupled
// []Source literal the Poller operates on, gated by cfg.Features. Remote
// sources are skipped (with a log warning) if their credentials fail to
// resolve, rather than failing the whole process (spec §6: a single bad
// source shouldn't take the pipeline down).
func BuildSources(cfg config.Config, resolver SecretResolver, logger *logrus.Entry) []Source {
	var sources []Source

	if cfg.Features.EnableLocalPoller {
		lister := NewLocalLister(nil, logger)
		for _, fs := range cfg.FileSources {
			sources = append(sources, Source{
				Config: SourceConfig{
					Name:                fs.Name,
					Root:                fs.Path,
					Recursive:           fs.Recursive,
					Pattern:             fs.Pattern,
					DeleteAfterTransfer: fs.DeleteAfterTransfer,
					StabilityWindow:     fs.StabilityWindow,
					Protocol:            model.ProtocolLocal,
				},
				Lister: lister,
			})
		}
	}

	if cfg.Features.EnableFtpPoller {
		for _, rfs := range cfg.RemoteFileSources.Ftp {
			creds, err := resolveFTPCredentials(rfs, resolver)
			if err != nil {
				logger.WithField("source", rfs.Name).WithError(err).Warn("skipping ftp source, credential resolution failed")
				continue
			}
			sources = append(sources, Source{
				Config: remoteSourceConfig(rfs, model.ProtocolFTP),
				Lister: NewFTPLister(DefaultFTPDialer{}, creds),
			})
		}
	}

	if cfg.Features.EnableSftpPoller {
		for _, rfs := range cfg.RemoteFileSources.Sftp {
			creds, err := resolveSSHCredentials(rfs, resolver)
			if err != nil {
				logger.WithField("source", rfs.Name).WithError(err).Warn("skipping sftp source, credential resolution failed")
				continue
			}
			sources = append(sources, Source{
				Config: remoteSourceConfig(rfs, model.ProtocolSFTP),
				Lister: NewSFTPLister(DefaultSFTPListDialer{}, creds),
			})
		}
	}

	return sources
}

func remoteSourceConfig(rfs config.RemoteFileSource, protocol model.Protocol) SourceConfig {
	return SourceConfig{
		Name:                rfs.Name,
		Root:                rfs.Path,
		Recursive:           rfs.Recursive,
		Pattern:             rfs.Pattern,
		DeleteAfterTransfer: rfs.DeleteAfterTransfer,
		StabilityWindow:     rfs.StabilityWindow,
		Protocol:            protocol,
		Host:                rfs.Host,
		Port:                rfs.Port,
	}
}

func resolveFTPCredentials(rfs config.RemoteFileSource, resolver SecretResolver) (FTPCredentials, error) {
	if rfs.Credentials.PasswordRef == "" {
		return FTPCredentials{Username: rfs.Credentials.Username}, nil
	}
	password, err := resolver(rfs.Credentials.PasswordRef)
	if err != nil {
		return FTPCredentials{}, err
	}
	return FTPCredentials{Username: rfs.Credentials.Username, Password: password}, nil
}

func resolveSSHCredentials(rfs config.RemoteFileSource, resolver SecretResolver) (reader.SSHCredentials, error) {
	creds := reader.SSHCredentials{Username: rfs.Credentials.Username}
	if rfs.Credentials.PasswordRef != "" {
		password, err := resolver(rfs.Credentials.PasswordRef)
		if err != nil {
			return reader.SSHCredentials{}, err
		}
		creds.Password = password
	}
	if rfs.Credentials.PrivateKeyRef != "" {
		key, err := resolver(rfs.Credentials.PrivateKeyRef)
		if err != nil {
			return reader.SSHCredentials{}, err
		}
		creds.PrivateKeyPEM = []byte(key)
	}
	return creds, nil
}
