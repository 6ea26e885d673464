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
	"context"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"github.com/kr/fs"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/LittleAndi/FileHorizon/internal/reader"
	"github.com/LittleAndi/FileHorizon/pkg/model"
)

// SFTPListClient is the minimal surface an SFTPLister needs: a directory
// walk plus its own teardown. It's distinct from reader.SFTPClient (which
// only needs Open/Stat/Remove) because listing needs to walk a tree.
type SFTPListClient interface {
	Walk(root string) *fs.Walker
	Close() error
}

// SFTPListDialer connects a client scoped to one List call.
type SFTPListDialer interface {
	Dial(ctx context.Context, src SourceConfig, creds reader.SSHCredentials) (SFTPListClient, error)
}

// DefaultSFTPListDialer dials real SSH/SFTP connections, mirroring
// reader.DefaultSFTPDialer's auth handling.
type DefaultSFTPListDialer struct {
	HostKeyCallback ssh.HostKeyCallback
}

func (d DefaultSFTPListDialer) Dial(ctx context.Context, src SourceConfig, creds reader.SSHCredentials) (SFTPListClient, error) {
	auths := []ssh.AuthMethod{}
	if len(creds.PrivateKeyPEM) > 0 {
		signer, err := ssh.ParsePrivateKey(creds.PrivateKeyPEM)
		if err != nil {
			return nil, model.NewAuth(model.CodeAuthFailed, "failed to parse sftp private key", err)
		}
		auths = append(auths, ssh.PublicKeys(signer))
	}
	if creds.Password != "" {
		auths = append(auths, ssh.Password(creds.Password))
	}

	hostKeyCallback := d.HostKeyCallback
	if hostKeyCallback == nil {
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	}

	addr := fmt.Sprintf("%s:%d", src.Host, src.Port)
	sshClient, err := ssh.Dial("tcp", addr, &ssh.ClientConfig{
		User:            creds.Username,
		Auth:            auths,
		HostKeyCallback: hostKeyCallback,
	})
	if err != nil {
		return nil, err
	}

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, err
	}
	return &sftpListClient{sftpClient: sftpClient, sshClient: sshClient}, nil
}

type sftpListClient struct {
	sftpClient *sftp.Client
	sshClient  *ssh.Client
}

func (c *sftpListClient) Walk(root string) *fs.Walker { return c.sftpClient.Walk(root) }

func (c *sftpListClient) Close() error {
	sftpErr := c.sftpClient.Close()
	sshErr := c.sshClient.Close()
	if sftpErr != nil {
		return sftpErr
	}
	return sshErr
}

// SFTPLister enumerates a remote directory tree over SFTP, dialing fresh
// per cycle just like FTPLister.
type SFTPLister struct {
	dialer SFTPListDialer
	creds  reader.SSHCredentials
}

// NewSFTPLister builds a lister over dialer, authenticating with creds.
func NewSFTPLister(dialer SFTPListDialer, creds reader.SSHCredentials) *SFTPLister {
	return &SFTPLister{dialer: dialer, creds: creds}
}

func (l *SFTPLister) List(ctx context.Context, src SourceConfig) ([]Entry, error) {
	client, err := l.dialer.Dial(ctx, src, l.creds)
	if err != nil {
		return nil, model.NewTransient(model.CodeConnectFailed, "failed to connect to sftp source "+src.Name, err)
	}
	defer client.Close()

	var matcher glob.Glob
	if strings.TrimSpace(src.Pattern) != "" {
		matcher, err = glob.Compile(strings.ToLower(src.Pattern), '/')
		if err != nil {
			return nil, model.NewValidation(model.CodeEmptySourcePath, "invalid pattern for source "+src.Name+": "+src.Pattern)
		}
	}

	var entries []Entry
	walker := client.Walk(src.Root)
	for walker.Step() {
		if err := walker.Err(); err != nil {
			return nil, model.NewTransient(model.CodeConnectFailed, "failed to list sftp source "+src.Name, err)
		}
		info := walker.Stat()
		if info.IsDir() {
			if walker.Path() != src.Root && !src.Recursive {
				walker.SkipDir()
			}
			continue
		}
		rel := strings.TrimPrefix(walker.Path(), src.Root)
		rel = strings.TrimPrefix(rel, "/")
		if matcher != nil && !matcher.Match(strings.ToLower(rel)) {
			continue
		}
		entries = append(entries, Entry{
			Path:         walker.Path(),
			Size:         info.Size(),
			LastWriteUtc: info.ModTime().UTC(),
		})
	}
	return entries, nil
}
