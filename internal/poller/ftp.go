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
	"path"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/gobwas/glob"

	"github.com/LittleAndi/FileHorizon/pkg/model"
)

// FTPCredentials authenticates an FTPLister's control connection.
type FTPCredentials struct {
	Username string
	Password string
}

// FTPDialer opens a fresh control connection for one List call. FTP servers
// don't tolerate long-lived idle connections well, so the lister dials,
// lists, and hangs up every cycle rather than keeping a pool.
type FTPDialer interface {
	Dial(ctx context.Context, src SourceConfig, creds FTPCredentials) (*ftp.ServerConn, error)
}

// DefaultFTPDialer dials with a fixed timeout and logs in with creds.
type DefaultFTPDialer struct {
	DialTimeout time.Duration
}

func (d DefaultFTPDialer) Dial(ctx context.Context, src SourceConfig, creds FTPCredentials) (*ftp.ServerConn, error) {
	timeout := d.DialTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	addr := fmt.Sprintf("%s:%d", src.Host, src.Port)
	conn, err := ftp.Dial(addr, ftp.DialWithTimeout(timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, err
	}
	if creds.Username != "" {
		if err := conn.Login(creds.Username, creds.Password); err != nil {
			_ = conn.Quit()
			return nil, err
		}
	}
	return conn, nil
}

// FTPLister enumerates a remote FTP directory tree via an FTP control
// connection, walked with the server's MLSD/LIST listing.
type FTPLister struct {
	dialer FTPDialer
	creds  FTPCredentials
}

// NewFTPLister builds a lister over dialer, authenticating with creds.
func NewFTPLister(dialer FTPDialer, creds FTPCredentials) *FTPLister {
	return &FTPLister{dialer: dialer, creds: creds}
}

func (l *FTPLister) List(ctx context.Context, src SourceConfig) ([]Entry, error) {
	conn, err := l.dialer.Dial(ctx, src, l.creds)
	if err != nil {
		return nil, model.NewTransient(model.CodeConnectFailed, "failed to connect to FTP source "+src.Name, err)
	}
	defer conn.Quit()

	var matcher glob.Glob
	if strings.TrimSpace(src.Pattern) != "" {
		matcher, err = glob.Compile(strings.ToLower(src.Pattern), '/')
		if err != nil {
			return nil, model.NewValidation(model.CodeEmptySourcePath, "invalid pattern for source "+src.Name+": "+src.Pattern)
		}
	}

	entries, err := l.walk(conn, src.Root, src.Recursive, matcher)
	if err != nil {
		return nil, model.NewTransient(model.CodeConnectFailed, "failed to list FTP source "+src.Name, err)
	}
	return entries, nil
}

func (l *FTPLister) walk(conn *ftp.ServerConn, root string, recursive bool, matcher glob.Glob) ([]Entry, error) {
	walker := conn.Walk(root)
	var entries []Entry
	for walker.Next() {
		if err := walker.Err(); err != nil {
			return nil, err
		}
		stat := walker.Stat()
		if stat.Type == ftp.EntryTypeFolder {
			if !recursive && walker.Path() != root {
				walker.SkipDir()
			}
			continue
		}
		rel := strings.TrimPrefix(walker.Path(), root)
		rel = strings.TrimPrefix(rel, "/")
		if matcher != nil && !matcher.Match(strings.ToLower(path.Clean(rel))) {
			continue
		}
		entries = append(entries, Entry{
			Path:         walker.Path(),
			Size:         int64(stat.Size),
			LastWriteUtc: stat.Time.UTC(),
		})
	}
	return entries, nil
}
