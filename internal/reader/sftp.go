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

package reader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/LittleAndi/FileHorizon/pkg/model"
)

// SFTPClient is the minimal surface SFTPReader needs. Open returns
// io.ReadCloser rather than *sftp.File so fakes can satisfy the interface
// in tests; closeBothClient adapts the real *sftp.Client below.
type SFTPClient interface {
	Open(path string) (io.ReadCloser, error)
	Stat(path string) (os.FileInfo, error)
	Remove(path string) error
	Close() error
}

// SFTPDialer connects a fresh client for a FileReference. Implementations
// own credential resolution (secret refs are resolved by the out-of-scope
// config loader before this is called).
type SFTPDialer interface {
	Dial(ctx context.Context, ref model.FileReference) (SFTPClient, error)
}

// SFTPReader opens remote read streams. The returned stream owns the
// dialed client: closing it disposes the client too, so callers never leak
// a connection even if they forget the client exists (spec §4.6).
type SFTPReader struct {
	dialer SFTPDialer
}

// NewSFTPReader builds a reader that dials through dialer.
func NewSFTPReader(dialer SFTPDialer) *SFTPReader {
	return &SFTPReader{dialer: dialer}
}

// ownedStream wraps a remote file with the client that opened it so Close
// tears down both, in declaration order (file first, then client/transport).
type ownedStream struct {
	io.Reader
	file   io.Closer
	client io.Closer
}

func (s *ownedStream) Close() error {
	fileErr := s.file.Close()
	clientErr := s.client.Close()
	if fileErr != nil {
		return fileErr
	}
	return clientErr
}

func (r *SFTPReader) OpenRead(ctx context.Context, ref model.FileReference) (io.ReadCloser, error) {
	if ref.Scheme != model.ProtocolSFTP {
		return nil, model.NewValidation(model.CodeSchemeMismatch, "sftp reader given non-sftp reference: "+string(ref.Scheme))
	}

	client, err := r.dialer.Dial(ctx, ref)
	if err != nil {
		return nil, model.NewTransient(model.CodeConnectFailed, fmt.Sprintf("sftp connect to %s:%d failed", ref.Host, ref.Port), err)
	}

	file, err := client.Open(ref.Path)
	if err != nil {
		closeErr := client.Close()
		_ = closeErr
		if errors.Is(err, os.ErrNotExist) {
			return nil, model.NewFile(model.CodeFileNotFound, "remote file not found: "+ref.Path, err)
		}
		return nil, model.NewFile(model.CodeFileIOError, "failed to open remote file: "+ref.Path, err)
	}

	return &ownedStream{Reader: file, file: file, client: client}, nil
}

func (r *SFTPReader) GetAttributes(ctx context.Context, ref model.FileReference) (Attributes, error) {
	if ref.Scheme != model.ProtocolSFTP {
		return Attributes{}, model.NewValidation(model.CodeSchemeMismatch, "sftp reader given non-sftp reference: "+string(ref.Scheme))
	}

	client, err := r.dialer.Dial(ctx, ref)
	if err != nil {
		return Attributes{}, model.NewTransient(model.CodeConnectFailed, fmt.Sprintf("sftp connect to %s:%d failed", ref.Host, ref.Port), err)
	}
	defer client.Close()

	info, err := client.Stat(ref.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Attributes{}, model.NewFile(model.CodeFileNotFound, "remote file not found: "+ref.Path, err)
		}
		return Attributes{}, model.NewFile(model.CodeFileIOError, "failed to stat remote file: "+ref.Path, err)
	}
	return Attributes{Size: info.Size(), LastWriteUtc: info.ModTime().UTC()}, nil
}

// Delete removes the remote source file, satisfying reader.Deleter. Each
// call dials its own short-lived client since deletion happens well after
// the read stream (which owns its own client) has already been closed.
func (r *SFTPReader) Delete(ctx context.Context, ref model.FileReference) error {
	if ref.Scheme != model.ProtocolSFTP {
		return model.NewValidation(model.CodeSchemeMismatch, "sftp reader given non-sftp reference: "+string(ref.Scheme))
	}
	client, err := r.dialer.Dial(ctx, ref)
	if err != nil {
		return model.NewTransient(model.CodeConnectFailed, fmt.Sprintf("sftp connect to %s:%d failed", ref.Host, ref.Port), err)
	}
	defer client.Close()

	if err := client.Remove(ref.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return model.NewFile(model.CodeFileIOError, "failed to delete remote file: "+ref.Path, err)
	}
	return nil
}

// SSHCredentials configures how DefaultSFTPDialer authenticates. Exactly
// one of Password/PrivateKeyPEM should be set; both are already-resolved
// secret values (resolution happens upstream of this package).
type SSHCredentials struct {
	Username      string
	Password      string
	PrivateKeyPEM []byte
}

// DefaultSFTPDialer dials real SSH/SFTP connections using
// golang.org/x/crypto/ssh and github.com/pkg/sftp, the same stack the
// pack's SFTP backup targets use.
type DefaultSFTPDialer struct {
	Credentials     SSHCredentials
	HostKeyCallback ssh.HostKeyCallback
	ConnectTimeout  func() ssh.ClientConfig // not read by Dial, which always builds its config from Credentials and HostKeyCallback
}

func (d *DefaultSFTPDialer) Dial(ctx context.Context, ref model.FileReference) (SFTPClient, error) {
	auths := []ssh.AuthMethod{}
	if len(d.Credentials.PrivateKeyPEM) > 0 {
		signer, err := ssh.ParsePrivateKey(d.Credentials.PrivateKeyPEM)
		if err != nil {
			return nil, model.NewAuth(model.CodeAuthFailed, "failed to parse sftp private key", err)
		}
		auths = append(auths, ssh.PublicKeys(signer))
	}
	if d.Credentials.Password != "" {
		auths = append(auths, ssh.Password(d.Credentials.Password))
	}

	hostKeyCallback := d.HostKeyCallback
	if hostKeyCallback == nil {
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	}

	cfg := &ssh.ClientConfig{
		User:            d.Credentials.Username,
		Auth:            auths,
		HostKeyCallback: hostKeyCallback,
	}

	addr := fmt.Sprintf("%s:%d", ref.Host, ref.Port)
	sshClient, err := ssh.Dial("tcp", addr, cfg)
	if err != nil {
		return nil, err
	}

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, err
	}
	return &closeBothClient{sftpClient: sftpClient, sshClient: sshClient}, nil
}

// closeBothClient adapts *sftp.Client + *ssh.Client into a single SFTPClient
// whose Close tears down the SFTP session before the underlying transport.
type closeBothClient struct {
	sftpClient *sftp.Client
	sshClient  *ssh.Client
}

func (c *closeBothClient) Open(path string) (io.ReadCloser, error) { return c.sftpClient.Open(path) }
func (c *closeBothClient) Stat(path string) (os.FileInfo, error)   { return c.sftpClient.Stat(path) }
func (c *closeBothClient) Remove(path string) error                { return c.sftpClient.Remove(path) }
func (c *closeBothClient) Close() error {
	sftpErr := c.sftpClient.Close()
	sshErr := c.sshClient.Close()
	if sftpErr != nil {
		return sftpErr
	}
	return sshErr
}
