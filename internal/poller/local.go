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
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
	"github.com/sirupsen/logrus"

	"github.com/LittleAndi/FileHorizon/pkg/model"
)

// LocalLister enumerates a local directory tree. It remembers sources it
// has found disabled (missing/invalid path) so repeated cycles don't log
// the same failure; an fsnotify watch on the parent directory clears the
// flag as soon as something changes there (spec §4.4: "disabled source
// memory ... until the options observer reports a change").
type LocalLister struct {
	mu       sync.Mutex
	disabled map[string]bool
	watcher  *fsnotify.Watcher
	logger   *logrus.Entry
}

// NewLocalLister builds a lister. watcher may be nil (fsnotify unavailable
// in the environment); a source that gets disabled then stays disabled for
// the lister's lifetime, since nothing else clears the flag.
func NewLocalLister(watcher *fsnotify.Watcher, logger *logrus.Entry) *LocalLister {
	l := &LocalLister{disabled: make(map[string]bool), watcher: watcher, logger: logger}
	if watcher != nil {
		go l.watchLoop()
	}
	return l
}

func (l *LocalLister) watchLoop() {
	for event := range l.watcher.Events {
		l.mu.Lock()
		dir := filepath.Dir(event.Name)
		for source, isDisabled := range l.disabled {
			if isDisabled && (source == event.Name || source == dir || strings.HasPrefix(event.Name, source)) {
				delete(l.disabled, source)
			}
		}
		l.mu.Unlock()
	}
}

func (l *LocalLister) isDisabled(root string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.disabled[root]
}

func (l *LocalLister) markDisabled(root string) {
	l.mu.Lock()
	l.disabled[root] = true
	l.mu.Unlock()
	if l.watcher != nil {
		_ = l.watcher.Add(filepath.Dir(root))
	}
}

func (l *LocalLister) markEnabled(root string) {
	l.mu.Lock()
	delete(l.disabled, root)
	l.mu.Unlock()
}

func (l *LocalLister) List(_ context.Context, src SourceConfig) ([]Entry, error) {
	if l.isDisabled(src.Root) {
		return nil, model.NewFile(model.CodeFileNotFound, "source path disabled: "+src.Root, nil)
	}

	info, err := os.Stat(src.Root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			l.markDisabled(src.Root)
		}
		return nil, model.NewFile(model.CodeFileNotFound, "source path unavailable: "+src.Root, err)
	}
	if !info.IsDir() {
		l.markDisabled(src.Root)
		return nil, model.NewValidation(model.CodeEmptySourcePath, "source path is not a directory: "+src.Root)
	}
	l.markEnabled(src.Root)

	var matcher glob.Glob
	if strings.TrimSpace(src.Pattern) != "" {
		matcher, err = glob.Compile(strings.ToLower(src.Pattern), '/')
		if err != nil {
			return nil, model.NewValidation(model.CodeEmptySourcePath, "invalid pattern for source "+src.Name+": "+src.Pattern)
		}
	}

	var entries []Entry
	walkErr := filepath.WalkDir(src.Root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != src.Root && !src.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if matcher != nil && !matcher.Match(strings.ToLower(filepath.ToSlash(relPath(src.Root, path)))) {
			return nil
		}
		fi, statErr := d.Info()
		if statErr != nil {
			return nil
		}
		entries = append(entries, Entry{Path: path, Size: fi.Size(), LastWriteUtc: fi.ModTime().UTC()})
		return nil
	})
	if walkErr != nil {
		return nil, model.NewFile(model.CodeFileIOError, "failed to enumerate source "+src.Name, walkErr)
	}
	return entries, nil
}

func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}
