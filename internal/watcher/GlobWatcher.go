// Copyright 2025 Jack Bister
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

package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fsnotify/fsnotify"
)

// IngestFunc is called once per discovered recording file.
type IngestFunc func(path string) error

// settleDelay is how long a file must go without writes before it is
// considered fully exported. ASC exports are written once and never appended
// to, but the export can take a while for long sessions.
const settleDelay = 500 * time.Millisecond

// GlobWatcher watches a glob pattern for recording files and ingests each
// file once it has settled. Files matching the glob when the watcher starts
// are ingested immediately.
type GlobWatcher struct {
	glob   string
	ingest IngestFunc
	ctx    context.Context

	Cancel func()

	pendingLock sync.Mutex
	pending     map[string]*time.Timer
	ingested    map[string]bool

	logger *zap.Logger
}

// NewGlobWatcher creates and starts a watcher for the given glob pattern.
func NewGlobWatcher(glob string, ingest IngestFunc, ctx context.Context, logger *zap.Logger) (*GlobWatcher, error) {
	absGlob, err := filepath.Abs(glob)
	if err != nil {
		return nil, fmt.Errorf("error getting absGlob for glob=%s: %w", glob, err)
	}
	dir := filepath.Dir(absGlob)
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("error creating watcher for dir=%s: %w", dir, err)
	}
	if err = fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("error adding dir=%s to watcher: %w", dir, err)
	}

	gwCtx, cancel := context.WithCancel(ctx)
	gw := &GlobWatcher{
		glob:     absGlob,
		ingest:   ingest,
		ctx:      gwCtx,
		Cancel:   cancel,
		pending:  map[string]*time.Timer{},
		ingested: map[string]bool{},
		logger:   logger,
	}

	initial, err := filepath.Glob(absGlob)
	if err != nil {
		fsWatcher.Close()
		cancel()
		return nil, fmt.Errorf("got error when globbing using glob=%s: %w", absGlob, err)
	}
	for _, path := range initial {
		gw.runIngest(path)
	}

	go func() {
		defer fsWatcher.Close()
		for {
			select {
			case <-gw.ctx.Done():
				return
			case err := <-fsWatcher.Errors:
				logger.Warn("got error from fsnotify watcher",
					zap.String("glob", absGlob),
					zap.Error(err))
			case evt := <-fsWatcher.Events:
				if evt.Op&(fsnotify.Create|fsnotify.Write) == 0 {
					continue
				}
				matched, err := filepath.Match(absGlob, evt.Name)
				if err != nil {
					logger.Warn("got error when matching glob against path",
						zap.String("glob", absGlob),
						zap.String("path", evt.Name),
						zap.Error(err))
					continue
				}
				if !matched {
					continue
				}
				gw.schedule(evt.Name)
			}
		}
	}()

	return gw, nil
}

// schedule (re)arms the settle timer for a path. Every write pushes the
// ingest further out, so the file is only picked up once the export is done.
func (gw *GlobWatcher) schedule(path string) {
	gw.pendingLock.Lock()
	defer gw.pendingLock.Unlock()
	if gw.ingested[path] {
		return
	}
	if t, ok := gw.pending[path]; ok {
		t.Reset(settleDelay)
		return
	}
	gw.pending[path] = time.AfterFunc(settleDelay, func() {
		if gw.ctx.Err() != nil {
			return
		}
		gw.runIngest(path)
	})
}

func (gw *GlobWatcher) runIngest(path string) {
	gw.pendingLock.Lock()
	delete(gw.pending, path)
	if gw.ingested[path] {
		gw.pendingLock.Unlock()
		return
	}
	gw.ingested[path] = true
	gw.pendingLock.Unlock()

	gw.logger.Info("ingesting recording",
		zap.String("fileName", path))
	if err := gw.ingest(path); err != nil {
		gw.logger.Warn("got error when ingesting recording",
			zap.String("fileName", path),
			zap.Error(err))
	}
}
