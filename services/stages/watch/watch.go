// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watch reports debounced changes to a fixed set of input files.
//
// fsnotify watches directories, not files, and many editors save by
// writing a temporary file and renaming it over the original. Watcher
// therefore watches the parent directory of every file and filters events
// by path, so a replaced file keeps being tracked.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrNoFiles is returned by New when no files are given.
var ErrNoFiles = errors.New("watch: no files to watch")

// Op is the kind of change observed for a file.
type Op int

const (
	// OpCreate means the file appeared, typically by rename-over.
	OpCreate Op = iota

	// OpWrite means the file content changed.
	OpWrite

	// OpRemove means the file was deleted.
	OpRemove

	// OpRename means the file was moved away.
	OpRename
)

// String returns the lower-case operation name.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Change is one file system change to a watched file.
type Change struct {
	Path string
	Op   Op
	Time time.Time
}

// Handler receives a batch of changes, at most one per path, in first-seen
// order. It is always called from a single goroutine.
type Handler func(ctx context.Context, changes []Change)

// Options configures a Watcher.
type Options struct {
	// Debounce is how long the watcher waits for further changes before
	// calling the handler.
	Debounce time.Duration

	// BufferSize is the capacity of the internal change queue. Changes
	// arriving while it is full are dropped.
	BufferSize int

	// Logger receives watcher errors. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		Debounce:   200 * time.Millisecond,
		BufferSize: 256,
	}
}

// Watcher watches a set of files.
//
// # Thread Safety
//
// Start and Stop are safe for concurrent use. The handler is called from
// a single goroutine.
type Watcher struct {
	files   map[string]bool
	dirs    []string
	handler Handler
	opts    Options
	logger  *slog.Logger

	watcher *fsnotify.Watcher
	changes chan Change
	done    chan struct{}
	wg      sync.WaitGroup

	mu       sync.Mutex
	started  bool
	stopOnce sync.Once
}

// New creates a watcher for files. Nothing is watched until Start.
//
// Inputs:
//
//	files - Paths to watch. Relative paths are made absolute.
//	handler - Called with every debounced batch. Must not be nil.
//	opts - Watcher options. Zero fields fall back to DefaultOptions().
func New(files []string, handler Handler, opts Options) (*Watcher, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if handler == nil {
		return nil, errors.New("watch: nil handler")
	}
	def := DefaultOptions()
	if opts.Debounce <= 0 {
		opts.Debounce = def.Debounce
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = def.BufferSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	w := &Watcher{
		files:   make(map[string]bool, len(files)),
		handler: handler,
		opts:    opts,
		logger:  logger,
		changes: make(chan Change, opts.BufferSize),
		done:    make(chan struct{}),
	}
	seenDir := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", f, err)
		}
		w.files[abs] = true
		dir := filepath.Dir(abs)
		if !seenDir[dir] {
			seenDir[dir] = true
			w.dirs = append(w.dirs, dir)
		}
	}
	return w, nil
}

// Start begins watching.
//
// Description:
//
//	Registers the parent directory of every file with fsnotify and starts
//	the event and debounce goroutines. Both exit when ctx is cancelled or
//	Stop is called; a pending batch is dropped at that point. Calling
//	Start on a started watcher is a no-op.
//
// Outputs:
//
//	error - Non-nil if fsnotify could not be created or a directory could
//	not be watched.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	for _, dir := range w.dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	w.watcher = fw
	w.started = true

	w.wg.Add(2)
	go w.processEvents(ctx)
	go w.debounceLoop(ctx)
	return nil
}

// Stop stops watching and waits for the watcher goroutines to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		fw := w.watcher
		w.mu.Unlock()
		if fw != nil {
			w.wg.Wait()
			fw.Close()
		}
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.files[filepath.Clean(event.Name)] {
				continue
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			select {
			case w.changes <- Change{Path: event.Name, Op: convertOp(event.Op), Time: time.Now()}:
			default:
				w.logger.Warn("watch buffer full, dropping change", slog.String("path", event.Name))
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", slog.String("error", err.Error()))
		}
	}
}

func convertOp(op fsnotify.Op) Op {
	switch {
	case op.Has(fsnotify.Create):
		return OpCreate
	case op.Has(fsnotify.Remove):
		return OpRemove
	case op.Has(fsnotify.Rename):
		return OpRename
	default:
		return OpWrite
	}
}

func (w *Watcher) debounceLoop(ctx context.Context) {
	defer w.wg.Done()

	var batch []Change
	timer := time.NewTimer(w.opts.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case c := <-w.changes:
			batch = append(batch, c)
			timer.Reset(w.opts.Debounce)
		case <-timer.C:
			if len(batch) == 0 {
				continue
			}
			w.handler(ctx, dedupe(batch))
			batch = nil
		}
	}
}

// dedupe keeps the latest change per path at the position the path was
// first seen.
func dedupe(changes []Change) []Change {
	seen := make(map[string]int, len(changes))
	out := make([]Change, 0, len(changes))
	for _, c := range changes {
		if i, ok := seen[c.Path]; ok {
			out[i] = c
			continue
		}
		seen[c.Path] = len(out)
		out = append(out, c)
	}
	return out
}
