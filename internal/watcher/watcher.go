// Package watcher monitors root folders and debounces filesystem churn
// into scan triggers.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/scenevault/scenevault/internal/scanner"
)

// debounceWindow absorbs the burst of events a finishing download emits.
const debounceWindow = 5 * time.Second

// ScanTrigger enqueues a scan of one root.
type ScanTrigger interface {
	EnqueueScan(ctx context.Context, roots ...string) error
}

// RootProvider yields the current root folders.
type RootProvider interface {
	ScanRoots() []string
}

// Watcher monitors root folders for filesystem changes.
type Watcher struct {
	roots    RootProvider
	scans    ScanTrigger
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	watched  map[string]string // folder path → root folder
	debounce map[string]*time.Timer
	stop     chan struct{}
}

func New(roots RootProvider, scans ScanTrigger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		roots:    roots,
		scans:    scans,
		watcher:  fw,
		watched:  make(map[string]string),
		debounce: make(map[string]*time.Timer),
		stop:     make(chan struct{}),
	}, nil
}

// Start begins watching all configured roots and processes events.
func (w *Watcher) Start() {
	go w.eventLoop()
	w.Refresh()
	log.Info().Msg("filesystem watcher started")
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	close(w.stop)
	w.watcher.Close()
}

// Refresh reconciles the watch list against the configured roots.
func (w *Watcher) Refresh() {
	roots := w.roots.ScanRoots()

	w.mu.Lock()
	defer w.mu.Unlock()

	desired := make(map[string]bool, len(roots))
	for _, root := range roots {
		desired[root] = true
	}

	for p, root := range w.watched {
		if !desired[root] {
			w.watcher.Remove(p)
			delete(w.watched, p)
		}
	}

	for _, root := range roots {
		if _, ok := w.watched[root]; ok {
			continue
		}
		if err := w.addRecursive(root); err != nil {
			log.Warn().Err(err).Str("root", root).Msg("watcher: could not add root")
		}
	}

	log.Info().Int("paths", len(w.watched)).Int("roots", len(roots)).Msg("watcher refreshed")
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip inaccessible dirs
		}
		if info.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				return nil
			}
			w.watched[path] = root
		}
		return nil
	})
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("watcher error")
		case <-w.stop:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Skip hidden files and temp files
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, ".tmp") ||
		strings.HasSuffix(base, ".part") || strings.HasSuffix(base, ".!qb") {
		return
	}

	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return
	}

	// New directories join the watch list under their root.
	if event.Has(fsnotify.Create) {
		info, err := os.Stat(event.Name)
		if err == nil && info.IsDir() {
			if root := w.resolveRoot(event.Name); root != "" {
				w.mu.Lock()
				w.watcher.Add(event.Name)
				w.watched[event.Name] = root
				w.mu.Unlock()
				w.scheduleScan(root)
			}
			return
		}
	}

	if !scanner.IsVideoFile(event.Name) {
		return
	}

	root := w.resolveRoot(event.Name)
	if root == "" {
		return
	}
	w.scheduleScan(root)
}

// scheduleScan debounces per root: every event restarts the timer, so the
// scan fires once after the folder goes quiet.
func (w *Watcher) scheduleScan(root string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.debounce[root]; ok {
		timer.Stop()
	}
	w.debounce[root] = time.AfterFunc(debounceWindow, func() {
		w.mu.Lock()
		delete(w.debounce, root)
		w.mu.Unlock()

		log.Info().Str("root", root).Msg("watcher: triggering scan")
		if err := w.scans.EnqueueScan(context.Background(), root); err != nil {
			log.Error().Err(err).Str("root", root).Msg("watcher: could not enqueue scan")
		}
	})
}

func (w *Watcher) resolveRoot(path string) string {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Walk up the directory tree to find a watched parent.
	dir := filepath.Dir(path)
	for dir != "/" && dir != "." {
		if root, ok := w.watched[dir]; ok {
			return root
		}
		dir = filepath.Dir(dir)
	}
	return ""
}
