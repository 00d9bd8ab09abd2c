// Package watch reruns a conversion when input files change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDelay is how long changes are collected before onChange runs
const DefaultDelay = 200 * time.Millisecond

// FileWatcher monitors directories and archives and reports changed files
// in batches.
type FileWatcher struct {
	watcher    *fsnotify.Watcher
	debouncer  *Debouncer
	roots      []string
	files      map[string]bool // archives watched through their directory
	extensions []string
	logger     *zap.Logger
	onChange   func([]string)
	stopChan   chan struct{}
	wg         sync.WaitGroup
}

// Options configures a FileWatcher
type Options struct {
	// Paths are directories, watched recursively, or single files
	Paths []string
	// Extensions limits reported files, for example ".class" and ".jar".
	// Empty means every file.
	Extensions []string
	Delay      time.Duration
	Logger     *zap.Logger
}

// NewFileWatcher creates a watcher calling onChange with the sorted names
// of the files changed since the last call.
func NewFileWatcher(opts Options, onChange func([]string)) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	delay := opts.Delay
	if delay == 0 {
		delay = DefaultDelay
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	fw := &FileWatcher{
		watcher:    watcher,
		debouncer:  NewDebouncer(delay),
		roots:      opts.Paths,
		files:      make(map[string]bool),
		extensions: opts.Extensions,
		logger:     logger,
		onChange:   onChange,
		stopChan:   make(chan struct{}),
	}
	fw.debouncer.SetCallback(fw.onChange)
	return fw, nil
}

// Start begins watching
func (fw *FileWatcher) Start() error {
	for _, root := range fw.roots {
		info, err := os.Stat(root)
		if err != nil {
			return fmt.Errorf("failed to watch %s: %w", root, err)
		}
		if !info.IsDir() {
			abs, err := filepath.Abs(root)
			if err != nil {
				return err
			}
			fw.files[abs] = true
			if err := fw.add(filepath.Dir(abs)); err != nil {
				return err
			}
			continue
		}
		if err := fw.addTree(root); err != nil {
			return err
		}
	}

	fw.wg.Add(1)
	go fw.watch()
	return nil
}

// Run starts the watcher and blocks until ctx is done
func (fw *FileWatcher) Run(ctx context.Context) error {
	if err := fw.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	return fw.Stop()
}

// Stop stops the file watcher
func (fw *FileWatcher) Stop() error {
	select {
	case <-fw.stopChan:
		return nil
	default:
		close(fw.stopChan)
	}

	fw.wg.Wait()
	fw.debouncer.Stop()
	return fw.watcher.Close()
}

func (fw *FileWatcher) add(dir string) error {
	if err := fw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	fw.logger.Debug("watching directory", zap.String("dir", dir))
	return nil
}

func (fw *FileWatcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return fw.add(path)
	})
}

func (fw *FileWatcher) watch() {
	defer fw.wg.Done()

	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handle(event)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("watch error", zap.Error(err))

		case <-fw.stopChan:
			return
		}
	}
}

func (fw *FileWatcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := fw.addTree(event.Name); err != nil {
				fw.logger.Warn("failed to watch new directory", zap.String("dir", event.Name), zap.Error(err))
			}
			return
		}
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	if !fw.matches(event.Name) {
		return
	}
	fw.logger.Debug("file changed", zap.String("file", event.Name), zap.Stringer("op", event.Op))
	fw.debouncer.Add(event.Name)
}

// matches reports whether a changed path is one the caller cares about
func (fw *FileWatcher) matches(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if len(fw.files) > 0 {
		if abs, err := filepath.Abs(path); err == nil && fw.files[abs] {
			return true
		}
		if !fw.inTree(path) {
			return false
		}
	}
	if len(fw.extensions) == 0 {
		return true
	}
	ext := filepath.Ext(base)
	for _, e := range fw.extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// inTree reports whether path lies under one of the watched directories
func (fw *FileWatcher) inTree(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, root := range fw.roots {
		r, err := filepath.Abs(root)
		if err != nil || fw.files[r] {
			continue
		}
		if rel, err := filepath.Rel(r, abs); err == nil && !strings.HasPrefix(rel, "..") {
			return true
		}
	}
	return false
}

// Debouncer collects file changes and triggers callbacks after a delay
type Debouncer struct {
	duration time.Duration
	timer    *time.Timer
	files    map[string]struct{}
	mutex    sync.Mutex
	callback func([]string)
	stopped  bool
	running  sync.Mutex // one callback at a time
}

// NewDebouncer creates a new debouncer instance
func NewDebouncer(duration time.Duration) *Debouncer {
	return &Debouncer{
		duration: duration,
		files:    make(map[string]struct{}),
	}
}

// Add records a file and restarts the delay
func (d *Debouncer) Add(file string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.stopped {
		return
	}

	d.files[file] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, d.flush)
}

// flush calls the callback with the accumulated files. Changes arriving
// while the callback runs are collected for the next call.
func (d *Debouncer) flush() {
	d.mutex.Lock()
	if len(d.files) == 0 || d.callback == nil || d.stopped {
		d.mutex.Unlock()
		return
	}
	files := make([]string, 0, len(d.files))
	for file := range d.files {
		files = append(files, file)
	}
	d.files = make(map[string]struct{})
	callback := d.callback
	d.mutex.Unlock()

	sort.Strings(files)
	d.running.Lock()
	defer d.running.Unlock()
	callback(files)
}

// SetCallback sets the callback function
func (d *Debouncer) SetCallback(callback func([]string)) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.callback = callback
}

// Stop drops pending changes
func (d *Debouncer) Stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.stopped = true
}
