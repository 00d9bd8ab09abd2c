package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	batches [][]string
}

func (r *recorder) record(files []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, files)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, b := range r.batches {
		out = append(out, b...)
	}
	return out
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func TestDebouncer_Batches(t *testing.T) {
	var rec recorder
	d := NewDebouncer(20 * time.Millisecond)
	d.SetCallback(rec.record)

	d.Add("b.class")
	d.Add("a.class")
	d.Add("b.class")

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a.class", "b.class"}, rec.all())
}

func TestDebouncer_Stop(t *testing.T) {
	var rec recorder
	d := NewDebouncer(20 * time.Millisecond)
	d.SetCallback(rec.record)

	d.Add("a.class")
	d.Stop()
	d.Add("b.class")

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, rec.count())
}

func TestFileWatcher_ReportsMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	pkg := filepath.Join(dir, "com", "example")
	require.NoError(t, os.MkdirAll(pkg, 0755))

	var rec recorder
	fw, err := NewFileWatcher(Options{
		Paths:      []string{dir},
		Extensions: []string{".class"},
		Delay:      20 * time.Millisecond,
	}, rec.record)
	require.NoError(t, err)
	require.NoError(t, fw.Start())
	defer fw.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(pkg, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "Event.class"), []byte{0xca, 0xfe}, 0644))

	require.Eventually(t, func() bool { return len(rec.all()) > 0 }, 2*time.Second, 10*time.Millisecond)
	for _, f := range rec.all() {
		assert.Equal(t, ".class", filepath.Ext(f))
	}
}

func TestFileWatcher_NewDirectories(t *testing.T) {
	dir := t.TempDir()

	var rec recorder
	fw, err := NewFileWatcher(Options{Paths: []string{dir}, Delay: 20 * time.Millisecond}, rec.record)
	require.NoError(t, err)
	require.NoError(t, fw.Start())
	defer fw.Stop()

	sub := filepath.Join(dir, "late")
	require.NoError(t, os.Mkdir(sub, 0755))
	require.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(sub, "Late.class"), []byte{0xca}, 0644)
		for _, f := range rec.all() {
			if filepath.Base(f) == "Late.class" {
				return true
			}
		}
		return false
	}, 2*time.Second, 50*time.Millisecond)
}

func TestFileWatcher_SingleFile(t *testing.T) {
	dir := t.TempDir()
	jar := filepath.Join(dir, "app.jar")
	require.NoError(t, os.WriteFile(jar, []byte("v1"), 0644))

	var rec recorder
	fw, err := NewFileWatcher(Options{Paths: []string{jar}, Delay: 20 * time.Millisecond}, rec.record)
	require.NoError(t, err)
	require.NoError(t, fw.Start())
	defer fw.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.jar"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(jar, []byte("v2"), 0644))

	require.Eventually(t, func() bool { return rec.count() > 0 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	for _, f := range rec.all() {
		assert.Equal(t, "app.jar", filepath.Base(f))
	}
}

func TestFileWatcher_Run(t *testing.T) {
	fw, err := NewFileWatcher(Options{Paths: []string{t.TempDir()}}, func([]string) {})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fw.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.NoError(t, fw.Stop())

	missing, err := NewFileWatcher(Options{Paths: []string{filepath.Join(t.TempDir(), "nope")}}, nil)
	require.NoError(t, err)
	assert.Error(t, missing.Start())
	assert.NoError(t, missing.Stop())
}
