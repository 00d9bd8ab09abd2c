package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/conduit-lang/backport/internal/backport/rules"
)

// FileName is the manifest name inside an output directory
const FileName = ".backport-cache.json"

const manifestVersion = 1

// Entry records one converted input
type Entry struct {
	Hash     string    `json:"hash"`
	Modified bool      `json:"modified"`
	CachedAt time.Time `json:"cached_at"`
}

type manifest struct {
	Version     int              `json:"version"`
	Fingerprint string           `json:"fingerprint"`
	Entries     map[string]Entry `json:"entries"`
}

// Cache is the manifest of a previous run. It is safe for concurrent use.
type Cache struct {
	path     string
	hasher   *FileHasher
	mu       sync.RWMutex
	manifest manifest
	hits     int
	misses   int
}

// Open loads the manifest at path. A missing manifest, or one written
// under a different fingerprint, yields an empty cache.
func Open(path, fingerprint string) (*Cache, error) {
	c := &Cache{
		path:   path,
		hasher: NewFileHasher(),
		manifest: manifest{
			Version:     manifestVersion,
			Fingerprint: fingerprint,
			Entries:     make(map[string]Entry),
		},
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}

	var stored manifest
	if err := json.Unmarshal(data, &stored); err != nil {
		// A corrupt manifest only costs a full run
		return c, nil
	}
	if stored.Version == manifestVersion && stored.Fingerprint == fingerprint && stored.Entries != nil {
		c.manifest.Entries = stored.Entries
	}
	return c, nil
}

// Lookup reports whether name was converted from exactly this content
func (c *Cache) Lookup(name string, content []byte) (Entry, bool) {
	hash := c.hasher.HashContent(content)

	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.manifest.Entries[name]
	if !ok || entry.Hash != hash {
		c.misses++
		return Entry{}, false
	}
	c.hits++
	return entry, true
}

// Record stores the outcome of converting name
func (c *Cache) Record(name string, content []byte, modified bool) {
	entry := Entry{
		Hash:     c.hasher.HashContent(content),
		Modified: modified,
		CachedAt: time.Now(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.manifest.Entries[name] = entry
}

// Invalidate removes an entry
func (c *Cache) Invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.manifest.Entries, name)
}

// Prune removes entries for names not in keep and returns how many were
// removed.
func (c *Cache) Prune(keep map[string]bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	pruned := 0
	for name := range c.manifest.Entries {
		if !keep[name] {
			delete(c.manifest.Entries, name)
			pruned++
		}
	}
	return pruned
}

// Size returns the number of entries
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.manifest.Entries)
}

// Stats returns the number of lookups that hit and missed
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// HitRate returns the cache hit rate as a percentage
func (c *Cache) HitRate() float64 {
	hits, misses := c.Stats()
	if hits+misses == 0 {
		return 0.0
	}
	return float64(hits) / float64(hits+misses) * 100.0
}

// Save writes the manifest
func (c *Cache) Save() error {
	c.mu.RLock()
	data, err := json.MarshalIndent(c.manifest, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	return os.WriteFile(c.path, data, 0644)
}

// Fingerprint hashes everything besides the input itself that decides
// the output of a conversion: the rules and the library files.
func Fingerprint(set *rules.Set, libraries []string, checkMissing bool) (string, error) {
	hasher := NewFileHasher()
	var sb strings.Builder

	if set != nil {
		data, err := yaml.Marshal(set)
		if err != nil {
			return "", err
		}
		sb.Write(data)
	}
	fmt.Fprintf(&sb, "check_missing=%t\n", checkMissing)

	libs := append([]string(nil), libraries...)
	sort.Strings(libs)
	for _, lib := range libs {
		hash, err := hashPath(hasher, lib)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, "%s=%s\n", lib, hash)
	}
	return hasher.HashContent([]byte(sb.String())), nil
}

// hashPath hashes a file, or the names and sizes of a directory's files
func hashPath(hasher *FileHasher, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to hash library: %w", err)
	}
	if !info.IsDir() {
		return hasher.HashFile(path)
	}

	var sb strings.Builder
	err = filepath.Walk(path, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			fmt.Fprintf(&sb, "%s %d %d\n", p, fi.Size(), fi.ModTime().UnixNano())
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to hash library: %w", err)
	}
	return hasher.HashContent([]byte(sb.String())), nil
}
