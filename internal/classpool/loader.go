package classpool

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/conduit-lang/backport/internal/classfile"
)

// Entry is one file found under an input path: a class file or any other
// resource. Name is slash separated and relative to the input root.
type Entry struct {
	Name string
	Data []byte
}

// IsClass reports whether the entry is a class file
func (e Entry) IsClass() bool {
	return strings.HasSuffix(e.Name, ".class")
}

// IsArchive reports whether path names a jar or zip archive
func IsArchive(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".jar" || ext == ".zip"
}

// Walk calls fn for every file of a directory, a jar or zip archive, or a
// single class file, in a stable order. Directory entries of archives are
// skipped.
func Walk(path string, fn func(Entry) error) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}

	switch {
	case info.IsDir():
		return walkDir(path, fn)
	case IsArchive(path):
		return walkArchive(path, fn)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		return fn(Entry{Name: filepath.Base(path), Data: data})
	}
}

func walkDir(root string, fn func(Entry) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		return fn(Entry{Name: filepath.ToSlash(rel), Data: data})
	})
}

func walkArchive(path string, fn func(Entry) error) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("failed to open archive %s: %w", path, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			return fmt.Errorf("failed to read %s!%s: %w", path, f.Name, err)
		}
		if err := fn(Entry{Name: f.Name, Data: data}); err != nil {
			return err
		}
	}
	return nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// LoadPath parses every class file under path into the pool. Class files
// that fail to parse are skipped and their names returned.
func (p *ClassPool) LoadPath(path string) (skipped []string, err error) {
	err = Walk(path, func(e Entry) error {
		if !e.IsClass() {
			return nil
		}
		c, perr := classfile.Parse(e.Data)
		if perr != nil {
			skipped = append(skipped, e.Name)
			return nil
		}
		p.Add(c)
		return nil
	})
	return skipped, err
}

// Load creates a pool from several paths
func Load(paths ...string) (*ClassPool, []string, error) {
	p := New()
	var skipped []string
	for _, path := range paths {
		s, err := p.LoadPath(path)
		if err != nil {
			return nil, nil, err
		}
		skipped = append(skipped, s...)
	}
	return p, skipped, nil
}
