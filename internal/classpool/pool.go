// Package classpool holds collections of parsed classes keyed by internal
// name: the program classes that are rewritten and the library classes
// they are checked against.
package classpool

import (
	"sort"
	"sync"

	"github.com/conduit-lang/backport/internal/classfile"
)

// ClassPool is a set of classes keyed by internal name. It is safe for
// concurrent use.
type ClassPool struct {
	mu      sync.RWMutex
	classes map[string]*classfile.Class
}

// New creates an empty pool
func New() *ClassPool {
	return &ClassPool{classes: make(map[string]*classfile.Class)}
}

// Of creates a pool holding the given classes
func Of(classes ...*classfile.Class) *ClassPool {
	p := New()
	for _, c := range classes {
		p.Add(c)
	}
	return p
}

// Add inserts c, replacing any class with the same name
func (p *ClassPool) Add(c *classfile.Class) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.classes[c.Name()] = c
}

// Lookup returns the class with the given internal name. A nil pool holds
// no classes.
func (p *ClassPool) Lookup(name string) (*classfile.Class, bool) {
	if p == nil {
		return nil, false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.classes[name]
	return c, ok
}

// Contains reports whether a class with the given name is in the pool
func (p *ClassPool) Contains(name string) bool {
	_, ok := p.Lookup(name)
	return ok
}

// Size returns the number of classes
func (p *ClassPool) Size() int {
	if p == nil {
		return 0
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.classes)
}

// Classes returns the classes sorted by name
func (p *ClassPool) Classes() []*classfile.Class {
	if p == nil {
		return nil
	}
	p.mu.RLock()
	names := make([]string, 0, len(p.classes))
	for name := range p.classes {
		names = append(names, name)
	}
	p.mu.RUnlock()
	sort.Strings(names)

	out := make([]*classfile.Class, 0, len(names))
	for _, name := range names {
		if c, ok := p.Lookup(name); ok {
			out = append(out, c)
		}
	}
	return out
}
