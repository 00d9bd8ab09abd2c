// Package converter rewrites the type and method references of classes
// according to a replacement registry.
//
// Convert makes one pass over a class: the constant pool, then fields,
// then methods with their code, then class attributes. Every site that
// names a class, a field, a method or a descriptor is offered to the
// registry. Sites without a replacement that cannot be resolved against the
// program and library classes are reported once and left alone.
package converter

import (
	"sync"

	"go.uber.org/zap"

	"github.com/conduit-lang/backport/internal/backport/descriptor"
	"github.com/conduit-lang/backport/internal/backport/replace"
	"github.com/conduit-lang/backport/internal/classfile"
	"github.com/conduit-lang/backport/internal/classpool"
	"github.com/conduit-lang/backport/internal/diagnostics"
)

// InstructionVisitor is called for every instruction of every method,
// after the converter has patched it.
type InstructionVisitor interface {
	VisitInstruction(class *classfile.Class, method *classfile.Member, code *classfile.CodeAttribute, in classfile.Instruction)
}

// InstructionVisitorFunc adapts a function to an InstructionVisitor
type InstructionVisitorFunc func(class *classfile.Class, method *classfile.Member, code *classfile.CodeAttribute, in classfile.Instruction)

// VisitInstruction implements InstructionVisitor
func (f InstructionVisitorFunc) VisitInstruction(class *classfile.Class, method *classfile.Member, code *classfile.CodeAttribute, in classfile.Instruction) {
	f(class, method, code, in)
}

// Option configures a Converter
type Option func(*Converter)

// WithWarnings sets the sink receiving missing-reference warnings
func WithWarnings(sink diagnostics.Sink) Option {
	return func(c *Converter) {
		c.warnings = diagnostics.OrNop(sink)
	}
}

// WithModifiedClassHandler sets the function called once for every class
// that Convert changed.
func WithModifiedClassHandler(fn func(*classfile.Class)) Option {
	return func(c *Converter) {
		c.onModified = fn
	}
}

// WithExtraInstructionVisitor sets a visitor called for every instruction
func WithExtraInstructionVisitor(v InstructionVisitor) Option {
	return func(c *Converter) {
		c.extra = v
	}
}

// WithMissingReferenceCheck enables or disables missing-reference warnings.
// It is enabled by default.
func WithMissingReferenceCheck(enabled bool) Option {
	return func(c *Converter) {
		c.checkMissing = enabled
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Converter) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Converter rewrites classes. It keeps no per-class state, so one
// Converter may convert different classes from several goroutines.
type Converter struct {
	registry  *replace.Registry
	rewriter  *descriptor.Rewriter
	hierarchy *hierarchy

	warnings     diagnostics.Sink
	onModified   func(*classfile.Class)
	extra        InstructionVisitor
	checkMissing bool
	logger       *zap.Logger

	mu     sync.Mutex
	warned map[string]struct{}
}

// New creates a converter. The program pool must hold every program class
// before New is called: member lookups use a snapshot taken here, so that
// classes rewritten concurrently are never read.
func New(registry *replace.Registry, program, library *classpool.ClassPool, opts ...Option) *Converter {
	if registry == nil {
		registry = replace.New(nil, nil, nil, nil)
	}
	c := &Converter{
		registry:     registry,
		rewriter:     descriptor.NewRewriter(registry),
		hierarchy:    newHierarchy(program, library),
		warnings:     diagnostics.Nop{},
		checkMissing: true,
		logger:       zap.NewNop(),
		warned:       make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert rewrites class in place and reports whether anything changed
func (c *Converter) Convert(class *classfile.Class) bool {
	s := &conversion{
		Converter:     c,
		class:         class,
		pool:          class.Pool,
		name:          class.Name(),
		staticCalls:   make(map[uint16]bool),
		instanceCalls: make(map[uint16]bool),
		toStatic:      make(map[uint16]bool),
		codeConstants: make(map[uint16]bool),
		redirected:    make(map[uint16]bool),
	}

	s.scanCallSites()
	s.convertConstants()
	for _, f := range class.Fields {
		s.convertMember(f, false)
	}
	for _, m := range class.Methods {
		s.convertMember(m, true)
	}
	s.convertAttributes(class.Attributes)

	c.logger.Debug("converted class",
		zap.String("class", s.name),
		zap.Bool("modified", s.changed))

	if s.changed && c.onModified != nil {
		c.onModified(class)
	}
	return s.changed
}

// warn emits d unless a diagnostic with the same key was emitted before
func (c *Converter) warn(d diagnostics.Diagnostic) {
	key := d.Key()
	c.mu.Lock()
	if _, seen := c.warned[key]; seen {
		c.mu.Unlock()
		return
	}
	c.warned[key] = struct{}{}
	c.mu.Unlock()

	c.warnings.Warn(d)
}
