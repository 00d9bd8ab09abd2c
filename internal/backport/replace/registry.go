package replace

import (
	"github.com/conduit-lang/backport/internal/backport/descriptor"
	"github.com/conduit-lang/backport/internal/backport/pattern"
	"github.com/conduit-lang/backport/internal/backport/rules"
	"github.com/conduit-lang/backport/internal/classfile"
	"github.com/conduit-lang/backport/internal/diagnostics"
)

// Registry holds the ordered type and method rules. It is immutable after
// New and safe for concurrent use.
type Registry struct {
	types   []*TypeReplacement
	methods []*MethodReplacement
}

// New compiles the configured rules in order. Rules that fail to compile
// or whose target cannot exist are dropped and reported to sink; classes
// is consulted for literal targets.
func New(types []rules.TypeRule, methods []rules.MethodRule, classes ClassLookup, sink diagnostics.Sink) *Registry {
	sink = diagnostics.OrNop(sink)
	r := &Registry{}

	for _, rule := range types {
		if rule.Match == "" {
			sink.Warn(diagnostics.NewConfigError(diagnostics.ConfigInvalidPattern, rule.String(), "type rule has no class to match"))
			continue
		}
		tr, err := NewTypeReplacement(rule.Match, rule.Replace)
		if err != nil {
			sink.Warn(diagnostics.NewConfigError(diagnostics.ConfigInvalidPattern, rule.String(), err.Error()))
			continue
		}
		if !tr.IsValid(classes) {
			sink.Warn(diagnostics.NewConfigError(diagnostics.ConfigInvalidTarget, rule.String(), invalidTargetMessage(rule.Replace)))
			continue
		}
		r.types = append(r.types, tr)
	}

	for _, rule := range methods {
		if rule.Class == "" {
			sink.Warn(diagnostics.NewConfigError(diagnostics.ConfigInvalidPattern, rule.String(), "method rule has no class to match"))
			continue
		}
		mr, err := NewMethodReplacement(rule.Class, rule.Name, rule.Descriptor, rule.ReplacementClass, rule.ReplacementName, rule.ReplacementDescriptor)
		if err != nil {
			sink.Warn(diagnostics.NewConfigError(diagnostics.ConfigInvalidPattern, rule.String(), err.Error()))
			continue
		}
		if !mr.IsValid(classes) {
			sink.Warn(diagnostics.NewConfigError(diagnostics.ConfigInvalidTarget, rule.String(), invalidTargetMessage(rule.ReplacementClass)))
			continue
		}
		r.methods = append(r.methods, mr)
	}
	return r
}

func invalidTargetMessage(target string) string {
	if target == "" {
		return "rule has no replacement class"
	}
	return "replacement class " + target + " is not in the program or library classes"
}

// TypeRules returns the type rules kept after validation
func (r *Registry) TypeRules() []*TypeReplacement {
	return r.types
}

// MethodRules returns the method rules kept after validation
func (r *Registry) MethodRules() []*MethodReplacement {
	return r.methods
}

// FindTypeReplacement returns the first type rule matching className
func (r *Registry) FindTypeReplacement(className string) *TypeReplacement {
	for _, tr := range r.types {
		if _, ok := tr.Matching.Match(className); ok {
			return tr
		}
	}
	return nil
}

// ReplaceType returns the replacement of className under the first
// matching type rule. It implements descriptor.TypeReplacer.
func (r *Registry) ReplaceType(className string) (string, bool) {
	tr := r.FindTypeReplacement(className)
	if tr == nil {
		return "", false
	}
	replaced, ok := tr.Apply(className)
	if !ok || replaced == className {
		return "", false
	}
	return replaced, true
}

// FindMethodReplacement applies the first method rule matching a reference
// to className.methodName with the given descriptor. access holds the
// modifiers of the referenced method.
func (r *Registry) FindMethodReplacement(className, methodName, methodDescriptor string, access classfile.AccessFlags) *MethodMatch {
	for _, mr := range r.methods {
		if m, ok := mr.apply(className, methodName, methodDescriptor, access); ok {
			return m
		}
	}
	return nil
}

// Missing builds the rule-shaped record of a reference that has no
// replacement. It is not stored in the registry. It panics if className
// is empty.
func (r *Registry) Missing(className, methodName, methodDescriptor string) *MethodReplacement {
	if className == "" {
		panic("replace: empty class name")
	}
	return &MethodReplacement{
		MatchingClass:      pattern.Compile(className),
		MatchingName:       pattern.Compile(methodName),
		MatchingDescriptor: pattern.Compile(methodDescriptor),
		matchingName:       methodName,
	}
}

func prependReceiver(desc, class string) string {
	return descriptor.PrependParameter(desc, descriptor.ClassType(class))
}
