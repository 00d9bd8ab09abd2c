// Package replace holds the configured type and method replacement rules
// and answers, for a referenced class or method, which rule applies.
package replace

import (
	"fmt"

	"github.com/conduit-lang/backport/internal/backport/pattern"
	"github.com/conduit-lang/backport/internal/classfile"
)

// Method name tokens with a special meaning in method rules
const (
	NameStatic    = "<static>"
	NameDefault   = "<default>"
	AnyDescriptor = "**"
)

// ClassLookup finds classes by internal name
type ClassLookup interface {
	Lookup(name string) (*classfile.Class, bool)
}

// Lookups searches several class collections in order
type Lookups []ClassLookup

// Lookup implements ClassLookup
func (l Lookups) Lookup(name string) (*classfile.Class, bool) {
	for _, lookup := range l {
		if lookup == nil {
			continue
		}
		if c, ok := lookup.Lookup(name); ok {
			return c, true
		}
	}
	return nil, false
}

// TypeReplacement maps class names matching Matching to the expansion of
// Replacement. A nil Replacement means the class has no substitute.
type TypeReplacement struct {
	Matching    pattern.Pattern
	Replacement *pattern.Template
}

// NewTypeReplacement compiles a type rule. An empty replacement yields a
// rule without substitute. It panics if matching is empty.
func NewTypeReplacement(matching, replacement string) (*TypeReplacement, error) {
	if matching == "" {
		panic("replace: empty matching class name")
	}
	r := &TypeReplacement{Matching: pattern.Compile(matching)}
	if replacement == "" {
		return r, nil
	}
	tmpl, err := pattern.ParseTemplate(replacement, r.Matching.Groups())
	if err != nil {
		return nil, err
	}
	r.Replacement = tmpl
	return r, nil
}

// Apply returns the replacement for name if the rule matches it and has a
// substitute.
func (r *TypeReplacement) Apply(name string) (string, bool) {
	captures, ok := r.Matching.Match(name)
	if !ok || r.Replacement == nil {
		return "", false
	}
	return r.Replacement.Expand(captures), true
}

// IsValid reports whether the rule can produce an existing class: its
// replacement depends on the match, or it names a class that classes can
// find.
func (r *TypeReplacement) IsValid(classes ClassLookup) bool {
	return validTarget(r.Replacement, classes)
}

func (r *TypeReplacement) String() string {
	return r.Matching.String() + " -> " + templateString(r.Replacement)
}

func validTarget(t *pattern.Template, classes ClassLookup) bool {
	if t == nil || t.String() == "" {
		return false
	}
	if t.IsDynamic() {
		return true
	}
	if classes == nil {
		return false
	}
	_, ok := classes.Lookup(t.String())
	return ok
}

func templateString(t *pattern.Template) string {
	if t == nil {
		return "<none>"
	}
	return t.String()
}

// Selector restricts which methods a method rule matches, besides its name
// pattern.
type Selector uint8

const (
	// SelectByName matches on the method name only
	SelectByName Selector = iota
	// SelectStatic matches static methods of any name
	SelectStatic
	// SelectDefault matches methods that are neither static, private nor
	// abstract
	SelectDefault
)

func (s Selector) accepts(access classfile.AccessFlags) bool {
	switch s {
	case SelectStatic:
		return access.Has(classfile.AccStatic)
	case SelectDefault:
		return !access.Has(classfile.AccStatic) && !access.Has(classfile.AccPrivate) && !access.Has(classfile.AccAbstract)
	}
	return true
}

// Invoke tells how a replaced call is invoked
type Invoke uint8

const (
	// InvokeKeep keeps the invocation kind of the call site
	InvokeKeep Invoke = iota
	// InvokeStatic turns the call into a static invocation
	InvokeStatic
)

// MethodReplacement maps method references to a replacement method. A nil
// ReplacementName keeps the original name and a nil ReplacementDescriptor
// keeps the original descriptor. A nil ReplacementClass means the method
// has no substitute.
type MethodReplacement struct {
	MatchingClass      pattern.Pattern
	MatchingName       pattern.Pattern
	MatchingDescriptor pattern.Pattern
	Selector           Selector

	ReplacementClass      *pattern.Template
	ReplacementName       *pattern.Template
	ReplacementDescriptor *pattern.Template
	Invoke                Invoke

	matchingName    string
	replacementName string
}

// NewMethodReplacement compiles a method rule. An empty descriptor or "**"
// matches any descriptor. The replacement name may be <static> or
// <default>, both of which keep the original name. It panics if
// matchingClass is empty.
func NewMethodReplacement(matchingClass, matchingName, matchingDescriptor, replacementClass, replacementName, replacementDescriptor string) (*MethodReplacement, error) {
	if matchingClass == "" {
		panic("replace: empty matching class name")
	}

	r := &MethodReplacement{
		MatchingClass:   pattern.Compile(matchingClass),
		matchingName:    matchingName,
		replacementName: replacementName,
	}

	// A sentinel name captures the whole method name as group 1
	switch matchingName {
	case NameStatic:
		r.Selector = SelectStatic
		r.MatchingName = pattern.Compile("**")
	case NameDefault:
		r.Selector = SelectDefault
		r.MatchingName = pattern.Compile("**")
	default:
		r.MatchingName = pattern.Compile(matchingName)
	}

	if matchingDescriptor == "" {
		matchingDescriptor = AnyDescriptor
	}
	r.MatchingDescriptor = pattern.Compile(matchingDescriptor)

	var err error
	if replacementClass != "" {
		if r.ReplacementClass, err = pattern.ParseTemplate(replacementClass, r.MatchingClass.Groups()); err != nil {
			return nil, err
		}
	}

	switch replacementName {
	case NameStatic:
		r.Invoke = InvokeStatic
	case NameDefault, "":
	default:
		if r.ReplacementName, err = pattern.ParseTemplate(replacementName, r.MatchingName.Groups()); err != nil {
			return nil, err
		}
	}

	if replacementDescriptor != "" && replacementDescriptor != AnyDescriptor {
		if r.ReplacementDescriptor, err = pattern.ParseTemplate(replacementDescriptor, r.MatchingDescriptor.Groups()); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// IsValid reports whether the rule can produce an existing class
func (r *MethodReplacement) IsValid(classes ClassLookup) bool {
	return validTarget(r.ReplacementClass, classes)
}

// HasReplacement reports whether the rule provides a substitute
func (r *MethodReplacement) HasReplacement() bool {
	return r.ReplacementClass != nil
}

// Member returns the matched method as "name descriptor"
func (r *MethodReplacement) Member() string {
	return r.matchingName + " " + r.MatchingDescriptor.String()
}

func (r *MethodReplacement) String() string {
	name := r.replacementName
	if name == "" {
		name = NameDefault
	}
	desc := AnyDescriptor
	if r.ReplacementDescriptor != nil {
		desc = r.ReplacementDescriptor.String()
	}
	return fmt.Sprintf("%s.%s%s -> %s.%s%s",
		r.MatchingClass, r.matchingName, r.MatchingDescriptor,
		templateString(r.ReplacementClass), name, desc)
}

// MethodMatch is the outcome of applying a method rule to one reference
type MethodMatch struct {
	Rule *MethodReplacement

	Class      string
	Name       string
	Descriptor string

	// Static is set when the replacement is invoked statically
	Static bool
	// ToStatic is set when an instance call becomes a static call; the
	// receiver has become the first parameter unless the rule gave an
	// explicit descriptor.
	ToStatic bool
}

// apply matches a reference against the rule and expands the replacement
func (r *MethodReplacement) apply(class, name, desc string, access classfile.AccessFlags) (*MethodMatch, bool) {
	if r.ReplacementClass == nil || !r.Selector.accepts(access) {
		return nil, false
	}
	classCaptures, ok := r.MatchingClass.Match(class)
	if !ok {
		return nil, false
	}
	nameCaptures, ok := r.MatchingName.Match(name)
	if !ok {
		return nil, false
	}
	descCaptures, ok := r.MatchingDescriptor.Match(desc)
	if !ok {
		return nil, false
	}

	m := &MethodMatch{
		Rule:       r,
		Class:      r.ReplacementClass.Expand(classCaptures),
		Name:       name,
		Descriptor: desc,
		Static:     access.Has(classfile.AccStatic),
	}
	if r.ReplacementName != nil {
		m.Name = r.ReplacementName.Expand(nameCaptures)
	}
	if r.Invoke == InvokeStatic && !m.Static {
		m.Static = true
		m.ToStatic = true
	}
	switch {
	case r.ReplacementDescriptor != nil:
		m.Descriptor = r.ReplacementDescriptor.Expand(descCaptures)
	case m.ToStatic:
		m.Descriptor = prependReceiver(desc, class)
	}
	return m, true
}
