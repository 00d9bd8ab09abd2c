// Package rules reads replacement rule files.
//
// A rule file is a YAML document:
//
//	types:
//	  - match: java/time/**
//	    replace: org/threeten/bp/<1>
//	methods:
//	  - class: java/lang/Math
//	    name: <static>
//	    descriptor: (D)D
//	    replacement_class: java/lang/StrictMath
//	    replacement_name: <static>
//	dont_warn:
//	  - sun/misc/**
//
// Rules keep the order in which they appear; the first matching rule wins.
package rules

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// TypeRule maps class names matching Match to Replace
type TypeRule struct {
	Match   string `yaml:"match"`
	Replace string `yaml:"replace"`
}

// String returns the rule as "match -> replace"
func (r TypeRule) String() string {
	return r.Match + " -> " + r.Replace
}

// MethodRule maps method references to a replacement method. An empty
// Descriptor matches any descriptor, an empty ReplacementName keeps the
// original name and an empty ReplacementDescriptor keeps the original
// descriptor.
type MethodRule struct {
	Class                 string `yaml:"class"`
	Name                  string `yaml:"name"`
	Descriptor            string `yaml:"descriptor,omitempty"`
	ReplacementClass      string `yaml:"replacement_class"`
	ReplacementName       string `yaml:"replacement_name,omitempty"`
	ReplacementDescriptor string `yaml:"replacement_descriptor,omitempty"`
}

// String returns the rule as "class.name desc -> class.name desc"
func (r MethodRule) String() string {
	return fmt.Sprintf("%s.%s%s -> %s.%s%s",
		r.Class, r.Name, r.Descriptor,
		r.ReplacementClass, r.ReplacementName, r.ReplacementDescriptor)
}

// Set is the content of one or more rule files
type Set struct {
	Types    []TypeRule   `yaml:"types,omitempty"`
	Methods  []MethodRule `yaml:"methods,omitempty"`
	DontWarn []string     `yaml:"dont_warn,omitempty"`
}

// ErrInvalidRule is wrapped by every validation error
var ErrInvalidRule = errors.New("invalid rule")

// LoadFile reads and validates a rule file
func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules: %w", err)
	}
	set, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

// LoadFiles reads every file in order and merges them into one set
func LoadFiles(paths []string) (*Set, error) {
	merged := &Set{}
	for _, path := range paths {
		set, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		merged.Merge(set)
	}
	return merged, nil
}

// Parse decodes and validates a rule document
func Parse(data []byte) (*Set, error) {
	var set Set
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return &set, nil
}

// Save writes the set as YAML
func Save(path string, set *Set) error {
	data, err := yaml.Marshal(set)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks that every rule names what it matches. Whether a
// replacement target exists is checked later, against the class pools.
func (s *Set) Validate() error {
	var errs []error
	for i, r := range s.Types {
		if r.Match == "" {
			errs = append(errs, fmt.Errorf("%w: types[%d]: match is required", ErrInvalidRule, i))
		}
	}
	for i, r := range s.Methods {
		if r.Class == "" {
			errs = append(errs, fmt.Errorf("%w: methods[%d]: class is required", ErrInvalidRule, i))
		}
		if r.Name == "" {
			errs = append(errs, fmt.Errorf("%w: methods[%d]: name is required", ErrInvalidRule, i))
		}
	}
	return errors.Join(errs...)
}

// Merge appends the rules of other after the rules of s
func (s *Set) Merge(other *Set) {
	if other == nil {
		return
	}
	s.Types = append(s.Types, other.Types...)
	s.Methods = append(s.Methods, other.Methods...)
	s.DontWarn = append(s.DontWarn, other.DontWarn...)
}

// Empty reports whether the set holds no replacement rules
func (s *Set) Empty() bool {
	return len(s.Types) == 0 && len(s.Methods) == 0
}

// ParseTypeFlag parses a type rule written as "match=replace", the form
// accepted on the command line.
func ParseTypeFlag(value string) (TypeRule, error) {
	match, replace, ok := strings.Cut(value, "=")
	match = strings.TrimSpace(match)
	replace = strings.TrimSpace(replace)
	if !ok || match == "" {
		return TypeRule{}, fmt.Errorf("%w: %q: expected match=replace", ErrInvalidRule, value)
	}
	return TypeRule{Match: match, Replace: replace}, nil
}
