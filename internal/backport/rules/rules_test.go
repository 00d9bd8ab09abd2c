package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const threetenRules = `
types:
  - match: java/time/**
    replace: org/threeten/bp/<1>
  - match: java/util/stream/*
    replace: java8/util/stream/*
methods:
  - class: java/lang/Math
    name: <static>
    descriptor: (D)D
    replacement_class: java/lang/StrictMath
    replacement_name: <static>
dont_warn:
  - sun/misc/**
`

func TestParse(t *testing.T) {
	set, err := Parse([]byte(threetenRules))
	require.NoError(t, err)

	require.Len(t, set.Types, 2)
	assert.Equal(t, TypeRule{Match: "java/time/**", Replace: "org/threeten/bp/<1>"}, set.Types[0])
	assert.Equal(t, "java/util/stream/* -> java8/util/stream/*", set.Types[1].String())

	require.Len(t, set.Methods, 1)
	assert.Equal(t, MethodRule{
		Class:            "java/lang/Math",
		Name:             "<static>",
		Descriptor:       "(D)D",
		ReplacementClass: "java/lang/StrictMath",
		ReplacementName:  "<static>",
	}, set.Methods[0])

	assert.Equal(t, []string{"sun/misc/**"}, set.DontWarn)
	assert.False(t, set.Empty())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad yaml", "types: [match"},
		{"missing match", "types:\n  - replace: a/B\n"},
		{"missing class", "methods:\n  - name: foo\n    replacement_class: a/B\n"},
		{"missing name", "methods:\n  - class: a/A\n    replacement_class: a/B\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}

	_, err := Parse([]byte("methods:\n  - class: a/A\n"))
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestLoadFiles_Merge(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.yml")
	second := filepath.Join(dir, "second.yml")
	require.NoError(t, os.WriteFile(first, []byte(threetenRules), 0644))
	require.NoError(t, Save(second, &Set{Types: []TypeRule{{Match: "java/util/Optional", Replace: "java8/util/Optional"}}}))

	set, err := LoadFiles([]string{first, second})
	require.NoError(t, err)
	require.Len(t, set.Types, 3)
	assert.Equal(t, "java/time/**", set.Types[0].Match)
	assert.Equal(t, "java/util/Optional", set.Types[2].Match)

	_, err = LoadFile(filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)
}

func TestParseTypeFlag(t *testing.T) {
	rule, err := ParseTypeFlag("java/time/** = org/threeten/bp/<1>")
	require.NoError(t, err)
	assert.Equal(t, TypeRule{Match: "java/time/**", Replace: "org/threeten/bp/<1>"}, rule)

	_, err = ParseTypeFlag("java/time/**")
	assert.ErrorIs(t, err, ErrInvalidRule)

	_, err = ParseTypeFlag("=org/threeten/bp/<1>")
	assert.Error(t, err)
}
