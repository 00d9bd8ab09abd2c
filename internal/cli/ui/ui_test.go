package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, []string{"Kind", "Rule", "Status"}, &TableOptions{NoColor: true})
	table.AddRow("type", "java/time/** -> org/threeten/bp/<1>", "ok")
	table.AddRow("method", "java/lang/Math.<static> -> java/lang/StrictMath.<static>", "ok", "extra")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "Kind    Rule"))
	assert.Contains(t, lines[1], "──────")
	assert.True(t, strings.HasPrefix(lines[2], "type    java/time/**"))
	assert.NotContains(t, lines[3], "extra")
	assert.NotContains(t, buf.String(), "\x1b[")
	assert.Equal(t, 2, table.Len())
}

func TestTable_NoHeaders(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, nil, nil)
	table.AddRow("a")
	table.Render()
	assert.Empty(t, buf.String())
}

func TestKeyValueTable(t *testing.T) {
	var buf bytes.Buffer
	kv := NewKeyValueTable(&buf, true)
	kv.AddRow("Classes", "12")
	kv.AddRow("Modified", "3")
	kv.Render()

	assert.Equal(t, "Classes:  12\nModified: 3\n", buf.String())
}

func TestHeader(t *testing.T) {
	var buf bytes.Buffer
	Header(&buf, "Rules", true)
	assert.Equal(t, "Rules\n─────\n", buf.String())
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"saturday", "sunday", 3},
		{"Instant", "Instant", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevenshteinDistance(tt.a, tt.b), "%q/%q", tt.a, tt.b)
	}
}

func TestSuggestClasses(t *testing.T) {
	candidates := []string{
		"org/threeten/bp/Instant",
		"org/threeten/bp/LocalDate",
		"org/threeten/bp/LocalDateTime",
		"java/lang/Object",
	}

	assert.Equal(t, []string{"org/threeten/bp/Instant"}, SuggestClasses("org/threeten/bp/Instnt", candidates))
	suggestions := SuggestClasses("org/threeten/bp/localdate", candidates)
	require.NotEmpty(t, suggestions)
	assert.Equal(t, "org/threeten/bp/LocalDate", suggestions[0])
	assert.Empty(t, SuggestClasses("com/example/Unrelated", candidates))
}

func TestFormatError(t *testing.T) {
	out := RuleError("a -> b/Instnt", "replacement class b/Instnt is not in the program or library classes",
		[]string{"b/Instant"}, true)

	assert.Contains(t, out, "❌ RULE DROPPED: A -> B/INSTNT")
	assert.Contains(t, out, "   replacement class b/Instnt")
	assert.Contains(t, out, "Did you mean: b/Instant?")
	assert.NotContains(t, out, "\x1b[")

	out = FormatError(ErrorOptions{Level: ErrorLevelWarning, Problem: "careful", NoColor: true})
	assert.Equal(t, "⚠️ careful\n", out)

	out = ConfigError("jobs must not be negative", true)
	assert.Contains(t, out, "CONFIGURATION ERROR")
	assert.Contains(t, out, "→ View config: cat backport.yml")

	assert.Equal(t, "✓ done", FormatSuccess("done", true))
}

func TestProgressBar(t *testing.T) {
	var buf bytes.Buffer
	bar := NewProgressBar(&buf, ProgressBarOptions{Width: 10, Message: "converting", NoColor: true})

	bar.Set(1, 4)
	assert.Contains(t, buf.String(), "[██░░░░░░░░]  25% 1/4 converting")

	bar.Set(9, 4)
	assert.Contains(t, buf.String(), "100% 4/4")

	buf.Reset()
	bar.Finish()
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
}
