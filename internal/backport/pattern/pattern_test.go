package pattern

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_FixedString(t *testing.T) {
	inputs := []string{"", "java/time/LocalDate", "java/time/LocalDateTime", "java/time", "<init>"}

	for _, source := range inputs {
		p := Compile(source)
		assert.IsType(t, fixed(""), p, "pattern %q should use the fixed-string matcher", source)
		for _, input := range inputs {
			_, ok := p.Match(input)
			assert.Equal(t, source == input, ok, "Compile(%q).Match(%q)", source, input)
		}
	}
}

func TestCompile_Wildcards(t *testing.T) {
	tests := []struct {
		pattern  string
		input    string
		match    bool
		captures []string
	}{
		{"java/time/*", "java/time/Instant", true, []string{"Instant"}},
		{"java/time/*", "java/time/chrono/ChronoLocalDate", false, nil},
		{"java/time/**", "java/time/chrono/ChronoLocalDate", true, []string{"chrono/ChronoLocalDate"}},
		{"java/time/**", "java/time/", true, []string{""}},
		{"java/time/**", "java/timer", false, nil},
		{"java/*/Local*", "java/time/LocalDate", true, []string{"time", "Date"}},
		{"java/*/Local*", "java/util/time/LocalDate", false, nil},
		{"**/package-info", "com/example/package-info", true, []string{"com/example"}},
		{"java/lang/?ath", "java/lang/Math", true, []string{}},
		{"java/lang/?ath", "java/lang/Mmath", false, nil},
		{"**$*", "java/util/Map$Entry", true, []string{"java/util/Map", "Entry"}},
		{"**$*", "java/util/Map", false, nil},
		{"*", "", true, []string{""}},
		{"**", "a/b/c", true, []string{"a/b/c"}},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"~"+tt.input, func(t *testing.T) {
			captures, ok := Compile(tt.pattern).Match(tt.input)
			assert.Equal(t, tt.match, ok)
			if tt.match {
				assert.Equal(t, tt.captures, captures)
			}
		})
	}
}

func TestCompile_GreedyCaptures(t *testing.T) {
	captures, ok := Compile("**/*").Match("a/b/c")
	require.True(t, ok)
	assert.Equal(t, []string{"a/b", "c"}, captures)

	captures, ok = Compile("**x**").Match("axbxc")
	require.True(t, ok)
	assert.Equal(t, []string{"axb", "c"}, captures)
}

func TestCompile_NoExponentialBacktracking(t *testing.T) {
	input := strings.Repeat("a", 1000) + "b"
	_, ok := Compile("**a**a**a**a**a**c").Match(input)
	assert.False(t, ok)
}

func TestCompile_Groups(t *testing.T) {
	assert.Equal(t, 0, Compile("java/lang/Object").Groups())
	assert.Equal(t, 0, Compile("java/lang/?bject").Groups())
	assert.Equal(t, 2, Compile("java/*/**").Groups())
	assert.Equal(t, "java/*/**", Compile("java/*/**").String())
}

func TestHasWildcards(t *testing.T) {
	assert.True(t, HasWildcards("org/threeten/bp/*"))
	assert.True(t, HasWildcards("org/threeten/bp/<1>"))
	assert.True(t, HasWildcards("a?c"))
	assert.False(t, HasWildcards("org/threeten/bp/Instant"))
	assert.False(t, HasWildcards("<init>"))
	assert.False(t, HasWildcards("<>"))
	assert.False(t, HasWildcards(""))
}

func TestList_Matches(t *testing.T) {
	list := CompileList([]string{"java/lang/invoke/**", "sun/misc/Unsafe"})
	assert.True(t, list.Matches("java/lang/invoke/MethodHandle"))
	assert.True(t, list.Matches("sun/misc/Unsafe"))
	assert.False(t, list.Matches("java/lang/String"))
	assert.False(t, List(nil).Matches("anything"))
}
