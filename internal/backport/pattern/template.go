package pattern

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidTemplate is wrapped by every error ParseTemplate returns
var ErrInvalidTemplate = errors.New("invalid replacement pattern")

// Template is the replacement side of a rule. Literal text is copied
// verbatim, <N> inserts capture N, and a bare * or ** inserts the next
// capture in order.
type Template struct {
	source  string
	parts   []part
	dynamic bool
}

type part struct {
	literal string
	group   int // 1-based capture, 0 for literal text
}

// ParseTemplate parses a replacement pattern that will be expanded with
// the captures of a matching pattern having the given number of groups.
// References to groups that do not exist are rejected.
func ParseTemplate(source string, groups int) (*Template, error) {
	t := &Template{source: source}
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			t.parts = append(t.parts, part{literal: lit.String()})
			lit.Reset()
		}
	}
	addGroup := func(n int) error {
		if n < 1 || n > groups {
			return fmt.Errorf("%w %q: refers to group %d but the matching pattern has %d", ErrInvalidTemplate, source, n, groups)
		}
		flush()
		t.parts = append(t.parts, part{group: n})
		t.dynamic = true
		return nil
	}

	next := 1
	for i := 0; i < len(source); i++ {
		switch c := source[i]; c {
		case '*':
			if i+1 < len(source) && source[i+1] == '*' {
				i++
			}
			if err := addGroup(next); err != nil {
				return nil, err
			}
			next++
		case '?':
			return nil, fmt.Errorf("%w %q: '?' cannot be used in a replacement", ErrInvalidTemplate, source)
		case '<':
			n, end, ok := placeholder(source, i)
			if !ok {
				lit.WriteByte(c)
				continue
			}
			if err := addGroup(n); err != nil {
				return nil, err
			}
			i = end
		default:
			lit.WriteByte(c)
		}
	}
	flush()
	return t, nil
}

// MustParseTemplate is like ParseTemplate but panics on error
func MustParseTemplate(source string, groups int) *Template {
	t, err := ParseTemplate(source, groups)
	if err != nil {
		panic(err)
	}
	return t
}

// placeholder parses "<digits>" starting at s[i] and returns the number and
// the index of the closing '>'.
func placeholder(s string, i int) (n, end int, ok bool) {
	j := i + 1
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		j++
	}
	if j == i+1 || j >= len(s) || s[j] != '>' {
		return 0, 0, false
	}
	n, err := strconv.Atoi(s[i+1 : j])
	if err != nil {
		return 0, 0, false
	}
	return n, j, true
}

// Expand substitutes captures into the template. Missing captures expand
// to the empty string.
func (t *Template) Expand(captures []string) string {
	if !t.dynamic {
		return t.source
	}
	var sb strings.Builder
	for _, p := range t.parts {
		if p.group == 0 {
			sb.WriteString(p.literal)
			continue
		}
		if p.group <= len(captures) {
			sb.WriteString(captures[p.group-1])
		}
	}
	return sb.String()
}

// IsDynamic reports whether the expansion depends on captures
func (t *Template) IsDynamic() bool {
	return t.dynamic
}

// String returns the source pattern
func (t *Template) String() string {
	return t.source
}
