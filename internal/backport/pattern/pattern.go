// Package pattern compiles the wildcard patterns used in replacement rules.
//
// A pattern is made of literal text and three wildcards:
//
//	?    exactly one character
//	*    zero or more characters, never crossing '/'
//	**   zero or more characters, including '/'
//
// Every * and ** captures the text it matched. Captures are numbered from 1
// in the order the wildcards appear and are substituted into a Template.
package pattern

import (
	"strings"
	"unicode/utf8"
)

// Pattern is a compiled matcher. Implementations are immutable and safe
// for concurrent use.
type Pattern interface {
	// Match reports whether input matches the whole pattern and returns
	// the captured text of every * and ** in order.
	Match(input string) ([]string, bool)

	// Groups returns the number of capture groups
	Groups() int

	// String returns the source pattern
	String() string
}

type tokenKind uint8

const (
	tokenLiteral tokenKind = iota
	tokenSingle
	tokenSegment
	tokenAny
)

type token struct {
	kind  tokenKind
	text  string
	group int // capture slot for * and **
}

// Compile compiles a pattern. Patterns without wildcards compile to an
// exact string comparison.
func Compile(source string) Pattern {
	tokens := tokenize(source)
	groups := 0
	wildcards := 0
	for i := range tokens {
		switch tokens[i].kind {
		case tokenSegment, tokenAny:
			tokens[i].group = groups
			groups++
			wildcards++
		case tokenSingle:
			wildcards++
		}
	}
	if wildcards == 0 {
		return fixed(source)
	}
	return &wildcard{source: source, tokens: tokens, groups: groups, wildcards: wildcards}
}

// HasWildcards reports whether s contains a wildcard or a <N> placeholder
func HasWildcards(s string) bool {
	if strings.ContainsAny(s, "*?") {
		return true
	}
	for i := 0; i < len(s); i++ {
		if s[i] == '<' {
			if _, end, ok := placeholder(s, i); ok && end > i {
				return true
			}
		}
	}
	return false
}

func tokenize(source string) []token {
	var tokens []token
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			tokens = append(tokens, token{kind: tokenLiteral, text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(source); i++ {
		switch source[i] {
		case '*':
			flush()
			if i+1 < len(source) && source[i+1] == '*' {
				tokens = append(tokens, token{kind: tokenAny})
				i++
			} else {
				tokens = append(tokens, token{kind: tokenSegment})
			}
		case '?':
			flush()
			tokens = append(tokens, token{kind: tokenSingle})
		default:
			lit.WriteByte(source[i])
		}
	}
	flush()
	return tokens
}

// fixed matches one exact string
type fixed string

func (f fixed) Match(input string) ([]string, bool) {
	if input != string(f) {
		return nil, false
	}
	return []string{}, true
}

func (f fixed) Groups() int    { return 0 }
func (f fixed) String() string { return string(f) }

type wildcard struct {
	source    string
	tokens    []token
	groups    int
	wildcards int
}

func (w *wildcard) Groups() int    { return w.groups }
func (w *wildcard) String() string { return w.source }

func (w *wildcard) Match(input string) ([]string, bool) {
	m := &matcher{
		tokens:   w.tokens,
		input:    input,
		captures: make([]string, w.groups),
	}
	if w.wildcards > 1 {
		m.failed = make([]bool, (len(w.tokens)+1)*(len(input)+1))
	}
	if !m.match(0, 0) {
		return nil, false
	}
	return m.captures, true
}

// matcher runs one greedy, backtracking match. States (token, position)
// that already failed are remembered, so the work is bounded by
// tokens × input length per wildcard span rather than exponential.
type matcher struct {
	tokens   []token
	input    string
	captures []string
	failed   []bool
}

func (m *matcher) match(ti, pos int) bool {
	if ti == len(m.tokens) {
		return pos == len(m.input)
	}
	state := ti*(len(m.input)+1) + pos
	if m.failed != nil && m.failed[state] {
		return false
	}
	if m.step(ti, pos) {
		return true
	}
	if m.failed != nil {
		m.failed[state] = true
	}
	return false
}

func (m *matcher) step(ti, pos int) bool {
	tok := m.tokens[ti]
	rest := m.input[pos:]

	switch tok.kind {
	case tokenLiteral:
		return strings.HasPrefix(rest, tok.text) && m.match(ti+1, pos+len(tok.text))
	case tokenSingle:
		if rest == "" {
			return false
		}
		_, size := utf8.DecodeRuneInString(rest)
		return m.match(ti+1, pos+size)
	case tokenSegment:
		end := pos + strings.IndexByte(rest, '/')
		if end < pos {
			end = len(m.input)
		}
		return m.span(ti, pos, end)
	case tokenAny:
		return m.span(ti, pos, len(m.input))
	}
	return false
}

// span tries every capture of input[pos:end'] for end' from end down to pos
func (m *matcher) span(ti, pos, end int) bool {
	tok := m.tokens[ti]
	for e := end; e >= pos; e-- {
		if m.match(ti+1, e) {
			m.captures[tok.group] = m.input[pos:e]
			return true
		}
	}
	return false
}

// List is an ordered set of patterns
type List []Pattern

// CompileList compiles every source pattern
func CompileList(sources []string) List {
	list := make(List, 0, len(sources))
	for _, s := range sources {
		list = append(list, Compile(s))
	}
	return list
}

// Matches reports whether any pattern in the list matches s
func (l List) Matches(s string) bool {
	for _, p := range l {
		if _, ok := p.Match(s); ok {
			return true
		}
	}
	return false
}
