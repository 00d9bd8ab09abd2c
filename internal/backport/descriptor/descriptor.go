// Package descriptor rewrites the class names embedded in JVM field and
// method descriptors and in generic signatures.
//
// Rewriting is a single forward scan. Every internal class name found in
// an L...; type is offered to a TypeReplacer; names without a replacement
// are copied unchanged, as is anything the scanner cannot parse.
package descriptor

import "strings"

// TypeReplacer maps an internal class name to its replacement
type TypeReplacer interface {
	ReplaceType(name string) (string, bool)
}

// TypeReplacerFunc adapts a function to a TypeReplacer
type TypeReplacerFunc func(name string) (string, bool)

// ReplaceType implements TypeReplacer
func (f TypeReplacerFunc) ReplaceType(name string) (string, bool) {
	return f(name)
}

// Rewriter substitutes class names in descriptors and signatures. It holds
// no state besides its TypeReplacer and is safe for concurrent use when the
// replacer is.
type Rewriter struct {
	types TypeReplacer
}

// NewRewriter creates a rewriter
func NewRewriter(types TypeReplacer) *Rewriter {
	return &Rewriter{types: types}
}

// RewriteClassName rewrites the name held by a CONSTANT_Class: either an
// internal name or an array descriptor.
func (r *Rewriter) RewriteClassName(name string) string {
	if strings.HasPrefix(name, "[") {
		return r.RewriteDescriptor(name)
	}
	return r.replace(name)
}

func (r *Rewriter) replace(name string) string {
	if r.types == nil || name == "" {
		return name
	}
	if replaced, ok := r.types.ReplaceType(name); ok {
		return replaced
	}
	return name
}

// RewriteDescriptor rewrites a field or method descriptor. An unterminated
// class type is copied as is.
func (r *Rewriter) RewriteDescriptor(desc string) string {
	if strings.IndexByte(desc, 'L') < 0 {
		return desc
	}

	var sb strings.Builder
	sb.Grow(len(desc))
	for i := 0; i < len(desc); {
		c := desc[i]
		if c != 'L' {
			sb.WriteByte(c)
			i++
			continue
		}
		end := strings.IndexByte(desc[i:], ';')
		if end < 0 {
			sb.WriteString(desc[i:])
			break
		}
		sb.WriteByte('L')
		sb.WriteString(r.replace(desc[i+1 : i+end]))
		sb.WriteByte(';')
		i += end + 1
	}
	return sb.String()
}

// RewriteSignature rewrites a class, method or field signature. Input that
// does not follow the signature grammar is copied unchanged from the first
// character that could not be parsed.
func (r *Rewriter) RewriteSignature(signature string) string {
	if strings.IndexByte(signature, 'L') < 0 {
		return signature
	}
	s := &scanner{r: r, in: signature}
	s.sb.Grow(len(signature))
	if !s.signature() {
		s.sb.WriteString(s.in[s.pos:])
	}
	return s.sb.String()
}

// scanner keeps s.sb equal to the rewritten form of s.in[:s.pos]
type scanner struct {
	r   *Rewriter
	in  string
	pos int
	sb  strings.Builder
}

func (s *scanner) peek() byte {
	if s.pos < len(s.in) {
		return s.in[s.pos]
	}
	return 0
}

func (s *scanner) copyByte() {
	s.sb.WriteByte(s.in[s.pos])
	s.pos++
}

func (s *scanner) signature() bool {
	if s.peek() == '<' && !s.typeParameters() {
		return false
	}
	for s.pos < len(s.in) {
		switch s.peek() {
		case '(', ')', '^':
			s.copyByte()
		default:
			if !s.typeSignature() {
				return false
			}
		}
	}
	return true
}

// typeParameters parses <T:Lbound;U::Liface;>
func (s *scanner) typeParameters() bool {
	s.copyByte()
	for s.peek() != '>' {
		colon := strings.IndexByte(s.in[s.pos:], ':')
		if colon <= 0 {
			return false
		}
		s.sb.WriteString(s.in[s.pos : s.pos+colon])
		s.pos += colon
		for s.peek() == ':' {
			s.copyByte()
			switch s.peek() {
			case 'L', 'T', '[':
				if !s.typeSignature() {
					return false
				}
			}
		}
		if s.pos >= len(s.in) {
			return false
		}
	}
	s.copyByte()
	return true
}

func (s *scanner) typeSignature() bool {
	switch c := s.peek(); c {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 'V':
		s.copyByte()
		return true
	case '[':
		s.copyByte()
		return s.typeSignature()
	case 'T':
		end := strings.IndexByte(s.in[s.pos:], ';')
		if end < 0 {
			return false
		}
		s.sb.WriteString(s.in[s.pos : s.pos+end+1])
		s.pos += end + 1
		return true
	case 'L':
		return s.classType()
	}
	return false
}

// classType parses Lpkg/Outer<args>.Inner<args>;
func (s *scanner) classType() bool {
	s.copyByte()
	name, ok := s.identifier()
	if !ok {
		return false
	}
	replaced := s.r.replace(name)
	s.sb.WriteString(replaced)
	s.pos += len(name)

	for {
		switch s.peek() {
		case '<':
			if !s.typeArguments() {
				return false
			}
		case '.':
			s.copyByte()
			inner, ok := s.identifier()
			if !ok {
				return false
			}
			fullName := name + "$" + inner
			newFull := s.r.replace(fullName)
			newInner := inner
			if newFull != fullName && strings.HasPrefix(newFull, replaced+"$") {
				newInner = newFull[len(replaced)+1:]
			}
			s.sb.WriteString(newInner)
			s.pos += len(inner)
			name, replaced = fullName, replaced+"$"+newInner
		case ';':
			s.copyByte()
			return true
		default:
			return false
		}
	}
}

// identifier returns the name starting at s.pos without consuming it
func (s *scanner) identifier() (string, bool) {
	end := strings.IndexAny(s.in[s.pos:], ";<.")
	if end <= 0 {
		return "", false
	}
	return s.in[s.pos : s.pos+end], true
}

func (s *scanner) typeArguments() bool {
	s.copyByte()
	for s.peek() != '>' {
		switch s.peek() {
		case '*':
			s.copyByte()
		case '+', '-':
			s.copyByte()
			if !s.typeSignature() {
				return false
			}
		case 0:
			return false
		default:
			if !s.typeSignature() {
				return false
			}
		}
	}
	s.copyByte()
	return true
}
