// Package classfiletest builds small classes for tests.
package classfiletest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/backport/internal/classfile"
)

// Builder assembles a class constant by constant
type Builder struct {
	t     testing.TB
	class *classfile.Class
}

// NewClass starts a public class with the given name and superclass. An
// empty super leaves super_class at 0.
func NewClass(t testing.TB, name, super string) *Builder {
	t.Helper()
	b := &Builder{t: t, class: &classfile.Class{
		MajorVersion: 52,
		Pool:         classfile.NewConstantPool(),
		AccessFlags:  classfile.AccPublic | classfile.AccSuper,
	}}
	b.class.ThisClass = b.ClassRef(name)
	if super != "" {
		b.class.SuperClass = b.ClassRef(super)
	}
	return b
}

func (b *Builder) must(i uint16, err error) uint16 {
	b.t.Helper()
	require.NoError(b.t, err)
	return i
}

// Access sets the class access flags
func (b *Builder) Access(flags classfile.AccessFlags) *Builder {
	b.class.AccessFlags = flags
	return b
}

// Interface adds a direct superinterface
func (b *Builder) Interface(name string) *Builder {
	b.class.Interfaces = append(b.class.Interfaces, b.ClassRef(name))
	return b
}

// Utf8 returns the index of a Utf8 constant
func (b *Builder) Utf8(s string) uint16 {
	return b.must(b.class.Pool.AddUtf8(s))
}

// ClassRef returns the index of a Class constant
func (b *Builder) ClassRef(name string) uint16 {
	return b.must(b.class.Pool.AddClass(name))
}

// Ref returns the index of a field or method reference
func (b *Builder) Ref(tag classfile.Tag, class, name, descriptor string) uint16 {
	return b.must(b.class.Pool.AddRef(tag, class, name, descriptor))
}

// Constant appends an arbitrary constant
func (b *Builder) Constant(c classfile.Constant) uint16 {
	return b.must(b.class.Pool.Append(c))
}

// Field adds a field
func (b *Builder) Field(access classfile.AccessFlags, name, descriptor string, attrs ...classfile.Attribute) *Builder {
	b.class.Fields = append(b.class.Fields, b.member(access, name, descriptor, attrs))
	return b
}

// Method adds a method
func (b *Builder) Method(access classfile.AccessFlags, name, descriptor string, attrs ...classfile.Attribute) *Builder {
	b.class.Methods = append(b.class.Methods, b.member(access, name, descriptor, attrs))
	return b
}

func (b *Builder) member(access classfile.AccessFlags, name, descriptor string, attrs []classfile.Attribute) *classfile.Member {
	return &classfile.Member{
		AccessFlags:     access,
		NameIndex:       b.Utf8(name),
		DescriptorIndex: b.Utf8(descriptor),
		Attributes:      attrs,
	}
}

// ClassAttribute adds a class-level attribute
func (b *Builder) ClassAttribute(a classfile.Attribute) *Builder {
	b.class.Attributes = append(b.class.Attributes, a)
	return b
}

// Signature creates a Signature attribute
func (b *Builder) Signature(signature string) *classfile.SignatureAttribute {
	return &classfile.SignatureAttribute{
		NameIndex:      b.Utf8(classfile.AttrSignature),
		SignatureIndex: b.Utf8(signature),
	}
}

// Code creates a Code attribute around the given bytecode
func (b *Builder) Code(code []byte, attrs ...classfile.Attribute) *classfile.CodeAttribute {
	return &classfile.CodeAttribute{
		NameIndex:  b.Utf8(classfile.AttrCode),
		MaxStack:   4,
		MaxLocals:  4,
		Code:       code,
		Attributes: attrs,
	}
}

// Annotations creates a RuntimeVisibleAnnotations attribute
func (b *Builder) Annotations(annotations ...*classfile.Annotation) *classfile.AnnotationsAttribute {
	return &classfile.AnnotationsAttribute{
		NameIndex:   b.Utf8(classfile.AttrRuntimeVisibleAnnotations),
		Annotations: annotations,
	}
}

// TypeAnnotations creates a RuntimeVisibleTypeAnnotations attribute
func (b *Builder) TypeAnnotations(annotations ...*classfile.TypeAnnotation) *classfile.TypeAnnotationsAttribute {
	return &classfile.TypeAnnotationsAttribute{
		NameIndex:   b.Utf8(classfile.AttrRuntimeVisibleTypeAnnotations),
		Annotations: annotations,
	}
}

// Build returns the class
func (b *Builder) Build() *classfile.Class {
	return b.class
}

// Bytes returns the encoded class
func (b *Builder) Bytes() []byte {
	b.t.Helper()
	data, err := b.class.Bytes()
	require.NoError(b.t, err)
	return data
}

// Op3 encodes a three-byte instruction carrying a constant index
func Op3(op classfile.Opcode, index uint16) []byte {
	return []byte{byte(op), byte(index >> 8), byte(index)}
}

// InvokeInterface encodes an invokeinterface instruction
func InvokeInterface(index uint16, count byte) []byte {
	return []byte{byte(classfile.OpInvokeInterface), byte(index >> 8), byte(index), count, 0}
}

// Concat joins instruction encodings into one code array
func Concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
