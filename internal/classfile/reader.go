package classfile

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrBadMagic is returned when the input does not start with 0xCAFEBABE
	ErrBadMagic = errors.New("classfile: bad magic number")

	// ErrTruncated is returned when the input ends in the middle of a structure
	ErrTruncated = errors.New("classfile: unexpected end of data")
)

// reader decodes big-endian class file data. The first error sticks; all
// later reads return zero values.
type reader struct {
	data []byte
	off  int
	err  error
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.data) {
		r.fail(fmt.Errorf("%w at offset %d", ErrTruncated, r.off))
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) u1() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u2() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *reader) u4() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *reader) u8() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func (r *reader) u2s() []uint16 {
	n := int(r.u2())
	out := make([]uint16, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		out = append(out, r.u2())
	}
	return out
}

// Parse decodes a class file
func Parse(data []byte) (*Class, error) {
	r := &reader{data: data}
	if r.u4() != Magic {
		if r.err != nil {
			return nil, r.err
		}
		return nil, ErrBadMagic
	}

	c := &Class{}
	c.MinorVersion = r.u2()
	c.MajorVersion = r.u2()
	c.Pool = r.constantPool()
	if r.err != nil {
		return nil, r.err
	}

	c.AccessFlags = AccessFlags(r.u2())
	c.ThisClass = r.u2()
	c.SuperClass = r.u2()
	c.Interfaces = r.u2s()
	c.Fields = r.members(c.Pool)
	c.Methods = r.members(c.Pool)
	c.Attributes = r.attributes(c.Pool)
	if r.err != nil {
		return nil, r.err
	}
	if r.off != len(r.data) {
		return nil, fmt.Errorf("classfile: %d trailing bytes", len(r.data)-r.off)
	}
	return c, nil
}

func (r *reader) constantPool() *ConstantPool {
	count := int(r.u2())
	pool := &ConstantPool{entries: make([]Constant, 1, max(count, 1))}
	for len(pool.entries) < count && r.err == nil {
		tag := Tag(r.u1())
		var c Constant
		switch tag {
		case TagUtf8:
			n := int(r.u2())
			c = &ConstantUtf8{Value: string(r.take(n))}
		case TagInteger:
			c = &ConstantInteger{Value: int32(r.u4())}
		case TagFloat:
			c = &ConstantFloat{Bits: r.u4()}
		case TagLong:
			c = &ConstantLong{Value: int64(r.u8())}
		case TagDouble:
			c = &ConstantDouble{Bits: r.u8()}
		case TagClass:
			c = &ConstantClass{NameIndex: r.u2()}
		case TagString:
			c = &ConstantString{StringIndex: r.u2()}
		case TagFieldref, TagMethodref, TagInterfaceMethodref:
			c = &ConstantRef{RefTag: tag, ClassIndex: r.u2(), NameAndTypeIndex: r.u2()}
		case TagNameAndType:
			c = &ConstantNameAndType{NameIndex: r.u2(), DescriptorIndex: r.u2()}
		case TagMethodHandle:
			c = &ConstantMethodHandle{ReferenceKind: r.u1(), ReferenceIndex: r.u2()}
		case TagMethodType:
			c = &ConstantMethodType{DescriptorIndex: r.u2()}
		case TagDynamic, TagInvokeDynamic:
			c = &ConstantDynamic{DynTag: tag, BootstrapMethodAttrIndex: r.u2(), NameAndTypeIndex: r.u2()}
		case TagModule:
			c = &ConstantModule{NameIndex: r.u2()}
		case TagPackage:
			c = &ConstantPackage{NameIndex: r.u2()}
		default:
			r.fail(fmt.Errorf("classfile: unknown constant tag %d at index %d", tag, len(pool.entries)))
			return pool
		}
		pool.entries = append(pool.entries, c)
		if isWide(c) {
			pool.entries = append(pool.entries, nil)
		}
	}
	return pool
}

func (r *reader) members(pool *ConstantPool) []*Member {
	n := int(r.u2())
	members := make([]*Member, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		m := &Member{
			AccessFlags:     AccessFlags(r.u2()),
			NameIndex:       r.u2(),
			DescriptorIndex: r.u2(),
		}
		m.Attributes = r.attributes(pool)
		members = append(members, m)
	}
	return members
}

func (r *reader) attributes(pool *ConstantPool) []Attribute {
	n := int(r.u2())
	attrs := make([]Attribute, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		nameIndex := r.u2()
		length := int(r.u4())
		body := r.take(length)
		if r.err != nil {
			break
		}
		attr, err := parseAttribute(pool, nameIndex, body)
		if err != nil {
			r.fail(fmt.Errorf("classfile: attribute %q: %w", pool.Utf8(nameIndex), err))
			break
		}
		attrs = append(attrs, attr)
	}
	return attrs
}

func parseAttribute(pool *ConstantPool, nameIndex uint16, body []byte) (Attribute, error) {
	r := &reader{data: body}
	var attr Attribute

	switch pool.Utf8(nameIndex) {
	case AttrSignature:
		attr = &SignatureAttribute{NameIndex: nameIndex, SignatureIndex: r.u2()}
	case AttrCode:
		code := &CodeAttribute{NameIndex: nameIndex, MaxStack: r.u2(), MaxLocals: r.u2()}
		code.Code = append([]byte(nil), r.take(int(r.u4()))...)
		n := int(r.u2())
		for i := 0; i < n && r.err == nil; i++ {
			code.ExceptionTable = append(code.ExceptionTable, ExceptionHandler{
				StartPC:   r.u2(),
				EndPC:     r.u2(),
				HandlerPC: r.u2(),
				CatchType: r.u2(),
			})
		}
		code.Attributes = r.attributes(pool)
		attr = code
	case AttrExceptions:
		attr = &ExceptionsAttribute{NameIndex: nameIndex, ExceptionIndexes: r.u2s()}
	case AttrLocalVariableTable:
		table := &LocalVariableTableAttribute{NameIndex: nameIndex}
		n := int(r.u2())
		for i := 0; i < n && r.err == nil; i++ {
			table.Entries = append(table.Entries, LocalVariable{
				StartPC:         r.u2(),
				Length:          r.u2(),
				NameIndex:       r.u2(),
				DescriptorIndex: r.u2(),
				Index:           r.u2(),
			})
		}
		attr = table
	case AttrLocalVariableTypeTable:
		table := &LocalVariableTypeTableAttribute{NameIndex: nameIndex}
		n := int(r.u2())
		for i := 0; i < n && r.err == nil; i++ {
			table.Entries = append(table.Entries, LocalVariableType{
				StartPC:        r.u2(),
				Length:         r.u2(),
				NameIndex:      r.u2(),
				SignatureIndex: r.u2(),
				Index:          r.u2(),
			})
		}
		attr = table
	case AttrRuntimeVisibleAnnotations, AttrRuntimeInvisibleAnnotations:
		attr = &AnnotationsAttribute{NameIndex: nameIndex, Annotations: r.annotations()}
	case AttrRuntimeVisibleParameterAnnotations, AttrRuntimeInvisibleParameterAnnotations:
		params := &ParameterAnnotationsAttribute{NameIndex: nameIndex}
		n := int(r.u1())
		for i := 0; i < n && r.err == nil; i++ {
			params.Parameters = append(params.Parameters, r.annotations())
		}
		attr = params
	case AttrRuntimeVisibleTypeAnnotations, AttrRuntimeInvisibleTypeAnnotations:
		typeAnns := &TypeAnnotationsAttribute{NameIndex: nameIndex}
		n := int(r.u2())
		for i := 0; i < n && r.err == nil; i++ {
			typeAnns.Annotations = append(typeAnns.Annotations, r.typeAnnotation())
		}
		attr = typeAnns
	case AttrAnnotationDefault:
		attr = &AnnotationDefaultAttribute{NameIndex: nameIndex, Default: r.elementValue()}
	case AttrEnclosingMethod:
		attr = &EnclosingMethodAttribute{NameIndex: nameIndex, ClassIndex: r.u2(), MethodIndex: r.u2()}
	case AttrInnerClasses:
		inner := &InnerClassesAttribute{NameIndex: nameIndex}
		n := int(r.u2())
		for i := 0; i < n && r.err == nil; i++ {
			inner.Classes = append(inner.Classes, InnerClass{
				InnerClassIndex:  r.u2(),
				OuterClassIndex:  r.u2(),
				InnerNameIndex:   r.u2(),
				InnerAccessFlags: AccessFlags(r.u2()),
			})
		}
		attr = inner
	case AttrRecord:
		record := &RecordAttribute{NameIndex: nameIndex}
		n := int(r.u2())
		for i := 0; i < n && r.err == nil; i++ {
			component := &RecordComponent{NameIndex: r.u2(), DescriptorIndex: r.u2()}
			component.Attributes = r.attributes(pool)
			record.Components = append(record.Components, component)
		}
		attr = record
	default:
		return &RawAttribute{NameIndex: nameIndex, Data: append([]byte(nil), body...)}, nil
	}

	if r.err != nil {
		return nil, r.err
	}
	if r.off != len(body) {
		return nil, fmt.Errorf("%d unread bytes", len(body)-r.off)
	}
	return attr, nil
}

func (r *reader) annotations() []*Annotation {
	n := int(r.u2())
	out := make([]*Annotation, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		out = append(out, r.annotation())
	}
	return out
}

func (r *reader) annotation() *Annotation {
	a := &Annotation{TypeIndex: r.u2()}
	n := int(r.u2())
	for i := 0; i < n && r.err == nil; i++ {
		a.Elements = append(a.Elements, ElementValuePair{NameIndex: r.u2(), Value: r.elementValue()})
	}
	return a
}

func (r *reader) typeAnnotation() *TypeAnnotation {
	t := &TypeAnnotation{TargetType: r.u1()}
	start := r.off
	switch t.TargetType {
	case 0x00, 0x01, 0x16: // type parameter, formal parameter
		r.take(1)
	case 0x10, 0x17, 0x42, 0x43, 0x44, 0x45, 0x46: // supertype, throws, catch, offset
		r.take(2)
	case 0x11, 0x12: // type parameter bound
		r.take(2)
	case 0x13, 0x14, 0x15: // empty
	case 0x40, 0x41: // local variable table
		r.take(6 * int(r.u2()))
	case 0x47, 0x48, 0x49, 0x4A, 0x4B: // type argument
		r.take(3)
	default:
		r.fail(fmt.Errorf("unknown type annotation target 0x%02x", t.TargetType))
	}
	if r.err != nil {
		return t
	}
	t.TargetInfo = append([]byte(nil), r.data[start:r.off]...)
	t.TypePath = append([]byte(nil), r.take(2*int(r.u1()))...)
	t.Annotation = r.annotation()
	return t
}

func (r *reader) elementValue() ElementValue {
	tag := r.u1()
	switch tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's':
		return &ConstElementValue{Kind: tag, ConstIndex: r.u2()}
	case 'e':
		return &EnumElementValue{TypeNameIndex: r.u2(), ConstNameIndex: r.u2()}
	case 'c':
		return &ClassElementValue{ClassInfoIndex: r.u2()}
	case '@':
		return &AnnotationElementValue{Annotation: r.annotation()}
	case '[':
		n := int(r.u2())
		arr := &ArrayElementValue{Values: make([]ElementValue, 0, n)}
		for i := 0; i < n && r.err == nil; i++ {
			arr.Values = append(arr.Values, r.elementValue())
		}
		return arr
	default:
		if r.err == nil {
			r.fail(fmt.Errorf("classfile: unknown element value tag %q", tag))
		}
		return nil
	}
}
