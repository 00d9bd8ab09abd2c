package classfile

import (
	"encoding/binary"
	"fmt"
	"math"
)

// writer appends big-endian class file data
type writer struct {
	buf []byte
}

func (w *writer) u1(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *writer) u2(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

func (w *writer) u4(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

func (w *writer) u8(v uint64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
}

func (w *writer) u2s(vs []uint16) error {
	if len(vs) > math.MaxUint16 {
		return fmt.Errorf("classfile: table of %d entries is too large", len(vs))
	}
	w.u2(uint16(len(vs)))
	for _, v := range vs {
		w.u2(v)
	}
	return nil
}

// Bytes encodes the class file
func (c *Class) Bytes() ([]byte, error) {
	w := &writer{buf: make([]byte, 0, 4096)}
	w.u4(Magic)
	w.u2(c.MinorVersion)
	w.u2(c.MajorVersion)
	if err := w.constantPool(c.Pool); err != nil {
		return nil, err
	}
	w.u2(uint16(c.AccessFlags))
	w.u2(c.ThisClass)
	w.u2(c.SuperClass)
	if err := w.u2s(c.Interfaces); err != nil {
		return nil, err
	}
	if err := w.members(c.Fields); err != nil {
		return nil, err
	}
	if err := w.members(c.Methods); err != nil {
		return nil, err
	}
	if err := w.attributes(c.Attributes); err != nil {
		return nil, err
	}
	return w.buf, nil
}

func (w *writer) constantPool(p *ConstantPool) error {
	w.u2(uint16(p.Count()))
	for i := 1; i < len(p.entries); i++ {
		c := p.entries[i]
		if c == nil {
			prev := p.entries[i-1]
			if prev != nil && isWide(prev) {
				continue
			}
			return fmt.Errorf("classfile: empty constant pool slot %d", i)
		}
		w.u1(uint8(c.Tag()))
		switch c := c.(type) {
		case *ConstantUtf8:
			if len(c.Value) > math.MaxUint16 {
				return fmt.Errorf("classfile: Utf8 constant %d is too long", i)
			}
			w.u2(uint16(len(c.Value)))
			w.buf = append(w.buf, c.Value...)
		case *ConstantInteger:
			w.u4(uint32(c.Value))
		case *ConstantFloat:
			w.u4(c.Bits)
		case *ConstantLong:
			w.u8(uint64(c.Value))
		case *ConstantDouble:
			w.u8(c.Bits)
		case *ConstantClass:
			w.u2(c.NameIndex)
		case *ConstantString:
			w.u2(c.StringIndex)
		case *ConstantRef:
			w.u2(c.ClassIndex)
			w.u2(c.NameAndTypeIndex)
		case *ConstantNameAndType:
			w.u2(c.NameIndex)
			w.u2(c.DescriptorIndex)
		case *ConstantMethodHandle:
			w.u1(c.ReferenceKind)
			w.u2(c.ReferenceIndex)
		case *ConstantMethodType:
			w.u2(c.DescriptorIndex)
		case *ConstantDynamic:
			w.u2(c.BootstrapMethodAttrIndex)
			w.u2(c.NameAndTypeIndex)
		case *ConstantModule:
			w.u2(c.NameIndex)
		case *ConstantPackage:
			w.u2(c.NameIndex)
		}
	}
	return nil
}

func (w *writer) members(members []*Member) error {
	w.u2(uint16(len(members)))
	for _, m := range members {
		w.u2(uint16(m.AccessFlags))
		w.u2(m.NameIndex)
		w.u2(m.DescriptorIndex)
		if err := w.attributes(m.Attributes); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) attributes(attrs []Attribute) error {
	w.u2(uint16(len(attrs)))
	for _, a := range attrs {
		body := &writer{}
		if err := body.attributeBody(a); err != nil {
			return err
		}
		if uint64(len(body.buf)) > math.MaxUint32 {
			return fmt.Errorf("classfile: attribute %d is too large", a.AttributeNameIndex())
		}
		w.u2(a.AttributeNameIndex())
		w.u4(uint32(len(body.buf)))
		w.buf = append(w.buf, body.buf...)
	}
	return nil
}

func (w *writer) attributeBody(a Attribute) error {
	switch a := a.(type) {
	case *RawAttribute:
		w.buf = append(w.buf, a.Data...)
	case *SignatureAttribute:
		w.u2(a.SignatureIndex)
	case *CodeAttribute:
		w.u2(a.MaxStack)
		w.u2(a.MaxLocals)
		w.u4(uint32(len(a.Code)))
		w.buf = append(w.buf, a.Code...)
		w.u2(uint16(len(a.ExceptionTable)))
		for _, h := range a.ExceptionTable {
			w.u2(h.StartPC)
			w.u2(h.EndPC)
			w.u2(h.HandlerPC)
			w.u2(h.CatchType)
		}
		return w.attributes(a.Attributes)
	case *ExceptionsAttribute:
		return w.u2s(a.ExceptionIndexes)
	case *LocalVariableTableAttribute:
		w.u2(uint16(len(a.Entries)))
		for _, e := range a.Entries {
			w.u2(e.StartPC)
			w.u2(e.Length)
			w.u2(e.NameIndex)
			w.u2(e.DescriptorIndex)
			w.u2(e.Index)
		}
	case *LocalVariableTypeTableAttribute:
		w.u2(uint16(len(a.Entries)))
		for _, e := range a.Entries {
			w.u2(e.StartPC)
			w.u2(e.Length)
			w.u2(e.NameIndex)
			w.u2(e.SignatureIndex)
			w.u2(e.Index)
		}
	case *AnnotationsAttribute:
		w.annotations(a.Annotations)
	case *ParameterAnnotationsAttribute:
		if len(a.Parameters) > math.MaxUint8 {
			return fmt.Errorf("classfile: %d annotated parameters", len(a.Parameters))
		}
		w.u1(uint8(len(a.Parameters)))
		for _, p := range a.Parameters {
			w.annotations(p)
		}
	case *TypeAnnotationsAttribute:
		w.u2(uint16(len(a.Annotations)))
		for _, t := range a.Annotations {
			if len(t.TypePath) > 2*math.MaxUint8 || len(t.TypePath)%2 != 0 {
				return fmt.Errorf("classfile: type path of %d bytes", len(t.TypePath))
			}
			w.u1(t.TargetType)
			w.buf = append(w.buf, t.TargetInfo...)
			w.u1(uint8(len(t.TypePath) / 2))
			w.buf = append(w.buf, t.TypePath...)
			w.annotation(t.Annotation)
		}
	case *AnnotationDefaultAttribute:
		w.elementValue(a.Default)
	case *EnclosingMethodAttribute:
		w.u2(a.ClassIndex)
		w.u2(a.MethodIndex)
	case *InnerClassesAttribute:
		w.u2(uint16(len(a.Classes)))
		for _, ic := range a.Classes {
			w.u2(ic.InnerClassIndex)
			w.u2(ic.OuterClassIndex)
			w.u2(ic.InnerNameIndex)
			w.u2(uint16(ic.InnerAccessFlags))
		}
	case *RecordAttribute:
		w.u2(uint16(len(a.Components)))
		for _, rc := range a.Components {
			w.u2(rc.NameIndex)
			w.u2(rc.DescriptorIndex)
			if err := w.attributes(rc.Attributes); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *writer) annotations(annotations []*Annotation) {
	w.u2(uint16(len(annotations)))
	for _, a := range annotations {
		w.annotation(a)
	}
}

func (w *writer) annotation(a *Annotation) {
	w.u2(a.TypeIndex)
	w.u2(uint16(len(a.Elements)))
	for _, e := range a.Elements {
		w.u2(e.NameIndex)
		w.elementValue(e.Value)
	}
}

func (w *writer) elementValue(v ElementValue) {
	w.u1(v.ElementTag())
	switch v := v.(type) {
	case *ConstElementValue:
		w.u2(v.ConstIndex)
	case *EnumElementValue:
		w.u2(v.TypeNameIndex)
		w.u2(v.ConstNameIndex)
	case *ClassElementValue:
		w.u2(v.ClassInfoIndex)
	case *AnnotationElementValue:
		w.annotation(v.Annotation)
	case *ArrayElementValue:
		w.u2(uint16(len(v.Values)))
		for _, e := range v.Values {
			w.elementValue(e)
		}
	}
}
