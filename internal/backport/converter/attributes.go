package converter

import "github.com/conduit-lang/backport/internal/classfile"

func (s *conversion) convertMember(m *classfile.Member, method bool) {
	s.rewriteIndex(&m.DescriptorIndex, s.rewriter.RewriteDescriptor)
	if method {
		if code := m.Code(); code != nil {
			s.convertCode(m, code)
			s.convertAttributes(code.Attributes)
		}
	}
	s.convertAttributes(m.Attributes)
}

// convertAttributes rewrites the type information held by attributes.
// Class constants referenced from attributes were rewritten with the pool.
func (s *conversion) convertAttributes(attrs []classfile.Attribute) {
	for _, a := range attrs {
		switch a := a.(type) {
		case *classfile.SignatureAttribute:
			s.rewriteIndex(&a.SignatureIndex, s.rewriter.RewriteSignature)
		case *classfile.AnnotationsAttribute:
			for _, ann := range a.Annotations {
				s.convertAnnotation(ann)
			}
		case *classfile.ParameterAnnotationsAttribute:
			for _, param := range a.Parameters {
				for _, ann := range param {
					s.convertAnnotation(ann)
				}
			}
		case *classfile.TypeAnnotationsAttribute:
			for _, t := range a.Annotations {
				s.convertAnnotation(t.Annotation)
			}
		case *classfile.AnnotationDefaultAttribute:
			s.convertElementValue(a.Default)
		case *classfile.EnclosingMethodAttribute:
			s.convertEnclosingMethod(a)
		case *classfile.RecordAttribute:
			for _, comp := range a.Components {
				s.rewriteIndex(&comp.DescriptorIndex, s.rewriter.RewriteDescriptor)
				s.convertAttributes(comp.Attributes)
			}
		case *classfile.LocalVariableTableAttribute:
			a.EntriesAccept(s.convertLocalVariable)
		case *classfile.LocalVariableTypeTableAttribute:
			a.EntriesAccept(s.convertLocalVariableType)
		case *classfile.CodeAttribute:
			// visited with its method
		case *classfile.ExceptionsAttribute, *classfile.InnerClassesAttribute, *classfile.RawAttribute:
			// class constants only, or nothing to rewrite
		}
	}
}

func (s *conversion) convertLocalVariable(lv *classfile.LocalVariable) {
	s.rewriteIndex(&lv.DescriptorIndex, s.rewriter.RewriteDescriptor)
}

func (s *conversion) convertLocalVariableType(lvt *classfile.LocalVariableType) {
	s.rewriteIndex(&lvt.SignatureIndex, s.rewriter.RewriteSignature)
}

func (s *conversion) convertEnclosingMethod(a *classfile.EnclosingMethodAttribute) {
	if a.MethodIndex == 0 {
		return
	}
	name, desc := s.pool.NameAndType(a.MethodIndex)
	newDesc := s.rewriter.RewriteDescriptor(desc)
	if newDesc == desc {
		return
	}
	if nat, ok := s.addNameAndType(name, newDesc); ok {
		a.MethodIndex = nat
		s.changed = true
	}
}

func (s *conversion) convertAnnotation(ann *classfile.Annotation) {
	s.rewriteIndex(&ann.TypeIndex, s.rewriter.RewriteDescriptor)
	for i := range ann.Elements {
		s.convertElementValue(ann.Elements[i].Value)
	}
}

func (s *conversion) convertElementValue(v classfile.ElementValue) {
	switch v := v.(type) {
	case *classfile.EnumElementValue:
		s.rewriteIndex(&v.TypeNameIndex, s.rewriter.RewriteDescriptor)
	case *classfile.ClassElementValue:
		s.rewriteIndex(&v.ClassInfoIndex, s.rewriter.RewriteDescriptor)
	case *classfile.AnnotationElementValue:
		s.convertAnnotation(v.Annotation)
	case *classfile.ArrayElementValue:
		for _, elem := range v.Values {
			s.convertElementValue(elem)
		}
	case *classfile.ConstElementValue:
	}
}
