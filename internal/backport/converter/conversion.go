package converter

import (
	"strings"

	"github.com/conduit-lang/backport/internal/backport/descriptor"
	"github.com/conduit-lang/backport/internal/backport/replace"
	"github.com/conduit-lang/backport/internal/classfile"
	"github.com/conduit-lang/backport/internal/diagnostics"
)

// conversion is the state of one Convert call
type conversion struct {
	*Converter

	class   *classfile.Class
	pool    *classfile.ConstantPool
	name    string
	changed bool

	// method reference index -> used by a static / non-static call site
	staticCalls   map[uint16]bool
	instanceCalls map[uint16]bool
	// method references whose calls become invokestatic
	toStatic map[uint16]bool
	// constants used directly as instruction operands
	codeConstants map[uint16]bool
	// class slots that owned a reference redirected by a method rule
	redirected map[uint16]bool
	// unchanged class constants, checked once every reference is converted
	classChecks []pending
}

// scanCallSites records how every method reference is invoked, so that
// the modifiers of methods missing from the class pools can be inferred,
// and which constants the bytecode uses directly.
func (s *conversion) scanCallSites() {
	for _, m := range s.class.Methods {
		code := m.Code()
		if code == nil {
			continue
		}
		// Malformed code is reported by the code pass
		_ = code.InstructionsAccept(func(in classfile.Instruction) {
			index, ok := in.ConstantIndex(code.Code)
			if !ok {
				return
			}
			if !in.Opcode.IsInvoke() {
				s.codeConstants[index] = true
				return
			}
			if in.Opcode == classfile.OpInvokeStatic {
				s.staticCalls[index] = true
			} else {
				s.instanceCalls[index] = true
			}
		})
	}

	s.pool.Each(func(_ uint16, c classfile.Constant) {
		mh, ok := c.(*classfile.ConstantMethodHandle)
		if !ok {
			return
		}
		switch mh.ReferenceKind {
		case classfile.RefInvokeStatic:
			s.staticCalls[mh.ReferenceIndex] = true
		case classfile.RefInvokeVirtual, classfile.RefInvokeSpecial, classfile.RefInvokeInterface, classfile.RefNewInvokeSpecial:
			s.instanceCalls[mh.ReferenceIndex] = true
		}
	})
}

// pending is a constant captured before the pool is modified
type pending struct {
	index uint16
	c     classfile.Constant
	class string
	name  string
	desc  string
}

// convertConstants rewrites the constant pool. Every entry is read before
// any is changed, so the order of the pool does not matter.
func (s *conversion) convertConstants() {
	var work []pending
	s.pool.Each(func(i uint16, c classfile.Constant) {
		p := pending{index: i, c: c}
		switch c := c.(type) {
		case *classfile.ConstantClass:
			p.class = s.pool.Utf8(c.NameIndex)
		case *classfile.ConstantRef:
			p.class, p.name, p.desc = s.pool.RefInfo(i)
		case *classfile.ConstantMethodType:
			p.desc = s.pool.Utf8(c.DescriptorIndex)
		case *classfile.ConstantDynamic:
			p.name, p.desc = s.pool.NameAndType(c.NameAndTypeIndex)
		default:
			return
		}
		work = append(work, p)
	})

	for _, p := range work {
		switch c := p.c.(type) {
		case *classfile.ConstantClass:
			s.convertClassConstant(p.index, p.class)
		case *classfile.ConstantRef:
			if c.RefTag == classfile.TagFieldref {
				s.convertFieldRef(p.index, c, p.class, p.name, p.desc)
			} else {
				s.convertMethodRef(p.index, c, p.class, p.name, p.desc)
			}
		case *classfile.ConstantMethodType:
			if idx, ok := s.rewriteUtf8(c.DescriptorIndex, p.desc, s.rewriter.RewriteDescriptor); ok {
				s.pool.Set(p.index, &classfile.ConstantMethodType{DescriptorIndex: idx})
			}
		case *classfile.ConstantDynamic:
			newDesc := s.rewriter.RewriteDescriptor(p.desc)
			if newDesc == p.desc {
				continue
			}
			if nat, ok := s.addNameAndType(p.name, newDesc); ok {
				s.pool.Set(p.index, &classfile.ConstantDynamic{
					DynTag:                   c.DynTag,
					BootstrapMethodAttrIndex: c.BootstrapMethodAttrIndex,
					NameAndTypeIndex:         nat,
				})
				s.changed = true
			}
		}
	}

	s.convertMethodHandles()
	s.checkClassConstants()
}

func (s *conversion) convertClassConstant(index uint16, name string) {
	if index == s.class.ThisClass {
		return
	}
	newName := s.rewriter.RewriteClassName(name)
	if newName == name {
		s.classChecks = append(s.classChecks, pending{index: index, class: name})
		return
	}
	nameIndex, ok := s.addUtf8(newName)
	if !ok {
		return
	}
	s.pool.Set(index, &classfile.ConstantClass{NameIndex: nameIndex})
	s.changed = true
}

func (s *conversion) convertFieldRef(index uint16, ref *classfile.ConstantRef, owner, name, desc string) {
	newDesc := s.rewriter.RewriteDescriptor(desc)
	if newDesc == desc {
		if s.rewriter.RewriteClassName(owner) == owner {
			s.checkMember(owner, name, desc, true)
		}
		return
	}
	// The owner's Class slot is rewritten in place by convertClassConstant
	nat, ok := s.addNameAndType(name, newDesc)
	if !ok {
		return
	}
	s.pool.Set(index, &classfile.ConstantRef{RefTag: ref.RefTag, ClassIndex: ref.ClassIndex, NameAndTypeIndex: nat})
	s.changed = true
}

func (s *conversion) convertMethodRef(index uint16, ref *classfile.ConstantRef, owner, name, desc string) {
	static := s.staticCalls[index] && !s.instanceCalls[index]
	access, found, _ := s.hierarchy.resolve(owner, name, desc, false)
	if !found {
		access = 0
		if static {
			access = classfile.AccStatic
		}
	}

	if m := s.registry.FindMethodReplacement(owner, name, desc, access); m != nil {
		s.applyMethodMatch(index, ref, owner, name, desc, access, m)
		return
	}

	newDesc := s.rewriter.RewriteDescriptor(desc)
	if newDesc == desc {
		if s.rewriter.RewriteClassName(owner) == owner {
			s.checkMember(owner, name, desc, false)
		}
		return
	}
	nat, ok := s.addNameAndType(name, newDesc)
	if !ok {
		return
	}
	s.pool.Set(index, &classfile.ConstantRef{RefTag: ref.RefTag, ClassIndex: ref.ClassIndex, NameAndTypeIndex: nat})
	s.changed = true
}

func (s *conversion) applyMethodMatch(index uint16, ref *classfile.ConstantRef, owner, name, desc string, access classfile.AccessFlags, m *replace.MethodMatch) {
	member := name + " " + desc

	if m.ToStatic && name == "<init>" {
		s.warn(diagnostics.NewWarning(diagnostics.WarnUnsupportedCallKind, s.name, owner, member,
			"can't turn a constructor call into a static call"))
		return
	}
	if access.Has(classfile.AccStatic) {
		targetAccess, found, _ := s.hierarchy.resolve(m.Class, m.Name, m.Descriptor, false)
		if found && !targetAccess.Has(classfile.AccStatic) {
			s.warn(diagnostics.NewWarning(diagnostics.WarnUnsupportedCallKind, s.name, owner, member,
				"can't turn a static call into an instance call to "+m.Class+"."+m.Name))
			return
		}
	}

	// Type rules apply to the target too, so that the class slot agrees
	// with the one the constant pass produces for the same name
	target := s.rewriter.RewriteClassName(m.Class)
	tag := ref.RefTag
	if m.ToStatic {
		tag = classfile.TagMethodref
		if info, ok := s.hierarchy.class(target); ok && info.isInterface {
			tag = classfile.TagInterfaceMethodref
		}
	}
	newDesc := s.rewriter.RewriteDescriptor(m.Descriptor)
	if target == owner && m.Name == name && newDesc == desc && tag == ref.RefTag && !m.ToStatic {
		return
	}

	classIndex, ok := s.addClass(target)
	if !ok {
		return
	}
	if classIndex != ref.ClassIndex {
		s.redirected[ref.ClassIndex] = true
	}
	nat, ok := s.addNameAndType(m.Name, newDesc)
	if !ok {
		return
	}
	s.pool.Set(index, &classfile.ConstantRef{RefTag: tag, ClassIndex: classIndex, NameAndTypeIndex: nat})
	if m.ToStatic {
		s.toStatic[index] = true
	}
	s.changed = true
}

// convertMethodHandles turns handles on references that became static
// into static handles.
func (s *conversion) convertMethodHandles() {
	if len(s.toStatic) == 0 {
		return
	}
	s.pool.Each(func(i uint16, c classfile.Constant) {
		mh, ok := c.(*classfile.ConstantMethodHandle)
		if !ok || !s.toStatic[mh.ReferenceIndex] {
			return
		}
		switch mh.ReferenceKind {
		case classfile.RefInvokeVirtual, classfile.RefInvokeSpecial, classfile.RefInvokeInterface:
			s.pool.Set(i, &classfile.ConstantMethodHandle{
				ReferenceKind:  classfile.RefInvokeStatic,
				ReferenceIndex: mh.ReferenceIndex,
			})
			s.changed = true
		}
	})
}

// convertCode patches the call sites of references that became static and
// runs the extra instruction visitor.
func (s *conversion) convertCode(method *classfile.Member, code *classfile.CodeAttribute) {
	err := code.InstructionsAccept(func(in classfile.Instruction) {
		if in.Opcode.IsInvoke() && in.Opcode != classfile.OpInvokeStatic {
			if index, _ := in.ConstantIndex(code.Code); s.toStatic[index] {
				code.Code[in.Offset] = byte(classfile.OpInvokeStatic)
				if in.Opcode == classfile.OpInvokeInterface {
					// invokestatic is two bytes shorter than invokeinterface
					code.Code[in.Offset+3] = byte(classfile.OpNop)
					code.Code[in.Offset+4] = byte(classfile.OpNop)
				}
				s.changed = true
			}
		}
		if s.extra != nil {
			s.extra.VisitInstruction(s.class, method, code, in)
		}
	})
	if err != nil {
		s.warn(diagnostics.NewWarning(diagnostics.WarnMalformedCode, s.name, s.name,
			method.Name(s.pool)+" "+method.Descriptor(s.pool), err.Error()))
	}
}

// checkClassConstants reports unchanged class constants that are missing.
// A slot whose references were all redirected by method rules is no
// longer used and is not reported.
func (s *conversion) checkClassConstants() {
	var live map[uint16]bool
	if len(s.redirected) > 0 {
		live = s.liveClassSlots()
	}
	for _, p := range s.classChecks {
		if s.redirected[p.index] && !live[p.index] {
			continue
		}
		s.checkClass(p.class)
	}
}

// liveClassSlots returns the class constants still used by a reference,
// an instruction, the class header or an attribute
func (s *conversion) liveClassSlots() map[uint16]bool {
	live := make(map[uint16]bool)
	for index := range s.codeConstants {
		live[index] = true
	}
	s.pool.Each(func(_ uint16, c classfile.Constant) {
		if ref, ok := c.(*classfile.ConstantRef); ok {
			live[ref.ClassIndex] = true
		}
	})
	live[s.class.SuperClass] = true
	for _, i := range s.class.Interfaces {
		live[i] = true
	}
	markAttributeClasses(live, s.class.Attributes)
	for _, f := range s.class.Fields {
		markAttributeClasses(live, f.Attributes)
	}
	for _, m := range s.class.Methods {
		markAttributeClasses(live, m.Attributes)
	}
	return live
}

func markAttributeClasses(live map[uint16]bool, attrs []classfile.Attribute) {
	for _, a := range attrs {
		switch a := a.(type) {
		case *classfile.CodeAttribute:
			for _, h := range a.ExceptionTable {
				live[h.CatchType] = true
			}
			markAttributeClasses(live, a.Attributes)
		case *classfile.ExceptionsAttribute:
			for _, i := range a.ExceptionIndexes {
				live[i] = true
			}
		case *classfile.InnerClassesAttribute:
			for _, ic := range a.Classes {
				live[ic.InnerClassIndex] = true
				live[ic.OuterClassIndex] = true
			}
		case *classfile.EnclosingMethodAttribute:
			live[a.ClassIndex] = true
		case *classfile.RecordAttribute:
			for _, comp := range a.Components {
				markAttributeClasses(live, comp.Attributes)
			}
		}
	}
}

func (s *conversion) checkClass(name string) {
	if !s.checkMissing {
		return
	}
	names := []string{name}
	if strings.HasPrefix(name, "[") {
		names = descriptor.ClassNames(name)
	}
	for _, n := range names {
		if n == s.name || s.hierarchy.exists(n) {
			continue
		}
		s.reportMissing(diagnostics.WarnMissingClass, s.registry.Missing(n, "", ""), "can't find referenced class")
	}
}

func (s *conversion) checkMember(owner, name, desc string, field bool) {
	if !s.checkMissing || strings.HasPrefix(owner, "[") {
		return
	}
	_, found, complete := s.hierarchy.resolve(owner, name, desc, field)
	if found || !complete {
		return
	}
	if field {
		s.reportMissing(diagnostics.WarnMissingField, s.registry.Missing(owner, name, desc), "can't find referenced field")
		return
	}
	s.reportMissing(diagnostics.WarnMissingMethod, s.registry.Missing(owner, name, desc), "can't find referenced method")
}

func (s *conversion) reportMissing(code string, missing *replace.MethodReplacement, message string) {
	member := ""
	if missing.MatchingName.String() != "" {
		member = missing.Member()
	}
	s.warn(diagnostics.NewWarning(code, s.name, missing.MatchingClass.String(), member, message))
}

// rewriteUtf8 applies fn to value, the string at index. It returns the
// index of the rewritten string and true if fn changed it.
func (s *conversion) rewriteUtf8(index uint16, value string, fn func(string) string) (uint16, bool) {
	rewritten := fn(value)
	if rewritten == value {
		return index, false
	}
	newIndex, ok := s.addUtf8(rewritten)
	if !ok {
		return index, false
	}
	s.changed = true
	return newIndex, true
}

// rewriteIndex is rewriteUtf8 for a Utf8 slot that is re-pointed in place
func (s *conversion) rewriteIndex(index *uint16, fn func(string) string) {
	if *index == 0 {
		return
	}
	if newIndex, ok := s.rewriteUtf8(*index, s.pool.Utf8(*index), fn); ok {
		*index = newIndex
	}
}

func (s *conversion) addUtf8(value string) (uint16, bool) {
	index, err := s.pool.AddUtf8(value)
	return index, s.poolResult(err)
}

func (s *conversion) addClass(name string) (uint16, bool) {
	index, err := s.pool.AddClass(name)
	return index, s.poolResult(err)
}

func (s *conversion) addNameAndType(name, desc string) (uint16, bool) {
	index, err := s.pool.AddNameAndType(name, desc)
	return index, s.poolResult(err)
}

func (s *conversion) poolResult(err error) bool {
	if err == nil {
		return true
	}
	s.warn(diagnostics.NewWarning(diagnostics.WarnConstantPoolFull, s.name, s.name, "", err.Error()))
	return false
}
