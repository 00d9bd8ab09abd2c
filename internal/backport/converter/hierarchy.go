package converter

import (
	"sync"

	"github.com/conduit-lang/backport/internal/classfile"
	"github.com/conduit-lang/backport/internal/classpool"
)

// classInfo is the part of a class needed to resolve member references
type classInfo struct {
	super       string
	interfaces  []string
	isInterface bool
	fields      map[string]classfile.AccessFlags
	methods     map[string]classfile.AccessFlags
	// native varargs methods of MethodHandle and VarHandle accept any
	// descriptor
	polymorphic map[string]classfile.AccessFlags
}

func memberKey(name, desc string) string {
	return name + " " + desc
}

func newClassInfo(c *classfile.Class) *classInfo {
	name := c.Name()
	signaturePolymorphic := name == "java/lang/invoke/MethodHandle" || name == "java/lang/invoke/VarHandle"
	info := &classInfo{
		super:       c.SuperName(),
		interfaces:  c.InterfaceNames(),
		isInterface: c.IsInterface(),
		fields:      make(map[string]classfile.AccessFlags, len(c.Fields)),
		methods:     make(map[string]classfile.AccessFlags, len(c.Methods)),
	}
	for _, f := range c.Fields {
		info.fields[memberKey(f.Name(c.Pool), f.Descriptor(c.Pool))] = f.AccessFlags
	}
	for _, m := range c.Methods {
		methodName := m.Name(c.Pool)
		info.methods[memberKey(methodName, m.Descriptor(c.Pool))] = m.AccessFlags
		if signaturePolymorphic && m.AccessFlags.Has(classfile.AccNative|classfile.AccVarargs) {
			if info.polymorphic == nil {
				info.polymorphic = make(map[string]classfile.AccessFlags)
			}
			info.polymorphic[methodName] = m.AccessFlags
		}
	}
	return info
}

// hierarchy resolves classes and members. Program classes are captured
// when the hierarchy is built; library classes are read-only and are
// summarised on first use.
type hierarchy struct {
	program map[string]*classInfo
	library *classpool.ClassPool
	cache   sync.Map // library name -> *classInfo
}

func newHierarchy(program, library *classpool.ClassPool) *hierarchy {
	h := &hierarchy{
		program: make(map[string]*classInfo, program.Size()),
		library: library,
	}
	for _, c := range program.Classes() {
		h.program[c.Name()] = newClassInfo(c)
	}
	return h
}

func (h *hierarchy) class(name string) (*classInfo, bool) {
	if info, ok := h.program[name]; ok {
		return info, true
	}
	if cached, ok := h.cache.Load(name); ok {
		return cached.(*classInfo), true
	}
	c, ok := h.library.Lookup(name)
	if !ok {
		return nil, false
	}
	info, _ := h.cache.LoadOrStore(name, newClassInfo(c))
	return info.(*classInfo), true
}

func (h *hierarchy) exists(name string) bool {
	_, ok := h.class(name)
	return ok
}

// resolve looks a member up in owner, its superclasses and its
// superinterfaces. complete is false when part of the hierarchy is
// unknown, in which case a failed lookup proves nothing.
func (h *hierarchy) resolve(owner, name, desc string, field bool) (access classfile.AccessFlags, found, complete bool) {
	key := memberKey(name, desc)
	complete = true
	seen := make(map[string]bool)
	queue := []string{owner}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current == "" || seen[current] {
			continue
		}
		seen[current] = true

		info, ok := h.class(current)
		if !ok {
			complete = false
			continue
		}
		members := info.methods
		if field {
			members = info.fields
		}
		if flags, ok := members[key]; ok {
			return flags, true, true
		}
		if !field {
			if flags, ok := info.polymorphic[name]; ok {
				return flags, true, true
			}
		}
		queue = append(queue, info.super)
		queue = append(queue, info.interfaces...)
	}
	return 0, false, complete
}
