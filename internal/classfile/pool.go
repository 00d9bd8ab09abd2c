package classfile

import (
	"errors"
	"math"
)

// ErrPoolFull is returned when a constant cannot be added because the pool
// already holds the maximum number of slots.
var ErrPoolFull = errors.New("classfile: constant pool is full")

// Constant is a constant pool entry. The set of implementations is closed.
type Constant interface {
	Tag() Tag
	constant()
}

// ConstantUtf8 holds the raw modified UTF-8 bytes of a string constant.
// Class names are ASCII in practice, so the raw form is also the form that
// patterns are matched against.
type ConstantUtf8 struct {
	Value string
}

type ConstantInteger struct {
	Value int32
}

// ConstantFloat keeps the IEEE bits so NaN payloads survive a round trip
type ConstantFloat struct {
	Bits uint32
}

type ConstantLong struct {
	Value int64
}

type ConstantDouble struct {
	Bits uint64
}

type ConstantClass struct {
	NameIndex uint16
}

type ConstantString struct {
	StringIndex uint16
}

// ConstantRef is a Fieldref, Methodref or InterfaceMethodref. The three
// share one layout; RefTag tells them apart.
type ConstantRef struct {
	RefTag           Tag
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

type ConstantNameAndType struct {
	NameIndex       uint16
	DescriptorIndex uint16
}

type ConstantMethodHandle struct {
	ReferenceKind  uint8
	ReferenceIndex uint16
}

type ConstantMethodType struct {
	DescriptorIndex uint16
}

// ConstantDynamic is a Dynamic or InvokeDynamic entry, told apart by DynTag
type ConstantDynamic struct {
	DynTag                   Tag
	BootstrapMethodAttrIndex uint16
	NameAndTypeIndex         uint16
}

type ConstantModule struct {
	NameIndex uint16
}

type ConstantPackage struct {
	NameIndex uint16
}

func (*ConstantUtf8) Tag() Tag         { return TagUtf8 }
func (*ConstantInteger) Tag() Tag      { return TagInteger }
func (*ConstantFloat) Tag() Tag        { return TagFloat }
func (*ConstantLong) Tag() Tag         { return TagLong }
func (*ConstantDouble) Tag() Tag       { return TagDouble }
func (*ConstantClass) Tag() Tag        { return TagClass }
func (*ConstantString) Tag() Tag       { return TagString }
func (c *ConstantRef) Tag() Tag        { return c.RefTag }
func (*ConstantNameAndType) Tag() Tag  { return TagNameAndType }
func (*ConstantMethodHandle) Tag() Tag { return TagMethodHandle }
func (*ConstantMethodType) Tag() Tag   { return TagMethodType }
func (c *ConstantDynamic) Tag() Tag    { return c.DynTag }
func (*ConstantModule) Tag() Tag       { return TagModule }
func (*ConstantPackage) Tag() Tag      { return TagPackage }

func (*ConstantUtf8) constant()         {}
func (*ConstantInteger) constant()      {}
func (*ConstantFloat) constant()        {}
func (*ConstantLong) constant()         {}
func (*ConstantDouble) constant()       {}
func (*ConstantClass) constant()        {}
func (*ConstantString) constant()       {}
func (*ConstantRef) constant()          {}
func (*ConstantNameAndType) constant()  {}
func (*ConstantMethodHandle) constant() {}
func (*ConstantMethodType) constant()   {}
func (*ConstantDynamic) constant()      {}
func (*ConstantModule) constant()       {}
func (*ConstantPackage) constant()      {}

// isWide reports whether the constant occupies two pool slots
func isWide(c Constant) bool {
	switch c.(type) {
	case *ConstantLong, *ConstantDouble:
		return true
	}
	return false
}

// ConstantPool is the indexed arena of a class's constants. Slot 0 and the
// slot after each Long or Double are unusable and hold nil.
type ConstantPool struct {
	entries []Constant
	utf8s   map[string]uint16
}

// NewConstantPool creates an empty pool holding only the reserved slot 0
func NewConstantPool() *ConstantPool {
	return &ConstantPool{entries: []Constant{nil}}
}

// Count returns constant_pool_count as written in the class file, that is
// the number of slots including slot 0.
func (p *ConstantPool) Count() int {
	return len(p.entries)
}

// Get returns the constant at index i, or nil if the slot is unusable or
// out of range.
func (p *ConstantPool) Get(i uint16) Constant {
	if int(i) >= len(p.entries) {
		return nil
	}
	return p.entries[i]
}

// Set replaces the value of slot i. Every structure referring to i sees the
// new value.
func (p *ConstantPool) Set(i uint16, c Constant) {
	if int(i) >= len(p.entries) || i == 0 {
		return
	}
	if _, ok := p.entries[i].(*ConstantUtf8); ok {
		p.utf8s = nil
	}
	if _, ok := c.(*ConstantUtf8); ok {
		p.utf8s = nil
	}
	p.entries[i] = c
}

// Append adds c at the end of the pool without looking for an equal entry
func (p *ConstantPool) Append(c Constant) (uint16, error) {
	need := 1
	if isWide(c) {
		need = 2
	}
	if len(p.entries)+need > math.MaxUint16 {
		return 0, ErrPoolFull
	}
	index := uint16(len(p.entries))
	p.entries = append(p.entries, c)
	if need == 2 {
		p.entries = append(p.entries, nil)
	}
	if u, ok := c.(*ConstantUtf8); ok && p.utf8s != nil {
		if _, exists := p.utf8s[u.Value]; !exists {
			p.utf8s[u.Value] = index
		}
	}
	return index, nil
}

// Each calls fn for every usable slot in index order. Constants appended by
// fn are not visited.
func (p *ConstantPool) Each(fn func(index uint16, c Constant)) {
	n := len(p.entries)
	for i := 1; i < n; i++ {
		if c := p.entries[i]; c != nil {
			fn(uint16(i), c)
		}
	}
}

// Utf8 returns the string held by a Utf8 slot, or "" for any other slot
func (p *ConstantPool) Utf8(i uint16) string {
	if u, ok := p.Get(i).(*ConstantUtf8); ok {
		return u.Value
	}
	return ""
}

// ClassName returns the internal name held by a Class slot
func (p *ConstantPool) ClassName(i uint16) string {
	if c, ok := p.Get(i).(*ConstantClass); ok {
		return p.Utf8(c.NameIndex)
	}
	return ""
}

// NameAndType returns the name and descriptor of a NameAndType slot
func (p *ConstantPool) NameAndType(i uint16) (name, descriptor string) {
	if nat, ok := p.Get(i).(*ConstantNameAndType); ok {
		return p.Utf8(nat.NameIndex), p.Utf8(nat.DescriptorIndex)
	}
	return "", ""
}

// RefInfo returns owner class, member name and descriptor of a field or
// method reference slot.
func (p *ConstantPool) RefInfo(i uint16) (class, name, descriptor string) {
	ref, ok := p.Get(i).(*ConstantRef)
	if !ok {
		return "", "", ""
	}
	name, descriptor = p.NameAndType(ref.NameAndTypeIndex)
	return p.ClassName(ref.ClassIndex), name, descriptor
}

// AddUtf8 returns the index of a Utf8 constant holding s, appending one if
// the pool has none.
func (p *ConstantPool) AddUtf8(s string) (uint16, error) {
	if p.utf8s == nil {
		p.utf8s = make(map[string]uint16)
		for i := len(p.entries) - 1; i > 0; i-- {
			if u, ok := p.entries[i].(*ConstantUtf8); ok {
				p.utf8s[u.Value] = uint16(i)
			}
		}
	}
	if index, ok := p.utf8s[s]; ok {
		return index, nil
	}
	return p.Append(&ConstantUtf8{Value: s})
}

// AddClass returns the index of a Class constant naming name
func (p *ConstantPool) AddClass(name string) (uint16, error) {
	nameIndex, err := p.AddUtf8(name)
	if err != nil {
		return 0, err
	}
	for i, c := range p.entries {
		if cc, ok := c.(*ConstantClass); ok && cc.NameIndex == nameIndex {
			return uint16(i), nil
		}
	}
	return p.Append(&ConstantClass{NameIndex: nameIndex})
}

// AddNameAndType returns the index of a NameAndType constant
func (p *ConstantPool) AddNameAndType(name, descriptor string) (uint16, error) {
	nameIndex, err := p.AddUtf8(name)
	if err != nil {
		return 0, err
	}
	descIndex, err := p.AddUtf8(descriptor)
	if err != nil {
		return 0, err
	}
	for i, c := range p.entries {
		if nat, ok := c.(*ConstantNameAndType); ok && nat.NameIndex == nameIndex && nat.DescriptorIndex == descIndex {
			return uint16(i), nil
		}
	}
	return p.Append(&ConstantNameAndType{NameIndex: nameIndex, DescriptorIndex: descIndex})
}

// AddRef returns the index of a Fieldref, Methodref or InterfaceMethodref
func (p *ConstantPool) AddRef(tag Tag, class, name, descriptor string) (uint16, error) {
	classIndex, err := p.AddClass(class)
	if err != nil {
		return 0, err
	}
	natIndex, err := p.AddNameAndType(name, descriptor)
	if err != nil {
		return 0, err
	}
	for i, c := range p.entries {
		if ref, ok := c.(*ConstantRef); ok && ref.RefTag == tag && ref.ClassIndex == classIndex && ref.NameAndTypeIndex == natIndex {
			return uint16(i), nil
		}
	}
	return p.Append(&ConstantRef{RefTag: tag, ClassIndex: classIndex, NameAndTypeIndex: natIndex})
}
