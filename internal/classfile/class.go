package classfile

// Class is a parsed class file
type Class struct {
	MinorVersion uint16
	MajorVersion uint16
	Pool         *ConstantPool
	AccessFlags  AccessFlags
	ThisClass    uint16
	SuperClass   uint16
	Interfaces   []uint16
	Fields       []*Member
	Methods      []*Member
	Attributes   []Attribute
}

// Member is a field_info or method_info structure
type Member struct {
	AccessFlags     AccessFlags
	NameIndex       uint16
	DescriptorIndex uint16
	Attributes      []Attribute
}

// Name returns the internal name of the class
func (c *Class) Name() string {
	return c.Pool.ClassName(c.ThisClass)
}

// SuperName returns the internal name of the superclass, or "" for
// java/lang/Object and module-info.
func (c *Class) SuperName() string {
	if c.SuperClass == 0 {
		return ""
	}
	return c.Pool.ClassName(c.SuperClass)
}

// InterfaceNames returns the internal names of the direct superinterfaces
func (c *Class) InterfaceNames() []string {
	names := make([]string, 0, len(c.Interfaces))
	for _, i := range c.Interfaces {
		names = append(names, c.Pool.ClassName(i))
	}
	return names
}

// IsInterface reports whether the class is an interface
func (c *Class) IsInterface() bool {
	return c.AccessFlags.Has(AccInterface)
}

// FindField returns the field with the given name and descriptor
func (c *Class) FindField(name, descriptor string) *Member {
	return c.findMember(c.Fields, name, descriptor)
}

// FindMethod returns the method with the given name and descriptor. An
// empty descriptor matches any overload.
func (c *Class) FindMethod(name, descriptor string) *Member {
	return c.findMember(c.Methods, name, descriptor)
}

func (c *Class) findMember(members []*Member, name, descriptor string) *Member {
	for _, m := range members {
		if m.Name(c.Pool) != name {
			continue
		}
		if descriptor == "" || m.Descriptor(c.Pool) == descriptor {
			return m
		}
	}
	return nil
}

// Name returns the member name
func (m *Member) Name(p *ConstantPool) string {
	return p.Utf8(m.NameIndex)
}

// Descriptor returns the member descriptor
func (m *Member) Descriptor(p *ConstantPool) string {
	return p.Utf8(m.DescriptorIndex)
}

// Code returns the member's Code attribute, or nil for abstract and native
// methods and for fields.
func (m *Member) Code() *CodeAttribute {
	for _, a := range m.Attributes {
		if code, ok := a.(*CodeAttribute); ok {
			return code
		}
	}
	return nil
}
