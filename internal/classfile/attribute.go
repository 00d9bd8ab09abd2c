package classfile

// Attribute is an attribute_info structure. The set of implementations is
// closed; attributes the reader does not model are kept as RawAttribute.
type Attribute interface {
	AttributeNameIndex() uint16
	attribute()
}

// RawAttribute is an attribute kept as opaque bytes
type RawAttribute struct {
	NameIndex uint16
	Data      []byte
}

type SignatureAttribute struct {
	NameIndex      uint16
	SignatureIndex uint16
}

// ExceptionHandler is an entry of a Code attribute's exception table. A
// CatchType of 0 catches everything.
type ExceptionHandler struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType uint16
}

type CodeAttribute struct {
	NameIndex      uint16
	MaxStack       uint16
	MaxLocals      uint16
	Code           []byte
	ExceptionTable []ExceptionHandler
	Attributes     []Attribute
}

type ExceptionsAttribute struct {
	NameIndex        uint16
	ExceptionIndexes []uint16
}

type LocalVariable struct {
	StartPC         uint16
	Length          uint16
	NameIndex       uint16
	DescriptorIndex uint16
	Index           uint16
}

type LocalVariableTableAttribute struct {
	NameIndex uint16
	Entries   []LocalVariable
}

type LocalVariableType struct {
	StartPC        uint16
	Length         uint16
	NameIndex      uint16
	SignatureIndex uint16
	Index          uint16
}

type LocalVariableTypeTableAttribute struct {
	NameIndex uint16
	Entries   []LocalVariableType
}

// AnnotationsAttribute is RuntimeVisibleAnnotations or
// RuntimeInvisibleAnnotations, depending on its name.
type AnnotationsAttribute struct {
	NameIndex   uint16
	Annotations []*Annotation
}

// ParameterAnnotationsAttribute is RuntimeVisibleParameterAnnotations or
// RuntimeInvisibleParameterAnnotations, depending on its name.
type ParameterAnnotationsAttribute struct {
	NameIndex  uint16
	Parameters [][]*Annotation
}

// TypeAnnotation is a type_annotation structure. The target and the type
// path are kept as raw bytes: they hold offsets and indexes, never
// constant pool references.
type TypeAnnotation struct {
	TargetType byte
	TargetInfo []byte
	TypePath   []byte // path entries, two bytes each, without the length
	Annotation *Annotation
}

// TypeAnnotationsAttribute is RuntimeVisibleTypeAnnotations or
// RuntimeInvisibleTypeAnnotations, depending on its name.
type TypeAnnotationsAttribute struct {
	NameIndex   uint16
	Annotations []*TypeAnnotation
}

type AnnotationDefaultAttribute struct {
	NameIndex uint16
	Default   ElementValue
}

type EnclosingMethodAttribute struct {
	NameIndex   uint16
	ClassIndex  uint16
	MethodIndex uint16
}

type InnerClass struct {
	InnerClassIndex  uint16
	OuterClassIndex  uint16
	InnerNameIndex   uint16
	InnerAccessFlags AccessFlags
}

type InnerClassesAttribute struct {
	NameIndex uint16
	Classes   []InnerClass
}

type RecordComponent struct {
	NameIndex       uint16
	DescriptorIndex uint16
	Attributes      []Attribute
}

type RecordAttribute struct {
	NameIndex  uint16
	Components []*RecordComponent
}

func (a *RawAttribute) AttributeNameIndex() uint16                    { return a.NameIndex }
func (a *SignatureAttribute) AttributeNameIndex() uint16              { return a.NameIndex }
func (a *CodeAttribute) AttributeNameIndex() uint16                   { return a.NameIndex }
func (a *ExceptionsAttribute) AttributeNameIndex() uint16             { return a.NameIndex }
func (a *LocalVariableTableAttribute) AttributeNameIndex() uint16     { return a.NameIndex }
func (a *LocalVariableTypeTableAttribute) AttributeNameIndex() uint16 { return a.NameIndex }
func (a *AnnotationsAttribute) AttributeNameIndex() uint16            { return a.NameIndex }
func (a *ParameterAnnotationsAttribute) AttributeNameIndex() uint16   { return a.NameIndex }
func (a *TypeAnnotationsAttribute) AttributeNameIndex() uint16        { return a.NameIndex }
func (a *AnnotationDefaultAttribute) AttributeNameIndex() uint16      { return a.NameIndex }
func (a *EnclosingMethodAttribute) AttributeNameIndex() uint16        { return a.NameIndex }
func (a *InnerClassesAttribute) AttributeNameIndex() uint16           { return a.NameIndex }
func (a *RecordAttribute) AttributeNameIndex() uint16                 { return a.NameIndex }

func (*RawAttribute) attribute()                    {}
func (*SignatureAttribute) attribute()              {}
func (*CodeAttribute) attribute()                   {}
func (*ExceptionsAttribute) attribute()             {}
func (*LocalVariableTableAttribute) attribute()     {}
func (*LocalVariableTypeTableAttribute) attribute() {}
func (*AnnotationsAttribute) attribute()            {}
func (*ParameterAnnotationsAttribute) attribute()   {}
func (*TypeAnnotationsAttribute) attribute()        {}
func (*AnnotationDefaultAttribute) attribute()      {}
func (*EnclosingMethodAttribute) attribute()        {}
func (*InnerClassesAttribute) attribute()           {}
func (*RecordAttribute) attribute()                 {}

// EntriesAccept calls fn for every entry of the table. fn may modify the
// entry it is given.
func (a *LocalVariableTableAttribute) EntriesAccept(fn func(*LocalVariable)) {
	for i := range a.Entries {
		fn(&a.Entries[i])
	}
}

// EntriesAccept calls fn for every entry of the table. fn may modify the
// entry it is given.
func (a *LocalVariableTypeTableAttribute) EntriesAccept(fn func(*LocalVariableType)) {
	for i := range a.Entries {
		fn(&a.Entries[i])
	}
}

// Annotation is an annotation structure. TypeIndex points at a field
// descriptor such as "Ljava/lang/Deprecated;".
type Annotation struct {
	TypeIndex uint16
	Elements  []ElementValuePair
}

type ElementValuePair struct {
	NameIndex uint16
	Value     ElementValue
}

// ElementValue is an element_value structure. The set of implementations
// is closed.
type ElementValue interface {
	ElementTag() byte
	elementValue()
}

// ConstElementValue covers the primitive and string tags B C D F I J S Z s
type ConstElementValue struct {
	Kind       byte
	ConstIndex uint16
}

// EnumElementValue names an enum constant; TypeNameIndex is a field descriptor
type EnumElementValue struct {
	TypeNameIndex  uint16
	ConstNameIndex uint16
}

// ClassElementValue is a class literal; ClassInfoIndex is a return
// descriptor such as "Ljava/lang/String;" or "V".
type ClassElementValue struct {
	ClassInfoIndex uint16
}

type AnnotationElementValue struct {
	Annotation *Annotation
}

type ArrayElementValue struct {
	Values []ElementValue
}

func (v *ConstElementValue) ElementTag() byte    { return v.Kind }
func (*EnumElementValue) ElementTag() byte       { return 'e' }
func (*ClassElementValue) ElementTag() byte      { return 'c' }
func (*AnnotationElementValue) ElementTag() byte { return '@' }
func (*ArrayElementValue) ElementTag() byte      { return '[' }

func (*ConstElementValue) elementValue()      {}
func (*EnumElementValue) elementValue()       {}
func (*ClassElementValue) elementValue()      {}
func (*AnnotationElementValue) elementValue() {}
func (*ArrayElementValue) elementValue()      {}
