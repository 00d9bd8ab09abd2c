package classfile

import (
	"encoding/binary"
	"fmt"
)

// Opcode is a JVM instruction opcode
type Opcode uint8

const (
	OpNop             Opcode = 0x00
	OpLdc             Opcode = 0x12
	OpLdcW            Opcode = 0x13
	OpLdc2W           Opcode = 0x14
	OpTableSwitch     Opcode = 0xaa
	OpLookupSwitch    Opcode = 0xab
	OpGetStatic       Opcode = 0xb2
	OpPutStatic       Opcode = 0xb3
	OpGetField        Opcode = 0xb4
	OpPutField        Opcode = 0xb5
	OpInvokeVirtual   Opcode = 0xb6
	OpInvokeSpecial   Opcode = 0xb7
	OpInvokeStatic    Opcode = 0xb8
	OpInvokeInterface Opcode = 0xb9
	OpInvokeDynamic   Opcode = 0xba
	OpNew             Opcode = 0xbb
	OpANewArray       Opcode = 0xbd
	OpCheckCast       Opcode = 0xc0
	OpInstanceOf      Opcode = 0xc1
	OpWide            Opcode = 0xc4
	OpMultiANewArray  Opcode = 0xc5
)

// String returns the mnemonic for the opcodes that carry constant pool
// references, and a hex form for the rest.
func (op Opcode) String() string {
	switch op {
	case OpNop:
		return "nop"
	case OpLdc:
		return "ldc"
	case OpLdcW:
		return "ldc_w"
	case OpLdc2W:
		return "ldc2_w"
	case OpGetStatic:
		return "getstatic"
	case OpPutStatic:
		return "putstatic"
	case OpGetField:
		return "getfield"
	case OpPutField:
		return "putfield"
	case OpInvokeVirtual:
		return "invokevirtual"
	case OpInvokeSpecial:
		return "invokespecial"
	case OpInvokeStatic:
		return "invokestatic"
	case OpInvokeInterface:
		return "invokeinterface"
	case OpInvokeDynamic:
		return "invokedynamic"
	case OpNew:
		return "new"
	case OpANewArray:
		return "anewarray"
	case OpCheckCast:
		return "checkcast"
	case OpInstanceOf:
		return "instanceof"
	case OpMultiANewArray:
		return "multianewarray"
	default:
		return fmt.Sprintf("op(0x%02x)", uint8(op))
	}
}

// IsInvoke reports whether the opcode invokes a method through a Methodref
// or InterfaceMethodref.
func (op Opcode) IsInvoke() bool {
	switch op {
	case OpInvokeVirtual, OpInvokeSpecial, OpInvokeStatic, OpInvokeInterface:
		return true
	}
	return false
}

// fixedLengths holds the encoded length of every fixed-size instruction.
// Zero marks the variable-length ones.
var fixedLengths = func() [256]uint8 {
	var t [256]uint8
	for i := range t {
		t[i] = 1
	}
	for _, op := range []uint8{0x10, 0x12, 0x15, 0x16, 0x17, 0x18, 0x19, 0x36, 0x37, 0x38, 0x39, 0x3a, 0xa9, 0xbc} {
		t[op] = 2
	}
	for _, op := range []uint8{0x11, 0x13, 0x14, 0x84, 0xb2, 0xb3, 0xb4, 0xb5, 0xb6, 0xb7, 0xb8, 0xbb, 0xbd, 0xc0, 0xc1, 0xc6, 0xc7} {
		t[op] = 3
	}
	for op := 0x99; op <= 0xa8; op++ {
		t[op] = 3
	}
	t[0xc5] = 4
	for _, op := range []uint8{0xb9, 0xba, 0xc8, 0xc9} {
		t[op] = 5
	}
	t[OpTableSwitch] = 0
	t[OpLookupSwitch] = 0
	t[OpWide] = 0
	return t
}()

// Instruction is a decoded instruction header: where it starts, what it
// is and how many bytes it spans.
type Instruction struct {
	Offset int
	Opcode Opcode
	Length int
}

// ConstantIndex returns the constant pool index carried by the instruction,
// if it carries one.
func (in Instruction) ConstantIndex(code []byte) (uint16, bool) {
	switch in.Opcode {
	case OpLdc:
		return uint16(code[in.Offset+1]), true
	case OpLdcW, OpLdc2W, OpGetStatic, OpPutStatic, OpGetField, OpPutField,
		OpInvokeVirtual, OpInvokeSpecial, OpInvokeStatic, OpInvokeInterface, OpInvokeDynamic,
		OpNew, OpANewArray, OpCheckCast, OpInstanceOf, OpMultiANewArray:
		return binary.BigEndian.Uint16(code[in.Offset+1:]), true
	}
	return 0, false
}

// DecodeInstruction decodes the instruction starting at offset
func DecodeInstruction(code []byte, offset int) (Instruction, error) {
	if offset < 0 || offset >= len(code) {
		return Instruction{}, fmt.Errorf("classfile: instruction offset %d out of range", offset)
	}
	op := Opcode(code[offset])
	length := int(fixedLengths[op])

	switch op {
	case OpTableSwitch:
		base := offset + 1 + padding(offset)
		if base+12 > len(code) {
			return Instruction{}, fmt.Errorf("classfile: truncated tableswitch at %d", offset)
		}
		low := int32(binary.BigEndian.Uint32(code[base+4:]))
		high := int32(binary.BigEndian.Uint32(code[base+8:]))
		if high < low {
			return Instruction{}, fmt.Errorf("classfile: tableswitch at %d has high < low", offset)
		}
		length = base - offset + 12 + int(int64(high)-int64(low)+1)*4
	case OpLookupSwitch:
		base := offset + 1 + padding(offset)
		if base+8 > len(code) {
			return Instruction{}, fmt.Errorf("classfile: truncated lookupswitch at %d", offset)
		}
		pairs := int32(binary.BigEndian.Uint32(code[base+4:]))
		if pairs < 0 {
			return Instruction{}, fmt.Errorf("classfile: lookupswitch at %d has negative pair count", offset)
		}
		length = base - offset + 8 + int(pairs)*8
	case OpWide:
		if offset+1 >= len(code) {
			return Instruction{}, fmt.Errorf("classfile: truncated wide at %d", offset)
		}
		if code[offset+1] == 0x84 {
			length = 6
		} else {
			length = 4
		}
	}

	if offset+length > len(code) {
		return Instruction{}, fmt.Errorf("classfile: truncated %s at %d", op, offset)
	}
	return Instruction{Offset: offset, Opcode: op, Length: length}, nil
}

// padding returns the number of alignment bytes after a switch opcode
func padding(offset int) int {
	return (4 - (offset+1)%4) % 4
}

// InstructionsAccept decodes the code array and calls fn for every
// instruction in order. fn may patch bytes of the instruction it is given
// as long as the instruction length does not change.
func (a *CodeAttribute) InstructionsAccept(fn func(Instruction)) error {
	for offset := 0; offset < len(a.Code); {
		in, err := DecodeInstruction(a.Code, offset)
		if err != nil {
			return err
		}
		fn(in)
		offset += in.Length
	}
	return nil
}
