// Package dis reconstructs assembly text from a bytecode stream. It is the
// encoder's inverse driven by the same catalog metadata; labels are not
// reconstructed, so jump targets print as raw addresses.
package dis

import (
	"fmt"

	"github.com/avoran/svm64/pkg/isa"
)

// Instruction is one decoded frame.
type Instruction struct {
	Offset int    // byte offset of the opcode
	Op     isa.OpCode
	Size   int    // handled size, 0 when the opcode carries none
	Length int    // total frame length in bytes
	Text   string // assembly rendering, e.g. "mov2 a [b]"
}

// Walk decodes the whole stream into instructions.
func Walk(code []byte) ([]Instruction, error) {
	var out []Instruction

	i := 0
	for i < len(code) {
		instr, err := decodeAt(code, i)
		if err != nil {
			return nil, err
		}
		out = append(out, instr)
		i += instr.Length
	}
	return out, nil
}

// Disassemble renders the stream as plain assembly lines.
func Disassemble(code []byte) ([]string, error) {
	instrs, err := Walk(code)
	if err != nil {
		return nil, err
	}
	lines := make([]string, len(instrs))
	for i, instr := range instrs {
		lines[i] = instr.Text
	}
	return lines, nil
}

// Annotate renders the stream with the byte offset, raw opcode and frame
// length alongside each line, for inspecting .bc files byte by byte.
func Annotate(code []byte) ([]string, error) {
	instrs, err := Walk(code)
	if err != nil {
		return nil, err
	}
	lines := make([]string, len(instrs))
	for i, instr := range instrs {
		lines[i] = fmt.Sprintf("%4d:  %2d:0x%02x  %-32s (%d, %d)",
			instr.Offset, instr.Op, byte(instr.Op), instr.Text, instr.Length, instr.Offset)
	}
	return lines, nil
}

func decodeAt(code []byte, start int) (Instruction, error) {
	i := start
	op := isa.OpCode(code[i])
	i++
	if op >= isa.OpCodeCount {
		return Instruction{}, fmt.Errorf("invalid opcode %d at offset %d", code[start], start)
	}
	info := &isa.Decode[op]

	size := 0
	text := info.Operator
	if info.Sized {
		if i >= len(code) {
			return Instruction{}, truncated(op, start)
		}
		size = int(code[i])
		i++
		switch size {
		case 1, 2, 4, 8:
		default:
			return Instruction{}, fmt.Errorf("invalid handled size %d at offset %d", size, start+1)
		}
		text = fmt.Sprintf("%s%d", info.Operator, size)
	}

	for _, operand := range info.Operands {
		width := operand.Width
		if width == isa.WidthSized {
			width = size
		}
		if i+width > len(code) {
			return Instruction{}, truncated(op, start)
		}
		value := littleEndian(code[i : i+width])
		i += width

		rendered, err := renderOperand(operand.Kind, value)
		if err != nil {
			return Instruction{}, fmt.Errorf("%v at offset %d", err, start)
		}
		text += " " + rendered
	}

	return Instruction{Offset: start, Op: op, Size: size, Length: i - start, Text: text}, nil
}

func renderOperand(kind isa.OperandKind, value uint64) (string, error) {
	switch kind {
	case isa.KindRegister:
		if value >= uint64(isa.RegisterCount) {
			return "", fmt.Errorf("invalid register index %d", value)
		}
		return isa.RegisterNames[value], nil
	case isa.KindAddressInRegister:
		if value >= uint64(isa.RegisterCount) {
			return "", fmt.Errorf("invalid register index %d", value)
		}
		return "[" + isa.RegisterNames[value] + "]", nil
	case isa.KindAddressLiteral:
		return fmt.Sprintf("[0x%X]", value), nil
	default: // KindNumber; jump targets print as raw addresses
		return fmt.Sprintf("%d", value), nil
	}
}

func truncated(op isa.OpCode, offset int) error {
	return fmt.Errorf("truncated %s instruction at offset %d", isa.Names[op], offset)
}

func littleEndian(raw []byte) uint64 {
	var value uint64
	for i := len(raw) - 1; i >= 0; i-- {
		value = value<<8 | uint64(raw[i])
	}
	return value
}
