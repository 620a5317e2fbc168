package isa

// OperandKind classifies an operand slot. The numeric values are the
// canonical addressing-mode ordering used by the assembler's lookup table;
// they never appear in the bytecode stream itself.
type OperandKind uint8

const (
	KindRegister OperandKind = iota
	KindAddressInRegister
	KindNumber
	KindAddressLiteral
	KindLabel
)

// WidthSized marks an operand whose byte width is the instruction's
// handled_size rather than a fixed value.
const WidthSized = 0

// Operand describes one operand slot of an instruction: what it is and how
// many bytes it occupies in the stream.
type Operand struct {
	Kind  OperandKind
	Width int // bytes in the stream; WidthSized inherits handled_size
}

// Info holds the static decode metadata for one opcode.
type Info struct {
	Operator string // assembly operator prefix ("mov", "inc", "cmp", ...)
	Sized    bool   // a one-byte handled_size follows the opcode
	Operands []Operand
}

// Names maps each OpCode to its canonical mnemonic name, used by the
// assembler listing, disassembler diagnostics, verbose tracing and the
// opcode lookup tool.
var Names [OpCodeCount]string

// Decode maps each OpCode to its decode metadata.
var Decode [OpCodeCount]Info

// Width returns the total encoded length in bytes of an instruction with
// the given handled size, opcode byte included. Lengths are static per
// (opcode, size), which is what makes two-pass label resolution possible.
func Width(op OpCode, size int) int {
	info := &Decode[op]
	n := 1
	if info.Sized {
		n++
	}
	for _, operand := range info.Operands {
		if operand.Width == WidthSized {
			n += size
		} else {
			n += operand.Width
		}
	}
	return n
}

func init() {
	reg := Operand{KindRegister, 1}
	addrInReg := Operand{KindAddressInRegister, 1}
	addrLit := Operand{KindAddressLiteral, 8}
	sizedConst := Operand{KindNumber, WidthSized}
	jumpTarget := Operand{KindNumber, 8}

	entries := []struct {
		op       OpCode
		name     string
		operator string
		sized    bool
		operands []Operand
	}{
		{ADD, "ADD", "add", false, nil},
		{SUB, "SUB", "sub", false, nil},
		{MUL, "MUL", "mul", false, nil},
		{DIV, "DIV", "div", false, nil},
		{MOD, "MOD", "mod", false, nil},

		{INC_REG, "INC_REG", "inc", false, []Operand{reg}},
		{INC_ADDR_IN_REG, "INC_ADDR_IN_REG", "inc", true, []Operand{addrInReg}},
		{INC_ADDR_LITERAL, "INC_ADDR_LITERAL", "inc", true, []Operand{addrLit}},

		{DEC_REG, "DEC_REG", "dec", false, []Operand{reg}},
		{DEC_ADDR_IN_REG, "DEC_ADDR_IN_REG", "dec", true, []Operand{addrInReg}},
		{DEC_ADDR_LITERAL, "DEC_ADDR_LITERAL", "dec", true, []Operand{addrLit}},

		{NO_OPERATION, "NO_OPERATION", "nop", false, nil},

		{MOVE_REG_REG, "MOVE_REG_REG", "mov", false, []Operand{reg, reg}},
		{MOVE_REG_ADDR_IN_REG, "MOVE_REG_ADDR_IN_REG", "mov", true, []Operand{reg, addrInReg}},
		{MOVE_REG_CONST, "MOVE_REG_CONST", "mov", true, []Operand{reg, sizedConst}},
		{MOVE_REG_ADDR_LITERAL, "MOVE_REG_ADDR_LITERAL", "mov", true, []Operand{reg, addrLit}},
		{MOVE_ADDR_IN_REG_REG, "MOVE_ADDR_IN_REG_REG", "mov", true, []Operand{addrInReg, reg}},
		{MOVE_ADDR_IN_REG_ADDR_IN_REG, "MOVE_ADDR_IN_REG_ADDR_IN_REG", "mov", true, []Operand{addrInReg, addrInReg}},
		{MOVE_ADDR_IN_REG_CONST, "MOVE_ADDR_IN_REG_CONST", "mov", true, []Operand{addrInReg, sizedConst}},
		{MOVE_ADDR_IN_REG_ADDR_LITERAL, "MOVE_ADDR_IN_REG_ADDR_LITERAL", "mov", true, []Operand{addrInReg, addrLit}},
		{MOVE_ADDR_LITERAL_REG, "MOVE_ADDR_LITERAL_REG", "mov", true, []Operand{addrLit, reg}},
		{MOVE_ADDR_LITERAL_ADDR_IN_REG, "MOVE_ADDR_LITERAL_ADDR_IN_REG", "mov", true, []Operand{addrLit, addrInReg}},
		{MOVE_ADDR_LITERAL_CONST, "MOVE_ADDR_LITERAL_CONST", "mov", true, []Operand{addrLit, sizedConst}},
		{MOVE_ADDR_LITERAL_ADDR_LITERAL, "MOVE_ADDR_LITERAL_ADDR_LITERAL", "mov", true, []Operand{addrLit, addrLit}},

		{PUSH_REG, "PUSH_REG", "push", false, []Operand{reg}},
		{PUSH_ADDR_IN_REG, "PUSH_ADDR_IN_REG", "push", true, []Operand{addrInReg}},
		{PUSH_CONST, "PUSH_CONST", "push", true, []Operand{sizedConst}},
		{PUSH_ADDR_LITERAL, "PUSH_ADDR_LITERAL", "push", true, []Operand{addrLit}},

		{POP_REG, "POP_REG", "pop", false, []Operand{reg}},
		{POP_ADDR_IN_REG, "POP_ADDR_IN_REG", "pop", true, []Operand{addrInReg}},
		{POP_ADDR_LITERAL, "POP_ADDR_LITERAL", "pop", true, []Operand{addrLit}},

		{LABEL, "LABEL", "@", false, nil},

		{JUMP, "JUMP", "jmp", false, []Operand{jumpTarget}},
		{JUMP_IF_TRUE_REG, "JUMP_IF_TRUE_REG", "cjmp", false, []Operand{jumpTarget, reg}},
		{JUMP_IF_FALSE_REG, "JUMP_IF_FALSE_REG", "njmp", false, []Operand{jumpTarget, reg}},

		{COMPARE_REG_REG, "COMPARE_REG_REG", "cmp", false, []Operand{reg, reg}},
		{COMPARE_REG_CONST, "COMPARE_REG_CONST", "cmp", true, []Operand{reg, sizedConst}},
		{COMPARE_CONST_REG, "COMPARE_CONST_REG", "cmp", true, []Operand{sizedConst, reg}},
		{COMPARE_CONST_CONST, "COMPARE_CONST_CONST", "cmp", true, []Operand{sizedConst, sizedConst}},

		{PRINT, "PRINT", "prt", false, nil},
		{PRINT_STRING, "PRINT_STRING", "prtstr", false, nil},
		{INPUT_INT, "INPUT_INT", "inint", false, nil},
		{INPUT_STRING, "INPUT_STRING", "instr", false, nil},

		{EXIT, "EXIT", "exit", false, nil},
	}

	for _, e := range entries {
		Names[e.op] = e.name
		Decode[e.op] = Info{Operator: e.operator, Sized: e.sized, Operands: e.operands}
	}
}
