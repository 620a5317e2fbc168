package asm

import "github.com/avoran/svm64/pkg/isa"

// The addressing-mode table maps an operator mnemonic plus the kinds of its
// operands to a concrete opcode and handled size. It is kept flat — keyed by
// (mnemonic, kind tuple) — rather than nested by operand position, which
// makes the legal combinations auditable at a glance.

type modeKey struct {
	mnemonic string
	kinds    string // one byte per operand, '0'+kind, in canonical kind order
}

type modeEntry struct {
	op   isa.OpCode
	size int // handled_size; 0 for opcodes without a size prefix
}

var modeTable = map[modeKey]modeEntry{}

// operandKind maps a token to its canonical addressing-mode index. NAME
// tokens are label references by the time they reach the encoder: anything
// naming a register was already classified by the tokenizer.
func operandKind(t Token) isa.OperandKind {
	switch t.Kind {
	case TokRegister:
		return isa.KindRegister
	case TokAddressInRegister:
		return isa.KindAddressInRegister
	case TokNumber:
		return isa.KindNumber
	case TokAddressLiteral:
		return isa.KindAddressLiteral
	default: // TokLabel, TokName
		return isa.KindLabel
	}
}

func kindsOf(tokens []Token) string {
	buf := make([]byte, len(tokens))
	for i, t := range tokens {
		buf[i] = '0' + byte(operandKind(t))
	}
	return string(buf)
}

func mode(mnemonic string, kinds string, op isa.OpCode, size int) {
	modeTable[modeKey{mnemonic, kinds}] = modeEntry{op, size}
}

// lookupMode resolves an operator and its tokenized operands to an opcode.
// The bool is false when the mnemonic itself is unknown, which callers
// report differently from an illegal operand combination.
func lookupMode(mnemonic string, tokens []Token) (modeEntry, bool, bool) {
	if !knownMnemonics[mnemonic] {
		return modeEntry{}, false, false
	}
	entry, ok := modeTable[modeKey{mnemonic, kindsOf(tokens)}]
	return entry, true, ok
}

var knownMnemonics = map[string]bool{}

func init() {
	const (
		r  = "0" // register
		ar = "1" // address in register
		n  = "2" // number
		al = "3" // address literal
		lb = "4" // label
	)

	// Arity-0 operators.
	mode("add", "", isa.ADD, 0)
	mode("sub", "", isa.SUB, 0)
	mode("mul", "", isa.MUL, 0)
	mode("div", "", isa.DIV, 0)
	mode("mod", "", isa.MOD, 0)
	mode("nop", "", isa.NO_OPERATION, 0)
	mode("prt", "", isa.PRINT, 0)
	mode("prtstr", "", isa.PRINT_STRING, 0)
	mode("inint", "", isa.INPUT_INT, 0)
	mode("instr", "", isa.INPUT_STRING, 0)
	mode("exit", "", isa.EXIT, 0)

	mode("inc", r, isa.INC_REG, 0)
	mode("dec", r, isa.DEC_REG, 0)

	mode("mov", r+r, isa.MOVE_REG_REG, 0)

	mode("push", r, isa.PUSH_REG, 0)
	mode("pop", r, isa.POP_REG, 0)

	mode("@", lb, isa.LABEL, 0)
	mode("jmp", lb, isa.JUMP, 0)
	mode("cjmp", lb+r, isa.JUMP_IF_TRUE_REG, 0)
	mode("njmp", lb+r, isa.JUMP_IF_FALSE_REG, 0)

	mode("cmp", r+r, isa.COMPARE_REG_REG, 0)

	// Size-variant operators: the mnemonic carries the handled size.
	for _, size := range []int{1, 2, 4, 8} {
		suffix := string('0' + byte(size))

		mode("inc"+suffix, ar, isa.INC_ADDR_IN_REG, size)
		mode("inc"+suffix, al, isa.INC_ADDR_LITERAL, size)
		mode("dec"+suffix, ar, isa.DEC_ADDR_IN_REG, size)
		mode("dec"+suffix, al, isa.DEC_ADDR_LITERAL, size)

		// movN between two registers degenerates to the unsized full-slot
		// move; the register file has no partial-width view.
		mode("mov"+suffix, r+r, isa.MOVE_REG_REG, 0)
		mode("mov"+suffix, r+ar, isa.MOVE_REG_ADDR_IN_REG, size)
		mode("mov"+suffix, r+n, isa.MOVE_REG_CONST, size)
		mode("mov"+suffix, r+al, isa.MOVE_REG_ADDR_LITERAL, size)
		mode("mov"+suffix, ar+r, isa.MOVE_ADDR_IN_REG_REG, size)
		mode("mov"+suffix, ar+ar, isa.MOVE_ADDR_IN_REG_ADDR_IN_REG, size)
		mode("mov"+suffix, ar+n, isa.MOVE_ADDR_IN_REG_CONST, size)
		mode("mov"+suffix, ar+al, isa.MOVE_ADDR_IN_REG_ADDR_LITERAL, size)
		mode("mov"+suffix, al+r, isa.MOVE_ADDR_LITERAL_REG, size)
		mode("mov"+suffix, al+ar, isa.MOVE_ADDR_LITERAL_ADDR_IN_REG, size)
		mode("mov"+suffix, al+n, isa.MOVE_ADDR_LITERAL_CONST, size)
		mode("mov"+suffix, al+al, isa.MOVE_ADDR_LITERAL_ADDR_LITERAL, size)

		mode("push"+suffix, ar, isa.PUSH_ADDR_IN_REG, size)
		mode("push"+suffix, n, isa.PUSH_CONST, size)
		mode("push"+suffix, al, isa.PUSH_ADDR_LITERAL, size)

		mode("pop"+suffix, ar, isa.POP_ADDR_IN_REG, size)
		mode("pop"+suffix, al, isa.POP_ADDR_LITERAL, size)

		mode("cmp"+suffix, r+n, isa.COMPARE_REG_CONST, size)
		mode("cmp"+suffix, n+r, isa.COMPARE_CONST_REG, size)
		mode("cmp"+suffix, n+n, isa.COMPARE_CONST_CONST, size)
	}

	for key := range modeTable {
		knownMnemonics[key.mnemonic] = true
	}
}
