package vm

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/avoran/svm64/pkg/isa"
)

// handlers is the opcode-indexed dispatch table. It is total: every opcode
// in the catalog has exactly one entry, with LABEL mapped to a corrupt-
// stream fault since the assembler never emits it.
var handlers [isa.OpCodeCount]func(*Processor) error

func init() {
	handlers = [isa.OpCodeCount]func(*Processor) error{
		isa.ADD: handleAdd,
		isa.SUB: handleSub,
		isa.MUL: handleMul,
		isa.DIV: handleDiv,
		isa.MOD: handleMod,

		isa.INC_REG:          handleIncReg,
		isa.INC_ADDR_IN_REG:  handleIncAddrInReg,
		isa.INC_ADDR_LITERAL: handleIncAddrLiteral,

		isa.DEC_REG:          handleDecReg,
		isa.DEC_ADDR_IN_REG:  handleDecAddrInReg,
		isa.DEC_ADDR_LITERAL: handleDecAddrLiteral,

		isa.NO_OPERATION: handleNoOperation,

		isa.MOVE_REG_REG:                   handleMoveRegReg,
		isa.MOVE_REG_ADDR_IN_REG:           handleMoveRegAddrInReg,
		isa.MOVE_REG_CONST:                 handleMoveRegConst,
		isa.MOVE_REG_ADDR_LITERAL:          handleMoveRegAddrLiteral,
		isa.MOVE_ADDR_IN_REG_REG:           handleMoveAddrInRegReg,
		isa.MOVE_ADDR_IN_REG_ADDR_IN_REG:   handleMoveAddrInRegAddrInReg,
		isa.MOVE_ADDR_IN_REG_CONST:         handleMoveAddrInRegConst,
		isa.MOVE_ADDR_IN_REG_ADDR_LITERAL:  handleMoveAddrInRegAddrLiteral,
		isa.MOVE_ADDR_LITERAL_REG:          handleMoveAddrLiteralReg,
		isa.MOVE_ADDR_LITERAL_ADDR_IN_REG:  handleMoveAddrLiteralAddrInReg,
		isa.MOVE_ADDR_LITERAL_CONST:        handleMoveAddrLiteralConst,
		isa.MOVE_ADDR_LITERAL_ADDR_LITERAL: handleMoveAddrLiteralAddrLiteral,

		isa.PUSH_REG:          handlePushReg,
		isa.PUSH_ADDR_IN_REG:  handlePushAddrInReg,
		isa.PUSH_CONST:        handlePushConst,
		isa.PUSH_ADDR_LITERAL: handlePushAddrLiteral,

		isa.POP_REG:          handlePopReg,
		isa.POP_ADDR_IN_REG:  handlePopAddrInReg,
		isa.POP_ADDR_LITERAL: handlePopAddrLiteral,

		isa.LABEL: handleLabel,

		isa.JUMP:              handleJump,
		isa.JUMP_IF_TRUE_REG:  handleJumpIfTrueReg,
		isa.JUMP_IF_FALSE_REG: handleJumpIfFalseReg,

		isa.COMPARE_REG_REG:     handleCompareRegReg,
		isa.COMPARE_REG_CONST:   handleCompareRegConst,
		isa.COMPARE_CONST_REG:   handleCompareConstReg,
		isa.COMPARE_CONST_CONST: handleCompareConstConst,

		isa.PRINT:        handlePrint,
		isa.PRINT_STRING: handlePrintString,
		isa.INPUT_INT:    handleInputInt,
		isa.INPUT_STRING: handleInputString,

		isa.EXIT: handleExit,
	}
}

// === Arithmetic ===

func handleAdd(p *Processor) error {
	p.regs[isa.RegA] += p.regs[isa.RegB]
	p.setFlags(p.regs[isa.RegA], 0)
	return nil
}

func handleSub(p *Processor) error {
	p.regs[isa.RegA] -= p.regs[isa.RegB]
	p.setFlags(p.regs[isa.RegA], 0)
	return nil
}

func handleMul(p *Processor) error {
	p.regs[isa.RegA] *= p.regs[isa.RegB]
	p.setFlags(p.regs[isa.RegA], 0)
	return nil
}

func handleDiv(p *Processor) error {
	if p.regs[isa.RegB] == 0 {
		return errors.New("division by zero")
	}
	remainder := p.regs[isa.RegA] % p.regs[isa.RegB]
	p.regs[isa.RegA] /= p.regs[isa.RegB]
	p.setFlags(p.regs[isa.RegA], remainder)
	return nil
}

func handleMod(p *Processor) error {
	if p.regs[isa.RegB] == 0 {
		return errors.New("division by zero")
	}
	p.regs[isa.RegA] %= p.regs[isa.RegB]
	p.setFlags(p.regs[isa.RegA], 0)
	return nil
}

// === Increment / decrement ===

func handleIncReg(p *Processor) error {
	return stepRegister(p, 1)
}

func handleDecReg(p *Processor) error {
	return stepRegister(p, -1)
}

func stepRegister(p *Processor, delta int64) error {
	r, err := p.nextRegister()
	if err != nil {
		return err
	}
	p.regs[r] += delta
	p.setFlags(p.regs[r], 0)
	return nil
}

func handleIncAddrInReg(p *Processor) error {
	return stepAddrInReg(p, 1)
}

func handleDecAddrInReg(p *Processor) error {
	return stepAddrInReg(p, -1)
}

func stepAddrInReg(p *Processor, delta int64) error {
	size, err := p.nextSize()
	if err != nil {
		return err
	}
	r, err := p.nextRegister()
	if err != nil {
		return err
	}
	return stepMemory(p, uint64(p.regs[r]), size, delta)
}

func handleIncAddrLiteral(p *Processor) error {
	return stepAddrLiteral(p, 1)
}

func handleDecAddrLiteral(p *Processor) error {
	return stepAddrLiteral(p, -1)
}

func stepAddrLiteral(p *Processor, delta int64) error {
	size, err := p.nextSize()
	if err != nil {
		return err
	}
	address, err := p.nextCode(8)
	if err != nil {
		return err
	}
	return stepMemory(p, address, size, delta)
}

func stepMemory(p *Processor, address uint64, size int, delta int64) error {
	raw, err := p.mem.Read(address, size)
	if err != nil {
		return err
	}
	value := int64(raw) + delta
	if err := p.mem.Write(address, uint64(value), size); err != nil {
		return err
	}
	p.setFlags(value, 0)
	return nil
}

func handleNoOperation(*Processor) error {
	return nil
}

// === Moves ===

func handleMoveRegReg(p *Processor) error {
	dst, err := p.nextRegister()
	if err != nil {
		return err
	}
	src, err := p.nextRegister()
	if err != nil {
		return err
	}
	p.regs[dst] = p.regs[src]
	return nil
}

func handleMoveRegAddrInReg(p *Processor) error {
	size, err := p.nextSize()
	if err != nil {
		return err
	}
	dst, err := p.nextRegister()
	if err != nil {
		return err
	}
	src, err := p.nextRegister()
	if err != nil {
		return err
	}
	value, err := p.mem.Read(uint64(p.regs[src]), size)
	if err != nil {
		return err
	}
	p.regs[dst] = int64(value)
	return nil
}

func handleMoveRegConst(p *Processor) error {
	size, err := p.nextSize()
	if err != nil {
		return err
	}
	dst, err := p.nextRegister()
	if err != nil {
		return err
	}
	value, err := p.nextCode(size)
	if err != nil {
		return err
	}
	p.regs[dst] = int64(value)
	return nil
}

func handleMoveRegAddrLiteral(p *Processor) error {
	size, err := p.nextSize()
	if err != nil {
		return err
	}
	dst, err := p.nextRegister()
	if err != nil {
		return err
	}
	address, err := p.nextCode(8)
	if err != nil {
		return err
	}
	value, err := p.mem.Read(address, size)
	if err != nil {
		return err
	}
	p.regs[dst] = int64(value)
	return nil
}

func handleMoveAddrInRegReg(p *Processor) error {
	size, err := p.nextSize()
	if err != nil {
		return err
	}
	dst, err := p.nextRegister()
	if err != nil {
		return err
	}
	src, err := p.nextRegister()
	if err != nil {
		return err
	}
	return p.mem.Write(uint64(p.regs[dst]), uint64(p.regs[src]), size)
}

func handleMoveAddrInRegAddrInReg(p *Processor) error {
	size, err := p.nextSize()
	if err != nil {
		return err
	}
	dst, err := p.nextRegister()
	if err != nil {
		return err
	}
	src, err := p.nextRegister()
	if err != nil {
		return err
	}
	value, err := p.mem.Read(uint64(p.regs[src]), size)
	if err != nil {
		return err
	}
	return p.mem.Write(uint64(p.regs[dst]), value, size)
}

func handleMoveAddrInRegConst(p *Processor) error {
	size, err := p.nextSize()
	if err != nil {
		return err
	}
	dst, err := p.nextRegister()
	if err != nil {
		return err
	}
	value, err := p.nextCode(size)
	if err != nil {
		return err
	}
	return p.mem.Write(uint64(p.regs[dst]), value, size)
}

func handleMoveAddrInRegAddrLiteral(p *Processor) error {
	size, err := p.nextSize()
	if err != nil {
		return err
	}
	dst, err := p.nextRegister()
	if err != nil {
		return err
	}
	src, err := p.nextCode(8)
	if err != nil {
		return err
	}
	value, err := p.mem.Read(src, size)
	if err != nil {
		return err
	}
	return p.mem.Write(uint64(p.regs[dst]), value, size)
}

func handleMoveAddrLiteralReg(p *Processor) error {
	size, err := p.nextSize()
	if err != nil {
		return err
	}
	dst, err := p.nextCode(8)
	if err != nil {
		return err
	}
	src, err := p.nextRegister()
	if err != nil {
		return err
	}
	return p.mem.Write(dst, uint64(p.regs[src]), size)
}

func handleMoveAddrLiteralAddrInReg(p *Processor) error {
	size, err := p.nextSize()
	if err != nil {
		return err
	}
	dst, err := p.nextCode(8)
	if err != nil {
		return err
	}
	src, err := p.nextRegister()
	if err != nil {
		return err
	}
	value, err := p.mem.Read(uint64(p.regs[src]), size)
	if err != nil {
		return err
	}
	return p.mem.Write(dst, value, size)
}

func handleMoveAddrLiteralConst(p *Processor) error {
	size, err := p.nextSize()
	if err != nil {
		return err
	}
	dst, err := p.nextCode(8)
	if err != nil {
		return err
	}
	value, err := p.nextCode(size)
	if err != nil {
		return err
	}
	return p.mem.Write(dst, value, size)
}

func handleMoveAddrLiteralAddrLiteral(p *Processor) error {
	size, err := p.nextSize()
	if err != nil {
		return err
	}
	dst, err := p.nextCode(8)
	if err != nil {
		return err
	}
	src, err := p.nextCode(8)
	if err != nil {
		return err
	}
	value, err := p.mem.Read(src, size)
	if err != nil {
		return err
	}
	return p.mem.Write(dst, value, size)
}

// === Stack ===

func handlePushReg(p *Processor) error {
	r, err := p.nextRegister()
	if err != nil {
		return err
	}
	return p.pushStack(uint64(p.regs[r]), 8)
}

func handlePushAddrInReg(p *Processor) error {
	size, err := p.nextSize()
	if err != nil {
		return err
	}
	r, err := p.nextRegister()
	if err != nil {
		return err
	}
	value, err := p.mem.Read(uint64(p.regs[r]), size)
	if err != nil {
		return err
	}
	return p.pushStack(value, size)
}

func handlePushConst(p *Processor) error {
	size, err := p.nextSize()
	if err != nil {
		return err
	}
	value, err := p.nextCode(size)
	if err != nil {
		return err
	}
	return p.pushStack(value, size)
}

func handlePushAddrLiteral(p *Processor) error {
	size, err := p.nextSize()
	if err != nil {
		return err
	}
	address, err := p.nextCode(8)
	if err != nil {
		return err
	}
	value, err := p.mem.Read(address, size)
	if err != nil {
		return err
	}
	return p.pushStack(value, size)
}

func handlePopReg(p *Processor) error {
	r, err := p.nextRegister()
	if err != nil {
		return err
	}
	value, err := p.popStack(8)
	if err != nil {
		return err
	}
	p.regs[r] = int64(value)
	return nil
}

func handlePopAddrInReg(p *Processor) error {
	size, err := p.nextSize()
	if err != nil {
		return err
	}
	r, err := p.nextRegister()
	if err != nil {
		return err
	}
	value, err := p.popStack(size)
	if err != nil {
		return err
	}
	return p.mem.Write(uint64(p.regs[r]), value, size)
}

func handlePopAddrLiteral(p *Processor) error {
	size, err := p.nextSize()
	if err != nil {
		return err
	}
	address, err := p.nextCode(8)
	if err != nil {
		return err
	}
	value, err := p.popStack(size)
	if err != nil {
		return err
	}
	return p.mem.Write(address, value, size)
}

// === Control flow ===

func handleLabel(*Processor) error {
	return errors.New("LABEL opcode in bytecode stream: corrupt or hand-built input")
}

func handleJump(p *Processor) error {
	target, err := p.nextCode(8)
	if err != nil {
		return err
	}
	p.regs[isa.RegProgramCounter] = int64(target)
	return nil
}

func handleJumpIfTrueReg(p *Processor) error {
	return conditionalJump(p, true)
}

func handleJumpIfFalseReg(p *Processor) error {
	return conditionalJump(p, false)
}

func conditionalJump(p *Processor, whenSet bool) error {
	target, err := p.nextCode(8)
	if err != nil {
		return err
	}
	r, err := p.nextRegister()
	if err != nil {
		return err
	}
	if (p.regs[r] != 0) == whenSet {
		p.regs[isa.RegProgramCounter] = int64(target)
	}
	return nil
}

// === Comparison ===

func handleCompareRegReg(p *Processor) error {
	left, err := p.nextRegister()
	if err != nil {
		return err
	}
	right, err := p.nextRegister()
	if err != nil {
		return err
	}
	p.setFlags(p.regs[left]-p.regs[right], 0)
	return nil
}

func handleCompareRegConst(p *Processor) error {
	size, err := p.nextSize()
	if err != nil {
		return err
	}
	r, err := p.nextRegister()
	if err != nil {
		return err
	}
	value, err := p.nextCode(size)
	if err != nil {
		return err
	}
	p.setFlags(p.regs[r]-int64(value), 0)
	return nil
}

func handleCompareConstReg(p *Processor) error {
	size, err := p.nextSize()
	if err != nil {
		return err
	}
	value, err := p.nextCode(size)
	if err != nil {
		return err
	}
	r, err := p.nextRegister()
	if err != nil {
		return err
	}
	p.setFlags(int64(value)-p.regs[r], 0)
	return nil
}

func handleCompareConstConst(p *Processor) error {
	size, err := p.nextSize()
	if err != nil {
		return err
	}
	left, err := p.nextCode(size)
	if err != nil {
		return err
	}
	right, err := p.nextCode(size)
	if err != nil {
		return err
	}
	p.setFlags(int64(left)-int64(right), 0)
	return nil
}

// === Interrupts ===

func handlePrint(p *Processor) error {
	fmt.Fprintf(p.out, "%d", p.regs[isa.RegPrint])
	return nil
}

func handlePrintString(p *Processor) error {
	address := uint64(p.regs[isa.RegPrint])
	var buf []byte
	for {
		b, err := p.mem.Read(address, 1)
		if err != nil {
			return err
		}
		if b == 0 {
			break
		}
		buf = append(buf, byte(b))
		address++
	}
	if !utf8.Valid(buf) {
		p.regs[isa.RegError] = InvalidInput
		return nil
	}
	p.out.Write(buf)
	return nil
}

func handleInputInt(p *Processor) error {
	line, err := p.readLine()
	switch {
	case err == io.EOF:
		p.regs[isa.RegError] = EndOfFile
	case err != nil:
		p.regs[isa.RegError] = GenericError
	default:
		value, perr := strconv.ParseInt(line, 10, 64)
		if perr != nil {
			p.regs[isa.RegError] = InvalidInput
			return nil
		}
		p.regs[isa.RegInput] = value
	}
	return nil
}

func handleInputString(p *Processor) error {
	line, err := p.readLine()
	switch {
	case err == io.EOF:
		p.regs[isa.RegError] = EndOfFile
		return nil
	case err != nil:
		p.regs[isa.RegError] = GenericError
		return nil
	}
	if !utf8.ValidString(line) {
		p.regs[isa.RegError] = InvalidInput
		return nil
	}
	if err := p.pushStackBytes([]byte(line)); err != nil {
		return err
	}
	p.regs[isa.RegInput] = int64(len(line))
	return nil
}

func handleExit(p *Processor) error {
	p.running = false
	return nil
}
