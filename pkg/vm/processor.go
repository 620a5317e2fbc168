// Package vm is the execution engine: a register file and flat memory
// driven by a fetch-decode-dispatch loop over the bytecode stream.
package vm

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/avoran/svm64/pkg/isa"
	"github.com/avoran/svm64/pkg/mem"
)

// Error codes surfaced through the ERROR register by interrupt handlers.
const (
	NoError int64 = iota
	EndOfFile
	InvalidInput
	GenericError
)

// Config carries the construction parameters for a Processor. Zero values
// pick the defaults: 1024 bytes of memory, the process's stdin/stdout, no
// tracing.
type Config struct {
	MemSize int
	In      io.Reader
	Out     io.Writer
	Trace   io.Writer // per-instruction mnemonic trace; nil disables
}

// Processor owns one program's memory and register file. It is not safe
// for concurrent use and runs exactly one program per Execute call.
type Processor struct {
	mem     *mem.Memory
	regs    [isa.RegisterCount]int64
	running bool
	in      *bufio.Reader
	out     io.Writer
	trace   io.Writer
}

// New builds a Processor from cfg.
func New(cfg Config) *Processor {
	if cfg.MemSize == 0 {
		cfg.MemSize = mem.DefaultSize
	}
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	return &Processor{
		mem:   mem.New(cfg.MemSize),
		in:    bufio.NewReader(cfg.In),
		out:   cfg.Out,
		trace: cfg.Trace,
	}
}

// Register returns the current value of a register slot.
func (p *Processor) Register(r isa.Register) int64 {
	return p.regs[r]
}

// Execute loads the bytecode at address 0 and runs the dispatch loop until
// an EXIT instruction stops it, returning the EXIT register. Hard faults
// (out-of-range opcode or memory access, division by zero) abort with an
// error; interrupt I/O failures only set the ERROR register.
func (p *Processor) Execute(code []byte) (int64, error) {
	if err := p.mem.Blit(0, code); err != nil {
		return 0, fmt.Errorf("loading %d bytes of bytecode: %w", len(code), err)
	}
	p.regs[isa.RegStackPointer] = int64(len(code))
	p.regs[isa.RegProgramCounter] = 0
	p.running = true

	for p.running {
		at := p.regs[isa.RegProgramCounter]
		opByte, err := p.nextCode(1)
		if err != nil {
			return 0, err
		}
		if opByte >= uint64(isa.OpCodeCount) {
			return 0, fmt.Errorf("invalid opcode %d at offset %d", opByte, at)
		}
		op := isa.OpCode(opByte)

		if p.trace != nil {
			fmt.Fprintf(p.trace, "Instruction: %s\n", isa.Names[op])
		}

		if err := handlers[op](p); err != nil {
			return 0, fmt.Errorf("at offset %d (%s): %w", at, isa.Names[op], err)
		}

		// ERROR is volatile: it survives exactly until the instruction
		// that set it finishes dispatching.
		p.regs[isa.RegError] = NoError
	}

	return p.regs[isa.RegExit], nil
}

// nextCode fetches size bytes from the instruction stream at PC, advancing
// PC. Stream integers are little-endian; this is the one place they are
// decoded, distinct from the big-endian typed memory accesses.
func (p *Processor) nextCode(size int) (uint64, error) {
	pc := uint64(p.regs[isa.RegProgramCounter])
	raw, err := p.mem.Slice(pc, size)
	if err != nil {
		return 0, fmt.Errorf("fetching %d bytes at pc=%d: %w", size, pc, err)
	}
	var value uint64
	for i := size - 1; i >= 0; i-- {
		value = value<<8 | uint64(raw[i])
	}
	p.regs[isa.RegProgramCounter] += int64(size)
	return value, nil
}

func (p *Processor) nextRegister() (isa.Register, error) {
	idx, err := p.nextCode(1)
	if err != nil {
		return 0, err
	}
	if idx >= uint64(isa.RegisterCount) {
		return 0, fmt.Errorf("invalid register index %d", idx)
	}
	return isa.Register(idx), nil
}

func (p *Processor) nextSize() (int, error) {
	size, err := p.nextCode(1)
	if err != nil {
		return 0, err
	}
	switch size {
	case 1, 2, 4, 8:
		return int(size), nil
	}
	return 0, fmt.Errorf("invalid handled size %d", size)
}

// setFlags records the arithmetic side effects of a result.
func (p *Processor) setFlags(result, remainder int64) {
	p.regs[isa.RegZeroFlag] = boolFlag(result == 0)
	p.regs[isa.RegSignFlag] = boolFlag(result < 0)
	p.regs[isa.RegRemainderFlag] = remainder
}

func boolFlag(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// pushStack stores value big-endian at the stack pointer and bumps it by
// size; the stack grows toward higher addresses.
func (p *Processor) pushStack(value uint64, size int) error {
	sp := uint64(p.regs[isa.RegStackPointer])
	if err := p.mem.Write(sp, value, size); err != nil {
		return fmt.Errorf("stack push: %w", err)
	}
	p.regs[isa.RegStackPointer] += int64(size)
	return nil
}

func (p *Processor) pushStackBytes(data []byte) error {
	sp := uint64(p.regs[isa.RegStackPointer])
	if err := p.mem.Blit(sp, data); err != nil {
		return fmt.Errorf("stack push: %w", err)
	}
	p.regs[isa.RegStackPointer] += int64(len(data))
	return nil
}

func (p *Processor) popStack(size int) (uint64, error) {
	p.regs[isa.RegStackPointer] -= int64(size)
	sp := uint64(p.regs[isa.RegStackPointer])
	value, err := p.mem.Read(sp, size)
	if err != nil {
		return 0, fmt.Errorf("stack pop: %w", err)
	}
	return value, nil
}

// readLine reads one line from the interrupt input channel. io.EOF is
// returned only when no bytes preceded end of input.
func (p *Processor) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	if err != nil {
		return "", err
	}
	line = trimLineEnding(line)
	return line, nil
}

func trimLineEnding(line string) string {
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
	}
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line
}
