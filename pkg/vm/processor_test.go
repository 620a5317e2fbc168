package vm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoran/svm64/pkg/asm"
	"github.com/avoran/svm64/pkg/isa"
)

func mustAssemble(t *testing.T, source string) []byte {
	t.Helper()
	code, err := asm.Assemble(strings.Split(source, "\n"))
	require.NoError(t, err)
	return code
}

func run(t *testing.T, source string, cfg Config) (*Processor, int64, error) {
	t.Helper()
	p := New(cfg)
	status, err := p.Execute(mustAssemble(t, source))
	return p, status, err
}

func TestAdditionAndExit(t *testing.T) {
	p, status, err := run(t, "mov8 a 7\nmov8 b 35\nadd\nmov8 exit a\nexit", Config{})
	require.NoError(t, err)
	assert.Equal(t, int64(42), status)
	assert.Equal(t, int64(0), p.Register(isa.RegZeroFlag))
	assert.Equal(t, int64(0), p.Register(isa.RegSignFlag))
}

func TestDivisionByZeroIsFatal(t *testing.T) {
	_, _, err := run(t, "mov8 a 10\nmov8 b 0\ndiv\nexit", Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "division")
}

func TestModuloByZeroIsFatal(t *testing.T) {
	_, _, err := run(t, "mov8 a 10\nmov8 b 0\nmod\nexit", Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "division")
}

func TestLoopWithConditionalJump(t *testing.T) {
	p, status, err := run(t, "mov8 a 3\n@top\ndec a\ncjmp top, a\nmov8 exit a\nexit", Config{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), status)
	assert.Equal(t, int64(1), p.Register(isa.RegZeroFlag))
}

func TestMemoryRoundTrip(t *testing.T) {
	_, status, err := run(t, "mov8 [100] 0xCAFEBABE\nmov8 a [100]\nmov8 exit a\nexit", Config{})
	require.NoError(t, err)
	assert.Equal(t, int64(0xCAFEBABE), status)
}

func TestStackPushPopIdentity(t *testing.T) {
	source := "mov8 a 99\npush a\nmov8 a 0\npop a\nmov8 exit a\nexit"
	code := mustAssemble(t, source)

	p := New(Config{})
	status, err := p.Execute(code)
	require.NoError(t, err)
	assert.Equal(t, int64(99), status)
	assert.Equal(t, int64(len(code)), p.Register(isa.RegStackPointer))
}

func TestCompareSetsZeroFlag(t *testing.T) {
	source := "mov8 a 5\nmov8 b 5\ncmp a, b\nnjmp done, zf\nmov8 exit 1\n@done\nmov8 exit 0\nexit"
	_, status, err := run(t, source, Config{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), status)
}

// TestCompareUsesValues pins the decision that COMPARE_REG_REG subtracts
// register values, not register indexes.
func TestCompareUsesValues(t *testing.T) {
	p, _, err := run(t, "mov8 c 9\nmov8 d 9\ncmp c, d\nexit", Config{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.Register(isa.RegZeroFlag))

	p, _, err = run(t, "mov8 c 3\nmov8 d 9\ncmp c, d\nexit", Config{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.Register(isa.RegZeroFlag))
	assert.Equal(t, int64(1), p.Register(isa.RegSignFlag))
}

func TestCompareConstForms(t *testing.T) {
	p, _, err := run(t, "mov8 a 7\ncmp4 a 7\nexit", Config{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.Register(isa.RegZeroFlag))

	p, _, err = run(t, "cmp1 1 2\nexit", Config{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.Register(isa.RegZeroFlag))
	assert.Equal(t, int64(1), p.Register(isa.RegSignFlag))
}

func TestArithmeticFlags(t *testing.T) {
	p, _, err := run(t, "mov8 a 5\nmov8 b 5\nsub\nexit", Config{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.Register(isa.RegZeroFlag))
	assert.Equal(t, int64(0), p.Register(isa.RegSignFlag))

	p, _, err = run(t, "mov8 a 3\nmov8 b 5\nsub\nexit", Config{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.Register(isa.RegZeroFlag))
	assert.Equal(t, int64(1), p.Register(isa.RegSignFlag))
}

func TestDivisionRemainderFlag(t *testing.T) {
	p, status, err := run(t, "mov8 a 17\nmov8 b 5\ndiv\nmov8 exit a\nexit", Config{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), status)
	assert.Equal(t, int64(2), p.Register(isa.RegRemainderFlag))
}

func TestIncDecMemory(t *testing.T) {
	source := "mov2 [64] 255\ninc2 [64]\nmov2 a [64]\nmov8 exit a\nexit"
	_, status, err := run(t, source, Config{})
	require.NoError(t, err)
	assert.Equal(t, int64(256), status)

	source = "mov8 c 64\nmov1 [c] 7\ndec1 [c]\nmov1 a [c]\nmov8 exit a\nexit"
	_, status, err = run(t, source, Config{})
	require.NoError(t, err)
	assert.Equal(t, int64(6), status)
}

func TestSizedStackTransfers(t *testing.T) {
	// push2/pop2 must move exactly two bytes and leave SP balanced.
	source := "push2 300\npop2 [64]\nmov2 a [64]\nmov8 exit a\nexit"
	code := mustAssemble(t, source)

	p := New(Config{})
	status, err := p.Execute(code)
	require.NoError(t, err)
	assert.Equal(t, int64(300), status)
	assert.Equal(t, int64(len(code)), p.Register(isa.RegStackPointer))
}

func TestUnconditionalJumpSkips(t *testing.T) {
	_, status, err := run(t, "jmp end\nmov8 exit 1\n@end\nmov8 exit 7\nexit", Config{})
	require.NoError(t, err)
	assert.Equal(t, int64(7), status)
}

func TestMemoryFaultIsFatal(t *testing.T) {
	_, _, err := run(t, "mov8 a [2000]\nexit", Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestInvalidOpcodeIsFatal(t *testing.T) {
	p := New(Config{})
	_, err := p.Execute([]byte{200})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid opcode")
}

func TestProgramRunningOffTheEndIsFatal(t *testing.T) {
	// No exit: the fetch eventually walks into zeroed memory, executing ADD
	// (opcode 0) until the PC escapes the buffer.
	p := New(Config{MemSize: 64})
	_, err := p.Execute(mustAssemble(t, "nop"))
	require.Error(t, err)
}

func TestPrintInterrupt(t *testing.T) {
	var out strings.Builder
	_, status, err := run(t, "mov8 print 42\nprt\nexit", Config{Out: &out})
	require.NoError(t, err)
	assert.Equal(t, int64(0), status)
	assert.Equal(t, "42", out.String())
}

func TestPrintStringInterrupt(t *testing.T) {
	var out strings.Builder
	source := "mov1 [100] 0x68\nmov1 [101] 0x69\nmov8 print 100\nprtstr\nexit"
	_, _, err := run(t, source, Config{Out: &out})
	require.NoError(t, err)
	assert.Equal(t, "hi", out.String())
}

func TestInputIntInterrupt(t *testing.T) {
	source := "inint\nmov exit input\nexit"
	_, status, err := run(t, source, Config{In: strings.NewReader("42\n")})
	require.NoError(t, err)
	assert.Equal(t, int64(42), status)
}

func TestInputStringInterrupt(t *testing.T) {
	source := "instr\nmov exit input\nexit"
	code := mustAssemble(t, source)

	p := New(Config{In: strings.NewReader("hello\n")})
	status, err := p.Execute(code)
	require.NoError(t, err)
	assert.Equal(t, int64(5), status)
	// The line's bytes were pushed above the program image.
	assert.Equal(t, int64(len(code)+5), p.Register(isa.RegStackPointer))
}

func TestInputErrorCodes(t *testing.T) {
	p := New(Config{In: strings.NewReader("not a number\n")})
	require.NoError(t, handleInputInt(p))
	assert.Equal(t, InvalidInput, p.Register(isa.RegError))

	p = New(Config{In: strings.NewReader("")})
	require.NoError(t, handleInputInt(p))
	assert.Equal(t, EndOfFile, p.Register(isa.RegError))

	p = New(Config{In: strings.NewReader("")})
	require.NoError(t, handleInputString(p))
	assert.Equal(t, EndOfFile, p.Register(isa.RegError))
}

func TestErrorRegisterClearsAfterDispatch(t *testing.T) {
	// The interrupt sets ERROR; the dispatch loop clears it before the next
	// fetch, so a finished program always reads NO_ERROR.
	p, _, err := run(t, "inint\nexit", Config{In: strings.NewReader("junk\n")})
	require.NoError(t, err)
	assert.Equal(t, NoError, p.Register(isa.RegError))
}

func TestHandlerTableIsTotal(t *testing.T) {
	for op := isa.OpCode(0); op < isa.OpCodeCount; op++ {
		assert.NotNil(t, handlers[op], "opcode %s has no handler", isa.Names[op])
	}
}

func TestLabelOpcodeFaults(t *testing.T) {
	p := New(Config{})
	_, err := p.Execute([]byte{byte(isa.LABEL)})
	require.Error(t, err)
}

func TestTraceOutput(t *testing.T) {
	var trace strings.Builder
	_, _, err := run(t, "nop\nexit", Config{Trace: &trace})
	require.NoError(t, err)
	assert.Equal(t, "Instruction: NO_OPERATION\nInstruction: EXIT\n", trace.String())
}

func TestMoveRegRegCopiesFullSlot(t *testing.T) {
	_, status, err := run(t, "mov8 a 0xCAFEBABE\nmov b a\nmov8 a 0\nmov exit b\nexit", Config{})
	require.NoError(t, err)
	assert.Equal(t, int64(0xCAFEBABE), status)
}

func TestPCAdvancesByEncodedLength(t *testing.T) {
	// Between non-jump instructions the PC moves by exactly the frame
	// width: after the 11-byte move and the 1-byte exit fetch/dispatch,
	// the PC rests past the whole 12-byte program.
	code := mustAssemble(t, "mov8 a 1\nexit")
	require.Len(t, code, 12)

	p := New(Config{})
	_, err := p.Execute(code)
	require.NoError(t, err)
	assert.Equal(t, int64(12), p.Register(isa.RegProgramCounter))
}
