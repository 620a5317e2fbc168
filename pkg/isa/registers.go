package isa

// Register is a register-file index as stored in operand bytes. The
// numbering is part of the binary ABI.
type Register uint8

const (
	// General purpose. A and B are the implicit arithmetic operands.
	RegA Register = iota
	RegB
	RegC
	RegD

	// Special: exit status, interrupt input, interrupt error, print value.
	RegExit
	RegInput
	RegError
	RegPrint

	RegStackPointer
	RegProgramCounter

	// Flags read as 0/1 through the same indexed file so conditional jumps
	// can name them as ordinary register operands.
	RegZeroFlag
	RegSignFlag
	RegRemainderFlag

	RegisterCount // sentinel
)

// RegisterNames maps a register index to its assembly mnemonic.
var RegisterNames = [RegisterCount]string{
	"a", "b", "c", "d",
	"exit", "input", "error", "print",
	"sp", "pc",
	"zf", "sf", "rf",
}

var registerTable = map[string]Register{
	"a":     RegA,
	"b":     RegB,
	"c":     RegC,
	"d":     RegD,
	"exit":  RegExit,
	"input": RegInput,
	"error": RegError,
	"print": RegPrint,
	"sp":    RegStackPointer,
	"pc":    RegProgramCounter,
	"zf":    RegZeroFlag,
	"sf":    RegSignFlag,
	"rf":    RegRemainderFlag,
}

// LookupRegister resolves an assembly mnemonic to its register index.
func LookupRegister(name string) (Register, bool) {
	r, ok := registerTable[name]
	return r, ok
}
