package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoran/svm64/pkg/isa"
)

func TestTokenizeOperands(t *testing.T) {
	tests := []struct {
		input string
		want  []Token
	}{
		{"", nil},
		{"a, b", []Token{
			{Kind: TokRegister, Reg: isa.RegA},
			{Kind: TokRegister, Reg: isa.RegB},
		}},
		{"exit input sp pc", []Token{
			{Kind: TokRegister, Reg: isa.RegExit},
			{Kind: TokRegister, Reg: isa.RegInput},
			{Kind: TokRegister, Reg: isa.RegStackPointer},
			{Kind: TokRegister, Reg: isa.RegProgramCounter},
		}},
		{"[a]", []Token{{Kind: TokAddressInRegister, Reg: isa.RegA}}},
		{"[ zf ]", []Token{{Kind: TokAddressInRegister, Reg: isa.RegZeroFlag}}},
		{"[100]", []Token{{Kind: TokAddressLiteral, Num: 100}}},
		{"[0x64]", []Token{{Kind: TokAddressLiteral, Num: 100}}},
		{"42", []Token{{Kind: TokNumber, Num: 42}}},
		{"0x2A", []Token{{Kind: TokNumber, Num: 42}}},
		{"0xCAFEBABE", []Token{{Kind: TokNumber, Num: 0xCAFEBABE}}},
		{"loop_start", []Token{{Kind: TokName, Sym: "loop_start"}}},
		{"top:", []Token{{Kind: TokLabel, Sym: "top"}}},
		{"done, zf", []Token{
			{Kind: TokName, Sym: "done"},
			{Kind: TokRegister, Reg: isa.RegZeroFlag},
		}},
		{"a 5 ; trailing comment", []Token{
			{Kind: TokRegister, Reg: isa.RegA},
			{Kind: TokNumber, Num: 5},
		}},
		{"; whole comment", nil},
	}

	for _, tc := range tests {
		got, err := Tokenize(tc.input)
		require.NoError(t, err, "input %q", tc.input)
		assert.Equal(t, tc.want, got, "input %q", tc.input)
	}
}

func TestTokenizeErrors(t *testing.T) {
	bad := []string{
		"[",          // unterminated
		"[a",         // missing ']'
		"[xyz]",      // not a register
		"[!]",        // junk inside brackets
		"[100",       // literal missing ']'
		"%",          // unhandled character
		"a # b",      // unhandled character
		"0x",         // hex prefix with no digits
		"0xGG",       // hex prefix with no digits
		"[0xFFFFFFFFFFFFFFFFF]", // overflows 64 bits
	}
	for _, input := range bad {
		_, err := Tokenize(input)
		assert.Error(t, err, "input %q", input)
	}
}
