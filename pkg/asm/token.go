package asm

import (
	"fmt"
	"strconv"

	"github.com/avoran/svm64/pkg/isa"
)

// TokenKind classifies an operand token produced by Tokenize.
type TokenKind uint8

const (
	TokRegister TokenKind = iota
	TokAddressInRegister
	TokNumber
	TokAddressLiteral
	TokLabel // definition site: "name:"
	TokName  // reference site, resolved to a label at encode time
)

var tokenKindNames = [...]string{
	"REGISTER",
	"ADDRESS_IN_REGISTER",
	"NUMBER",
	"ADDRESS_LITERAL",
	"LABEL",
	"NAME",
}

func (k TokenKind) String() string {
	return tokenKindNames[k]
}

// Token is one classified operand. Exactly one of Reg, Num, Sym is
// meaningful depending on Kind.
type Token struct {
	Kind TokenKind
	Reg  isa.Register
	Num  uint64
	Sym  string
}

func (t Token) String() string {
	switch t.Kind {
	case TokRegister:
		return fmt.Sprintf("<%s: %s>", t.Kind, isa.RegisterNames[t.Reg])
	case TokAddressInRegister:
		return fmt.Sprintf("<%s: [%s]>", t.Kind, isa.RegisterNames[t.Reg])
	case TokNumber:
		return fmt.Sprintf("<%s: %d>", t.Kind, t.Num)
	case TokAddressLiteral:
		return fmt.Sprintf("<%s: [%d]>", t.Kind, t.Num)
	default:
		return fmt.Sprintf("<%s: %s>", t.Kind, t.Sym)
	}
}

func isNameChar(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || ch >= 'a' && ch <= 'f' || ch >= 'A' && ch <= 'F'
}

// Tokenize scans the operand portion of one assembly line and returns the
// classified operand tokens. Commas and blanks separate operands; a ';'
// starts a comment running to the end of the line.
func Tokenize(operands string) ([]Token, error) {
	var tokens []Token

	i := 0
	for i < len(operands) {
		ch := operands[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == ',':
			i++

		case ch == ';':
			return tokens, nil

		case ch == '[':
			tok, next, err := scanAddress(operands, i+1)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			i = next

		case isDigit(ch):
			value, next, err := scanNumber(operands, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, Token{Kind: TokNumber, Num: value})
			i = next

		case isNameChar(ch):
			start := i
			for i < len(operands) && isNameChar(operands[i]) {
				i++
			}
			word := operands[start:i]
			if i < len(operands) && operands[i] == ':' {
				i++
				tokens = append(tokens, Token{Kind: TokLabel, Sym: word})
				continue
			}
			if reg, ok := isa.LookupRegister(word); ok {
				tokens = append(tokens, Token{Kind: TokRegister, Reg: reg})
			} else {
				tokens = append(tokens, Token{Kind: TokName, Sym: word})
			}

		default:
			return nil, fmt.Errorf("unhandled character %q in operand list %q", ch, operands)
		}
	}

	return tokens, nil
}

// scanAddress reads the inside of a '[...]' form starting just after the
// opening bracket. A digit opens an address literal, a name character an
// address-in-register.
func scanAddress(s string, i int) (Token, int, error) {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	if i >= len(s) {
		return Token{}, 0, fmt.Errorf("unterminated '[' in operand list %q", s)
	}

	var tok Token
	switch {
	case isDigit(s[i]):
		value, next, err := scanNumber(s, i)
		if err != nil {
			return Token{}, 0, err
		}
		tok = Token{Kind: TokAddressLiteral, Num: value}
		i = next

	case isNameChar(s[i]):
		start := i
		for i < len(s) && isNameChar(s[i]) {
			i++
		}
		word := s[start:i]
		reg, ok := isa.LookupRegister(word)
		if !ok {
			return Token{}, 0, fmt.Errorf("unknown register %q in operand list %q", word, s)
		}
		tok = Token{Kind: TokAddressInRegister, Reg: reg}

	default:
		return Token{}, 0, fmt.Errorf("unexpected character %q after '[' in operand list %q", s[i], s)
	}

	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	if i >= len(s) || s[i] != ']' {
		return Token{}, 0, fmt.Errorf("expected ']' in operand list %q", s)
	}
	return tok, i + 1, nil
}

// scanNumber reads a decimal or 0x-prefixed hexadecimal literal.
func scanNumber(s string, i int) (uint64, int, error) {
	start := i
	base := 10
	if s[i] == '0' && i+1 < len(s) && (s[i+1] == 'x' || s[i+1] == 'X') {
		base = 16
		i += 2
		digits := i
		for i < len(s) && isHexDigit(s[i]) {
			i++
		}
		if i == digits {
			return 0, 0, fmt.Errorf("malformed hex literal in operand list %q", s)
		}
	} else {
		for i < len(s) && isDigit(s[i]) {
			i++
		}
	}

	text := s[start:i]
	if base == 16 {
		text = text[2:]
	}
	value, err := strconv.ParseUint(text, base, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("number %q does not fit in 64 bits", s[start:i])
	}
	return value, i, nil
}
