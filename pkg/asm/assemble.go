// Package asm translates assembly text into the VM's bytecode stream. The
// driver makes two passes: the first tokenizes every statement, resolves it
// against the addressing-mode table and records label offsets (instruction
// widths are static per opcode and size, so nothing needs evaluating); the
// second emits bytes with every label reference resolved, forward ones
// included.
package asm

import (
	"fmt"
	"io"
	"strings"

	"github.com/avoran/svm64/pkg/isa"
)

type statement struct {
	line   int
	text   string
	entry  modeEntry
	tokens []Token
}

// Assemble translates source lines into bytecode. Any diagnostic aborts the
// whole invocation; no partial output is returned alongside an error.
func Assemble(lines []string) ([]byte, error) {
	return assemble(lines, nil)
}

// AssembleVerbose is Assemble with a per-statement listing written to w:
// the source line, the resolved opcode and handled size, and the emitted
// bytes.
func AssembleVerbose(lines []string, w io.Writer) ([]byte, error) {
	return assemble(lines, w)
}

func assemble(lines []string, listing io.Writer) ([]byte, error) {
	stmts, labels, err := firstPass(lines)
	if err != nil {
		return nil, err
	}

	var code []byte
	for _, stmt := range stmts {
		frame, err := encode(stmt, labels)
		if err != nil {
			return nil, err
		}
		if listing != nil {
			fmt.Fprintf(listing, "%d: %s\n", stmt.line, stmt.text)
			fmt.Fprintf(listing, "    %s, %d\n", isa.Names[stmt.entry.op], stmt.entry.size)
			fmt.Fprintf(listing, "    % X\n", frame)
		}
		code = append(code, frame...)
	}
	return code, nil
}

// firstPass tokenizes and resolves every statement, accumulating the label
// map keyed by the byte offset the next emitted instruction will start at.
func firstPass(lines []string) ([]statement, map[string]uint64, error) {
	var stmts []statement
	labels := make(map[string]uint64)
	labelLines := make(map[string]int)

	offset := 0
	for i, raw := range lines {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}

		operator, rest := splitOperator(line)
		tokens, err := Tokenize(rest)
		if err != nil {
			return nil, nil, errorf(lineNo, "%v", err)
		}

		entry, known, ok := lookupMode(operator, tokens)
		if !known {
			return nil, nil, errorf(lineNo, "unknown instruction %q in %q", operator, line)
		}
		if !ok {
			return nil, nil, errorf(lineNo, "illegal operands %s for instruction %q in %q",
				describeOperands(tokens), operator, line)
		}

		if entry.op == isa.LABEL {
			name := tokens[0].Sym
			if prev, dup := labelLines[name]; dup {
				return nil, nil, errorf(lineNo, "duplicate label %q, previously defined on line %d", name, prev)
			}
			labels[name] = uint64(offset)
			labelLines[name] = lineNo
			continue
		}

		stmts = append(stmts, statement{line: lineNo, text: line, entry: entry, tokens: tokens})
		offset += isa.Width(entry.op, entry.size)
	}
	return stmts, labels, nil
}

// splitOperator separates the operator mnemonic from the operand substring.
// A leading '@' is the label operator regardless of spacing, so both "@top"
// and "@ top" parse.
func splitOperator(line string) (string, string) {
	if line[0] == '@' {
		return "@", line[1:]
	}
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		return line[:i], line[i+1:]
	}
	return line, ""
}

func describeOperands(tokens []Token) string {
	if len(tokens) == 0 {
		return "(none)"
	}
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}

// encode emits one instruction frame: opcode, handled_size when the opcode
// carries one, then each operand little-endian at its catalog width.
func encode(stmt statement, labels map[string]uint64) ([]byte, error) {
	info := &isa.Decode[stmt.entry.op]

	frame := make([]byte, 0, isa.Width(stmt.entry.op, stmt.entry.size))
	frame = append(frame, byte(stmt.entry.op))
	if info.Sized {
		frame = append(frame, byte(stmt.entry.size))
	}

	for i, operand := range info.Operands {
		tok := stmt.tokens[i]

		var value uint64
		switch tok.Kind {
		case TokRegister, TokAddressInRegister:
			value = uint64(tok.Reg)
		case TokNumber, TokAddressLiteral:
			value = tok.Num
		case TokName:
			target, ok := labels[tok.Sym]
			if !ok {
				return nil, errorf(stmt.line, "unresolved label %q in %q", tok.Sym, stmt.text)
			}
			value = target
		default:
			return nil, errorf(stmt.line, "unexpected token %s in %q", tok, stmt.text)
		}

		width := operand.Width
		if width == isa.WidthSized {
			width = stmt.entry.size
		}
		if byteLen(value) > width {
			return nil, errorf(stmt.line, "number %d cannot fit in %d bytes in %q", value, width, stmt.text)
		}
		frame = appendLittleEndian(frame, value, width)
	}
	return frame, nil
}

// byteLen returns how many bytes are needed to represent value.
func byteLen(value uint64) int {
	n := 1
	for value > 0xFF {
		value >>= 8
		n++
	}
	return n
}

func appendLittleEndian(buf []byte, value uint64, width int) []byte {
	for i := 0; i < width; i++ {
		buf = append(buf, byte(value))
		value >>= 8
	}
	return buf
}
