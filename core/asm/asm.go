// Copyright 2024 The lodaminer Authors
// This file is part of the lodaminer library.
//
// The lodaminer library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The lodaminer library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the lodaminer library. If not, see <http://www.gnu.org/licenses/>.

// Package asm reads and writes the textual LODA assembly format.
//
// A program is one instruction per line:
//
//	; A000045: Fibonacci numbers.
//	#offset 0
//	mov $3,1
//	lpb $0
//	  sub $0,1
//	  mov $2,$1
//	  add $1,$3
//	  mov $3,$2
//	lpe
//	mov $0,$1
//
// Everything after ';' is a comment. Lines starting with '#' are directives;
// only #offset is interpreted.
package asm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lodaminer/lodaminer/core/vm"
)

// ErrSyntax is wrapped by every ParseError caused by malformed text.
var ErrSyntax = errors.New("syntax error")

// ParseError reports a malformed line. Line numbers start at 1.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
}

func (e *ParseError) Unwrap() error { return e.Err }

// File is a parsed assembly file.
type File struct {
	Code   []vm.Instruction
	Offset int64
}

// ParseFile parses a complete program text including directives.
func ParseFile(text string) (*File, error) {
	file := new(File)
	for i, raw := range strings.Split(text, "\n") {
		line := stripComment(raw)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if err := file.directive(line); err != nil {
				return nil, &ParseError{Line: i + 1, Text: raw, Err: err}
			}
			continue
		}
		ins, err := parseInstruction(line)
		if err != nil {
			return nil, &ParseError{Line: i + 1, Text: raw, Err: err}
		}
		file.Code = append(file.Code, ins)
	}
	return file, nil
}

// Parse parses program text into instructions.
func Parse(text string) ([]vm.Instruction, error) {
	file, err := ParseFile(text)
	if err != nil {
		return nil, err
	}
	return file.Code, nil
}

// ParseProgram parses program text and validates it into a program.
func ParseProgram(text string) (*vm.Program, error) {
	code, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return vm.NewProgram(code)
}

// MustParseProgram is like ParseProgram but panics on error. Intended for
// tests.
func MustParseProgram(text string) *vm.Program {
	p, err := ParseProgram(text)
	if err != nil {
		panic(err)
	}
	return p
}

// ParseLine parses a single instruction line. Comments are allowed; blank
// lines and directives are rejected.
func ParseLine(line string) (vm.Instruction, error) {
	stripped := stripComment(line)
	if stripped == "" || strings.HasPrefix(stripped, "#") {
		return vm.Instruction{}, &ParseError{Line: 1, Text: line, Err: fmt.Errorf("%w: no instruction", ErrSyntax)}
	}
	ins, err := parseInstruction(stripped)
	if err != nil {
		return vm.Instruction{}, &ParseError{Line: 1, Text: line, Err: err}
	}
	return ins, nil
}

func (f *File) directive(line string) error {
	fields := strings.Fields(line)
	if fields[0] != "#offset" {
		return nil
	}
	if len(fields) != 2 {
		return fmt.Errorf("%w: #offset expects one value", ErrSyntax)
	}
	v, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad offset %q", ErrSyntax, fields[1])
	}
	f.Offset = v
	return nil
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

func parseInstruction(line string) (vm.Instruction, error) {
	name, rest := line, ""
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		name, rest = line[:i], line[i+1:]
	}
	op, ok := vm.StringToOp(name)
	if !ok {
		return vm.Instruction{}, fmt.Errorf("%w: unknown instruction %q", ErrSyntax, name)
	}
	var args []string
	if rest = strings.TrimSpace(rest); rest != "" {
		args = strings.Split(rest, ",")
	}
	ins := vm.Instruction{Op: op}
	switch {
	case op == vm.LPE:
		if len(args) != 0 {
			return ins, fmt.Errorf("%w: lpe takes no operands", ErrSyntax)
		}
		return ins, nil
	case op == vm.LPS:
		if len(args) != 1 {
			return ins, fmt.Errorf("%w: lps takes one operand", ErrSyntax)
		}
	case op == vm.LPB:
		if len(args) != 1 && len(args) != 2 {
			return ins, fmt.Errorf("%w: lpb takes one or two operands", ErrSyntax)
		}
		ins.Source = vm.Const(1)
	default:
		if len(args) != 2 {
			return ins, fmt.Errorf("%w: %s takes two operands", ErrSyntax, op)
		}
	}
	target, err := parseOperand(args[0])
	if err != nil {
		return ins, err
	}
	ins.Target = target
	if len(args) == 2 {
		source, err := parseOperand(args[1])
		if err != nil {
			return ins, err
		}
		ins.Source = source
	}
	if err := ins.Validate(); err != nil {
		return ins, err
	}
	return ins, nil
}

// ParseOperand parses a single operand such as "5", "$5" or "$$5".
func ParseOperand(s string) (vm.Operand, error) {
	return parseOperand(s)
}

func parseOperand(s string) (vm.Operand, error) {
	s = strings.TrimSpace(s)
	typ := vm.Constant
	switch {
	case strings.HasPrefix(s, "$$"):
		typ, s = vm.Indirect, s[2:]
	case strings.HasPrefix(s, "$"):
		typ, s = vm.Direct, s[1:]
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return vm.Operand{}, fmt.Errorf("%w: bad operand %q", ErrSyntax, s)
	}
	return vm.Operand{Type: typ, Value: v}, nil
}

// Format renders instructions one per line, indenting loop bodies by two
// spaces per level.
func Format(code []vm.Instruction) string {
	var b strings.Builder
	depth := 0
	for _, ins := range code {
		if ins.Op == vm.LPE && depth > 0 {
			depth--
		}
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(ins.String())
		b.WriteByte('\n')
		if ins.Op.IsLoopBegin() {
			depth++
		}
	}
	return b.String()
}

// Canonical returns the comment free, unindented form of a program text
// with one instruction per line and no trailing newline. Texts that differ
// only in layout share the same canonical form.
func Canonical(text string) (string, error) {
	code, err := Parse(text)
	if err != nil {
		return "", err
	}
	return CanonicalCode(code), nil
}

// CanonicalCode returns the canonical form of an instruction sequence.
func CanonicalCode(code []vm.Instruction) string {
	lines := make([]string, len(code))
	for i, ins := range code {
		lines[i] = ins.String()
	}
	return strings.Join(lines, "\n")
}
