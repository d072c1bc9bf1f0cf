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

package vm

import (
	"fmt"
)

// OpCode is a LODA instruction opcode.
type OpCode byte

// 0x0 range - data movement and arithmetic.
const (
	MOV OpCode = iota
	ADD
	SUB
	TRN
	MUL
	DIV
	DIF
	MOD
	POW
	GCD
	BIN
	CMP
	MIN
	MAX
	CLR
)

// 0x20 range - control flow.
const (
	LPB OpCode = 0x20 + iota
	LPE
	LPS
	SEQ
)

var opCodeToString = map[OpCode]string{
	MOV: "mov",
	ADD: "add",
	SUB: "sub",
	TRN: "trn",
	MUL: "mul",
	DIV: "div",
	DIF: "dif",
	MOD: "mod",
	POW: "pow",
	GCD: "gcd",
	BIN: "bin",
	CMP: "cmp",
	MIN: "min",
	MAX: "max",
	CLR: "clr",

	LPB: "lpb",
	LPE: "lpe",
	LPS: "lps",
	SEQ: "seq",
}

func (op OpCode) String() string {
	if s := opCodeToString[op]; s != "" {
		return s
	}
	return fmt.Sprintf("opcode %#x not defined", int(op))
}

var stringToOp = map[string]OpCode{}

func init() {
	for op, s := range opCodeToString {
		stringToOp[s] = op
	}
}

// StringToOp finds the opcode whose name is stored in `str`.
func StringToOp(str string) (OpCode, bool) {
	op, ok := stringToOp[str]
	return op, ok
}

// AllOpCodes returns every defined opcode in ascending order.
func AllOpCodes() []OpCode {
	ops := []OpCode{MOV, ADD, SUB, TRN, MUL, DIV, DIF, MOD, POW, GCD, BIN, CMP, MIN, MAX, CLR, LPB, LPE, LPS, SEQ}
	return ops
}

// IsLoopBegin reports whether op opens a loop scope.
func (op OpCode) IsLoopBegin() bool {
	return op == LPB || op == LPS
}

// IsArithmetic reports whether op is a binary register operation.
func (op OpCode) IsArithmetic() bool {
	return op <= MAX
}

// HasSource reports whether instructions of this opcode carry a source operand.
func (op OpCode) HasSource() bool {
	return op != LPE && op != LPS
}

// HasTarget reports whether instructions of this opcode carry a target operand.
func (op OpCode) HasTarget() bool {
	return op != LPE
}
