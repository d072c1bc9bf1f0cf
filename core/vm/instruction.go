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
	"strconv"
	"strings"
)

// OperandType is the addressing mode of an operand.
type OperandType byte

const (
	Constant OperandType = iota
	Direct
	Indirect
)

func (t OperandType) String() string {
	switch t {
	case Constant:
		return "constant"
	case Direct:
		return "direct"
	case Indirect:
		return "indirect"
	default:
		return "unknown"
	}
}

// Operand is a constant or a register reference.
type Operand struct {
	Type  OperandType
	Value int64
}

// Const returns a constant operand.
func Const(v int64) Operand { return Operand{Type: Constant, Value: v} }

// Reg returns a direct register operand.
func Reg(i int64) Operand { return Operand{Type: Direct, Value: i} }

// Ind returns an indirect register operand.
func Ind(i int64) Operand { return Operand{Type: Indirect, Value: i} }

func (o Operand) String() string {
	v := strconv.FormatInt(o.Value, 10)
	switch o.Type {
	case Direct:
		return "$" + v
	case Indirect:
		return "$$" + v
	default:
		return v
	}
}

// Instruction is one opcode with its operands. Opcodes without a source
// operand leave Source as the zero constant.
type Instruction struct {
	Op     OpCode
	Target Operand
	Source Operand
}

// String renders the instruction in canonical assembly form.
func (ins Instruction) String() string {
	switch ins.Op {
	case LPE:
		return "lpe"
	case LPS:
		return "lps " + ins.Target.String()
	case LPB:
		if ins.Source.Type == Constant && ins.Source.Value == 1 {
			return "lpb " + ins.Target.String()
		}
	}
	var b strings.Builder
	b.WriteString(ins.Op.String())
	b.WriteByte(' ')
	b.WriteString(ins.Target.String())
	b.WriteByte(',')
	b.WriteString(ins.Source.String())
	return b.String()
}

// UsesIndirect reports whether either operand uses indirect addressing.
func (ins Instruction) UsesIndirect() bool {
	return ins.Target.Type == Indirect || (ins.Op.HasSource() && ins.Source.Type == Indirect)
}

// Validate checks the operand combination against the addressing modes
// accepted by the interpreter.
//
//	arithmetic  target: direct, indirect  source: constant, direct, indirect
//	clr         target: direct, indirect  source: constant, direct
//	lpb         target: direct, indirect  source: constant, direct
//	lps         target: direct
//	seq         target: direct, indirect  source: constant >= 0
//	lpe         no operands
func (ins Instruction) Validate() error {
	if _, ok := opCodeToString[ins.Op]; !ok {
		return &AddressingError{Op: ins.Op, Operand: "opcode", Reason: "undefined opcode"}
	}
	if ins.Op == LPE {
		return nil
	}
	if err := ins.validateTarget(); err != nil {
		return err
	}
	if !ins.Op.HasSource() {
		return nil
	}
	src := ins.Source
	bad := func(reason string) error {
		return &AddressingError{Op: ins.Op, Operand: "source", Type: src.Type, Value: src.Value, Reason: reason}
	}
	if src.Type > Indirect {
		return bad("unknown operand type")
	}
	if src.Type != Constant && src.Value < 0 {
		return bad("negative register index")
	}
	switch ins.Op {
	case SEQ:
		if src.Type != Constant {
			return bad("program id must be a constant")
		}
		if src.Value < 0 {
			return bad("negative program id")
		}
	case LPB, CLR:
		if src.Type == Indirect {
			return bad("indirect length")
		}
	}
	return nil
}

func (ins Instruction) validateTarget() error {
	t := ins.Target
	bad := func(reason string) error {
		return &AddressingError{Op: ins.Op, Operand: "target", Type: t.Type, Value: t.Value, Reason: reason}
	}
	switch t.Type {
	case Constant:
		return bad("target must be a register")
	case Indirect:
		if ins.Op == LPS {
			return bad("indirect loop counter")
		}
	case Direct:
	default:
		return bad("unknown operand type")
	}
	if t.Value < 0 {
		return bad("negative register index")
	}
	return nil
}
