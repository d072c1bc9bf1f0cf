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

package genome

import (
	"math"

	"github.com/lodaminer/lodaminer/core/vm"
)

// Item is the editable form of one instruction.
type Item struct {
	Enabled bool // disabled items are left out of the program
	Locked  bool // locked items are never altered by a mutation

	Op          vm.OpCode
	TargetType  vm.OperandType
	TargetValue int64
	SourceType  vm.OperandType
	SourceValue int64
}

// NewItem returns an enabled, unlocked item for ins.
func NewItem(ins vm.Instruction) Item {
	return Item{
		Enabled:     true,
		Op:          ins.Op,
		TargetType:  ins.Target.Type,
		TargetValue: ins.Target.Value,
		SourceType:  ins.Source.Type,
		SourceValue: ins.Source.Value,
	}
}

// Instruction converts the item back into an instruction.
func (it Item) Instruction() vm.Instruction {
	ins := vm.Instruction{Op: it.Op}
	if it.Op.HasTarget() {
		ins.Target = vm.Operand{Type: it.TargetType, Value: it.TargetValue}
	}
	if it.Op.HasSource() {
		ins.Source = vm.Operand{Type: it.SourceType, Value: it.SourceValue}
	}
	return ins
}

// String renders the item as an assembly line.
func (it Item) String() string {
	return it.Instruction().String()
}

// Valid reports whether the item forms an instruction the interpreter
// accepts and that cannot trivially divide by zero.
func (it Item) Valid() bool {
	if it.Instruction().Validate() != nil {
		return false
	}
	return !it.hasZeroDivisor()
}

func (it Item) hasZeroDivisor() bool {
	switch it.Op {
	case vm.DIV, vm.DIF, vm.MOD:
		return it.SourceType == vm.Constant && it.SourceValue == 0
	}
	return false
}

// UsesIndirect reports whether either operand is indirect.
func (it Item) UsesIndirect() bool {
	return it.Instruction().UsesIndirect()
}

// SetOp replaces the opcode. Loop and call instructions give their source
// a special meaning, so the opcode is never changed to or from one of them.
// It reports false when the item was left unchanged.
func (it *Item) SetOp(op vm.OpCode) bool {
	if it.Op == op || isSpecial(it.Op) || isSpecial(op) {
		return false
	}
	next := *it
	next.Op = op
	if !next.Valid() {
		return false
	}
	*it = next
	return true
}

// swapRegisters exchanges the target and source registers.
func (it *Item) swapRegisters() bool {
	if it.TargetType != vm.Direct || it.SourceType != vm.Direct {
		return false
	}
	if it.TargetValue == it.SourceValue {
		return false
	}
	it.TargetValue, it.SourceValue = it.SourceValue, it.TargetValue
	return true
}

func isSpecial(op vm.OpCode) bool {
	return isLoop(op) || op == vm.SEQ
}

func isLoop(op vm.OpCode) bool {
	return op == vm.LPB || op == vm.LPE || op == vm.LPS
}

// withSourceValue returns the item with a new source value when the
// result is valid.
func (it Item) withSourceValue(v int64) (Item, bool) {
	it.SourceValue = v
	return it, it.Valid()
}

func increment(v int64) (int64, bool) {
	if v == math.MaxInt64 {
		return 0, false
	}
	return v + 1, true
}

func decrement(v int64) (int64, bool) {
	if v == math.MinInt64 {
		return 0, false
	}
	return v - 1, true
}
