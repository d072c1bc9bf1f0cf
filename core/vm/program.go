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
	"sort"
	"strings"
)

// Program is a validated instruction sequence. Programs returned by
// NewProgram are immutable and may be shared between interpreters.
type Program struct {
	code  []Instruction
	loops loopTable
}

// NewProgram validates code and returns the program. The slice is copied.
func NewProgram(code []Instruction) (*Program, error) {
	cpy := make([]Instruction, len(code))
	copy(cpy, code)
	for i, ins := range cpy {
		if err := ins.Validate(); err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
	}
	loops, err := analyseLoops(cpy)
	if err != nil {
		return nil, err
	}
	return &Program{code: cpy, loops: loops}, nil
}

// MustProgram is like NewProgram but panics on invalid code. Intended for
// tests and static tables.
func MustProgram(code []Instruction) *Program {
	p, err := NewProgram(code)
	if err != nil {
		panic(err)
	}
	return p
}

// Len returns the number of instructions.
func (p *Program) Len() int { return len(p.code) }

// Instructions returns a copy of the instruction sequence.
func (p *Program) Instructions() []Instruction {
	cpy := make([]Instruction, len(p.code))
	copy(cpy, p.code)
	return cpy
}

// At returns the instruction at index i.
func (p *Program) At(i int) Instruction { return p.code[i] }

// LoopDepth returns the deepest loop nesting level.
func (p *Program) LoopDepth() int { return maxLoopDepth(p.code) }

// UsesIndirect reports whether any instruction uses indirect addressing.
func (p *Program) UsesIndirect() bool {
	for _, ins := range p.code {
		if ins.UsesIndirect() {
			return true
		}
	}
	return false
}

// DependsOn returns the sorted, de-duplicated program ids called via seq.
func (p *Program) DependsOn() []uint64 {
	seen := make(map[uint64]struct{})
	for _, ins := range p.code {
		if ins.Op == SEQ {
			seen[uint64(ins.Source.Value)] = struct{}{}
		}
	}
	ids := make([]uint64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// MaxRegister returns the highest register index referenced directly,
// including the extent of constant loop windows and clear ranges, or -1 for
// a program that touches no register.
func (p *Program) MaxRegister() int64 {
	max := int64(-1)
	update := func(v int64) {
		if v > max {
			max = v
		}
	}
	for _, ins := range p.code {
		if ins.Op == LPE {
			continue
		}
		update(ins.Target.Value)
		if !ins.Op.HasSource() {
			continue
		}
		switch {
		case ins.Source.Type != Constant:
			update(ins.Source.Value)
		case (ins.Op == LPB || ins.Op == CLR) && ins.Target.Type == Direct && ins.Source.Value > 1:
			update(ins.Target.Value + ins.Source.Value - 1)
		}
	}
	return max
}

func (p *Program) String() string {
	var b strings.Builder
	for _, ins := range p.code {
		b.WriteString(ins.String())
		b.WriteByte('\n')
	}
	return b.String()
}
