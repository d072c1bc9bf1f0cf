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
	"strings"

	"github.com/holiman/uint256"
)

// RunMode selects how much an execution reports while running.
type RunMode int

const (
	Silent RunMode = iota
	Verbose
)

// ProgramState is the register file of one execution plus its bookkeeping.
// Registers that were never written read as zero. A state must not be shared
// between concurrent executions.
type ProgramState struct {
	registers []uint256.Int
	steps     uint64
	mode      RunMode
}

// NewProgramState returns an empty state.
func NewProgramState(mode RunMode) *ProgramState {
	return &ProgramState{mode: mode}
}

// NewProgramStateWith returns a state whose leading registers hold values.
func NewProgramStateWith(mode RunMode, values ...int64) *ProgramState {
	s := &ProgramState{registers: make([]uint256.Int, len(values)), mode: mode}
	for i, v := range values {
		s.registers[i] = *NewValue(v)
	}
	return s
}

// RunMode returns the verbosity of the execution.
func (s *ProgramState) RunMode() RunMode { return s.mode }

// Steps returns the number of instructions executed against this state.
func (s *ProgramState) Steps() uint64 { return s.steps }

// Len returns the number of materialized registers.
func (s *ProgramState) Len() int { return len(s.registers) }

// Get returns a copy of register i.
func (s *ProgramState) Get(i uint64) uint256.Int {
	if i >= uint64(len(s.registers)) {
		return uint256.Int{}
	}
	return s.registers[i]
}

// GetInt64 returns register i when it fits an int64.
func (s *ProgramState) GetInt64(i uint64) (int64, bool) {
	v := s.Get(i)
	return valueInt64(&v)
}

// Set stores v into register i, growing the register file as needed.
func (s *ProgramState) Set(i uint64, v *uint256.Int) {
	if i >= uint64(len(s.registers)) {
		if v.IsZero() {
			return
		}
		grown := make([]uint256.Int, i+1, 2*(i+1))
		copy(grown, s.registers)
		s.registers = grown
	}
	s.registers[i] = *v
}

// SetInt64 stores v into register i.
func (s *ProgramState) SetInt64(i uint64, v int64) {
	s.Set(i, NewValue(v))
}

// Clone returns a deep copy of the state.
func (s *ProgramState) Clone() *ProgramState {
	cpy := &ProgramState{
		registers: make([]uint256.Int, len(s.registers)),
		steps:     s.steps,
		mode:      s.mode,
	}
	copy(cpy.registers, s.registers)
	return cpy
}

// restore resets the registers to those of snapshot. The step counter keeps
// counting so that discarded loop iterations still count against limits.
func (s *ProgramState) restore(snapshot *ProgramState) {
	if cap(s.registers) >= len(snapshot.registers) {
		s.registers = s.registers[:len(snapshot.registers)]
	} else {
		s.registers = make([]uint256.Int, len(snapshot.registers))
	}
	copy(s.registers, snapshot.registers)
}

// IsLess compares the window [start, start+length) of s against the same
// window of other. It reports true only when s is lexicographically smaller
// and no register of s inside the window is negative before the first
// difference. A non-positive length is never less.
func (s *ProgramState) IsLess(other *ProgramState, start uint64, length int64) bool {
	if length <= 0 {
		return false
	}
	end := start + uint64(length)
	if end < start {
		end = ^uint64(0)
	}
	// Beyond both register files every value is zero, so nothing differs.
	limit := uint64(len(s.registers))
	if n := uint64(len(other.registers)); n > limit {
		limit = n
	}
	if end > limit {
		end = limit
	}
	for i := start; i < end; i++ {
		lhs, rhs := s.Get(i), other.Get(i)
		if isNegative(&lhs) {
			return false
		}
		switch signedCmp(&lhs, &rhs) {
		case -1:
			return true
		case 1:
			return false
		}
	}
	return false
}

// Equal reports whether both states hold the same register values.
func (s *ProgramState) Equal(other *ProgramState) bool {
	n := len(s.registers)
	if len(other.registers) > n {
		n = len(other.registers)
	}
	for i := 0; i < n; i++ {
		a, b := s.Get(uint64(i)), other.Get(uint64(i))
		if !a.Eq(&b) {
			return false
		}
	}
	return true
}

// String renders the registers as a bracketed list.
func (s *ProgramState) String() string {
	parts := make([]string, len(s.registers))
	for i := range s.registers {
		parts[i] = FormatValue(&s.registers[i])
	}
	return "[" + strings.Join(parts, ",") + "]"
}
