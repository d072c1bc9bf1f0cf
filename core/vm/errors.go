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
	"errors"
	"fmt"
	"strings"
)

// List of execution errors
var (
	ErrDivisionByZero             = errors.New("division by zero")
	ErrUnsupportedAddressing      = errors.New("unsupported or invalid addressing")
	ErrLoopIterationLimitExceeded = errors.New("loop iteration limit exceeded")
	ErrCyclicDependency           = errors.New("cyclic dependency")
	ErrUnresolvedDependency       = errors.New("unresolved dependency")
	ErrRegisterOverflow           = errors.New("register overflow")
	ErrStepLimitExceeded          = errors.New("step limit exceeded")
	ErrCallDepthExceeded          = errors.New("max call depth exceeded")
	ErrUnbalancedLoop             = errors.New("unbalanced loop")
)

// AddressingError wraps ErrUnsupportedAddressing with the offending operand.
type AddressingError struct {
	Op      OpCode
	Operand string // "target" or "source"
	Type    OperandType
	Value   int64
	Reason  string
}

func (e *AddressingError) Error() string {
	msg := fmt.Sprintf("%s: %s %s operand %s", ErrUnsupportedAddressing, e.Op, e.Operand, Operand{Type: e.Type, Value: e.Value})
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

func (e *AddressingError) Unwrap() error {
	return ErrUnsupportedAddressing
}

// CyclicDependencyError wraps ErrCyclicDependency with the call path that
// revisited a program.
type CyclicDependencyError struct {
	Path []uint64
}

func (e *CyclicDependencyError) Error() string {
	parts := make([]string, len(e.Path))
	for i, id := range e.Path {
		parts[i] = fmt.Sprintf("A%06d", id)
	}
	return fmt.Sprintf("%s: %s", ErrCyclicDependency, strings.Join(parts, " -> "))
}

func (e *CyclicDependencyError) Unwrap() error {
	return ErrCyclicDependency
}

// UnbalancedLoopError reports the instruction index of an unmatched loop
// instruction.
type UnbalancedLoopError struct {
	Index int
	Op    OpCode
}

func (e *UnbalancedLoopError) Error() string {
	return fmt.Sprintf("%s: unmatched %s at instruction %d", ErrUnbalancedLoop, e.Op, e.Index)
}

func (e *UnbalancedLoopError) Unwrap() error {
	return ErrUnbalancedLoop
}
