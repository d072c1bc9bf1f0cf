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
	"github.com/holiman/uint256"

	"github.com/lodaminer/lodaminer/log"
)

// opLoop runs the body between begin and end while it strictly shrinks the
// monitored window. Each iteration starts from a snapshot; the iteration
// that fails to shrink the window is rolled back and ends the loop.
func (in *Interpreter) opLoop(program *Program, state *ProgramState, begin, end int) error {
	ins := program.code[begin]
	cycles := 0
	for {
		start, err := in.address(ins, ins.Target, "target", state)
		if err != nil {
			return err
		}
		length, err := in.loopLength(ins, state)
		if err != nil {
			return err
		}
		snapshot := state.Clone()
		if err := in.run(program, state, begin+1, end); err != nil {
			return err
		}
		if !state.IsLess(snapshot, start, length) {
			state.restore(snapshot)
			in.loopExit(begin, cycles, state)
			return nil
		}
		cycles++
		if cycles > in.cfg.MaxLoopIterations {
			loopLimitCounter.Inc(1)
			return ErrLoopIterationLimitExceeded
		}
	}
}

// opLoopSubtract decrements the counter register and runs the body for as
// long as the counter was positive.
func (in *Interpreter) opLoopSubtract(program *Program, state *ProgramState, begin, end int) error {
	ins := program.code[begin]
	addr, err := in.address(ins, ins.Target, "target", state)
	if err != nil {
		return err
	}
	one := uint256.NewInt(1)
	cycles := 0
	for {
		counter := state.Get(addr)
		if counter.Sign() <= 0 {
			in.loopExit(begin, cycles, state)
			return nil
		}
		state.Set(addr, new(uint256.Int).Sub(&counter, one))
		if err := in.run(program, state, begin+1, end); err != nil {
			return err
		}
		cycles++
		if cycles > in.cfg.MaxLoopIterations {
			loopLimitCounter.Inc(1)
			return ErrLoopIterationLimitExceeded
		}
	}
}

// loopLength reads the window length of an lpb instruction.
func (in *Interpreter) loopLength(ins Instruction, state *ProgramState) (int64, error) {
	v, err := in.operand(ins, state)
	if err != nil {
		return 0, err
	}
	n, ok := valueInt64(v)
	if !ok {
		if isNegative(v) {
			return 0, nil
		}
		return int64(in.cfg.MaxRegisters), nil
	}
	return n, nil
}

func (in *Interpreter) loopExit(pc int, cycles int, state *ProgramState) {
	if in.cfg.Tracer != nil && in.cfg.Tracer.OnLoopExit != nil {
		in.cfg.Tracer.OnLoopExit(len(in.callStack), pc, cycles)
	}
	if state.mode == Verbose {
		log.Debug("Loop exit", "pc", pc, "cycles", cycles, "state", state.String())
	}
}
