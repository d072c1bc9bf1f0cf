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

// Interpreter executes LODA programs. An Interpreter is not safe for
// concurrent use; create one per goroutine and share the Resolver and
// CallCache between them.
type Interpreter struct {
	cfg      Config
	resolver Resolver
	cache    *CallCache

	callStack []uint64 // Program ids of the active seq calls
}

// NewInterpreter returns a new instance of the Interpreter. The resolver and
// cache may be nil.
func NewInterpreter(cfg Config, resolver Resolver, cache *CallCache) *Interpreter {
	return &Interpreter{
		cfg:      cfg.sanitize(),
		resolver: resolver,
		cache:    cache,
	}
}

// Config returns the effective configuration.
func (in *Interpreter) Config() Config {
	return in.cfg
}

// Run executes the program against state. On error the state holds whatever
// the failing instruction left behind and must be discarded.
func (in *Interpreter) Run(program *Program, state *ProgramState) error {
	runCounter.Inc(1)
	in.callStack = in.callStack[:0]
	start := state.steps
	defer func() { stepCounter.Inc(int64(state.steps - start)) }()

	if program.loops == nil && program.Len() > 0 {
		loops, err := analyseLoops(program.code)
		if err != nil {
			return err
		}
		program = &Program{code: program.code, loops: loops}
	}
	return in.run(program, state, 0, program.Len())
}

// Evaluate runs program with $0 = input and returns the resulting $0.
func (in *Interpreter) Evaluate(program *Program, input int64) (*uint256.Int, *ProgramState, error) {
	state := NewProgramStateWith(Silent, input)
	if err := in.Run(program, state); err != nil {
		return nil, state, err
	}
	out := state.Get(0)
	return &out, state, nil
}

// run executes the instructions in [from, to). Loops recurse into their body.
func (in *Interpreter) run(program *Program, state *ProgramState, from, to int) error {
	var (
		debug   = in.cfg.Tracer != nil && in.cfg.Tracer.OnStep != nil
		verbose = state.mode == Verbose
		depth   = len(in.callStack)
	)
	for pc := from; pc < to; pc++ {
		ins := program.code[pc]

		state.steps++
		if in.cfg.MaxSteps > 0 && state.steps > in.cfg.MaxSteps {
			return ErrStepLimitExceeded
		}
		if debug {
			in.cfg.Tracer.OnStep(depth, pc, ins, state)
		}
		var before string
		if verbose {
			before = state.String()
		}

		var err error
		switch ins.Op {
		case LPB:
			end := program.loops[pc]
			err = in.opLoop(program, state, pc, end)
			pc = end
		case LPS:
			end := program.loops[pc]
			err = in.opLoopSubtract(program, state, pc, end)
			pc = end
		case LPE:
			// Only reached when a loop body is entered directly.
		case SEQ:
			err = in.opSeq(ins, state)
		case CLR:
			err = in.opClr(ins, state)
		default:
			err = in.opBinary(ins, state)
		}
		if err != nil {
			return err
		}
		if verbose && !ins.Op.IsLoopBegin() {
			log.Debug("Executed instruction", "depth", depth, "ins", ins.String(), "before", before, "after", state.String())
		}
	}
	return nil
}

// address resolves a register operand into a register index.
func (in *Interpreter) address(ins Instruction, op Operand, which string, state *ProgramState) (uint64, error) {
	var addr int64
	switch op.Type {
	case Direct:
		addr = op.Value
	case Indirect:
		ptr := state.Get(uint64(op.Value))
		v, ok := valueInt64(&ptr)
		if !ok {
			return 0, &AddressingError{Op: ins.Op, Operand: which, Type: op.Type, Value: op.Value, Reason: "pointer out of range"}
		}
		addr = v
	default:
		return 0, &AddressingError{Op: ins.Op, Operand: which, Type: op.Type, Value: op.Value, Reason: "not a register"}
	}
	if addr < 0 || uint64(addr) >= in.cfg.MaxRegisters {
		return 0, &AddressingError{Op: ins.Op, Operand: which, Type: op.Type, Value: op.Value, Reason: "register out of range"}
	}
	return uint64(addr), nil
}

// operand reads the value of a source operand.
func (in *Interpreter) operand(ins Instruction, state *ProgramState) (*uint256.Int, error) {
	if ins.Source.Type == Constant {
		return NewValue(ins.Source.Value), nil
	}
	addr, err := in.address(ins, ins.Source, "source", state)
	if err != nil {
		return nil, err
	}
	v := state.Get(addr)
	return &v, nil
}

func (in *Interpreter) opBinary(ins Instruction, state *ProgramState) error {
	addr, err := in.address(ins, ins.Target, "target", state)
	if err != nil {
		return err
	}
	b, err := in.operand(ins, state)
	if err != nil {
		return err
	}
	a := state.Get(addr)
	z, err := evalBinary(ins.Op, &a, b)
	if err != nil {
		return err
	}
	state.Set(addr, z)
	return nil
}

// opClr zeroes |n| registers starting at the target; a negative n clears
// the registers ending at the target.
func (in *Interpreter) opClr(ins Instruction, state *ProgramState) error {
	addr, err := in.address(ins, ins.Target, "target", state)
	if err != nil {
		return err
	}
	nv, err := in.operand(ins, state)
	if err != nil {
		return err
	}
	n, ok := valueInt64(nv)
	if !ok {
		// Beyond any register the file can hold.
		if isNegative(nv) {
			n = -int64(in.cfg.MaxRegisters)
		} else {
			n = int64(in.cfg.MaxRegisters)
		}
	}
	if limit := int64(in.cfg.MaxRegisters); n > limit {
		n = limit
	} else if n < -limit {
		n = -limit
	}
	var lo, hi int64
	switch {
	case n > 0:
		lo, hi = int64(addr), int64(addr)+n
	case n < 0:
		lo, hi = int64(addr)+n+1, int64(addr)+1
	default:
		return nil
	}
	if lo < 0 {
		lo = 0
	}
	if hi > int64(state.Len()) {
		hi = int64(state.Len())
	}
	for i := lo; i < hi; i++ {
		state.registers[i].Clear()
	}
	return nil
}
