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

	lru "github.com/hashicorp/golang-lru"
	"github.com/holiman/uint256"
)

// Resolver maps a program id to its loaded program.
type Resolver interface {
	Resolve(id uint64) (*Program, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(id uint64) (*Program, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(id uint64) (*Program, error) { return f(id) }

type callKey struct {
	id    uint64
	input uint256.Int
}

// CallCache memoizes seq results by program id and input. It is safe for
// concurrent use and may be shared by many interpreters running with the
// same limits.
type CallCache struct {
	cache *lru.Cache
}

// NewCallCache returns a cache holding up to size results, or nil when size
// is not positive.
func NewCallCache(size int) *CallCache {
	if size <= 0 {
		return nil
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil
	}
	return &CallCache{cache: cache}
}

func (c *CallCache) get(id uint64, input *uint256.Int) (uint256.Int, bool) {
	if c == nil {
		return uint256.Int{}, false
	}
	v, ok := c.cache.Get(callKey{id, *input})
	if !ok {
		callCacheMissMeter.Inc(1)
		return uint256.Int{}, false
	}
	callCacheHitMeter.Inc(1)
	return v.(uint256.Int), true
}

func (c *CallCache) add(id uint64, input, output *uint256.Int) {
	if c == nil {
		return
	}
	c.cache.Add(callKey{id, *input}, *output)
}

// Len returns the number of cached results.
func (c *CallCache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.Len()
}

// Purge drops every cached result.
func (c *CallCache) Purge() {
	if c != nil {
		c.cache.Purge()
	}
}

// opSeq runs the program named by the source operand with the target
// register as its $0 and stores the callee's $0 back into the target.
func (in *Interpreter) opSeq(ins Instruction, state *ProgramState) error {
	addr, err := in.address(ins, ins.Target, "target", state)
	if err != nil {
		return err
	}
	input := state.Get(addr)
	output, err := in.call(uint64(ins.Source.Value), &input, state)
	if err != nil {
		return err
	}
	state.Set(addr, output)
	return nil
}

// call evaluates program id for the given input. The callee runs on a fresh
// register file whose step counter continues the caller's.
func (in *Interpreter) call(id uint64, input *uint256.Int, caller *ProgramState) (*uint256.Int, error) {
	for i, active := range in.callStack {
		if active == id {
			path := append(append([]uint64{}, in.callStack[i:]...), id)
			return nil, &CyclicDependencyError{Path: path}
		}
	}
	if len(in.callStack) >= in.cfg.MaxCallDepth {
		return nil, ErrCallDepthExceeded
	}
	if cached, ok := in.cache.get(id, input); ok {
		return &cached, nil
	}
	if in.resolver == nil {
		return nil, fmt.Errorf("%w: A%06d: no resolver", ErrUnresolvedDependency, id)
	}
	program, err := in.resolver.Resolve(id)
	if err != nil {
		return nil, err
	}
	if in.cfg.Tracer != nil && in.cfg.Tracer.OnCall != nil {
		in.cfg.Tracer.OnCall(len(in.callStack), id)
	}

	callee := &ProgramState{steps: caller.steps, mode: caller.mode}
	callee.Set(0, input)

	in.callStack = append(in.callStack, id)
	err = in.run(program, callee, 0, program.Len())
	in.callStack = in.callStack[:len(in.callStack)-1]
	caller.steps = callee.steps
	if err != nil {
		return nil, err
	}
	output := callee.Get(0)
	in.cache.add(id, input, &output)
	return &output, nil
}
