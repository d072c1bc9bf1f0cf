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

package suggest

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/exp/slices"

	"github.com/lodaminer/lodaminer/core/vm"
)

// Builder accumulates corpus statistics. It is safe for concurrent use, and
// the built Context does not depend on the order programs were added in.
type Builder struct {
	mu sync.Mutex

	instructions *ngramBuilder
	lines        *ngramBuilder
	targets      *ngramBuilder
	sources      *ngramBuilder
	constants    map[vm.OpCode]counter[int64]
	calls        counter[uint64]
	indirect     mapset.Set[uint64]
	recent       mapset.Set[uint64]
	programs     vm.Resolver
	count        int
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		instructions: newNgramBuilder(),
		lines:        newNgramBuilder(),
		targets:      newNgramBuilder(),
		sources:      newNgramBuilder(),
		constants:    make(map[vm.OpCode]counter[int64]),
		calls:        make(counter[uint64]),
		indirect:     mapset.NewThreadUnsafeSet[uint64](),
		recent:       mapset.NewThreadUnsafeSet[uint64](),
	}
}

// AddProgram records the statistics of one corpus program.
func (b *Builder) AddProgram(id uint64, program *vm.Program) {
	code := program.Instructions()
	var (
		ops     = make([]Word, len(code))
		lines   = make([]Word, len(code))
		targets = make([]Word, len(code))
		sources = make([]Word, len(code))
	)
	for i, ins := range code {
		ops[i] = OpWord(ins.Op)
		lines[i] = LineWord(ins)
		targets[i] = TargetWord(ins)
		sources[i] = SourceWord(ins)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.count++
	b.instructions.observe(ops)
	b.lines.observe(lines)
	b.targets.observe(targets)
	b.sources.observe(sources)
	for _, ins := range code {
		if ins.Op == vm.SEQ {
			continue
		}
		if ins.Op.HasSource() && ins.Source.Type == vm.Constant {
			c, ok := b.constants[ins.Op]
			if !ok {
				c = make(counter[int64])
				b.constants[ins.Op] = c
			}
			c[ins.Source.Value]++
		}
	}
	for _, dep := range program.DependsOn() {
		b.calls[dep]++
	}
	if program.UsesIndirect() {
		b.indirect.Add(id)
	}
}

// AddRecent marks programs as recently added.
func (b *Builder) AddRecent(ids ...uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range ids {
		b.recent.Add(id)
	}
}

// SetPrograms installs the program source used for inlining calls.
func (b *Builder) SetPrograms(r vm.Resolver) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.programs = r
}

// Count returns the number of programs added so far.
func (b *Builder) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Build freezes the statistics into a Context.
func (b *Builder) Build() *Context {
	b.mu.Lock()
	defer b.mu.Unlock()

	ctx := &Context{
		instructions: b.instructions.build(),
		lines:        b.lines.build(),
		targets:      b.targets.build(),
		sources:      b.sources.build(),
		popularity:   newPopularity(b.calls),
		recent:       sortedIDs(b.recent),
		indirect:     sortedIDs(b.indirect),
		programs:     b.programs,
	}
	if len(b.constants) > 0 {
		ctx.constants = make(map[vm.OpCode]*Histogram[int64], len(b.constants))
		for op, c := range b.constants {
			ctx.constants[op] = c.freeze()
		}
	}
	return ctx
}

func sortedIDs(s mapset.Set[uint64]) []uint64 {
	if s.Cardinality() == 0 {
		return nil
	}
	ids := s.ToSlice()
	slices.Sort(ids)
	return ids
}
