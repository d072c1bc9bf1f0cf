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

// Package suggest holds the corpus statistics that steer program mutation.
//
// A Context is built once from a program corpus and is read-only afterwards,
// so any number of goroutines may query it. Every table is optional: a query
// against a table that was never built reports false, and the caller treats
// that the same way as a mutation that found nothing to change.
package suggest

import (
	"errors"
	"fmt"
	"math/rand"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/lodaminer/lodaminer/core/asm"
	"github.com/lodaminer/lodaminer/core/vm"
)

// Table names one statistics table of a Context.
type Table int

const (
	TableInstructions Table = iota // opcode n-grams
	TableLines                     // whole line n-grams
	TableTargets                   // target operand n-grams
	TableSources                   // source operand n-grams
	TableConstants                 // constant histograms per opcode
	TablePopularity                // callee popularity tiers
	TableRecent                    // recently added programs
	TableIndirect                  // programs using indirect addressing
	TablePrograms                  // program source for inlining
	numTables
)

var tableNames = [...]string{
	TableInstructions: "instructions",
	TableLines:        "lines",
	TableTargets:      "targets",
	TableSources:      "sources",
	TableConstants:    "constants",
	TablePopularity:   "popularity",
	TableRecent:       "recent",
	TableIndirect:     "indirect",
	TablePrograms:     "programs",
}

func (t Table) String() string {
	if t >= 0 && t < numTables {
		return tableNames[t]
	}
	return fmt.Sprintf("table(%d)", int(t))
}

// ErrNoPrograms is returned by ResolveProgram when the context carries no
// program source.
var ErrNoPrograms = errors.New("no program source in mutation context")

// Context is the read-only statistics consulted by mutation operators.
// A nil *Context behaves like one without any table.
type Context struct {
	instructions *Ngram
	lines        *Ngram
	targets      *Ngram
	sources      *Ngram
	constants    map[vm.OpCode]*Histogram[int64]
	popularity   *Popularity
	recent       []uint64
	indirect     []uint64
	programs     vm.Resolver
}

// Has reports whether table t is available.
func (c *Context) Has(t Table) bool {
	if c == nil {
		return false
	}
	switch t {
	case TableInstructions:
		return c.instructions != nil
	case TableLines:
		return c.lines != nil
	case TableTargets:
		return c.targets != nil
	case TableSources:
		return c.sources != nil
	case TableConstants:
		return len(c.constants) > 0
	case TablePopularity:
		return c.popularity != nil
	case TableRecent:
		return len(c.recent) > 0
	case TableIndirect:
		return len(c.indirect) > 0
	case TablePrograms:
		return c.programs != nil
	}
	return false
}

// Without returns a copy of the context lacking the given tables.
func (c *Context) Without(tables ...Table) *Context {
	if c == nil {
		return nil
	}
	cpy := *c
	for _, t := range tables {
		switch t {
		case TableInstructions:
			cpy.instructions = nil
		case TableLines:
			cpy.lines = nil
		case TableTargets:
			cpy.targets = nil
		case TableSources:
			cpy.sources = nil
		case TableConstants:
			cpy.constants = nil
		case TablePopularity:
			cpy.popularity = nil
		case TableRecent:
			cpy.recent = nil
		case TableIndirect:
			cpy.indirect = nil
		case TablePrograms:
			cpy.programs = nil
		}
	}
	return &cpy
}

// SuggestInstruction picks an opcode for the row between prev and next.
func (c *Context) SuggestInstruction(rng *rand.Rand, prev, next Word) (vm.OpCode, bool) {
	if c == nil {
		return 0, false
	}
	w, ok := c.instructions.Suggest(rng, prev, next)
	if !ok {
		return 0, false
	}
	return vm.StringToOp(string(w))
}

// SuggestLine picks a whole instruction for the row between prev and next.
func (c *Context) SuggestLine(rng *rand.Rand, prev, next Word) (vm.Instruction, bool) {
	if c == nil {
		return vm.Instruction{}, false
	}
	w, ok := c.lines.Suggest(rng, prev, next)
	if !ok {
		return vm.Instruction{}, false
	}
	ins, err := asm.ParseLine(string(w))
	if err != nil {
		return vm.Instruction{}, false
	}
	return ins, true
}

// SuggestTarget picks a target operand for the row between prev and next.
func (c *Context) SuggestTarget(rng *rand.Rand, prev, next Word) (vm.Operand, bool) {
	if c == nil {
		return vm.Operand{}, false
	}
	return suggestOperand(rng, c.targets, prev, next)
}

// SuggestSource picks a source operand for the row between prev and next.
func (c *Context) SuggestSource(rng *rand.Rand, prev, next Word) (vm.Operand, bool) {
	if c == nil {
		return vm.Operand{}, false
	}
	return suggestOperand(rng, c.sources, prev, next)
}

func suggestOperand(rng *rand.Rand, n *Ngram, prev, next Word) (vm.Operand, bool) {
	w, ok := n.Suggest(rng, prev, next)
	if !ok {
		return vm.Operand{}, false
	}
	// Opcode names stand in for rows without the operand.
	return ParseOperandWord(w)
}

// ChooseConstant picks a constant that corpus programs use with op.
func (c *Context) ChooseConstant(rng *rand.Rand, op vm.OpCode) (int64, bool) {
	if c == nil {
		return 0, false
	}
	return c.constants[op].Choose(rng)
}

// ChooseMostPopular picks a program id from the most called tier.
func (c *Context) ChooseMostPopular(rng *rand.Rand) (uint64, bool) {
	return c.choosePopular(rng, 0)
}

// ChooseMediumPopular picks a program id from the middle tier.
func (c *Context) ChooseMediumPopular(rng *rand.Rand) (uint64, bool) {
	return c.choosePopular(rng, 1)
}

// ChooseLeastPopular picks a program id from the least called tier.
func (c *Context) ChooseLeastPopular(rng *rand.Rand) (uint64, bool) {
	return c.choosePopular(rng, 2)
}

func (c *Context) choosePopular(rng *rand.Rand, tier int) (uint64, bool) {
	if c == nil {
		return 0, false
	}
	return c.popularity.chooseTier(rng, tier)
}

// ChooseWeightedByPopularity picks a program id with probability
// proportional to the number of its callers.
func (c *Context) ChooseWeightedByPopularity(rng *rand.Rand) (uint64, bool) {
	if c == nil {
		return 0, false
	}
	return c.popularity.chooseWeighted(rng)
}

// ChooseRecent picks one of the recently added programs.
func (c *Context) ChooseRecent(rng *rand.Rand) (uint64, bool) {
	if c == nil {
		return 0, false
	}
	return ChooseUniform(rng, c.recent)
}

// ChooseIndirect picks one of the programs that use indirect addressing.
func (c *Context) ChooseIndirect(rng *rand.Rand) (uint64, bool) {
	if c == nil {
		return 0, false
	}
	return ChooseUniform(rng, c.indirect)
}

// ResolveProgram loads a program by id from the context's program source.
func (c *Context) ResolveProgram(id uint64) (*vm.Program, error) {
	if !c.Has(TablePrograms) {
		return nil, ErrNoPrograms
	}
	return c.programs.Resolve(id)
}

// ConstantOps returns the opcodes that have a constant histogram, in
// ascending order.
func (c *Context) ConstantOps() []vm.OpCode {
	if c == nil {
		return nil
	}
	ops := maps.Keys(c.constants)
	slices.Sort(ops)
	return ops
}

// Constants returns the constant histogram of op, most frequent first.
func (c *Context) Constants(op vm.OpCode) []Candidate[int64] {
	if c == nil {
		return nil
	}
	return c.constants[op].Entries()
}

// Popularity returns the popularity index, or nil.
func (c *Context) Popularity() *Popularity {
	if c == nil {
		return nil
	}
	return c.popularity
}

// TableStat summarizes one table.
type TableStat struct {
	Table   Table
	Entries int
}

// Stats returns the size of every table.
func (c *Context) Stats() []TableStat {
	stats := make([]TableStat, 0, numTables)
	for t := Table(0); t < numTables; t++ {
		stats = append(stats, TableStat{Table: t, Entries: c.entries(t)})
	}
	return stats
}

func (c *Context) entries(t Table) int {
	if !c.Has(t) {
		return 0
	}
	switch t {
	case TableInstructions:
		return c.instructions.Len()
	case TableLines:
		return c.lines.Len()
	case TableTargets:
		return c.targets.Len()
	case TableSources:
		return c.sources.Len()
	case TableConstants:
		n := 0
		for _, h := range c.constants {
			n += h.Len()
		}
		return n
	case TablePopularity:
		return c.popularity.Len()
	case TableRecent:
		return len(c.recent)
	case TableIndirect:
		return len(c.indirect)
	case TablePrograms:
		return 1
	}
	return 0
}
