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

// Package genome implements the editable program representation that the
// miner mutates, together with its mutation operators.
package genome

import (
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/exp/slices"

	"github.com/lodaminer/lodaminer/core/asm"
	"github.com/lodaminer/lodaminer/core/vm"
)

// Genome is an ordered list of items plus the trail of mutations applied to
// it. A Genome is not safe for concurrent use.
type Genome struct {
	items    []Item
	messages []string
}

// New returns a genome holding every instruction of program.
func New(program *vm.Program) *Genome {
	return FromInstructions(program.Instructions())
}

// FromInstructions returns a genome holding the given instructions.
func FromInstructions(code []vm.Instruction) *Genome {
	g := &Genome{items: make([]Item, len(code))}
	for i, ins := range code {
		g.items[i] = NewItem(ins)
	}
	return g
}

// Parse returns a genome for a program text.
func Parse(text string) (*Genome, error) {
	code, err := asm.Parse(text)
	if err != nil {
		return nil, err
	}
	return FromInstructions(code), nil
}

// Clone returns a deep copy.
func (g *Genome) Clone() *Genome {
	return &Genome{items: slices.Clone(g.items), messages: slices.Clone(g.messages)}
}

// Len returns the number of items, enabled or not.
func (g *Genome) Len() int { return len(g.items) }

// Items returns a copy of the items.
func (g *Genome) Items() []Item { return slices.Clone(g.items) }

// SetItems replaces the items.
func (g *Genome) SetItems(items []Item) { g.items = slices.Clone(items) }

// Lock protects the item at index i from mutation.
func (g *Genome) Lock(i int) { g.items[i].Locked = true }

// Messages returns the mutation trail.
func (g *Genome) Messages() []string { return slices.Clone(g.messages) }

// AppendMessage adds a line to the mutation trail.
func (g *Genome) AppendMessage(msg string) { g.messages = append(g.messages, msg) }

// Instructions returns the instructions of the enabled items.
func (g *Genome) Instructions() []vm.Instruction {
	code := make([]vm.Instruction, 0, len(g.items))
	for _, it := range g.items {
		if it.Enabled {
			code = append(code, it.Instruction())
		}
	}
	return code
}

// Program validates the enabled items into a program.
func (g *Genome) Program() (*vm.Program, error) {
	return vm.NewProgram(g.Instructions())
}

// Canonical returns the canonical text of the enabled items. Genomes that
// compile to the same program share the same canonical text.
func (g *Genome) Canonical() string {
	return asm.CanonicalCode(g.Instructions())
}

// UsesIndirect reports whether an enabled item uses indirect addressing.
func (g *Genome) UsesIndirect() bool {
	for _, it := range g.items {
		if it.Enabled && it.UsesIndirect() {
			return true
		}
	}
	return false
}

// DependsOn returns the ids called by enabled items, in ascending order.
func (g *Genome) DependsOn() []uint64 {
	ids := mapset.NewThreadUnsafeSet[uint64]()
	for _, it := range g.items {
		if it.Enabled && it.Op == vm.SEQ && it.SourceType == vm.Constant && it.SourceValue >= 0 {
			ids.Add(uint64(it.SourceValue))
		}
	}
	out := ids.ToSlice()
	slices.Sort(out)
	return out
}

// String renders every item, with disabled items commented out.
func (g *Genome) String() string {
	lines := make([]string, len(g.items))
	for i, it := range g.items {
		if it.Enabled {
			lines[i] = it.String()
		} else {
			lines[i] = "; " + it.String()
		}
	}
	return strings.Join(lines, "\n")
}

// Equal reports whether both genomes hold identical items.
func (g *Genome) Equal(other *Genome) bool {
	return slices.Equal(g.items, other.items)
}
