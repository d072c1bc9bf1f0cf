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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodaminer/lodaminer/core/vm"
)

func mustParse(t *testing.T, text string) *Genome {
	t.Helper()
	g, err := Parse(text)
	require.NoError(t, err)
	return g
}

func TestGenomeRoundTrip(t *testing.T) {
	text := "mov $1,$0\nlpb $0\n  sub $0,1\n  add $1,2\nlpe\nseq $1,45\nmov $0,$1"
	g := mustParse(t, text)
	assert.Equal(t, 7, g.Len())

	p, err := g.Program()
	require.NoError(t, err)
	assert.Equal(t, 7, p.Len())
	assert.Equal(t, []uint64{45}, g.DependsOn())
	assert.False(t, g.UsesIndirect())
}

func TestDisabledItems(t *testing.T) {
	g := mustParse(t, "mov $1,2\nmov $$1,3\nadd $0,$1")
	items := g.Items()
	items[1].Enabled = false
	g.SetItems(items)

	assert.Equal(t, "mov $1,2\n; mov $$1,3\nadd $0,$1", g.String())
	assert.Len(t, g.Instructions(), 2)
	assert.False(t, g.UsesIndirect())
	assert.Equal(t, "mov $1,2\nadd $0,$1", g.Canonical())
}

func TestCloneIsIndependent(t *testing.T) {
	g := mustParse(t, "add $0,3")
	g.AppendMessage("seed")
	cpy := g.Clone()
	require.True(t, g.Equal(cpy))

	cpy.Lock(0)
	cpy.AppendMessage("other")
	assert.False(t, g.Equal(cpy))
	assert.False(t, g.Items()[0].Locked)
	assert.Equal(t, []string{"seed"}, g.Messages())
}

func TestItemValid(t *testing.T) {
	tests := []struct {
		item Item
		want bool
	}{
		{NewItem(vm.Instruction{Op: vm.ADD, Target: vm.Reg(0), Source: vm.Const(3)}), true},
		{NewItem(vm.Instruction{Op: vm.DIV, Target: vm.Reg(0), Source: vm.Const(0)}), false},
		{NewItem(vm.Instruction{Op: vm.MOD, Target: vm.Reg(0), Source: vm.Reg(0)}), true},
		{NewItem(vm.Instruction{Op: vm.ADD, Target: vm.Const(0), Source: vm.Const(3)}), false},
		{NewItem(vm.Instruction{Op: vm.SEQ, Target: vm.Reg(0), Source: vm.Reg(1)}), false},
		{NewItem(vm.Instruction{Op: vm.CLR, Target: vm.Reg(0), Source: vm.Ind(1)}), false},
		{NewItem(vm.Instruction{Op: vm.LPE}), true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.item.Valid(), tt.item.String())
	}
}

func TestSetOp(t *testing.T) {
	it := NewItem(vm.Instruction{Op: vm.ADD, Target: vm.Reg(0), Source: vm.Const(0)})
	assert.True(t, it.SetOp(vm.MUL))
	assert.Equal(t, vm.MUL, it.Op)

	assert.False(t, it.SetOp(vm.MUL), "same opcode")
	assert.False(t, it.SetOp(vm.DIV), "constant zero divisor")
	assert.False(t, it.SetOp(vm.LPB))
	assert.False(t, it.SetOp(vm.SEQ))
	assert.Equal(t, vm.MUL, it.Op)

	loop := NewItem(vm.Instruction{Op: vm.LPB, Target: vm.Reg(0), Source: vm.Const(1)})
	assert.False(t, loop.SetOp(vm.ADD))
}
