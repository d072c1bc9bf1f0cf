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
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodaminer/lodaminer/core/asm"
	"github.com/lodaminer/lodaminer/core/dependency"
	"github.com/lodaminer/lodaminer/core/vm"
	"github.com/lodaminer/lodaminer/miner/suggest"
)

func TestInlineSeqText(t *testing.T) {
	ctx := corpusContext(t)
	rng := rand.New(rand.NewSource(1))

	g := mustParse(t, "seq $0,1")
	require.True(t, g.InlineSeq(rng, ctx))
	assert.Equal(t, "mov $1,0\nmov $1,$0\nadd $1,1\nmul $0,$1\ndiv $0,2", g.String())

	g = mustParse(t, "mov $1,$0\nseq $1,1\nadd $0,$1")
	require.True(t, g.InlineSeq(rng, ctx))
	assert.Equal(t, "mov $1,$0\nmov $2,0\nmov $2,$1\nadd $2,1\nmul $1,$2\ndiv $1,2\nadd $0,$1", g.String())
}

func TestInlineSeqPreservesResults(t *testing.T) {
	ctx := corpusContext(t)
	manager := dependency.NewManager(dependency.NewMemoryLoader(corpus), 0)
	callers := []string{
		"mov $1,$0\nseq $1,1\nadd $0,$1",
		"seq $0,2\nadd $0,1",
		"mov $3,$0\nlpb $0\n  sub $0,1\n  mov $2,$0\n  seq $2,3\n  add $1,$2\nlpe\nmov $0,$1",
		"clr $1,3\nmov $4,$0\nseq $4,6\nmul $0,$4",
		"seq $0,7\nseq $0,10",
	}
	rng := rand.New(rand.NewSource(5))
	for _, text := range callers {
		g := mustParse(t, text)
		inlined := 0
		for len(g.DependsOn()) > 0 && inlined < 10 {
			require.True(t, g.InlineSeq(rng, ctx), "inline into:\n%s", g)
			inlined++
		}
		require.Empty(t, g.DependsOn(), text)

		original := asm.MustParseProgram(text)
		flat, err := g.Program()
		require.NoError(t, err)
		width := uint64(original.MaxRegister())

		in := vm.NewInterpreter(vm.DefaultConfig, manager, nil)
		for input := int64(0); input < 8; input++ {
			want, wantState, err := in.Evaluate(original, input)
			require.NoError(t, err)
			got, gotState, err := in.Evaluate(flat, input)
			require.NoError(t, err)
			assert.Equal(t, want, got, "%s with input %d", text, input)
			for i := uint64(0); i <= width; i++ {
				assert.Equal(t, wantState.Get(i), gotState.Get(i), "%s register %d input %d", text, i, input)
			}
		}
	}
}

func TestInlineSeqRefusals(t *testing.T) {
	ctx := corpusContext(t)
	rng := rand.New(rand.NewSource(1))
	tests := []struct {
		name string
		text string
		ctx  *suggest.Context
	}{
		{"indirect callee", "seq $0,4", ctx},
		{"callee clears a range with register 0", "seq $0,5", ctx},
		{"indirect caller", "mov $$0,1\nseq $0,1", ctx},
		{"caller range with register length", "clr $1,$0\nseq $0,1", ctx},
		{"unknown program", "seq $0,99", ctx},
		{"no program source", "seq $0,1", ctx.Without(suggest.TablePrograms)},
		{"nothing to inline", "add $0,1", ctx},
		{"relocation beyond the register limit", "mov $1023,$0\nseq $0,1\nadd $0,$1023", ctx},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := mustParse(t, tt.text)
			before := g.Clone()
			assert.False(t, g.InlineSeq(rng, tt.ctx))
			assert.True(t, before.Equal(g))
		})
	}

	g := mustParse(t, "seq $0,1")
	g.Lock(0)
	assert.False(t, g.InlineSeq(rng, ctx), "locked")
}

func TestInlineSeqUpToRegisterLimit(t *testing.T) {
	ctx := corpusContext(t)
	manager := dependency.NewManager(dependency.NewMemoryLoader(corpus), 0)
	text := "mov $1022,$0\nseq $0,1\nadd $0,$1022"

	g := mustParse(t, text)
	require.True(t, g.InlineSeq(rand.New(rand.NewSource(1)), ctx))
	flat, err := g.Program()
	require.NoError(t, err)

	in := vm.NewInterpreter(vm.DefaultConfig, manager, nil)
	for input := int64(0); input < 5; input++ {
		want, _, err := in.Evaluate(asm.MustParseProgram(text), input)
		require.NoError(t, err)
		got, _, err := in.Evaluate(flat, input)
		require.NoError(t, err)
		assert.Equal(t, want, got, "input %d", input)
	}
}

func TestWindow(t *testing.T) {
	tests := []struct {
		ins    vm.Instruction
		lo, hi int64
	}{
		{vm.Instruction{Op: vm.ADD, Target: vm.Reg(3), Source: vm.Const(9)}, 3, 3},
		{vm.Instruction{Op: vm.LPB, Target: vm.Reg(2), Source: vm.Const(3)}, 2, 4},
		{vm.Instruction{Op: vm.CLR, Target: vm.Reg(5), Source: vm.Const(-2)}, 4, 5},
		{vm.Instruction{Op: vm.CLR, Target: vm.Reg(5), Source: vm.Reg(1)}, 5, 5},
	}
	for _, tt := range tests {
		lo, hi := window(NewItem(tt.ins))
		assert.Equal(t, tt.lo, lo, tt.ins.String())
		assert.Equal(t, tt.hi, hi, tt.ins.String())
	}
}
