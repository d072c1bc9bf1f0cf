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
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodaminer/lodaminer/core/asm"
	"github.com/lodaminer/lodaminer/core/vm"
)

var corpus = map[uint64]string{
	1:  "mov $1,$0\nadd $1,1\nmul $0,$1\ndiv $0,2",
	2:  "mov $1,$0\nadd $1,2\nmul $0,$1",
	3:  "seq $0,1\nadd $0,1",
	4:  "seq $0,1\nseq $0,2",
	5:  "seq $0,1\nmov $$0,1",
	6:  "lpb $0\n  sub $0,1\n  add $1,3\nlpe\nmov $0,$1",
	7:  "seq $0,6\nseq $0,2\nseq $0,1",
	8:  "seq $0,7\nseq $0,1",
	9:  "add $0,1",
	10: "seq $0,9\nseq $0,6",
}

func buildCorpus(t *testing.T) *Context {
	t.Helper()
	b := NewBuilder()
	for id, text := range corpus {
		b.AddProgram(id, asm.MustParseProgram(text))
	}
	b.AddRecent(9, 10)
	require.Equal(t, len(corpus), b.Count())
	return b.Build()
}

func TestBuildIsDeterministic(t *testing.T) {
	a, b := buildCorpus(t), buildCorpus(t)
	for seed := int64(0); seed < 20; seed++ {
		ra, rb := rand.New(rand.NewSource(seed)), rand.New(rand.NewSource(seed))
		la, oka := a.SuggestLine(ra, WordStart, WordStop)
		lb, okb := b.SuggestLine(rb, WordStart, WordStop)
		assert.Equal(t, oka, okb)
		assert.Equal(t, la, lb)
	}
}

func TestSuggestInstruction(t *testing.T) {
	ctx := buildCorpus(t)
	rng := rand.New(rand.NewSource(1))

	// Only "sub" ever sits between "lpb" and "add".
	op, ok := ctx.SuggestInstruction(rng, Word("lpb"), Word("add"))
	require.True(t, ok)
	assert.Equal(t, vm.SUB, op)

	// No trigram ends in "lpe" after START, so the bigram after START applies.
	op, ok = ctx.SuggestInstruction(rng, WordStart, Word("lpe"))
	require.True(t, ok)
	assert.Contains(t, []vm.OpCode{vm.MOV, vm.SEQ, vm.ADD, vm.LPB}, op)

	_, ok = ctx.SuggestInstruction(rng, Word("gcd"), Word("bin"))
	assert.False(t, ok)
}

func TestSuggestOperands(t *testing.T) {
	ctx := buildCorpus(t)
	rng := rand.New(rand.NewSource(3))

	target, ok := ctx.SuggestTarget(rng, Word("$0"), Word("lpe"))
	require.True(t, ok)
	assert.Equal(t, vm.Reg(1), target)

	source, ok := ctx.SuggestSource(rng, Word("1"), Word("lpe"))
	require.True(t, ok)
	assert.Equal(t, vm.Const(3), source)
}

func TestChooseConstant(t *testing.T) {
	ctx := buildCorpus(t)
	rng := rand.New(rand.NewSource(5))
	seen := map[int64]bool{}
	for i := 0; i < 100; i++ {
		v, ok := ctx.ChooseConstant(rng, vm.ADD)
		require.True(t, ok)
		seen[v] = true
	}
	assert.Equal(t, map[int64]bool{1: true, 2: true, 3: true}, seen)

	_, ok := ctx.ChooseConstant(rng, vm.POW)
	assert.False(t, ok)
	assert.Equal(t, []Candidate[int64]{{Value: 2, Count: 1}}, ctx.Constants(vm.DIV))
	assert.NotContains(t, ctx.ConstantOps(), vm.SEQ)
}

func TestPopularityTiers(t *testing.T) {
	ctx := buildCorpus(t)
	p := ctx.Popularity()
	require.NotNil(t, p)

	// Callers: 1 by 5 programs, 2 and 6 by 2, 7 and 9 by 1.
	assert.Equal(t, uint32(5), p.Calls(1))
	assert.Equal(t, []uint64{1, 2}, p.Most())
	assert.Equal(t, []uint64{6, 7}, p.Medium())
	assert.Equal(t, []uint64{9}, p.Least())

	rng := rand.New(rand.NewSource(9))
	id, ok := ctx.ChooseLeastPopular(rng)
	require.True(t, ok)
	assert.Equal(t, uint64(9), id)

	counts := map[uint64]int{}
	for i := 0; i < 1000; i++ {
		id, ok := ctx.ChooseWeightedByPopularity(rng)
		require.True(t, ok)
		counts[id]++
	}
	assert.Greater(t, counts[1], counts[9])
}

func TestRecentAndIndirect(t *testing.T) {
	ctx := buildCorpus(t)
	rng := rand.New(rand.NewSource(2))
	id, ok := ctx.ChooseIndirect(rng)
	require.True(t, ok)
	assert.Equal(t, uint64(5), id)

	id, ok = ctx.ChooseRecent(rng)
	require.True(t, ok)
	assert.Contains(t, []uint64{9, 10}, id)
}

func TestMissingTables(t *testing.T) {
	ctx := buildCorpus(t)
	rng := rand.New(rand.NewSource(1))
	stripped := ctx.Without(TableInstructions, TableConstants, TablePopularity, TableRecent)

	assert.True(t, ctx.Has(TableInstructions))
	assert.False(t, stripped.Has(TableInstructions))
	_, ok := stripped.SuggestInstruction(rng, WordStart, WordStop)
	assert.False(t, ok)
	_, ok = stripped.ChooseConstant(rng, vm.ADD)
	assert.False(t, ok)
	_, ok = stripped.ChooseMostPopular(rng)
	assert.False(t, ok)
	_, ok = stripped.ChooseRecent(rng)
	assert.False(t, ok)

	_, err := ctx.ResolveProgram(1)
	assert.ErrorIs(t, err, ErrNoPrograms)

	var empty *Context
	_, ok = empty.SuggestLine(rng, WordStart, WordStop)
	assert.False(t, ok)
	assert.False(t, empty.Has(TableLines))
	for _, s := range empty.Stats() {
		assert.Zero(t, s.Entries, s.Table.String())
	}
}

func TestChooseWeights(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	values := []string{"never", "always"}
	for i := 0; i < 50; i++ {
		v, ok := Choose(rng, values, func(s string) int {
			if s == "never" {
				return 0
			}
			return 7
		})
		require.True(t, ok)
		assert.Equal(t, "always", v)
	}
	_, ok := Choose(rng, values, func(string) int { return -1 })
	assert.False(t, ok)
	_, ok = ChooseUniform[int](rng, nil)
	assert.False(t, ok)
}
