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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodaminer/lodaminer/core/asm"
	"github.com/lodaminer/lodaminer/core/dependency"
	"github.com/lodaminer/lodaminer/miner/suggest"
)

var corpus = map[uint64]string{
	1:  "mov $1,$0\nadd $1,1\nmul $0,$1\ndiv $0,2",
	2:  "lpb $0\n  sub $0,1\n  add $1,3\nlpe\nmov $0,$1",
	3:  "mov $1,1\nlps $0\n  mul $1,2\nlpe\nmov $0,$1",
	4:  "mov $$0,1\nadd $0,1",
	5:  "mov $1,$0\nclr $0,2\nadd $0,$1",
	6:  "seq $0,1\nadd $0,2",
	7:  "seq $0,2\nseq $0,1\nsub $0,1",
	8:  "mov $2,$0\nmul $2,3\nadd $0,$2\nmod $0,7",
	9:  "add $0,5\nbin $0,2",
	10: "seq $0,3\ngcd $0,6",
}

func corpusContext(t *testing.T) *suggest.Context {
	t.Helper()
	manager := dependency.NewManager(dependency.NewMemoryLoader(corpus), 0)
	b := suggest.NewBuilder()
	for id, text := range corpus {
		b.AddProgram(id, asm.MustParseProgram(text))
	}
	b.AddRecent(9, 10)
	b.SetPrograms(manager)
	return b.Build()
}

func allWeights() *Weights {
	w := new(Weights)
	for _, m := range AllMutations() {
		w.Set(m, 1)
	}
	return w
}

func TestIncrementSourceConstant(t *testing.T) {
	g := mustParse(t, "add $0,3")
	require.True(t, g.Apply(rand.New(rand.NewSource(1)), nil, IncrementSourceValueWhereTypeIsConstant))
	assert.Equal(t, "add $0,4", g.String())
	assert.Equal(t, []string{"mutate: IncrementSourceValueWhereTypeIsConstant"}, g.Messages())
}

func TestDecrementSourceConstantKeepsDivisor(t *testing.T) {
	g := mustParse(t, "div $0,1")
	require.False(t, g.Apply(rand.New(rand.NewSource(1)), nil, DecrementSourceValueWhereTypeIsConstant))
	assert.Equal(t, "div $0,1", g.String())
	assert.Equal(t, []string{"mutate: DecrementSourceValueWhereTypeIsConstant, no change"}, g.Messages())

	g = mustParse(t, "mov $0,5\nlpb $0\n  sub $0,1\nlpe")
	g.Lock(2)
	require.True(t, g.DecrementSourceConstant(rand.New(rand.NewSource(1))))
	assert.Equal(t, "mov $0,4\nlpb $0\nsub $0,1\nlpe", g.String())
}

func TestRegisterSteps(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	g := mustParse(t, "add $1,$2")
	require.True(t, g.IncrementSourceDirect(rng))
	assert.Equal(t, "add $1,$3", g.String())
	require.True(t, g.DecrementTargetDirect(rng))
	assert.Equal(t, "add $0,$3", g.String())
	assert.False(t, g.DecrementTargetDirect(rng), "register 0 has no predecessor")
	require.True(t, g.IncrementTargetDirect(rng))
	assert.Equal(t, "add $1,$3", g.String())

	g = mustParse(t, "lpb $0\n  sub $0,1\nlpe")
	assert.False(t, g.IncrementSourceDirect(rng))
	assert.True(t, g.IncrementTargetDirect(rng))
	assert.NotContains(t, g.String(), "lpe $")
}

func TestSwapRegisters(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	g := mustParse(t, "add $1,$2")
	require.True(t, g.SwapRegisters(rng))
	assert.Equal(t, "add $2,$1", g.String())

	g = mustParse(t, "add $1,$1\nmov $0,3")
	assert.False(t, g.SwapRegisters(rng))
}

func TestDisableLoop(t *testing.T) {
	g := mustParse(t, "lpb $0\n  sub $0,1\nlpe")
	require.True(t, g.DisableLoop(rand.New(rand.NewSource(1))))
	assert.Equal(t, "lpb $0,0\nsub $0,1\nlpe", g.String())
	assert.False(t, g.DisableLoop(rand.New(rand.NewSource(1))))
}

func TestToggleEnabled(t *testing.T) {
	g := mustParse(t, "mov $1,2\nlpb $0\n  sub $0,1\nlpe\nmov $$1,1")
	require.True(t, g.ToggleEnabled(rand.New(rand.NewSource(3))))
	var disabled []int
	for i, it := range g.Items() {
		if !it.Enabled {
			disabled = append(disabled, i)
		}
	}
	require.Len(t, disabled, 1)
	assert.Contains(t, []int{0, 2}, disabled[0], "loop and indirect rows stay enabled")
}

func TestSetSourceToDirect(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		g := mustParse(t, "mov $3,1\nadd $0,5")
		if g.SetSourceToDirect(rand.New(rand.NewSource(seed))) {
			assert.Equal(t, "mov $3,1\nadd $0,$3", g.String())
			return
		}
		assert.Equal(t, "mov $3,1\nadd $0,5", g.String())
	}
	t.Fatal("no seed selected the second row")
}

func TestInsertLoopBeginEnd(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		g := mustParse(t, "mov $1,$0\nadd $1,2\nmul $0,$1")
		if !g.InsertLoopBeginEnd(rand.New(rand.NewSource(seed))) {
			continue
		}
		assert.Equal(t, 5, g.Len())
		_, err := g.Program()
		require.NoError(t, err)
		return
	}
	t.Fatal("no loop inserted")
}

func TestSwapRows(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	g := mustParse(t, "mov $1,2\nadd $0,$1")
	require.True(t, g.SwapRows(rng))
	assert.Equal(t, "add $0,$1\nmov $1,2", g.String())

	g = mustParse(t, "mov $1,2\nmov $1,2")
	assert.False(t, g.SwapRows(rng), "identical rows")

	g = mustParse(t, "lpb $0\nlpe")
	assert.False(t, g.SwapAdjacentRows(rng))
}

func TestCallProgram(t *testing.T) {
	ctx := corpusContext(t)
	rng := rand.New(rand.NewSource(1))
	g := mustParse(t, "seq $0,1\nadd $0,1")
	require.True(t, g.Apply(rng, ctx, CallRecentProgram))
	assert.Contains(t, []uint64{9, 10}, g.DependsOn()[0])

	g = mustParse(t, "seq $0,4")
	assert.False(t, g.Apply(rng, ctx, CallProgramThatUsesIndirectMemoryAccess), "only candidate is the current id")
	assert.Equal(t, "seq $0,4", g.String())
}

func TestHistogramOperators(t *testing.T) {
	ctx := corpusContext(t)
	for _, m := range []Mutation{
		ReplaceInstructionWithHistogram,
		ReplaceLineWithHistogram,
		InsertLineWithHistogram,
		ReplaceTargetWithHistogram,
		ReplaceSourceWithHistogram,
		ReplaceSourceConstantWithHistogram,
		SetSourceToConstant,
	} {
		changed := false
		for seed := int64(0); seed < 50 && !changed; seed++ {
			g := mustParse(t, "mov $1,$0\nadd $1,3\nmul $0,$1\nmod $0,7")
			before := g.Clone()
			changed = g.Apply(rand.New(rand.NewSource(seed)), ctx, m)
			if !changed {
				assert.True(t, before.Equal(g), m.String())
				continue
			}
			assert.False(t, before.Equal(g), m.String())
			_, err := g.Program()
			assert.NoError(t, err, m.String())
		}
		assert.True(t, changed, m.String())
	}
}

func TestEmptyGenomeNeverChanges(t *testing.T) {
	ctx := corpusContext(t)
	rng := rand.New(rand.NewSource(1))
	for _, m := range AllMutations() {
		g := &Genome{}
		assert.False(t, g.Apply(rng, ctx, m), m.String())
		assert.Zero(t, g.Len(), m.String())
		assert.Equal(t, []string{"mutate: " + m.String() + ", no change"}, g.Messages())
	}
}

func TestMissingTablesNeverChange(t *testing.T) {
	ctx := corpusContext(t).Without(
		suggest.TableInstructions, suggest.TableLines, suggest.TableTargets, suggest.TableSources,
		suggest.TableConstants, suggest.TablePopularity, suggest.TableRecent, suggest.TableIndirect,
		suggest.TablePrograms,
	)
	needsTables := []Mutation{
		ReplaceInstructionWithHistogram, InsertInstructionWithConstant, ReplaceSourceConstantWithHistogram,
		SetSourceToConstant, ReplaceSourceWithHistogram, ReplaceTargetWithHistogram,
		ReplaceLineWithHistogram, InsertLineWithHistogram, CallProgramWeightedByPopularity,
		CallMostPopularProgram, CallMediumPopularProgram, CallLeastPopularProgram,
		CallRecentProgram, CallProgramThatUsesIndirectMemoryAccess, InlineSeq,
	}
	for seed := int64(0); seed < 10; seed++ {
		rng := rand.New(rand.NewSource(seed))
		for _, m := range needsTables {
			g := mustParse(t, "mov $1,$0\nseq $1,1\nmul $0,7\nadd $0,$1")
			before := g.Clone()
			assert.False(t, g.Apply(rng, ctx, m), m.String())
			assert.True(t, before.Equal(g), m.String())
		}
	}
}

func TestLockedRowsSurvive(t *testing.T) {
	ctx := corpusContext(t)
	rng := rand.New(rand.NewSource(42))
	g := mustParse(t, "mov $1,$0\nlpb $0\n  sub $0,1\n  add $1,2\nlpe\nseq $1,1\nmov $0,$1")
	g.Lock(0)
	g.Lock(3)
	g.Lock(5)
	locked := func(g *Genome) []Item {
		var out []Item
		for _, it := range g.Items() {
			if it.Locked {
				out = append(out, it)
			}
		}
		return out
	}
	want := locked(g)
	weights := allWeights()
	for i := 0; i < 300; i++ {
		g.Mutate(rng, ctx, weights)
		require.Equal(t, want, locked(g), "after %s", g.Messages()[len(g.Messages())-1])
	}
}

func TestMutationsKeepProgramsValid(t *testing.T) {
	ctx := corpusContext(t)
	weights := allWeights()
	for seed := int64(0); seed < 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		g := mustParse(t, corpus[2])
		for i := 0; i < 100; i++ {
			before := g.Clone()
			changed := g.Mutate(rng, ctx, weights)
			if !changed {
				require.True(t, before.Equal(g), g.Messages()[len(g.Messages())-1])
				continue
			}
			_, err := g.Program()
			require.NoError(t, err, "seed %d after %s:\n%s", seed, g.Messages()[len(g.Messages())-1], g)
			for _, it := range g.Items() {
				require.True(t, it.Valid(), it.String())
			}
		}
	}
}

func TestMutateFollowsWeights(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	g := mustParse(t, "add $1,$2")
	require.True(t, g.Mutate(rng, nil, Only(SwapRegisters)))
	assert.Equal(t, []string{"mutate: SwapRegisters"}, g.Messages())

	assert.False(t, g.Mutate(rng, nil, new(Weights)))
}

func TestMutationDeterminism(t *testing.T) {
	ctx := corpusContext(t)
	run := func() string {
		rng := rand.New(rand.NewSource(7))
		g := mustParse(t, corpus[8])
		for i := 0; i < 50; i++ {
			g.Mutate(rng, ctx, nil)
		}
		return g.String() + "\n" + strings.Join(g.Messages(), "\n")
	}
	assert.Equal(t, run(), run())
}

func TestWeights(t *testing.T) {
	assert.Equal(t, uint64(655), DefaultWeights.Total())
	names := map[string]bool{}
	for _, m := range AllMutations() {
		assert.Equal(t, uint32(1), Only(m).Of(m))
		assert.Equal(t, uint64(1), Only(m).Total())
		names[m.String()] = true
	}
	assert.Len(t, names, int(numMutations))
	assert.Equal(t, "Mutation(99)", Mutation(99).String())
	assert.Zero(t, DefaultWeights.Of(Mutation(99)))
}
