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

	"github.com/lodaminer/lodaminer/core/vm"
	"github.com/lodaminer/lodaminer/miner/suggest"
)

// MutateRetries bounds how often an operator resamples a value that turned
// out equal to the original before it gives up.
const MutateRetries = 3

// Mutate applies one operator chosen by weight. It reports whether the
// genome changed; when it did not, the items are exactly as before.
func (g *Genome) Mutate(rng *rand.Rand, ctx *suggest.Context, w *Weights) bool {
	if w == nil {
		w = &DefaultWeights
	}
	m, ok := suggest.Choose(rng, AllMutations(), w.Of)
	if !ok {
		return false
	}
	return g.Apply(rng, ctx, m)
}

// Apply runs operator m and records the outcome in the mutation trail.
func (g *Genome) Apply(rng *rand.Rand, ctx *suggest.Context, m Mutation) bool {
	var ok bool
	switch m {
	case ReplaceInstructionWithHistogram:
		ok = g.ReplaceInstructionWithHistogram(rng, ctx)
	case InsertInstructionWithConstant:
		ok = g.InsertInstructionWithConstant(rng, ctx)
	case IncrementSourceValueWhereTypeIsConstant:
		ok = g.IncrementSourceConstant(rng)
	case DecrementSourceValueWhereTypeIsConstant:
		ok = g.DecrementSourceConstant(rng)
	case ReplaceSourceConstantWithHistogram:
		ok = g.ReplaceSourceConstantWithHistogram(rng, ctx)
	case SetSourceToConstant:
		ok = g.SetSourceToConstant(rng, ctx)
	case SetSourceToDirect:
		ok = g.SetSourceToDirect(rng)
	case DisableLoop:
		ok = g.DisableLoop(rng)
	case SwapRegisters:
		ok = g.SwapRegisters(rng)
	case IncrementSourceValueWhereTypeIsDirect:
		ok = g.IncrementSourceDirect(rng)
	case DecrementSourceValueWhereTypeIsDirect:
		ok = g.DecrementSourceDirect(rng)
	case ReplaceSourceWithHistogram:
		ok = g.ReplaceSourceWithHistogram(rng, ctx)
	case IncrementTargetValueWhereTypeIsDirect:
		ok = g.IncrementTargetDirect(rng)
	case DecrementTargetValueWhereTypeIsDirect:
		ok = g.DecrementTargetDirect(rng)
	case ReplaceTargetWithHistogram:
		ok = g.ReplaceTargetWithHistogram(rng, ctx)
	case ReplaceLineWithHistogram:
		ok = g.ReplaceLineWithHistogram(rng, ctx)
	case InsertLineWithHistogram:
		ok = g.InsertLineWithHistogram(rng, ctx)
	case CopyLine:
		ok = g.CopyLine(rng)
	case ToggleEnabled:
		ok = g.ToggleEnabled(rng)
	case SwapRows:
		ok = g.SwapRows(rng)
	case SwapAdjacentRows:
		ok = g.SwapAdjacentRows(rng)
	case InsertLoopBeginEnd:
		ok = g.InsertLoopBeginEnd(rng)
	case CallProgramWeightedByPopularity:
		ok = g.CallProgram(rng, ctx, ctx.ChooseWeightedByPopularity)
	case CallMostPopularProgram:
		ok = g.CallProgram(rng, ctx, ctx.ChooseMostPopular)
	case CallMediumPopularProgram:
		ok = g.CallProgram(rng, ctx, ctx.ChooseMediumPopular)
	case CallLeastPopularProgram:
		ok = g.CallProgram(rng, ctx, ctx.ChooseLeastPopular)
	case CallRecentProgram:
		ok = g.CallProgram(rng, ctx, ctx.ChooseRecent)
	case CallProgramThatUsesIndirectMemoryAccess:
		ok = g.CallProgram(rng, ctx, ctx.ChooseIndirect)
	case InlineSeq:
		ok = g.InlineSeq(rng, ctx)
	}
	if ok {
		g.AppendMessage("mutate: " + m.String())
	} else {
		g.AppendMessage("mutate: " + m.String() + ", no change")
	}
	return ok
}

// eligible returns the indexes of the unlocked items accepted by keep.
func (g *Genome) eligible(keep func(Item) bool) []int {
	var indexes []int
	for i, it := range g.items {
		if it.Locked || !keep(it) {
			continue
		}
		indexes = append(indexes, i)
	}
	return indexes
}

func pick(rng *rand.Rand, indexes []int) (int, bool) {
	return suggest.ChooseUniform(rng, indexes)
}

// usesConstantSource reports rows whose constant source is an ordinary
// operand rather than a program id or loop parameter.
func usesConstantSource(it Item) bool {
	return it.SourceType == vm.Constant && it.Op.HasSource() && !isSpecial(it.Op)
}

func (g *Genome) stepSourceConstant(rng *rand.Rand, step func(int64) (int64, bool)) bool {
	i, ok := pick(rng, g.eligible(usesConstantSource))
	if !ok {
		return false
	}
	v, ok := step(g.items[i].SourceValue)
	if !ok {
		return false
	}
	next, ok := g.items[i].withSourceValue(v)
	if !ok {
		return false
	}
	g.items[i] = next
	return true
}

// IncrementSourceConstant adds one to a constant source operand.
func (g *Genome) IncrementSourceConstant(rng *rand.Rand) bool {
	return g.stepSourceConstant(rng, increment)
}

// DecrementSourceConstant subtracts one from a constant source operand.
func (g *Genome) DecrementSourceConstant(rng *rand.Rand) bool {
	return g.stepSourceConstant(rng, decrement)
}

// ReplaceSourceConstantWithHistogram assigns a constant that corpus
// programs commonly use with the row's opcode.
func (g *Genome) ReplaceSourceConstantWithHistogram(rng *rand.Rand, ctx *suggest.Context) bool {
	if !ctx.Has(suggest.TableConstants) {
		return false
	}
	i, ok := pick(rng, g.eligible(usesConstantSource))
	if !ok {
		return false
	}
	it := g.items[i]
	for try := 0; try < MutateRetries; try++ {
		v, ok := ctx.ChooseConstant(rng, it.Op)
		if !ok {
			return false
		}
		if v == it.SourceValue {
			continue
		}
		next, ok := it.withSourceValue(v)
		if !ok {
			continue
		}
		g.items[i] = next
		return true
	}
	return false
}

func (g *Genome) stepSourceDirect(rng *rand.Rand, step func(int64) (int64, bool), positive bool) bool {
	i, ok := pick(rng, g.eligible(func(it Item) bool {
		if it.SourceType != vm.Direct || isLoop(it.Op) || !it.Op.HasSource() {
			return false
		}
		return !positive || it.SourceValue > 0
	}))
	if !ok {
		return false
	}
	v, ok := step(g.items[i].SourceValue)
	if !ok {
		return false
	}
	next, ok := g.items[i].withSourceValue(v)
	if !ok {
		return false
	}
	g.items[i] = next
	return true
}

// IncrementSourceDirect moves a direct source operand to the next register.
func (g *Genome) IncrementSourceDirect(rng *rand.Rand) bool {
	return g.stepSourceDirect(rng, increment, false)
}

// DecrementSourceDirect moves a direct source operand to the previous
// register.
func (g *Genome) DecrementSourceDirect(rng *rand.Rand) bool {
	return g.stepSourceDirect(rng, decrement, true)
}

func (g *Genome) stepTargetDirect(rng *rand.Rand, step func(int64) (int64, bool), positive bool) bool {
	i, ok := pick(rng, g.eligible(func(it Item) bool {
		if it.TargetType != vm.Direct || !it.Op.HasTarget() {
			return false
		}
		return !positive || it.TargetValue > 0
	}))
	if !ok {
		return false
	}
	v, ok := step(g.items[i].TargetValue)
	if !ok {
		return false
	}
	next := g.items[i]
	next.TargetValue = v
	if !next.Valid() {
		return false
	}
	g.items[i] = next
	return true
}

// IncrementTargetDirect moves a direct target to the next register.
func (g *Genome) IncrementTargetDirect(rng *rand.Rand) bool {
	return g.stepTargetDirect(rng, increment, false)
}

// DecrementTargetDirect moves a direct target to the previous register.
func (g *Genome) DecrementTargetDirect(rng *rand.Rand) bool {
	return g.stepTargetDirect(rng, decrement, true)
}

// neighbours returns the words of the items around index, using the
// program boundary sentinels past either end. next is the item at nextIndex.
func (g *Genome) neighbours(prevIndex, nextIndex int, word func(vm.Instruction) suggest.Word) (prev, next suggest.Word) {
	prev, next = suggest.WordStart, suggest.WordStop
	if prevIndex >= 0 && prevIndex < len(g.items) {
		prev = word(g.items[prevIndex].Instruction())
	}
	if nextIndex >= 0 && nextIndex < len(g.items) {
		next = word(g.items[nextIndex].Instruction())
	}
	return prev, next
}

func opWord(ins vm.Instruction) suggest.Word { return suggest.OpWord(ins.Op) }

// ReplaceInstructionWithHistogram swaps the opcode of a random row for one
// that corpus programs use between the same neighbours.
func (g *Genome) ReplaceInstructionWithHistogram(rng *rand.Rand, ctx *suggest.Context) bool {
	if !ctx.Has(suggest.TableInstructions) || len(g.items) == 0 {
		return false
	}
	i := rng.Intn(len(g.items))
	if g.items[i].Locked {
		return false
	}
	prev, next := g.neighbours(i-1, i+1, opWord)
	for try := 0; try < MutateRetries; try++ {
		op, ok := ctx.SuggestInstruction(rng, prev, next)
		if !ok {
			return false
		}
		if g.items[i].SetOp(op) {
			return true
		}
	}
	return false
}

// InsertInstructionWithConstant inserts a new row with a constant source,
// picking opcode, constant and target from the corpus statistics.
func (g *Genome) InsertInstructionWithConstant(rng *rand.Rand, ctx *suggest.Context) bool {
	if !ctx.Has(suggest.TableConstants) || !ctx.Has(suggest.TableInstructions) || !ctx.Has(suggest.TableTargets) {
		return false
	}
	if len(g.items) == 0 {
		return false
	}
	i := rng.Intn(len(g.items))
	prevOp, nextOp := g.neighbours(i-1, i, opWord)
	prevTarget, nextTarget := g.neighbours(i-1, i, suggest.TargetWord)

	op, ok := ctx.SuggestInstruction(rng, prevOp, nextOp)
	if !ok || isSpecial(op) {
		return false
	}
	value, ok := ctx.ChooseConstant(rng, op)
	if !ok {
		value = 0
	}
	var target int64
	if t, ok := ctx.SuggestTarget(rng, prevTarget, nextTarget); ok && t.Type == vm.Direct {
		target = t.Value
	} else {
		target = int64(rng.Intn(5))
	}
	it := Item{
		Enabled:     true,
		Op:          op,
		TargetType:  vm.Direct,
		TargetValue: target,
		SourceType:  vm.Constant,
		SourceValue: value,
	}
	if !it.Valid() {
		return false
	}
	g.insert(i, it)
	return true
}

// SetSourceToConstant turns a register source into a constant from the
// opcode's histogram.
func (g *Genome) SetSourceToConstant(rng *rand.Rand, ctx *suggest.Context) bool {
	i, ok := pick(rng, g.eligible(func(it Item) bool {
		return it.SourceType != vm.Constant && it.Op.HasSource() && !isSpecial(it.Op)
	}))
	if !ok {
		return false
	}
	v, ok := ctx.ChooseConstant(rng, g.items[i].Op)
	if !ok {
		return false
	}
	next := g.items[i]
	next.SourceType, next.SourceValue = vm.Constant, v
	if !next.Valid() {
		return false
	}
	g.items[i] = next
	return true
}

// SetSourceToDirect points a source at a register written by an earlier
// row.
func (g *Genome) SetSourceToDirect(rng *rand.Rand) bool {
	i, ok := pick(rng, g.eligible(func(it Item) bool {
		return it.SourceType != vm.Direct && it.Op.HasSource() && !isSpecial(it.Op)
	}))
	if !ok {
		return false
	}
	var alive []int64
	for _, it := range g.items[:i] {
		if it.Op.HasTarget() && it.TargetType == vm.Direct {
			alive = append(alive, it.TargetValue)
		}
	}
	reg, ok := suggest.ChooseUniform(rng, alive)
	if !ok {
		return false
	}
	next := g.items[i]
	next.SourceType, next.SourceValue = vm.Direct, reg
	if !next.Valid() {
		return false
	}
	g.items[i] = next
	return true
}

// DisableLoop sets the range of a loop to zero so that its body never
// commits.
func (g *Genome) DisableLoop(rng *rand.Rand) bool {
	i, ok := pick(rng, g.eligible(func(it Item) bool {
		return it.Op == vm.LPB && !(it.SourceType == vm.Constant && it.SourceValue == 0)
	}))
	if !ok {
		return false
	}
	g.items[i].SourceType, g.items[i].SourceValue = vm.Constant, 0
	return true
}

// SwapRegisters exchanges target and source of a row that uses two direct
// registers.
func (g *Genome) SwapRegisters(rng *rand.Rand) bool {
	indexes := g.eligible(func(it Item) bool {
		return it.Op.HasSource() && it.TargetType == vm.Direct && it.SourceType == vm.Direct
	})
	if len(indexes) == 0 {
		return false
	}
	for try := 0; try < MutateRetries; try++ {
		i, _ := pick(rng, indexes)
		next := g.items[i]
		if !next.swapRegisters() || !next.Valid() {
			continue
		}
		g.items[i] = next
		return true
	}
	return false
}

// ReplaceSourceWithHistogram replaces a source operand with one that
// corpus programs use between the same neighbours.
func (g *Genome) ReplaceSourceWithHistogram(rng *rand.Rand, ctx *suggest.Context) bool {
	if !ctx.Has(suggest.TableSources) {
		return false
	}
	i, ok := pick(rng, g.eligible(func(it Item) bool {
		return it.Op.HasSource() && !isSpecial(it.Op)
	}))
	if !ok {
		return false
	}
	prev, next := g.neighbours(i-1, i+1, suggest.SourceWord)
	if prev == suggest.WordStart && next == suggest.WordStop {
		return false
	}
	it := g.items[i]
	for try := 0; try < MutateRetries; try++ {
		o, ok := ctx.SuggestSource(rng, prev, next)
		if !ok {
			continue
		}
		if o.Type != vm.Constant && o.Value < 0 {
			continue
		}
		if o.Type == it.SourceType && o.Value == it.SourceValue {
			continue
		}
		candidate := it
		candidate.SourceType, candidate.SourceValue = o.Type, o.Value
		if !candidate.Valid() {
			continue
		}
		g.items[i] = candidate
		return true
	}
	return false
}

// ReplaceTargetWithHistogram replaces the target of a random row with one
// that corpus programs use between the same neighbours.
func (g *Genome) ReplaceTargetWithHistogram(rng *rand.Rand, ctx *suggest.Context) bool {
	if !ctx.Has(suggest.TableTargets) || len(g.items) == 0 {
		return false
	}
	i := rng.Intn(len(g.items))
	it := g.items[i]
	if it.Locked || !it.Op.HasTarget() {
		return false
	}
	prev, next := g.neighbours(i-1, i+1, suggest.TargetWord)
	for try := 0; try < MutateRetries; try++ {
		o, ok := ctx.SuggestTarget(rng, prev, next)
		if !ok || o.Type == vm.Constant || o.Value < 0 {
			continue
		}
		if o.Type == it.TargetType && o.Value == it.TargetValue {
			continue
		}
		candidate := it
		candidate.TargetType, candidate.TargetValue = o.Type, o.Value
		if !candidate.Valid() {
			continue
		}
		g.items[i] = candidate
		return true
	}
	return false
}

// suggestedLine returns a corpus line for the slot between two rows. Loop
// instructions are refused since a single one would unbalance the program.
func (g *Genome) suggestedLine(rng *rand.Rand, ctx *suggest.Context, prevIndex, nextIndex int) (Item, bool) {
	prev, next := g.neighbours(prevIndex, nextIndex, suggest.LineWord)
	if prev == suggest.WordStart && next == suggest.WordStop {
		return Item{}, false
	}
	ins, ok := ctx.SuggestLine(rng, prev, next)
	if !ok || isLoop(ins.Op) {
		return Item{}, false
	}
	it := NewItem(ins)
	return it, it.Valid()
}

// ReplaceLineWithHistogram replaces a whole row with a corpus line that
// fits between the same neighbours.
func (g *Genome) ReplaceLineWithHistogram(rng *rand.Rand, ctx *suggest.Context) bool {
	if !ctx.Has(suggest.TableLines) {
		return false
	}
	i, ok := pick(rng, g.eligible(func(it Item) bool { return !isLoop(it.Op) }))
	if !ok {
		return false
	}
	it, ok := g.suggestedLine(rng, ctx, i-1, i+1)
	if !ok || it == g.items[i] {
		return false
	}
	g.items[i] = it
	return true
}

// InsertLineWithHistogram inserts a corpus line that fits between two
// existing rows.
func (g *Genome) InsertLineWithHistogram(rng *rand.Rand, ctx *suggest.Context) bool {
	if !ctx.Has(suggest.TableLines) || len(g.items) == 0 {
		return false
	}
	i := rng.Intn(len(g.items))
	it, ok := g.suggestedLine(rng, ctx, i-1, i)
	if !ok {
		return false
	}
	g.insert(i, it)
	return true
}

// CopyLine duplicates a non-loop row to a random position.
func (g *Genome) CopyLine(rng *rand.Rand) bool {
	var indexes []int
	for i, it := range g.items {
		if !isLoop(it.Op) {
			indexes = append(indexes, i)
		}
	}
	from, ok := pick(rng, indexes)
	if !ok {
		return false
	}
	it := g.items[from]
	it.Locked = false
	g.insert(rng.Intn(len(g.items)), it)
	return true
}

// ToggleEnabled flips the enabled flag of a row. Loop rows and rows using
// indirect addressing are left alone.
func (g *Genome) ToggleEnabled(rng *rand.Rand) bool {
	i, ok := pick(rng, g.eligible(func(it Item) bool {
		return !isLoop(it.Op) && !it.UsesIndirect()
	}))
	if !ok {
		return false
	}
	g.items[i].Enabled = !g.items[i].Enabled
	return true
}

// SwapRows exchanges two random non-loop rows.
func (g *Genome) SwapRows(rng *rand.Rand) bool {
	indexes := g.eligible(func(it Item) bool { return !isLoop(it.Op) })
	if len(indexes) < 2 {
		return false
	}
	perm := rng.Perm(len(indexes))
	a, b := indexes[perm[0]], indexes[perm[1]]
	if g.items[a] == g.items[b] {
		return false
	}
	g.items[a], g.items[b] = g.items[b], g.items[a]
	return true
}

// SwapAdjacentRows exchanges two neighbouring unlocked rows, unless that
// would put a loop end before its begin.
func (g *Genome) SwapAdjacentRows(rng *rand.Rand) bool {
	indexes := g.eligible(func(Item) bool { return true })
	if len(indexes) < 2 {
		return false
	}
	pos := rng.Intn(len(indexes) - 1)
	a, b := indexes[pos], indexes[pos+1]
	if g.items[a].Op.IsLoopBegin() && g.items[b].Op == vm.LPE {
		return false
	}
	// Moving a loop row across locked rows could unbalance the nesting.
	if b != a+1 && (isLoop(g.items[a].Op) || isLoop(g.items[b].Op)) {
		return false
	}
	if g.items[a] == g.items[b] {
		return false
	}
	g.items[a], g.items[b] = g.items[b], g.items[a]
	return true
}

// InsertLoopBeginEnd wraps a random range of rows in a new loop.
func (g *Genome) InsertLoopBeginEnd(rng *rand.Rand) bool {
	if len(g.items) < 2 {
		return false
	}
	i0, i1 := rng.Intn(len(g.items)), rng.Intn(len(g.items))
	if i0 == i1 {
		return false
	}
	lo, hi := i0, i1
	if lo > hi {
		lo, hi = hi, lo
	}
	g.insert(hi, Item{Enabled: true, Op: vm.LPE})
	g.insert(lo, Item{
		Enabled:     true,
		Op:          vm.LPB,
		TargetType:  vm.Direct,
		TargetValue: int64(rng.Intn(5)),
		SourceType:  vm.Constant,
		SourceValue: 1,
	})
	return true
}

// CallProgram points a seq row at a program id drawn by choose.
func (g *Genome) CallProgram(rng *rand.Rand, ctx *suggest.Context, choose func(*rand.Rand) (uint64, bool)) bool {
	i, ok := pick(rng, g.eligible(func(it Item) bool {
		return it.Op == vm.SEQ && it.SourceType == vm.Constant
	}))
	if !ok {
		return false
	}
	for try := 0; try < MutateRetries; try++ {
		id, ok := choose(rng)
		if !ok {
			continue
		}
		if int64(id) == g.items[i].SourceValue || id > uint64(1<<62) {
			continue
		}
		g.items[i].SourceValue = int64(id)
		return true
	}
	return false
}

func (g *Genome) insert(i int, it Item) {
	g.items = append(g.items, Item{})
	copy(g.items[i+1:], g.items[i:])
	g.items[i] = it
}
