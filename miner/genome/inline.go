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

	"golang.org/x/exp/slices"

	"github.com/lodaminer/lodaminer/core/vm"
	"github.com/lodaminer/lodaminer/miner/suggest"
)

// InlineSeq replaces a seq row by the body of the called program. Callee
// register 0 becomes the seq target and every other callee register is
// moved above the highest register of the caller, zeroed on entry.
//
// Programs whose register windows cannot be relocated this way are left
// alone: any indirect addressing, loop or clear ranges with a register
// length, and callee ranges spanning register 0 together with others.
func (g *Genome) InlineSeq(rng *rand.Rand, ctx *suggest.Context) bool {
	if !ctx.Has(suggest.TablePrograms) || !g.relocatable() {
		return false
	}
	i, ok := pick(rng, g.eligible(func(it Item) bool {
		return it.Enabled && it.Op == vm.SEQ && it.TargetType == vm.Direct && it.SourceType == vm.Constant
	}))
	if !ok {
		return false
	}
	callee, err := ctx.ResolveProgram(uint64(g.items[i].SourceValue))
	if err != nil {
		return false
	}
	body, ok := relocate(callee.Instructions(), g.items[i].TargetValue, g.maxRegister())
	if !ok {
		return false
	}
	g.items = slices.Replace(g.items, i, i+1, body...)
	return true
}

// relocatable reports whether the enabled caller rows keep all their
// register accesses within statically known bounds.
func (g *Genome) relocatable() bool {
	for _, it := range g.items {
		if !it.Enabled {
			continue
		}
		if it.UsesIndirect() {
			return false
		}
		if (it.Op == vm.LPB || it.Op == vm.CLR) && it.SourceType != vm.Constant {
			return false
		}
	}
	return true
}

// maxRegister returns the highest register any row touches, including the
// extent of constant loop windows and clear ranges.
func (g *Genome) maxRegister() int64 {
	max := int64(0)
	for _, it := range g.items {
		if !it.Op.HasTarget() {
			continue
		}
		_, hi := window(it)
		if hi > max {
			max = hi
		}
		if it.Op.HasSource() && it.SourceType != vm.Constant && it.SourceValue > max {
			max = it.SourceValue
		}
	}
	return max
}

// window returns the register range an item writes or monitors. Only lpb
// and clr with a constant length cover more than their target.
func window(it Item) (lo, hi int64) {
	lo, hi = it.TargetValue, it.TargetValue
	if (it.Op != vm.LPB && it.Op != vm.CLR) || it.SourceType != vm.Constant {
		return lo, hi
	}
	switch n := it.SourceValue; {
	case n > 1:
		hi = lo + n - 1
	case n < -1:
		lo = hi + n + 1
	}
	return lo, hi
}

// relocate rewrites callee code so that it runs inside the caller with
// callee register 0 at target and register k at k+offset. It fails when a
// relocated register would reach the register limit of the VM.
func relocate(code []vm.Instruction, target, offset int64) ([]Item, bool) {
	limit := int64(vm.DefaultConfig.MaxRegisters)
	if offset < 0 || offset >= limit {
		return nil, false
	}
	used := make(map[int64]struct{})
	mapReg := func(k int64) int64 {
		if k == 0 {
			return target
		}
		used[k] = struct{}{}
		return k + offset
	}
	body := make([]Item, 0, len(code))
	for _, ins := range code {
		it := NewItem(ins)
		if it.UsesIndirect() {
			return nil, false
		}
		if it.Op.HasTarget() {
			if it.Op == vm.LPB || it.Op == vm.CLR {
				if it.SourceType != vm.Constant {
					return nil, false
				}
				lo, hi := window(it)
				if lo <= 0 && hi > 0 || lo < 0 {
					return nil, false
				}
				if hi > 0 && hi >= limit-offset {
					return nil, false
				}
			}
			it.TargetValue = mapReg(it.TargetValue)
		}
		if it.Op.HasSource() && it.SourceType == vm.Direct {
			it.SourceValue = mapReg(it.SourceValue)
		}
		body = append(body, it)
	}
	regs := make([]int64, 0, len(used))
	for k := range used {
		if k >= limit-offset {
			return nil, false
		}
		regs = append(regs, k)
	}
	slices.Sort(regs)
	prologue := make([]Item, len(regs))
	for j, k := range regs {
		prologue[j] = NewItem(vm.Instruction{Op: vm.MOV, Target: vm.Reg(k + offset), Source: vm.Const(0)})
	}
	return append(prologue, body...), true
}
