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

	"golang.org/x/exp/slices"
)

// Popularity ranks programs by how many corpus programs call them and
// splits the ranking into three equally sized tiers.
type Popularity struct {
	most, medium, least []uint64
	ranked              []Candidate[uint64]
}

func newPopularity(calls counter[uint64]) *Popularity {
	h := calls.freeze()
	if h == nil {
		return nil
	}
	p := &Popularity{ranked: h.entries}
	ids := make([]uint64, len(h.entries))
	for i, c := range h.entries {
		ids[i] = c.Value
	}
	n := len(ids)
	a, b := (n+2)/3, (2*n+2)/3
	p.most, p.medium, p.least = ids[:a], ids[a:b], ids[b:]
	return p
}

// Most returns the ids of the most called tier.
func (p *Popularity) Most() []uint64 { return slices.Clone(p.tier(0)) }

// Medium returns the ids of the middle tier.
func (p *Popularity) Medium() []uint64 { return slices.Clone(p.tier(1)) }

// Least returns the ids of the least called tier.
func (p *Popularity) Least() []uint64 { return slices.Clone(p.tier(2)) }

// Len returns the number of ranked programs.
func (p *Popularity) Len() int {
	if p == nil {
		return 0
	}
	return len(p.ranked)
}

// Calls returns how many corpus programs call id.
func (p *Popularity) Calls(id uint64) uint32 {
	if p == nil {
		return 0
	}
	for _, c := range p.ranked {
		if c.Value == id {
			return c.Count
		}
	}
	return 0
}

func (p *Popularity) tier(i int) []uint64 {
	if p == nil {
		return nil
	}
	switch i {
	case 0:
		return p.most
	case 1:
		return p.medium
	default:
		return p.least
	}
}

func (p *Popularity) chooseTier(rng *rand.Rand, i int) (uint64, bool) {
	return ChooseUniform(rng, p.tier(i))
}

func (p *Popularity) chooseWeighted(rng *rand.Rand) (uint64, bool) {
	if p == nil {
		return 0, false
	}
	c, ok := Choose(rng, p.ranked, func(c Candidate[uint64]) uint32 { return c.Count })
	return c.Value, ok
}
