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

import "fmt"

// Mutation identifies one mutation operator.
type Mutation int

const (
	ReplaceInstructionWithHistogram Mutation = iota
	InsertInstructionWithConstant
	IncrementSourceValueWhereTypeIsConstant
	DecrementSourceValueWhereTypeIsConstant
	ReplaceSourceConstantWithHistogram
	SetSourceToConstant
	SetSourceToDirect
	DisableLoop
	SwapRegisters
	IncrementSourceValueWhereTypeIsDirect
	DecrementSourceValueWhereTypeIsDirect
	ReplaceSourceWithHistogram
	IncrementTargetValueWhereTypeIsDirect
	DecrementTargetValueWhereTypeIsDirect
	ReplaceTargetWithHistogram
	ReplaceLineWithHistogram
	InsertLineWithHistogram
	CopyLine
	ToggleEnabled
	SwapRows
	SwapAdjacentRows
	InsertLoopBeginEnd
	CallProgramWeightedByPopularity
	CallMostPopularProgram
	CallMediumPopularProgram
	CallLeastPopularProgram
	CallRecentProgram
	CallProgramThatUsesIndirectMemoryAccess
	InlineSeq
	numMutations
)

var mutationNames = [...]string{
	ReplaceInstructionWithHistogram:         "ReplaceInstructionWithHistogram",
	InsertInstructionWithConstant:           "InsertInstructionWithConstant",
	IncrementSourceValueWhereTypeIsConstant: "IncrementSourceValueWhereTypeIsConstant",
	DecrementSourceValueWhereTypeIsConstant: "DecrementSourceValueWhereTypeIsConstant",
	ReplaceSourceConstantWithHistogram:      "ReplaceSourceConstantWithHistogram",
	SetSourceToConstant:                     "SetSourceToConstant",
	SetSourceToDirect:                       "SetSourceToDirect",
	DisableLoop:                             "DisableLoop",
	SwapRegisters:                           "SwapRegisters",
	IncrementSourceValueWhereTypeIsDirect:   "IncrementSourceValueWhereTypeIsDirect",
	DecrementSourceValueWhereTypeIsDirect:   "DecrementSourceValueWhereTypeIsDirect",
	ReplaceSourceWithHistogram:              "ReplaceSourceWithHistogram",
	IncrementTargetValueWhereTypeIsDirect:   "IncrementTargetValueWhereTypeIsDirect",
	DecrementTargetValueWhereTypeIsDirect:   "DecrementTargetValueWhereTypeIsDirect",
	ReplaceTargetWithHistogram:              "ReplaceTargetWithHistogram",
	ReplaceLineWithHistogram:                "ReplaceLineWithHistogram",
	InsertLineWithHistogram:                 "InsertLineWithHistogram",
	CopyLine:                                "CopyLine",
	ToggleEnabled:                           "ToggleEnabled",
	SwapRows:                                "SwapRows",
	SwapAdjacentRows:                        "SwapAdjacentRows",
	InsertLoopBeginEnd:                      "InsertLoopBeginEnd",
	CallProgramWeightedByPopularity:         "CallProgramWeightedByPopularity",
	CallMostPopularProgram:                  "CallMostPopularProgram",
	CallMediumPopularProgram:                "CallMediumPopularProgram",
	CallLeastPopularProgram:                 "CallLeastPopularProgram",
	CallRecentProgram:                       "CallRecentProgram",
	CallProgramThatUsesIndirectMemoryAccess: "CallProgramThatUsesIndirectMemoryAccess",
	InlineSeq:                               "InlineSeq",
}

func (m Mutation) String() string {
	if m >= 0 && m < numMutations {
		return mutationNames[m]
	}
	return fmt.Sprintf("Mutation(%d)", int(m))
}

// AllMutations returns every operator in declaration order.
func AllMutations() []Mutation {
	all := make([]Mutation, numMutations)
	for i := range all {
		all[i] = Mutation(i)
	}
	return all
}

// Weights are the relative selection frequencies of the operators. They
// are tuned by experiment and loaded from configuration.
type Weights struct {
	ReplaceInstructionWithHistogram         uint32
	InsertInstructionWithConstant           uint32
	IncrementSourceValueWhereTypeIsConstant uint32
	DecrementSourceValueWhereTypeIsConstant uint32
	ReplaceSourceConstantWithHistogram      uint32
	SetSourceToConstant                     uint32
	SetSourceToDirect                       uint32
	DisableLoop                             uint32
	SwapRegisters                           uint32
	IncrementSourceValueWhereTypeIsDirect   uint32
	DecrementSourceValueWhereTypeIsDirect   uint32
	ReplaceSourceWithHistogram              uint32
	IncrementTargetValueWhereTypeIsDirect   uint32
	DecrementTargetValueWhereTypeIsDirect   uint32
	ReplaceTargetWithHistogram              uint32
	ReplaceLineWithHistogram                uint32
	InsertLineWithHistogram                 uint32
	CopyLine                                uint32
	ToggleEnabled                           uint32
	SwapRows                                uint32
	SwapAdjacentRows                        uint32
	InsertLoopBeginEnd                      uint32
	CallProgramWeightedByPopularity         uint32
	CallMostPopularProgram                  uint32
	CallMediumPopularProgram                uint32
	CallLeastPopularProgram                 uint32
	CallRecentProgram                       uint32
	CallProgramThatUsesIndirectMemoryAccess uint32
	InlineSeq                               uint32
}

// DefaultWeights are the weights used by the miner.
var DefaultWeights = Weights{
	ReplaceInstructionWithHistogram:         10,
	InsertInstructionWithConstant:           0,
	IncrementSourceValueWhereTypeIsConstant: 10,
	DecrementSourceValueWhereTypeIsConstant: 10,
	ReplaceSourceConstantWithHistogram:      10,
	SetSourceToConstant:                     10,
	SetSourceToDirect:                       10,
	DisableLoop:                             0,
	SwapRegisters:                           10,
	IncrementSourceValueWhereTypeIsDirect:   10,
	DecrementSourceValueWhereTypeIsDirect:   10,
	ReplaceSourceWithHistogram:              10,
	IncrementTargetValueWhereTypeIsDirect:   10,
	DecrementTargetValueWhereTypeIsDirect:   10,
	ReplaceTargetWithHistogram:              10,
	ReplaceLineWithHistogram:                50,
	InsertLineWithHistogram:                 50,
	CopyLine:                                10,
	ToggleEnabled:                           10,
	SwapRows:                                10,
	SwapAdjacentRows:                        10,
	InsertLoopBeginEnd:                      0,
	CallProgramWeightedByPopularity:         0,
	CallMostPopularProgram:                  10,
	CallMediumPopularProgram:                20,
	CallLeastPopularProgram:                 50,
	CallRecentProgram:                       300,
	CallProgramThatUsesIndirectMemoryAccess: 0,
	InlineSeq:                               5,
}

// Of returns the weight of operator m.
func (w *Weights) Of(m Mutation) uint32 {
	if p := w.field(m); p != nil {
		return *p
	}
	return 0
}

// Set changes the weight of operator m.
func (w *Weights) Set(m Mutation, weight uint32) {
	if p := w.field(m); p != nil {
		*p = weight
	}
}

// Only returns weights that select operator m exclusively.
func Only(m Mutation) *Weights {
	w := new(Weights)
	w.Set(m, 1)
	return w
}

func (w *Weights) field(m Mutation) *uint32 {
	switch m {
	case ReplaceInstructionWithHistogram:
		return &w.ReplaceInstructionWithHistogram
	case InsertInstructionWithConstant:
		return &w.InsertInstructionWithConstant
	case IncrementSourceValueWhereTypeIsConstant:
		return &w.IncrementSourceValueWhereTypeIsConstant
	case DecrementSourceValueWhereTypeIsConstant:
		return &w.DecrementSourceValueWhereTypeIsConstant
	case ReplaceSourceConstantWithHistogram:
		return &w.ReplaceSourceConstantWithHistogram
	case SetSourceToConstant:
		return &w.SetSourceToConstant
	case SetSourceToDirect:
		return &w.SetSourceToDirect
	case DisableLoop:
		return &w.DisableLoop
	case SwapRegisters:
		return &w.SwapRegisters
	case IncrementSourceValueWhereTypeIsDirect:
		return &w.IncrementSourceValueWhereTypeIsDirect
	case DecrementSourceValueWhereTypeIsDirect:
		return &w.DecrementSourceValueWhereTypeIsDirect
	case ReplaceSourceWithHistogram:
		return &w.ReplaceSourceWithHistogram
	case IncrementTargetValueWhereTypeIsDirect:
		return &w.IncrementTargetValueWhereTypeIsDirect
	case DecrementTargetValueWhereTypeIsDirect:
		return &w.DecrementTargetValueWhereTypeIsDirect
	case ReplaceTargetWithHistogram:
		return &w.ReplaceTargetWithHistogram
	case ReplaceLineWithHistogram:
		return &w.ReplaceLineWithHistogram
	case InsertLineWithHistogram:
		return &w.InsertLineWithHistogram
	case CopyLine:
		return &w.CopyLine
	case ToggleEnabled:
		return &w.ToggleEnabled
	case SwapRows:
		return &w.SwapRows
	case SwapAdjacentRows:
		return &w.SwapAdjacentRows
	case InsertLoopBeginEnd:
		return &w.InsertLoopBeginEnd
	case CallProgramWeightedByPopularity:
		return &w.CallProgramWeightedByPopularity
	case CallMostPopularProgram:
		return &w.CallMostPopularProgram
	case CallMediumPopularProgram:
		return &w.CallMediumPopularProgram
	case CallLeastPopularProgram:
		return &w.CallLeastPopularProgram
	case CallRecentProgram:
		return &w.CallRecentProgram
	case CallProgramThatUsesIndirectMemoryAccess:
		return &w.CallProgramThatUsesIndirectMemoryAccess
	case InlineSeq:
		return &w.InlineSeq
	}
	return nil
}

// Total returns the sum of all weights.
func (w *Weights) Total() uint64 {
	var total uint64
	for _, m := range AllMutations() {
		total += uint64(w.Of(m))
	}
	return total
}
