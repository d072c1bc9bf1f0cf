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

package miner

import (
	"github.com/holiman/uint256"

	"github.com/lodaminer/lodaminer/core/vm"
)

// Match classifies a candidate against a target.
type Match int

const (
	NoMatch Match = iota
	PartialMatch
	FullMatch
	// DangerousFalsePositive passes every required case but only because it
	// hands its input back unchanged.
	DangerousFalsePositive
)

func (m Match) String() string {
	switch m {
	case NoMatch:
		return "none"
	case PartialMatch:
		return "partial"
	case FullMatch:
		return "full"
	case DangerousFalsePositive:
		return "dangerous false positive"
	default:
		return "unknown"
	}
}

// CaseResult is the outcome of running one case.
type CaseResult struct {
	Case   Case
	Output *uint256.Int // nil when the execution failed
	Err    error
	Pass   bool
}

// Classify runs every case of target against program. An execution failure
// in a required case ends the evaluation with NoMatch.
func Classify(in *vm.Interpreter, program *vm.Program, target Target) (Match, []CaseResult) {
	cases := target.Cases()
	results := make([]CaseResult, 0, len(cases))

	var required, passed int
	for _, c := range cases {
		if c.Probe {
			continue
		}
		required++
		res := runCase(in, program, c)
		results = append(results, res)
		if res.Err != nil {
			return NoMatch, results
		}
		if res.Pass {
			passed++
		}
	}
	switch {
	case required == 0 || passed == 0:
		return NoMatch, results
	case passed < required:
		return PartialMatch, results
	}

	var probes int
	for _, c := range cases {
		if !c.Probe {
			continue
		}
		probes++
		res := runCase(in, program, c)
		results = append(results, res)
		if res.Err != nil {
			return PartialMatch, results
		}
		if echoesInput(res.Output, c) {
			return DangerousFalsePositive, results
		}
	}
	if probes == 0 {
		echoes := 0
		for _, res := range results {
			if echoesInput(res.Output, res.Case) {
				echoes++
			}
		}
		if echoes == len(results) {
			return DangerousFalsePositive, results
		}
	}
	return FullMatch, results
}

func runCase(in *vm.Interpreter, program *vm.Program, c Case) CaseResult {
	state := vm.NewProgramStateWith(vm.Silent, c.Input...)
	if err := in.Run(program, state); err != nil {
		return CaseResult{Case: c, Err: err}
	}
	out := state.Get(0)
	res := CaseResult{Case: c, Output: &out}
	if !c.Probe {
		res.Pass = out.Eq(vm.NewValue(c.Output))
	}
	return res
}

// echoesInput reports whether output repeats the case's input in $0.
func echoesInput(output *uint256.Int, c Case) bool {
	if output == nil {
		return false
	}
	var in int64
	if len(c.Input) > 0 {
		in = c.Input[0]
	}
	return output.Eq(vm.NewValue(in))
}
