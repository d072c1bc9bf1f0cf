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

package vm

// loopTable maps every loop-begin index to the index of its matching lpe and
// every lpe to its loop-begin. Other entries are -1.
type loopTable []int

// analyseLoops builds the loop table, reporting the first unmatched loop
// instruction.
func analyseLoops(code []Instruction) (loopTable, error) {
	table := make(loopTable, len(code))
	stack := make([]int, 0, 8)
	for i, ins := range code {
		table[i] = -1
		switch {
		case ins.Op.IsLoopBegin():
			stack = append(stack, i)
		case ins.Op == LPE:
			if len(stack) == 0 {
				return nil, &UnbalancedLoopError{Index: i, Op: LPE}
			}
			begin := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			table[begin] = i
			table[i] = begin
		}
	}
	if len(stack) > 0 {
		begin := stack[len(stack)-1]
		return nil, &UnbalancedLoopError{Index: begin, Op: code[begin].Op}
	}
	return table, nil
}

// maxLoopDepth returns the deepest loop nesting of code, assuming balance.
func maxLoopDepth(code []Instruction) int {
	depth, max := 0, 0
	for _, ins := range code {
		switch {
		case ins.Op.IsLoopBegin():
			depth++
			if depth > max {
				max = depth
			}
		case ins.Op == LPE:
			depth--
		}
	}
	return max
}
