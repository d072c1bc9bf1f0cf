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

package asm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodaminer/lodaminer/core/vm"
)

const fibonacci = `; A000045: Fibonacci numbers.
#offset 0
mov $3,1
lpb $0
  sub $0,1
  mov $2,$1
  add $1,$3
  mov $3,$2
lpe
mov $0,$1
`

func TestParseFile(t *testing.T) {
	file, err := ParseFile(fibonacci)
	require.NoError(t, err)
	assert.Equal(t, int64(0), file.Offset)
	require.Len(t, file.Code, 8)
	assert.Equal(t, vm.Instruction{Op: vm.MOV, Target: vm.Reg(3), Source: vm.Const(1)}, file.Code[0])
	assert.Equal(t, vm.Instruction{Op: vm.LPB, Target: vm.Reg(0), Source: vm.Const(1)}, file.Code[1])
	assert.Equal(t, vm.Instruction{Op: vm.MOV, Target: vm.Reg(2), Source: vm.Reg(1)}, file.Code[3])
	assert.Equal(t, vm.Instruction{Op: vm.LPE}, file.Code[6])
}

func TestParseOperands(t *testing.T) {
	tests := []struct {
		line string
		want vm.Instruction
	}{
		{"add $0,-3", vm.Instruction{Op: vm.ADD, Target: vm.Reg(0), Source: vm.Const(-3)}},
		{"mov $$1,$$2", vm.Instruction{Op: vm.MOV, Target: vm.Ind(1), Source: vm.Ind(2)}},
		{"lpb $1,$2 ; comment", vm.Instruction{Op: vm.LPB, Target: vm.Reg(1), Source: vm.Reg(2)}},
		{"seq $4,45", vm.Instruction{Op: vm.SEQ, Target: vm.Reg(4), Source: vm.Const(45)}},
		{"lps $2", vm.Instruction{Op: vm.LPS, Target: vm.Reg(2)}},
		{"mul\t$1, 2", vm.Instruction{Op: vm.MUL, Target: vm.Reg(1), Source: vm.Const(2)}},
	}
	for _, tt := range tests {
		ins, err := ParseLine(tt.line)
		require.NoError(t, err, tt.line)
		assert.Equal(t, tt.want, ins, tt.line)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		text string
		line int
		err  error
	}{
		{"mov $0,1\nfoo $0,1", 2, ErrSyntax},
		{"add $0", 1, ErrSyntax},
		{"lpe $0", 1, ErrSyntax},
		{"mov $0,$x", 1, ErrSyntax},
		{"\n\nmov 1,$0", 3, vm.ErrUnsupportedAddressing},
		{"seq $0,$1", 1, vm.ErrUnsupportedAddressing},
		{"#offset a", 1, ErrSyntax},
	}
	for _, tt := range tests {
		_, err := Parse(tt.text)
		var perr *ParseError
		require.True(t, errors.As(err, &perr), tt.text)
		assert.Equal(t, tt.line, perr.Line, tt.text)
		assert.ErrorIs(t, err, tt.err, tt.text)
	}
}

func TestParseProgramUnbalanced(t *testing.T) {
	_, err := ParseProgram("lpb $0\nsub $0,1\n")
	assert.ErrorIs(t, err, vm.ErrUnbalancedLoop)
}

func TestFormatRoundTrip(t *testing.T) {
	programs := []string{
		fibonacci,
		"mov $1,$$0\nlpb $0,2\nlps $1\nclr $2,-3\nlpe\nlpe\nseq $0,10\n",
		"pow $0,2\ndif $0,-3\nbin $1,$0\n",
	}
	for _, text := range programs {
		code, err := Parse(text)
		require.NoError(t, err)

		again, err := Parse(Format(code))
		require.NoError(t, err)
		assert.Equal(t, code, again)
	}
}

func TestFormatIndents(t *testing.T) {
	code, err := Parse("lpb $0\nsub $0,1\nlpe\n")
	require.NoError(t, err)
	assert.Equal(t, "lpb $0\n  sub $0,1\nlpe\n", Format(code))
}

func TestCanonical(t *testing.T) {
	a, err := Canonical("  mov $0 , 1 ; set\n\n; comment only\nlpb $0,1\nlpe")
	require.NoError(t, err)
	b, err := Canonical("mov $0,1\nlpb $0\nlpe\n")
	require.NoError(t, err)
	assert.Equal(t, "mov $0,1\nlpb $0\nlpe", a)
	assert.Equal(t, a, b)
}
