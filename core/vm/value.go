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

import (
	"math/big"

	"github.com/holiman/uint256"
)

// Register values are 256 bit two's complement integers. Every operation that
// would leave the range [-2^255, 2^255) reports ErrRegisterOverflow.

var (
	bigMaxValue = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))
	bigMinValue = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 255))
)

// NewValue returns the register representation of v.
func NewValue(v int64) *uint256.Int {
	if v >= 0 {
		return uint256.NewInt(uint64(v))
	}
	z := uint256.NewInt(uint64(-(v + 1)))
	z.AddUint64(z, 1)
	return z.Neg(z)
}

// ValueToBig converts a register value into a signed big integer.
func ValueToBig(v *uint256.Int) *big.Int {
	if v.Sign() >= 0 {
		return v.ToBig()
	}
	abs := new(uint256.Int).Neg(v)
	b := abs.ToBig()
	return b.Neg(b)
}

// ValueFromBig converts b into a register value, failing with
// ErrRegisterOverflow when b does not fit.
func ValueFromBig(b *big.Int) (*uint256.Int, error) {
	if b.Cmp(bigMaxValue) > 0 || b.Cmp(bigMinValue) < 0 {
		return nil, ErrRegisterOverflow
	}
	if b.Sign() >= 0 {
		z, _ := uint256.FromBig(b)
		return z, nil
	}
	z, _ := uint256.FromBig(new(big.Int).Neg(b))
	return z.Neg(z), nil
}

// FormatValue renders v as a signed decimal.
func FormatValue(v *uint256.Int) string {
	return ValueToBig(v).String()
}

// valueInt64 reports v as an int64 when it fits.
func valueInt64(v *uint256.Int) (int64, bool) {
	if v.Sign() >= 0 {
		if !v.IsUint64() || v.Uint64() > 1<<63-1 {
			return 0, false
		}
		return int64(v.Uint64()), true
	}
	abs := new(uint256.Int).Neg(v)
	if !abs.IsUint64() || abs.Uint64() > 1<<63 {
		return 0, false
	}
	return -int64(abs.Uint64() - 1) - 1, true
}

// isNegative reports whether v is below zero.
func isNegative(v *uint256.Int) bool {
	return v.Sign() < 0
}

func signedAdd(a, b *uint256.Int) (*uint256.Int, error) {
	z := new(uint256.Int).Add(a, b)
	// Overflow iff both operands share a sign that the result does not.
	if a.Sign() >= 0 && b.Sign() >= 0 && z.Sign() < 0 {
		return nil, ErrRegisterOverflow
	}
	if a.Sign() < 0 && b.Sign() < 0 && z.Sign() >= 0 {
		return nil, ErrRegisterOverflow
	}
	return z, nil
}

func signedSub(a, b *uint256.Int) (*uint256.Int, error) {
	z := new(uint256.Int).Sub(a, b)
	if a.Sign() >= 0 && b.Sign() < 0 && z.Sign() < 0 {
		return nil, ErrRegisterOverflow
	}
	if a.Sign() < 0 && b.Sign() >= 0 && z.Sign() >= 0 {
		return nil, ErrRegisterOverflow
	}
	return z, nil
}

func signedMul(a, b *uint256.Int) (*uint256.Int, error) {
	if a.IsZero() || b.IsZero() {
		return new(uint256.Int), nil
	}
	return ValueFromBig(new(big.Int).Mul(ValueToBig(a), ValueToBig(b)))
}

// signedCmp returns -1, 0 or +1 comparing a and b as signed integers.
func signedCmp(a, b *uint256.Int) int {
	switch {
	case a.Slt(b):
		return -1
	case a.Sgt(b):
		return 1
	default:
		return 0
	}
}
