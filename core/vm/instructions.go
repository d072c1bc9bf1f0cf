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

// maxBinomialK bounds the shorter side of a binomial coefficient. For any
// larger k with n >= 2k the result exceeds the register range.
const maxBinomialK = 300

// Binary operations return the new value of the target register. None of
// them modify their arguments.

func opMov(a, b *uint256.Int) (*uint256.Int, error) {
	return new(uint256.Int).Set(b), nil
}

func opAdd(a, b *uint256.Int) (*uint256.Int, error) {
	return signedAdd(a, b)
}

func opSub(a, b *uint256.Int) (*uint256.Int, error) {
	return signedSub(a, b)
}

func opTrn(a, b *uint256.Int) (*uint256.Int, error) {
	z, err := signedSub(a, b)
	if err != nil {
		return nil, err
	}
	if z.Sign() < 0 {
		return z.Clear(), nil
	}
	return z, nil
}

func opMul(a, b *uint256.Int) (*uint256.Int, error) {
	return signedMul(a, b)
}

func opDiv(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivisionByZero
	}
	if isMinValue(a) && isMinusOne(b) {
		return nil, ErrRegisterOverflow
	}
	return new(uint256.Int).SDiv(a, b), nil
}

func opDif(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivisionByZero
	}
	if isMinusOne(b) {
		if isMinValue(a) {
			return nil, ErrRegisterOverflow
		}
		return new(uint256.Int).Neg(a), nil
	}
	if !new(uint256.Int).SMod(a, b).IsZero() {
		return new(uint256.Int).Set(a), nil
	}
	return new(uint256.Int).SDiv(a, b), nil
}

func opMod(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivisionByZero
	}
	return new(uint256.Int).SMod(a, b), nil
}

func opPow(a, b *uint256.Int) (*uint256.Int, error) {
	one := uint256.NewInt(1)
	switch {
	case a.IsZero():
		switch b.Sign() {
		case 1:
			return new(uint256.Int), nil
		case 0:
			return one, nil
		default:
			return nil, ErrDivisionByZero
		}
	case a.Eq(one):
		return one, nil
	case isMinusOne(a):
		if b.Uint64()&1 == 1 {
			return NewValue(-1), nil
		}
		return one, nil
	}
	if b.Sign() < 0 {
		return new(uint256.Int), nil
	}
	// |a| >= 2, so any exponent beyond 255 leaves the register range.
	if !b.IsUint64() || b.Uint64() > 255 {
		return nil, ErrRegisterOverflow
	}
	return ValueFromBig(new(big.Int).Exp(ValueToBig(a), b.ToBig(), nil))
}

func opGcd(a, b *uint256.Int) (*uint256.Int, error) {
	x := new(big.Int).Abs(ValueToBig(a))
	y := new(big.Int).Abs(ValueToBig(b))
	return ValueFromBig(new(big.Int).GCD(nil, nil, x, y))
}

// opBin computes the binomial coefficient, extended to negative arguments
// via the identities of Kronenburg (arXiv:1105.3689).
func opBin(a, b *uint256.Int) (*uint256.Int, error) {
	n, k := ValueToBig(a), ValueToBig(b)
	one := big.NewInt(1)
	negate := false
	if n.Sign() < 0 {
		switch {
		case k.Sign() >= 0:
			negate = k.Bit(0) == 1
			n = new(big.Int).Sub(k, new(big.Int).Add(n, one))
		case n.Cmp(k) >= 0:
			diff := new(big.Int).Sub(n, k)
			negate = diff.Bit(0) == 1
			n = new(big.Int).Neg(new(big.Int).Add(k, one))
			k = diff
		default:
			return new(uint256.Int), nil
		}
	}
	if k.Sign() < 0 || n.Cmp(k) < 0 {
		return new(uint256.Int), nil
	}
	if rest := new(big.Int).Sub(n, k); rest.Cmp(k) < 0 {
		k = rest
	}
	if !k.IsInt64() || k.Int64() > maxBinomialK {
		return nil, ErrRegisterOverflow
	}
	r := big.NewInt(1)
	steps := k.Int64()
	for i := int64(0); i < steps; i++ {
		r.Mul(r, new(big.Int).Sub(n, big.NewInt(i)))
		r.Quo(r, big.NewInt(i+1))
		if r.Cmp(bigMaxValue) > 0 {
			return nil, ErrRegisterOverflow
		}
	}
	if negate {
		r.Neg(r)
	}
	return ValueFromBig(r)
}

func opCmp(a, b *uint256.Int) (*uint256.Int, error) {
	if a.Eq(b) {
		return uint256.NewInt(1), nil
	}
	return new(uint256.Int), nil
}

func opMin(a, b *uint256.Int) (*uint256.Int, error) {
	if a.Slt(b) {
		return new(uint256.Int).Set(a), nil
	}
	return new(uint256.Int).Set(b), nil
}

func opMax(a, b *uint256.Int) (*uint256.Int, error) {
	if a.Sgt(b) {
		return new(uint256.Int).Set(a), nil
	}
	return new(uint256.Int).Set(b), nil
}

// evalBinary dispatches the binary register operations.
func evalBinary(op OpCode, a, b *uint256.Int) (*uint256.Int, error) {
	switch op {
	case MOV:
		return opMov(a, b)
	case ADD:
		return opAdd(a, b)
	case SUB:
		return opSub(a, b)
	case TRN:
		return opTrn(a, b)
	case MUL:
		return opMul(a, b)
	case DIV:
		return opDiv(a, b)
	case DIF:
		return opDif(a, b)
	case MOD:
		return opMod(a, b)
	case POW:
		return opPow(a, b)
	case GCD:
		return opGcd(a, b)
	case BIN:
		return opBin(a, b)
	case CMP:
		return opCmp(a, b)
	case MIN:
		return opMin(a, b)
	case MAX:
		return opMax(a, b)
	}
	return nil, &AddressingError{Op: op, Operand: "opcode", Reason: "not a binary operation"}
}

func isMinusOne(v *uint256.Int) bool {
	return v.Eq(minusOne)
}

func isMinValue(v *uint256.Int) bool {
	return v.Eq(minValue)
}

var (
	minusOne = NewValue(-1)
	minValue = new(uint256.Int).Lsh(uint256.NewInt(1), 255)
)
