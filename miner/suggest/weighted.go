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

	"golang.org/x/exp/constraints"
)

// Choose picks one of values with probability proportional to its weight.
// Values with a non-positive weight are never picked. It reports false when
// no value carries weight.
func Choose[T any, W constraints.Integer](rng *rand.Rand, values []T, weight func(T) W) (T, bool) {
	var total uint64
	for _, v := range values {
		if w := weight(v); w > 0 {
			total += uint64(w)
		}
	}
	if total == 0 {
		var zero T
		return zero, false
	}
	pick := uint64(rng.Int63n(int64(total)))
	for _, v := range values {
		w := weight(v)
		if w <= 0 {
			continue
		}
		if pick < uint64(w) {
			return v, true
		}
		pick -= uint64(w)
	}
	// Unreachable while the weights are stable.
	var zero T
	return zero, false
}

// ChooseUniform picks one of values with equal probability.
func ChooseUniform[T any](rng *rand.Rand, values []T) (T, bool) {
	if len(values) == 0 {
		var zero T
		return zero, false
	}
	return values[rng.Intn(len(values))], true
}
