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

import "github.com/lodaminer/lodaminer/metrics"

var (
	runCounter         = metrics.NewRegisteredCounter("vm/runs", nil)
	stepCounter        = metrics.NewRegisteredCounter("vm/steps", nil)
	callCacheHitMeter  = metrics.NewRegisteredCounter("vm/callcache/hit", nil)
	callCacheMissMeter = metrics.NewRegisteredCounter("vm/callcache/miss", nil)
	loopLimitCounter   = metrics.NewRegisteredCounter("vm/looplimit", nil)
)
