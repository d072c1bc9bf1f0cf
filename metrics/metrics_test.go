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

package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterRegistration(t *testing.T) {
	r := NewRegistry()
	c := NewRegisteredCounter("miner/candidates", r)
	c.Inc(3)
	again := NewRegisteredCounter("miner/candidates", r)
	again.Inc(2)

	assert.Same(t, c, again)
	assert.Equal(t, int64(5), c.Snapshot())
}

func TestTimerMean(t *testing.T) {
	r := NewRegistry()
	tm := NewRegisteredTimer("vm/run", r)
	tm.Update(2 * time.Millisecond)
	tm.Update(4 * time.Millisecond)

	assert.Equal(t, int64(2), tm.Count())
	assert.Equal(t, 3*time.Millisecond, tm.Mean())
}

func TestHandlerExportsMetrics(t *testing.T) {
	r := NewRegistry()
	NewRegisteredGauge("miner/unsolved", r).Update(7)
	GetOrRegisterLabel("miner/config", r).Mark(map[string]interface{}{"workers": 4})

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()

	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(body, "lodaminer_miner_unsolved 7"), body)
	assert.True(t, strings.Contains(body, `lodaminer_miner_config_info{workers="4"} 1`), body)
}
