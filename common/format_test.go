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

package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPrettyDuration(t *testing.T) {
	assert.Equal(t, "1.234s", PrettyDuration(1234567891*time.Nanosecond).String())
	assert.Equal(t, "2m0s", PrettyDuration(2*time.Minute).String())
	assert.Equal(t, "15ms", PrettyDuration(15*time.Millisecond).String())
}

func TestProgramName(t *testing.T) {
	assert.Equal(t, "A000045", ProgramName(45))
	assert.Equal(t, "A1234567", ProgramName(1234567))
}
