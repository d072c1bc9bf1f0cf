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

// Config are the configuration options for the Interpreter
type Config struct {
	MaxLoopIterations int    // Committed iterations allowed per loop entry
	MaxSteps          uint64 // Executed instructions allowed per top-level run, 0 disables the limit
	MaxRegisters      uint64 // Register addresses must be below this bound
	MaxCallDepth      int    // Nested seq calls allowed
	CallCacheSize     int    // Entries in the seq result cache, 0 disables caching

	Tracer *Hooks `toml:"-"`
}

// DefaultConfig contains the limits used by the miner.
var DefaultConfig = Config{
	MaxLoopIterations: 1000,
	MaxSteps:          10_000_000,
	MaxRegisters:      1024,
	MaxCallDepth:      64,
	CallCacheSize:     100_000,
}

// sanitize replaces unset limits with their defaults.
func (c Config) sanitize() Config {
	if c.MaxLoopIterations <= 0 {
		c.MaxLoopIterations = DefaultConfig.MaxLoopIterations
	}
	if c.MaxRegisters == 0 {
		c.MaxRegisters = DefaultConfig.MaxRegisters
	}
	if c.MaxCallDepth <= 0 {
		c.MaxCallDepth = DefaultConfig.MaxCallDepth
	}
	return c
}

// Hooks observe an execution. Every field is optional.
type Hooks struct {
	// OnStep runs before an instruction executes.
	OnStep func(depth int, pc int, ins Instruction, state *ProgramState)
	// OnLoopExit runs when a loop terminates normally after cycles committed
	// iterations.
	OnLoopExit func(depth int, pc int, cycles int)
	// OnCall runs before a seq instruction invokes program id.
	OnCall func(depth int, id uint64)
}
