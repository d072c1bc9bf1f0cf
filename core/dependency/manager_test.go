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

package dependency

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodaminer/lodaminer/core/asm"
	"github.com/lodaminer/lodaminer/core/vm"
)

var programs = map[uint64]string{
	27:  "mov $0,$0",
	217: "mov $1,$0\nadd $1,1\nmul $0,$1\ndiv $0,2",
	290: "mov $1,$0\nseq $1,27\nmul $0,$1",
	330: "seq $0,290\nseq $0,217",
	// 1 -> 2 -> 3 -> 2
	1: "seq $0,2",
	2: "seq $0,3",
	3: "add $0,1\nseq $0,2",
	// calls a missing program
	10: "seq $0,11",
	// malformed
	20: "mov $0,\nadd $0,1",
}

func TestResolve(t *testing.T) {
	m := NewManager(NewMemoryLoader(programs), 0)
	program, err := m.Resolve(330)
	require.NoError(t, err)
	assert.Equal(t, []uint64{217, 290}, program.DependsOn())
	assert.Equal(t, 4, m.Len(), "330 and its transitive dependencies are cached")

	in := vm.NewInterpreter(vm.DefaultConfig, m, nil)
	out, _, err := in.Evaluate(program, 3)
	require.NoError(t, err)
	assert.Equal(t, "45", vm.FormatValue(out))
}

func TestResolveCycle(t *testing.T) {
	m := NewManager(NewMemoryLoader(programs), 0)
	_, err := m.Resolve(1)
	require.ErrorIs(t, err, vm.ErrCyclicDependency)

	var cyc *vm.CyclicDependencyError
	require.True(t, errors.As(err, &cyc))
	assert.Equal(t, []uint64{2, 3, 2}, cyc.Path)
	assert.Zero(t, m.Len(), "programs on a cycle are never cached")
}

func TestResolveMissing(t *testing.T) {
	m := NewManager(NewMemoryLoader(programs), 0)
	_, err := m.Resolve(10)
	assert.ErrorIs(t, err, vm.ErrUnresolvedDependency)

	_, err = m.Resolve(99)
	assert.ErrorIs(t, err, vm.ErrUnresolvedDependency)
}

func TestResolveParseError(t *testing.T) {
	m := NewManager(NewMemoryLoader(programs), 0)
	_, err := m.Resolve(20)
	require.Error(t, err)
	assert.ErrorIs(t, err, asm.ErrSyntax)
	assert.Contains(t, err.Error(), "memory:A000020")
}

func TestDependencies(t *testing.T) {
	m := NewManager(NewMemoryLoader(programs), 0)
	deps, err := m.Dependencies(330)
	require.NoError(t, err)
	assert.Equal(t, []uint64{27, 217, 290}, deps)

	deps, err = m.Dependencies(27)
	require.NoError(t, err)
	assert.Empty(t, deps)
}

// countingLoader counts the loads that reach the backing loader.
type countingLoader struct {
	Loader
	loads atomic.Int32
}

func (l *countingLoader) Load(id uint64) (string, error) {
	l.loads.Add(1)
	return l.Loader.Load(id)
}

func TestResolveLoadsOnce(t *testing.T) {
	loader := &countingLoader{Loader: NewMemoryLoader(programs)}
	m := NewManager(loader, 0)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Resolve(290)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	_, err := m.Resolve(290)
	require.NoError(t, err)

	// Racing goroutines may each miss the cache before the first insert,
	// but a cached program is never loaded again.
	loads := loader.loads.Load()
	_, err = m.Resolve(290)
	require.NoError(t, err)
	assert.Equal(t, loads, loader.loads.Load())
}

func TestDirLoader(t *testing.T) {
	dir := t.TempDir()
	l := NewDirLoader(dir)
	assert.Equal(t, filepath.Join(dir, "oeis", "000", "A000045.asm"), l.PathFor(45))
	assert.Equal(t, filepath.Join(dir, "oeis", "123", "A123456.asm"), l.PathFor(123456))

	for id, text := range map[uint64]string{45: "mov $0,1", 123456: "seq $0,45"} {
		path := l.PathFor(id)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "oeis", "000", "README"), nil, 0o644))

	ids, err := l.IDs()
	require.NoError(t, err)
	assert.Equal(t, []uint64{45, 123456}, ids)

	m := NewManager(l, 16)
	_, err = m.Resolve(123456)
	require.NoError(t, err)

	_, err = l.Load(7)
	assert.ErrorIs(t, err, vm.ErrUnresolvedDependency)
}
