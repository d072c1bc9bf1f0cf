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

// Package dependency resolves programs called by id.
package dependency

import (
	"strconv"

	mapset "github.com/deckarep/golang-set/v2"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/singleflight"

	"github.com/lodaminer/lodaminer/core/asm"
	"github.com/lodaminer/lodaminer/core/vm"
	"github.com/lodaminer/lodaminer/log"
	"github.com/lodaminer/lodaminer/metrics"
)

// DefaultCacheSize is the number of resolved programs kept by a Manager.
const DefaultCacheSize = 10_000

var (
	loadCounter      = metrics.NewRegisteredCounter("dependency/load", nil)
	cacheHitCounter  = metrics.NewRegisteredCounter("dependency/cache/hit", nil)
	loadErrorCounter = metrics.NewRegisteredCounter("dependency/load/error", nil)
)

// Manager resolves program ids into validated programs. A program is only
// cached once every program it calls, transitively, resolved as well, so a
// cached program never leads into a cycle or a missing dependency.
//
// Manager implements vm.Resolver and is safe for concurrent use.
type Manager struct {
	loader Loader
	cache  *lru.Cache // id -> *vm.Program
	group  singleflight.Group
}

// NewManager returns a manager reading through loader and caching up to
// cacheSize programs.
func NewManager(loader Loader, cacheSize int) *Manager {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, _ := lru.New(cacheSize)
	return &Manager{loader: loader, cache: cache}
}

// Loader returns the underlying program loader.
func (m *Manager) Loader() Loader { return m.loader }

// Resolve returns program id with all its dependencies verified.
func (m *Manager) Resolve(id uint64) (*vm.Program, error) {
	return m.resolve(id, mapset.NewThreadUnsafeSet[uint64](), nil)
}

// Dependencies returns every program id reachable from id through seq
// instructions, excluding id itself, in ascending order.
func (m *Manager) Dependencies(id uint64) ([]uint64, error) {
	if _, err := m.Resolve(id); err != nil {
		return nil, err
	}
	seen := mapset.NewThreadUnsafeSet[uint64]()
	queue := []uint64{id}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		program, err := m.Resolve(next)
		if err != nil {
			return nil, err
		}
		for _, dep := range program.DependsOn() {
			if seen.Add(dep) {
				queue = append(queue, dep)
			}
		}
	}
	seen.Remove(id)
	deps := seen.ToSlice()
	slices.Sort(deps)
	return deps, nil
}

// Len returns the number of cached programs.
func (m *Manager) Len() int { return m.cache.Len() }

// Purge drops every cached program.
func (m *Manager) Purge() { m.cache.Purge() }

// resolve loads id and walks its dependencies. visited holds the ids on the
// current call path, path the same ids in call order.
func (m *Manager) resolve(id uint64, visited mapset.Set[uint64], path []uint64) (*vm.Program, error) {
	if visited.Contains(id) {
		cycle := append(append([]uint64{}, path...), id)
		for i, p := range path {
			if p == id {
				cycle = cycle[i:]
				break
			}
		}
		return nil, &vm.CyclicDependencyError{Path: cycle}
	}
	if cached, ok := m.cache.Get(id); ok {
		cacheHitCounter.Inc(1)
		return cached.(*vm.Program), nil
	}
	program, err := m.load(id)
	if err != nil {
		return nil, err
	}
	visited.Add(id)
	path = append(path, id)
	for _, dep := range program.DependsOn() {
		if _, err := m.resolve(dep, visited, path); err != nil {
			return nil, err
		}
	}
	visited.Remove(id)

	m.cache.Add(id, program)
	return program, nil
}

// load reads and parses one program. Concurrent loads of the same id are
// collapsed into one.
func (m *Manager) load(id uint64) (*vm.Program, error) {
	v, err, _ := m.group.Do(strconv.FormatUint(id, 10), func() (interface{}, error) {
		loadCounter.Inc(1)
		text, err := m.loader.Load(id)
		if err != nil {
			return nil, err
		}
		program, err := asm.ParseProgram(text)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s", m.loader.PathFor(id))
		}
		log.Trace("Loaded program", "id", id, "len", program.Len())
		return program, nil
	})
	if err != nil {
		loadErrorCounter.Inc(1)
		return nil, err
	}
	return v.(*vm.Program), nil
}
