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

// Package novelty remembers which programs the miner has already tried.
package novelty

import (
	"hash"
	"os"
	"sync"

	"github.com/cespare/xxhash/v2"
	bloomfilter "github.com/holiman/bloomfilter/v2"
	"github.com/pkg/errors"

	"github.com/lodaminer/lodaminer/core/asm"
	"github.com/lodaminer/lodaminer/core/vm"
	"github.com/lodaminer/lodaminer/log"
	"github.com/lodaminer/lodaminer/metrics"
)

const (
	// DefaultSize is the number of programs the filter is dimensioned for.
	DefaultSize = 1_000_000
	// DefaultFalsePositiveRate is the target false positive probability at
	// DefaultSize items.
	DefaultFalsePositiveRate = 0.01
)

var (
	insertCounter = metrics.NewRegisteredCounter("novelty/insert", nil)
	seenCounter   = metrics.NewRegisteredCounter("novelty/seen", nil)
)

// Filter is a probabilistic set of canonical program texts. A false
// positive makes a new program look known; a known program is never
// reported as new. It is safe for concurrent use.
type Filter struct {
	lock  sync.RWMutex
	bloom *bloomfilter.Filter
}

// New creates a filter sized for size items at false positive rate fp.
// Non-positive arguments select the defaults.
func New(size uint64, fp float64) (*Filter, error) {
	if size == 0 {
		size = DefaultSize
	}
	if fp <= 0 || fp >= 1 {
		fp = DefaultFalsePositiveRate
	}
	bloom, err := bloomfilter.NewOptimal(size, fp)
	if err != nil {
		return nil, err
	}
	log.Debug("Created novelty filter", "size", size, "fp", fp, "bits", bloom.M(), "hashes", bloom.K())
	return &Filter{bloom: bloom}, nil
}

// Load reads a filter written by Save.
func Load(filename string) (*Filter, error) {
	bloom, _, err := bloomfilter.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "read novelty filter %s", filename)
	}
	log.Info("Loaded novelty filter", "path", filename, "items", bloom.N())
	return &Filter{bloom: bloom}, nil
}

// Save writes the filter to filename, replacing it atomically.
func (f *Filter) Save(filename string) error {
	f.lock.RLock()
	defer f.lock.RUnlock()

	tmp := filename + ".tmp"
	if _, err := f.bloom.WriteFile(tmp); err != nil {
		return errors.Wrapf(err, "write novelty filter %s", tmp)
	}
	if err := os.Rename(tmp, filename); err != nil {
		return errors.Wrap(err, "commit novelty filter")
	}
	log.Info("Saved novelty filter", "path", filename, "items", f.bloom.N())
	return nil
}

// Contains reports whether the canonical text was probably inserted.
func (f *Filter) Contains(canonical string) bool {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return f.bloom.Contains(hasher(canonical))
}

// Insert adds the canonical text and reports whether it was new.
func (f *Filter) Insert(canonical string) bool {
	h := hasher(canonical)

	f.lock.Lock()
	defer f.lock.Unlock()
	if f.bloom.Contains(h) {
		seenCounter.Inc(1)
		return false
	}
	f.bloom.Add(h)
	insertCounter.Inc(1)
	return true
}

// InsertProgram adds the canonical text of program.
func (f *Filter) InsertProgram(program *vm.Program) bool {
	return f.Insert(asm.CanonicalCode(program.Instructions()))
}

// Count returns the number of distinct items inserted.
func (f *Filter) Count() uint64 {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return f.bloom.N()
}

func hasher(canonical string) hash.Hash64 {
	h := xxhash.New()
	h.WriteString(canonical)
	return h
}
