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
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/lodaminer/lodaminer/common"
	"github.com/lodaminer/lodaminer/core/vm"
)

// Loader fetches the text of a program by id.
type Loader interface {
	// Load returns the program text. A missing program is reported with an
	// error matching vm.ErrUnresolvedDependency.
	Load(id uint64) (string, error)
	// PathFor names the location of a program, for error messages.
	PathFor(id uint64) string
}

// DirLoader reads programs laid out as <root>/oeis/<id/1000>/A<id>.asm.
type DirLoader struct {
	root string
}

// NewDirLoader returns a loader rooted at dir.
func NewDirLoader(dir string) *DirLoader {
	return &DirLoader{root: dir}
}

// PathFor implements Loader.
func (l *DirLoader) PathFor(id uint64) string {
	return filepath.Join(l.root, "oeis", fmt.Sprintf("%03d", id/1000), common.ProgramName(id)+".asm")
}

// Load implements Loader.
func (l *DirLoader) Load(id uint64) (string, error) {
	path := l.PathFor(id)
	blob, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %s: no file %s", vm.ErrUnresolvedDependency, common.ProgramName(id), path)
	}
	if err != nil {
		return "", errors.Wrapf(err, "read program %s", common.ProgramName(id))
	}
	return string(blob), nil
}

var programFileName = regexp.MustCompile(`^A(\d{6,})\.asm$`)

// IDs walks the directory layout and returns every program id found,
// sorted ascending.
func (l *DirLoader) IDs() ([]uint64, error) {
	var ids []uint64
	err := filepath.WalkDir(filepath.Join(l.root, "oeis"), func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		m := programFileName.FindStringSubmatch(d.Name())
		if m == nil {
			return nil
		}
		id, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			return nil
		}
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan program directory")
	}
	slices.Sort(ids)
	return ids, nil
}

// MemoryLoader serves programs from memory. It is safe for concurrent use.
type MemoryLoader struct {
	mu       sync.RWMutex
	programs map[uint64]string
}

// NewMemoryLoader returns a loader holding the given programs.
func NewMemoryLoader(programs map[uint64]string) *MemoryLoader {
	l := &MemoryLoader{programs: make(map[uint64]string, len(programs))}
	for id, text := range programs {
		l.programs[id] = text
	}
	return l
}

// Add stores or replaces a program.
func (l *MemoryLoader) Add(id uint64, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.programs[id] = text
}

// PathFor implements Loader.
func (l *MemoryLoader) PathFor(id uint64) string {
	return "memory:" + common.ProgramName(id)
}

// Load implements Loader.
func (l *MemoryLoader) Load(id uint64) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	text, ok := l.programs[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", vm.ErrUnresolvedDependency, common.ProgramName(id))
	}
	return text, nil
}

// IDs returns the stored program ids, sorted ascending.
func (l *MemoryLoader) IDs() ([]uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]uint64, 0, len(l.programs))
	for id := range l.programs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
