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

package miner

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Case is one evaluation of a candidate. Input holds the leading registers
// of the initial state and the result is read from $0. A probe case has no
// expected output; it only guards against candidates that echo their input.
type Case struct {
	Input  []int64 `yaml:"input"`
	Output int64   `yaml:"output"`
	Probe  bool    `yaml:"probe,omitempty"`
}

func (c Case) String() string {
	if c.Probe {
		return fmt.Sprintf("%v -> ?", c.Input)
	}
	return fmt.Sprintf("%v -> %d", c.Input, c.Output)
}

// Target is a behaviour the miner searches a program for.
type Target interface {
	ID() string
	Cases() []Case
}

// SequenceTarget asks for a program computing Terms[i] from input Offset+i.
type SequenceTarget struct {
	Name   string  `yaml:"id"`
	Offset int64   `yaml:"offset"`
	Terms  []int64 `yaml:"terms"`
	Probes []int64 `yaml:"probes,omitempty"` // Inputs without known terms
}

func (t *SequenceTarget) ID() string { return t.Name }

func (t *SequenceTarget) Cases() []Case {
	cases := make([]Case, 0, len(t.Terms)+len(t.Probes))
	for i, term := range t.Terms {
		cases = append(cases, Case{Input: []int64{t.Offset + int64(i)}, Output: term})
	}
	for _, in := range t.Probes {
		cases = append(cases, Case{Input: []int64{in}, Probe: true})
	}
	return cases
}

// CaseTarget lists its register cases explicitly.
type CaseTarget struct {
	Name string `yaml:"id"`
	List []Case `yaml:"cases"`
}

func (t *CaseTarget) ID() string    { return t.Name }
func (t *CaseTarget) Cases() []Case { return t.List }

// targetsFile is the layout of a targets YAML document. Entries with terms
// become sequence targets, entries with cases become case targets.
type targetsFile struct {
	Targets []struct {
		ID     string  `yaml:"id"`
		Offset int64   `yaml:"offset"`
		Terms  []int64 `yaml:"terms"`
		Probes []int64 `yaml:"probes"`
		Cases  []Case  `yaml:"cases"`
	} `yaml:"targets"`
}

// ParseTargets decodes a targets YAML document.
func ParseTargets(data []byte) ([]Target, error) {
	var file targetsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "decode targets")
	}
	seen := make(map[string]struct{}, len(file.Targets))
	targets := make([]Target, 0, len(file.Targets))
	for i, entry := range file.Targets {
		if entry.ID == "" {
			return nil, fmt.Errorf("target %d: missing id", i)
		}
		if _, dup := seen[entry.ID]; dup {
			return nil, fmt.Errorf("target %s: duplicate id", entry.ID)
		}
		seen[entry.ID] = struct{}{}

		switch {
		case len(entry.Terms) > 0 && len(entry.Cases) > 0:
			return nil, fmt.Errorf("target %s: both terms and cases given", entry.ID)
		case len(entry.Terms) > 0:
			targets = append(targets, &SequenceTarget{Name: entry.ID, Offset: entry.Offset, Terms: entry.Terms, Probes: entry.Probes})
		case len(entry.Cases) > 0:
			targets = append(targets, &CaseTarget{Name: entry.ID, List: entry.Cases})
		default:
			return nil, fmt.Errorf("target %s: no terms or cases", entry.ID)
		}
	}
	return targets, nil
}

// LoadTargets reads a targets YAML file.
func LoadTargets(path string) ([]Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read targets")
	}
	targets, err := ParseTargets(data)
	if err != nil {
		return nil, errors.Wrapf(err, "targets %s", path)
	}
	return targets, nil
}
