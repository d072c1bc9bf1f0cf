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
	"golang.org/x/exp/slices"

	"github.com/lodaminer/lodaminer/core/asm"
	"github.com/lodaminer/lodaminer/core/vm"
)

// Word is one token of an n-gram: an opcode name, an operand, a whole
// instruction line, or one of the program boundary sentinels.
type Word string

const (
	WordStart Word = "START" // before the first instruction
	WordStop  Word = "STOP"  // after the last instruction
)

// OpWord is the instruction n-gram token of op.
func OpWord(op vm.OpCode) Word { return Word(op.String()) }

// LineWord is the line n-gram token of ins.
func LineWord(ins vm.Instruction) Word { return Word(ins.String()) }

// TargetWord is the target n-gram token of ins. Instructions without a
// target contribute their opcode name.
func TargetWord(ins vm.Instruction) Word {
	if !ins.Op.HasTarget() {
		return OpWord(ins.Op)
	}
	return Word(ins.Target.String())
}

// SourceWord is the source n-gram token of ins. Instructions without a
// source contribute their opcode name.
func SourceWord(ins vm.Instruction) Word {
	if !ins.Op.HasSource() {
		return OpWord(ins.Op)
	}
	return Word(ins.Source.String())
}

// ParseOperandWord converts an operand token back into an operand.
func ParseOperandWord(w Word) (vm.Operand, bool) {
	o, err := asm.ParseOperand(string(w))
	if err != nil {
		return vm.Operand{}, false
	}
	return o, true
}

// Candidate is one histogram entry.
type Candidate[T constraints.Ordered] struct {
	Value T
	Count uint32
}

// Histogram is a frozen, deterministically ordered frequency table.
type Histogram[T constraints.Ordered] struct {
	entries []Candidate[T]
	total   uint64
}

// Len returns the number of distinct values.
func (h *Histogram[T]) Len() int {
	if h == nil {
		return 0
	}
	return len(h.entries)
}

// Total returns the sum of all counts.
func (h *Histogram[T]) Total() uint64 {
	if h == nil {
		return 0
	}
	return h.total
}

// Entries returns the entries, most frequent first.
func (h *Histogram[T]) Entries() []Candidate[T] {
	if h == nil {
		return nil
	}
	return slices.Clone(h.entries)
}

// Choose picks a value with probability proportional to its count.
func (h *Histogram[T]) Choose(rng *rand.Rand) (T, bool) {
	if h == nil {
		var zero T
		return zero, false
	}
	c, ok := Choose(rng, h.entries, func(c Candidate[T]) uint32 { return c.Count })
	return c.Value, ok
}

// counter accumulates a histogram.
type counter[T constraints.Ordered] map[T]uint32

func (c counter[T]) freeze() *Histogram[T] {
	if len(c) == 0 {
		return nil
	}
	h := &Histogram[T]{entries: make([]Candidate[T], 0, len(c))}
	for v, n := range c {
		h.entries = append(h.entries, Candidate[T]{Value: v, Count: n})
		h.total += uint64(n)
	}
	slices.SortFunc(h.entries, func(a, b Candidate[T]) int {
		switch {
		case a.Count != b.Count:
			if a.Count > b.Count {
				return -1
			}
			return 1
		case a.Value < b.Value:
			return -1
		case a.Value > b.Value:
			return 1
		}
		return 0
	})
	return h
}

type wordPair struct {
	prev, next Word
}

// Ngram predicts the word between two neighbours. It prefers the trigram
// seen with both neighbours and falls back to the bigrams with either one.
type Ngram struct {
	trigram map[wordPair]*Histogram[Word]
	after   map[Word]*Histogram[Word] // keyed by the previous word
	before  map[Word]*Histogram[Word] // keyed by the next word
}

// Suggest picks a word that plausibly sits between prev and next.
func (n *Ngram) Suggest(rng *rand.Rand, prev, next Word) (Word, bool) {
	if n == nil {
		return "", false
	}
	if h, ok := n.trigram[wordPair{prev, next}]; ok {
		return h.Choose(rng)
	}
	if h, ok := n.after[prev]; ok {
		return h.Choose(rng)
	}
	if h, ok := n.before[next]; ok {
		return h.Choose(rng)
	}
	return "", false
}

// Len returns the number of distinct trigram contexts.
func (n *Ngram) Len() int {
	if n == nil {
		return 0
	}
	return len(n.trigram)
}

type ngramBuilder struct {
	trigram map[wordPair]counter[Word]
	after   map[Word]counter[Word]
	before  map[Word]counter[Word]
}

func newNgramBuilder() *ngramBuilder {
	return &ngramBuilder{
		trigram: make(map[wordPair]counter[Word]),
		after:   make(map[Word]counter[Word]),
		before:  make(map[Word]counter[Word]),
	}
}

// observe records every word of a program, surrounded by the sentinels.
func (b *ngramBuilder) observe(words []Word) {
	seq := make([]Word, 0, len(words)+2)
	seq = append(seq, WordStart)
	seq = append(seq, words...)
	seq = append(seq, WordStop)
	for i := 1; i+1 < len(seq); i++ {
		prev, cur, next := seq[i-1], seq[i], seq[i+1]
		bump(b.trigram, wordPair{prev, next}, cur)
		bump(b.after, prev, cur)
		bump(b.before, next, cur)
	}
}

func bump[K comparable](m map[K]counter[Word], key K, w Word) {
	c, ok := m[key]
	if !ok {
		c = make(counter[Word])
		m[key] = c
	}
	c[w]++
}

func (b *ngramBuilder) build() *Ngram {
	if len(b.trigram) == 0 {
		return nil
	}
	n := &Ngram{
		trigram: make(map[wordPair]*Histogram[Word], len(b.trigram)),
		after:   make(map[Word]*Histogram[Word], len(b.after)),
		before:  make(map[Word]*Histogram[Word], len(b.before)),
	}
	for k, c := range b.trigram {
		n.trigram[k] = c.freeze()
	}
	for k, c := range b.after {
		n.after[k] = c.freeze()
	}
	for k, c := range b.before {
		n.before[k] = c.freeze()
	}
	return n
}
