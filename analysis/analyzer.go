// Copyright 2025 The bytecode-localopt Authors
// This file is part of the bytecode-localopt library.
//
// The bytecode-localopt library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The bytecode-localopt library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the bytecode-localopt library. If not, see <http://www.gnu.org/licenses/>.

package analysis

import (
	"sort"
	"strings"

	"github.com/ArthurS1/bytecode-localopt/bytecode"
)

// Analyzer is the concrete BasicAliasingAnalyzer + ProdConsAnalyzer pair
// named in §6, merged into one pass since both walk the same frame history.
// It is intentionally restricted to acyclic control flow: a method whose CFG
// contains a back edge makes construction decline (see New in build.go), which is
// within the analyzer's documented discretion per §4.1 ("passes must
// degrade to no-op when the analyzer declines construction") and keeps the
// core's only hard dependency — the four passes — implementable without a
// general iterative fixpoint solver, matching the explicit Non-goal of
// global dataflow.
type Analyzer struct {
	method *bytecode.Method

	before map[*bytecode.Instruction]*Frame

	classProducers map[classID][]Producer
	internTable    map[string]classID
	nextClass      classID

	uses map[Producer][]*bytecode.Instruction

	paramWidth int // number of local slots occupied by parameters (incl. receiver)
}

// Method returns the analyzed method.
func (a *Analyzer) Method() *bytecode.Method { return a.method }

// FrameAt exposes the abstract frame immediately before ins, per §4.1.
func (a *Analyzer) FrameAt(ins *bytecode.Instruction) *Frame { return a.before[ins] }

func (a *Analyzer) intern(producers []Producer) classID {
	uniq := map[string]Producer{}
	for _, p := range producers {
		uniq[p.key()] = p
	}
	keys := make([]string, 0, len(uniq))
	for k := range uniq {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	joined := strings.Join(keys, "|")
	if id, ok := a.internTable[joined]; ok {
		return id
	}
	id := a.nextClass
	a.nextClass++
	out := make([]Producer, 0, len(keys))
	for _, k := range keys {
		out = append(out, uniq[k])
	}
	a.classProducers[id] = out
	a.internTable[joined] = id
	return id
}

func (a *Analyzer) producersOf(c classID) []Producer {
	if c < 0 {
		return nil
	}
	return a.classProducers[c]
}

// recordUse registers that ins consumes the value currently at class c, for
// every producer in that class's producer set (§4.4: "the single input has
// exactly one output-consumer"; a merged/multi-producer class registers the
// use against each origin, since any of them might be the one that actually
// executed).
func (a *Analyzer) recordUse(c classID, ins *bytecode.Instruction) {
	for _, p := range a.producersOf(c) {
		a.uses[p] = append(a.uses[p], ins)
	}
}

// AliasesOf returns every local-slot index that, immediately before at,
// provably holds the same value as slot (including slot itself), per §4.1's
// aliasesOf query. Only local slots participate — the only in-core consumer
// (copy propagation, §4.2) never aliases onto a bare stack position.
func (a *Analyzer) AliasesOf(at *bytecode.Instruction, slot int) map[int]bool {
	out := map[int]bool{slot: true}
	f := a.before[at]
	if f == nil {
		return out
	}
	target := f.localClass(slot)
	if target < 0 {
		return out
	}
	for i, c := range f.locals {
		if c == target {
			out[i] = true
		}
	}
	return out
}

// ProducersForLocalAt returns the producer set of the value held in slot
// immediately before at (producersForValueAt specialized to a local slot).
func (a *Analyzer) ProducersForLocalAt(at *bytecode.Instruction, slot int) []Producer {
	f := a.before[at]
	if f == nil {
		return nil
	}
	return a.producersOf(f.localClass(slot))
}

// ProducersForStackAt returns the producer set of the stack value offset
// values from the top, immediately before at (producersForValueAt
// specialized to a stack position; offset 0 is the top).
func (a *Analyzer) ProducersForStackAt(at *bytecode.Instruction, offset int) []Producer {
	f := a.before[at]
	if f == nil {
		return nil
	}
	return a.producersOf(f.PeekStack(offset).class)
}

// ConsumersOf returns every instruction that has consumed a value produced
// by p, anywhere in the method (consumersOfValueAt, §4.1).
func (a *Analyzer) ConsumersOf(p Producer) []*bytecode.Instruction { return a.uses[p] }

// InitialProducersForStackAt is initialProducersForValueAt (§6): a load or a
// store re-exposes its origin rather than creating an intermediate producer,
// so this returns the same set as ProducersForStackAt. A DUP/DUP2 copy is the
// exception: each copy is its own producer, so for a duplicated value this
// reports the DUP, not the origin of the value it duplicated.
func (a *Analyzer) InitialProducersForStackAt(at *bytecode.Instruction, offset int) []Producer {
	return a.ProducersForStackAt(at, offset)
}

// ProducersIfSingleConsumer implements producersIfSingleConsumer(cons,
// inputSlot) from §4.4: it returns the producer set of cons's input at
// stack offset inputSlot iff every producer in that set has exactly one
// output and that output's sole consumer is cons; otherwise it returns nil.
func (a *Analyzer) ProducersIfSingleConsumer(cons *bytecode.Instruction, inputOffset int) []Producer {
	f := a.before[cons]
	if f == nil {
		return nil
	}
	entry := f.PeekStack(inputOffset)
	producers := a.producersOf(entry.class)
	if len(producers) == 0 {
		return nil
	}
	for _, p := range producers {
		if !a.hasSingleOutput(p) {
			return nil
		}
		consumers := a.uses[p]
		if len(consumers) != 1 || consumers[0] != cons {
			return nil
		}
	}
	return producers
}

// hasSingleOutput is the eligibility half of §4.4's rule: "A producer has
// one output iff it is a ParameterProducer, or DUP, or DUP2 whose source
// slot is a size-2 value, or an instruction whose stack-effect shows exactly
// one produced word." Exception/UninitializedLocal producers are always
// multi-consumer (conservative).
func (a *Analyzer) hasSingleOutput(p Producer) bool {
	if p.IsMultiConsumer() {
		return false
	}
	if p.Kind == ProducerParameter {
		return true
	}
	ins := p.Insn
	if ins == nil {
		return false
	}
	if bytecode.IsExotic(ins.Kind) {
		return false // exotic duplicating opcodes are excluded upstream (§4.4)
	}
	if ins.Kind == bytecode.DUP {
		return true
	}
	if ins.Kind == bytecode.DUP2 {
		return a.dup2SourceIsSize2(ins)
	}
	_, pushed := bytecode.StackEffectOf(ins)
	return pushed == 1
}

func (a *Analyzer) dup2SourceIsSize2(dup2 *bytecode.Instruction) bool {
	f := a.before[dup2]
	if f == nil || f.GetStackSize() == 0 {
		return false
	}
	return f.PeekStack(0).Size == 2
}
