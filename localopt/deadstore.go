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

package localopt

import (
	"github.com/cockroachdb/errors"

	"github.com/ArthurS1/bytecode-localopt/analysis"
	"github.com/ArthurS1/bytecode-localopt/bytecode"
	"github.com/ArthurS1/bytecode-localopt/external"
	"github.com/ArthurS1/bytecode-localopt/internal/xlog"
)

// poisonCandidate is a reference-store whose value has no consumer but whose
// source cannot be proven non-leakable (§4.3): it is either null-poisoned or,
// if its slot later turns out never live, downgraded to a plain pop.
type poisonCandidate struct {
	store       *bytecode.Instruction
	alreadyNull bool
}

// classTagWork holds a matched intrinsic shape scheduled for rewriting.
type classTagWork struct {
	match classTagNewArray
}

// EliminateStaleStores is pass (B) (§4.3). owner is the declaring class's
// internal name; it is recorded on each to-inline Callsite and named in
// wrapped errors. The to-inline calls go to the inliner without a lookup
// through cg.Callsites.
func EliminateStaleStores(m *bytecode.Method, cg external.CallGraph, inl external.Inliner, cfg *external.Config, owner string) (StaleStoreResult, error) {
	var result StaleStoreResult
	if cfg == nil {
		cfg = external.DefaultConfig()
	}
	if !analysis.SizeOKForSourceValue(m, cfg.MaxSourceValueInstructions) {
		return result, nil // analyzer declined: "no change", not an error (§7)
	}
	paramWidth := paramWidthOf(m)
	a, ok := analysis.NewLazy(m, paramWidth).Get()
	if !ok {
		return result, nil
	}

	trailing := trailingInstructions(m)
	liveRefSlots := map[int]bool{}
	var toPop []*bytecode.Instruction
	var toRemove []*bytecode.Instruction
	poisonBySlot := map[int][]*poisonCandidate{}
	var rewrites []classTagWork
	seenRewrite := map[*bytecode.Instruction]bool{}

	for ins := m.First(); ins != nil; ins = ins.Next() {
		switch {
		case bytecode.IsReferenceLoad(ins):
			liveRefSlots[ins.Slot] = true

		case ins.VariantKind() == bytecode.KindIncrement:
			if len(a.ConsumersOf(analysis.NormalProducer(ins))) == 0 {
				toRemove = append(toRemove, ins)
			}

		case bytecode.IsStore(ins):
			if bytecode.IsReferenceStore(ins) {
				if ins.Slot < paramWidth || !allNullInitial(a, ins) {
					liveRefSlots[ins.Slot] = true
				}
			}
			if !valueHasNoConsumer(a, ins) {
				continue
			}
			if !bytecode.IsReferenceStore(ins) {
				toPop = append(toPop, ins)
				continue
			}
			if trailing[ins] || provablyNonLeakable(a, ins) {
				toPop = append(toPop, ins)
				continue
			}
			poisonBySlot[ins.Slot] = append(poisonBySlot[ins.Slot], &poisonCandidate{
				store: ins, alreadyNull: isImmediateNullConst(ins),
			})

		case bytecode.IsMethodCall(ins) && !seenRewrite[ins]:
			if match, ok := matchClassTagNewArray(a, ins); ok {
				rewrites = append(rewrites, classTagWork{match: match})
				seenRewrite[ins] = true
			}
		}
	}

	// Live-ref-slot refinement (§4.3): a slot whose only stores are
	// to-be-null-poisoned but that is never live may skip null-poisoning.
	for slot, candidates := range poisonBySlot {
		if !liveRefSlots[slot] {
			toPop = append(toPop, instructionsOf(candidates)...)
			delete(poisonBySlot, slot)
		}
	}

	for _, ins := range toRemove {
		m.Remove(ins)
		result.StaleStoreRemoved = true
	}
	for _, ins := range toPop {
		size := 1
		if ins.IsSize2LoadOrStore() {
			size = 2
		}
		m.Replace(ins, bytecode.GetPop(size))
		result.StaleStoreRemoved = true
	}
	for _, candidates := range poisonBySlot {
		for _, c := range candidates {
			if c.alreadyNull {
				continue
			}
			size := 1
			if c.store.IsSize2LoadOrStore() {
				size = 2
			}
			m.InsertBefore(c.store, bytecode.GetPop(size))
			m.InsertBefore(c.store, bytecode.NewNull())
			result.StaleStoreRemoved = true
		}
	}

	var toInline []external.Callsite
	for _, w := range rewrites {
		consumer := findRuntimeArrayConsumer(w.match.newArray)
		rewriteClassTagNewArray(m, w.match)
		result.IntrinsicRewritten = true
		if consumer != nil {
			toInline = append(toInline, external.Callsite{Owner: owner, Call: consumer})
		}
	}

	if len(toInline) > 0 && cg != nil && inl != nil {
		ordered := cg.CallsiteOrdering(toInline)
		for i, site := range ordered {
			final := i == len(ordered)-1
			if err := inl.InlineCallsite(site, "", final); err != nil {
				return result, errors.Wrapf(err, "inlining callsite in %s", owner)
			}
			if final {
				if err := cg.RemoveCallsite(site.Call, site.Owner, m); err != nil {
					return result, errors.Wrap(err, "updating call graph after final inline")
				}
			}
			result.CallInlined = true
		}
	}

	if result.Changed() {
		xlog.Diagnosticf("deadstore", "pass complete",
			"staleStoreRemoved", result.StaleStoreRemoved,
			"intrinsicRewritten", result.IntrinsicRewritten,
			"callInlined", result.CallInlined)
	}
	return result, nil
}

func instructionsOf(cs []*poisonCandidate) []*bytecode.Instruction {
	out := make([]*bytecode.Instruction, len(cs))
	for i, c := range cs {
		out[i] = c.store
	}
	return out
}

// valueHasNoConsumer reports whether the value about to be stored by ins has
// zero recorded consumers anywhere in the method (§4.3's staleness test).
func valueHasNoConsumer(a *analysis.Analyzer, ins *bytecode.Instruction) bool {
	producers := a.ProducersForStackAt(ins, 0)
	if len(producers) == 0 {
		return false
	}
	for _, p := range producers {
		if len(a.ConsumersOf(p)) > 0 {
			return false
		}
	}
	return true
}

// provablyNonLeakable implements §4.3's GC-safety carve-out for reference
// stores: the single initial producer is the receiver parameter of a
// non-static method, or the uninitialized-local sentinel.
func provablyNonLeakable(a *analysis.Analyzer, store *bytecode.Instruction) bool {
	producers := a.ProducersForStackAt(store, 0)
	if len(producers) != 1 {
		return false
	}
	p := producers[0]
	if p.Kind == analysis.ProducerUninitializedLocal {
		return true
	}
	return p.Kind == analysis.ProducerParameter && p.Param == 0 && !a.Method().IsStatic
}

// allNullInitial reports whether every initial producer of the value stored
// by ins is the null constant (used by the live-ref-slot rule's negation:
// "at least one initial producer is not the null constant").
func allNullInitial(a *analysis.Analyzer, ins *bytecode.Instruction) bool {
	for _, p := range a.ProducersForStackAt(ins, 0) {
		if p.Kind != analysis.ProducerNormal || p.Insn == nil || p.Insn.Kind != bytecode.ACONST_NULL {
			return false
		}
	}
	return true
}

// isImmediateNullConst reports whether ins is immediately preceded by an
// ACONST_NULL push, the shape null-poisoning can skip re-inserting (§4.3:
// "Record whether the source was already a null constant").
func isImmediateNullConst(ins *bytecode.Instruction) bool {
	p := ins.Prev()
	return p != nil && p.VariantKind() == bytecode.KindConstPush && p.Kind == bytecode.ACONST_NULL
}

// trailingInstructions returns the set of instructions that lie in some
// return's maximal trailing run (§4.3's trailing-store exemption).
func trailingInstructions(m *bytecode.Method) map[*bytecode.Instruction]bool {
	out := map[*bytecode.Instruction]bool{}
	for ins := m.First(); ins != nil; ins = ins.Next() {
		if !bytecode.IsReturn(ins) {
			continue
		}
		for cur := ins.Prev(); cur != nil && bytecode.IsTrailing(cur); cur = cur.Prev() {
			out[cur] = true
		}
	}
	return out
}

// rewriteClassTagNewArray applies scenario 5's rewrite: the newArray call
// becomes a direct ANEWARRAY, the class-tag receiver subtree (LDC + apply)
// is kept as "producer + pop" since it may have side effects, and the
// surviving array-allocation instruction takes the newArray call's place.
func rewriteClassTagNewArray(m *bytecode.Method, match classTagNewArray) {
	alloc := bytecode.NewType(bytecode.ANEWARRAY, match.className)
	m.Replace(match.newArray, alloc)
	m.InsertAfter(match.ctApply, bytecode.GetPop(1))
}

// findRuntimeArrayConsumer looks forward from a matched newArray call (before
// its rewrite unlinks it) for
// the first runtime array-apply/update call downstream (§4.3: "Any
// downstream ... calls consuming this array are added to a to-inline set").
func findRuntimeArrayConsumer(newArray *bytecode.Instruction) *bytecode.Instruction {
	oracles := DefaultOracles()
	for ins := newArray.Next(); ins != nil; ins = ins.Next() {
		if oracles.IsRuntimeArrayLoadOrUpdate(ins) {
			return ins
		}
	}
	return nil
}
