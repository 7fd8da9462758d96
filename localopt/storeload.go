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
	"github.com/ArthurS1/bytecode-localopt/bytecode"
	"github.com/ArthurS1/bytecode-localopt/internal/xlog"
)

// dependency is one precondition a removePair's safety rests on: either a
// label that must stay dead, or another removePair that must itself survive
// removal (§4.5, §9's "dependencies").
type dependency struct {
	label *bytecode.Label
	pair  *removePair
}

// removePair is a candidate store(+null-push)/load pair found by the single
// forward scan. It is dropped (instructions kept) if vetoed during the
// fixpoint; otherwise both instructions are removed at commit.
type removePair struct {
	first, second *bytecode.Instruction
	slot          int
	deps          []dependency
	vetoed        bool
}

// pairElem is one entry on the pair-stack (§4.5): either an ACONST_NULL push
// awaiting a fusing store, or a store awaiting its closing load.
type pairElem struct {
	isNull bool
	insn   *bytecode.Instruction
	slot   int
	deps   []dependency
}

type slState struct {
	m          *bytecode.Method
	stack      []*pairElem
	pairs      []*removePair
	liveVars   map[int]bool
	liveLabels map[*bytecode.Label]bool
}

// EliminateStoreLoadPairs is pass (D) (§4.5).
func EliminateStoreLoadPairs(m *bytecode.Method) (changed bool) {
	s := &slState{m: m, liveVars: map[int]bool{}, liveLabels: map[*bytecode.Label]bool{}}

	for ins := m.First(); ins != nil; ins = ins.Next() {
		switch {
		case ins.VariantKind() == bytecode.KindConstPush && ins.Kind == bytecode.ACONST_NULL:
			s.stack = append(s.stack, &pairElem{isNull: true, insn: ins})

		case bytecode.IsStore(ins):
			s.stack = append(s.stack, &pairElem{insn: ins, slot: ins.Slot})

		case ins.VariantKind() == bytecode.KindLabel:
			if len(s.stack) > 0 {
				top := s.stack[len(s.stack)-1]
				top.deps = append(top.deps, dependency{label: ins.Self})
			}

		default:
			s.tryToPair(ins)
			for _, l := range targetsOf(ins) {
				s.liveLabels[l] = true
			}
		}
	}
	s.markLiveAndClear() // anything still open at method end is conservatively live

	changed = s.commit()
	if changed {
		xlog.Diagnosticf("storeload", "pass complete", "changed", changed)
	}
	return changed
}

// tryToPair implements §4.5's "Pairing": close the top-of-stack store if ins
// is a matching load; otherwise try the null-store fusion (retrying against
// the newly exposed top on success); otherwise the open candidates on the
// stack are not safely pairable and are marked live.
func (s *slState) tryToPair(ins *bytecode.Instruction) {
	for len(s.stack) > 0 {
		top := s.stack[len(s.stack)-1]
		if !top.isNull && bytecode.IsLoad(ins) && ins.Slot == top.slot {
			s.stack = s.stack[:len(s.stack)-1]
			rp := &removePair{first: top.insn, second: ins, slot: top.slot, deps: top.deps}
			s.pairs = append(s.pairs, rp)
			s.propagateToNewTop(rp)
			return
		}

		if len(s.stack) >= 2 {
			lower := s.stack[len(s.stack)-2]
			upper := s.stack[len(s.stack)-1]
			if lower.isNull && !upper.isNull {
				s.stack = s.stack[:len(s.stack)-2]
				deps := append(append([]dependency{}, lower.deps...), upper.deps...)
				rp := &removePair{first: lower.insn, second: upper.insn, slot: upper.slot, deps: deps}
				s.pairs = append(s.pairs, rp)
				s.propagateToNewTop(rp)
				continue // retry ins against the element now exposed
			}
		}
		break
	}
	s.markLiveAndClear()
	s.markOwnLiveness(ins)
}

func (s *slState) propagateToNewTop(rp *removePair) {
	if len(s.stack) == 0 {
		return
	}
	s.stack[len(s.stack)-1].deps = append(s.stack[len(s.stack)-1].deps, dependency{pair: rp})
}

// markLiveAndClear marks every open stack element's slot live (its pending
// dependencies are now moot — the larger pair they were waiting on never
// formed) and empties the stack.
func (s *slState) markLiveAndClear() {
	for _, e := range s.stack {
		if !e.isNull {
			s.liveVars[e.slot] = true
		}
	}
	s.stack = nil
}

// markOwnLiveness registers the liveness of the instruction that failed to
// close or extend any candidate (§4.5: "Registering liveness of a store, a
// load, or an increment marks its slot live").
func (s *slState) markOwnLiveness(ins *bytecode.Instruction) {
	switch {
	case bytecode.IsLoad(ins):
		s.liveVars[ins.Slot] = true
	case ins.VariantKind() == bytecode.KindIncrement:
		s.liveVars[ins.Slot] = true
	}
}

func targetsOf(ins *bytecode.Instruction) []*bytecode.Label {
	switch ins.VariantKind() {
	case bytecode.KindJump:
		return []*bytecode.Label{ins.Target}
	case bytecode.KindTableSwitch, bytecode.KindLookupSwitch:
		out := append([]*bytecode.Label{}, ins.Targets...)
		if ins.Default != nil {
			out = append(out, ins.Default)
		}
		return out
	}
	return nil
}

// commit runs the elision fixpoint (§4.5) then removes the surviving pairs'
// two instructions each.
func (s *slState) commit() bool {
	for {
		progressed := false
		for _, rp := range s.pairs {
			if rp.vetoed {
				continue
			}
			if s.liveVars[rp.slot] || s.hasLiveDependency(rp) {
				rp.vetoed = true
				s.liveVars[rp.slot] = true
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}

	changed := false
	for _, rp := range s.pairs {
		if rp.vetoed {
			continue
		}
		s.m.Remove(rp.first)
		s.m.Remove(rp.second)
		changed = true
	}
	return changed
}

func (s *slState) hasLiveDependency(rp *removePair) bool {
	for _, d := range rp.deps {
		if d.label != nil && s.liveLabels[d.label] {
			return true
		}
		if d.pair != nil && d.pair.vetoed {
			return true
		}
	}
	return false
}
