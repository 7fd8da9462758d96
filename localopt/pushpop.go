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

// ppWork is one dequeued (producer, width) pair from §4.4's "Queue processing".
type ppWork struct {
	prod *bytecode.Instruction
	size int
}

// ppState holds the scratch work-sets for one EliminatePushPop run. Removals
// and pop insertions are gathered during the scan/queue phase and applied in
// the commit phase; the Scala and Java unbox rewrites are the exception, as
// dispatchInvoke splices them into the method as soon as it reaches them.
type ppState struct {
	m       *bytecode.Method
	a       *analysis.Analyzer
	cg      external.CallGraph
	cfg     *external.Config
	oracles *Oracles

	queue []ppWork

	toRemove map[*bytecode.Instruction]bool

	afterOrder  []*bytecode.Instruction
	insertAfter map[*bytecode.Instruction][]*bytecode.Instruction

	beforeOrder  []*bytecode.Instruction
	insertBefore map[*bytecode.Instruction][]*bytecode.Instruction

	castAdded      bool
	nullCheckAdded bool
}

// EliminatePushPop is pass (C) (§4.4).
func EliminatePushPop(m *bytecode.Method, cg external.CallGraph, cfg *external.Config) PushPopResult {
	var result PushPopResult
	if cfg == nil {
		cfg = external.DefaultConfig()
	}
	if !analysis.SizeOKForAliasing(m, cfg.MaxAliasingInstructions, cfg.MaxAliasingLocals) {
		return result
	}
	a, ok := analysis.NewLazy(m, paramWidthOf(m)).Get()
	if !ok {
		return result
	}

	s := &ppState{
		m: m, a: a, cg: cg, cfg: cfg, oracles: DefaultOracles(),
		toRemove:     map[*bytecode.Instruction]bool{},
		insertAfter:  map[*bytecode.Instruction][]*bytecode.Instruction{},
		insertBefore: map[*bytecode.Instruction][]*bytecode.Instruction{},
	}

	// Initial scan (§4.4): for each explicit pop, attempt an initial elimination.
	for ins := m.First(); ins != nil; ins = ins.Next() {
		if ins.Kind != bytecode.POP && ins.Kind != bytecode.POP2 {
			continue
		}
		size := 1
		if ins.Kind == bytecode.POP2 {
			size = 2
		}
		producers := a.ProducersIfSingleConsumer(ins, 0)
		if len(producers) == 0 {
			continue
		}
		s.scheduleRemove(ins)
		for _, p := range producers {
			if p.Insn != nil {
				s.enqueue(p.Insn, size)
			}
		}
	}

	s.drainQueue()
	constructorsRemoved := s.eliminatePureConstructors()

	result.PushPopChanged = s.commit()
	result.CastAdded = s.castAdded
	result.NullCheckAdded = s.nullCheckAdded
	if constructorsRemoved {
		result.PushPopChanged = true
	}
	if result.Changed() {
		xlog.Diagnosticf("pushpop", "pass complete",
			"pushPopChanged", result.PushPopChanged,
			"castAdded", result.CastAdded, "nullCheckAdded", result.NullCheckAdded)
	}
	return result
}

func (s *ppState) scheduleRemove(ins *bytecode.Instruction) { s.toRemove[ins] = true }

func (s *ppState) enqueue(prod *bytecode.Instruction, size int) {
	s.queue = append(s.queue, ppWork{prod: prod, size: size})
}

func (s *ppState) addAfter(at, ins *bytecode.Instruction) {
	if len(s.insertAfter[at]) == 0 {
		s.afterOrder = append(s.afterOrder, at)
	}
	s.insertAfter[at] = append(s.insertAfter[at], ins)
}

func (s *ppState) addBefore(at, ins *bytecode.Instruction) {
	if len(s.insertBefore[at]) == 0 {
		s.beforeOrder = append(s.beforeOrder, at)
	}
	s.insertBefore[at] = append(s.insertBefore[at], ins)
}

// inputSize returns the word width (1 or 2) of prod's input at offset values
// from the top of the frame immediately before prod.
func (s *ppState) inputSize(prod *bytecode.Instruction, offset int) int {
	f := s.a.FrameAt(prod)
	if f == nil {
		return 1
	}
	return f.PeekStack(offset).Size
}

// handleInputs is §4.4's "Recursing on inputs": for each of prod's n input
// slots, invoke producersIfSingleConsumer; enqueue on success, else schedule
// a preserving pop of the right width before prod.
func (s *ppState) handleInputs(prod *bytecode.Instruction, n int) {
	for offset := 0; offset < n; offset++ {
		producers := s.a.ProducersIfSingleConsumer(prod, offset)
		if len(producers) > 0 {
			for _, p := range producers {
				if p.Insn != nil {
					s.enqueue(p.Insn, s.inputSize(prod, offset))
				}
			}
			continue
		}
		s.addBefore(prod, bytecode.GetPop(s.inputSize(prod, offset)))
	}
}

func (s *ppState) drainQueue() {
	for len(s.queue) > 0 {
		w := s.queue[0]
		s.queue = s.queue[1:]
		s.dispatch(w.prod, w.size)
	}
}

// dispatch is §4.4's "Queue processing" table.
func (s *ppState) dispatch(prod *bytecode.Instruction, size int) {
	switch {
	case prod.VariantKind() == bytecode.KindConstPush:
		s.dispatchConstPush(prod, size)

	case prod.VariantKind() == bytecode.KindVar && bytecode.IsLoad(prod):
		s.scheduleRemove(prod)

	case bytecode.IsDup(prod.Kind):
		if s.toRemove[prod] {
			s.handleInputs(prod, 1)
		} else {
			s.scheduleRemove(prod)
		}

	case bytecode.IsExotic(prod.Kind):
		panic(errors.AssertionFailedf("push/pop eliminator: exotic stack-shuffle %s reached the queue for %s", prod, s.m.Name))

	case bytecode.IsDivOrRem(prod.Kind):
		s.addAfter(prod, bytecode.GetPop(size))

	case isPureArithmetic(prod.Kind):
		s.scheduleRemove(prod)
		s.handleInputs(prod, arityOf(prod.Kind))

	case prod.Kind == bytecode.GETFIELD || prod.Kind == bytecode.GETSTATIC:
		s.dispatchFieldRead(prod, size)

	case prod.VariantKind() == bytecode.KindMethodCall:
		s.dispatchInvoke(prod, size)

	case prod.VariantKind() == bytecode.KindInvokeDynamic:
		s.dispatchInvokeDynamic(prod, size)

	case prod.Kind == bytecode.NEW:
		if s.oracles.IsNewForSideEffectFreeConstructor(prod) {
			s.scheduleRemove(prod)
		} else {
			s.addAfter(prod, bytecode.GetPop(size))
		}

	case prod.VariantKind() == bytecode.KindMultiANewArray:
		s.scheduleRemove(prod)
		s.handleInputs(prod, prod.Dims)

	default:
		s.addAfter(prod, bytecode.GetPop(size))
	}
}

func (s *ppState) dispatchConstPush(prod *bytecode.Instruction, size int) {
	switch prod.ConstKind {
	case bytecode.ConstOther:
		// class/type/MethodType/MethodHandle literals (§9's Open Question:
		// "this specification follows the source's conservative union").
		if prod.Kind == bytecode.ACONST_NULL || s.cfg.OptAllowSkipClassLoading {
			s.scheduleRemove(prod)
			return
		}
		s.addAfter(prod, bytecode.GetPop(size))
	default:
		s.scheduleRemove(prod)
	}
}

func (s *ppState) dispatchFieldRead(prod *bytecode.Instruction, size int) {
	allowModuleSkip := prod.Kind == bytecode.GETSTATIC && s.oracles.IsModuleLoad(prod) && s.cfg.ModulesAllowSkipInitialization
	if s.oracles.IsBoxedUnit(prod) || allowModuleSkip {
		s.scheduleRemove(prod)
		if prod.Kind == bytecode.GETFIELD {
			s.handleInputs(prod, 1)
		}
		return
	}
	s.addAfter(prod, bytecode.GetPop(size))
}

func (s *ppState) dispatchInvoke(prod *bytecode.Instruction, size int) {
	argCount := descriptorArgCount(prod.Descriptor)

	if s.oracles.IsSideEffectFreeCall(prod) {
		s.scheduleRemove(prod)
		if s.cg != nil {
			if err := s.cg.RemoveCallsite(prod, "", s.m); err != nil {
				xlog.Warnf("removing callsite during push/pop elimination", "err", err)
			}
		}
		n := argCount
		if !prod.IsStatic {
			n++
		}
		s.handleInputs(prod, n)
		return
	}

	if castTo, ok := s.oracles.IsScalaUnbox(prod); ok {
		cast := bytecode.NewType(bytecode.CHECKCAST, castTo)
		s.m.Replace(prod, cast)
		s.addAfter(cast, bytecode.GetPop(1))
		s.castAdded = true
		return
	}

	if s.oracles.IsJavaUnbox(prod) {
		okLabel := bytecode.NewLabel()
		check := []*bytecode.Instruction{
			bytecode.NewJump(bytecode.IFNONNULL, okLabel.Self),
			bytecode.NewNull(),
			bytecode.NewPlain(bytecode.ATHROW),
			okLabel,
		}
		s.m.Replace(prod, check...)
		if s.m.MaxStack < 2 {
			s.m.MaxStack = 2
		}
		s.nullCheckAdded = true
		return
	}

	s.addAfter(prod, bytecode.GetPop(size))
}

func (s *ppState) eliminatePureConstructors() (changedAny bool) {
	for {
		progressed := false
		for ins := s.m.First(); ins != nil; ins = ins.Next() {
			if s.toRemove[ins] {
				continue
			}
			if ins.VariantKind() != bytecode.KindMethodCall || ins.Kind != bytecode.INVOKESPECIAL || ins.Name != "<init>" {
				continue
			}
			if !s.oracles.IsSideEffectFreeConstructorCall(ins) {
				continue
			}
			numArgs := descriptorArgCount(ins.Descriptor)
			receiverProducers := s.a.ProducersIfSingleConsumer(ins, numArgs)
			if len(receiverProducers) != 1 || receiverProducers[0].Insn == nil {
				continue
			}
			receiver := receiverProducers[0].Insn
			switch {
			case receiver.Kind == bytecode.NEW:
				s.scheduleRemove(ins)
				s.handleInputs(ins, numArgs+1)
				progressed, changedAny = true, true
			case bytecode.IsDup(receiver.Kind) && s.toRemove[receiver]:
				s.scheduleRemove(ins)
				s.handleInputs(ins, numArgs)
				dupInputs := s.a.ProducersIfSingleConsumer(receiver, 0)
				for _, p := range dupInputs {
					if p.Insn != nil {
						s.enqueue(p.Insn, 1)
					}
				}
				progressed, changedAny = true, true
			}
		}
		if !progressed {
			return changedAny
		}
		s.drainQueue()
	}
}

func (s *ppState) dispatchInvokeDynamic(prod *bytecode.Instruction, size int) {
	if IsLambdaMetaFactoryCall(prod) {
		s.scheduleRemove(prod)
		if s.cg != nil {
			if err := s.cg.RemoveClosureInstantiation(prod, "", s.m); err != nil {
				xlog.Warnf("removing closure instantiation during push/pop elimination", "err", err)
			}
		}
		s.handleInputs(prod, descriptorArgCount(prod.Descriptor))
		return
	}
	s.addAfter(prod, bytecode.GetPop(size))
}

// commit applies §4.4's commit phase: after-insertions (with the
// insert/remove cancellation optimization from §9), then before-insertions,
// then removals.
func (s *ppState) commit() (changed bool) {
	nextExecutable := func(ins *bytecode.Instruction) *bytecode.Instruction {
		for cur := ins.Next(); cur != nil; cur = cur.Next() {
			if bytecode.IsExecutable(cur) {
				return cur
			}
		}
		return nil
	}

	for _, at := range s.afterOrder {
		for _, ins := range s.insertAfter[at] {
			if ins.VariantKind() == bytecode.KindPlain && (ins.Kind == bytecode.POP || ins.Kind == bytecode.POP2) {
				if next := nextExecutable(at); next != nil && next.Kind == ins.Kind && s.toRemove[next] {
					delete(s.toRemove, next) // §9: cancel both
					continue
				}
			}
			s.m.InsertAfter(at, ins)
			changed = true
		}
	}
	for _, at := range s.beforeOrder {
		for _, ins := range s.insertBefore[at] {
			s.m.InsertBefore(at, ins)
			changed = true
		}
	}
	for ins := range s.toRemove {
		s.m.Remove(ins)
		changed = true
	}
	return changed
}

// isPureArithmetic matches §4.4's "Other pure arithmetic, comparisons,
// conversions, negations" row (IDIV/LDIV/IREM/LREM are excluded — they have
// their own row above this one in the dispatch switch).
func isPureArithmetic(op bytecode.Opcode) bool {
	switch op {
	case bytecode.IADD, bytecode.ISUB, bytecode.IMUL, bytecode.IAND, bytecode.IOR, bytecode.IXOR,
		bytecode.ISHL, bytecode.ISHR, bytecode.IUSHR,
		bytecode.LADD, bytecode.LSUB, bytecode.LMUL, bytecode.LAND, bytecode.LOR, bytecode.LXOR,
		bytecode.LSHL, bytecode.LSHR, bytecode.LUSHR,
		bytecode.FADD, bytecode.FSUB, bytecode.FMUL, bytecode.FDIV, bytecode.FREM,
		bytecode.DADD, bytecode.DSUB, bytecode.DMUL, bytecode.DDIV, bytecode.DREM,
		bytecode.LCMP, bytecode.FCMPL, bytecode.FCMPG, bytecode.DCMPL, bytecode.DCMPG:
		return true
	case bytecode.INEG, bytecode.LNEG, bytecode.FNEG, bytecode.DNEG,
		bytecode.I2L, bytecode.I2F, bytecode.I2D, bytecode.L2I, bytecode.L2F, bytecode.L2D,
		bytecode.F2I, bytecode.F2L, bytecode.F2D, bytecode.D2I, bytecode.D2F, bytecode.D2L,
		bytecode.I2B, bytecode.I2C, bytecode.I2S:
		return true
	}
	return false
}

// arityOf returns the value-count arity (2 for binary, 1 for unary) of a
// pure-arithmetic opcode, for handleInputs.
func arityOf(op bytecode.Opcode) int {
	switch op {
	case bytecode.INEG, bytecode.LNEG, bytecode.FNEG, bytecode.DNEG,
		bytecode.I2L, bytecode.I2F, bytecode.I2D, bytecode.L2I, bytecode.L2F, bytecode.L2D,
		bytecode.F2I, bytecode.F2L, bytecode.F2D, bytecode.D2I, bytecode.D2F, bytecode.D2L,
		bytecode.I2B, bytecode.I2C, bytecode.I2S:
		return 1
	}
	return 2
}
