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
	"github.com/ArthurS1/bytecode-localopt/bytecode"
)

type block struct {
	start, end *bytecode.Instruction // [start, end), end may be nil for the last block
	succs      []*block
	preds      []*block
	entry      *Frame
	exit       *Frame
	done       bool
	onStack    bool // DFS recursion-stack marker, used to detect back edges
	isHandler  bool
}

// New builds an Analyzer over m, or returns (nil, false) if the method's
// control flow is cyclic (a loop back edge was found). Loop-free methods
// exhaust to a well-defined join order; cyclic methods are outside this
// analyzer's scope (see the Analyzer doc comment) and the caller should
// treat that the same as "too large" — a no-op degrade, not an error.
func New(m *bytecode.Method, paramWidth int) (*Analyzer, bool) {
	a := &Analyzer{
		method: m, before: map[*bytecode.Instruction]*Frame{},
		classProducers: map[classID][]Producer{}, internTable: map[string]classID{},
		uses: map[Producer][]*bytecode.Instruction{}, paramWidth: paramWidth,
	}
	if m.First() == nil {
		return a, true
	}

	labelDest := map[*bytecode.Label]*bytecode.Instruction{}
	for ins := m.First(); ins != nil; ins = ins.Next() {
		if bytecode.IsLabel(ins) {
			labelDest[ins.Self] = ins
		}
	}

	leaders := map[*bytecode.Instruction]*block{}
	markLeader := func(ins *bytecode.Instruction) {
		if ins == nil {
			return
		}
		if _, ok := leaders[ins]; !ok {
			leaders[ins] = &block{start: ins}
		}
	}
	markLeader(m.First())
	for ins := m.First(); ins != nil; ins = ins.Next() {
		switch {
		case bytecode.IsJump(ins):
			markLeader(labelDest[ins.Target])
			markLeader(ins.Next())
		case bytecode.IsSwitch(ins):
			markLeader(labelDest[ins.Default])
			for _, t := range ins.Targets {
				markLeader(labelDest[t])
			}
			markLeader(ins.Next())
		case bytecode.IsReturn(ins) || ins.Kind == bytecode.ATHROW:
			markLeader(ins.Next())
		}
	}
	for _, tcb := range m.TryCatchBlocks {
		markLeader(tcb.Start)
		markLeader(tcb.Handler)
	}

	blocksInOrder := make([]*block, 0, len(leaders))
	for ins := m.First(); ins != nil; ins = ins.Next() {
		if b, ok := leaders[ins]; ok {
			blocksInOrder = append(blocksInOrder, b)
		}
	}
	blockOf := func(ins *bytecode.Instruction) *block {
		for cur := ins; cur != nil; cur = cur.Prev() {
			if b, ok := leaders[cur]; ok {
				return b
			}
		}
		return nil
	}

	for idx, b := range blocksInOrder {
		var endBoundary *bytecode.Instruction
		if idx+1 < len(blocksInOrder) {
			endBoundary = blocksInOrder[idx+1].start
		}
		last := b.start
		for cur := b.start; cur != endBoundary && cur != nil; cur = cur.Next() {
			last = cur
		}
		b.end = endBoundary
		switch {
		case bytecode.IsJump(last):
			addEdge(b, leaders[labelDest[last.Target]])
			if last.Kind != bytecode.GOTO && last.Kind != bytecode.JSR {
				addEdge(b, blockOf(last.Next()))
			}
		case bytecode.IsSwitch(last):
			addEdge(b, leaders[labelDest[last.Default]])
			for _, t := range last.Targets {
				addEdge(b, leaders[labelDest[t]])
			}
		case bytecode.IsReturn(last) || last.Kind == bytecode.ATHROW:
			// no successor
		default:
			addEdge(b, blockOf(last.Next()))
		}
	}

	for _, tcb := range m.TryCatchBlocks {
		handler := leaders[tcb.Handler]
		if handler == nil {
			continue
		}
		handler.isHandler = true
		for _, b := range blocksInOrder {
			if overlapsRegion(b, tcb.Start, tcb.End) {
				addEdge(b, handler)
			}
		}
	}

	entryBlock := leaders[m.First()]
	if hasCycle(entryBlock) {
		return nil, false
	}

	locals := make([]classID, m.MaxLocals)
	for slot := 0; slot < m.MaxLocals; slot++ {
		if slot < paramWidth {
			locals[slot] = a.intern([]Producer{ParameterProducer(slot)})
		} else {
			locals[slot] = a.intern([]Producer{UninitializedLocalProducer()})
		}
	}
	entryBlock.entry = &Frame{locals: locals, stack: nil}

	for _, b := range topoOrder(entryBlock) {
		a.processBlock(b)
	}
	return a, true
}

func addEdge(from, to *block) {
	if from == nil || to == nil {
		return
	}
	from.succs = append(from.succs, to)
	to.preds = append(to.preds, from)
}

// overlapsRegion reports whether block b contains any instruction in the
// half-open range [start, end); it is used, at block granularity, to find
// every block that can reach a try region's handler (§3: "an ordered list
// of try/catch regions (needed only by the analyzer)").
func overlapsRegion(b *block, start, end *bytecode.Instruction) bool {
	for cur := b.start; cur != b.end && cur != nil; cur = cur.Next() {
		for r := start; r != end && r != nil; r = r.Next() {
			if r == cur {
				return true
			}
		}
	}
	return false
}

// hasCycle runs a DFS over the block graph looking for a back edge (an edge
// to a node currently on the recursion stack). Analyzer construction
// declines for any method whose CFG contains one (see the Analyzer doc
// comment).
func hasCycle(entry *block) bool {
	visited := map[*block]bool{}
	var dfs func(b *block) bool
	dfs = func(b *block) bool {
		visited[b] = true
		b.onStack = true
		for _, s := range b.succs {
			if s.onStack {
				return true
			}
			if !visited[s] && dfs(s) {
				return true
			}
		}
		b.onStack = false
		return false
	}
	return dfs(entry)
}

// topoOrder returns blocks in reverse-postorder from entry, which — for the
// acyclic graphs this analyzer accepts — is a valid processing order where
// every predecessor of a block precedes it.
func topoOrder(entry *block) []*block {
	visited := map[*block]bool{}
	var post []*block
	var dfs func(b *block)
	dfs = func(b *block) {
		visited[b] = true
		for _, s := range b.succs {
			if !visited[s] {
				dfs(s)
			}
		}
		post = append(post, b)
	}
	dfs(entry)
	out := make([]*block, len(post))
	for i, b := range post {
		out[len(post)-1-i] = b
	}
	return out
}

func (a *Analyzer) processBlock(b *block) {
	if b.entry == nil {
		b.entry = a.joinPreds(b)
	}
	f := b.entry
	for ins := b.start; ins != b.end && ins != nil; ins = ins.Next() {
		a.before[ins] = f
		f = a.step(f, ins)
	}
	b.exit = f
	b.done = true
}

// joinPreds merges the exit states of every predecessor. A local/stack
// position keeps its class only if every predecessor agrees; otherwise it
// gets a fresh class whose producer set is the union of all predecessors'
// producer sets for that position — which, per §3, correctly marks it as
// "not the same producer tree" while still letting later stages (e.g.
// producer eligibility checks) see every value that might have flowed in.
//
// A handler block's entry is special-cased: its stack is always the
// singleton [ExceptionProducer] regardless of what any predecessor's exit
// stack looked like (§3: "ExceptionProducer ... the caught-exception value
// landed on the stack at a handler entry"), and any local slot the handler's
// protected region ever stores into is poisoned to the union of every
// predecessor's value for that slot (conservative: the exception may have
// been thrown after only some of the stores executed).
func (a *Analyzer) joinPreds(b *block) *Frame {
	if len(b.preds) == 0 {
		locals := make([]classID, a.method.MaxLocals)
		for i := range locals {
			locals[i] = a.intern([]Producer{UninitializedLocalProducer()})
		}
		return &Frame{locals: locals}
	}
	var exits []*Frame
	for _, p := range b.preds {
		if p.exit != nil {
			exits = append(exits, p.exit)
		}
	}
	if len(exits) == 0 {
		locals := make([]classID, a.method.MaxLocals)
		for i := range locals {
			locals[i] = a.intern([]Producer{UninitializedLocalProducer()})
		}
		return &Frame{locals: locals}
	}
	if b.isHandler {
		// an exception can leave a protected block before any of its
		// instructions, so every intermediate frame joins as well
		for _, p := range b.preds {
			for ins := p.start; ins != p.end && ins != nil; ins = ins.Next() {
				if f := a.before[ins]; f != nil {
					exits = append(exits, f)
				}
			}
		}
	}
	base := exits[0]
	locals := make([]classID, len(base.locals))
	for slot := range locals {
		same := true
		for _, e := range exits[1:] {
			if slot >= len(e.locals) || e.locals[slot] != base.locals[slot] {
				same = false
				break
			}
		}
		if same {
			locals[slot] = base.locals[slot]
		} else {
			var union []Producer
			for _, e := range exits {
				if slot < len(e.locals) {
					union = append(union, a.producersOf(e.locals[slot])...)
				}
			}
			locals[slot] = a.intern(union)
		}
	}

	if b.isHandler {
		excClass := a.intern([]Producer{ExceptionProducer()})
		return &Frame{locals: locals, stack: []StackEntry{{class: excClass, Size: 1}}}
	}

	stackLen := len(base.stack)
	for _, e := range exits[1:] {
		if len(e.stack) != stackLen {
			stackLen = 0
			break
		}
	}
	var stack []StackEntry
	if stackLen > 0 {
		stack = make([]StackEntry, stackLen)
		for i := range stack {
			same := true
			for _, e := range exits[1:] {
				if e.stack[i].class != base.stack[i].class {
					same = false
					break
				}
			}
			if same {
				stack[i] = base.stack[i]
			} else {
				var union []Producer
				for _, e := range exits {
					union = append(union, a.producersOf(e.stack[i].class)...)
				}
				stack[i] = StackEntry{class: a.intern(union), Size: base.stack[i].Size}
			}
		}
	}
	return &Frame{locals: locals, stack: stack}
}
