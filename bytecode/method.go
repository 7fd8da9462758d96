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

package bytecode

// TryCatchBlock is a structured exception-handler region: instructions in
// [Start, End) are protected by a handler that begins at Handler when an
// instance of Type (or any throwable, if Type == "") is thrown.
type TryCatchBlock struct {
	Start, End, Handler *Instruction
	Type                string
}

// Method is the doubly-linked instruction sequence plus the metadata the
// analyzer and passes need (§3). It is mutated in place by each pass.
type Method struct {
	Name       string
	Descriptor string
	IsStatic   bool

	MaxLocals int
	MaxStack  int

	TryCatchBlocks []*TryCatchBlock

	first, last *Instruction
	size        int
}

// NewMethod builds an empty method. Use Append/InsertBefore/InsertAfter to
// populate it.
func NewMethod(name, descriptor string, isStatic bool, maxLocals, maxStack int) *Method {
	return &Method{Name: name, Descriptor: descriptor, IsStatic: isStatic, MaxLocals: maxLocals, MaxStack: maxStack}
}

// First and Last expose the ends of the instruction list.
func (m *Method) First() *Instruction { return m.first }
func (m *Method) Last() *Instruction  { return m.last }

// Size returns the current instruction count, used for the size-gating
// predicates the analyzer exposes externally (§4.1, §6).
func (m *Method) Size() int { return m.size }

// Append adds ins at the end of the list.
func (m *Method) Append(ins *Instruction) {
	if m.last == nil {
		m.first, m.last = ins, ins
		ins.prev, ins.next = nil, nil
	} else {
		ins.prev = m.last
		ins.next = nil
		m.last.next = ins
		m.last = ins
	}
	m.size++
}

// InsertBefore splices newIns immediately before at. at must belong to m.
func (m *Method) InsertBefore(at, newIns *Instruction) {
	newIns.prev = at.prev
	newIns.next = at
	if at.prev != nil {
		at.prev.next = newIns
	} else {
		m.first = newIns
	}
	at.prev = newIns
	m.size++
}

// InsertAfter splices newIns immediately after at. at must belong to m.
func (m *Method) InsertAfter(at, newIns *Instruction) {
	newIns.next = at.next
	newIns.prev = at
	if at.next != nil {
		at.next.prev = newIns
	} else {
		m.last = newIns
	}
	at.next = newIns
	m.size++
}

// Remove unlinks ins from the list. It is the caller's responsibility to have
// already reflected the removal in any external call-graph or inliner state
// (§3 invariant: "A removed call MUST also be removed from the external
// call-graph registry").
func (m *Method) Remove(ins *Instruction) {
	if ins.prev != nil {
		ins.prev.next = ins.next
	} else {
		m.first = ins.next
	}
	if ins.next != nil {
		ins.next.prev = ins.prev
	} else {
		m.last = ins.prev
	}
	ins.prev, ins.next = nil, nil
	m.size--
}

// Replace removes old and splices in each of news in its place, preserving
// order. An empty news slice is equivalent to Remove. This matches §4.3's
// "Application order" rule: the original instruction may or may not appear
// in the replacement list.
func (m *Method) Replace(old *Instruction, news ...*Instruction) {
	kept := false
	after := old
	for _, n := range news {
		switch {
		case n == old:
			kept = true
		case kept:
			m.InsertAfter(after, n)
			after = n
		default:
			m.InsertBefore(old, n)
		}
	}
	if !kept {
		m.Remove(old)
	}
}

// NextExecutableOrLabel returns the next instruction that is either
// executable or a label, skipping nothing else (there is nothing else to
// skip in this data model — every node is executable or a label). This
// mirrors the external collaborator nextExecutableInstructionOrLabel (§6).
func NextExecutableOrLabel(ins *Instruction) *Instruction {
	return ins.Next()
}

// Instructions returns a snapshot slice of the instruction list, for tests
// and diagnostics. Passes themselves must never iterate and mutate at once
// (§9 "Iterator invalidation"); this helper exists for read-only use.
func (m *Method) Instructions() []*Instruction {
	out := make([]*Instruction, 0, m.size)
	for ins := m.first; ins != nil; ins = ins.next {
		out = append(out, ins)
	}
	return out
}

// Textify renders the whole method as a disassembly listing, used for the
// driver's optional before/after diagnostics (§7).
func (m *Method) Textify() string {
	s := m.Name + m.Descriptor + ":\n"
	for ins := m.first; ins != nil; ins = ins.next {
		s += "  " + ins.String() + "\n"
	}
	return s
}

// ParametersSize returns the number of local slots occupied by the method's
// parameters (plus the receiver for non-static methods), matching the
// external interface parametersSize(method) (§6). Callers pass the
// descriptor-derived slot width in; this module's fixtures build it directly
// since no class-file parser is in scope (§1).
func (m *Method) ParametersSize(width int) int {
	if m.IsStatic {
		return width
	}
	return width + 1
}
