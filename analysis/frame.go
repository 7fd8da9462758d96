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

// classID is an interned equivalence-class identifier. Two stack/local
// positions carry the same classID iff the analyzer proved they hold the
// same producer set along every path reaching that point.
type classID int

// StackEntry describes one value on the abstract stack, per §4.1's
// peekStack(offset): its producer-class plus whether it occupies a size-2
// (long/double) slot.
type StackEntry struct {
	class classID
	Size  int
}

// Frame is the abstract machine state immediately before a given
// instruction: which local slots and stack depths are mutual aliases, and
// the producer/consumer relation for every value present (§3).
type Frame struct {
	locals []classID
	stack  []StackEntry // index 0 = bottom
}

// GetStackSize returns the current stack depth in values (not words).
func (f *Frame) GetStackSize() int { return len(f.stack) }

// StackTop returns the index (0 = bottom) of the topmost stack slot, or -1
// if the stack is empty.
func (f *Frame) StackTop() int { return len(f.stack) - 1 }

// PeekStack returns the StackEntry at offset values (not words) from the top (0 = the
// very top element), per §4.1.
func (f *Frame) PeekStack(offset int) StackEntry {
	idx := len(f.stack) - 1 - offset
	if idx < 0 || idx >= len(f.stack) {
		return StackEntry{class: -1, Size: 0}
	}
	return f.stack[idx]
}

func (f *Frame) localClass(slot int) classID {
	if slot < 0 || slot >= len(f.locals) {
		return -1
	}
	return f.locals[slot]
}

func (f *Frame) clone() *Frame {
	return &Frame{
		locals: append([]classID(nil), f.locals...),
		stack:  append([]StackEntry(nil), f.stack...),
	}
}
