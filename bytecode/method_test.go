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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTinyMethod() *Method {
	m := NewMethod("tiny", "(I)I", true, 1, 1)
	m.Append(NewVar(ILOAD, 0))
	m.Append(NewPlain(IRETURN))
	return m
}

func TestMethodAppendOrdersInstructions(t *testing.T) {
	m := buildTinyMethod()
	require.Equal(t, 2, m.Size())
	assert.Equal(t, ILOAD, m.First().Kind)
	assert.Equal(t, IRETURN, m.Last().Kind)
	assert.Nil(t, m.First().Prev())
	assert.Same(t, m.Last(), m.First().Next())
}

func TestMethodInsertBeforeAndAfter(t *testing.T) {
	m := buildTinyMethod()
	dup := NewPlain(DUP)
	m.InsertBefore(m.Last(), dup)
	require.Equal(t, 3, m.Size())
	assert.Same(t, dup, m.First().Next())
	assert.Same(t, m.Last(), dup.Next())

	pop := NewPlain(POP)
	m.InsertAfter(m.Last(), pop)
	assert.Same(t, pop, m.Last())
	assert.Same(t, pop, m.Last().Prev().Next())
}

func TestMethodRemoveUnlinksAndPatchesNeighbors(t *testing.T) {
	m := buildTinyMethod()
	dup := NewPlain(DUP)
	m.InsertBefore(m.Last(), dup)

	m.Remove(dup)
	assert.Equal(t, 2, m.Size())
	assert.Same(t, m.Last(), m.First().Next())
	assert.Nil(t, dup.Prev())
	assert.Nil(t, dup.Next())
}

func TestMethodRemoveFirstAndLast(t *testing.T) {
	m := buildTinyMethod()
	first := m.First()
	m.Remove(first)
	assert.Same(t, m.Last(), m.First())

	last := m.Last()
	m.Remove(last)
	assert.Nil(t, m.First())
	assert.Nil(t, m.Last())
	assert.Equal(t, 0, m.Size())
}

func TestMethodReplaceSplicesInOrderThenRemovesOld(t *testing.T) {
	m := buildTinyMethod()
	load := m.First()
	a := NewPlain(NOP)
	b := NewPlain(NOP)
	m.Replace(load, a, b)

	require.Equal(t, 3, m.Size())
	assert.Same(t, a, m.First())
	assert.Same(t, b, a.Next())
	assert.Same(t, m.Last(), b.Next())
}

func TestMethodReplaceWithNoInstructionsActsLikeRemove(t *testing.T) {
	m := buildTinyMethod()
	load := m.First()
	m.Replace(load)
	require.Equal(t, 1, m.Size())
	assert.Same(t, m.Last(), m.First())
}

func TestMethodTextifyListsEveryInstruction(t *testing.T) {
	m := buildTinyMethod()
	text := m.Textify()
	assert.Contains(t, text, "tiny(I)I:")
	assert.Contains(t, text, "ILOAD 0")
	assert.Contains(t, text, "IRETURN")
}

func TestMethodParametersSizeAddsReceiverUnlessStatic(t *testing.T) {
	static := NewMethod("s", "(I)V", true, 1, 1)
	assert.Equal(t, 1, static.ParametersSize(1))

	instance := NewMethod("i", "(I)V", false, 2, 1)
	assert.Equal(t, 2, instance.ParametersSize(1))
}

func TestInstructionsSnapshotIsReadOnlyOrder(t *testing.T) {
	m := buildTinyMethod()
	snap := m.Instructions()
	require.Len(t, snap, 2)
	assert.Same(t, m.First(), snap[0])
	assert.Same(t, m.Last(), snap[1])
}
