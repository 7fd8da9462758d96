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
)

func TestIsLoadAndIsStore(t *testing.T) {
	assert.True(t, IsLoad(NewVar(ILOAD, 0)))
	assert.True(t, IsLoad(NewVar(ALOAD, 3)))
	assert.False(t, IsLoad(NewVar(ISTORE, 0)))
	assert.False(t, IsLoad(NewPlain(POP)))

	assert.True(t, IsStore(NewVar(ASTORE, 1)))
	assert.False(t, IsStore(NewVar(ALOAD, 1)))
}

func TestIsReferenceStoreAndLoad(t *testing.T) {
	assert.True(t, IsReferenceStore(NewVar(ASTORE, 0)))
	assert.False(t, IsReferenceStore(NewVar(ISTORE, 0)))
	assert.True(t, IsReferenceLoad(NewVar(ALOAD, 0)))
	assert.False(t, IsReferenceLoad(NewVar(ILOAD, 0)))
}

func TestIsExecutableExcludesOnlyLabels(t *testing.T) {
	assert.True(t, IsExecutable(NewPlain(NOP)))
	assert.False(t, IsExecutable(NewLabel()))
}

func TestIsTrailingExcludesCallsJumpsAndSwitches(t *testing.T) {
	assert.True(t, IsTrailing(NewPlain(IADD)))
	assert.False(t, IsTrailing(NewMethodCall(INVOKESTATIC, "A", "b", "()V", false)))
	assert.False(t, IsTrailing(NewJump(GOTO, &Label{})))
	assert.False(t, IsTrailing(NewTableSwitch(0, nil, &Label{})))
}

func TestIsExoticAndIsDup(t *testing.T) {
	assert.True(t, IsExotic(SWAP))
	assert.True(t, IsExotic(DUP_X1))
	assert.False(t, IsExotic(DUP))
	assert.True(t, IsDup(DUP))
	assert.True(t, IsDup(DUP2))
	assert.False(t, IsDup(SWAP))
}

func TestIsDivOrRem(t *testing.T) {
	for _, op := range []Opcode{IDIV, LDIV, IREM, LREM} {
		assert.True(t, IsDivOrRem(op))
	}
	assert.False(t, IsDivOrRem(FDIV))
	assert.False(t, IsDivOrRem(IADD))
}

func TestStackEffectOfConstPush(t *testing.T) {
	popped, pushed := StackEffectOf(NewIntConst(5))
	assert.Equal(t, 0, popped)
	assert.Equal(t, 1, pushed)

	popped, pushed = StackEffectOf(NewLongConst(5))
	assert.Equal(t, 0, popped)
	assert.Equal(t, 2, pushed)
}

func TestStackEffectOfMethodCallAccountsForReceiver(t *testing.T) {
	instanceCall := NewMethodCall(INVOKEVIRTUAL, "A", "f", "(IJ)V", false)
	popped, pushed := StackEffectOf(instanceCall)
	assert.Equal(t, 4, popped) // receiver(1) + int(1) + long(2)
	assert.Equal(t, 0, pushed)

	staticCall := NewMethodCall(INVOKESTATIC, "A", "f", "(I)I", false)
	popped, pushed = StackEffectOf(staticCall)
	assert.Equal(t, 1, popped)
	assert.Equal(t, 1, pushed)
}

func TestStackEffectOfPlainArithmetic(t *testing.T) {
	popped, pushed := StackEffectOf(NewPlain(IADD))
	assert.Equal(t, 2, popped)
	assert.Equal(t, 1, pushed)

	popped, pushed = StackEffectOf(NewPlain(LADD))
	assert.Equal(t, 4, popped)
	assert.Equal(t, 2, pushed)
}

func TestStackEffectOfDupAndPop(t *testing.T) {
	popped, pushed := StackEffectOf(NewPlain(DUP))
	assert.Equal(t, 1, popped)
	assert.Equal(t, 2, pushed)

	popped, pushed = StackEffectOf(NewPlain(POP2))
	assert.Equal(t, 2, popped)
	assert.Equal(t, 0, pushed)
}

func TestGetPopChoosesBySize(t *testing.T) {
	assert.Equal(t, POP, GetPop(1).Kind)
	assert.Equal(t, POP2, GetPop(2).Kind)
}
