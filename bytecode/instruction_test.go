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

func TestNewIntConstChoosesOpcodeByRange(t *testing.T) {
	assert.Equal(t, ICONST_M1, NewIntConst(-1).Kind)
	assert.Equal(t, ICONST_0, NewIntConst(0).Kind)
	assert.Equal(t, ICONST_5, NewIntConst(5).Kind)
	assert.Equal(t, BIPUSH, NewIntConst(100).Kind)
	assert.Equal(t, BIPUSH, NewIntConst(-128).Kind)
	assert.Equal(t, SIPUSH, NewIntConst(1000).Kind)
	assert.Equal(t, LDC, NewIntConst(100000).Kind)
}

func TestNewLongConstSpecialCasesZeroAndOne(t *testing.T) {
	assert.Equal(t, LCONST_0, NewLongConst(0).Kind)
	assert.Equal(t, LCONST_1, NewLongConst(1).Kind)
	ldc := NewLongConst(42)
	assert.Equal(t, LDC2_W, ldc.Kind)
	assert.Equal(t, int64(42), ldc.LongVal)
	assert.NotNil(t, ldc.Bits)
}

func TestNewDoubleConstSpecialCasesZeroAndOne(t *testing.T) {
	assert.Equal(t, DCONST_0, NewDoubleConst(0).Kind)
	assert.Equal(t, DCONST_1, NewDoubleConst(1).Kind)
	assert.Equal(t, LDC2_W, NewDoubleConst(2.5).Kind)
}

func TestNewFloatConstSpecialCasesZeroOneTwo(t *testing.T) {
	assert.Equal(t, FCONST_0, NewFloatConst(0).Kind)
	assert.Equal(t, FCONST_1, NewFloatConst(1).Kind)
	assert.Equal(t, FCONST_2, NewFloatConst(2).Kind)
	assert.Equal(t, LDC, NewFloatConst(3.5).Kind)
}

func TestSize2ReportsLongAndDoubleConstPushOnly(t *testing.T) {
	assert.True(t, NewLongConst(1).Size2())
	assert.True(t, NewDoubleConst(1).Size2())
	assert.False(t, NewIntConst(1).Size2())
	assert.False(t, NewFloatConst(1).Size2())
}

func TestIsSize2LoadOrStoreGatesOnVarKind(t *testing.T) {
	assert.True(t, NewVar(LLOAD, 0).IsSize2LoadOrStore())
	assert.True(t, NewVar(DSTORE, 0).IsSize2LoadOrStore())
	assert.False(t, NewVar(ILOAD, 0).IsSize2LoadOrStore())
	assert.False(t, NewPlain(POP).IsSize2LoadOrStore())
}

func TestInstructionStringRendersEachKind(t *testing.T) {
	assert.Equal(t, "ILOAD 0", NewVar(ILOAD, 0).String())
	assert.Equal(t, "IINC 1, 2", NewIncrement(1, 2).String())
	assert.Contains(t, NewType(NEW, "java/lang/Object").String(), "java/lang/Object")
	assert.Contains(t, NewMethodCall(INVOKESTATIC, "A", "b", "()V", false).String(), "A.b()V")
	assert.Contains(t, NewInvokeDynamic("run", "()V", "LambdaMetaFactory.metafactory", nil).String(), "run()V")
	assert.Equal(t, "TABLESWITCH", NewTableSwitch(0, nil, &Label{}).String())
	assert.Equal(t, "LOOKUPSWITCH", NewLookupSwitch(nil, nil, &Label{}).String())
	assert.Contains(t, NewLabel().String(), "L0x")
}
