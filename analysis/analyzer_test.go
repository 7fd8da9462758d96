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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArthurS1/bytecode-localopt/bytecode"
)

// copyChainMethod builds ILOAD 0; ISTORE 1; ILOAD 1; IRETURN, with slot 0 a
// declared parameter (paramWidth 1).
func copyChainMethod() *bytecode.Method {
	m := bytecode.NewMethod("copyChain", "(I)I", true, 3, 2)
	m.Append(bytecode.NewVar(bytecode.ILOAD, 0))
	m.Append(bytecode.NewVar(bytecode.ISTORE, 1))
	m.Append(bytecode.NewVar(bytecode.ILOAD, 1))
	m.Append(bytecode.NewPlain(bytecode.IRETURN))
	return m
}

func TestNewBuildsAcyclicAnalyzer(t *testing.T) {
	m := copyChainMethod()
	a, ok := New(m, 1)
	require.True(t, ok)
	require.NotNil(t, a)
	assert.Same(t, m, a.Method())
}

func TestAliasesOfFollowsCopyIntoStoredSlot(t *testing.T) {
	m := copyChainMethod()
	a, ok := New(m, 1)
	require.True(t, ok)

	secondLoad := m.First().Next().Next() // ILOAD 1
	require.Equal(t, bytecode.ILOAD, secondLoad.Kind)

	aliases := a.AliasesOf(secondLoad, 1)
	assert.True(t, aliases[1])
	assert.True(t, aliases[0], "slot 1 was stored straight from slot 0's value and should alias it")
}

func TestProducersForStackAtReturnsOriginatingParameter(t *testing.T) {
	m := copyChainMethod()
	a, ok := New(m, 1)
	require.True(t, ok)

	ret := m.Last() // IRETURN
	producers := a.ProducersForStackAt(ret, 0)
	require.Len(t, producers, 1)
	assert.Equal(t, ProducerParameter, producers[0].Kind)
	assert.Equal(t, 0, producers[0].Param)
}

func TestProducersIfSingleConsumerAcceptsSoleConsumer(t *testing.T) {
	m := bytecode.NewMethod("identity", "(I)I", true, 1, 1)
	m.Append(bytecode.NewVar(bytecode.ILOAD, 0))
	m.Append(bytecode.NewPlain(bytecode.IRETURN))

	a, ok := New(m, 1)
	require.True(t, ok)

	ret := m.Last()
	producers := a.ProducersIfSingleConsumer(ret, 0)
	require.Len(t, producers, 1)
	assert.Equal(t, ProducerParameter, producers[0].Kind)
}

func TestProducersIfSingleConsumerTracksEachDupCopySeparately(t *testing.T) {
	// ILOAD 0; DUP; POP; IRETURN -- the loaded parameter value is consumed
	// by DUP, so from IRETURN's perspective the producer backing its operand
	// (the DUP) has exactly one consumer, but the parameter itself feeds two
	// stack slots by the time DUP runs, exercising the eligibility rule
	// rather than a trivial single-use case.
	m := bytecode.NewMethod("dupAndDrop", "(I)I", true, 1, 2)
	m.Append(bytecode.NewVar(bytecode.ILOAD, 0))
	m.Append(bytecode.NewPlain(bytecode.DUP))
	m.Append(bytecode.NewPlain(bytecode.POP))
	m.Append(bytecode.NewPlain(bytecode.IRETURN))

	a, ok := New(m, 1)
	require.True(t, ok)

	ret := m.Last()
	producers := a.ProducersIfSingleConsumer(ret, 0)
	require.Len(t, producers, 1, "the DUP instruction itself has exactly one remaining consumer after POP took the other copy")
	assert.Equal(t, bytecode.DUP, producers[0].Insn.Kind)
}

func TestNewDeclinesConstructionOnCyclicControlFlow(t *testing.T) {
	m := bytecode.NewMethod("loop", "(I)V", true, 2, 1)
	lbl := bytecode.NewLabel()
	m.Append(lbl)
	m.Append(bytecode.NewVar(bytecode.ILOAD, 0))
	m.Append(bytecode.NewJump(bytecode.IFNE, lbl.Self))
	m.Append(bytecode.NewPlain(bytecode.RETURN))

	_, ok := New(m, 1)
	assert.False(t, ok, "a back edge to the loop label must be rejected, not silently analyzed")
}

func TestSizeGatesRejectMethodsAboveTheConfiguredLimit(t *testing.T) {
	m := copyChainMethod()
	assert.True(t, SizeOKForAliasing(m, 100, 10))
	assert.False(t, SizeOKForAliasing(m, 1, 10))
	assert.False(t, SizeOKForAliasing(m, 100, 0))

	assert.True(t, SizeOKForSourceValue(m, 100))
	assert.False(t, SizeOKForSourceValue(m, 1))
}

func TestLazyBuildsOnlyOnFirstGetAndCachesResult(t *testing.T) {
	m := copyChainMethod()
	l := NewLazy(m, 1)

	a1, ok1 := l.Get()
	require.True(t, ok1)
	a2, ok2 := l.Get()
	require.True(t, ok2)
	assert.Same(t, a1, a2, "Get must cache the constructed analyzer across calls")
}

func TestProducerIsMultiConsumerForExceptionAndUninitializedLocal(t *testing.T) {
	assert.True(t, ExceptionProducer().IsMultiConsumer())
	assert.True(t, UninitializedLocalProducer().IsMultiConsumer())
	assert.False(t, ParameterProducer(0).IsMultiConsumer())
}
