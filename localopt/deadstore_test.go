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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArthurS1/bytecode-localopt/bytecode"
	"github.com/ArthurS1/bytecode-localopt/external"
)

func textifyKinds(m *bytecode.Method) []bytecode.Opcode {
	var out []bytecode.Opcode
	for ins := m.First(); ins != nil; ins = ins.Next() {
		out = append(out, ins.Kind)
	}
	return out
}

func TestEliminateStaleStoresRemovesStaleNonReferenceStore(t *testing.T) {
	m := bytecode.NewMethod("deadInt", "()V", true, 2, 1)
	m.Append(bytecode.NewIntConst(0))
	m.Append(bytecode.NewVar(bytecode.ISTORE, 1))
	m.Append(bytecode.NewPlain(bytecode.RETURN))

	result, err := EliminateStaleStores(m, nil, nil, nil, "demo/Owner")
	require.NoError(t, err)
	assert.True(t, result.StaleStoreRemoved)
	assert.Equal(t, []bytecode.Opcode{bytecode.ICONST_0, bytecode.POP, bytecode.RETURN}, textifyKinds(m))
}

func TestEliminateStaleStoresPopsTrailingDeadNullReferenceStore(t *testing.T) {
	m := bytecode.NewMethod("deadNullRef", "()V", true, 2, 1)
	m.Append(bytecode.NewNull())
	m.Append(bytecode.NewVar(bytecode.ASTORE, 1))
	m.Append(bytecode.NewPlain(bytecode.RETURN))

	result, err := EliminateStaleStores(m, nil, nil, nil, "demo/Owner")
	require.NoError(t, err)
	assert.True(t, result.StaleStoreRemoved)
	assert.Equal(t, []bytecode.Opcode{bytecode.ACONST_NULL, bytecode.POP, bytecode.RETURN}, textifyKinds(m))
}

func TestEliminateStaleStoresNullPoisonsNonTrailingLiveReferenceStore(t *testing.T) {
	m := bytecode.NewMethod("deadLiveRef", "()V", true, 2, 1)
	m.Append(bytecode.NewType(bytecode.NEW, "java/lang/Object"))
	m.Append(bytecode.NewVar(bytecode.ASTORE, 1))
	m.Append(bytecode.NewMethodCall(bytecode.INVOKESTATIC, "Foo", "bar", "()V", false))
	m.Append(bytecode.NewPlain(bytecode.RETURN))

	result, err := EliminateStaleStores(m, nil, nil, nil, "demo/Owner")
	require.NoError(t, err)
	assert.True(t, result.StaleStoreRemoved)
	// The NEW's value is provably non-null, so the dead store must be
	// null-poisoned (pop the real value, push a null, keep the store) rather
	// than simply dropped, since a later GC root scan could otherwise see a
	// stale live reference in the slot.
	assert.Equal(t, []bytecode.Opcode{
		bytecode.NEW, bytecode.POP, bytecode.ACONST_NULL, bytecode.ASTORE,
		bytecode.INVOKESTATIC, bytecode.RETURN,
	}, textifyKinds(m))
}

func TestEliminateStaleStoresDowngradesAlreadyNullPoisonToPlainPop(t *testing.T) {
	m := bytecode.NewMethod("deadAlreadyNullRef", "()V", true, 2, 1)
	m.Append(bytecode.NewNull())
	m.Append(bytecode.NewVar(bytecode.ASTORE, 1))
	m.Append(bytecode.NewMethodCall(bytecode.INVOKESTATIC, "Foo", "bar", "()V", false))
	m.Append(bytecode.NewPlain(bytecode.RETURN))

	result, err := EliminateStaleStores(m, nil, nil, nil, "demo/Owner")
	require.NoError(t, err)
	assert.True(t, result.StaleStoreRemoved)
	// Slot 1 is never live as a reference (every store into it was already
	// null), so the live-ref-slot refinement downgrades what would have been
	// a redundant null-poison into a plain pop.
	assert.Equal(t, []bytecode.Opcode{
		bytecode.ACONST_NULL, bytecode.POP, bytecode.INVOKESTATIC, bytecode.RETURN,
	}, textifyKinds(m))
}

func classTagNewArrayMethod() *bytecode.Method {
	m := bytecode.NewMethod("classTagNewArray", "(I)[Ljava/lang/String;", true, 1, 3)
	m.Append(bytecode.NewOtherConst("java/lang/String"))
	m.Append(bytecode.NewMethodCall(bytecode.INVOKESTATIC, "scala/reflect/ClassTag$", "apply",
		"(Ljava/lang/Class;)Lscala/reflect/ClassTag;", false))
	m.Append(bytecode.NewVar(bytecode.ILOAD, 0))
	m.Append(bytecode.NewMethodCall(bytecode.INVOKEVIRTUAL, "scala/reflect/ClassTag", "newArray",
		"(I)Ljava/lang/Object;", false))
	m.Append(bytecode.NewType(bytecode.CHECKCAST, "[Ljava/lang/String;"))
	m.Append(bytecode.NewPlain(bytecode.ARETURN))
	return m
}

func TestEliminateStaleStoresRewritesClassTagNewArrayIntrinsic(t *testing.T) {
	m := classTagNewArrayMethod()
	result, err := EliminateStaleStores(m, nil, nil, nil, "demo/Owner")
	require.NoError(t, err)
	assert.True(t, result.IntrinsicRewritten)
	assert.False(t, result.CallInlined, "nothing downstream consumes the array, so there is no callsite to hand to the inliner")

	var sawANewArray, sawNewArrayCall bool
	for ins := m.First(); ins != nil; ins = ins.Next() {
		if ins.Kind == bytecode.ANEWARRAY {
			sawANewArray = true
		}
		if bytecode.IsMethodCall(ins) && ins.Name == "newArray" {
			sawNewArrayCall = true
		}
	}
	assert.True(t, sawANewArray, "the newArray call must be replaced by a direct ANEWARRAY")
	assert.False(t, sawNewArrayCall, "the polymorphic ClassTag#newArray call must be gone")
}

func TestEliminateStaleStoresDeclinesWhenSourceValueSizeGateFails(t *testing.T) {
	m := bytecode.NewMethod("tooBig", "()V", true, 2, 1)
	m.Append(bytecode.NewIntConst(0))
	m.Append(bytecode.NewVar(bytecode.ISTORE, 1))
	m.Append(bytecode.NewPlain(bytecode.RETURN))

	cfg := external.DefaultConfig()
	cfg.MaxSourceValueInstructions = 0

	result, err := EliminateStaleStores(m, nil, nil, cfg, "demo/Owner")
	require.NoError(t, err)
	assert.False(t, result.Changed())
	assert.Equal(t, bytecode.ISTORE, m.First().Next().Kind, "a declined analyzer must leave the method untouched")
}
