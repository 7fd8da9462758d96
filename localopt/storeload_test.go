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

	"github.com/ArthurS1/bytecode-localopt/bytecode"
)

func TestEliminateStoreLoadPairsRemovesAnAdjacentStoreAndLoad(t *testing.T) {
	m := bytecode.NewMethod("storeThenLoad", "()V", true, 2, 1)
	m.Append(bytecode.NewIntConst(0))
	m.Append(bytecode.NewVar(bytecode.ISTORE, 1))
	m.Append(bytecode.NewVar(bytecode.ILOAD, 1))
	m.Append(bytecode.NewPlain(bytecode.IRETURN))

	changed := EliminateStoreLoadPairs(m)
	assert.True(t, changed)
	assert.Equal(t, []bytecode.Opcode{bytecode.ICONST_0, bytecode.IRETURN}, textifyKinds(m))
}

func TestEliminateStoreLoadPairsVetoesAPairSeparatedByALiveLabel(t *testing.T) {
	m := bytecode.NewMethod("storeAcrossLabel", "()V", true, 2, 1)
	lbl := bytecode.NewLabel()
	m.Append(bytecode.NewIntConst(1))
	m.Append(bytecode.NewJump(bytecode.IFEQ, lbl.Self))
	m.Append(bytecode.NewIntConst(0))
	m.Append(bytecode.NewVar(bytecode.ISTORE, 1))
	m.Append(lbl)
	m.Append(bytecode.NewVar(bytecode.ILOAD, 1))
	m.Append(bytecode.NewPlain(bytecode.IRETURN))

	before := textifyKinds(m)
	changed := EliminateStoreLoadPairs(m)
	assert.False(t, changed, "a jump still targets the label sitting between the store and its load")
	assert.Equal(t, before, textifyKinds(m))
}

func TestEliminateStoreLoadPairsFusesANestedDeadNullStoreWithItsOuterPair(t *testing.T) {
	m := bytecode.NewMethod("nestedNullStore", "()V", true, 3, 1)
	m.Append(bytecode.NewIntConst(0))
	m.Append(bytecode.NewVar(bytecode.ISTORE, 1))
	m.Append(bytecode.NewNull())
	m.Append(bytecode.NewVar(bytecode.ASTORE, 2))
	m.Append(bytecode.NewVar(bytecode.ILOAD, 1))
	m.Append(bytecode.NewPlain(bytecode.IRETURN))

	changed := EliminateStoreLoadPairs(m)
	assert.True(t, changed)
	// The outer store/load pair around slot 1 depends on the inner null-store
	// pair into slot 2; no slot is live and no label intervenes, so neither
	// is vetoed and both pairs are removed in one pass.
	assert.Equal(t, []bytecode.Opcode{bytecode.ICONST_0, bytecode.IRETURN}, textifyKinds(m))
}
