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

// Package localopt implements the four cooperating peephole passes: (A)
// CopyPropagate, (B) EliminateStaleStores, (C) EliminatePushPop, (D)
// EliminateStoreLoadPairs.
package localopt

import (
	"github.com/ArthurS1/bytecode-localopt/analysis"
	"github.com/ArthurS1/bytecode-localopt/bytecode"
	"github.com/ArthurS1/bytecode-localopt/internal/xlog"
)

// CopyPropagate is pass (A) (§4.2): for every load of a non-parameter slot,
// rewrite the operand to usedOrMinAlias's preferred alias. Returns whether
// any load was rewritten.
func CopyPropagate(m *bytecode.Method) (changed bool) {
	paramWidth := paramWidthOf(m)
	lazy := analysis.NewLazy(m, paramWidth)
	a, ok := lazy.Get()
	if !ok {
		return false // analyzer declined (cyclic control flow) — no-op per §4.1
	}

	knownUsed := map[int]bool{}
	rewritten := 0
	for ins := m.First(); ins != nil; ins = ins.Next() {
		if !bytecode.IsLoad(ins) || ins.Slot < paramWidth {
			continue
		}
		aliases := a.AliasesOf(ins, ins.Slot)
		chosen := usedOrMinAlias(aliases, knownUsed)
		if chosen != ins.Slot {
			ins.Slot = chosen
			changed = true
			rewritten++
		}
		knownUsed[chosen] = true
	}
	if changed {
		xlog.Diagnosticf("copyprop", "rewrote load operand", "count", rewritten)
	}
	return changed
}

// usedOrMinAlias picks, among aliases, the one already in knownUsed;
// otherwise the minimum index (§4.2).
func usedOrMinAlias(aliases map[int]bool, knownUsed map[int]bool) int {
	best := -1
	bestUsed := false
	for slot := range aliases {
		used := knownUsed[slot]
		switch {
		case best == -1:
			best, bestUsed = slot, used
		case used && !bestUsed:
			best, bestUsed = slot, used
		case used == bestUsed && slot < best:
			best = slot
		}
	}
	return best
}
