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

import "github.com/ArthurS1/bytecode-localopt/bytecode"

// SizeOKForAliasing is the gating predicate AsmAnalyzer.sizeOKForAliasing
// (§4.1, §6): the caller must check this before constructing a Lazy analyzer
// used for copy-propagation-style alias queries.
func SizeOKForAliasing(m *bytecode.Method, maxInstructions, maxLocals int) bool {
	return m.Size() <= maxInstructions && m.MaxLocals <= maxLocals
}

// SizeOKForSourceValue is sizeOKForSourceValue (§4.1, §6): the gate for
// producer/consumer queries, which in this merged analyzer share the same
// construction cost as aliasing but are named separately because the source
// specification gates them independently.
func SizeOKForSourceValue(m *bytecode.Method, maxInstructions int) bool {
	return m.Size() <= maxInstructions
}

// Lazy is an on-demand Analyzer per §9's "Lazy construction of analyzers":
// "represent as an on-demand value that runs construction exactly once and
// only if entered; if never entered, costs nothing." A pass that never needs
// the analyzer (e.g. an early-return because the method has no stores to
// consider) never pays construction cost.
type Lazy struct {
	m          *bytecode.Method
	paramWidth int
	built      bool
	analyzer   *Analyzer
	ok         bool
}

// NewLazy wraps m for on-demand analysis. paramWidth is the slot width of the
// method's declared parameters (plus receiver), per parametersSize(method) (§6).
func NewLazy(m *bytecode.Method, paramWidth int) *Lazy {
	return &Lazy{m: m, paramWidth: paramWidth}
}

// Get constructs the Analyzer on first call and caches the result. ok is
// false when the method's control flow is cyclic (outside this analyzer's
// scope, see the Analyzer doc comment) — callers must treat that exactly
// like a declined size gate, degrading to "no change" (§4.1).
func (l *Lazy) Get() (a *Analyzer, ok bool) {
	if !l.built {
		l.analyzer, l.ok = New(l.m, l.paramWidth)
		l.built = true
	}
	return l.analyzer, l.ok
}
