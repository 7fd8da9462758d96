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

package main

import (
	"sort"

	"github.com/ArthurS1/bytecode-localopt/bytecode"
	"github.com/ArthurS1/bytecode-localopt/external"
)

// logCallGraph is a demo external.CallGraph: the call-graph registry and
// inliner are out of scope (§1's "external collaborators"), so this driver
// stands in a minimal bookkeeping implementation that just tracks which
// callsites have been reported removed, so that Callsites stops reporting
// them. A production embedder supplies its own.
type logCallGraph struct {
	removed map[*bytecode.Instruction]bool
}

func newLogCallGraph() *logCallGraph {
	return &logCallGraph{removed: map[*bytecode.Instruction]bool{}}
}

func (g *logCallGraph) Callsites(owner string, m *bytecode.Method) []external.Callsite {
	var out []external.Callsite
	for ins := m.First(); ins != nil; ins = ins.Next() {
		if bytecode.IsMethodCall(ins) && !g.removed[ins] {
			out = append(out, external.Callsite{Owner: owner, Call: ins})
		}
	}
	return out
}

func (g *logCallGraph) RemoveCallsite(call *bytecode.Instruction, owner string, m *bytecode.Method) error {
	g.removed[call] = true
	return nil
}

func (g *logCallGraph) RemoveClosureInstantiation(indy *bytecode.Instruction, owner string, m *bytecode.Method) error {
	g.removed[indy] = true
	return nil
}

// CallsiteOrdering sorts by owner then by the call's Name, giving a
// deterministic (if arbitrary) order for the sequential-inline handoff.
func (g *logCallGraph) CallsiteOrdering(sites []external.Callsite) []external.Callsite {
	out := append([]external.Callsite{}, sites...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Owner != out[j].Owner {
			return out[i].Owner < out[j].Owner
		}
		return out[i].Call.Name < out[j].Call.Name
	})
	return out
}

// noopInliner reports every inline as a no-op success: this driver's
// fixtures never expose a rewrite whose downstream inline actually needs to
// splice a callee body in, so there is nothing to graft, but the handoff
// still needs a live collaborator to call.
type noopInliner struct{}

func (noopInliner) InlineCallsite(site external.Callsite, hint string, updateCallGraph bool) error {
	return nil
}
