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

// Package external collects the collaborator interfaces the core consults
// but does not implement (§1: "the call-graph registry ... and the inliner
// ... are OUT OF SCOPE; those are treated as external collaborators whose
// interfaces are enumerated in §6"). Nothing in this package mutates a
// bytecode.Method directly; the four passes in package localopt call through
// these interfaces and apply the results themselves.
package external

import "github.com/ArthurS1/bytecode-localopt/bytecode"

// Callsite identifies one call instruction within one method of one class,
// addressed by instruction identity rather than position (§9's "Instruction
// identity": "use stable pointer/handle identity, never numeric indices").
type Callsite struct {
	Owner string // declaring class's internal name
	Call  *bytecode.Instruction
}

// CallGraph is consulted and mutated by (B)'s inliner handoff and (C)'s
// side-effect-free-call/INVOKEDYNAMIC removal (§4.3, §4.4, §6: "callsites,
// removeCallsite, removeClosureInstantiation, callsiteOrdering"). Per §9, the
// call-graph is modeled as an external service addressed by instruction
// identity — there is no in-core graph.
type CallGraph interface {
	// Callsites returns every outgoing call recorded for owner/m, restricted
	// to the current method per §4.3's inliner handoff ("restricted to the
	// current method").
	Callsites(owner string, m *bytecode.Method) []Callsite

	// RemoveCallsite drops call from the graph. Required whenever a pass
	// deletes a call instruction (§3 invariant: "A removed call MUST also be
	// removed from the external call-graph registry").
	RemoveCallsite(call *bytecode.Instruction, owner string, m *bytecode.Method) error

	// RemoveClosureInstantiation drops an INVOKEDYNAMIC lambda-metafactory
	// site and its synthetic bridge method (§4.4's INVOKEDYNAMIC row).
	RemoveClosureInstantiation(indy *bytecode.Instruction, owner string, m *bytecode.Method) error

	// CallsiteOrdering returns a canonical, deterministic ordering key for
	// sites, used to sort to-inline callsites before sequential inlining
	// (§4.3: "sort by the external inliner's canonical ordering").
	CallsiteOrdering(sites []Callsite) []Callsite
}

// Inliner performs the actual inlining of a callsite exposed by (B)'s
// intrinsic rewrite (§4.3: "feeds exposed call sites to the external
// inliner"). hint is free-form context for the inliner; EliminateStaleStores
// passes an empty hint.
type Inliner interface {
	// InlineCallsite inlines site into its caller. If updateCallGraph is
	// true, the call-graph is updated as part of this call — §4.3: "The
	// call-graph should be updated only on the final inline."
	InlineCallsite(site Callsite, hint string, updateCallGraph bool) error
}

// Config mirrors core/vm.Config's shape (a plain struct of flags, no
// framework) and carries exactly the flags and size gates §6 and §4.1 name.
type Config struct {
	// OptAllowSkipClassLoading permits (C) to remove class/type LDC
	// constants outright instead of emitting a preserving pop (§4.4's LDC
	// row, §9's Open Question: "this specification follows the source's
	// conservative union" — MethodType/MethodHandle constants are lumped in
	// with class literals under this single flag).
	OptAllowSkipClassLoading bool

	// ModulesAllowSkipInitialization permits (C) to remove a GETSTATIC that
	// is a module-load whose class-initialization side effect is known safe
	// to skip (§4.4's GETFIELD/GETSTATIC row).
	ModulesAllowSkipInitialization bool

	// MaxAliasingInstructions and MaxAliasingLocals gate
	// analysis.SizeOKForAliasing; MaxSourceValueInstructions gates
	// analysis.SizeOKForSourceValue (§4.1: "analyses only run when the
	// method is below configured instruction/local limits").
	MaxAliasingInstructions    int
	MaxAliasingLocals          int
	MaxSourceValueInstructions int
}

// DefaultConfig returns the conservative defaults used when a caller has no
// stronger opinion: both skip-flags off (never skip observable
// initialization) and generous but finite size gates.
func DefaultConfig() *Config {
	return &Config{
		OptAllowSkipClassLoading:       false,
		ModulesAllowSkipInitialization: false,
		MaxAliasingInstructions:        1 << 16,
		MaxAliasingLocals:              1 << 12,
		MaxSourceValueInstructions:     1 << 16,
	}
}
