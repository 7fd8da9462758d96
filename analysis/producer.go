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

// Package analysis is the Frame/Alias Analyzer external-collaborator surface
// (§4.1, §6 of the spec this module implements): it is consulted by, but
// lives outside, the four optimizer passes in package localopt. The deep
// polymorphism of producer kinds is expressed as a flat tagged variant with
// an explicit switch at each use site, per the Design Notes, rather than as
// a producer interface hierarchy.
package analysis

import (
	"fmt"

	"github.com/ArthurS1/bytecode-localopt/bytecode"
)

// ProducerKind discriminates the four producer variants from §3.
type ProducerKind uint8

const (
	// ProducerNormal is an ordinary instruction that pushes a value.
	ProducerNormal ProducerKind = iota
	// ProducerParameter is the initial value of a parameter slot on entry.
	ProducerParameter
	// ProducerUninitializedLocal is a slot's default value before any store.
	ProducerUninitializedLocal
	// ProducerException is the caught-exception value landed at a handler entry.
	ProducerException
)

// Producer is a single value-producing origin. It is a plain comparable
// struct so it can be used directly as a map key in def-use tables (per the
// Design Notes: "use stable pointer/handle identity ... as the key in
// mutation work-sets").
type Producer struct {
	Kind ProducerKind
	Insn *bytecode.Instruction // set iff Kind == ProducerNormal
	// Param is the parameter index when Kind == ProducerParameter. For a
	// ProducerNormal rooted in a DUP/DUP2 that duplicates a single value, it
	// instead distinguishes which of the two pushed copies this producer is
	// (0 or 1), so each copy's consumers are tracked independently rather
	// than folded into one shared use list; every other ProducerNormal
	// leaves it at its zero value.
	Param int
}

func NormalProducer(ins *bytecode.Instruction) Producer {
	return Producer{Kind: ProducerNormal, Insn: ins}
}

// DupOutputProducer names one of the two values DUP (or a size-2-duplicating
// DUP2) pushes. DUP has a single input but two outputs, and those outputs
// commonly go on to be consumed by two different instructions (e.g. a
// constructor call taking the receiver and a trailing POP discarding the
// other copy) — giving each copy its own Producer keeps their use lists
// separate instead of merging two independent consumers into one.
func DupOutputProducer(ins *bytecode.Instruction, copyIndex int) Producer {
	return Producer{Kind: ProducerNormal, Insn: ins, Param: copyIndex}
}

func ParameterProducer(index int) Producer {
	return Producer{Kind: ProducerParameter, Param: index}
}

var uninitializedLocal = Producer{Kind: ProducerUninitializedLocal}
var exceptionProducer = Producer{Kind: ProducerException}

func UninitializedLocalProducer() Producer { return uninitializedLocal }
func ExceptionProducer() Producer          { return exceptionProducer }

func (p Producer) String() string {
	switch p.Kind {
	case ProducerParameter:
		return fmt.Sprintf("Parameter(%d)", p.Param)
	case ProducerUninitializedLocal:
		return "UninitializedLocal"
	case ProducerException:
		return "Exception"
	default:
		if p.Insn == nil {
			return "Normal(<nil>)"
		}
		return fmt.Sprintf("Normal(%s)", p.Insn.String())
	}
}

// key returns a stable, order-independent string used to intern the
// producer set a value class carries, so that two dataflow paths that reach
// the same logical set of origins are recognized as the same equivalence
// class (§3: "Two values share a class iff every dataflow path reaching i
// has them originating from the same producer tree").
func (p Producer) key() string {
	switch p.Kind {
	case ProducerParameter:
		return fmt.Sprintf("P%d", p.Param)
	case ProducerUninitializedLocal:
		return "U"
	case ProducerException:
		return "E"
	default:
		return fmt.Sprintf("N%p#%d", p.Insn, p.Param)
	}
}

// IsMultiConsumer reports whether p must conservatively be treated as having
// more than one output, per §4.4: "Exception-producers and
// uninitialized-local sentinels are treated as multi-consumer (conservative)."
func (p Producer) IsMultiConsumer() bool {
	return p.Kind == ProducerException || p.Kind == ProducerUninitializedLocal
}
