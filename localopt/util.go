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

import "github.com/ArthurS1/bytecode-localopt/bytecode"

// paramWidthOf derives parametersSize(method) (§6) from the method's own
// descriptor, since no class-file parser is in scope (§1) to supply it
// out-of-band.
func paramWidthOf(m *bytecode.Method) int {
	return m.ParametersSize(bytecode.DescriptorArgWords(m.Descriptor))
}

// StaleStoreResult is (B)'s compact status record (§4.3: "Returns:
// (staleStoreRemoved, intrinsicRewritten, callInlined)").
type StaleStoreResult struct {
	StaleStoreRemoved  bool
	IntrinsicRewritten bool
	CallInlined        bool
}

// Changed reports whether any of the three outcomes happened, for driver
// fixpoint termination (§6: "so the driver can decide whether to re-run
// other passes").
func (r StaleStoreResult) Changed() bool {
	return r.StaleStoreRemoved || r.IntrinsicRewritten || r.CallInlined
}

// PushPopResult is (C)'s compact status record (§4.4: "Returns:
// (pushPopChanged, castAdded, nullCheckAdded)").
type PushPopResult struct {
	PushPopChanged bool
	CastAdded      bool
	NullCheckAdded bool
}

func (r PushPopResult) Changed() bool {
	return r.PushPopChanged || r.CastAdded || r.NullCheckAdded
}

// descriptorArgCount returns the number of argument VALUES (not words) a
// method descriptor declares — distinct from bytecode.DescriptorArgWords,
// which sums word width (a long/double argument is 1 value but 2 words).
// The analyzer's stack offsets (ProducersForStackAt, PeekStack) are indexed
// by value, so any stack-offset arithmetic derived from a descriptor's
// argument list must use this, not DescriptorArgWords.
func descriptorArgCount(descriptor string) int {
	n := 0
	i := 1
	for i < len(descriptor) && descriptor[i] != ')' {
		switch descriptor[i] {
		case 'L':
			for i < len(descriptor) && descriptor[i] != ';' {
				i++
			}
			i++
		case '[':
			for i < len(descriptor) && descriptor[i] == '[' {
				i++
			}
			continue
		default:
			i++
		}
		n++
	}
	return n
}
