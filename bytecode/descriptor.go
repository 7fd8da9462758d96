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

// DescriptorArgWords walks a method descriptor "(...)..." and sums the
// 32-bit-word width of its argument list: 2 for J/D, 1 for everything else.
func DescriptorArgWords(descriptor string) int {
	words := 0
	i := 1 // skip '('
	for i < len(descriptor) && descriptor[i] != ')' {
		w, next := descriptorFieldWordsAt(descriptor, i)
		words += w
		i = next
	}
	return words
}

// DescriptorReturnWords returns the word width of a descriptor's return
// type: 0 for V, 2 for J/D, 1 otherwise.
func DescriptorReturnWords(descriptor string) int {
	i := indexByte(descriptor, ')')
	if i < 0 || i+1 >= len(descriptor) {
		return 0
	}
	ret := descriptor[i+1]
	if ret == 'V' {
		return 0
	}
	w, _ := descriptorFieldWordsAt(descriptor, i+1)
	return w
}

func descriptorFieldWordsAt(descriptor string, i int) (words, next int) {
	switch descriptor[i] {
	case 'J', 'D':
		return 2, i + 1
	case 'L':
		j := i
		for j < len(descriptor) && descriptor[j] != ';' {
			j++
		}
		return 1, j + 1
	case '[':
		j := i
		for j < len(descriptor) && descriptor[j] == '[' {
			j++
		}
		_, next = descriptorFieldWordsAt(descriptor, j)
		return 1, next
	default: // B C F I S Z
		return 1, i + 1
	}
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}
