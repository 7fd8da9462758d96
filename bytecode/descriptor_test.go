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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescriptorArgWordsCountsLongDoubleAsTwoWords(t *testing.T) {
	assert.Equal(t, 0, DescriptorArgWords("()V"))
	assert.Equal(t, 1, DescriptorArgWords("(I)V"))
	assert.Equal(t, 2, DescriptorArgWords("(J)V"))
	assert.Equal(t, 2, DescriptorArgWords("(D)V"))
	assert.Equal(t, 3, DescriptorArgWords("(IJ)V")) // 1 + 2
	assert.Equal(t, 2, DescriptorArgWords("(Ljava/lang/Object;I)V"))
	assert.Equal(t, 1, DescriptorArgWords("([[I)V")) // array is always 1 word regardless of depth
}

func TestDescriptorReturnWords(t *testing.T) {
	assert.Equal(t, 0, DescriptorReturnWords("()V"))
	assert.Equal(t, 1, DescriptorReturnWords("()I"))
	assert.Equal(t, 2, DescriptorReturnWords("()J"))
	assert.Equal(t, 1, DescriptorReturnWords("()Ljava/lang/Object;"))
	assert.Equal(t, 1, DescriptorReturnWords("()[I"))
}
