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

package cachekit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutThenGetRoundTripsTheResult(t *testing.T) {
	c := New(4, 1)
	key := Key{MethodText: "ICONST_0 IRETURN", ConfigTag: "default"}

	c.Put(key, "IRETURN")
	result, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "IRETURN", result)
	assert.Equal(t, 1, c.Size())
}

func TestGetMissesOnAnUnknownKey(t *testing.T) {
	c := New(4, 1)
	_, ok := c.Get(Key{MethodText: "never put", ConfigTag: "default"})
	assert.False(t, ok)
}

func TestDifferentConfigTagsDoNotShareACacheEntry(t *testing.T) {
	c := New(4, 1)
	same := "ICONST_0 IRETURN"
	c.Put(Key{MethodText: same, ConfigTag: "strict"}, "strict-result")
	c.Put(Key{MethodText: same, ConfigTag: "lenient"}, "lenient-result")

	strict, ok := c.Get(Key{MethodText: same, ConfigTag: "strict"})
	require.True(t, ok)
	assert.Equal(t, "strict-result", strict)

	lenient, ok := c.Get(Key{MethodText: same, ConfigTag: "lenient"})
	require.True(t, ok)
	assert.Equal(t, "lenient-result", lenient)
	assert.Equal(t, 2, c.Size())
}

func TestPutEvictsTheLeastRecentlyUsedEntryAtCapacity(t *testing.T) {
	c := New(2, 1)
	k1 := Key{MethodText: "m1", ConfigTag: "default"}
	k2 := Key{MethodText: "m2", ConfigTag: "default"}
	k3 := Key{MethodText: "m3", ConfigTag: "default"}

	c.Put(k1, "r1")
	c.Put(k2, "r2")
	c.Put(k3, "r3") // evicts k1, the oldest, since neither k1 nor k2 was ever Get

	assert.Equal(t, 2, c.Size())
	_, ok := c.Get(k1)
	assert.False(t, ok, "k1 should have been evicted")
	_, ok = c.Get(k2)
	assert.True(t, ok)
	_, ok = c.Get(k3)
	assert.True(t, ok)
}

func TestGetRefreshesRecencyAndProtectsFromEviction(t *testing.T) {
	c := New(2, 1)
	k1 := Key{MethodText: "m1", ConfigTag: "default"}
	k2 := Key{MethodText: "m2", ConfigTag: "default"}
	k3 := Key{MethodText: "m3", ConfigTag: "default"}

	c.Put(k1, "r1")
	c.Put(k2, "r2")
	_, _ = c.Get(k1) // touch k1 so k2 becomes the least recently used
	c.Put(k3, "r3")  // evicts k2, not k1

	_, ok := c.Get(k1)
	assert.True(t, ok, "k1 was refreshed by the earlier Get and must survive")
	_, ok = c.Get(k2)
	assert.False(t, ok, "k2 is now the least recently used and should have been evicted")
}

func TestResetClearsEverything(t *testing.T) {
	c := New(4, 1)
	key := Key{MethodText: "m1", ConfigTag: "default"}
	c.Put(key, "r1")
	require.Equal(t, 1, c.Size())

	c.Reset()
	assert.Equal(t, 0, c.Size())
	_, ok := c.Get(key)
	assert.False(t, ok)
}

func TestPutOverwritingAnExistingKeyDoesNotGrowSize(t *testing.T) {
	c := New(4, 1)
	key := Key{MethodText: "m1", ConfigTag: "default"}
	c.Put(key, "r1")
	c.Put(key, "r2")

	assert.Equal(t, 1, c.Size())
	result, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "r2", result)
}
