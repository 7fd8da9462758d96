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

// Package cachekit provides a fastcache-backed result cache for the cmd/localopt
// driver, grounded on core/txpool/legacypool's LRUBufferFastCache: the same
// fastcache.New(sizeMiB*1024*1024)/Set/Get/Has/Del shape, with a mutex-guarded
// LRU order slice for eviction bookkeeping. Here the cached value is the
// textified bytecode a method's fixpoint loop converged to, keyed by a hash
// of the method's pre-optimization textified form plus the config that
// would be applied to it, so a fixture whose text and config match an
// earlier entry in the same process reuses that result instead of re-running
// the passes. The cache lives in memory only; nothing persists across CLI runs.
package cachekit

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/VictoriaMetrics/fastcache"
)

// Key identifies one cached fixpoint result: a method's source text plus a
// short tag distinguishing the Config that produced it (two configs can
// disagree on OptAllowSkipClassLoading etc. and must not share a cache
// entry).
type Key struct {
	MethodText string
	ConfigTag  string
}

func (k Key) hash() string {
	h := sha256.New()
	h.Write([]byte(k.ConfigTag))
	h.Write([]byte{0})
	h.Write([]byte(k.MethodText))
	return hex.EncodeToString(h.Sum(nil))
}

// Cache is an LRU-ordered wrapper over a fastcache.Cache, sized in MiB like
// NewLRUBufferFastCache.
type Cache struct {
	cache    *fastcache.Cache
	capacity int

	mu    sync.Mutex
	size  int
	order []string
}

// New allocates a cache holding up to capacity entries, backed by a
// fastcache.Cache sized generously (sizeMiB) for the textified bytecode
// this package stores.
func New(capacity, sizeMiB int) *Cache {
	return &Cache{
		cache:    fastcache.New(sizeMiB * 1024 * 1024),
		capacity: capacity,
	}
}

// Get returns the cached fixpoint result for key, if present, moving it to
// the front of the LRU order.
func (c *Cache) Get(key Key) (result string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	h := key.hash()
	if !c.cache.Has([]byte(h)) {
		return "", false
	}
	result = string(c.cache.Get(nil, []byte(h)))
	c.moveToFront(h)
	return result, true
}

// Put records result as the fixpoint outcome for key, evicting the least
// recently used entry first if the cache is at capacity.
func (c *Cache) Put(key Key, result string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	h := key.hash()
	if c.cache.Has([]byte(h)) {
		c.cache.Set([]byte(h), []byte(result))
		c.moveToFront(h)
		return
	}

	for c.size >= c.capacity && len(c.order) > 0 {
		c.evictOldest()
	}

	c.cache.Set([]byte(h), []byte(result))
	c.order = append(c.order, h)
	c.size++
}

func (c *Cache) evictOldest() {
	oldest := c.order[0]
	c.order = c.order[1:]
	c.cache.Del([]byte(oldest))
	c.size--
}

func (c *Cache) moveToFront(h string) {
	for i, cur := range c.order {
		if cur == h {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.order = append(c.order, h)
}

// Size returns the number of entries currently cached.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Reset clears the cache.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Reset()
	c.order = nil
	c.size = 0
}
