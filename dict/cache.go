// Copyright 2024 The Erigon Authors
// This file is part of Erigon.
//
// Erigon is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Erigon is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Erigon. If not, see <http://www.gnu.org/licenses/>.

package dict

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Default cache capacities, spec.md §4.4.
const (
	DefaultIDToValueCap     = 512
	DefaultValueToIDCap     = 128
	DefaultNamespaceToIDCap = 32
	DefaultIDToNamespaceCap = 64
)

// valueCache holds the four bounded, concurrency-safe LRU caches of
// spec.md §4.4. hashicorp/golang-lru/v2's Cache is already internally
// mutex-guarded, the same library erigon itself depends on, so no extra
// locking is needed here.
type valueCache struct {
	idToValue     *lru.Cache[ValueID, *Value]
	valueToID     *lru.Cache[string, ValueID] // keyed by canonical encoded bytes
	namespaceToID *lru.Cache[string, ValueID]
	idToNamespace *lru.Cache[ValueID, string]

	hits   atomic.Int64
	misses atomic.Int64
}

func newValueCache(cfg Config) *valueCache {
	idToValue, _ := lru.New[ValueID, *Value](nonZero(cfg.IDToValueCap, DefaultIDToValueCap))
	valueToID, _ := lru.New[string, ValueID](nonZero(cfg.ValueToIDCap, DefaultValueToIDCap))
	namespaceToID, _ := lru.New[string, ValueID](nonZero(cfg.NamespaceToIDCap, DefaultNamespaceToIDCap))
	idToNamespace, _ := lru.New[ValueID, string](nonZero(cfg.IDToNamespaceCap, DefaultIDToNamespaceCap))
	return &valueCache{
		idToValue:     idToValue,
		valueToID:     valueToID,
		namespaceToID: namespaceToID,
		idToNamespace: idToNamespace,
	}
}

func nonZero(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func (c *valueCache) purgeAll() {
	c.idToValue.Purge()
	c.valueToID.Purge()
	c.namespaceToID.Purge()
	c.idToNamespace.Purge()
}

func (c *valueCache) recordHit()  { c.hits.Add(1) }
func (c *valueCache) recordMiss() { c.misses.Add(1) }
