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

import "github.com/erigontech/valuedict/erigon-lib/kv"

// Stats is a point-in-time snapshot of catalog and cache counters,
// analogous to erigon-lib/kv's DBSize/BucketSize operational surface.
type Stats struct {
	NextID      ValueID
	EntryCount  int64
	CacheHits   int64
	CacheMisses int64
}

// Stats reports operational counters under the read lock.
func (d *Dictionary) Stats() (Stats, error) {
	if err := d.checkOpen(); err != nil {
		return Stats{}, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	var count int64
	err := d.withReadTx(func(tx kv.Tx) error {
		c, err := tx.Cursor(kv.Values)
		if err != nil {
			return wrapIO("stats: open cursor", err)
		}
		defer c.Close()
		k, _, err := c.First()
		if err != nil {
			return wrapIO("stats: first", err)
		}
		for k != nil {
			count++
			k, _, err = c.Next()
			if err != nil {
				return wrapIO("stats: next", err)
			}
		}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		NextID:      d.store.nextID(),
		EntryCount:  count,
		CacheHits:   d.cache.hits.Load(),
		CacheMisses: d.cache.misses.Load(),
	}, nil
}
