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
	"fmt"
	"os"
	"path/filepath"
)

// Clear discards the entire catalog: every assigned ID, every namespace,
// every cached entry. Apart from Close, it is the only operation that
// takes the write side of the writer-preferring catalog lock (spec.md
// §4.5); the lookup, store, dump and stats methods hold only the read
// side for their duration, which is why concurrent ID creation is
// allowed to proceed against an open store but never against one being
// cleared.
//
// Per spec.md §4.5 rule 3, the new Revision is installed only after the
// underlying data has been truncated and the store reopened, so every
// ID stamped under the old Revision becomes invalid in one atomic
// pointer swap (I5) without touching a single Value object.
func (d *Dictionary) Clear() error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	d.tx.Lock()
	if d.tx.active != nil {
		d.tx.active.Rollback()
		d.tx.active = nil
	}
	d.tx.pending = nil
	d.tx.Unlock()

	// Caches are emptied before reopening (spec.md §4.4), so a stale hit
	// can never be served from an entry whose backing file is about to
	// be deleted.
	d.cache.purgeAll()

	dir := filepath.Join(d.cfg.Dir, "values")
	if err := d.db.Close(); err != nil {
		return wrapIO("clear: close", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return wrapIO("clear: readdir", err)
	}
	for _, e := range entries {
		if e.Name() == "LOCK" {
			continue // the flock file; held by this process for the store's lifetime
		}
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return wrapIO(fmt.Sprintf("clear: remove %s", e.Name()), err)
		}
	}

	db, err := d.reopenEngine(dir)
	if err != nil {
		return err
	}
	if err := d.attach(db); err != nil {
		return err
	}
	d.cfg.logger().Warn("dict: cleared", "dir", d.cfg.Dir)
	return nil
}
