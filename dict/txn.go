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
	"context"

	"github.com/erigontech/valuedict/erigon-lib/kv"
)

// StartTransaction opens an explicit write transaction that subsequent
// mutating calls (StoreValue, GetNamespaceID with create, Clear is
// exempt) will reuse instead of opening their own short transaction
// (spec.md §4.6). Only one explicit transaction may be active at a time;
// per spec.md §5, concurrent writers are serialized externally by
// convention - this call blocks until the backing engine grants the
// write transaction.
func (d *Dictionary) StartTransaction(ctx context.Context) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	rw, err := d.db.BeginRw(ctx)
	if err != nil {
		return err
	}
	d.tx.Lock()
	defer d.tx.Unlock()
	d.tx.active = rw
	d.tx.allocSnapshot = d.store.alloc.snapshot()
	d.tx.pending = newPendingOps()
	return nil
}

// Commit finalizes the active explicit transaction, installing every
// cache entry and value stamp discovered along the way (spec.md §5, §7:
// none of it was observable until now). No-op if none is active.
func (d *Dictionary) Commit() error {
	d.tx.Lock()
	rw := d.tx.active
	pending := d.tx.pending
	snapshot := d.tx.allocSnapshot
	d.tx.active = nil
	d.tx.pending = nil
	d.tx.Unlock()
	if rw == nil {
		return nil
	}
	if err := rw.Commit(); err != nil {
		d.store.alloc.restore(snapshot)
		return wrapIO("commit", err)
	}
	d.applyPending(pending)
	return nil
}

// Rollback abandons the active explicit transaction, restoring the ID
// allocator to the snapshot taken at StartTransaction (spec.md §4.3) and
// discarding every cache entry and value stamp queued during it - they
// were never applied to begin with, so there is nothing to undo.
func (d *Dictionary) Rollback() {
	d.tx.Lock()
	rw := d.tx.active
	d.tx.active = nil
	d.tx.pending = nil
	if rw != nil {
		d.store.alloc.restore(d.tx.allocSnapshot)
	}
	d.tx.Unlock()
	if rw != nil {
		rw.Rollback()
	}
}

// withReadTx runs f against a read-only view: the active explicit write
// transaction if one is open (a RwTx satisfies kv.Tx), otherwise a fresh
// short read transaction.
func (d *Dictionary) withReadTx(f func(tx kv.Tx) error) error {
	d.tx.Lock()
	active := d.tx.active
	d.tx.Unlock()
	if active != nil {
		return f(active)
	}
	return d.db.View(context.Background(), func(tx kv.Tx) error { return f(tx) })
}

// withWriteTx runs f against a write transaction: the active explicit
// one if present (left open - the caller commits/rolls back explicitly,
// and f's pending cache/stamp mutations ride along in the explicit
// transaction's own pendingOps), otherwise a short transaction opened
// and committed/rolled back around f, with the ID allocator
// snapshot/restored on failure (spec.md §4.3). Either way, f receives
// the pendingOps it must queue its cache/stamp discoveries into rather
// than mutating the shared caches directly - those are only installed
// once the transaction is known to have committed (spec.md §5, §7).
func (d *Dictionary) withWriteTx(f func(tx kv.RwTx, pending *pendingOps) error) error {
	d.tx.Lock()
	active := d.tx.active
	activePending := d.tx.pending
	d.tx.Unlock()
	if active != nil {
		return f(active, activePending)
	}

	snapshot := d.store.alloc.snapshot()
	rw, err := d.db.BeginRw(context.Background())
	if err != nil {
		return err
	}
	pending := newPendingOps()
	if err := f(rw, pending); err != nil {
		d.store.alloc.restore(snapshot)
		rw.Rollback()
		return err
	}
	if err := rw.Commit(); err != nil {
		d.store.alloc.restore(snapshot)
		return wrapIO("commit", err)
	}
	d.applyPending(pending)
	return nil
}
