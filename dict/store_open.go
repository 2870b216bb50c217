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
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"github.com/erigontech/valuedict/erigon-lib/kv"
	"github.com/erigontech/valuedict/erigon-lib/kv/mdbx"
)

// Dictionary is the public API of spec.md §4.6: the persistent
// content-addressed value dictionary composing the Encoder, IndexStore,
// IDAllocator, ValueCache, and Revision/locking components.
type Dictionary struct {
	cfg Config

	// mu is the catalog lock of spec.md §4.5 (sync.RWMutex, so a waiting
	// writer blocks new readers): the lookup and store operations take
	// the read side, which is why concurrent ID creation is allowed to
	// proceed while clear() is not in flight - only clear() and Close take
	// the write side and exclude everything else.
	mu sync.RWMutex

	db    kv.RwDB
	store *indexStore
	cache *valueCache

	rev    atomic.Pointer[Revision]
	revSeq atomic.Uint64

	flock *flock.Flock

	// tx guards the optional explicit transaction started via
	// StartTransaction. The backing engine (MDBX, or memdb in tests)
	// already serializes concurrent writers on its own, so this mutex
	// only protects the Go-level bookkeeping of "is there a caller-owned
	// RwTx right now", not the writes themselves.
	tx struct {
		sync.Mutex
		active        kv.RwTx
		allocSnapshot ValueID
		pending       *pendingOps
	}

	closed atomic.Bool
}

// Open opens (creating if necessary) the dictionary rooted at cfg.Dir,
// recovering nextID from the highest existing ID_KEY (spec.md §4.2
// Recovery, I4).
func Open(cfg Config) (*Dictionary, error) {
	d := &Dictionary{cfg: cfg}
	if err := d.open(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dictionary) open() error {
	dir := filepath.Join(d.cfg.Dir, "values")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return wrapIO("open: mkdir", err)
	}

	fl := flock.New(filepath.Join(dir, "LOCK"))
	locked, err := fl.TryLock()
	if err != nil {
		return wrapIO("open: flock", err)
	}
	if !locked {
		return fmt.Errorf("dict: values directory %s is already locked by another process", dir)
	}
	d.flock = fl

	db, err := d.openEngine(dir)
	if err != nil {
		_ = fl.Unlock()
		return err
	}
	return d.attach(db)
}

// openEngine opens the backing engine at dir, honouring
// Config.EngineFactory when the caller supplied one (tests use this to
// substitute erigon-lib/kv/memdb for a real MDBX environment); the
// default is the MDBX adapter.
func (d *Dictionary) openEngine(dir string) (kv.RwDB, error) {
	if d.cfg.EngineFactory != nil {
		return d.cfg.EngineFactory(dir)
	}
	return mdbx.Open(mdbx.Opts{
		Path:      dir,
		MapSize:   uint64(d.cfg.MapSize.Bytes()),
		ForceSync: d.cfg.ForceSync,
	})
}

// reopenEngine is openEngine without the flock dance, used by Clear()
// after the directory has already been truncated and the flock is still
// held from the original Open.
func (d *Dictionary) reopenEngine(dir string) (kv.RwDB, error) {
	return d.openEngine(dir)
}

// attach wires a freshly-opened backing engine into the dictionary,
// recovering nextID and issuing the initial Revision. Used both by open
// and by clear() to reopen after truncation.
func (d *Dictionary) attach(db kv.RwDB) error {
	store, err := openIndexStore(db)
	if err != nil {
		db.Close()
		return err
	}
	d.db = db
	d.store = store
	d.cache = newValueCache(d.cfg)
	d.installRevision()
	d.cfg.logger().Debug("dict: opened", "dir", d.cfg.Dir, "nextId", uint64(d.store.nextID()))
	return nil
}

func (d *Dictionary) installRevision() {
	seq := d.revSeq.Add(1)
	d.rev.Store(newRevision(seq))
}

func (d *Dictionary) currentRevision() *Revision { return d.rev.Load() }

// Close shuts the dictionary down. Idempotent. Aborts any open explicit
// write transaction (spec.md §5 "Resource discipline").
func (d *Dictionary) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
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

	err := d.db.Close()
	if d.flock != nil {
		_ = d.flock.Unlock()
	}
	return err
}

func (d *Dictionary) checkOpen() error {
	if d.closed.Load() {
		return ErrClosed
	}
	return nil
}
