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

// Package memdb is an in-process kv.RwDB backed by google/btree, used by
// the dictionary's unit tests in place of a real MDBX environment (the
// fast, hermetic path erigon itself uses for its own kv-layer tests). It
// honours the same ordering and set-range/next/prev cursor semantics
// MDBX provides, so tests exercising the overflow-bucket walk behave
// identically against either engine.
package memdb

import (
	"bytes"
	"context"
	"sync"

	"github.com/google/btree"

	"github.com/erigontech/valuedict/erigon-lib/kv"
)

const defaultMaxKeySize = 511 // small on purpose, to exercise overflow buckets in tests

type entry struct {
	k, v []byte
}

func lessEntry(a, b entry) bool { return bytes.Compare(a.k, b.k) < 0 }

// DB is a single-table, mutex-guarded B-tree store.
type DB struct {
	mu         sync.RWMutex
	tree       *btree.BTreeG[entry]
	maxKeySize int
}

// New returns an empty in-memory engine. maxKeySize of 0 uses
// defaultMaxKeySize, matching spec.md's boundary-scenario assumption of
// 511 for overflow-bucket tests.
func New(maxKeySize int) *DB {
	if maxKeySize <= 0 {
		maxKeySize = defaultMaxKeySize
	}
	return &DB{tree: btree.NewG(32, lessEntry), maxKeySize: maxKeySize}
}

func (db *DB) MaxKeySize() int { return db.maxKeySize }
func (db *DB) Close() error    { return nil }

func (db *DB) View(_ context.Context, f func(kv.Tx) error) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return f(&tx{db: db})
}

func (db *DB) Update(_ context.Context, f func(kv.RwTx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	snapshot := db.tree.Clone()
	t := &rwTx{tx: tx{db: db}}
	if err := f(t); err != nil {
		db.tree = snapshot
		return err
	}
	return nil
}

func (db *DB) BeginRo(_ context.Context) (kv.Tx, error) {
	db.mu.RLock()
	return &tx{db: db, unlock: db.mu.RUnlock}, nil
}

func (db *DB) BeginRw(_ context.Context) (kv.RwTx, error) {
	db.mu.Lock()
	return &rwTx{tx: tx{db: db, unlock: db.mu.Unlock, snapshot: db.tree.Clone()}}, nil
}

type tx struct {
	db       *DB
	unlock   func()
	snapshot *btree.BTreeG[entry]
	done     bool
}

func (t *tx) GetOne(_ kv.Table, key []byte) ([]byte, bool, error) {
	e, ok := t.db.tree.Get(entry{k: key})
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), e.v...), true, nil
}

func (t *tx) MaxKeySize() int { return t.db.maxKeySize }

func (t *tx) Cursor(_ kv.Table) (kv.Cursor, error) {
	return &cursor{db: t.db}, nil
}

func (t *tx) Rollback() {
	if t.done {
		return
	}
	t.done = true
	if t.snapshot != nil {
		t.db.tree = t.snapshot
	}
	if t.unlock != nil {
		t.unlock()
	}
}

type rwTx struct{ tx }

func (t *rwTx) Put(_ kv.Table, k, v []byte) error {
	t.db.tree.ReplaceOrInsert(entry{k: append([]byte(nil), k...), v: append([]byte(nil), v...)})
	return nil
}

func (t *rwTx) RwCursor(_ kv.Table) (kv.RwCursor, error) {
	return &cursor{db: t.db}, nil
}

func (t *rwTx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	t.snapshot = nil // drop rollback snapshot: writes stay committed
	if t.unlock != nil {
		t.unlock()
	}
	return nil
}

// cursor walks t.db.tree in key order. It keeps its own position as a
// key (not a btree iterator handle, which google/btree does not expose
// across mutations) so Next/Prev remain valid even though puts can
// happen between cursor calls within the same write transaction.
type cursor struct {
	db      *DB
	have    bool
	pos     entry
	atFirst bool
}

func (c *cursor) First() ([]byte, []byte, error) {
	var found entry
	ok := false
	c.db.tree.Ascend(func(e entry) bool {
		found, ok = e, true
		return false
	})
	return c.land(found, ok)
}

func (c *cursor) Last() ([]byte, []byte, error) {
	var found entry
	ok := false
	c.db.tree.Descend(func(e entry) bool {
		found, ok = e, true
		return false
	})
	return c.land(found, ok)
}

func (c *cursor) Seek(seek []byte) ([]byte, []byte, error) {
	var found entry
	ok := false
	c.db.tree.AscendGreaterOrEqual(entry{k: seek}, func(e entry) bool {
		found, ok = e, true
		return false
	})
	return c.land(found, ok)
}

func (c *cursor) SeekExact(key []byte) ([]byte, bool, error) {
	e, ok := c.db.tree.Get(entry{k: key})
	if !ok {
		return nil, false, nil
	}
	c.have, c.pos = true, e
	return append([]byte(nil), e.v...), true, nil
}

func (c *cursor) Next() ([]byte, []byte, error) {
	if !c.have {
		return c.First()
	}
	var found entry
	ok := false
	first := true
	c.db.tree.AscendGreaterOrEqual(c.pos, func(e entry) bool {
		if first {
			first = false
			return true // skip current position
		}
		found, ok = e, true
		return false
	})
	return c.land(found, ok)
}

func (c *cursor) Prev() ([]byte, []byte, error) {
	if !c.have {
		return c.Last()
	}
	var found entry
	ok := false
	first := true
	c.db.tree.DescendLessOrEqual(c.pos, func(e entry) bool {
		if first {
			first = false
			return true
		}
		found, ok = e, true
		return false
	})
	return c.land(found, ok)
}

func (c *cursor) Current() ([]byte, []byte, error) {
	if !c.have {
		return nil, nil, nil
	}
	e, ok := c.db.tree.Get(c.pos)
	if !ok {
		return nil, nil, nil
	}
	return append([]byte(nil), e.k...), append([]byte(nil), e.v...), nil
}

func (c *cursor) Put(k, v []byte) error {
	e := entry{k: append([]byte(nil), k...), v: append([]byte(nil), v...)}
	c.db.tree.ReplaceOrInsert(e)
	c.have, c.pos = true, e
	return nil
}

func (c *cursor) Close() {}

func (c *cursor) land(e entry, ok bool) ([]byte, []byte, error) {
	if !ok {
		c.have = false
		return nil, nil, nil
	}
	c.have, c.pos = true, e
	return append([]byte(nil), e.k...), append([]byte(nil), e.v...), nil
}
