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

// Package mdbx implements the kv.RwDB contract on top of
// github.com/erigontech/mdbx-go, the same engine erigon uses for its own
// chaindata. It is a deliberately small slice of erigon-lib/kv/mdbx: one
// DBI, no DupSort, no temporal domains - just env/txn/cursor plumbing.
package mdbx

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/erigontech/mdbx-go/mdbx"

	"github.com/erigontech/valuedict/erigon-lib/kv"
)

// defaultMapSize mirrors erigon's habit of opening chaindata with a large
// virtual address space reservation; MDBX only grows the file as pages
// are actually used.
const defaultMapSize = 2 << 30 // 2 GiB

// DB wraps an *mdbx.Env opened against a single DBI (kv.Values).
type DB struct {
	env      *mdbx.Env
	dbi      mdbx.DBI
	path     string
	syncMode bool
}

// Opts configures Open, following erigon-lib's builder-ish MdbxOpts shape
// trimmed to the handful of knobs the dictionary actually uses.
type Opts struct {
	Path     string
	MapSize  uint64 // bytes; 0 => defaultMapSize
	ForceSync bool  // fsync on every commit (spec.md §6 force-sync flag)
	ReadOnly bool
}

// Open creates (if needed) Path and opens an MDBX environment with a
// single DBI named after kv.Values.
func Open(opts Opts) (*DB, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("mdbx: empty path")
	}
	if err := os.MkdirAll(opts.Path, 0o755); err != nil {
		return nil, fmt.Errorf("mdbx: mkdir %s: %w", opts.Path, err)
	}
	env, err := mdbx.NewEnv()
	if err != nil {
		return nil, fmt.Errorf("mdbx: new env: %w", err)
	}
	mapSize := opts.MapSize
	if mapSize == 0 {
		mapSize = defaultMapSize
	}
	if err := env.SetGeometry(-1, -1, int(mapSize), -1, -1, -1); err != nil {
		env.Close()
		return nil, fmt.Errorf("mdbx: set geometry: %w", err)
	}
	if err := env.SetMaxDBs(1); err != nil {
		env.Close()
		return nil, fmt.Errorf("mdbx: set max dbs: %w", err)
	}

	var flags uint
	if opts.ReadOnly {
		flags |= mdbx.Readonly
	}
	if !opts.ForceSync {
		// erigon runs its chaindata with WriteMap|NoMetaSync by default and
		// only forces a durable sync when the caller asks for it.
		flags |= mdbx.WriteMap | mdbx.NoMetaSync
	} else {
		flags |= mdbx.WriteMap | mdbx.Durable
	}

	if err := env.Open(filepath.Clean(opts.Path), flags, 0o644); err != nil {
		env.Close()
		return nil, fmt.Errorf("mdbx: open %s: %w", opts.Path, err)
	}

	db := &DB{env: env, path: opts.Path, syncMode: opts.ForceSync}

	if err := db.createDBI(); err != nil {
		env.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) createDBI() error {
	txn, err := db.env.BeginTxn(nil, 0)
	if err != nil {
		return fmt.Errorf("mdbx: begin txn: %w", err)
	}
	dbi, err := txn.OpenDBISimple(string(kv.Values), mdbx.Create)
	if err != nil {
		txn.Abort()
		return fmt.Errorf("mdbx: open dbi: %w", err)
	}
	if _, err := txn.Commit(); err != nil {
		return fmt.Errorf("mdbx: commit dbi open: %w", err)
	}
	db.dbi = dbi
	return nil
}

// MaxKeySize reports MDBX's compiled-in key length limit.
func (db *DB) MaxKeySize() int { return mdbx.MaxKeySize(0) }

// Close shuts the environment down. Idempotent.
func (db *DB) Close() error {
	if db.env == nil {
		return nil
	}
	db.env.Close()
	db.env = nil
	return nil
}

// Path returns the directory the environment was opened against.
func (db *DB) Path() string { return db.path }

func (db *DB) View(ctx context.Context, f func(kv.Tx) error) error {
	tx, err := db.BeginRo(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	return f(tx)
}

func (db *DB) Update(ctx context.Context, f func(kv.RwTx) error) error {
	tx, err := db.BeginRw(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := f(tx); err != nil {
		return err
	}
	return tx.(*rwTx).Commit()
}

func (db *DB) BeginRo(_ context.Context) (kv.Tx, error) {
	runtime.LockOSThread()
	txn, err := db.env.BeginTxn(nil, mdbx.Readonly)
	if err != nil {
		runtime.UnlockOSThread()
		return nil, fmt.Errorf("mdbx: begin ro txn: %w", err)
	}
	return &roTx{db: db, txn: txn}, nil
}

func (db *DB) BeginRw(_ context.Context) (kv.RwTx, error) {
	runtime.LockOSThread()
	txn, err := db.env.BeginTxn(nil, 0)
	if err != nil {
		runtime.UnlockOSThread()
		return nil, fmt.Errorf("mdbx: begin rw txn: %w", err)
	}
	return &rwTx{roTx: roTx{db: db, txn: txn}}, nil
}

type roTx struct {
	db     *DB
	txn    *mdbx.Txn
	closed bool
}

func (t *roTx) GetOne(table kv.Table, key []byte) ([]byte, bool, error) {
	v, err := t.txn.Get(t.db.dbi, key)
	if err != nil {
		if mdbx.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("mdbx: get: %w", err)
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (t *roTx) Cursor(table kv.Table) (kv.Cursor, error) {
	c, err := t.txn.OpenCursor(t.db.dbi)
	if err != nil {
		return nil, fmt.Errorf("mdbx: open cursor: %w", err)
	}
	return &cursor{c: c}, nil
}

func (t *roTx) MaxKeySize() int { return t.db.MaxKeySize() }

func (t *roTx) Rollback() {
	if t.closed {
		return
	}
	t.closed = true
	t.txn.Abort()
	runtime.UnlockOSThread()
}

type rwTx struct {
	roTx
}

func (t *rwTx) Put(table kv.Table, k, v []byte) error {
	if err := t.txn.Put(t.db.dbi, k, v, 0); err != nil {
		return fmt.Errorf("mdbx: put: %w", err)
	}
	return nil
}

func (t *rwTx) RwCursor(table kv.Table) (kv.RwCursor, error) {
	c, err := t.txn.OpenCursor(t.db.dbi)
	if err != nil {
		return nil, fmt.Errorf("mdbx: open rw cursor: %w", err)
	}
	return &cursor{c: c}, nil
}

func (t *rwTx) Commit() error {
	if t.closed {
		return nil
	}
	t.closed = true
	defer runtime.UnlockOSThread()
	if _, err := t.txn.Commit(); err != nil {
		return fmt.Errorf("mdbx: commit: %w", err)
	}
	return nil
}

type cursor struct{ c *mdbx.Cursor }

func (cu *cursor) First() ([]byte, []byte, error) { return cu.get(mdbx.First) }
func (cu *cursor) Seek(seek []byte) ([]byte, []byte, error) {
	k, v, err := cu.c.Get(seek, nil, mdbx.SetRange)
	return okOrEmpty(k, v, err)
}
func (cu *cursor) SeekExact(key []byte) ([]byte, bool, error) {
	_, v, err := cu.c.Get(key, nil, mdbx.Set)
	if err != nil {
		if mdbx.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("mdbx: cursor seek exact: %w", err)
	}
	return cloneBytes(v), true, nil
}
func (cu *cursor) Next() ([]byte, []byte, error)    { return cu.get(mdbx.Next) }
func (cu *cursor) Prev() ([]byte, []byte, error)    { return cu.get(mdbx.Prev) }
func (cu *cursor) Last() ([]byte, []byte, error)    { return cu.get(mdbx.Last) }
func (cu *cursor) Current() ([]byte, []byte, error) { return cu.get(mdbx.GetCurrent) }
func (cu *cursor) Put(k, v []byte) error {
	if err := cu.c.Put(k, v, 0); err != nil {
		return fmt.Errorf("mdbx: cursor put: %w", err)
	}
	return nil
}
func (cu *cursor) Close() { cu.c.Close() }

func (cu *cursor) get(op mdbx.CursorOp) ([]byte, []byte, error) {
	k, v, err := cu.c.Get(nil, nil, op)
	return okOrEmpty(k, v, err)
}

func okOrEmpty(k, v []byte, err error) ([]byte, []byte, error) {
	if err != nil {
		if mdbx.IsNotFound(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("mdbx: cursor get: %w", err)
	}
	return cloneBytes(k), cloneBytes(v), nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
