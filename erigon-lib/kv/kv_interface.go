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

// Package kv is the minimal ordered key-value engine contract consumed by
// the value dictionary. It purposefully mirrors the shape of
// erigon-lib/kv's own Tx/Cursor abstraction over MDBX, trimmed to the
// primitives a single-table dictionary needs: get/put under a
// transaction, and cursors supporting set-range/next/prev/last.
//
// Variables naming follows erigon-lib/kv: tx - database transaction,
// RoTx - read-only transaction, RwTx - read-write transaction, k/v - key/value.
package kv

import "context"

// notFoundError backs ErrKeyNotFound. The engine adapters in this module
// (MDBX, in-memory btree) do not return it: they translate their own
// not-found condition into GetOne's (nil, false, nil) result, which is
// the absence signal callers in dict/ rely on.
type notFoundError struct{}

func (notFoundError) Error() string { return "kv: key not found" }

// ErrKeyNotFound is the canonical not-found sentinel for engine adapters.
var ErrKeyNotFound error = notFoundError{}

// Table is the single logical keyspace this package's consumers address.
// The backing engine may implement it as an MDBX sub-database, a prefix
// within a single B-tree, or anything else preserving lexicographic
// ordering of byte-string keys.
type Table string

// Getter is the read surface of a transaction.
type Getter interface {
	// GetOne returns the value stored for key, and ok=false if absent.
	// The returned slice must not be retained or mutated after the
	// transaction completes for engines that return a zero-copy view
	// (e.g. MDBX memory-mapped pages).
	GetOne(table Table, key []byte) (val []byte, ok bool, err error)

	// Cursor opens a cursor over table, valid only for the lifetime of
	// the transaction that created it.
	Cursor(table Table) (Cursor, error)

	// MaxKeySize reports the engine's maximum key length in bytes.
	// Payloads at or above this size must be routed through the
	// overflow-bucket scheme rather than used directly as a key.
	MaxKeySize() int
}

// Putter is the write surface of a read-write transaction.
type Putter interface {
	Put(table Table, k, v []byte) error
}

// Tx is a read-only transaction. It is not safe for concurrent use by
// multiple goroutines.
type Tx interface {
	Getter
	// Rollback ends the transaction, discarding any writes that were
	// issued against it. Safe to call on an already-committed/rolled-
	// back transaction (idempotent).
	Rollback()
}

// RwTx is a read-write transaction.
type RwTx interface {
	Tx
	Putter

	// RwCursor opens a writable cursor.
	RwCursor(table Table) (RwCursor, error)

	// Commit finalizes the transaction's writes. After Commit returns
	// without error, the writes are durable per the engine's sync
	// policy and visible to new transactions.
	Commit() error
}

// Cursor walks a table in key order.
//
// If a method returns a nil key, the cursor is exhausted (before-first
// or past-last); callers must not treat a nil key as an error.
type Cursor interface {
	First() (k, v []byte, err error)
	// Seek positions at the first key >= seek (MDBX set-range semantics).
	Seek(seek []byte) (k, v []byte, err error)
	SeekExact(key []byte) (v []byte, ok bool, err error)
	Next() (k, v []byte, err error)
	Prev() (k, v []byte, err error)
	Last() (k, v []byte, err error)
	Current() (k, v []byte, err error)
	Close()
}

// RwCursor additionally allows positioned writes.
type RwCursor interface {
	Cursor
	Put(k, v []byte) error
}

// RoDB is a read-only handle to the backing engine.
type RoDB interface {
	View(ctx context.Context, f func(tx Tx) error) error
	MaxKeySize() int
	Close() error
}

// RwDB is a read-write handle to the backing engine - the thing
// dict.Dictionary opens at startup and closes/reopens across clear().
type RwDB interface {
	RoDB
	Update(ctx context.Context, f func(tx RwTx) error) error

	BeginRo(ctx context.Context) (Tx, error)
	BeginRw(ctx context.Context) (RwTx, error)
}
