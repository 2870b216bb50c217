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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erigontech/valuedict/erigon-lib/kv"
	"github.com/erigontech/valuedict/erigon-lib/kv/memdb"
)

func newInternalTestDict(t *testing.T) *Dictionary {
	t.Helper()
	cfg := DefaultConfig(t.TempDir())
	cfg.EngineFactory = func(_ string) (kv.RwDB, error) { return memdb.New(511), nil }
	d, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// TestCheckConsistencyDetectsForwardEntryPointingAtWrongID corrupts the
// store by overwriting one id's forward entry with another id's payload,
// bypassing the public API entirely, and checks that CheckConsistency
// catches the resulting round-trip mismatch (I1/I6).
func TestCheckConsistencyDetectsForwardEntryPointingAtWrongID(t *testing.T) {
	d := newInternalTestDict(t)

	id1, err := d.StoreValue(NewIRI("http://example.org/", "a"))
	require.NoError(t, err)
	id2, err := d.StoreValue(NewIRI("http://example.org/", "b"))
	require.NoError(t, err)
	require.NoError(t, d.CheckConsistency())

	payload2, ok, err := d.withReadTxPayload(id2)
	require.NoError(t, err)
	require.True(t, ok)

	err = d.db.Update(context.Background(), func(rw kv.RwTx) error {
		return rw.Put(kv.Values, idKey(id1), payload2)
	})
	require.NoError(t, err)

	err = d.CheckConsistency()
	require.Error(t, err)
	var ce *CorruptionError
	require.ErrorAs(t, err, &ce)
}

// withReadTxPayload is a tiny test-only helper exposing indexStore.get
// through the Dictionary's normal read-transaction discipline.
func (d *Dictionary) withReadTxPayload(id ValueID) ([]byte, bool, error) {
	var payload []byte
	var ok bool
	err := d.withReadTx(func(tx kv.Tx) error {
		p, o, err := d.store.get(tx, id)
		payload, ok = p, o
		return err
	})
	return payload, ok, err
}
