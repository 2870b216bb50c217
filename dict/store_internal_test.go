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
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erigontech/valuedict/erigon-lib/kv"
	"github.com/erigontech/valuedict/erigon-lib/kv/memdb"
)

func TestIndexStoreRecoverNextIDOnEmptyStore(t *testing.T) {
	db := memdb.New(64)
	s, err := openIndexStore(db)
	require.NoError(t, err)
	require.Equal(t, ValueID(1), s.nextID())
}

func TestIndexStoreRecoverNextIDAfterEntries(t *testing.T) {
	db := memdb.New(64)
	s, err := openIndexStore(db)
	require.NoError(t, err)

	err = db.Update(context.Background(), func(rw kv.RwTx) error {
		for id := ValueID(1); id <= 5; id++ {
			if err := s.storeBidirectional(rw, id, []byte("payload-"+string(rune('0'+int(id))))); err != nil {
				return err
			}
			s.alloc.next = id + 1
		}
		return nil
	})
	require.NoError(t, err)

	reopened, err := openIndexStore(db)
	require.NoError(t, err)
	require.Equal(t, ValueID(6), reopened.nextID())
}

func TestIndexStoreDirectFindRoundTrip(t *testing.T) {
	db := memdb.New(64)
	s, err := openIndexStore(db)
	require.NoError(t, err)

	const payload = "short-payload"
	err = db.Update(context.Background(), func(rw kv.RwTx) error {
		id := s.alloc.allocate()
		return s.storeBidirectional(rw, id, []byte(payload))
	})
	require.NoError(t, err)

	err = db.View(context.Background(), func(tx kv.Tx) error {
		id, err := s.findID(tx, []byte(payload))
		require.NoError(t, err)
		require.Equal(t, ValueID(1), id)
		return nil
	})
	require.NoError(t, err)
}

func TestIndexStoreOverflowBucketRoundTrip(t *testing.T) {
	db := memdb.New(32) // force everything above a few bytes into overflow
	s, err := openIndexStore(db)
	require.NoError(t, err)

	payloads := []string{
		strings.Repeat("a", 64),
		strings.Repeat("b", 64),
		strings.Repeat("c", 64),
	}
	ids := make([]ValueID, len(payloads))

	err = db.Update(context.Background(), func(rw kv.RwTx) error {
		for i, p := range payloads {
			id := s.alloc.allocate()
			ids[i] = id
			if err := s.storeBidirectional(rw, id, []byte(p)); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	err = db.View(context.Background(), func(tx kv.Tx) error {
		for i, p := range payloads {
			got, err := s.findID(tx, []byte(p))
			require.NoError(t, err)
			require.Equal(t, ids[i], got, "payload %d should resolve to its own id via the overflow bucket walk", i)
		}
		missing, err := s.findID(tx, []byte(strings.Repeat("z", 64)))
		require.NoError(t, err)
		require.Equal(t, UnknownID, missing)
		return nil
	})
	require.NoError(t, err)
}

func TestIdKeyDecodeRejectsWrongShapeOrPrefix(t *testing.T) {
	_, ok := decodeIDKey([]byte{hashKeyPrefix, 0, 0, 0, 0, 0, 0, 0, 1})
	require.False(t, ok)

	_, ok = decodeIDKey([]byte{idKeyPrefix, 0, 0})
	require.False(t, ok)

	id, ok := decodeIDKey(idKey(42))
	require.True(t, ok)
	require.Equal(t, ValueID(42), id)
}
