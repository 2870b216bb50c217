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
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/erigontech/valuedict/erigon-lib/kv"
)

// Key discriminants, spec.md §3 Entry.
const (
	idKeyPrefix   byte = 0x00
	hashKeyPrefix byte = 0x01
)

// idKey builds the ID_KEY ‖ id key (spec.md §3).
func idKey(id ValueID) []byte {
	buf := make([]byte, 9)
	buf[0] = idKeyPrefix
	binary.BigEndian.PutUint64(buf[1:], uint64(id))
	return buf
}

// decodeIDKey parses an ID_KEY ‖ id key, returning ok=false if k does not
// have the right shape/prefix.
func decodeIDKey(k []byte) (ValueID, bool) {
	if len(k) != 9 || k[0] != idKeyPrefix {
		return 0, false
	}
	return ValueID(binary.BigEndian.Uint64(k[1:])), true
}

// hashBucketKey builds the HASH_KEY ‖ crc32 ‖ bucket-index key (spec.md
// §3, §4.2).
func hashBucketKey(h uint32, bucket uint64) []byte {
	buf := make([]byte, 17)
	buf[0] = hashKeyPrefix
	binary.BigEndian.PutUint64(buf[1:9], uint64(h))
	binary.BigEndian.PutUint64(buf[9:], bucket)
	return buf
}

// hashPrefix returns the first 9 bytes of a hashBucketKey (HASH_KEY ‖
// crc32), used to detect when a cursor walk has left the current
// collision chain (spec.md §4.2 "Bounds & tie-breaking").
func hashPrefix(h uint32) []byte {
	buf := make([]byte, 9)
	buf[0] = hashKeyPrefix
	binary.BigEndian.PutUint64(buf[1:], uint64(h))
	return buf
}

// indexStore implements the dual-indexing scheme of spec.md §4.2 over a
// single kv.Table. It holds no locks itself - the caller (Dictionary)
// supplies the surrounding RWMutex discipline of spec.md §4.5 - but it
// does own nextID, which must only be mutated from inside a write
// transaction (spec.md §4.3).
type indexStore struct {
	db    kv.RwDB
	alloc idAllocator
}

// openIndexStore recovers nextID from the highest existing ID_KEY
// (spec.md §4.2 "Recovery") and returns a ready indexStore.
func openIndexStore(db kv.RwDB) (*indexStore, error) {
	s := &indexStore{db: db}
	if err := s.recoverNextID(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *indexStore) recoverNextID() error {
	return s.db.View(context.Background(), func(tx kv.Tx) error {
		c, err := tx.Cursor(kv.Values)
		if err != nil {
			return wrapIO("recover: open cursor", err)
		}
		defer c.Close()

		// Position at (ID_KEY ‖ 0xFF...) via set-range, then step back -
		// spec.md §4.2 Recovery. 0xFF×8 sorts after every real ID_KEY but
		// before any HASH_KEY/reverse entry, since ID_KEY (0x00) always
		// sorts first among the three kinds.
		ceiling := make([]byte, 9)
		ceiling[0] = idKeyPrefix
		for i := 1; i < 9; i++ {
			ceiling[i] = 0xFF
		}
		k, _, err := c.Seek(ceiling)
		if err != nil {
			return wrapIO("recover: seek", err)
		}
		if k != nil {
			// Seek lands at-or-after ceiling; since no real key equals
			// ceiling, step back to the true maximum ID_KEY (if any).
			k, _, err = c.Prev()
		} else {
			k, _, err = c.Last()
		}
		if err != nil {
			return wrapIO("recover: position", err)
		}
		if id, ok := decodeIDKey(k); ok {
			s.alloc.next = id + 1
			return nil
		}
		s.alloc.next = 1
		return nil
	})
}

// nextID reports the allocator's current high-water mark, i.e. the ID
// that would be assigned next (spec.md I4: nextId = 1 + max existing).
func (s *indexStore) nextID() ValueID { return s.alloc.next }

// get returns the forward payload for id, or ok=false if absent.
func (s *indexStore) get(tx kv.Tx, id ValueID) (payload []byte, ok bool, err error) {
	v, ok, err := tx.GetOne(kv.Values, idKey(id))
	if err != nil {
		return nil, false, wrapIO("get", err)
	}
	return v, ok, nil
}

// findID looks up payload in the reverse index, returning UnknownID if
// absent (spec.md §4.2 "Lookup").
func (s *indexStore) findID(tx kv.Tx, payload []byte) (ValueID, error) {
	if len(payload) < tx.MaxKeySize() {
		v, ok, err := tx.GetOne(kv.Values, payload)
		if err != nil {
			return UnknownID, wrapIO("findID: direct get", err)
		}
		if !ok {
			return UnknownID, nil
		}
		id, ok := decodeIDKey(v)
		if !ok {
			return UnknownID, fmt.Errorf("%w: reverse entry does not hold an ID_KEY", ErrCorruption)
		}
		return id, nil
	}
	return s.findOverflow(tx, payload)
}

func (s *indexStore) findOverflow(tx kv.Tx, payload []byte) (ValueID, error) {
	h := crc32.ChecksumIEEE(payload)
	c, err := tx.Cursor(kv.Values)
	if err != nil {
		return UnknownID, wrapIO("findID: open cursor", err)
	}
	defer c.Close()

	prefix := hashPrefix(h)
	k, v, err := c.Seek(hashBucketKey(h, 0))
	if err != nil {
		return UnknownID, wrapIO("findID: seek", err)
	}
	for k != nil && hasPrefix(k, prefix) {
		candidateID, ok := decodeIDKey(v)
		if !ok {
			return UnknownID, fmt.Errorf("%w: overflow bucket entry does not hold an ID_KEY", ErrCorruption)
		}
		candidate, ok, err := s.get(tx, candidateID)
		if err != nil {
			return UnknownID, err
		}
		if ok && bytes.Equal(candidate, payload) {
			return candidateID, nil
		}
		k, v, err = c.Next()
		if err != nil {
			return UnknownID, wrapIO("findID: next", err)
		}
	}
	return UnknownID, nil
}

// storeBidirectional writes both the forward (ID_KEY -> payload) and
// reverse (payload -> ID_KEY, direct or overflow) entries for a freshly
// allocated id (spec.md §4.2 "Write").
func (s *indexStore) storeBidirectional(tx kv.RwTx, id ValueID, payload []byte) error {
	if err := tx.Put(kv.Values, idKey(id), payload); err != nil {
		return wrapIO("store: put forward", err)
	}
	if len(payload) < tx.MaxKeySize() {
		if err := tx.Put(kv.Values, payload, idKey(id)); err != nil {
			return wrapIO("store: put reverse", err)
		}
		return nil
	}
	return s.storeOverflow(tx, id, payload)
}

func (s *indexStore) storeOverflow(tx kv.RwTx, id ValueID, payload []byte) error {
	h := crc32.ChecksumIEEE(payload)
	c, err := tx.RwCursor(kv.Values)
	if err != nil {
		return wrapIO("store: open rw cursor", err)
	}
	defer c.Close()

	prefix := hashPrefix(h)
	var bucket uint64
	k, _, err := c.Seek(hashBucketKey(h, 0))
	if err != nil {
		return wrapIO("store: seek bucket", err)
	}
	for k != nil && hasPrefix(k, prefix) {
		bucket++
		k, _, err = c.Next()
		if err != nil {
			return wrapIO("store: count bucket", err)
		}
	}
	if err := c.Put(hashBucketKey(h, bucket), idKey(id)); err != nil {
		return wrapIO("store: put bucket entry", err)
	}
	return nil
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}

