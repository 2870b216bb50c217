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

	"github.com/erigontech/valuedict/erigon-lib/kv"
)

// txResolver adapts a Dictionary + in-flight transaction into the
// resolver interface encodeValue/decodeValue need, so a single code path
// serves both read-only lookups and create-mode stores. pending is
// threaded through so that any cache entry a resolved namespace or
// datatype would otherwise populate immediately is instead queued
// behind whatever transaction is in flight (nil when none is - see
// Dictionary.currentPending).
type txResolver struct {
	d       *Dictionary
	tx      kv.Tx   // always set
	rw      kv.RwTx // set only when create-mode writes are possible
	pending *pendingOps
}

func (r *txResolver) resolveNamespaceID(ns string, create bool) (ValueID, error) {
	if create {
		return r.d.getOrCreateNamespaceID(r.rw, ns, r.pending)
	}
	return r.d.lookupNamespaceID(r.tx, ns, r.pending)
}

func (r *txResolver) resolveNamespace(id ValueID) (string, error) {
	return r.d.lookupNamespaceByID(r.tx, id, r.pending)
}

func (r *txResolver) resolveDatatypeID(dt *Value, create bool) (ValueID, error) {
	if create {
		return r.d.getOrCreateValueID(r.rw, dt, r.pending)
	}
	return r.d.lookupValueID(r.tx, dt, r.pending)
}

func (r *txResolver) resolveDatatype(id ValueID) (*Value, error) {
	return r.d.lookupValueByID(r.tx, id, r.pending)
}

// lookupNamespaceID resolves ns to its ID without creating it. A hit
// against an already-populated cache entry can only reflect committed
// data (nothing is ever added to the cache before its transaction
// commits), so it is always reported immediately; a fresh find against
// the index is queued to pending instead of cached directly whenever a
// transaction is in flight, since the index itself cannot tell the
// caller whether the match predates this transaction or was written by
// it moments ago and is still uncommitted.
func (d *Dictionary) lookupNamespaceID(tx kv.Tx, ns string, pending *pendingOps) (ValueID, error) {
	if id, ok := d.cache.namespaceToID.Get(ns); ok {
		d.cache.recordHit()
		return id, nil
	}
	d.cache.recordMiss()
	id, err := d.store.findID(tx, []byte(ns))
	if err != nil {
		return UnknownID, err
	}
	if id != UnknownID {
		d.cacheNamespace(pending, ns, id)
	}
	return id, nil
}

func (d *Dictionary) cacheNamespace(pending *pendingOps, ns string, id ValueID) {
	if pending != nil {
		pending.addNamespace(ns, id)
		return
	}
	d.cache.namespaceToID.Add(ns, id)
	d.cache.idToNamespace.Add(id, ns)
}

// getOrCreateNamespaceID resolves ns to its ID, allocating and storing a
// new one if it is not already present.
func (d *Dictionary) getOrCreateNamespaceID(rw kv.RwTx, ns string, pending *pendingOps) (ValueID, error) {
	if id, err := d.lookupNamespaceID(rw, ns, pending); err != nil {
		return UnknownID, err
	} else if id != UnknownID {
		return id, nil
	}
	payload := []byte(ns)
	if !isNamespacePayload(payload) {
		return UnknownID, fmt.Errorf("%w: namespace %q collides with a value discriminant byte", ErrInvalidArgument, ns)
	}
	id := d.store.alloc.allocate()
	if err := d.store.storeBidirectional(rw, id, payload); err != nil {
		return UnknownID, err
	}
	d.cacheNamespace(pending, ns, id)
	return id, nil
}

func (d *Dictionary) lookupNamespaceByID(tx kv.Tx, id ValueID, pending *pendingOps) (string, error) {
	if ns, ok := d.cache.idToNamespace.Get(id); ok {
		d.cache.recordHit()
		return ns, nil
	}
	d.cache.recordMiss()
	payload, ok, err := d.store.get(tx, id)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &CorruptionError{ID: id, Reason: "namespace id referenced but not present"}
	}
	ns := string(payload)
	d.cacheNamespace(pending, ns, id)
	return ns, nil
}

// lookupValueID resolves v's ID via canonical encoding, falling back to
// the legacy plain-string/lang-string encoding for literals that
// qualify (spec.md §4.1, §4.6). It does not create anything.
func (d *Dictionary) lookupValueID(tx kv.Tx, v *Value, pending *pendingOps) (ValueID, error) {
	r := &txResolver{d: d, tx: tx, pending: pending}
	payload, ok, err := encodeValue(v, r, false)
	if err != nil {
		return UnknownID, err
	}
	id := UnknownID
	if ok {
		id, err = d.store.findID(tx, payload)
		if err != nil {
			return UnknownID, err
		}
	}
	if id == UnknownID && v.Kind() == KindLiteral && isBuiltinStringDatatype(v) {
		legacy, ok2, err2 := encodeLiteral(v, r, false, true)
		if err2 != nil {
			return UnknownID, err2
		}
		if ok2 {
			id, err = d.store.findID(tx, legacy)
			if err != nil {
				return UnknownID, err
			}
		}
	}
	return id, nil
}

// getOrCreateValueID resolves v's ID, allocating and storing a new one
// (recursively storing its namespace/datatype) if absent.
func (d *Dictionary) getOrCreateValueID(rw kv.RwTx, v *Value, pending *pendingOps) (ValueID, error) {
	if id, err := d.lookupValueID(rw, v, pending); err != nil {
		return UnknownID, err
	} else if id != UnknownID {
		return id, nil
	}
	r := &txResolver{d: d, tx: rw, rw: rw, pending: pending}
	payload, ok, err := encodeValue(v, r, true)
	if err != nil {
		return UnknownID, err
	}
	if !ok {
		return UnknownID, fmt.Errorf("%w: could not encode value in create mode", ErrInvalidArgument)
	}
	id := d.store.alloc.allocate()
	if err := d.store.storeBidirectional(rw, id, payload); err != nil {
		return UnknownID, err
	}
	return id, nil
}

func (d *Dictionary) lookupValueByID(tx kv.Tx, id ValueID, pending *pendingOps) (*Value, error) {
	payload, ok, err := d.store.get(tx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &CorruptionError{ID: id, Reason: "value id referenced but not present"}
	}
	return decodeValue(payload, &txResolver{d: d, tx: tx, pending: pending})
}

// cacheKey returns the string used to key the valueToID/idToValue caches
// for v: its canonical encoding (stable regardless of whether v was
// looked up or just stored), computed against tx for namespace/datatype
// resolution.
func (d *Dictionary) cacheKey(tx kv.Tx, v *Value, pending *pendingOps) (string, bool, error) {
	payload, ok, err := encodeValue(v, &txResolver{d: d, tx: tx, pending: pending}, false)
	if err != nil || !ok {
		return "", ok, err
	}
	return string(payload), true, nil
}

// stamp records (id, current revision) on v and populates valueToID, the
// two-step discipline of spec.md §4.5 rules 2 and 4. Since Value owns
// its stamp field directly, there is no separate store-owned wrapper
// object to allocate (see DESIGN.md "Open Question decisions"): stamping
// a caller-supplied *Value is safe because this package is the only one
// that can construct a *Value in the first place.
//
// When pending is non-nil (a transaction is in flight - implicit or
// explicit), the stamp and cache entry are queued rather than applied:
// v must not answer GetID/GetValue until the transaction that resolved
// it has actually committed (spec.md §5, §7).
func (d *Dictionary) stamp(tx kv.Tx, v *Value, id ValueID, pending *pendingOps) {
	key, ok, err := d.cacheKey(tx, v, pending)
	hasKey := err == nil && ok
	if pending != nil {
		pending.addValue(v, id, key, hasKey)
		return
	}
	v.st.set(id, d.currentRevision())
	if hasKey {
		d.cache.valueToID.Add(key, id)
	}
}

// GetID resolves v to its ID, or UnknownID if v has never been stored
// (spec.md §4.6 getID).
func (d *Dictionary) GetID(v *Value) (ValueID, error) {
	if err := d.checkOpen(); err != nil {
		return UnknownID, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	if id, ok := v.st.load(d.currentRevision()); ok {
		return id, nil
	}

	pending := d.currentPending()
	var result ValueID
	err := d.withReadTx(func(tx kv.Tx) error {
		if key, ok, err := d.cacheKey(tx, v, pending); err == nil && ok {
			if id, hit := d.cache.valueToID.Get(key); hit {
				d.cache.recordHit()
				result = id
				d.stamp(tx, v, id, pending)
				return nil
			}
			d.cache.recordMiss()
		}
		id, err := d.lookupValueID(tx, v, pending)
		if err != nil {
			return err
		}
		result = id
		if id != UnknownID {
			d.stamp(tx, v, id, pending)
		}
		return nil
	})
	return result, err
}

// StoreValue resolves v to its ID, allocating and persisting a new one
// if it is not already present (spec.md §4.6 storeValue).
func (d *Dictionary) StoreValue(v *Value) (ValueID, error) {
	if err := d.checkOpen(); err != nil {
		return UnknownID, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	if id, ok := v.st.load(d.currentRevision()); ok {
		return id, nil
	}

	var result ValueID
	err := d.withWriteTx(func(rw kv.RwTx, pending *pendingOps) error {
		id, err := d.getOrCreateValueID(rw, v, pending)
		if err != nil {
			return err
		}
		result = id
		d.stamp(rw, v, id, pending)
		return nil
	})
	return result, err
}

// GetValue returns the Value stored under id, or nil if id has never
// been assigned (spec.md §4.6 getValue).
func (d *Dictionary) GetValue(id ValueID) (*Value, error) {
	if err := d.checkOpen(); err != nil {
		return nil, err
	}
	if id == UnknownID {
		return nil, nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	if v, ok := d.cache.idToValue.Get(id); ok {
		d.cache.recordHit()
		return v, nil
	}
	d.cache.recordMiss()

	pending := d.currentPending()
	var result *Value
	err := d.withReadTx(func(tx kv.Tx) error {
		payload, ok, err := d.store.get(tx, id)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if isNamespacePayload(payload) {
			return fmt.Errorf("%w: id %d is a namespace, not a value", ErrInvalidArgument, id)
		}
		v, err := decodeValue(payload, &txResolver{d: d, tx: tx, pending: pending})
		if err != nil {
			return err
		}
		d.stamp(tx, v, id, pending)
		if pending != nil {
			pending.addIDToValue(id, v)
		} else {
			d.cache.idToValue.Add(id, v)
		}
		result = v
		return nil
	})
	return result, err
}

// GetNamespace returns the namespace string stored under id, or "" with
// ok=false if id has never been assigned.
func (d *Dictionary) GetNamespace(id ValueID) (ns string, ok bool, err error) {
	if err := d.checkOpen(); err != nil {
		return "", false, err
	}
	if id == UnknownID {
		return "", false, nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	pending := d.currentPending()
	err = d.withReadTx(func(tx kv.Tx) error {
		_, present, gerr := d.store.get(tx, id)
		if gerr != nil {
			return gerr
		}
		if !present {
			return nil
		}
		got, lerr := d.lookupNamespaceByID(tx, id, pending)
		if lerr != nil {
			return lerr
		}
		ns, ok = got, true
		return nil
	})
	return ns, ok, err
}

// GetNamespaceID resolves ns to its ID, creating it if create is true
// and it is not already present.
func (d *Dictionary) GetNamespaceID(ns string, create bool) (ValueID, error) {
	if err := d.checkOpen(); err != nil {
		return UnknownID, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	var result ValueID
	var outerErr error
	if create {
		outerErr = d.withWriteTx(func(rw kv.RwTx, pending *pendingOps) error {
			id, err := d.getOrCreateNamespaceID(rw, ns, pending)
			result = id
			return err
		})
	} else {
		pending := d.currentPending()
		outerErr = d.withReadTx(func(tx kv.Tx) error {
			id, err := d.lookupNamespaceID(tx, ns, pending)
			result = id
			return err
		})
	}
	return result, outerErr
}
