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

// pendingOps accumulates cache and value-stamp mutations discovered
// while a write transaction is in flight - either the short implicit
// one withWriteTx opens and commits within a single call, or the
// long-lived one StartTransaction/Commit/Rollback manage across many
// calls. Nothing recorded here reaches the shared caches or a Value's
// stamp until the transaction that discovered it commits successfully
// (spec.md §5, §7): a rolled-back or failed-commit transaction simply
// lets its pendingOps fall out of scope unapplied.
type pendingOps struct {
	namespaces []pendingNamespace
	values     []pendingValue
	idToValue  []pendingIDToValue
}

type pendingNamespace struct {
	ns string
	id ValueID
}

type pendingValue struct {
	v      *Value
	id     ValueID
	key    string
	hasKey bool
}

type pendingIDToValue struct {
	id ValueID
	v  *Value
}

func newPendingOps() *pendingOps { return &pendingOps{} }

func (p *pendingOps) addNamespace(ns string, id ValueID) {
	p.namespaces = append(p.namespaces, pendingNamespace{ns: ns, id: id})
}

func (p *pendingOps) addValue(v *Value, id ValueID, key string, hasKey bool) {
	p.values = append(p.values, pendingValue{v: v, id: id, key: key, hasKey: hasKey})
}

func (p *pendingOps) addIDToValue(id ValueID, v *Value) {
	p.idToValue = append(p.idToValue, pendingIDToValue{id: id, v: v})
}

// applyPending installs every queued mutation now that the transaction
// that discovered them has committed.
func (d *Dictionary) applyPending(p *pendingOps) {
	if p == nil {
		return
	}
	rev := d.currentRevision()
	for _, n := range p.namespaces {
		d.cache.namespaceToID.Add(n.ns, n.id)
		d.cache.idToNamespace.Add(n.id, n.ns)
	}
	for _, pv := range p.values {
		pv.v.st.set(pv.id, rev)
		if pv.hasKey {
			d.cache.valueToID.Add(pv.key, pv.id)
		}
	}
	for _, e := range p.idToValue {
		d.cache.idToValue.Add(e.id, e.v)
	}
}

// currentPending returns the active explicit transaction's pending
// accumulator, or nil if none is active. A nil result means a read sees
// only already-committed data, so it may populate the shared caches
// immediately instead of queuing.
func (d *Dictionary) currentPending() *pendingOps {
	d.tx.Lock()
	defer d.tx.Unlock()
	return d.tx.pending
}
