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

// idAllocator is a single monotonic counter, recovered from the index at
// open time (store.recoverNextID) rather than persisted independently
// (spec.md §4.3, I4). It is not safe for concurrent use; callers must
// hold the IndexStore's write path (a single in-flight write
// transaction, per spec.md §5) while calling allocate.
type idAllocator struct {
	next ValueID
}

// allocate returns the next free ID and advances the counter. Must only
// be called from within a write transaction so that a failed commit can
// be rolled back via snapshot/restore (spec.md §4.3).
func (a *idAllocator) allocate() ValueID {
	id := a.next
	a.next++
	return id
}

// snapshot captures the counter for rollback on transaction abort.
func (a *idAllocator) snapshot() ValueID { return a.next }

// restore rolls the counter back to a previously captured snapshot.
func (a *idAllocator) restore(s ValueID) { a.next = s }
