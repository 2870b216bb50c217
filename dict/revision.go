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

// Revision is an opaque generation token (spec.md §3, §4.5). Stamped
// values hold a pointer to the Revision they were stamped under;
// comparison is by pointer identity, never deep equality, so clear()
// invalidates every previously stamped ID in O(1) by simply installing a
// new *Revision - no value object needs to be touched.
//
// seq is carried (rather than leaving Revision zero-size) because the Go
// spec permits two distinct zero-size values to share an address, which
// would break pointer-identity comparison.
type Revision struct {
	seq uint64
}

// newRevision allocates a fresh generation token.
func newRevision(seq uint64) *Revision { return &Revision{seq: seq} }
