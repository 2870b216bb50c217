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
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeResolver is a minimal in-memory resolver, so encodeValue/decodeValue
// round-trips can be tested without a backing kv.RwDB.
type fakeResolver struct {
	nsByID map[ValueID]string
	idByNS map[string]ValueID
	dtByID map[ValueID]*Value
	next   ValueID
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		nsByID: map[ValueID]string{},
		idByNS: map[string]ValueID{},
		dtByID: map[ValueID]*Value{},
		next:   1,
	}
}

func (r *fakeResolver) resolveNamespaceID(ns string, create bool) (ValueID, error) {
	if id, ok := r.idByNS[ns]; ok {
		return id, nil
	}
	if !create {
		return UnknownID, nil
	}
	id := r.next
	r.next++
	r.idByNS[ns] = id
	r.nsByID[id] = ns
	return id, nil
}

func (r *fakeResolver) resolveNamespace(id ValueID) (string, error) {
	return r.nsByID[id], nil
}

func (r *fakeResolver) resolveDatatypeID(dt *Value, create bool) (ValueID, error) {
	full := dt.Namespace() + dt.Local()
	for id, v := range r.dtByID {
		if v.Namespace()+v.Local() == full {
			return id, nil
		}
	}
	if !create {
		return UnknownID, nil
	}
	id := r.next
	r.next++
	r.dtByID[id] = dt
	return id, nil
}

func (r *fakeResolver) resolveDatatype(id ValueID) (*Value, error) {
	return r.dtByID[id], nil
}

func TestEncodeDecodeIRIRoundTrip(t *testing.T) {
	r := newFakeResolver()
	v := NewIRI("http://example.org/", "foo")
	payload, ok, err := encodeValue(v, r, true)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, tagIRI, payload[0])

	got, err := decodeValue(payload, r)
	require.NoError(t, err)
	require.True(t, got.Equal(v))
}

func TestEncodeDecodeBNodeRoundTrip(t *testing.T) {
	r := newFakeResolver()
	v := NewBNode("b1")
	payload, ok, err := encodeValue(v, r, false)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, tagBNode, payload[0])

	got, err := decodeValue(payload, r)
	require.NoError(t, err)
	require.True(t, got.Equal(v))
}

func TestEncodeDecodeLiteralWithDatatypeRoundTrip(t *testing.T) {
	r := newFakeResolver()
	dt := NewIRI("http://www.w3.org/2001/XMLSchema#", "integer")
	v := NewLiteral("42", "", dt)
	payload, ok, err := encodeValue(v, r, true)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, tagLiteral, payload[0])

	got, err := decodeValue(payload, r)
	require.NoError(t, err)
	require.True(t, got.Equal(v))
}

func TestEncodeValueLookupModeMissingNamespaceIsUnknown(t *testing.T) {
	r := newFakeResolver()
	v := NewIRI("http://never-stored.example/", "x")
	_, ok, err := encodeValue(v, r, false)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLegacyLiteralEncodingAlwaysHasZeroDatatype(t *testing.T) {
	r := newFakeResolver()
	v := NewLiteral("hello", "en", nil)
	payload, ok, err := encodeLiteral(v, r, false, true)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(0), uint32(payload[1])<<24|uint32(payload[2])<<16|uint32(payload[3])<<8|uint32(payload[4]))
}

func TestIsBuiltinStringDatatype(t *testing.T) {
	require.True(t, isBuiltinStringDatatype(NewLiteral("x", "", nil)))
	require.True(t, isBuiltinStringDatatype(NewLiteral("x", "", NewIRI("http://www.w3.org/2001/XMLSchema#", "string"))))
	require.False(t, isBuiltinStringDatatype(NewLiteral("x", "", NewIRI("http://www.w3.org/2001/XMLSchema#", "integer"))))
}

func TestIsNamespacePayload(t *testing.T) {
	require.True(t, isNamespacePayload([]byte("http://example.org/")))
	require.True(t, isNamespacePayload(nil))
	require.False(t, isNamespacePayload([]byte{tagIRI, 0, 0, 0, 1}))
}

func TestDecodeValueRejectsTruncatedPayload(t *testing.T) {
	r := newFakeResolver()
	_, err := decodeValue([]byte{tagIRI, 0, 0}, r)
	require.ErrorIs(t, err, ErrCorruption)
}

func TestPayloadFingerprintIsDeterministicAndDistinguishesPayloads(t *testing.T) {
	a := payloadFingerprint([]byte("http://example.org/"))
	b := payloadFingerprint([]byte("http://example.org/"))
	c := payloadFingerprint([]byte("http://example.com/"))
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
}

func TestDecodeValueRejectsUnknownDiscriminant(t *testing.T) {
	r := newFakeResolver()
	_, err := decodeValue([]byte{0x99, 1, 2, 3}, r)
	require.ErrorIs(t, err, ErrInvalidArgument)
}
