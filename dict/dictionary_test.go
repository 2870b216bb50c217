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

package dict_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erigontech/valuedict/dict"
	"github.com/erigontech/valuedict/erigon-lib/kv"
	"github.com/erigontech/valuedict/erigon-lib/kv/memdb"
)

// openTestDict returns a Dictionary backed by the in-memory B-tree
// engine with a deliberately small max key size, so literal payloads a
// few hundred bytes long already exercise the overflow-bucket path
// (spec.md §8 boundary scenario 4 assumes maxKeySize=511).
func openTestDict(t *testing.T) *dict.Dictionary {
	t.Helper()
	cfg := dict.DefaultConfig(t.TempDir())
	cfg.EngineFactory = func(_ string) (kv.RwDB, error) { return memdb.New(511), nil }
	d, err := dict.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestStoreAndGetValueRoundTrip_IRI(t *testing.T) {
	d := openTestDict(t)
	iri := dict.NewIRI("http://example.org/", "foo-bar")

	id, err := d.StoreValue(iri)
	require.NoError(t, err)
	require.NotEqual(t, dict.UnknownID, id)

	got, err := d.GetValue(id)
	require.NoError(t, err)
	require.True(t, got.Equal(iri))
}

func TestStoreValueIdempotent(t *testing.T) {
	d := openTestDict(t)
	a := dict.NewIRI("http://example.org/", "foo-bar")
	b := dict.NewIRI("http://example.org/", "foo-bar")

	id1, err := d.StoreValue(a)
	require.NoError(t, err)
	statsBefore, err := d.Stats()
	require.NoError(t, err)

	id2, err := d.StoreValue(b)
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	statsAfter, err := d.Stats()
	require.NoError(t, err)
	require.Equal(t, statsBefore.NextID, statsAfter.NextID)
}

func TestDistinctValuesGetDistinctIDs(t *testing.T) {
	d := openTestDict(t)
	id1, err := d.StoreValue(dict.NewIRI("http://example.org/", "a"))
	require.NoError(t, err)
	id2, err := d.StoreValue(dict.NewIRI("http://example.org/", "b"))
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)
}

func TestIRIStoresNamespaceAndSharesItsID(t *testing.T) {
	d := openTestDict(t)
	iri := dict.NewIRI("http://example.org/", "foo-bar")
	_, err := d.StoreValue(iri)
	require.NoError(t, err)

	nsID, err := d.GetNamespaceID("http://example.org/", false)
	require.NoError(t, err)
	require.NotEqual(t, dict.UnknownID, nsID)

	ns, ok, err := d.GetNamespace(nsID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "http://example.org/", ns)
}

func TestBlankNodeRoundTrip(t *testing.T) {
	d := openTestDict(t)
	b := dict.NewBNode("foo-bar-1")
	id, err := d.StoreValue(b)
	require.NoError(t, err)

	got, err := d.GetValue(id)
	require.NoError(t, err)
	require.Equal(t, dict.KindBNode, got.Kind())
	require.Equal(t, "foo-bar-1", got.BNodeID())
}

func TestLiteralWithLanguageRoundTrip(t *testing.T) {
	d := openTestDict(t)
	lit := dict.NewLiteral("hello", "en", nil)
	id, err := d.StoreValue(lit)
	require.NoError(t, err)

	got, err := d.GetValue(id)
	require.NoError(t, err)
	require.Equal(t, "hello", got.Label())
	require.Equal(t, "en", got.Lang())
	require.False(t, got.HasDatatype())
}

func TestOverflowLiteralsGetDistinctBuckets(t *testing.T) {
	d := openTestDict(t)
	big := strings.Repeat("a", 2048)
	l1 := dict.NewLiteral(big, "", nil)
	l2 := dict.NewLiteral(big+"x", "", nil) // different bytes, may collide on CRC32 rarely; distinct payload regardless

	id1, err := d.StoreValue(l1)
	require.NoError(t, err)
	id2, err := d.StoreValue(l2)
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)

	got1, err := d.GetValue(id1)
	require.NoError(t, err)
	require.Equal(t, big, got1.Label())

	got2, err := d.GetValue(id2)
	require.NoError(t, err)
	require.Equal(t, big+"x", got2.Label())
}

func TestPlainStringLiteralCanonicalAndLegacyAgree(t *testing.T) {
	d := openTestDict(t)
	lit := dict.NewLiteral("hello", "", nil)
	id, err := d.StoreValue(lit)
	require.NoError(t, err)

	// Canonical lookup.
	gotID, err := d.GetID(dict.NewLiteral("hello", "", nil))
	require.NoError(t, err)
	require.Equal(t, id, gotID)

	// Lookup via an explicit xsd:string datatype must agree too, since
	// canonical encoding of "no datatype" and "xsd:string" both resolve
	// through the legacy fallback when they miss on the first encoding.
	xsdString := dict.NewIRI("http://www.w3.org/2001/XMLSchema#", "string")
	gotID2, err := d.GetID(dict.NewLiteral("hello", "", xsdString))
	require.NoError(t, err)
	require.Equal(t, id, gotID2)
}

func TestClearInvalidatesStampsAndResetsNextID(t *testing.T) {
	d := openTestDict(t)
	values := make([]*dict.Value, 0, 10)
	for i := 0; i < 10; i++ {
		v := dict.NewIRI("http://example.org/", string(rune('a'+i)))
		_, err := d.StoreValue(v)
		require.NoError(t, err)
		values = append(values, v)
	}

	require.NoError(t, d.Clear())

	for _, v := range values {
		id, err := d.GetID(v)
		require.NoError(t, err)
		require.Equal(t, dict.UnknownID, id)
	}

	stats, err := d.Stats()
	require.NoError(t, err)
	require.Equal(t, dict.ValueID(1), stats.NextID)
}

func TestDumpLoadRoundTrip(t *testing.T) {
	d := openTestDict(t)
	_, err := d.StoreValue(dict.NewIRI("http://example.org/", "foo"))
	require.NoError(t, err)
	_, err = d.StoreValue(dict.NewBNode("b1"))
	require.NoError(t, err)

	var buf strings.Builder
	require.NoError(t, d.Dump(&buf))

	d2 := openTestDict(t)
	require.NoError(t, d2.Load(strings.NewReader(buf.String())))

	id, err := d2.GetID(dict.NewIRI("http://example.org/", "foo"))
	require.NoError(t, err)
	require.NotEqual(t, dict.UnknownID, id)
}

func TestGetValueOnUnassignedIDReturnsNil(t *testing.T) {
	d := openTestDict(t)
	v, err := d.GetValue(dict.ValueID(9999))
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestStartTransactionCommit(t *testing.T) {
	d := openTestDict(t)
	require.NoError(t, d.StartTransaction(context.Background()))
	id, err := d.StoreValue(dict.NewIRI("http://example.org/", "txn"))
	require.NoError(t, err)
	require.NoError(t, d.Commit())

	got, err := d.GetValue(id)
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestStartTransactionRollback(t *testing.T) {
	d := openTestDict(t)
	require.NoError(t, d.StartTransaction(context.Background()))
	v := dict.NewIRI("http://example.org/", "rolled-back")
	_, err := d.StoreValue(v)
	require.NoError(t, err)
	d.Rollback()

	id, err := d.GetID(dict.NewIRI("http://example.org/", "rolled-back"))
	require.NoError(t, err)
	require.Equal(t, dict.UnknownID, id)
}
