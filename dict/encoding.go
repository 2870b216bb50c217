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
	"encoding/binary"
	"fmt"

	"github.com/spaolacci/murmur3"
)

// Discriminant bytes, spec.md §3/§4.1.
const (
	tagIRI     byte = 0x01
	tagBNode   byte = 0x02
	tagLiteral byte = 0x03
)

// xsdString and rdfLangString are the two datatypes that additionally
// get a legacy, pre-datatype-ID encoding recognized on lookup (spec.md
// §4.1 "legacy literal encoding"). They are ordinary IRIs like any
// other; they are used only by isBuiltinStringDatatype to decide whether
// a legacy lookup is attempted. NewLiteral leaves a nil datatype nil.
const (
	xsdStringIRI     = "http://www.w3.org/2001/XMLSchema#string"
	rdfLangStringIRI = "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"
)

// resolver is the subset of IndexStore's responsibilities the encoder
// needs: turning a namespace/datatype IRI into an ID (creating it if
// create is true), and the reverse.
type resolver interface {
	resolveNamespaceID(namespace string, create bool) (ValueID, error)
	resolveNamespace(id ValueID) (string, error)
	resolveDatatypeID(datatype *Value, create bool) (ValueID, error)
	resolveDatatype(id ValueID) (*Value, error)
}

// encodeValue produces the canonical byte encoding for v. In create
// mode, namespace/datatype IRIs referenced by v are recursively stored
// (allocated an ID if they don't have one yet); in lookup mode, an
// unresolved namespace/datatype yields ok=false ("unknown" - the value
// cannot possibly be in the store, so there is no point querying the
// index at all).
func encodeValue(v *Value, r resolver, create bool) (payload []byte, ok bool, err error) {
	switch v.Kind() {
	case KindIRI:
		nsID, err := r.resolveNamespaceID(v.Namespace(), create)
		if err != nil {
			return nil, false, err
		}
		if nsID == UnknownID {
			return nil, false, nil
		}
		buf := make([]byte, 1+4+len(v.Local()))
		buf[0] = tagIRI
		binary.BigEndian.PutUint32(buf[1:5], uint32(nsID))
		copy(buf[5:], v.Local())
		return buf, true, nil

	case KindBNode:
		buf := make([]byte, 1+len(v.BNodeID()))
		buf[0] = tagBNode
		copy(buf[1:], v.BNodeID())
		return buf, true, nil

	case KindLiteral:
		return encodeLiteral(v, r, create, false)

	default:
		return nil, false, fmt.Errorf("%w: unrecognized value kind %d", ErrInvalidArgument, v.Kind())
	}
}

// encodeLiteral implements both the canonical encoding and, when legacy
// is true, the alternate plain-string/lang-string encoding recognized
// only for xsd:string and rdf:langString literals (spec.md §4.1).
func encodeLiteral(v *Value, r resolver, create, legacy bool) ([]byte, bool, error) {
	var datatypeID ValueID
	if legacy {
		// The legacy form always has datatypeID = 0: both xsd:string and
		// rdf:langString collapse to "no datatype" the way the source's
		// pre-datatype-ID format did.
		datatypeID = UnknownID
	} else if v.HasDatatype() {
		id, err := r.resolveDatatypeID(v.Datatype(), create)
		if err != nil {
			return nil, false, err
		}
		if id == UnknownID {
			return nil, false, nil
		}
		datatypeID = id
	} else {
		datatypeID = UnknownID
	}

	if len(v.Lang()) > 255 {
		return nil, false, fmt.Errorf("%w: language tag exceeds 255 bytes", ErrInvalidArgument)
	}

	buf := make([]byte, 1+4+1+len(v.Lang())+len(v.Label()))
	buf[0] = tagLiteral
	binary.BigEndian.PutUint32(buf[1:5], uint32(datatypeID))
	buf[5] = byte(len(v.Lang()))
	off := 6
	off += copy(buf[off:], v.Lang())
	copy(buf[off:], v.Label())
	return buf, true, nil
}

// isBuiltinStringDatatype reports whether v's datatype is nil (implicit
// xsd:string/rdf:langString) or explicitly one of those two IRIs - the
// condition under which a legacy-encoding lookup is worth attempting.
func isBuiltinStringDatatype(v *Value) bool {
	if !v.HasDatatype() {
		return true
	}
	dt := v.Datatype()
	full := dt.Namespace() + dt.Local()
	return full == xsdStringIRI || full == rdfLangStringIRI
}

// decodeValue is the exact inverse of encodeValue's canonical form,
// discriminated by payload[0]. It never creates namespaces/datatypes -
// decoding a forward entry must not have write side effects.
func decodeValue(payload []byte, r resolver) (*Value, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrCorruption)
	}
	switch payload[0] {
	case tagIRI:
		if len(payload) < 5 {
			return nil, fmt.Errorf("%w: truncated IRI payload", ErrCorruption)
		}
		nsID := ValueID(binary.BigEndian.Uint32(payload[1:5]))
		ns, err := r.resolveNamespace(nsID)
		if err != nil {
			return nil, err
		}
		return NewIRI(ns, string(payload[5:])), nil

	case tagBNode:
		return NewBNode(string(payload[1:])), nil

	case tagLiteral:
		if len(payload) < 6 {
			return nil, fmt.Errorf("%w: truncated literal payload", ErrCorruption)
		}
		datatypeID := ValueID(binary.BigEndian.Uint32(payload[1:5]))
		langLen := int(payload[5])
		if len(payload) < 6+langLen {
			return nil, fmt.Errorf("%w: truncated literal language tag", ErrCorruption)
		}
		lang := string(payload[6 : 6+langLen])
		label := string(payload[6+langLen:])
		var datatype *Value
		if datatypeID != UnknownID {
			dt, err := r.resolveDatatype(datatypeID)
			if err != nil {
				return nil, err
			}
			datatype = dt
		}
		return NewLiteral(label, lang, datatype), nil

	default:
		return nil, fmt.Errorf("%w: unrecognized data2value discriminant 0x%02x", ErrInvalidArgument, payload[0])
	}
}

// payloadFingerprint is a cheap, non-authoritative short hash of a raw
// entry, attached to consistency-check log lines so an operator can
// correlate a failing id across a restart without the dictionary itself
// storing anything derived from it - CRC32 is already load-bearing as
// the overflow-bucket hash (spec.md §4.2), so a different hash function
// here avoids any reader assuming the two are related.
func payloadFingerprint(payload []byte) uint32 {
	return murmur3.Sum32(payload)
}

// isNamespacePayload reports whether the first byte of payload identifies
// it as a raw namespace string rather than an encoded Value - spec.md
// §4.1: "Identified in data2value by a first byte not in {0x01,0x02,0x03}".
func isNamespacePayload(payload []byte) bool {
	if len(payload) == 0 {
		return true
	}
	switch payload[0] {
	case tagIRI, tagBNode, tagLiteral:
		return false
	default:
		return true
	}
}
