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
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Sentinel errors for the taxonomy in spec.md §7. UnknownValue is not an
// error at all - it is the UnknownID return value - and is intentionally
// absent here.
var (
	// ErrCorruption is returned by checkConsistency and by decoders that
	// encounter an empty or truncated payload.
	ErrCorruption = errors.New("dict: corruption")

	// ErrInvalidArgument is returned when a caller passes a Value that is
	// neither IRI, BNode, nor Literal, or an unrecognized data2value
	// discriminant byte.
	ErrInvalidArgument = errors.New("dict: invalid argument")

	// ErrClosed is returned by any operation attempted after Close.
	ErrClosed = errors.New("dict: store is closed")
)

// IOError wraps a failure from the backing engine or filesystem with a
// stack trace captured at the point of first observation, following the
// teacher's use of github.com/pkg/errors at I/O boundaries. Callers
// should use errors.As to recover the wrapped cause, or errors.Is
// against the cause directly - IOError.Unwrap exposes it.
type IOError struct {
	Op    string
	cause error
}

func (e *IOError) Error() string { return fmt.Sprintf("dict: io failure during %s: %v", e.Op, e.cause) }
func (e *IOError) Unwrap() error { return e.cause }

// wrapIO builds an *IOError with a captured stack trace. Returns nil if
// err is nil, so call sites can write `return wrapIO("open", err)`
// unconditionally in an error-returning branch.
func wrapIO(op string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, cause: pkgerrors.WithStack(err)}
}

// CorruptionError identifies which ID or table position failed
// checkConsistency, so callers can log enough detail to plan an
// export/reimport (SPEC_FULL.md supplemental Dump/Load).
type CorruptionError struct {
	ID     ValueID
	Reason string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("dict: corruption at id %d: %s", e.ID, e.Reason)
}
func (e *CorruptionError) Unwrap() error { return ErrCorruption }
