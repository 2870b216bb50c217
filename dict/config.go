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
	"github.com/c2h5oh/datasize"
	"github.com/erigontech/erigon-lib/log/v3"

	"github.com/erigontech/valuedict/erigon-lib/kv"
)

// Config carries the environment/configuration surface of spec.md §6:
// the four cache sizes, the force-sync flag, and the data directory.
type Config struct {
	// Dir is the store root; the backing engine's files live under
	// Dir/values (spec.md §6 "On-disk layout").
	Dir string

	// ForceSync requests the engine fsync on every commit.
	ForceSync bool

	// MapSize bounds the MDBX environment's virtual address space
	// reservation. Zero uses the engine adapter's own default.
	MapSize datasize.ByteSize

	IDToValueCap     int
	ValueToIDCap     int
	NamespaceToIDCap int
	IDToNamespaceCap int

	// Logger receives structured diagnostics (open/recovery, clear,
	// consistency failures). Defaults to log.Root() if nil.
	Logger log.Logger

	// EngineFactory overrides the default MDBX-backed engine with a
	// caller-supplied kv.RwDB opener - used by this package's own tests
	// to substitute erigon-lib/kv/memdb. Nil uses MDBX.
	EngineFactory func(dir string) (kv.RwDB, error)
}

// DefaultConfig returns a Config with the spec's default cache sizes and
// synchronous-on-commit disabled, rooted at dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:              dir,
		ForceSync:        false,
		MapSize:          2 * datasize.GB,
		IDToValueCap:     DefaultIDToValueCap,
		ValueToIDCap:     DefaultValueToIDCap,
		NamespaceToIDCap: DefaultNamespaceToIDCap,
		IDToNamespaceCap: DefaultIDToNamespaceCap,
		Logger:           log.Root(),
	}
}

func (c Config) logger() log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Root()
}
