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

package kv

// Values is the single table hosting forward entries (ID_KEY -> payload),
// reverse entries (payload -> ID_KEY) and overflow hash-bucket entries
// (HASH_KEY -> ID_KEY). Unlike erigon's chaindata, which spreads state
// across dozens of tables by domain, the dictionary deliberately keeps
// one table: the three entry kinds are distinguished by their key's
// leading byte so a single ordered keyspace gives the forward/reverse/
// overflow invariants for free from the engine's own lexicographic
// ordering.
const Values Table = "Values"

// TableCfg describes per-table engine flags, mirroring erigon-lib's
// TableCfg/TableCfgItem pattern even though the dictionary needs only one
// entry today - kept as a map so additional tables (a future metrics or
// audit table) can be registered the same way.
type TableCfg map[string]TableCfgItem

// TableFlags mirrors the MDBX DBI flags subset erigon-lib exposes.
type TableFlags uint

const (
	Default TableFlags = 0x00
	DupSort TableFlags = 0x04
)

// TableCfgItem is one table's engine-level configuration.
type TableCfgItem struct {
	Flags TableFlags
}

// ValuesTablesCfg is the dictionary's table registry. The MDBX adapter
// does not read it: it opens kv.Values directly with default flags.
var ValuesTablesCfg = TableCfg{
	string(Values): {Flags: Default},
}
