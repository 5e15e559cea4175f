// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package table

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Group is a set of tables that may link to each other.
//
// A Group is not safe for concurrent mutation.
// Use Snapshot to hand an independent copy
// to another goroutine.
type Group struct {
	tables  []*Table
	lineage *lineage
	version uint64
}

// lineage holds the counters shared by a group
// and every snapshot derived from it; snapshots
// may live on other goroutines.
type lineage struct {
	tags     uint64
	versions uint64
}

func (l *lineage) next(p *uint64) uint64 { return atomic.AddUint64(p, 1) }

// NewGroup returns an empty Group.
func NewGroup() *Group {
	l := &lineage{}
	return &Group{lineage: l, version: l.next(&l.versions)}
}

// Version identifies the group within its lineage:
// a group and all snapshots derived from it have
// distinct versions.
func (g *Group) Version() uint64 { return g.version }

// AddTable creates a new, empty table.
func (g *Group) AddTable(name string) (*Table, error) {
	if name == "" {
		return nil, fmt.Errorf("table.AddTable: empty table name")
	}
	if g.Table(name) != nil {
		return nil, fmt.Errorf("table.AddTable %q: %w", name, ErrDuplicate)
	}
	t := newTable(g, name)
	g.tables = append(g.tables, t)
	return t, nil
}

// Table returns the table with the given name,
// or nil if there is no such table.
func (g *Group) Table(name string) *Table {
	for _, t := range g.tables {
		if t.name == name {
			return t
		}
	}
	return nil
}

// Tables returns the tables in creation order.
func (g *Group) Tables() []*Table {
	out := make([]*Table, len(g.tables))
	copy(out, g.tables)
	return out
}

func (g *Group) tag() uint64 {
	return g.lineage.next(&g.lineage.tags)
}

// Snapshot returns a deep copy of the group.
// Every table in the copy is a new instance
// (with a new ID) that has the same column keys,
// object keys and contents as the original.
// Links in the copy point into the copy.
// Column keys created later in either group
// are never reused by the other.
func (g *Group) Snapshot() *Group {
	ng := &Group{
		lineage: g.lineage,
		version: g.lineage.next(&g.lineage.versions),
		tables:  make([]*Table, len(g.tables)),
	}
	remap := make(map[*Table]*Table, len(g.tables))
	for i, t := range g.tables {
		nt := newTable(ng, t.name)
		nt.nextKey = t.nextKey
		ng.tables[i] = nt
		remap[t] = nt
	}
	for i, t := range g.tables {
		t.copyInto(ng.tables[i], remap)
	}
	return ng
}

func newTable(g *Group, name string) *Table {
	return &Table{
		id:    uuid.New(),
		group: g,
		name:  name,
		objs:  make(map[ObjKey]*object),
	}
}
