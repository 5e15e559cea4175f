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

package descriptor

import (
	"errors"
	"fmt"

	"github.com/SnellerInc/ordering/mixed"
	"github.com/SnellerInc/ordering/table"
)

// sortColumn is the resolved state of one chain
// for one view. Slices are indexed by IndexPair.Index.
type sortColumn struct {
	chain     []ColumnID
	ascending bool
	isNull    []bool
	// keys holds the object reached at the end of
	// the chain; nil when the chain has no links
	keys []table.ObjKey
}

func (c *sortColumn) terminal() ColumnID { return c.chain[len(c.chain)-1] }

// Sorter compares the rows of one View by the
// chains of a Descriptor. A Sorter is only valid
// for the View it was built from (see Descriptor.Sorter)
// and for as long as the underlying tables are not
// modified.
type Sorter struct {
	columns []sortColumn
	// cache holds the first column's values
	// by IndexPair.Index once populated
	cache []mixed.Value
}

func newSorter(chains [][]ColumnID, ascending []bool, v View) (*Sorter, error) {
	n := v.span()
	s := &Sorter{columns: make([]sortColumn, len(chains))}
	for i := range chains {
		col := &s.columns[i]
		col.chain = chains[i]
		col.ascending = ascending == nil || ascending[i]
		col.isNull = make([]bool, n)
		if len(col.chain) > 1 {
			col.keys = make([]table.ObjKey, n)
		}
		for _, p := range v {
			obj, null, err := follow(col.chain, p.Key)
			if err != nil {
				return nil, fmt.Errorf("resolving chain %d for %s: %w", i, p.Key, err)
			}
			if !null {
				val, err := col.terminal().Table.Get(obj, col.terminal().Col)
				if err != nil {
					return nil, fmt.Errorf("resolving chain %d for %s: %w", i, p.Key, err)
				}
				null = val.IsNull()
			}
			col.isNull[p.Index] = null
			if col.keys != nil {
				col.keys[p.Index] = obj
			}
		}
	}
	return s, nil
}

// follow walks the links of chain starting from obj
// and returns the object that holds the terminal value.
// Unset and dangling links produce null rather than an error.
func follow(chain []ColumnID, obj table.ObjKey) (table.ObjKey, bool, error) {
	for _, id := range chain[:len(chain)-1] {
		next, err := id.Table.GetLink(obj, id.Col)
		if err != nil {
			if errors.Is(err, table.ErrNoSuchObject) {
				return table.NullKey, true, nil
			}
			return table.NullKey, true, err
		}
		if next == table.NullKey {
			return table.NullKey, true, nil
		}
		obj = next
	}
	if !chain[len(chain)-1].Table.IsValid(obj) {
		return table.NullKey, true, nil
	}
	return obj, false, nil
}

// value returns the (non-null) value of
// column c for p; callers check isNull first.
func (s *Sorter) value(c int, p IndexPair) mixed.Value {
	if c == 0 && s.cache != nil {
		return s.cache[p.Index]
	}
	col := &s.columns[c]
	obj := p.Key
	if col.keys != nil {
		obj = col.keys[p.Index]
	}
	t := col.terminal()
	v, _ := t.Table.Get(obj, t.Col)
	return v
}

// compare returns the relation of i and j in output
// order under column c: nulls first, then non-null
// values in the column's direction.
func (s *Sorter) compare(c int, i, j IndexPair) int {
	col := &s.columns[c]
	ni, nj := col.isNull[i.Index], col.isNull[j.Index]
	if ni || nj {
		switch {
		case ni && nj:
			return 0
		case ni:
			return -1
		default:
			return 1
		}
	}
	r := mixed.Compare(s.value(c, i), s.value(c, j))
	if !col.ascending {
		r = -r
	}
	return r
}

// Compare returns -1, 0 or 1 depending on whether
// i sorts before, equal to, or after j, deciding on
// the first chain where they differ.
func (s *Sorter) Compare(i, j IndexPair) int {
	for c := range s.columns {
		if r := s.compare(c, i, j); r != 0 {
			return r
		}
	}
	return 0
}

// Less reports whether i sorts before j.
// If total is set, rows that are equal on every
// chain are ordered by IndexPair.Index, so no two
// distinct rows compare equal. Otherwise ties
// are left unresolved, which suits a stable sort.
func (s *Sorter) Less(i, j IndexPair, total bool) bool {
	if r := s.Compare(i, j); r != 0 {
		return r < 0
	}
	return total && i.Index < j.Index
}

// Equal reports whether i and j are equal on every
// chain. Two nulls are equal; a null never equals
// a non-null value.
func (s *Sorter) Equal(i, j IndexPair) bool {
	for c := range s.columns {
		col := &s.columns[c]
		ni, nj := col.isNull[i.Index], col.isNull[j.Index]
		if ni != nj {
			return false
		}
		if !ni && !mixed.Equal(s.value(c, i), s.value(c, j)) {
			return false
		}
	}
	return true
}

// Hash returns a 128-bit hash of the values of p
// on every chain. Rows for which Equal is true
// have equal hashes.
func (s *Sorter) Hash(p IndexPair) (lo, hi uint64) {
	for c := range s.columns {
		v := mixed.Null
		if !s.columns[c].isNull[p.Index] {
			v = s.value(c, p)
		}
		lo, hi = v.Hash(lo, hi)
	}
	return lo, hi
}

// HasLinks reports whether any chain follows a link.
func (s *Sorter) HasLinks() bool {
	for c := range s.columns {
		if s.columns[c].keys != nil {
			return true
		}
	}
	return false
}

// AnyIsNull reports whether p is null on any chain.
func (s *Sorter) AnyIsNull(p IndexPair) bool {
	for c := range s.columns {
		if s.columns[c].isNull[p.Index] {
			return true
		}
	}
	return false
}

// CacheFirstColumn resolves the value of the first
// chain for every row of v once, so that comparisons
// during a sort do not repeat the lookup.
func (s *Sorter) CacheFirstColumn(v View) {
	if len(s.columns) == 0 || s.cache != nil {
		return
	}
	cache := make([]mixed.Value, len(s.columns[0].isNull))
	for _, p := range v {
		if !s.columns[0].isNull[p.Index] {
			cache[p.Index] = s.value(0, p)
		}
	}
	s.cache = cache
}
