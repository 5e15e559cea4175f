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
	"github.com/SnellerInc/ordering/heap"
)

// ktop keeps the k rows of a view that sort first
// under a Sorter. Rows are held in a heap whose root
// is the row that currently sorts last, so it can be
// replaced in O(log k) when a smaller row arrives.
type ktop struct {
	s     *Sorter
	limit int
	rows  []IndexPair
}

func newKtop(s *Sorter, limit int) *ktop {
	n := limit
	if n > 64 {
		n = 64
	}
	return &ktop{s: s, limit: limit, rows: make([]IndexPair, 0, n)}
}

// greater is the heap order: the root is the
// row furthest from the beginning of the sort.
func (k *ktop) greater(a, b IndexPair) bool {
	return k.s.Less(b, a, true)
}

// add offers p to the collection and
// returns whether it was kept.
func (k *ktop) add(p IndexPair) bool {
	if len(k.rows) < k.limit {
		heap.PushSlice(&k.rows, p, k.greater)
		return true
	}
	if len(k.rows) > 0 && k.s.Less(p, k.rows[0], true) {
		k.rows[0] = p
		heap.FixSlice(k.rows, 0, k.greater)
		return true
	}
	return false
}

// capture empties the heap into dst in sort order.
// dst must have room for every captured row.
func (k *ktop) capture(dst View) View {
	dst = dst[:len(k.rows)]
	for i := len(dst) - 1; i >= 0; i-- {
		dst[i] = heap.PopSlice(&k.rows, k.greater)
	}
	return dst
}

// topk returns the first limit rows of v in the
// order a stable sort by s would produce. The
// result reuses the storage of v.
func topk(v View, s *Sorter, limit int) View {
	k := newKtop(s, limit)
	for _, p := range v {
		k.add(p)
	}
	return k.capture(v)
}
