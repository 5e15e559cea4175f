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
	"github.com/SnellerInc/ordering/table"
)

// IndexPair is one row of a View: the stable
// identity of the row and its position in the
// view when the current stage started.
type IndexPair struct {
	Key   table.ObjKey
	Index int
}

// View is an ordered set of rows that
// descriptors reorder and filter in place.
type View []IndexPair

// NewView returns a View over keys,
// in the given order.
func NewView(keys []table.ObjKey) View {
	v := make(View, len(keys))
	for i := range keys {
		v[i] = IndexPair{Key: keys[i], Index: i}
	}
	return v
}

// Keys returns the row keys of v in view order.
func (v View) Keys() []table.ObjKey {
	out := make([]table.ObjKey, len(v))
	for i := range v {
		out[i] = v[i].Key
	}
	return out
}

// stamp sets every Index to the current position.
func (v View) stamp() {
	for i := range v {
		v[i].Index = i
	}
}

// span returns one past the largest Index in v.
func (v View) span() int {
	n := 0
	for i := range v {
		if v[i].Index >= n {
			n = v[i].Index + 1
		}
	}
	return n
}
