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

package heap

import (
	"math/rand"
	"testing"

	"golang.org/x/exp/slices"
)

func TestHeap(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	x := make([]int, 0, 1000)
	less := func(x, y int) bool {
		return x < y
	}
	for len(x) < cap(x) {
		PushSlice(&x, rng.Int(), less)
	}
	sorted := make([]int, 0, len(x))
	for len(x) > 0 {
		sorted = append(sorted, PopSlice(&x, less))
	}
	if !slices.IsSorted(sorted) {
		t.Fatal("not sorted")
	}

	for len(x) < cap(x) {
		PushSlice(&x, rng.Int(), less)
	}
	// disturb ordering, then Fix
	x[len(x)/2] = 1
	FixSlice(x, len(x)/2, less)
	sorted = sorted[:0]
	for len(x) > 0 {
		sorted = append(sorted, PopSlice(&x, less))
	}
	if !slices.IsSorted(sorted) {
		t.Fatal("not sorted after FixSlice")
	}
}

// pair mimics a row carrying its original
// position, ordered by value then position
type pair struct{ val, pos int }

func TestOrderSliceStable(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	x := make([]pair, 200)
	for i := range x {
		x[i] = pair{val: rng.Intn(5), pos: i}
	}
	less := func(a, b pair) bool {
		if a.val != b.val {
			return a.val < b.val
		}
		return a.pos < b.pos
	}
	OrderSlice(x, less)
	var out []pair
	for len(x) > 0 {
		out = append(out, PopSlice(&x, less))
	}
	if !slices.IsSortedFunc(out, less) {
		t.Fatal("not sorted")
	}
}
