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

// distinct filters v in place, keeping the first
// row of every group of rows that s considers equal.
// Rows are bucketed by their hash and confirmed
// with Sorter.Equal, so hash collisions never
// merge rows that differ.
func distinct(v View, s *Sorter) View {
	seen := make(map[[2]uint64][]IndexPair, len(v))
	out := v[:0]
outer:
	for _, p := range v {
		lo, hi := s.Hash(p)
		h := [2]uint64{lo, hi}
		for _, q := range seen[h] {
			if s.Equal(p, q) {
				continue outer
			}
		}
		seen[h] = append(seen[h], p)
		out = append(out, p)
	}
	return out
}
