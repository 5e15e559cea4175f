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

package mixed

import (
	"math"
	"strings"

	"golang.org/x/exp/constraints"
)

// rank orders the type classes; ints and
// floats share a class and compare numerically
var rank = [...]uint8{
	NullType:      0,
	BoolType:      1,
	IntType:       2,
	FloatType:     2,
	TimestampType: 3,
	StringType:    4,
	BinaryType:    5,
}

func cmp3[T constraints.Ordered](a, b T) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// Compare returns -1, 0 or 1 depending on
// whether a sorts before, equal to, or after b.
// Null sorts before every other value.
func Compare(a, b Value) int {
	if a.typ == b.typ {
		switch a.typ {
		case NullType:
			return 0
		case BoolType, IntType, TimestampType:
			return cmp3(a.num, b.num)
		case FloatType:
			return compareFloats(a.flt, b.flt)
		case StringType, BinaryType:
			return strings.Compare(a.str, b.str)
		}
	}
	ra, rb := rank[a.typ], rank[b.typ]
	if ra != rb {
		return cmp3(ra, rb)
	}
	// mixed int/float
	if a.typ == IntType {
		return compareIntFloat(a.num, b.flt)
	}
	return -compareIntFloat(b.num, a.flt)
}

// Equal returns whether a and b compare equal.
// Two nulls are equal.
func Equal(a, b Value) bool {
	return Compare(a, b) == 0
}

// Less reports whether a sorts strictly before b.
func Less(a, b Value) bool {
	return Compare(a, b) < 0
}

func compareFloats(a, b float64) int {
	an, bn := math.IsNaN(a), math.IsNaN(b)
	if an || bn {
		if an && bn {
			return 0
		}
		if an {
			return -1
		}
		return 1
	}
	return cmp3(a, b)
}

// 2^63 as a float64
const twoTo63 = 9223372036854775808.0

func compareIntFloat(i int64, f float64) int {
	if math.IsNaN(f) {
		return 1
	}
	if f < -twoTo63 {
		return 1
	}
	if f >= twoTo63 {
		return -1
	}
	t := math.Trunc(f)
	if c := cmp3(i, int64(t)); c != 0 {
		return c
	}
	// integral parts agree; the fraction decides
	return cmp3(0, f-t)
}
