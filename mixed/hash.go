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
	"encoding/binary"
	"math"

	"github.com/dchest/siphash"
)

// hash encoding tags; ints and floats
// share a tag since they may compare equal
const (
	hashNull byte = iota
	hashBool
	hashNumber
	hashTimestamp
	hashString
	hashBinary
)

// Hash returns a 128-bit siphash of v keyed by (k0, k1).
// Values that compare equal produce equal hashes.
// Hashes of tuples are computed by seeding each
// member's hash with the result for the previous member.
func (v Value) Hash(k0, k1 uint64) (lo, hi uint64) {
	var tmp [9]byte
	buf := v.AppendKey(tmp[:0])
	return siphash.Hash128(k0, k1, buf)
}

// AppendKey appends the canonical key encoding
// of v to dst. Equal values have identical
// encodings; the reverse is not guaranteed for
// numbers wider than 53 bits.
func (v Value) AppendKey(dst []byte) []byte {
	switch v.typ {
	case NullType:
		return append(dst, hashNull)
	case BoolType:
		return append(dst, hashBool, byte(v.num))
	case IntType:
		return appendFloat(append(dst, hashNumber), float64(v.num))
	case FloatType:
		return appendFloat(append(dst, hashNumber), canonicalFloat(v.flt))
	case TimestampType:
		return appendUint64(append(dst, hashTimestamp), uint64(v.num))
	case StringType:
		return append(append(dst, hashString), v.str...)
	case BinaryType:
		return append(append(dst, hashBinary), v.str...)
	}
	panic("mixed.Value.AppendKey: invalid type")
}

func appendFloat(dst []byte, f float64) []byte {
	return appendUint64(dst, math.Float64bits(f))
}

func appendUint64(dst []byte, u uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], u)
	return append(dst, b[:]...)
}
