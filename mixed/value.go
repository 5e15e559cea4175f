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

// Package mixed implements the dynamically-typed
// value that descriptors use to compare terminal
// column values.
//
// Values of different types are ordered as follows:
//
//   - null,
//   - false, true,
//   - numbers (integers and floats compare by magnitude),
//   - timestamps,
//   - strings,
//   - binary blobs.
//
// NaN compares below every other number and equal
// to another NaN, so the ordering is total.
package mixed

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Type is the dynamic type of a Value.
type Type uint8

const (
	NullType Type = iota
	BoolType
	IntType
	FloatType
	TimestampType
	StringType
	BinaryType
)

func (t Type) String() string {
	switch t {
	case NullType:
		return "null"
	case BoolType:
		return "bool"
	case IntType:
		return "int"
	case FloatType:
		return "float"
	case TimestampType:
		return "timestamp"
	case StringType:
		return "string"
	case BinaryType:
		return "binary"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// Value is a null-able value of one of the
// types enumerated by Type. The zero Value is null.
type Value struct {
	typ Type
	num int64   // bool, int, timestamp (unix nanoseconds)
	flt float64 // float
	str string  // string, binary
}

// Null is the null value.
var Null = Value{}

func Bool(b bool) Value {
	v := Value{typ: BoolType}
	if b {
		v.num = 1
	}
	return v
}

func Int(i int64) Value { return Value{typ: IntType, num: i} }

func Float(f float64) Value { return Value{typ: FloatType, flt: f} }

func String(s string) Value { return Value{typ: StringType, str: s} }

// Binary returns a binary value holding
// a copy of b. A nil slice produces null.
func Binary(b []byte) Value {
	if b == nil {
		return Null
	}
	return Value{typ: BinaryType, str: string(b)}
}

// Timestamp returns a timestamp value.
// Timestamps are kept with nanosecond
// precision in UTC.
func Timestamp(t time.Time) Value {
	return Value{typ: TimestampType, num: t.UnixNano()}
}

// FromGo converts a plain Go value into a Value.
// JSON-decoded numbers (float64) that hold
// integral values remain floats; callers that
// know the column type should convert explicitly.
func FromGo(x interface{}) (Value, error) {
	switch x := x.(type) {
	case nil:
		return Null, nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case string:
		return String(x), nil
	case []byte:
		return Binary(x), nil
	case time.Time:
		return Timestamp(x), nil
	default:
		return Null, fmt.Errorf("mixed.FromGo: unsupported type %T", x)
	}
}

func (v Value) Type() Type   { return v.typ }
func (v Value) IsNull() bool { return v.typ == NullType }

// AsBool returns the boolean held in v
// and whether v is a bool.
func (v Value) AsBool() (bool, bool) { return v.num != 0, v.typ == BoolType }

// AsInt returns the integer held in v
// and whether v is an int.
func (v Value) AsInt() (int64, bool) { return v.num, v.typ == IntType }

// AsFloat returns v as a float64 for
// both int and float values.
func (v Value) AsFloat() (float64, bool) {
	switch v.typ {
	case IntType:
		return float64(v.num), true
	case FloatType:
		return v.flt, true
	}
	return 0, false
}

func (v Value) AsString() (string, bool) { return v.str, v.typ == StringType }

func (v Value) AsBytes() ([]byte, bool) {
	if v.typ != BinaryType {
		return nil, false
	}
	return []byte(v.str), true
}

func (v Value) AsTime() (time.Time, bool) {
	if v.typ != TimestampType {
		return time.Time{}, false
	}
	return time.Unix(0, v.num).UTC(), true
}

func (v Value) String() string {
	switch v.typ {
	case NullType:
		return "null"
	case BoolType:
		return strconv.FormatBool(v.num != 0)
	case IntType:
		return strconv.FormatInt(v.num, 10)
	case FloatType:
		return strconv.FormatFloat(v.flt, 'g', -1, 64)
	case TimestampType:
		return time.Unix(0, v.num).UTC().Format(time.RFC3339Nano)
	case StringType:
		return strconv.Quote(v.str)
	case BinaryType:
		return "{{" + base64.StdEncoding.EncodeToString([]byte(v.str)) + "}}"
	default:
		return "<invalid>"
	}
}

// canonicalFloat folds the values that compare
// equal but have distinct bit patterns.
func canonicalFloat(f float64) float64 {
	if math.IsNaN(f) {
		return math.NaN()
	}
	if f == 0 {
		return 0
	}
	return f
}
