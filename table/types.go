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

// Package table implements the in-memory
// object store that descriptors resolve
// columns and rows against.
//
// Rows are addressed by an ObjKey that is stable
// for the lifetime of the row, and columns by a
// ColKey that is stable for the lifetime of the
// column, including across snapshots of the
// owning Group.
package table

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/SnellerInc/ordering/mixed"
)

var (
	ErrNoSuchColumn = errors.New("no such column")
	ErrNoSuchObject = errors.New("no such object")
	ErrNoSuchTable  = errors.New("no such table")
	ErrTypeMismatch = errors.New("type mismatch")
	ErrDuplicate    = errors.New("duplicate name")
)

// ObjKey is the stable identity of a row.
type ObjKey int64

// NullKey is the ObjKey of an unset link.
const NullKey ObjKey = -1

func (k ObjKey) String() string {
	if k == NullKey {
		return "null"
	}
	return "O" + strconv.FormatInt(int64(k), 10)
}

// ColumnType is the type of the values
// stored in a column.
type ColumnType uint8

const (
	Int ColumnType = iota + 1
	Bool
	Float
	Timestamp
	String
	Binary
	// Link columns hold a single ObjKey
	// of a row in the target table.
	Link
	// LinkList columns hold a list of ObjKeys.
	LinkList
	// BackLink columns are maintained implicitly
	// on the target of every Link and LinkList column.
	BackLink
)

var typeNames = [...]string{
	Int:       "int",
	Bool:      "bool",
	Float:     "float",
	Timestamp: "timestamp",
	String:    "string",
	Binary:    "binary",
	Link:      "link",
	LinkList:  "linklist",
	BackLink:  "backlink",
}

func (t ColumnType) String() string {
	if int(t) < len(typeNames) && typeNames[t] != "" {
		return typeNames[t]
	}
	return fmt.Sprintf("ColumnType(%d)", uint8(t))
}

// ParseColumnType is the inverse of ColumnType.String.
func ParseColumnType(s string) (ColumnType, bool) {
	for i := range typeNames {
		if typeNames[i] != "" && typeNames[i] == s {
			return ColumnType(i), true
		}
	}
	return 0, false
}

// IsLink returns true for single-target link
// columns, the only kind of column a descriptor
// chain may traverse.
func (t ColumnType) IsLink() bool { return t == Link }

// IsList returns true for list-like link columns.
func (t ColumnType) IsList() bool { return t == LinkList || t == BackLink }

func (t ColumnType) hasTarget() bool { return t == Link || t.IsList() }

// valueType returns the mixed.Type stored
// in columns of type t.
func (t ColumnType) valueType() mixed.Type {
	switch t {
	case Int:
		return mixed.IntType
	case Bool:
		return mixed.BoolType
	case Float:
		return mixed.FloatType
	case Timestamp:
		return mixed.TimestampType
	case String:
		return mixed.StringType
	case Binary:
		return mixed.BinaryType
	}
	return mixed.NullType
}

// ColKey identifies a column. The low byte
// holds the ColumnType and the remaining bits a
// tag that is unique within a Group and all of
// its snapshots, so a removed column's key is
// never handed out again.
type ColKey uint64

// NullColKey is never a valid column.
const NullColKey ColKey = 0

func makeColKey(tag uint64, typ ColumnType) ColKey {
	return ColKey(tag<<8 | uint64(typ))
}

func (c ColKey) Type() ColumnType { return ColumnType(c & 0xff) }
func (c ColKey) Tag() uint64      { return uint64(c >> 8) }

func (c ColKey) String() string {
	if c == NullColKey {
		return "C<null>"
	}
	return fmt.Sprintf("C%d:%s", c.Tag(), c.Type())
}
