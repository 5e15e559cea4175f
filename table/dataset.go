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
	"encoding/base64"
	"fmt"
	"io/fs"
	"math"
	"time"

	"github.com/SnellerInc/ordering/mixed"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"sigs.k8s.io/yaml"
)

// Row is one row of a Dataset, keyed by column name.
type Row map[string]interface{}

// Dataset is a Schema together with rows for
// its tables. Link and linklist values are
// zero-based row numbers within the target
// table's rows.
type Dataset struct {
	Schema
	Rows map[string][]Row `json:"rows,omitempty"`
}

// DecodeDataset decodes a dataset from JSON or YAML.
func DecodeDataset(buf []byte) (*Dataset, error) {
	d := new(Dataset)
	if err := yaml.UnmarshalStrict(buf, d); err != nil {
		return nil, fmt.Errorf("table.DecodeDataset: %w", err)
	}
	return d, nil
}

// ReadDataset reads and decodes the dataset
// at path within f.
func ReadDataset(f fs.FS, path string) (*Dataset, error) {
	buf, err := readBounded(f, path)
	if err != nil {
		return nil, err
	}
	return DecodeDataset(buf)
}

// Build creates a Group from the schema and
// populates it with the dataset rows. Objects
// are created in row order, so the n-th row of
// a table is the n-th entry of Table.Keys.
func (d *Dataset) Build() (*Group, error) {
	g, err := d.Schema.Build()
	if err != nil {
		return nil, err
	}
	// sort table names so errors are deterministic
	names := maps.Keys(d.Rows)
	slices.Sort(names)
	objs := make(map[string][]ObjKey, len(names))
	for _, name := range names {
		t := g.Table(name)
		if t == nil {
			return nil, fmt.Errorf("rows for table %q: %w", name, ErrNoSuchTable)
		}
		keys := make([]ObjKey, len(d.Rows[name]))
		for i := range keys {
			keys[i] = t.Create()
		}
		objs[name] = keys
	}
	for _, name := range names {
		t := g.Table(name)
		for i, row := range d.Rows[name] {
			if err := setRow(t, objs[name][i], row, objs); err != nil {
				return nil, fmt.Errorf("table %q row %d: %w", name, i, err)
			}
		}
	}
	return g, nil
}

func setRow(t *Table, obj ObjKey, row Row, objs map[string][]ObjKey) error {
	cols := maps.Keys(row)
	slices.Sort(cols)
	for _, name := range cols {
		key, ok := t.ColumnKey(name)
		if !ok {
			return fmt.Errorf("column %q: %w", name, ErrNoSuchColumn)
		}
		col, _ := t.Column(key)
		raw := row[name]
		switch col.Type() {
		case Link:
			target, err := rowRef(raw, objs[col.Target.name])
			if err != nil {
				return fmt.Errorf("column %q: %w", name, err)
			}
			if err := t.SetLink(obj, key, target); err != nil {
				return err
			}
		case LinkList:
			lst, ok := raw.([]interface{})
			if !ok && raw != nil {
				return fmt.Errorf("column %q: expected a list, found %T: %w", name, raw, ErrTypeMismatch)
			}
			targets := make([]ObjKey, 0, len(lst))
			for _, item := range lst {
				k, err := rowRef(item, objs[col.Target.name])
				if err != nil {
					return fmt.Errorf("column %q: %w", name, err)
				}
				if k != NullKey {
					targets = append(targets, k)
				}
			}
			if err := t.SetLinkList(obj, key, targets); err != nil {
				return err
			}
		default:
			v, err := convert(raw, col.Type())
			if err != nil {
				return fmt.Errorf("column %q: %w", name, err)
			}
			if err := t.Set(obj, key, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func rowRef(raw interface{}, keys []ObjKey) (ObjKey, error) {
	if raw == nil {
		return NullKey, nil
	}
	f, ok := raw.(float64)
	if !ok || f != math.Trunc(f) {
		return NullKey, fmt.Errorf("link value %v is not a row number: %w", raw, ErrTypeMismatch)
	}
	n := int(f)
	if n < 0 || n >= len(keys) {
		return NullKey, fmt.Errorf("row %d out of range: %w", n, ErrNoSuchObject)
	}
	return keys[n], nil
}

// convert turns a JSON-decoded value into
// a mixed.Value of the given column type.
func convert(raw interface{}, typ ColumnType) (mixed.Value, error) {
	if raw == nil {
		return mixed.Null, nil
	}
	bad := func() (mixed.Value, error) {
		return mixed.Null, fmt.Errorf("cannot use %T as %s: %w", raw, typ, ErrTypeMismatch)
	}
	switch typ {
	case Int:
		f, ok := raw.(float64)
		if !ok || f != math.Trunc(f) {
			return bad()
		}
		return mixed.Int(int64(f)), nil
	case Float:
		f, ok := raw.(float64)
		if !ok {
			return bad()
		}
		return mixed.Float(f), nil
	case Bool:
		b, ok := raw.(bool)
		if !ok {
			return bad()
		}
		return mixed.Bool(b), nil
	case String:
		s, ok := raw.(string)
		if !ok {
			return bad()
		}
		return mixed.String(s), nil
	case Timestamp:
		s, ok := raw.(string)
		if !ok {
			return bad()
		}
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return mixed.Null, err
		}
		return mixed.Timestamp(ts), nil
	case Binary:
		s, ok := raw.(string)
		if !ok {
			return bad()
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return mixed.Null, err
		}
		return mixed.Binary(b), nil
	}
	return bad()
}
