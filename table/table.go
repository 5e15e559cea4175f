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
	"fmt"

	"github.com/SnellerInc/ordering/mixed"
	"github.com/google/uuid"
	"golang.org/x/exp/slices"
)

// Column describes one column of a Table.
type Column struct {
	Key  ColKey
	Name string
	// Target is the table that a Link or LinkList
	// column points into, or the origin table of
	// a BackLink column. It is nil for value columns.
	Target *Table
	// Origin is the link column that a BackLink
	// column mirrors.
	Origin ColKey
}

func (c Column) Type() ColumnType { return c.Key.Type() }

type object struct {
	vals  map[ColKey]mixed.Value
	links map[ColKey]ObjKey
	lists map[ColKey][]ObjKey
}

func (o *object) clone() *object {
	n := &object{}
	if o.vals != nil {
		n.vals = make(map[ColKey]mixed.Value, len(o.vals))
		for k, v := range o.vals {
			n.vals[k] = v
		}
	}
	if o.links != nil {
		n.links = make(map[ColKey]ObjKey, len(o.links))
		for k, v := range o.links {
			n.links[k] = v
		}
	}
	if o.lists != nil {
		n.lists = make(map[ColKey][]ObjKey, len(o.lists))
		for k, v := range o.lists {
			n.lists[k] = slices.Clone(v)
		}
	}
	return n
}

// Table is a set of objects with a common set of columns.
type Table struct {
	id    uuid.UUID
	group *Group
	name  string

	cols    []Column
	objs    map[ObjKey]*object
	keys    []ObjKey // creation order
	nextKey ObjKey
}

// ID identifies this particular table instance.
// Snapshots of the same logical table have
// different IDs.
func (t *Table) ID() uuid.UUID { return t.id }

func (t *Table) Name() string { return t.name }

// Group returns the group that owns t.
func (t *Table) Group() *Group { return t.group }

// Version returns the version of the owning group.
func (t *Table) Version() uint64 { return t.group.version }

// Columns returns the columns of t in creation order.
func (t *Table) Columns() []Column {
	return slices.Clone(t.cols)
}

// Column returns the column identified by key.
func (t *Table) Column(key ColKey) (Column, bool) {
	i := t.colIndex(key)
	if i < 0 {
		return Column{}, false
	}
	return t.cols[i], true
}

// HasColumn returns whether key identifies
// a live column of t.
func (t *Table) HasColumn(key ColKey) bool {
	return t.colIndex(key) >= 0
}

// ColumnKey looks up a column by name.
func (t *Table) ColumnKey(name string) (ColKey, bool) {
	for i := range t.cols {
		if t.cols[i].Name == name {
			return t.cols[i].Key, true
		}
	}
	return NullColKey, false
}

func (t *Table) colIndex(key ColKey) int {
	for i := range t.cols {
		if t.cols[i].Key == key {
			return i
		}
	}
	return -1
}

// AddColumn adds a value column.
func (t *Table) AddColumn(name string, typ ColumnType) (ColKey, error) {
	if typ.hasTarget() {
		return NullColKey, fmt.Errorf("table.AddColumn %q: %s column needs a target: %w", name, typ, ErrTypeMismatch)
	}
	if typ.valueType() == mixed.NullType {
		return NullColKey, fmt.Errorf("table.AddColumn %q: invalid column type %d", name, typ)
	}
	return t.addColumn(name, typ, nil, NullColKey)
}

// AddLinkColumn adds a Link or LinkList column
// pointing into target, along with the matching
// BackLink column on target.
func (t *Table) AddLinkColumn(name string, typ ColumnType, target *Table) (ColKey, error) {
	if typ != Link && typ != LinkList {
		return NullColKey, fmt.Errorf("table.AddLinkColumn %q: %s is not a link type: %w", name, typ, ErrTypeMismatch)
	}
	if target == nil || target.group != t.group {
		return NullColKey, fmt.Errorf("table.AddLinkColumn %q: target must belong to the same group", name)
	}
	key, err := t.addColumn(name, typ, target, NullColKey)
	if err != nil {
		return key, err
	}
	_, err = target.addColumn(backlinkName(t.name, name), BackLink, t, key)
	if err != nil {
		t.cols = t.cols[:len(t.cols)-1]
		return NullColKey, err
	}
	return key, nil
}

func backlinkName(origin, col string) string {
	return "@links." + origin + "." + col
}

func (t *Table) addColumn(name string, typ ColumnType, target *Table, origin ColKey) (ColKey, error) {
	if name == "" {
		return NullColKey, fmt.Errorf("table.AddColumn: empty column name")
	}
	if _, ok := t.ColumnKey(name); ok {
		return NullColKey, fmt.Errorf("table.AddColumn %q: %w", name, ErrDuplicate)
	}
	key := makeColKey(t.group.tag(), typ)
	t.cols = append(t.cols, Column{Key: key, Name: name, Target: target, Origin: origin})
	return key, nil
}

// RemoveColumn removes a column and its data.
// Removing a link column also removes the
// BackLink column on its target.
func (t *Table) RemoveColumn(key ColKey) error {
	i := t.colIndex(key)
	if i < 0 {
		return fmt.Errorf("table.RemoveColumn %s from %s: %w", key, t.name, ErrNoSuchColumn)
	}
	col := t.cols[i]
	if col.Type() == BackLink {
		return fmt.Errorf("table.RemoveColumn %s: backlink columns are removed with their origin", col.Name)
	}
	t.cols = slices.Delete(t.cols, i, i+1)
	for _, o := range t.objs {
		delete(o.vals, key)
		delete(o.links, key)
		delete(o.lists, key)
	}
	if col.Target != nil {
		tgt := col.Target
		for j := range tgt.cols {
			if tgt.cols[j].Type() == BackLink && tgt.cols[j].Origin == key {
				tgt.cols = slices.Delete(tgt.cols, j, j+1)
				break
			}
		}
	}
	return nil
}

// Create adds a new object with every column unset
// and returns its key.
func (t *Table) Create() ObjKey {
	k := t.nextKey
	t.nextKey++
	t.objs[k] = &object{}
	t.keys = append(t.keys, k)
	return k
}

// Remove deletes an object. Links that point
// to the object are left dangling; readers
// must treat them as unset.
func (t *Table) Remove(obj ObjKey) error {
	if _, ok := t.objs[obj]; !ok {
		return fmt.Errorf("table.Remove %s from %s: %w", obj, t.name, ErrNoSuchObject)
	}
	delete(t.objs, obj)
	if i := slices.Index(t.keys, obj); i >= 0 {
		t.keys = slices.Delete(t.keys, i, i+1)
	}
	return nil
}

// IsValid returns whether obj is a live object of t.
func (t *Table) IsValid(obj ObjKey) bool {
	_, ok := t.objs[obj]
	return ok
}

// Keys returns the keys of all live objects
// in creation order.
func (t *Table) Keys() []ObjKey {
	return slices.Clone(t.keys)
}

// Size returns the number of live objects.
func (t *Table) Size() int { return len(t.keys) }

func (t *Table) lookup(obj ObjKey, key ColKey) (*object, *Column, error) {
	o, ok := t.objs[obj]
	if !ok {
		return nil, nil, fmt.Errorf("%s in %s: %w", obj, t.name, ErrNoSuchObject)
	}
	i := t.colIndex(key)
	if i < 0 {
		return nil, nil, fmt.Errorf("%s in %s: %w", key, t.name, ErrNoSuchColumn)
	}
	return o, &t.cols[i], nil
}

// Set stores v in a value column. Storing
// mixed.Null clears the value. Float columns
// also accept integers.
func (t *Table) Set(obj ObjKey, key ColKey, v mixed.Value) error {
	o, col, err := t.lookup(obj, key)
	if err != nil {
		return fmt.Errorf("table.Set: %w", err)
	}
	want := col.Type().valueType()
	if want == mixed.NullType {
		return fmt.Errorf("table.Set %s: %s column: %w", col.Name, col.Type(), ErrTypeMismatch)
	}
	if v.IsNull() {
		delete(o.vals, key)
		return nil
	}
	if v.Type() == mixed.IntType && want == mixed.FloatType {
		f, _ := v.AsFloat()
		v = mixed.Float(f)
	}
	if v.Type() != want {
		return fmt.Errorf("table.Set %s: cannot store %s in %s column: %w", col.Name, v.Type(), col.Type(), ErrTypeMismatch)
	}
	if o.vals == nil {
		o.vals = make(map[ColKey]mixed.Value)
	}
	o.vals[key] = v
	return nil
}

// Get returns the value of a value column;
// unset values are mixed.Null.
func (t *Table) Get(obj ObjKey, key ColKey) (mixed.Value, error) {
	o, col, err := t.lookup(obj, key)
	if err != nil {
		return mixed.Null, fmt.Errorf("table.Get: %w", err)
	}
	if col.Type().valueType() == mixed.NullType {
		return mixed.Null, fmt.Errorf("table.Get %s: %s column: %w", col.Name, col.Type(), ErrTypeMismatch)
	}
	return o.vals[key], nil
}

// SetLink sets a Link column. target must be
// NullKey or a live object of the link target table.
func (t *Table) SetLink(obj ObjKey, key ColKey, target ObjKey) error {
	o, col, err := t.lookup(obj, key)
	if err != nil {
		return fmt.Errorf("table.SetLink: %w", err)
	}
	if col.Type() != Link {
		return fmt.Errorf("table.SetLink %s: %s column: %w", col.Name, col.Type(), ErrTypeMismatch)
	}
	if target == NullKey {
		delete(o.links, key)
		return nil
	}
	if !col.Target.IsValid(target) {
		return fmt.Errorf("table.SetLink %s: target %s: %w", col.Name, target, ErrNoSuchObject)
	}
	if o.links == nil {
		o.links = make(map[ColKey]ObjKey)
	}
	o.links[key] = target
	return nil
}

// GetLink returns the target of a Link column,
// or NullKey if it is unset. The returned key
// may refer to an object that has since been
// removed from the target table.
func (t *Table) GetLink(obj ObjKey, key ColKey) (ObjKey, error) {
	o, col, err := t.lookup(obj, key)
	if err != nil {
		return NullKey, fmt.Errorf("table.GetLink: %w", err)
	}
	if col.Type() != Link {
		return NullKey, fmt.Errorf("table.GetLink %s: %s column: %w", col.Name, col.Type(), ErrTypeMismatch)
	}
	if k, ok := o.links[key]; ok {
		return k, nil
	}
	return NullKey, nil
}

// SetLinkList replaces the contents of a LinkList column.
func (t *Table) SetLinkList(obj ObjKey, key ColKey, targets []ObjKey) error {
	o, col, err := t.lookup(obj, key)
	if err != nil {
		return fmt.Errorf("table.SetLinkList: %w", err)
	}
	if col.Type() != LinkList {
		return fmt.Errorf("table.SetLinkList %s: %s column: %w", col.Name, col.Type(), ErrTypeMismatch)
	}
	for _, k := range targets {
		if !col.Target.IsValid(k) {
			return fmt.Errorf("table.SetLinkList %s: target %s: %w", col.Name, k, ErrNoSuchObject)
		}
	}
	if o.lists == nil {
		o.lists = make(map[ColKey][]ObjKey)
	}
	o.lists[key] = slices.Clone(targets)
	return nil
}

// GetLinkList returns the targets of a LinkList column.
func (t *Table) GetLinkList(obj ObjKey, key ColKey) ([]ObjKey, error) {
	o, col, err := t.lookup(obj, key)
	if err != nil {
		return nil, fmt.Errorf("table.GetLinkList: %w", err)
	}
	if col.Type() != LinkList {
		return nil, fmt.Errorf("table.GetLinkList %s: %s column: %w", col.Name, col.Type(), ErrTypeMismatch)
	}
	return slices.Clone(o.lists[key]), nil
}

func (t *Table) copyInto(dst *Table, remap map[*Table]*Table) {
	dst.cols = make([]Column, len(t.cols))
	for i, c := range t.cols {
		if c.Target != nil {
			c.Target = remap[c.Target]
		}
		dst.cols[i] = c
	}
	dst.keys = slices.Clone(t.keys)
	for k, o := range t.objs {
		dst.objs[k] = o.clone()
	}
}
