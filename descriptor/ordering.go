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
	"fmt"
	"strings"

	"github.com/SnellerInc/ordering/table"
)

// Ordering is an ordered pipeline of descriptors.
// Stages run in the order they were appended, and
// each stage sees the output of the one before it.
//
// The zero Ordering is empty and ready to use.
type Ordering struct {
	descriptors []*Descriptor
}

// AppendSort appends a sort stage. Invalid
// (nil or empty) descriptors are ignored.
// Every sort and distinct stage of an Ordering
// must be built on the same table instance;
// otherwise AppendSort returns ErrTableMismatch.
func (o *Ordering) AppendSort(d *Descriptor) error {
	if !d.IsValid() {
		return nil
	}
	if d.kind != KindSort {
		return fmt.Errorf("Ordering.AppendSort: %s descriptor: %w", d.kind, ErrWrongKind)
	}
	if err := o.checkTable(d.Table()); err != nil {
		return fmt.Errorf("Ordering.AppendSort: %w", err)
	}
	o.descriptors = append(o.descriptors, d.Clone())
	return nil
}

// AppendDistinct appends a distinct stage. Invalid
// (nil or empty) descriptors are ignored. See
// AppendSort for the table restriction.
func (o *Ordering) AppendDistinct(d *Descriptor) error {
	if !d.IsValid() {
		return nil
	}
	if d.kind != KindDistinct {
		return fmt.Errorf("Ordering.AppendDistinct: %s descriptor: %w", d.kind, ErrWrongKind)
	}
	if err := o.checkTable(d.Table()); err != nil {
		return fmt.Errorf("Ordering.AppendDistinct: %w", err)
	}
	o.descriptors = append(o.descriptors, d.Clone())
	return nil
}

// Table returns the table that the sort and
// distinct stages of o are built on, or nil
// if o has none.
func (o *Ordering) Table() *table.Table {
	for _, d := range o.descriptors {
		if t := d.Table(); t != nil {
			return t
		}
	}
	return nil
}

func (o *Ordering) checkTable(t *table.Table) error {
	base := o.Table()
	if base == nil || t == nil || sameTable(base, t) {
		return nil
	}
	return fmt.Errorf("stage on %s (%s) after stages on %s (%s): %w",
		t.Name(), t.ID(), base.Name(), base.ID(), ErrTableMismatch)
}

// AppendLimit appends a stage that keeps
// at most n rows.
func (o *Ordering) AppendLimit(n int) error {
	d, err := NewLimit(n)
	if err != nil {
		return err
	}
	o.descriptors = append(o.descriptors, d)
	return nil
}

// Append appends every stage of other to o.
// Both must be built on the same table
// (see AppendSort); otherwise o is unchanged.
func (o *Ordering) Append(other *Ordering) error {
	if other == nil {
		return nil
	}
	if err := o.checkTable(other.Table()); err != nil {
		return fmt.Errorf("Ordering.Append: %w", err)
	}
	for _, d := range other.descriptors {
		o.descriptors = append(o.descriptors, d.Clone())
	}
	return nil
}

// Len returns the number of stages in o.
func (o *Ordering) Len() int { return len(o.descriptors) }

// IsEmpty returns whether o has no stages.
func (o *Ordering) IsEmpty() bool { return len(o.descriptors) == 0 }

// At returns a copy of stage i.
func (o *Ordering) At(i int) *Descriptor {
	return o.descriptors[i].Clone()
}

func (o *Ordering) has(k Kind) bool {
	for _, d := range o.descriptors {
		if d.kind == k {
			return true
		}
	}
	return false
}

// WillApplySort returns whether o has a sort stage.
func (o *Ordering) WillApplySort() bool { return o.has(KindSort) }

// WillApplyDistinct returns whether o has a distinct stage.
func (o *Ordering) WillApplyDistinct() bool { return o.has(KindDistinct) }

// WillApplyLimit returns whether o has a limit stage.
func (o *Ordering) WillApplyLimit() bool { return o.has(KindLimit) }

// MinLimit returns the smallest limit of any
// stage in o, and false if o has no limit.
// No view produced by o is longer than MinLimit.
func (o *Ordering) MinLimit() (int, bool) {
	min, ok := 0, false
	for _, d := range o.descriptors {
		if d.kind == KindLimit && (!ok || d.limit < min) {
			min, ok = d.limit, true
		}
	}
	return min, ok
}

// WillLimitToZero returns whether o
// always produces an empty view.
func (o *Ordering) WillLimitToZero() bool {
	n, ok := o.MinLimit()
	return ok && n == 0
}

// Clone returns a deep copy of o.
func (o *Ordering) Clone() *Ordering {
	c := &Ordering{descriptors: make([]*Descriptor, len(o.descriptors))}
	for i, d := range o.descriptors {
		c.descriptors[i] = d.Clone()
	}
	return c
}

// Description renders every stage of o against t,
// separated by a single space. A nil t renders each
// stage against the table it was built on.
func (o *Ordering) Description(t *table.Table) (string, error) {
	parts := make([]string, 0, len(o.descriptors))
	for i, d := range o.descriptors {
		s, err := d.Description(t)
		if err != nil {
			return "", fmt.Errorf("stage %d: %w", i, err)
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " "), nil
}

func (o *Ordering) String() string {
	s, err := o.Description(nil)
	if err != nil {
		return fmt.Sprintf("<%s>", err)
	}
	return s
}

// Execute runs every stage of o over v and returns
// the resulting view. v is not modified. Before each
// stage the view positions are renumbered, so every
// comparator sees the order produced by the previous
// stage.
//
// Every column used by o is checked before any stage
// runs; if one has been removed, Execute returns a
// *ResolveError wrapping ErrColumnRemoved.
func (o *Ordering) Execute(v View, ep *ExecParams) (View, error) {
	for i, d := range o.descriptors {
		if err := revalidate(d.columns); err != nil {
			return nil, fmt.Errorf("Ordering.Execute: stage %d: %w", i, err)
		}
	}
	out := make(View, len(v))
	copy(out, v)
	if t := o.Table(); t != nil {
		ep.logf("executing %d stages on %s (%s), %d rows", len(o.descriptors), t.Name(), t.ID(), len(v))
	}
	for i := 0; i < len(o.descriptors); i++ {
		d := o.descriptors[i]
		out.stamp()
		if d.kind == KindLimit {
			before := len(out)
			out = d.Execute(out, nil)
			ep.logf("stage %d: LIMIT(%d): %d -> %d rows", i, d.limit, before, len(out))
			continue
		}
		s, err := d.Sorter(out)
		if err != nil {
			return nil, fmt.Errorf("Ordering.Execute: stage %d: %w", i, err)
		}
		before := len(out)
		if d.kind == KindSort && ep.topk() && i+1 < len(o.descriptors) && o.descriptors[i+1].kind == KindLimit {
			lim := o.descriptors[i+1].limit
			out = topk(out, s, lim)
			ep.logf("stage %d-%d: top %d of %d rows by %s", i, i+1, lim, before, d)
			i++
			continue
		}
		out = d.Execute(out, s)
		ep.logf("stage %d: %s: %d -> %d rows", i, d, before, len(out))
	}
	return out, nil
}
