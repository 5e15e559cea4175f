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
	"golang.org/x/exp/slices"
)

// Kind is the kind of a Descriptor.
type Kind uint8

const (
	KindSort Kind = iota + 1
	KindDistinct
	KindLimit
)

var kindNames = [...]string{
	KindSort:     "sort",
	KindDistinct: "distinct",
	KindLimit:    "limit",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if int(k) >= len(kindNames) || kindNames[k] == "" {
		return nil, fmt.Errorf("descriptor: invalid kind %d", uint8(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	for i := range kindNames {
		if kindNames[i] != "" && kindNames[i] == string(text) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("descriptor: unknown kind %q", text)
}

// Descriptor is one stage of an Ordering:
// a sort, a distinct or a limit.
//
// The zero Descriptor is invalid.
type Descriptor struct {
	kind    Kind
	columns [][]ColumnID
	// ascending has one entry per chain (sort only)
	ascending []bool
	limit     int
}

// NewDistinct returns a distinct descriptor on the
// given chains of t. Every chain must be non-empty;
// all but the last element of a chain must be Link
// columns, and the last must be a value column.
func NewDistinct(t *table.Table, cols [][]table.ColKey) (*Descriptor, error) {
	chains, err := resolveChains(t, cols, table.ErrNoSuchColumn)
	if err != nil {
		return nil, fmt.Errorf("descriptor.NewDistinct: %w", err)
	}
	return &Descriptor{kind: KindDistinct, columns: chains}, nil
}

// NewSort returns a sort descriptor on the given
// chains of t (see NewDistinct for the restrictions
// on cols). ascending must be empty, which sorts
// every chain ascending, or have one entry per chain.
func NewSort(t *table.Table, cols [][]table.ColKey, ascending []bool) (*Descriptor, error) {
	d, err := newSort(t, cols, ascending, table.ErrNoSuchColumn)
	if err != nil {
		return nil, fmt.Errorf("descriptor.NewSort: %w", err)
	}
	return d, nil
}

func newSort(t *table.Table, cols [][]table.ColKey, ascending []bool, missing error) (*Descriptor, error) {
	if len(ascending) != 0 && len(ascending) != len(cols) {
		return nil, fmt.Errorf("%d chains, %d directions: %w", len(cols), len(ascending), ErrDirectionCount)
	}
	chains, err := resolveChains(t, cols, missing)
	if err != nil {
		return nil, err
	}
	asc := make([]bool, len(chains))
	for i := range asc {
		asc[i] = len(ascending) == 0 || ascending[i]
	}
	return &Descriptor{kind: KindSort, columns: chains, ascending: asc}, nil
}

// NewLimit returns a descriptor that keeps
// at most n rows of a view.
func NewLimit(n int) (*Descriptor, error) {
	if n < 0 {
		return nil, fmt.Errorf("descriptor.NewLimit: negative limit %d", n)
	}
	return &Descriptor{kind: KindLimit, limit: n}, nil
}

// Kind returns the kind of d.
func (d *Descriptor) Kind() Kind { return d.kind }

// IsValid returns whether d can be executed.
func (d *Descriptor) IsValid() bool {
	if d == nil {
		return false
	}
	switch d.kind {
	case KindSort, KindDistinct:
		return len(d.columns) > 0
	case KindLimit:
		return d.limit >= 0
	}
	return false
}

// IsSort returns whether d is a sort descriptor.
func (d *Descriptor) IsSort() bool { return d.kind == KindSort }

// Limit returns the row limit of a limit descriptor.
func (d *Descriptor) Limit() int { return d.limit }

// Table returns the base table of d,
// or nil for limit descriptors.
func (d *Descriptor) Table() *table.Table {
	if len(d.columns) == 0 {
		return nil
	}
	return d.columns[0][0].Table
}

// Clone returns a copy of d that shares no
// mutable state with d.
func (d *Descriptor) Clone() *Descriptor {
	return &Descriptor{
		kind:      d.kind,
		columns:   cloneChains(d.columns),
		ascending: slices.Clone(d.ascending),
		limit:     d.limit,
	}
}

// MergeWith appends the chains and directions of
// other to d, so that other's criteria only decide
// between rows that d considers equal. Both must
// be sort descriptors on the same table.
func (d *Descriptor) MergeWith(other *Descriptor) error {
	if !d.IsSort() || !other.IsSort() {
		return fmt.Errorf("descriptor.MergeWith: %w", ErrWrongKind)
	}
	if !sameTable(d.Table(), other.Table()) {
		return fmt.Errorf("descriptor.MergeWith: %s and %s: %w", d.Table().ID(), other.Table().ID(), ErrTableMismatch)
	}
	d.columns = append(d.columns, cloneChains(other.columns)...)
	d.ascending = append(d.ascending, other.ascending...)
	return nil
}

// Sorter builds the comparator for d over v.
// It fails if a column used by d has been
// removed since d was built. Limit descriptors
// have no comparator and return (nil, nil).
func (d *Descriptor) Sorter(v View) (*Sorter, error) {
	if d.kind == KindLimit {
		return nil, nil
	}
	if !d.IsValid() {
		return nil, ErrEmptyDescriptor
	}
	if err := revalidate(d.columns); err != nil {
		return nil, err
	}
	var asc []bool
	if d.kind == KindSort {
		asc = d.ascending
	}
	return newSorter(d.columns, asc, v)
}

// Execute applies d to v and returns the result,
// which shares storage with v. s must have been
// built by d.Sorter from v.
//
// A sort reorders v stably. A distinct keeps the
// first row of every set of equal rows and keeps the
// relative order of the remaining rows. A limit
// truncates v. An invalid descriptor returns v as is.
func (d *Descriptor) Execute(v View, s *Sorter) View {
	if !d.IsValid() || (d.kind != KindLimit && s == nil) {
		return v
	}
	switch d.kind {
	case KindSort:
		s.CacheFirstColumn(v)
		slices.SortStableFunc(v, func(a, b IndexPair) bool {
			return s.Less(a, b, false)
		})
		return v
	case KindDistinct:
		return distinct(v, s)
	case KindLimit:
		if len(v) > d.limit {
			return v[:d.limit]
		}
		return v
	}
	return v
}

// sameTable reports whether a and b are the
// same table instance. Snapshots of a table
// are different instances.
func sameTable(a, b *table.Table) bool {
	return a != nil && b != nil && a.ID() == b.ID()
}

// ExportColumns returns the column keys of every
// chain. Together with Kind, ExportOrder and Limit
// it describes d without reference to a table.
func (d *Descriptor) ExportColumns() [][]table.ColKey {
	return exportChains(d.columns)
}

// ExportOrder returns the direction of every
// chain for sort descriptors and nil otherwise.
func (d *Descriptor) ExportOrder() []bool {
	if d.kind != KindSort {
		return nil
	}
	return slices.Clone(d.ascending)
}

// Description renders d with column names resolved
// against t (or the table d was built on if t is nil):
//
//	SORT(age DESC, employer.name ASC)
//	DISTINCT(department)
//	LIMIT(10)
func (d *Descriptor) Description(t *table.Table) (string, error) {
	if d.kind == KindLimit {
		return fmt.Sprintf("LIMIT(%d)", d.limit), nil
	}
	if t == nil {
		t = d.Table()
	}
	var sb strings.Builder
	if d.kind == KindSort {
		sb.WriteString("SORT(")
	} else {
		sb.WriteString("DISTINCT(")
	}
	for i, keys := range d.ExportColumns() {
		if i > 0 {
			sb.WriteString(", ")
		}
		name, err := chainName(t, keys, i)
		if err != nil {
			return "", err
		}
		sb.WriteString(name)
		if d.kind == KindSort {
			if d.ascending[i] {
				sb.WriteString(" ASC")
			} else {
				sb.WriteString(" DESC")
			}
		}
	}
	sb.WriteByte(')')
	return sb.String(), nil
}

func (d *Descriptor) String() string {
	s, err := d.Description(nil)
	if err != nil {
		return fmt.Sprintf("%s(<%s>)", strings.ToUpper(d.kind.String()), err)
	}
	return s
}
