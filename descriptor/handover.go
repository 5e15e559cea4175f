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

	"github.com/SnellerInc/ordering/table"
)

// PatchStage is the table-independent form of one
// stage of an Ordering.
type PatchStage struct {
	Kind Kind `json:"kind"`
	// Columns holds the column keys of every
	// chain, starting from the base table.
	Columns [][]table.ColKey `json:"columns,omitempty"`
	// Ascending holds one direction per chain
	// for sort stages.
	Ascending []bool `json:"ascending,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// Patch carries an Ordering from one snapshot of a
// group to another. It refers to columns only by
// ColKey, which is stable across snapshots, so it
// holds no reference to any table.
//
// A Patch can be consumed once.
type Patch struct {
	Stages []PatchStage `json:"stages"`

	consumed bool
}

// GeneratePatch exports o into a Patch.
// A nil or empty Ordering produces a Patch
// with no stages.
func GeneratePatch(o *Ordering) *Patch {
	p := &Patch{}
	if o == nil {
		return p
	}
	p.Stages = make([]PatchStage, len(o.descriptors))
	for i, d := range o.descriptors {
		p.Stages[i] = PatchStage{
			Kind:      d.kind,
			Columns:   d.ExportColumns(),
			Ascending: d.ExportOrder(),
			Limit:     d.limit,
		}
	}
	return p
}

// Consumed returns whether p has been used
// to create an Ordering.
func (p *Patch) Consumed() bool { return p.consumed }

// CreateFromAndConsumePatch rebuilds the Ordering
// described by p against t, which should be the
// snapshot's copy of the table the original ordering
// was built on. p is consumed whether or not the
// call succeeds. A nil p produces an empty Ordering.
//
// A column key that no longer resolves against t
// (or the tables reached through its links) produces
// a *ResolveError wrapping ErrColumnRemoved.
func CreateFromAndConsumePatch(p *Patch, t *table.Table) (*Ordering, error) {
	o := &Ordering{}
	if p == nil {
		return o, nil
	}
	if p.consumed {
		return nil, ErrPatchConsumed
	}
	p.consumed = true
	for i := range p.Stages {
		d, err := p.Stages[i].build(t)
		if err != nil {
			return nil, fmt.Errorf("descriptor.CreateFromAndConsumePatch: stage %d: %w", i, err)
		}
		o.descriptors = append(o.descriptors, d)
	}
	return o, nil
}

func (s *PatchStage) build(t *table.Table) (*Descriptor, error) {
	switch s.Kind {
	case KindSort:
		return newSort(t, s.Columns, s.Ascending, ErrColumnRemoved)
	case KindDistinct:
		chains, err := resolveChains(t, s.Columns, ErrColumnRemoved)
		if err != nil {
			return nil, err
		}
		return &Descriptor{kind: KindDistinct, columns: chains}, nil
	case KindLimit:
		return NewLimit(s.Limit)
	}
	return nil, fmt.Errorf("unknown stage kind %s", s.Kind)
}
