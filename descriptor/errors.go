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
	"errors"
	"fmt"

	"github.com/SnellerInc/ordering/table"
	"github.com/google/uuid"
)

var (
	// ErrEmptyDescriptor is returned when a sort
	// or distinct descriptor is built without chains.
	ErrEmptyDescriptor = errors.New("descriptor: no column chains")
	// ErrEmptyChain is returned for a chain with no columns.
	ErrEmptyChain = errors.New("descriptor: empty column chain")
	// ErrNotLink is returned when a non-terminal
	// element of a chain is not a single-target link.
	ErrNotLink = errors.New("descriptor: chain element is not a link column")
	// ErrNotComparable is returned when the terminal
	// element of a chain is a link-like column.
	ErrNotComparable = errors.New("descriptor: chain does not end in a value column")
	// ErrDirectionCount is returned when the number of
	// sort directions does not match the number of chains.
	ErrDirectionCount = errors.New("descriptor: direction count does not match chain count")
	// ErrColumnRemoved is returned when a column that
	// was valid when a descriptor was built no longer exists.
	ErrColumnRemoved = errors.New("descriptor: column no longer exists")
	// ErrWrongKind is returned when a descriptor is
	// used where a different kind is required.
	ErrWrongKind = errors.New("descriptor: wrong descriptor kind")
	// ErrTableMismatch is returned when merging
	// descriptors built on different tables.
	ErrTableMismatch = errors.New("descriptor: descriptors refer to different tables")
	// ErrPatchConsumed is returned when a Patch
	// is used after it has been consumed.
	ErrPatchConsumed = errors.New("descriptor: handover patch already consumed")
	// ErrBadChecksum is returned when a serialized
	// Patch fails its integrity check.
	ErrBadChecksum = errors.New("descriptor: bad patch checksum")
)

// ResolveError describes a chain element that
// could not be resolved against a table.
type ResolveError struct {
	// Chain is the index of the chain
	// within the descriptor.
	Chain int
	// Element is the index of the column
	// within the chain.
	Element int
	// Col is the column key that failed.
	Col table.ColKey
	// Table is the name of the table
	// the column was resolved against.
	Table string
	// TableID is the instance ID of that table,
	// which tells snapshots of the same table apart.
	TableID uuid.UUID
	// Err is the underlying cause.
	Err error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("chain %d element %d (%s in table %q %s): %s", e.Chain, e.Element, e.Col, e.Table, e.TableID, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

func resolveErr(t *table.Table, chain, elem int, col table.ColKey, err error) *ResolveError {
	return &ResolveError{Chain: chain, Element: elem, Col: col, Table: t.Name(), TableID: t.ID(), Err: err}
}
