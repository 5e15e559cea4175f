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

// ColumnID identifies one column of one table instance.
type ColumnID struct {
	Table *table.Table
	Col   table.ColKey
}

// resolveChains validates cols against t and
// returns the bound chains. missing is the error
// reported for a column key that t does not have.
func resolveChains(t *table.Table, cols [][]table.ColKey, missing error) ([][]ColumnID, error) {
	if t == nil || len(cols) == 0 {
		return nil, ErrEmptyDescriptor
	}
	out := make([][]ColumnID, len(cols))
	for i := range cols {
		chain, err := resolveChain(t, cols[i], i, missing)
		if err != nil {
			return nil, err
		}
		out[i] = chain
	}
	return out, nil
}

func resolveChain(t *table.Table, keys []table.ColKey, n int, missing error) ([]ColumnID, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("chain %d: %w", n, ErrEmptyChain)
	}
	chain := make([]ColumnID, 0, len(keys))
	cur := t
	for j, key := range keys {
		col, ok := cur.Column(key)
		if !ok {
			return nil, resolveErr(cur, n, j, key, missing)
		}
		chain = append(chain, ColumnID{Table: cur, Col: key})
		last := j == len(keys)-1
		switch {
		case !last && !col.Type().IsLink():
			return nil, resolveErr(cur, n, j, key, ErrNotLink)
		case last && col.Target != nil:
			return nil, resolveErr(cur, n, j, key, ErrNotComparable)
		}
		cur = col.Target
	}
	return chain, nil
}

// revalidate checks that every bound column
// still exists in its table.
func revalidate(chains [][]ColumnID) error {
	for i := range chains {
		for j, id := range chains[i] {
			if !id.Table.HasColumn(id.Col) {
				return resolveErr(id.Table, i, j, id.Col, ErrColumnRemoved)
			}
		}
	}
	return nil
}

func exportChains(chains [][]ColumnID) [][]table.ColKey {
	out := make([][]table.ColKey, len(chains))
	for i := range chains {
		out[i] = make([]table.ColKey, len(chains[i]))
		for j := range chains[i] {
			out[i][j] = chains[i][j].Col
		}
	}
	return out
}

func cloneChains(chains [][]ColumnID) [][]ColumnID {
	if chains == nil {
		return nil
	}
	out := make([][]ColumnID, len(chains))
	for i := range chains {
		out[i] = append([]ColumnID(nil), chains[i]...)
	}
	return out
}

// chainName renders the column names of keys,
// resolved against t, joined with '.'.
func chainName(t *table.Table, keys []table.ColKey, n int) (string, error) {
	var sb strings.Builder
	cur, prev := t, t
	for j, key := range keys {
		if cur == nil {
			// keys[j-1] was a value column of prev
			return "", resolveErr(prev, n, j-1, keys[j-1], ErrNotLink)
		}
		col, ok := cur.Column(key)
		if !ok {
			return "", resolveErr(cur, n, j, key, ErrColumnRemoved)
		}
		if j > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(col.Name)
		prev, cur = cur, col.Target
	}
	return sb.String(), nil
}
