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

package main

import (
	"fmt"
	"strings"

	"github.com/SnellerInc/ordering/descriptor"
	"github.com/SnellerInc/ordering/table"
)

// parseChain resolves a dotted list of
// column names, starting at t, into keys.
func parseChain(t *table.Table, text string) ([]table.ColKey, error) {
	var out []table.ColKey
	cur := t
	for _, name := range strings.Split(text, ".") {
		if cur == nil {
			return nil, fmt.Errorf("%q: %s follows a value column", text, name)
		}
		key, ok := cur.ColumnKey(name)
		if !ok {
			return nil, fmt.Errorf("%q: no column %q in table %s", text, name, cur.Name())
		}
		col, _ := cur.Column(key)
		out = append(out, key)
		cur = col.Target
	}
	return out, nil
}

// parseSort parses a comma-separated list of
// chains, each optionally followed by :asc or :desc,
// e.g. "age:desc,employer.name".
func parseSort(t *table.Table, text string) (*descriptor.Descriptor, error) {
	var cols [][]table.ColKey
	var asc []bool
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		dir := true
		if i := strings.LastIndexByte(part, ':'); i >= 0 {
			switch strings.ToLower(part[i+1:]) {
			case "asc":
			case "desc":
				dir = false
			default:
				return nil, fmt.Errorf("%q: unknown direction %q", part, part[i+1:])
			}
			part = part[:i]
		}
		chain, err := parseChain(t, part)
		if err != nil {
			return nil, err
		}
		cols = append(cols, chain)
		asc = append(asc, dir)
	}
	return descriptor.NewSort(t, cols, asc)
}

// parseDistinct parses a comma-separated list of chains.
func parseDistinct(t *table.Table, text string) (*descriptor.Descriptor, error) {
	var cols [][]table.ColKey
	for _, part := range strings.Split(text, ",") {
		chain, err := parseChain(t, strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		cols = append(cols, chain)
	}
	return descriptor.NewDistinct(t, cols)
}

// buildOrdering assembles the stages requested
// on the command line in the order sort,
// distinct, limit. A negative limit is omitted.
func buildOrdering(t *table.Table, sort, distinct string, limit int) (*descriptor.Ordering, error) {
	o := new(descriptor.Ordering)
	if sort != "" {
		d, err := parseSort(t, sort)
		if err != nil {
			return nil, fmt.Errorf("-sort: %w", err)
		}
		if err := o.AppendSort(d); err != nil {
			return nil, err
		}
	}
	if distinct != "" {
		d, err := parseDistinct(t, distinct)
		if err != nil {
			return nil, fmt.Errorf("-distinct: %w", err)
		}
		if err := o.AppendDistinct(d); err != nil {
			return nil, err
		}
	}
	if limit >= 0 {
		if err := o.AppendLimit(limit); err != nil {
			return nil, err
		}
	}
	return o, nil
}
