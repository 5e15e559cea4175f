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
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"sigs.k8s.io/yaml"
)

// ErrBadSchema is returned when a Schema
// fails validation.
var ErrBadSchema = errors.New("bad schema")

// ColumnDef describes a column in a Schema.
type ColumnDef struct {
	// Name is the name of the column.
	Name string `json:"name"`
	// Type is the name of a ColumnType,
	// e.g. "int", "string" or "link".
	Type string `json:"type"`
	// Target is the name of the table that
	// a link or linklist column points into.
	Target string `json:"target,omitempty"`
}

// TableDef describes a table in a Schema.
type TableDef struct {
	Name    string      `json:"name"`
	Columns []ColumnDef `json:"columns,omitempty"`
}

// Schema describes a set of tables.
// Schemas can be written as JSON or YAML.
type Schema struct {
	Tables []TableDef `json:"tables"`
}

// just pick an upper limit to prevent DoS
const maxSchemaSize = 4 * 1024 * 1024

// DecodeSchema decodes a schema from JSON or YAML.
// Unknown fields are rejected.
func DecodeSchema(buf []byte) (*Schema, error) {
	s := new(Schema)
	if err := yaml.UnmarshalStrict(buf, s); err != nil {
		return nil, fmt.Errorf("table.DecodeSchema: %w", err)
	}
	return s, nil
}

// ReadSchema reads and decodes the schema
// at path within f.
func ReadSchema(f fs.FS, path string) (*Schema, error) {
	buf, err := readBounded(f, path)
	if err != nil {
		return nil, err
	}
	return DecodeSchema(buf)
}

func readBounded(f fs.FS, path string) ([]byte, error) {
	file, err := f.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() > maxSchemaSize {
		return nil, fmt.Errorf("%s: size %d beyond limit %d", path, info.Size(), maxSchemaSize)
	}
	return io.ReadAll(io.LimitReader(file, maxSchemaSize))
}

func (s *Schema) table(name string) *TableDef {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// Validate checks that every table and column
// name is unique and non-empty, that every type
// is known, and that link columns name an
// existing target table.
func (s *Schema) Validate() error {
	seen := make(map[string]bool, len(s.Tables))
	for i := range s.Tables {
		td := &s.Tables[i]
		if td.Name == "" {
			return fmt.Errorf("table #%d has no name: %w", i, ErrBadSchema)
		}
		if seen[td.Name] {
			return fmt.Errorf("table %q defined twice: %w", td.Name, ErrBadSchema)
		}
		seen[td.Name] = true
		cols := make(map[string]bool, len(td.Columns))
		for j := range td.Columns {
			cd := &td.Columns[j]
			if cd.Name == "" || strings.HasPrefix(cd.Name, "@") {
				return fmt.Errorf("table %q: column #%d has an invalid name %q: %w", td.Name, j, cd.Name, ErrBadSchema)
			}
			if cols[cd.Name] {
				return fmt.Errorf("table %q: column %q defined twice: %w", td.Name, cd.Name, ErrBadSchema)
			}
			cols[cd.Name] = true
			typ, ok := ParseColumnType(cd.Type)
			if !ok || typ == BackLink {
				return fmt.Errorf("table %q: column %q: unknown type %q: %w", td.Name, cd.Name, cd.Type, ErrBadSchema)
			}
			if typ.hasTarget() {
				if s.table(cd.Target) == nil {
					return fmt.Errorf("table %q: column %q: unknown target %q: %w", td.Name, cd.Name, cd.Target, ErrBadSchema)
				}
			} else if cd.Target != "" {
				return fmt.Errorf("table %q: column %q: %s columns have no target: %w", td.Name, cd.Name, typ, ErrBadSchema)
			}
		}
	}
	return nil
}

// Build validates s and creates a new Group
// containing the described (empty) tables.
func (s *Schema) Build() (*Group, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	g := NewGroup()
	for i := range s.Tables {
		if _, err := g.AddTable(s.Tables[i].Name); err != nil {
			return nil, err
		}
	}
	for i := range s.Tables {
		td := &s.Tables[i]
		t := g.Table(td.Name)
		for _, cd := range td.Columns {
			typ, _ := ParseColumnType(cd.Type)
			var err error
			if typ.hasTarget() {
				_, err = t.AddLinkColumn(cd.Name, typ, g.Table(cd.Target))
			} else {
				_, err = t.AddColumn(cd.Name, typ)
			}
			if err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// Describe returns the Schema of a Group.
// BackLink columns are implied by their
// origin and are left out.
func Describe(g *Group) *Schema {
	s := &Schema{}
	for _, t := range g.tables {
		td := TableDef{Name: t.name}
		for _, c := range t.cols {
			if c.Type() == BackLink {
				continue
			}
			cd := ColumnDef{Name: c.Name, Type: c.Type().String()}
			if c.Target != nil {
				cd.Target = c.Target.name
			}
			td.Columns = append(td.Columns, cd)
		}
		s.Tables = append(s.Tables, td)
	}
	return s
}
