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
	"bufio"
	"strings"
	"testing"

	"github.com/SnellerInc/ordering/descriptor"
	"github.com/SnellerInc/ordering/table"
)

const testData = `
tables:
  - name: person
    columns:
      - {name: name, type: string}
      - {name: age, type: int}
      - {name: employer, type: link, target: company}
  - name: company
    columns:
      - {name: name, type: string}
rows:
  company:
    - {name: Acme}
    - {name: Initech}
  person:
    - {name: A, age: 30, employer: 1}
    - {name: B, age: 25, employer: 0}
    - {name: C, age: 30}
`

func testGroup(t *testing.T) *table.Group {
	d, err := table.DecodeDataset([]byte(testData))
	if err != nil {
		t.Fatal(err)
	}
	g, err := d.Build()
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestBuildOrdering(t *testing.T) {
	person := testGroup(t).Table("person")
	cases := []struct {
		sort, distinct string
		limit          int
		desc           string
	}{
		{"age:desc, employer.name", "", -1, "SORT(age DESC, employer.name ASC)"},
		{"name:ASC", "age", 1, "SORT(name ASC) DISTINCT(age) LIMIT(1)"},
		{"", "employer.name,age", -1, "DISTINCT(employer.name, age)"},
		{"", "", 0, "LIMIT(0)"},
	}
	for _, c := range cases {
		o, err := buildOrdering(person, c.sort, c.distinct, c.limit)
		if err != nil {
			t.Fatalf("%q %q: %s", c.sort, c.distinct, err)
		}
		got, err := o.Description(nil)
		if err != nil {
			t.Fatal(err)
		}
		if got != c.desc {
			t.Errorf("got %q, want %q", got, c.desc)
		}
	}
	bad := []struct{ sort, distinct string }{
		{"age:sideways", ""},
		{"nope", ""},
		{"age.name", ""},
		{"employer", ""},
		{"", "employer.nope"},
	}
	for _, c := range bad {
		if _, err := buildOrdering(person, c.sort, c.distinct, -1); err == nil {
			t.Errorf("%q %q: expected an error", c.sort, c.distinct)
		}
	}
}

func TestPrintRow(t *testing.T) {
	g := testGroup(t)
	person := g.Table("person")
	o, err := buildOrdering(person, "age:desc,employer.name", "", 2)
	if err != nil {
		t.Fatal(err)
	}
	v, err := o.Execute(descriptor.NewView(person.Keys()), nil)
	if err != nil {
		t.Fatal(err)
	}
	var sb strings.Builder
	w := bufio.NewWriter(&sb)
	for _, ip := range v {
		if err := printRow(w, person, ip.Key); err != nil {
			t.Fatal(err)
		}
	}
	w.Flush()
	company := g.Table("company")
	want := person.Keys()[2].String() + ` name="C" age=30 employer=null` + "\n" +
		person.Keys()[0].String() + ` name="A" age=30 employer=` + company.Keys()[1].String() + "\n"
	if sb.String() != want {
		t.Errorf("got\n%s\nwant\n%s", sb.String(), want)
	}
}
