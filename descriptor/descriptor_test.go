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
	"math/rand"
	"strings"
	"testing"

	"github.com/SnellerInc/ordering/mixed"
	"github.com/SnellerInc/ordering/table"
	"golang.org/x/exp/slices"
)

const staffYAML = `
tables:
  - name: person
    columns:
      - {name: name, type: string}
      - {name: age, type: int}
      - {name: dept, type: int}
      - {name: employer, type: link, target: company}
      - {name: friends, type: linklist, target: person}
  - name: company
    columns:
      - {name: name, type: string}
      - {name: city, type: link, target: city}
  - name: city
    columns:
      - {name: name, type: string}
rows:
  city:
    - {name: Zurich}
    - {name: Austin}
  company:
    - {name: Acme, city: 0}
    - {name: Initech, city: 1}
    - {name: Hooli}
  person:
    - {name: A, age: 30, dept: 1, employer: 1}
    - {name: B, age: 25, dept: 2, employer: 0, friends: [0]}
    - {name: C, age: 30, dept: 1}
    - {name: D, dept: 2, employer: 2}
    - {name: E, age: 25, employer: 0}
`

func staff(t *testing.T) *table.Group {
	t.Helper()
	d, err := table.DecodeDataset([]byte(staffYAML))
	if err != nil {
		t.Fatal(err)
	}
	g, err := d.Build()
	if err != nil {
		t.Fatal(err)
	}
	return g
}

// path resolves a dotted list of column names
// starting at tbl into a chain of column keys
func path(t *testing.T, tbl *table.Table, p string) []table.ColKey {
	t.Helper()
	var out []table.ColKey
	cur := tbl
	for _, name := range strings.Split(p, ".") {
		if cur == nil {
			t.Fatalf("path %q: %s follows a non-link column", p, name)
		}
		key, ok := cur.ColumnKey(name)
		if !ok {
			t.Fatalf("path %q: no column %s in %s", p, name, cur.Name())
		}
		col, _ := cur.Column(key)
		out = append(out, key)
		cur = col.Target
	}
	return out
}

func paths(t *testing.T, tbl *table.Table, ps ...string) [][]table.ColKey {
	out := make([][]table.ColKey, len(ps))
	for i := range ps {
		out[i] = path(t, tbl, ps[i])
	}
	return out
}

// names returns the "name" column of every row of v
func names(t *testing.T, tbl *table.Table, v View) string {
	t.Helper()
	key, _ := tbl.ColumnKey("name")
	var sb strings.Builder
	for _, p := range v {
		val, err := tbl.Get(p.Key, key)
		if err != nil {
			t.Fatal(err)
		}
		s, _ := val.AsString()
		sb.WriteString(s)
	}
	return sb.String()
}

func mustSort(t *testing.T, tbl *table.Table, cols []string, asc []bool) *Descriptor {
	t.Helper()
	d, err := NewSort(tbl, paths(t, tbl, cols...), asc)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func run(t *testing.T, d *Descriptor, v View) View {
	t.Helper()
	v.stamp()
	s, err := d.Sorter(v)
	if err != nil {
		t.Fatal(err)
	}
	return d.Execute(v, s)
}

func TestSort(t *testing.T) {
	g := staff(t)
	person := g.Table("person")
	cases := []struct {
		cols []string
		asc  []bool
		want string
	}{
		// nulls first in both directions; ties stay in view order
		{[]string{"age"}, nil, "DBEAC"},
		{[]string{"age"}, []bool{false}, "DACBE"},
		{[]string{"age", "name"}, []bool{false, false}, "DCAEB"},
		{[]string{"employer.name"}, nil, "CBEDA"},
		{[]string{"employer.name"}, []bool{false}, "CADBE"},
		{[]string{"employer.city.name"}, nil, "CDABE"},
		{[]string{"employer.city.name"}, []bool{false}, "CDBEA"},
		{[]string{"dept", "age"}, []bool{true, false}, "EACDB"},
	}
	for i := range cases {
		c := &cases[i]
		t.Run(fmt.Sprintf("%v/%v", c.cols, c.asc), func(t *testing.T) {
			d := mustSort(t, person, c.cols, c.asc)
			got := names(t, person, run(t, d, NewView(person.Keys())))
			if got != c.want {
				t.Errorf("got %s, want %s", got, c.want)
			}
		})
	}
}

func TestSortSubset(t *testing.T) {
	g := staff(t)
	person := g.Table("person")
	d := mustSort(t, person, []string{"age"}, []bool{false})
	got := names(t, person, run(t, d, NewView(person.Keys()[:3])))
	if got != "ACB" {
		t.Errorf("got %s, want ACB", got)
	}
}

func TestDistinct(t *testing.T) {
	g := staff(t)
	person := g.Table("person")
	cases := []struct {
		cols []string
		want string
	}{
		// E has no dept; null is its own group
		{[]string{"dept"}, "ABE"},
		{[]string{"age"}, "ABD"},
		{[]string{"age", "dept"}, "ABDE"},
		{[]string{"employer.name"}, "ABCD"},
		{[]string{"employer.city.name"}, "ABC"},
	}
	for _, c := range cases {
		d, err := NewDistinct(person, paths(t, person, c.cols...))
		if err != nil {
			t.Fatal(err)
		}
		got := names(t, person, run(t, d, NewView(person.Keys())))
		if got != c.want {
			t.Errorf("distinct %v: got %s, want %s", c.cols, got, c.want)
		}
	}
}

func TestDanglingLink(t *testing.T) {
	g := staff(t)
	person := g.Table("person")
	company := g.Table("company")
	// B and E work at Acme
	if err := company.Remove(company.Keys()[0]); err != nil {
		t.Fatal(err)
	}
	d := mustSort(t, person, []string{"employer.name"}, nil)
	v := NewView(person.Keys())
	v.stamp()
	s, err := d.Sorter(v)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range v {
		want := p.Index == 1 || p.Index == 2 || p.Index == 4
		if got := s.AnyIsNull(p); got != want {
			t.Errorf("row %d: AnyIsNull = %v", p.Index, got)
		}
	}
	got := names(t, person, d.Execute(v, s))
	if got != "BCEDA" {
		t.Errorf("got %s, want BCEDA", got)
	}
}

func TestMergeWith(t *testing.T) {
	g := staff(t)
	person := g.Table("person")
	a := mustSort(t, person, []string{"age"}, []bool{false})
	b := mustSort(t, person, []string{"name"}, []bool{false})
	if err := a.MergeWith(b); err != nil {
		t.Fatal(err)
	}
	both := mustSort(t, person, []string{"age", "name"}, []bool{false, false})
	if !slices.Equal(a.ExportOrder(), both.ExportOrder()) {
		t.Errorf("order %v != %v", a.ExportOrder(), both.ExportOrder())
	}
	got := names(t, person, run(t, a, NewView(person.Keys())))
	want := names(t, person, run(t, both, NewView(person.Keys())))
	if got != want || got != "DCAEB" {
		t.Errorf("merged %s, combined %s", got, want)
	}
	// other is copied, not shared
	b.ascending[0] = true
	if a.ascending[1] {
		t.Error("MergeWith shares state with its argument")
	}

	dis, err := NewDistinct(person, paths(t, person, "dept"))
	if err != nil {
		t.Fatal(err)
	}
	if err := a.MergeWith(dis); !errors.Is(err, ErrWrongKind) {
		t.Errorf("merge with distinct: %v", err)
	}
	company := g.Table("company")
	c := mustSort(t, company, []string{"name"}, nil)
	if err := a.MergeWith(c); !errors.Is(err, ErrTableMismatch) {
		t.Errorf("merge across tables: %v", err)
	}
}

func TestConstructionErrors(t *testing.T) {
	g := staff(t)
	person := g.Table("person")
	company := g.Table("company")
	name := path(t, person, "name")
	friends := path(t, person, "friends")
	employer := path(t, person, "employer")
	backlink, ok := company.ColumnKey("@links.person.employer")
	if !ok {
		t.Fatal("no backlink column")
	}
	cases := []struct {
		name string
		tbl  *table.Table
		cols [][]table.ColKey
		asc  []bool
		err  error
	}{
		{"nil table", nil, [][]table.ColKey{name}, nil, ErrEmptyDescriptor},
		{"no chains", person, nil, nil, ErrEmptyDescriptor},
		{"empty chain", person, [][]table.ColKey{name, {}}, nil, ErrEmptyChain},
		{"linklist", person, [][]table.ColKey{append(friends, name[0])}, nil, ErrNotLink},
		{"backlink", company, [][]table.ColKey{{backlink, name[0]}}, nil, ErrNotLink},
		{"value column", person, [][]table.ColKey{{name[0], name[0]}}, nil, ErrNotLink},
		{"ends in link", person, [][]table.ColKey{employer}, nil, ErrNotComparable},
		{"unknown column", company, [][]table.ColKey{name}, nil, table.ErrNoSuchColumn},
		{"directions", person, [][]table.ColKey{name}, []bool{true, false}, ErrDirectionCount},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := NewSort(c.tbl, c.cols, c.asc)
			if !errors.Is(err, c.err) {
				t.Errorf("NewSort: got %v, want %v", err, c.err)
			}
			if c.asc != nil {
				return
			}
			_, err = NewDistinct(c.tbl, c.cols)
			if !errors.Is(err, c.err) {
				t.Errorf("NewDistinct: got %v, want %v", err, c.err)
			}
		})
	}
	_, err := NewSort(person, [][]table.ColKey{append(friends, name[0])}, nil)
	var re *ResolveError
	if !errors.As(err, &re) || re.Chain != 0 || re.Element != 0 || re.Table != "person" {
		t.Errorf("unexpected error %#v", err)
	}
	if _, err := NewLimit(-1); err == nil {
		t.Error("negative limit accepted")
	}
	var zero Descriptor
	if zero.IsValid() {
		t.Error("zero descriptor is valid")
	}
}

func TestRemovedColumn(t *testing.T) {
	g := staff(t)
	person := g.Table("person")
	company := g.Table("company")
	d := mustSort(t, person, []string{"age", "employer.name"}, nil)
	var o Ordering
	if err := o.AppendSort(d); err != nil {
		t.Fatal(err)
	}
	if err := company.RemoveColumn(path(t, company, "name")[0]); err != nil {
		t.Fatal(err)
	}
	v := NewView(person.Keys())
	_, err := d.Sorter(v)
	var re *ResolveError
	if !errors.As(err, &re) || !errors.Is(err, ErrColumnRemoved) {
		t.Fatalf("Sorter: %v", err)
	}
	if re.Chain != 1 || re.Element != 1 || re.Table != "company" || re.TableID != company.ID() {
		t.Errorf("error points at chain %d element %d table %s", re.Chain, re.Element, re.Table)
	}
	out, err := o.Execute(v, nil)
	if !errors.Is(err, ErrColumnRemoved) || out != nil {
		t.Errorf("Execute: %v %v", out, err)
	}
	if _, err := o.Description(nil); !errors.Is(err, ErrColumnRemoved) {
		t.Errorf("Description: %v", err)
	}
}

func TestSorterHelpers(t *testing.T) {
	g := staff(t)
	person := g.Table("person")
	v := NewView(person.Keys())
	flat := mustSort(t, person, []string{"age", "name"}, nil)
	s, err := flat.Sorter(v)
	if err != nil {
		t.Fatal(err)
	}
	if s.HasLinks() {
		t.Error("HasLinks on a chain without links")
	}
	linked := mustSort(t, person, []string{"employer.name"}, nil)
	ls, err := linked.Sorter(v)
	if err != nil {
		t.Fatal(err)
	}
	if !ls.HasLinks() {
		t.Error("!HasLinks on a linked chain")
	}

	pairs := [][2]int{}
	for i := range v {
		for j := range v {
			pairs = append(pairs, [2]int{i, j})
		}
	}
	before := make([]int, len(pairs))
	for n, p := range pairs {
		before[n] = s.Compare(v[p[0]], v[p[1]])
	}
	s.CacheFirstColumn(v)
	for n, p := range pairs {
		if got := s.Compare(v[p[0]], v[p[1]]); got != before[n] {
			t.Errorf("rows %v: %d before caching, %d after", p, before[n], got)
		}
		a, b := v[p[0]], v[p[1]]
		if s.Less(a, b, true) == s.Less(b, a, true) && p[0] != p[1] {
			t.Errorf("rows %v: total order not strict", p)
		}
		if s.Equal(a, b) != (s.Compare(a, b) == 0) {
			t.Errorf("rows %v: Equal disagrees with Compare", p)
		}
		if s.Equal(a, b) {
			alo, ahi := s.Hash(a)
			blo, bhi := s.Hash(b)
			if alo != blo || ahi != bhi {
				t.Errorf("rows %v: equal rows hash differently", p)
			}
		}
	}
	// D has no age
	if !s.AnyIsNull(v[3]) || s.AnyIsNull(v[0]) {
		t.Error("AnyIsNull")
	}
}

// numbers builds a one-column table of random
// small integers, about a fifth of them null
func numbers(t *testing.T, rng *rand.Rand, n int) (*table.Table, table.ColKey) {
	g := table.NewGroup()
	tbl, err := g.AddTable("nums")
	if err != nil {
		t.Fatal(err)
	}
	x, err := tbl.AddColumn("x", table.Int)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		obj := tbl.Create()
		if rng.Intn(5) == 0 {
			continue
		}
		if err := tbl.Set(obj, x, mixed.Int(int64(rng.Intn(10)))); err != nil {
			t.Fatal(err)
		}
	}
	return tbl, x
}

func TestTopKMatchesSort(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for round := 0; round < 20; round++ {
		n := rng.Intn(50)
		tbl, x := numbers(t, rng, n)
		for _, asc := range []bool{true, false} {
			d, err := NewSort(tbl, [][]table.ColKey{{x}}, []bool{asc})
			if err != nil {
				t.Fatal(err)
			}
			for _, k := range []int{0, 1, 3, n / 2, n, n + 2} {
				var o Ordering
				if err := o.AppendSort(d); err != nil {
					t.Fatal(err)
				}
				if err := o.AppendLimit(k); err != nil {
					t.Fatal(err)
				}
				v := NewView(tbl.Keys())
				fused, err := o.Execute(v, nil)
				if err != nil {
					t.Fatal(err)
				}
				split, err := o.Execute(v, &ExecParams{DisableTopK: true})
				if err != nil {
					t.Fatal(err)
				}
				if !slices.Equal(fused.Keys(), split.Keys()) {
					t.Fatalf("n=%d k=%d asc=%v: top-k %v, sort+limit %v", n, k, asc, fused.Keys(), split.Keys())
				}
			}
		}
	}
}

func TestSortIsStable(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	tbl, x := numbers(t, rng, 200)
	d, err := NewSort(tbl, [][]table.ColKey{{x}}, []bool{false})
	if err != nil {
		t.Fatal(err)
	}
	keys := tbl.Keys()
	rng.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
	v := NewView(keys)
	out := run(t, d, slices.Clone(v))
	pos := make(map[table.ObjKey]int)
	for i, p := range v {
		pos[p.Key] = i
	}
	get := func(p IndexPair) (int64, bool) {
		val, _ := tbl.Get(p.Key, x)
		n, ok := val.AsInt()
		return n, ok
	}
	ok := slices.IsSortedFunc(out, func(a, b IndexPair) bool {
		an, aok := get(a)
		bn, bok := get(b)
		switch {
		case aok != bok:
			return !aok
		case !aok:
			return pos[a.Key] < pos[b.Key]
		case an != bn:
			return an > bn
		}
		return pos[a.Key] < pos[b.Key]
	})
	if !ok {
		t.Error("output is not sorted nulls-first, descending, stable")
	}
}

func TestChainNamePastValueColumn(t *testing.T) {
	g := staff(t)
	person := g.Table("person")
	company := g.Table("company")
	keys := []table.ColKey{path(t, person, "age")[0], path(t, company, "name")[0]}
	_, err := chainName(person, keys, 2)
	var re *ResolveError
	if !errors.As(err, &re) || !errors.Is(err, ErrNotLink) {
		t.Fatalf("chainName: %v", err)
	}
	if re.Chain != 2 || re.Element != 0 || re.Col != keys[0] || re.Table != "person" || re.TableID != person.ID() {
		t.Errorf("error points at %+v", re)
	}
}

func TestExecuteInvalidDescriptor(t *testing.T) {
	g := staff(t)
	person := g.Table("person")
	v := NewView(person.Keys())
	var zero Descriptor
	if got := zero.Execute(v, nil); !slices.Equal(got, v) {
		t.Errorf("zero descriptor changed the view: %v", got)
	}
	if s, err := zero.Sorter(v); s != nil || !errors.Is(err, ErrEmptyDescriptor) {
		t.Errorf("Sorter on zero descriptor: %v %v", s, err)
	}
	d := mustSort(t, person, []string{"age"}, nil)
	if got := d.Execute(v, nil); !slices.Equal(got, v) {
		t.Errorf("sort without a sorter changed the view: %v", got)
	}
}

func TestMergeWithSnapshot(t *testing.T) {
	g := staff(t)
	person := g.Table("person")
	sperson := g.Snapshot().Table("person")
	a := mustSort(t, person, []string{"age"}, nil)
	b := mustSort(t, sperson, []string{"name"}, nil)
	if err := a.MergeWith(b); !errors.Is(err, ErrTableMismatch) {
		t.Errorf("merge across snapshots: %v", err)
	}
	if len(a.ExportColumns()) != 1 {
		t.Error("failed merge modified the descriptor")
	}
}

func TestKtopAdd(t *testing.T) {
	g := staff(t)
	person := g.Table("person")
	d := mustSort(t, person, []string{"age"}, []bool{false})
	v := NewView(person.Keys())
	s, err := d.Sorter(v)
	if err != nil {
		t.Fatal(err)
	}
	k := newKtop(s, 2)
	// D (null age) then A (30) fill the heap;
	// B (25) sorts after both and is rejected
	for _, i := range []int{3, 0} {
		if !k.add(v[i]) {
			t.Fatalf("row %d rejected while the heap has room", i)
		}
	}
	if k.add(v[1]) {
		t.Error("row B kept")
	}
	// C ties A on age but comes later in the view
	if k.add(v[2]) {
		t.Error("row C displaced an earlier equal row")
	}
	if got := names(t, person, k.capture(slices.Clone(v))); got != "DA" {
		t.Errorf("got %s, want DA", got)
	}
	if len(k.rows) != 0 {
		t.Error("capture left rows in the heap")
	}
	if newKtop(s, 0).add(v[0]) {
		t.Error("zero limit kept a row")
	}
}
