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
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/SnellerInc/ordering/descriptor"
	"github.com/SnellerInc/ordering/table"
	"sigs.k8s.io/yaml"
)

var (
	dashv        bool
	dashh        bool
	dashhandover bool
	dashsort     string
	dashdistinct string
	dashlimit    int
)

func init() {
	flag.BoolVar(&dashv, "v", false, "verbose")
	flag.BoolVar(&dashh, "h", false, "show usage help")
	flag.BoolVar(&dashhandover, "handover", false, "execute on a snapshot through a serialized handover patch")
	flag.StringVar(&dashsort, "sort", "", "sort chains, e.g. age:desc,employer.name")
	flag.StringVar(&dashdistinct, "distinct", "", "distinct chains, e.g. dept,employer.name")
	flag.IntVar(&dashlimit, "limit", -1, "maximum number of rows (negative for no limit)")
}

func exitf(f string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, f, args...)
	os.Exit(1)
}

func logf(f string, args ...interface{}) {
	if f[len(f)-1] != '\n' {
		f += "\n"
	}
	fmt.Fprintf(os.Stderr, f, args...)
}

func load(p string) *table.Group {
	d, err := table.ReadDataset(os.DirFS(filepath.Dir(p)), filepath.Base(p))
	if err != nil {
		exitf("%s\n", err)
	}
	g, err := d.Build()
	if err != nil {
		exitf("%s: %s\n", p, err)
	}
	return g
}

func lookup(g *table.Group, name string) *table.Table {
	t := g.Table(name)
	if t == nil {
		exitf("no table %q\n", name)
	}
	return t
}

func ordering(t *table.Table) *descriptor.Ordering {
	o, err := buildOrdering(t, dashsort, dashdistinct, dashlimit)
	if err != nil {
		exitf("%s\n", err)
	}
	if dashv {
		logf("ordering: %s", o)
	}
	return o
}

// entry point for 'sortrows describe ...'
func describe(p string) {
	buf, err := yaml.Marshal(table.Describe(load(p)))
	if err != nil {
		exitf("%s\n", err)
	}
	os.Stdout.Write(buf)
}

// entry point for 'sortrows patch ...'
func patch(p, tbl string) {
	o := ordering(lookup(load(p), tbl))
	buf, err := descriptor.GeneratePatch(o).Text()
	if err != nil {
		exitf("%s\n", err)
	}
	os.Stdout.Write(buf)
}

// handover moves o to a snapshot of g by way of
// the binary patch encoding and returns the
// rebuilt ordering and the snapshot's table
func handover(g *table.Group, o *descriptor.Ordering, tbl string) (*descriptor.Ordering, *table.Table) {
	buf, err := descriptor.GeneratePatch(o).MarshalBinary()
	if err != nil {
		exitf("encoding patch: %s\n", err)
	}
	if dashv {
		logf("patch: %d bytes", len(buf))
	}
	snap := g.Snapshot()
	var p descriptor.Patch
	if err := p.UnmarshalBinary(buf); err != nil {
		exitf("decoding patch: %s\n", err)
	}
	t := lookup(snap, tbl)
	o, err = descriptor.CreateFromAndConsumePatch(&p, t)
	if err != nil {
		exitf("applying patch: %s\n", err)
	}
	return o, t
}

// entry point for 'sortrows run ...'
func run(p, tbl string) {
	g := load(p)
	t := lookup(g, tbl)
	o := ordering(t)
	if dashhandover {
		o, t = handover(g, o, tbl)
	}
	ep := &descriptor.ExecParams{}
	if dashv {
		ep.Logf = logf
	}
	v, err := o.Execute(descriptor.NewView(t.Keys()), ep)
	if err != nil {
		exitf("%s\n", err)
	}
	w := bufio.NewWriter(os.Stdout)
	for _, ip := range v {
		if err := printRow(w, t, ip.Key); err != nil {
			exitf("%s\n", err)
		}
	}
	if err := w.Flush(); err != nil {
		exitf("%s\n", err)
	}
}

// printRow writes the key of obj followed
// by its value and link columns
func printRow(w *bufio.Writer, t *table.Table, obj table.ObjKey) error {
	var sb strings.Builder
	sb.WriteString(obj.String())
	for _, c := range t.Columns() {
		switch {
		case c.Type().IsList():
			continue
		case c.Type().IsLink():
			tgt, err := t.GetLink(obj, c.Key)
			if err != nil {
				return err
			}
			if tgt == table.NullKey {
				fmt.Fprintf(&sb, " %s=null", c.Name)
			} else {
				fmt.Fprintf(&sb, " %s=%s", c.Name, tgt)
			}
		default:
			v, err := t.Get(obj, c.Key)
			if err != nil {
				return err
			}
			fmt.Fprintf(&sb, " %s=%s", c.Name, v)
		}
	}
	sb.WriteByte('\n')
	_, err := w.WriteString(sb.String())
	return err
}

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 || dashh {
		fmt.Fprintf(os.Stderr, "usage:\n")
		fmt.Fprintf(os.Stderr, "    %s describe <dataset.json|dataset.yaml>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "        print the schema of a dataset\n")
		fmt.Fprintf(os.Stderr, "    %s [-sort <chains>] [-distinct <chains>] [-limit <n>] [-handover] run <dataset> <table>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "        print the rows of a table in the requested order\n")
		fmt.Fprintf(os.Stderr, "    %s [-sort <chains>] [-distinct <chains>] [-limit <n>] patch <dataset> <table>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "        print the handover patch of the requested ordering\n")
		fmt.Fprintf(os.Stderr, "flag usage:\n")
		flag.Usage()
		os.Exit(1)
	}

	switch args[0] {
	case "describe":
		if len(args) != 2 {
			exitf("usage: describe <dataset.json|dataset.yaml>\n")
		}
		describe(args[1])
	case "run":
		if len(args) != 3 {
			exitf("usage: run <dataset> <table>\n")
		}
		run(args[1], args[2])
	case "patch":
		if len(args) != 3 {
			exitf("usage: patch <dataset> <table>\n")
		}
		patch(args[1], args[2])
	default:
		exitf("commands: describe, run, patch\n")
	}
}
