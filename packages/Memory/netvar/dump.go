package netvar

import (
	"bufio"
	"io"
	"strings"
)

const (
	// NestedPrefix marks tables that hold real nested data. Baseline and
	// proxy tables are named differently and are not expanded.
	NestedPrefix = 'D'
	// BaseClassName is the entry linking a table to its parent class table.
	BaseClassName = "baseclass"
	Separator     = "->"
)

// Dump writes one line per property reachable from table and returns the
// number of lines written. Nested tables are written before the entry that
// references them.
func Dump(w io.Writer, table *PropertyTable) (int, error) {
	bw, ok := w.(*bufio.Writer)
	if !ok {
		bw = bufio.NewWriter(w)
	}
	d := dumper{w: bw, path: map[*PropertyTable]struct{}{}}
	if err := d.table(table); err != nil {
		return d.lines, err
	}
	return d.lines, bw.Flush()
}

type dumper struct {
	w     *bufio.Writer
	lines int
	// path holds the tables on the current recursion stack
	path map[*PropertyTable]struct{}
}

// skip reports entries that never produce a line: missing entries, array
// index placeholders ("000", "001", ...) and the base class link.
func skip(p *Property) bool {
	switch {
	case p == nil:
		return true
	case p.Name != "" && p.Name[0] >= '0' && p.Name[0] <= '9':
		return true
	}
	return p.Name == BaseClassName
}

func (d *dumper) table(t *PropertyTable) error {
	if t == nil {
		return nil
	}
	d.path[t] = struct{}{}
	defer delete(d.path, t)

	for _, p := range t.Props {
		if skip(p) {
			continue
		}

		if nested, ok := p.NestedTable(); ok && strings.HasPrefix(nested.Name, string(NestedPrefix)) {
			if _, onPath := d.path[nested]; !onPath {
				if err := d.table(nested); err != nil {
					return err
				}
			}
		}

		if err := d.line(t.Name, p.Name); err != nil {
			return err
		}
	}
	return nil
}

func (d *dumper) line(table, prop string) error {
	d.w.WriteString(table)
	d.w.WriteString(Separator)
	d.w.WriteString(prop)
	if err := d.w.WriteByte('\n'); err != nil {
		return err
	}
	d.lines++
	return nil
}
