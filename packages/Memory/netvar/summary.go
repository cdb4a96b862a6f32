package netvar

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// RenderSummary prints one row per class: its id, its table and how many
// direct entries that table declares.
func RenderSummary(w io.Writer, classes []*ClassDescriptor) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"#", "Class", "ID", "Table", "Props", "Address"})

	total := 0
	for i, class := range classes {
		if class == nil {
			continue
		}
		name, props, addr := "-", 0, "-"
		if class.Table != nil {
			name = class.Table.Name
			props = class.Table.Count()
			total += props
			addr = fmt.Sprintf("0x%x", class.Table.Address)
		}
		t.AppendRow(table.Row{i + 1, class.Name, class.ID, name, props, addr})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d classes", len(classes)), "", "", total, ""})
	t.Render()
}
