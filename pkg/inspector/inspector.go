// Package inspector prints human-readable summaries of constraint
// models and network files.
package inspector

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/predopt/nnembed/pkg/mip"
	"github.com/predopt/nnembed/pkg/sequential"
)

// Summarize prints the model's variable arrays and constraint counts.
func Summarize(m *mip.Store, w io.Writer) {
	fmt.Fprintf(w, "Model has %d variables and %d constraints.\n\n", m.NumVars(), m.NumConstrs())

	table := newTable(w)
	table.SetHeader([]string{"ARRAY", "SHAPE", "LB", "UB"})
	for _, a := range m.Arrays() {
		lb, ub := m.Bounds(a.At(make([]int, len(a.Shape()))...))
		table.Append([]string{a.Name(), fmtShape(a.Shape()), fmtBound(lb), fmtBound(ub)})
	}
	table.Render()

	counts := m.ConstrCounts()
	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	fmt.Fprintf(w, "\nConstraints:\n")
	for _, kind := range kinds {
		fmt.Fprintf(w, "  %s: %d\n", kind, counts[kind])
	}
}

// Layers prints one row per dense layer of a network.
func Layers(n *sequential.Network, w io.Writer) error {
	if err := n.Validate(); err != nil {
		return err
	}
	table := newTable(w)
	table.SetHeader([]string{"LAYER", "IN", "OUT", "ACTIVATION"})
	for i := range n.Layers {
		d := &n.Layers[i]
		table.Append([]string{
			strconv.Itoa(i),
			strconv.Itoa(d.InputSize()),
			strconv.Itoa(d.OutputSize()),
			d.Activation,
		})
	}
	table.Render()
	return nil
}

func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	return table
}

func fmtShape(s mip.Shape) string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = strconv.Itoa(d)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func fmtBound(b float64) string {
	switch {
	case b >= mip.Infinity:
		return "inf"
	case b <= -mip.Infinity:
		return "-inf"
	default:
		return strconv.FormatFloat(b, 'g', -1, 64)
	}
}
