// Package viz renders solver and gradient results for the terminal.
package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/mdokit/internal/fd"
	"github.com/san-kum/mdokit/internal/mdo"
)

var (
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	invalidStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
)

// ResidualPlot renders a coupling group's residual history on a log10 axis.
func ResidualPlot(history []float64, caption string) string {
	if len(history) == 0 {
		return ""
	}
	data := make([]float64, len(history))
	for i, r := range history {
		if r <= 0 {
			r = 1e-16
		}
		data[i] = math.Log10(r)
	}
	graph := asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(60),
		asciigraph.Caption(caption+" (log10 residual)"),
	)
	return graph
}

// ValueTable renders selected store variables as a label/value table.
func ValueTable(title string, s *mdo.Store, names []string) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(title))
	b.WriteString("\n")
	for _, name := range names {
		v, ok := s.Get(name)
		if !ok {
			continue
		}
		b.WriteString(labelStyle.Render(name))
		if len(v) == 1 {
			b.WriteString(valueStyle.Render(fmt.Sprintf("%12.6f", v[0])))
		} else {
			parts := make([]string, len(v))
			for i, x := range v {
				parts[i] = fmt.Sprintf("%.6f", x)
			}
			b.WriteString(valueStyle.Render("[" + strings.Join(parts, ", ") + "]"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// JacobianTable renders the Jacobian with responses as rows and design
// variables as columns. Invalid columns render as n/a.
func JacobianTable(j *fd.Jacobian) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("jacobian"))
	b.WriteString("\n")

	b.WriteString(labelStyle.Render(""))
	for _, c := range j.Cols {
		b.WriteString(fmt.Sprintf("%14s", c))
	}
	b.WriteString("\n")

	for i, r := range j.Rows {
		b.WriteString(labelStyle.Render("d" + r))
		for k := range j.Cols {
			if !j.Valid(k) {
				b.WriteString(invalidStyle.Render(fmt.Sprintf("%14s", "n/a")))
				continue
			}
			b.WriteString(valueStyle.Render(fmt.Sprintf("%14.6f", j.At(i, k))))
		}
		b.WriteString("\n")
	}

	for k := range j.Cols {
		if err := j.ColErr(k); err != nil {
			b.WriteString(invalidStyle.Render(fmt.Sprintf("column %s: %v", j.Cols[k], err)))
			b.WriteString("\n")
		}
	}
	return b.String()
}
