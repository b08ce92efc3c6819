// Package tui provides a live terminal monitor for coupling-group solves.
package tui

import (
	"context"
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/mdokit/internal/mdo"
	"github.com/san-kum/mdokit/internal/problem"
	"github.com/san-kum/mdokit/internal/solver"
)

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	statusOK    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	statusBad   = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	statLabel   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	statValue   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
	borderStyle = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1)
)

type iterMsg struct {
	iter     int
	residual float64
}

type doneMsg struct {
	err       error
	responses map[string]float64
}

// Monitor streams solver iterations of one problem evaluation into a
// bubbletea view: residual trace, iteration counter, and final responses.
type Monitor struct {
	prob  *problem.Problem
	point []float64

	msgs     chan tea.Msg
	iter     int
	residual float64
	history  []float64
	done     bool
	err      error
	final    map[string]float64
}

func NewMonitor(p *problem.Problem, point []float64) *Monitor {
	return &Monitor{
		prob:  p,
		point: point,
		msgs:  make(chan tea.Msg, 64),
	}
}

// Run starts the evaluation and blocks until the view exits.
func Run(p *problem.Problem, point []float64) error {
	m := NewMonitor(p, point)
	_, err := tea.NewProgram(m).Run()
	return err
}

func (m *Monitor) Init() tea.Cmd {
	go m.evaluate()
	return m.next()
}

func (m *Monitor) evaluate() {
	obs := solver.ObserverFunc(func(iter int, residual float64, _ *mdo.Store) {
		m.msgs <- iterMsg{iter: iter, residual: residual}
	})

	st, _, err := m.prob.EvaluateObserved(context.Background(), m.point, obs)
	responses := make(map[string]float64)
	if err == nil {
		for _, r := range m.prob.Responses() {
			responses[r] = st.Float(r)
		}
	}
	m.msgs <- doneMsg{err: err, responses: responses}
}

func (m *Monitor) next() tea.Cmd {
	return func() tea.Msg { return <-m.msgs }
}

func (m *Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case iterMsg:
		m.iter = msg.iter
		m.residual = msg.residual
		m.history = append(m.history, msg.residual)
		return m, m.next()
	case doneMsg:
		m.done = true
		m.err = msg.err
		m.final = msg.responses
		return m, nil
	}
	return m, nil
}

func (m *Monitor) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("mdokit live: %s", m.prob.Name())))
	b.WriteString("\n")

	b.WriteString(statLabel.Render("iteration"))
	b.WriteString(statValue.Render(fmt.Sprintf("%d", m.iter)))
	b.WriteString("\n")
	b.WriteString(statLabel.Render("residual"))
	b.WriteString(statValue.Render(fmt.Sprintf("%.3e", m.residual)))
	b.WriteString("\n\n")

	if len(m.history) > 1 {
		data := make([]float64, len(m.history))
		for i, r := range m.history {
			if r <= 0 {
				r = 1e-16
			}
			data[i] = math.Log10(r)
		}
		b.WriteString(borderStyle.Render(asciigraph.Plot(data,
			asciigraph.Height(8),
			asciigraph.Width(50),
			asciigraph.Caption("log10 residual"),
		)))
		b.WriteString("\n")
	}

	if m.done {
		if m.err != nil {
			b.WriteString(statusBad.Render(fmt.Sprintf("failed: %v", m.err)))
		} else {
			b.WriteString(statusOK.Render("converged"))
			b.WriteString("\n")
			for _, r := range m.prob.Responses() {
				b.WriteString(statLabel.Render(r))
				b.WriteString(statValue.Render(fmt.Sprintf("%12.6f", m.final[r])))
				b.WriteString("\n")
			}
		}
	}

	b.WriteString(helpStyle.Render("q: quit"))
	return b.String()
}
