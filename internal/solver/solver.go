// Package solver implements fixed-point (block Gauss-Seidel) convergence of
// coupled variable sets. The solver is gradient-free: each sweep evaluates
// every member step in a fixed order, adopts the produced outputs, and
// measures the residual as the largest change across the tracked coupling
// variables. Any domain-specific guarding of intermediate values (sign
// reflection, clamping) belongs to the individual units, never here.
package solver

import (
	"context"
	"fmt"

	"github.com/san-kum/mdokit/internal/mdo"
)

const (
	DefaultTolerance     = 1e-8
	DefaultMaxIterations = 100
)

// Step is one member evaluation inside a sweep: it reads its inputs from the
// store and writes its outputs back. Steps run in declaration order, the same
// order on every sweep and every call.
type Step struct {
	Name string
	Run  func(s *mdo.Store) error
}

// Observer is notified after each sweep. The store must be treated as
// read-only inside the callback.
type Observer interface {
	OnIteration(iter int, residual float64, s *mdo.Store)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(iter int, residual float64, s *mdo.Store)

func (f ObserverFunc) OnIteration(iter int, residual float64, s *mdo.Store) { f(iter, residual, s) }

type Options struct {
	Tolerance     float64
	MaxIterations int
	// Relative scales each component's change by max(1, |value|).
	Relative bool
	Observer Observer
}

func DefaultOptions() Options {
	return Options{
		Tolerance:     DefaultTolerance,
		MaxIterations: DefaultMaxIterations,
	}
}

// Record reports one solve: iterations used, final residual, and the residual
// after every sweep (for plotting and run storage).
type Record struct {
	Group      string
	Iterations int
	Residual   float64
	History    []float64
	Converged  bool
}

// Solve iterates the steps until every tracked variable's change falls under
// the tolerance. Initial values for the tracked variables come from the store
// (caller-supplied guess or declared defaults). On cap exhaustion the partial
// record is returned together with a *mdo.ConvergenceError.
func Solve(ctx context.Context, group string, steps []Step, tracked []string, s *mdo.Store, opts Options) (*Record, error) {
	if opts.Tolerance <= 0 {
		return nil, fmt.Errorf("solver: tolerance must be positive, got %g", opts.Tolerance)
	}
	if opts.MaxIterations <= 0 {
		return nil, fmt.Errorf("solver: max iterations must be positive, got %d", opts.MaxIterations)
	}

	rec := &Record{Group: group, History: make([]float64, 0, opts.MaxIterations)}

	prev := s.Snapshot(tracked)
	for iter := 1; iter <= opts.MaxIterations; iter++ {
		select {
		case <-ctx.Done():
			return rec, ctx.Err()
		default:
		}

		for _, st := range steps {
			if err := st.Run(s); err != nil {
				return rec, fmt.Errorf("solver: step %q: %w", st.Name, err)
			}
		}

		cur := s.Snapshot(tracked)
		residual := residualBetween(cur, prev, opts.Relative)
		prev = cur

		rec.Iterations = iter
		rec.Residual = residual
		rec.History = append(rec.History, residual)

		if opts.Observer != nil {
			opts.Observer.OnIteration(iter, residual, s)
		}

		if residual <= opts.Tolerance {
			rec.Converged = true
			return rec, nil
		}
	}

	return rec, &mdo.ConvergenceError{
		Group:      group,
		Iterations: rec.Iterations,
		Residual:   rec.Residual,
	}
}

func residualBetween(cur, prev mdo.Values, relative bool) float64 {
	max := 0.0
	for name, c := range cur {
		p := prev[name]
		var d float64
		if relative {
			d = c.MaxRelDiff(p)
		} else {
			d = c.MaxAbsDiff(p)
		}
		if d > max {
			max = d
		}
	}
	return max
}
