package graph

import (
	"context"
	"fmt"

	"github.com/san-kum/mdokit/internal/mdo"
	"github.com/san-kum/mdokit/internal/solver"
)

type compiledInput struct {
	local string
	src   string
	def   mdo.Value
}

type compiledOutput struct {
	local string
	canon string
	def   mdo.Value
}

type compiledUnit struct {
	unit    mdo.Unit
	inputs  []compiledInput
	outputs []compiledOutput
}

// run reads the unit's inputs from the store (bound source, caller-set value,
// or declared default), evaluates, validates the output schema, and writes
// the outputs back under their root-scope names.
func (cu *compiledUnit) run(s *mdo.Store) error {
	in := make(mdo.Values, len(cu.inputs))
	for _, ip := range cu.inputs {
		if v, ok := s.Get(ip.src); ok {
			in[ip.local] = v
			continue
		}
		if ip.def == nil {
			return &mdo.BindingError{Input: ip.src}
		}
		in[ip.local] = ip.def.Clone()
	}

	out, err := cu.unit.Evaluate(in)
	if err != nil {
		return fmt.Errorf("unit %q: %w", cu.unit.Name(), err)
	}
	if err := mdo.CheckOutputs(cu.unit, out); err != nil {
		return err
	}
	for _, op := range cu.outputs {
		if v, ok := out[op.local]; ok {
			s.Set(op.canon, v)
		}
	}
	return nil
}

type compiledNode struct {
	name    string
	group   bool
	units   []*compiledUnit
	tracked []string // group only: root-scope names of member outputs
	opts    solver.Options
}

// Model is an immutable, assembled model: nodes in topological order with
// every input resolved to its source. A Model may be shared by concurrent
// evaluations as long as each works on its own Store.
type Model struct {
	nodes []compiledNode
}

// Order returns node names in evaluation order.
func (m *Model) Order() []string {
	names := make([]string, len(m.nodes))
	for i, n := range m.nodes {
		names[i] = n.name
	}
	return names
}

// Groups returns the names of the coupling groups, in evaluation order.
func (m *Model) Groups() []string {
	var names []string
	for _, n := range m.nodes {
		if n.group {
			names = append(names, n.name)
		}
	}
	return names
}

// Evaluate walks the nodes in topological order against the caller-owned
// store. Coupling groups are delegated to the fixed-point solver; their
// records are returned in evaluation order. On a convergence failure the
// partial records are returned along with the error.
func (m *Model) Evaluate(ctx context.Context, s *mdo.Store) ([]*solver.Record, error) {
	return m.evaluate(ctx, s, nil)
}

// EvaluateObserved is Evaluate with a solver observer attached to every
// coupling-group solve (used by the live monitor).
func (m *Model) EvaluateObserved(ctx context.Context, s *mdo.Store, obs solver.Observer) ([]*solver.Record, error) {
	return m.evaluate(ctx, s, obs)
}

func (m *Model) evaluate(ctx context.Context, s *mdo.Store, obs solver.Observer) ([]*solver.Record, error) {
	var records []*solver.Record
	for i := range m.nodes {
		node := &m.nodes[i]

		select {
		case <-ctx.Done():
			return records, ctx.Err()
		default:
		}

		if !node.group {
			if err := node.units[0].run(s); err != nil {
				return records, err
			}
			continue
		}

		// Seed coupling variables not supplied by the caller with their
		// declared defaults, so every solve starts from a defined guess.
		for _, cu := range node.units {
			for _, op := range cu.outputs {
				if !s.Has(op.canon) && op.def != nil {
					s.Set(op.canon, op.def)
				}
			}
		}

		steps := make([]solver.Step, len(node.units))
		for j, cu := range node.units {
			steps[j] = solver.Step{Name: cu.unit.Name(), Run: cu.run}
		}

		opts := node.opts
		if opts.Tolerance == 0 {
			opts.Tolerance = solver.DefaultTolerance
		}
		if opts.MaxIterations == 0 {
			opts.MaxIterations = solver.DefaultMaxIterations
		}
		if obs != nil {
			opts.Observer = chainObservers(opts.Observer, obs)
		}

		rec, err := solver.Solve(ctx, node.name, steps, node.tracked, s, opts)
		if rec != nil {
			records = append(records, rec)
		}
		if err != nil {
			return records, err
		}
	}
	return records, nil
}

func chainObservers(a, b solver.Observer) solver.Observer {
	if a == nil {
		return b
	}
	return solver.ObserverFunc(func(iter int, residual float64, s *mdo.Store) {
		a.OnIteration(iter, residual, s)
		b.OnIteration(iter, residual, s)
	})
}
