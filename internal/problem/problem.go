// Package problem defines the boundary handed to an external gradient-based
// optimizer: design-variable specs with bounds, one objective, inequality
// constraints, and the four queries (objective, constraints, gradient,
// bounds) the optimizer drives. The optimizer's own iteration loop lives
// outside this module.
package problem

import (
	"context"
	"errors"
	"fmt"

	"github.com/san-kum/mdokit/internal/fd"
	"github.com/san-kum/mdokit/internal/graph"
	"github.com/san-kum/mdokit/internal/mdo"
	"github.com/san-kum/mdokit/internal/solver"
)

// Sense is the direction of an inequality constraint.
type Sense int

const (
	// LessEqual means response ≤ bound is feasible.
	LessEqual Sense = iota
	// GreaterEqual means response ≥ bound is feasible.
	GreaterEqual
)

func (s Sense) String() string {
	if s == GreaterEqual {
		return ">="
	}
	return "<="
}

// DesignVar is an optimizer-controlled scalar with bounds and initial value.
type DesignVar struct {
	Name  string
	Lower float64
	Upper float64
	Init  float64
}

// ConstraintSpec names a response constrained against a bound.
type ConstraintSpec struct {
	Name  string
	Sense Sense
	Bound float64
}

// Problem couples an assembled model with its design and response specs.
type Problem struct {
	name        string
	model       *graph.Model
	base        *mdo.Store
	designs     []DesignVar
	objective   string
	constraints []ConstraintSpec
	fdOpts      fd.Options
}

func New(name string, model *graph.Model, base *mdo.Store, designs []DesignVar, objective string, constraints []ConstraintSpec, fdOpts fd.Options) (*Problem, error) {
	if model == nil {
		return nil, errors.New("problem: nil model")
	}
	if objective == "" {
		return nil, errors.New("problem: exactly one objective is required")
	}
	if len(designs) == 0 {
		return nil, errors.New("problem: no design variables")
	}
	seen := make(map[string]bool)
	for _, d := range designs {
		if seen[d.Name] {
			return nil, fmt.Errorf("problem: duplicate design variable %q", d.Name)
		}
		seen[d.Name] = true
		if d.Lower > d.Upper {
			return nil, fmt.Errorf("problem: design variable %q has lower bound %g above upper %g", d.Name, d.Lower, d.Upper)
		}
	}
	if base == nil {
		base = mdo.NewStore()
	}
	return &Problem{
		name:        name,
		model:       model,
		base:        base.Clone(),
		designs:     append([]DesignVar(nil), designs...),
		objective:   objective,
		constraints: append([]ConstraintSpec(nil), constraints...),
		fdOpts:      fdOpts,
	}, nil
}

func (p *Problem) Name() string                      { return p.name }
func (p *Problem) Model() *graph.Model               { return p.model }
func (p *Problem) Objective() string                 { return p.objective }
func (p *Problem) ConstraintSpecs() []ConstraintSpec { return append([]ConstraintSpec(nil), p.constraints...) }

func (p *Problem) DesignNames() []string {
	names := make([]string, len(p.designs))
	for i, d := range p.designs {
		names[i] = d.Name
	}
	return names
}

func (p *Problem) InitialPoint() []float64 {
	x := make([]float64, len(p.designs))
	for i, d := range p.designs {
		x[i] = d.Init
	}
	return x
}

// Bounds returns the per-design lower and upper bounds.
func (p *Problem) Bounds() (lower, upper []float64) {
	lower = make([]float64, len(p.designs))
	upper = make([]float64, len(p.designs))
	for i, d := range p.designs {
		lower[i] = d.Lower
		upper[i] = d.Upper
	}
	return lower, upper
}

// Responses lists the objective followed by the constraints; this is the row
// order of every Jacobian the problem produces.
func (p *Problem) Responses() []string {
	out := []string{p.objective}
	for _, c := range p.constraints {
		out = append(out, c.Name)
	}
	return out
}

// Evaluate runs the model at the design point against a fresh store and
// returns the store plus the coupling-group solve records.
func (p *Problem) Evaluate(ctx context.Context, x []float64) (*mdo.Store, []*solver.Record, error) {
	return p.EvaluateObserved(ctx, x, nil)
}

// EvaluateObserved is Evaluate with a solver observer attached to every
// coupling-group solve.
func (p *Problem) EvaluateObserved(ctx context.Context, x []float64, obs solver.Observer) (*mdo.Store, []*solver.Record, error) {
	if len(x) != len(p.designs) {
		return nil, nil, fmt.Errorf("problem: point has %d components, want %d", len(x), len(p.designs))
	}
	s := p.base.Clone()
	for i, d := range p.designs {
		s.SetScalar(d.Name, x[i])
	}
	recs, err := p.model.EvaluateObserved(ctx, s, obs)
	if err != nil {
		return s, recs, err
	}
	return s, recs, nil
}

// ObjectiveAt is the scalar objective query the optimizer consumes.
func (p *Problem) ObjectiveAt(ctx context.Context, x []float64) (float64, error) {
	s, _, err := p.Evaluate(ctx, x)
	if err != nil {
		return 0, err
	}
	return p.responseFrom(s, p.objective)
}

// ConstraintsAt returns constraint response values in spec order.
func (p *Problem) ConstraintsAt(ctx context.Context, x []float64) ([]float64, error) {
	s, _, err := p.Evaluate(ctx, x)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(p.constraints))
	for i, c := range p.constraints {
		v, err := p.responseFrom(s, c.Name)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Gradient returns the finite-difference Jacobian of all responses with
// respect to the design variables, using the problem's configured scheme.
func (p *Problem) Gradient(ctx context.Context, x []float64) (*fd.Jacobian, error) {
	return p.GradientWith(ctx, x, p.fdOpts)
}

// GradientWith is Gradient with caller-supplied finite-difference options.
func (p *Problem) GradientWith(ctx context.Context, x []float64, opts fd.Options) (*fd.Jacobian, error) {
	est, err := fd.NewEstimator(p.model, p.base, p.DesignNames(), p.Responses(), opts)
	if err != nil {
		return nil, err
	}
	return est.Jacobian(ctx, x)
}

func (p *Problem) responseFrom(s *mdo.Store, name string) (float64, error) {
	v, ok := s.Get(name)
	if !ok {
		return 0, fmt.Errorf("problem: response %q not produced by model", name)
	}
	return v.Float(), nil
}
