package problem

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/mdokit/internal/fd"
	"github.com/san-kum/mdokit/internal/graph"
	"github.com/san-kum/mdokit/internal/mdo"
	"github.com/san-kum/mdokit/internal/models"
	"github.com/san-kum/mdokit/internal/solver"
)

// Params carries the tunables a builder needs: the coupling solver settings
// and the finite-difference settings.
type Params struct {
	Solver solver.Options
	FD     fd.Options
}

func DefaultParams() Params {
	return Params{Solver: solver.DefaultOptions(), FD: fd.DefaultOptions()}
}

// Registry maps problem names to builders.
type Registry struct {
	builders map[string]func(Params) (*Problem, error)
}

func NewRegistry() *Registry {
	r := &Registry{builders: make(map[string]func(Params) (*Problem, error))}

	r.builders["sellar"] = func(p Params) (*Problem, error) {
		return NewSellar(p, false)
	}
	r.builders["sellar-connected"] = func(p Params) (*Problem, error) {
		return NewSellar(p, true)
	}
	r.builders["paraboloid"] = NewParaboloid

	return r
}

func (r *Registry) Get(name string, p Params) (*Problem, error) {
	build, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown problem: %s", name)
	}
	return build(p)
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for k := range r.builders {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// NewSellar assembles the two-discipline Sellar benchmark: D1 and D2 coupled
// through y1/y2 inside a fixed-point group, with objective and constraint
// units downstream. With connected=true the wiring uses explicit connections
// instead of promotion; both spellings evaluate identically.
func NewSellar(p Params, connected bool) (*Problem, error) {
	g := graph.NewGroup("cycle", p.Solver)
	b := graph.NewBuilder()

	if connected {
		g.AddUnit(models.NewSellarD1(), graph.Promote("z1", "z2", "x"))
		g.AddUnit(models.NewSellarD2(), graph.Promote("z1", "z2"))
		b.AddGroup(g, graph.Promote("z1", "z2", "x"))
		b.AddUnit(models.SellarObjective(), graph.Promote("x", "z2", "obj"))
		b.AddUnit(models.SellarCon1(), graph.Promote("con1"))
		b.AddUnit(models.SellarCon2(), graph.Promote("con2"))
		b.Connect("cycle.d1.y1", "cycle.d2.y1", "obj_comp.y1", "con_comp1.y1")
		b.Connect("cycle.d2.y2", "cycle.d1.y2", "obj_comp.y2", "con_comp2.y2")
	} else {
		g.AddUnit(models.NewSellarD1(), graph.PromoteAll())
		g.AddUnit(models.NewSellarD2(), graph.PromoteAll())
		b.AddGroup(g, graph.PromoteAll())
		b.AddUnit(models.SellarObjective(), graph.PromoteAll())
		b.AddUnit(models.SellarCon1(), graph.PromoteAll())
		b.AddUnit(models.SellarCon2(), graph.PromoteAll())
	}

	model, err := b.Build()
	if err != nil {
		return nil, err
	}

	name := "sellar"
	if connected {
		name = "sellar-connected"
	}

	designs := []DesignVar{
		{Name: "x", Lower: 0, Upper: 10, Init: 1},
		{Name: "z1", Lower: -10, Upper: 10, Init: 5},
		{Name: "z2", Lower: 0, Upper: 10, Init: 2},
	}
	constraints := []ConstraintSpec{
		{Name: "con1", Sense: LessEqual, Bound: 0},
		{Name: "con2", Sense: LessEqual, Bound: 0},
	}

	return New(name, model, mdo.NewStore(), designs, "obj", constraints, p.FD)
}

// NewParaboloid is an uncoupled single-unit problem,
// f = (x-3)² + xy + (y+4)² - 3, handy for gradient checks: the analytic
// gradient is (2(x-3)+y, x+2(y+4)).
func NewParaboloid(p Params) (*Problem, error) {
	unit := models.NewFunc("parab",
		[]mdo.Var{mdo.V("x", 0), mdo.V("y", 0)},
		[]mdo.Var{mdo.V("f", 0)},
		func(in mdo.Values) mdo.Values {
			x := in["x"].Float()
			y := in["y"].Float()
			return mdo.Values{"f": mdo.Scalar(math.Pow(x-3, 2) + x*y + math.Pow(y+4, 2) - 3)}
		})

	b := graph.NewBuilder()
	b.AddUnit(unit, graph.PromoteAll())
	model, err := b.Build()
	if err != nil {
		return nil, err
	}

	designs := []DesignVar{
		{Name: "x", Lower: -50, Upper: 50, Init: 3},
		{Name: "y", Lower: -50, Upper: 50, Init: -4},
	}
	return New("paraboloid", model, mdo.NewStore(), designs, "f", nil, p.FD)
}
