package graph_test

import (
	"context"
	"errors"
	"testing"

	"github.com/san-kum/mdokit/internal/graph"
	"github.com/san-kum/mdokit/internal/mdo"
	"github.com/san-kum/mdokit/internal/models"
	"github.com/san-kum/mdokit/internal/solver"
)

func scalarUnit(name string, ins []mdo.Var, out string, f func(in mdo.Values) float64) mdo.Unit {
	return models.NewFunc(name, ins, []mdo.Var{mdo.V(out, 0)},
		func(in mdo.Values) mdo.Values {
			return mdo.Values{out: mdo.Scalar(f(in))}
		})
}

func TestTopologicalEvaluation(t *testing.T) {
	src := scalarUnit("src", nil, "a", func(mdo.Values) float64 { return 2 })
	mid := scalarUnit("mid", []mdo.Var{mdo.V("a", 0)}, "b", func(in mdo.Values) float64 {
		return in["a"].Float() * 3
	})
	sink := scalarUnit("sink", []mdo.Var{mdo.V("b", 0)}, "c", func(in mdo.Values) float64 {
		return in["b"].Float() + 1
	})

	// Register out of dependency order; assembly must reorder.
	b := graph.NewBuilder()
	b.AddUnit(sink, graph.PromoteAll())
	b.AddUnit(mid, graph.PromoteAll())
	b.AddUnit(src, graph.PromoteAll())

	m, err := b.Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	order := m.Order()
	if order[0] != "src" || order[2] != "sink" {
		t.Errorf("unexpected evaluation order: %v", order)
	}

	s := mdo.NewStore()
	if _, err := m.Evaluate(context.Background(), s); err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if got := s.Float("c"); got != 7 {
		t.Errorf("expected c=7, got %g", got)
	}
}

func TestBindingErrorMissingSource(t *testing.T) {
	// Input with no default and no bound source.
	u := scalarUnit("u", []mdo.Var{{Name: "req"}}, "out", func(in mdo.Values) float64 {
		return in["req"].Float()
	})

	b := graph.NewBuilder()
	b.AddUnit(u, graph.PromoteAll())
	_, err := b.Build()
	if !errors.Is(err, mdo.ErrBinding) {
		t.Fatalf("expected ErrBinding, got %v", err)
	}
}

func TestBindingErrorAmbiguousSource(t *testing.T) {
	u1 := scalarUnit("u1", nil, "y", func(mdo.Values) float64 { return 1 })
	u2 := scalarUnit("u2", nil, "y", func(mdo.Values) float64 { return 2 })

	b := graph.NewBuilder()
	b.AddUnit(u1, graph.PromoteAll())
	b.AddUnit(u2, graph.PromoteAll())
	_, err := b.Build()
	if !errors.Is(err, mdo.ErrBinding) {
		t.Fatalf("expected ErrBinding, got %v", err)
	}
}

func TestConfigurationErrorCrossBoundaryCycle(t *testing.T) {
	u1 := scalarUnit("u1", []mdo.Var{mdo.V("b", 0)}, "a", func(in mdo.Values) float64 {
		return 0.5 * in["b"].Float()
	})
	u2 := scalarUnit("u2", []mdo.Var{mdo.V("a", 0)}, "b", func(in mdo.Values) float64 {
		return 0.5 * in["a"].Float()
	})

	// Mutual dependency without a declared coupling group is fatal.
	b := graph.NewBuilder()
	b.AddUnit(u1, graph.PromoteAll())
	b.AddUnit(u2, graph.PromoteAll())
	_, err := b.Build()
	if !errors.Is(err, mdo.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestGroupHidesCycle(t *testing.T) {
	u1 := scalarUnit("u1", []mdo.Var{mdo.V("b", 0)}, "a", func(in mdo.Values) float64 {
		return 0.5*in["b"].Float() + 1
	})
	u2 := scalarUnit("u2", []mdo.Var{mdo.V("a", 0)}, "b", func(in mdo.Values) float64 {
		return 0.5*in["a"].Float() + 1
	})

	g := graph.NewGroup("pair", solver.DefaultOptions())
	g.AddUnit(u1, graph.PromoteAll())
	g.AddUnit(u2, graph.PromoteAll())

	b := graph.NewBuilder()
	b.AddGroup(g, graph.PromoteAll())
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	s := mdo.NewStore()
	recs, err := m.Evaluate(context.Background(), s)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if len(recs) != 1 || !recs[0].Converged {
		t.Fatalf("expected one converged record, got %+v", recs)
	}

	// Closed form: a = b = 2.
	if a := s.Float("a"); a < 2-1e-6 || a > 2+1e-6 {
		t.Errorf("expected a≈2, got %g", a)
	}
	if bv := s.Float("b"); bv < 2-1e-6 || bv > 2+1e-6 {
		t.Errorf("expected b≈2, got %g", bv)
	}
}

func TestGroupNonConvergencePropagates(t *testing.T) {
	u1 := scalarUnit("u1", []mdo.Var{mdo.V("b", 0)}, "a", func(in mdo.Values) float64 {
		return 2*in["b"].Float() + 1
	})
	u2 := scalarUnit("u2", []mdo.Var{mdo.V("a", 0)}, "b", func(in mdo.Values) float64 {
		return 2*in["a"].Float() + 1
	})

	opts := solver.DefaultOptions()
	opts.MaxIterations = 10
	g := graph.NewGroup("diverge", opts)
	g.AddUnit(u1, graph.PromoteAll())
	g.AddUnit(u2, graph.PromoteAll())

	b := graph.NewBuilder()
	b.AddGroup(g, graph.PromoteAll())
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	_, err = m.Evaluate(context.Background(), mdo.NewStore())
	if !errors.Is(err, mdo.ErrNoConvergence) {
		t.Fatalf("expected ErrNoConvergence, got %v", err)
	}
}

func TestConnectionOverridesPromotion(t *testing.T) {
	p1 := scalarUnit("p1", nil, "y", func(mdo.Values) float64 { return 1 })
	p2 := scalarUnit("p2", nil, "z", func(mdo.Values) float64 { return 5 })
	consumer := scalarUnit("consumer", []mdo.Var{mdo.V("y", 0)}, "out", func(in mdo.Values) float64 {
		return in["y"].Float() * 10
	})

	b := graph.NewBuilder()
	b.AddUnit(p1, graph.PromoteAll())
	b.AddUnit(p2, graph.PromoteAll())
	b.AddUnit(consumer, graph.PromoteAll())
	// Promotion would bind consumer.y to p1.y; the explicit connection to
	// p2.z must win.
	b.Connect("p2.z", "consumer.y")

	m, err := b.Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	s := mdo.NewStore()
	if _, err := m.Evaluate(context.Background(), s); err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if got := s.Float("out"); got != 50 {
		t.Errorf("expected out=50 via connection, got %g", got)
	}
}

func TestConnectionUnknownPort(t *testing.T) {
	u := scalarUnit("u", nil, "y", func(mdo.Values) float64 { return 1 })

	b := graph.NewBuilder()
	b.AddUnit(u, graph.PromoteAll())
	b.Connect("u.y", "nope.x")
	_, err := b.Build()
	if !errors.Is(err, mdo.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestDuplicateNodeName(t *testing.T) {
	u1 := scalarUnit("dup", nil, "y", func(mdo.Values) float64 { return 1 })
	u2 := scalarUnit("dup", nil, "z", func(mdo.Values) float64 { return 2 })

	b := graph.NewBuilder()
	b.AddUnit(u1)
	b.AddUnit(u2)
	_, err := b.Build()
	if !errors.Is(err, mdo.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestUnboundInputUsesStoreThenDefault(t *testing.T) {
	u := scalarUnit("u", []mdo.Var{mdo.V("x", 3)}, "out", func(in mdo.Values) float64 {
		return in["x"].Float() * 2
	})

	b := graph.NewBuilder()
	b.AddUnit(u, graph.PromoteAll())
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	// Default applies when the caller sets nothing.
	s := mdo.NewStore()
	if _, err := m.Evaluate(context.Background(), s); err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if got := s.Float("out"); got != 6 {
		t.Errorf("expected default-driven out=6, got %g", got)
	}

	// A caller-set value (a design variable) wins over the default.
	s = mdo.NewStore()
	s.SetScalar("x", 10)
	if _, err := m.Evaluate(context.Background(), s); err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if got := s.Float("out"); got != 20 {
		t.Errorf("expected store-driven out=20, got %g", got)
	}
}

func TestEvaluateDeterminism(t *testing.T) {
	g := graph.NewGroup("cycle", solver.DefaultOptions())
	g.AddUnit(models.NewSellarD1(), graph.PromoteAll())
	g.AddUnit(models.NewSellarD2(), graph.PromoteAll())

	b := graph.NewBuilder()
	b.AddGroup(g, graph.PromoteAll())
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	run := func() (float64, float64) {
		s := mdo.NewStore()
		s.SetScalar("x", 2)
		s.SetScalar("z1", -1)
		s.SetScalar("z2", -1)
		if _, err := m.Evaluate(context.Background(), s); err != nil {
			t.Fatalf("evaluate failed: %v", err)
		}
		return s.Float("y1"), s.Float("y2")
	}

	y1a, y2a := run()
	y1b, y2b := run()
	if y1a != y1b || y2a != y2b {
		t.Errorf("re-evaluation not bit-identical: (%v,%v) vs (%v,%v)", y1a, y2a, y1b, y2b)
	}
}
