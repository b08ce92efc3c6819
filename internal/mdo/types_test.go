package mdo

import (
	"errors"
	"math"
	"testing"
)

func TestValueClone(t *testing.T) {
	v := Vector(1, 2, 3)
	c := v.Clone()
	c[0] = 99
	if v[0] != 1 {
		t.Errorf("clone aliases original: %v", v)
	}
}

func TestValueIsValid(t *testing.T) {
	if !Vector(1, 2).IsValid() {
		t.Error("finite vector should be valid")
	}
	if Vector(1, math.NaN()).IsValid() {
		t.Error("NaN should be invalid")
	}
	if Vector(math.Inf(1)).IsValid() {
		t.Error("Inf should be invalid")
	}
}

func TestValueMaxAbsDiff(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want float64
	}{
		{"equal", Vector(1, 2), Vector(1, 2), 0},
		{"simple", Vector(1, 5), Vector(1, 2), 3},
		{"short other", Vector(0, 0, 4), Vector(0), 4},
		{"scalar", Scalar(2), Scalar(-1), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.MaxAbsDiff(tt.b); got != tt.want {
				t.Errorf("got %g, want %g", got, tt.want)
			}
		})
	}
}

func TestValueMaxRelDiff(t *testing.T) {
	// Change of 1 against a value of 100 is 0.01 relative.
	got := Scalar(101).MaxRelDiff(Scalar(100))
	if math.Abs(got-0.01) > 1e-12 {
		t.Errorf("got %g, want 0.01", got)
	}
	// Small magnitudes fall back to absolute scale.
	got = Scalar(0.5).MaxRelDiff(Scalar(0.1))
	if math.Abs(got-0.4) > 1e-12 {
		t.Errorf("got %g, want 0.4", got)
	}
}

func TestStoreCloneIsolation(t *testing.T) {
	s := NewStore()
	s.Set("x", Vector(1, 2))

	c := s.Clone()
	c.SetScalar("x", 99)
	c.SetScalar("y", 1)

	if v, _ := s.Get("x"); v[0] != 1 {
		t.Errorf("clone mutated original: %v", v)
	}
	if s.Has("y") {
		t.Error("clone write leaked into original")
	}
}

func TestStoreSnapshot(t *testing.T) {
	s := NewStore()
	s.SetScalar("a", 1)
	s.SetScalar("b", 2)

	snap := s.Snapshot([]string{"a", "missing"})
	if len(snap) != 1 || snap["a"].Float() != 1 {
		t.Errorf("unexpected snapshot: %v", snap)
	}
}

type schemaUnit struct{}

func (schemaUnit) Name() string       { return "u" }
func (schemaUnit) Inputs() []Var      { return []Var{V("a", 0)} }
func (schemaUnit) Outputs() []Var     { return []Var{V("out", 0)} }
func (schemaUnit) Evaluate(in Values) (Values, error) {
	return Values{"out": in["a"]}, nil
}

func TestCheckInputsMissing(t *testing.T) {
	err := CheckInputs(schemaUnit{}, Values{})
	if err == nil {
		t.Fatal("expected schema error")
	}
	if !errors.Is(err, ErrSchema) {
		t.Errorf("expected ErrSchema, got %v", err)
	}
	var se *SchemaError
	if !errors.As(err, &se) || se.Variable != "a" {
		t.Errorf("unexpected error detail: %v", err)
	}
}

func TestCheckOutputsUndeclared(t *testing.T) {
	err := CheckOutputs(schemaUnit{}, Values{"bogus": Scalar(1)})
	if !errors.Is(err, ErrSchema) {
		t.Errorf("expected ErrSchema, got %v", err)
	}
}

func TestErrorWrapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"schema", &SchemaError{Unit: "u", Variable: "v", Reason: "missing"}, ErrSchema},
		{"binding", &BindingError{Input: "x"}, ErrBinding},
		{"configuration", &ConfigurationError{Detail: "cycle"}, ErrConfiguration},
		{"convergence", &ConvergenceError{Group: "g", Iterations: 5, Residual: 0.1}, ErrNoConvergence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("%v does not wrap %v", tt.err, tt.sentinel)
			}
		})
	}
}
