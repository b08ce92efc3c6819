package mdo

import "math"

// Value is a variable value: a scalar is a Value of length 1.
type Value []float64

// Scalar returns a length-1 Value.
func Scalar(v float64) Value { return Value{v} }

// Vector copies vs into a new Value.
func Vector(vs ...float64) Value {
	c := make(Value, len(vs))
	copy(c, vs)
	return c
}

func (v Value) Clone() Value {
	c := make(Value, len(v))
	copy(c, v)
	return c
}

// Float returns the scalar component. It is the value's first element; units
// operating on scalars read their inputs through this.
func (v Value) Float() float64 {
	if len(v) == 0 {
		return 0
	}
	return v[0]
}

func (v Value) IsValid() bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// MaxAbsDiff returns the largest absolute componentwise difference to other.
// Mismatched lengths compare against zero for the missing components.
func (v Value) MaxAbsDiff(other Value) float64 {
	n := len(v)
	if len(other) > n {
		n = len(other)
	}
	max := 0.0
	for i := 0; i < n; i++ {
		var a, b float64
		if i < len(v) {
			a = v[i]
		}
		if i < len(other) {
			b = other[i]
		}
		if d := math.Abs(a - b); d > max {
			max = d
		}
	}
	return max
}

// MaxRelDiff is MaxAbsDiff scaled by max(1, |other_i|) per component.
func (v Value) MaxRelDiff(other Value) float64 {
	n := len(v)
	if len(other) > n {
		n = len(other)
	}
	max := 0.0
	for i := 0; i < n; i++ {
		var a, b float64
		if i < len(v) {
			a = v[i]
		}
		if i < len(other) {
			b = other[i]
		}
		scale := math.Abs(b)
		if scale < 1 {
			scale = 1
		}
		if d := math.Abs(a-b) / scale; d > max {
			max = d
		}
	}
	return max
}

// Values maps variable names to their current values.
type Values map[string]Value

func (vs Values) Clone() Values {
	c := make(Values, len(vs))
	for k, v := range vs {
		c[k] = v.Clone()
	}
	return c
}

// Var declares a variable: its name and the default used when no binding
// supplies a value.
type Var struct {
	Name    string
	Default Value
}

// V declares a scalar variable with default d.
func V(name string, d float64) Var { return Var{Name: name, Default: Scalar(d)} }

// VN declares a vector variable with default components d.
func VN(name string, d ...float64) Var { return Var{Name: name, Default: Vector(d...)} }

// Unit is a disciplinary analysis unit: a deterministic, side-effect-free
// function from its declared inputs to its declared outputs. Input and output
// schemas are fixed at construction and never change afterwards.
type Unit interface {
	Name() string
	Inputs() []Var
	Outputs() []Var
	Evaluate(in Values) (Values, error)
}

// CheckInputs verifies that in supplies every declared input of u.
func CheckInputs(u Unit, in Values) error {
	for _, d := range u.Inputs() {
		if _, ok := in[d.Name]; !ok {
			return &SchemaError{Unit: u.Name(), Variable: d.Name, Reason: "missing declared input"}
		}
	}
	return nil
}

// CheckOutputs verifies that out produces only declared outputs of u.
func CheckOutputs(u Unit, out Values) error {
	declared := make(map[string]bool, len(u.Outputs()))
	for _, d := range u.Outputs() {
		declared[d.Name] = true
	}
	for name := range out {
		if !declared[name] {
			return &SchemaError{Unit: u.Name(), Variable: name, Reason: "undeclared output"}
		}
	}
	return nil
}
