package models

import (
	"math"

	"github.com/san-kum/mdokit/internal/mdo"
)

// SellarD1 computes y1 = z1² + z2 + x - 0.2·y2. It consumes the coupling
// variable y2 produced by SellarD2, forming the classic two-discipline cycle.
type SellarD1 struct{}

func NewSellarD1() *SellarD1 { return &SellarD1{} }

func (d *SellarD1) Name() string { return "d1" }

func (d *SellarD1) Inputs() []mdo.Var {
	return []mdo.Var{
		mdo.V("z1", 0),
		mdo.V("z2", 0),
		mdo.V("x", 0),
		mdo.V("y2", 1),
	}
}

func (d *SellarD1) Outputs() []mdo.Var {
	return []mdo.Var{mdo.V("y1", 1)}
}

func (d *SellarD1) Evaluate(in mdo.Values) (mdo.Values, error) {
	if err := mdo.CheckInputs(d, in); err != nil {
		return nil, err
	}
	z1 := in["z1"].Float()
	z2 := in["z2"].Float()
	x := in["x"].Float()
	y2 := in["y2"].Float()

	y1 := z1*z1 + z2 + x - 0.2*y2
	return mdo.Values{"y1": mdo.Scalar(y1)}, nil
}

// SellarD2 computes y2 = √y1 + z1 + z2. With Reflect set (the default from
// NewSellarD2), a negative intermediate y1 is sign-flipped before the square
// root: the physically valid region is enforced by the outer constraints, so
// a transient negative during fixed-point iteration is reflected rather than
// failed. This is a model-specific option, not solver policy.
type SellarD2 struct {
	Reflect bool
}

func NewSellarD2() *SellarD2 { return &SellarD2{Reflect: true} }

func (d *SellarD2) Name() string { return "d2" }

func (d *SellarD2) Inputs() []mdo.Var {
	return []mdo.Var{
		mdo.V("z1", 0),
		mdo.V("z2", 0),
		mdo.V("y1", 1),
	}
}

func (d *SellarD2) Outputs() []mdo.Var {
	return []mdo.Var{mdo.V("y2", 1)}
}

func (d *SellarD2) Evaluate(in mdo.Values) (mdo.Values, error) {
	if err := mdo.CheckInputs(d, in); err != nil {
		return nil, err
	}
	z1 := in["z1"].Float()
	z2 := in["z2"].Float()
	y1 := in["y1"].Float()

	if y1 < 0 && d.Reflect {
		y1 = -y1
	}

	y2 := math.Sqrt(y1) + z1 + z2
	return mdo.Values{"y2": mdo.Scalar(y2)}, nil
}

// SellarObjective is the response unit obj = x² + z2 + y1 + e^(-y2).
func SellarObjective() *Func {
	return NewFunc("obj_comp",
		[]mdo.Var{mdo.V("x", 0), mdo.V("z2", 0), mdo.V("y1", 0), mdo.V("y2", 0)},
		[]mdo.Var{mdo.V("obj", 0)},
		func(in mdo.Values) mdo.Values {
			x := in["x"].Float()
			z2 := in["z2"].Float()
			y1 := in["y1"].Float()
			y2 := in["y2"].Float()
			return mdo.Values{"obj": mdo.Scalar(x*x + z2 + y1 + math.Exp(-y2))}
		})
}

// SellarCon1 is con1 = 3.16 - y1 (feasible when ≤ 0).
func SellarCon1() *Func {
	return NewFunc("con_comp1",
		[]mdo.Var{mdo.V("y1", 0)},
		[]mdo.Var{mdo.V("con1", 0)},
		func(in mdo.Values) mdo.Values {
			return mdo.Values{"con1": mdo.Scalar(3.16 - in["y1"].Float())}
		})
}

// SellarCon2 is con2 = y2 - 24.0 (feasible when ≤ 0).
func SellarCon2() *Func {
	return NewFunc("con_comp2",
		[]mdo.Var{mdo.V("y2", 0)},
		[]mdo.Var{mdo.V("con2", 0)},
		func(in mdo.Values) mdo.Values {
			return mdo.Values{"con2": mdo.Scalar(in["y2"].Float() - 24.0)}
		})
}
