// Package models provides disciplinary units for assembly into models: a
// generic closure-backed unit and the Sellar two-discipline benchmark.
package models

import (
	"github.com/san-kum/mdokit/internal/mdo"
)

// Func is a disciplinary unit backed by a plain closure. Guards are per-input
// hooks applied before evaluation, for model-specific handling of
// out-of-domain intermediates (for example reflecting a negative value that
// is about to be raised to a fractional power). The generic solver never
// applies such policies itself.
type Func struct {
	name    string
	inputs  []mdo.Var
	outputs []mdo.Var
	fn      func(in mdo.Values) mdo.Values
	guards  map[string]func(float64) float64
}

// Option configures a Func.
type Option func(*Func)

// WithGuard installs a per-input hook applied to the named input's scalar
// component before the closure runs.
func WithGuard(input string, guard func(float64) float64) Option {
	return func(f *Func) {
		f.guards[input] = guard
	}
}

// NewFunc builds a unit from declared schemas and a closure. The closure must
// be a deterministic, side-effect-free function of its inputs.
func NewFunc(name string, inputs, outputs []mdo.Var, fn func(in mdo.Values) mdo.Values, opts ...Option) *Func {
	f := &Func{
		name:    name,
		inputs:  inputs,
		outputs: outputs,
		fn:      fn,
		guards:  make(map[string]func(float64) float64),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Func) Name() string        { return f.name }
func (f *Func) Inputs() []mdo.Var   { return f.inputs }
func (f *Func) Outputs() []mdo.Var  { return f.outputs }

func (f *Func) Evaluate(in mdo.Values) (mdo.Values, error) {
	if err := mdo.CheckInputs(f, in); err != nil {
		return nil, err
	}
	if len(f.guards) > 0 {
		guarded := in.Clone()
		for name, guard := range f.guards {
			if v, ok := guarded[name]; ok && len(v) > 0 {
				v[0] = guard(v[0])
			}
		}
		in = guarded
	}
	out := f.fn(in)
	if err := mdo.CheckOutputs(f, out); err != nil {
		return nil, err
	}
	return out, nil
}
