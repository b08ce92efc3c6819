package mdo

import (
	"errors"
	"fmt"
)

// Domain errors for model assembly and evaluation.
var (
	// ErrSchema indicates a unit was invoked with the wrong variable set.
	ErrSchema = errors.New("mdo: schema violation")

	// ErrBinding indicates an input variable with an ambiguous or missing source.
	ErrBinding = errors.New("mdo: unresolved binding")

	// ErrConfiguration indicates an illegal model structure, such as a
	// dependency cycle crossing a coupling-group boundary.
	ErrConfiguration = errors.New("mdo: illegal model configuration")

	// ErrNoConvergence indicates a coupling group exhausted its iteration cap.
	ErrNoConvergence = errors.New("mdo: fixed-point iteration did not converge")
)

// SchemaError reports a unit invoked outside its declared variable schema.
type SchemaError struct {
	Unit     string
	Variable string
	Reason   string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("unit %q, variable %q: %s", e.Unit, e.Variable, e.Reason)
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// BindingError reports an input with zero sources and no default, or more
// than one distinct source.
type BindingError struct {
	Input   string
	Sources []string
}

func (e *BindingError) Error() string {
	if len(e.Sources) == 0 {
		return fmt.Sprintf("input %q has no source and no default", e.Input)
	}
	return fmt.Sprintf("input %q has %d sources: %v", e.Input, len(e.Sources), e.Sources)
}

func (e *BindingError) Unwrap() error { return ErrBinding }

// ConfigurationError reports a malformed model definition detected at
// assembly time. Assembly errors are never retried.
type ConfigurationError struct {
	Detail string
}

func (e *ConfigurationError) Error() string { return e.Detail }

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// ConvergenceError reports a coupling group that reached its iteration cap
// before the residual fell under tolerance. Callers may retry with a relaxed
// tolerance or a different initial guess, or treat the point as infeasible.
type ConvergenceError struct {
	Group      string
	Iterations int
	Residual   float64
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("group %q: residual %.3e after %d iterations", e.Group, e.Residual, e.Iterations)
}

func (e *ConvergenceError) Unwrap() error { return ErrNoConvergence }
