// Package mdo provides core primitives for multidisciplinary model evaluation.
//
// The package defines the fundamental types shared by the rest of the module:
//
//   - [Value]: scalar or fixed-length vector variable value
//   - [Var]: variable declaration (name plus default)
//   - [Unit]: interface for disciplinary analysis units (outputs = f(inputs))
//   - [Store]: named-value store owned by a single evaluation
//
// A [Unit] is a pure function of its declared inputs. Units are created once
// at model-assembly time and re-evaluated arbitrarily often; they hold no
// state beyond their declared variables. Schema violations (a missing declared
// input, or a produced output outside the declared set) are reported as
// [SchemaError] values wrapping [ErrSchema].
//
// # Thread Safety
//
// Store instances are NOT thread-safe and must not be shared across
// concurrent evaluations. Parallel callers (see the fd package) clone the
// store so each evaluation owns its copy.
package mdo
