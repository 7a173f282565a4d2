package model

import "errors"

// The three failure kinds of the inference core. All are deterministic
// functions of configuration and data; nothing retries them internally.
var (
	// ErrConfiguration marks missing or invalid construction parameters.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrSingularDesign marks a regression problem with no unique solution:
	// fewer independent observations than coefficients and no prior to
	// regularize with.
	ErrSingularDesign = errors.New("singular design matrix")

	// ErrUnsupportedModel marks a nonlinear form with no implemented
	// update rule. It is never silently approximated.
	ErrUnsupportedModel = errors.New("unsupported model form")
)
