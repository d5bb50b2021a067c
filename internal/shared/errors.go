package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Task and pipeline errors. Every error returned by the engine wraps one of these,
	// or is an unexpected failure from a filesystem or persistence collaborator.
	ErrAuthorization = fmt.Errorf("not authorized")
	ErrNotFound      = fmt.Errorf("not found")
	ErrValidation    = fmt.Errorf("validation failed")
	ErrConflict      = fmt.Errorf("conflict")
	ErrParse         = fmt.Errorf("parse error")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
