package proposal

import "errors"

// Callers classify failures with errors.Is against these sentinels.
var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation error")
	ErrStore      = errors.New("store error")
)
