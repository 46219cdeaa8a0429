package upload_errors

import (
	"errors"
)

// Common errors
var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidInput      = errors.New("invalid input")
	ErrResourceBusy      = errors.New("resource already in use")
	ErrJobIDTaken        = errors.New("job id already exists")
	ErrUpstreamFailure   = errors.New("upstream service failure")
	ErrProjectNotFound   = errors.New("container or dataset not found")
)
