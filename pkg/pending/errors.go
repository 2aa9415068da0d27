package pending

import "errors"

var (
	ErrMissingKey       = errors.New("pending selection key is required")
	ErrInvalidSelection = errors.New("invalid pending selection")
	ErrStoreFailure     = errors.New("pending selection store failure")
)
