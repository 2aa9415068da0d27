package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated  = errors.New("authentication required")
	ErrBusy             = errors.New("a submission is already in flight")
	ErrEstimatePending  = errors.New("upgrade estimate has not resolved yet")
	ErrNotAtCheckout    = errors.New("wizard is not on the checkout step")
	ErrNoPendingPrompt  = errors.New("no prompt is waiting for an answer")
	ErrStaleResult      = errors.New("result arrived after the wizard moved on")
	ErrClosed           = errors.New("checkout session is closed")
	ErrProjectNotFound  = errors.New("project not found")
	ErrProjectRequired  = errors.New("a project must be selected first")
	ErrCatalogNotLoaded = errors.New("plan catalog is not loaded")
)

// FetchError is a failed read (catalog, current subscription, projects).
// Recoverable by retrying.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// EstimateError is a failed upgrade-cost estimate. It blocks commit.
type EstimateError struct {
	Err error
}

func (e *EstimateError) Error() string {
	return fmt.Sprintf("estimate upgrade cost: %v", e.Err)
}

func (e *EstimateError) Unwrap() error { return e.Err }

// APIError is a failed submission. Message is the server's text, shown verbatim.
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// ValidationError is a client-side failure that never reaches the network.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func IsFetchError(err error) bool {
	var e *FetchError
	return errors.As(err, &e)
}

func IsEstimateError(err error) bool {
	var e *EstimateError
	return errors.As(err, &e)
}

func IsAPIError(err error) bool {
	var e *APIError
	return errors.As(err, &e)
}

func IsValidationError(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// asAPIError translates a transport failure into the submission error kind.
// Unauthenticated failures pass through unchanged.
func asAPIError(err error) error {
	if err == nil || errors.Is(err, ErrUnauthenticated) {
		return err
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &APIError{Message: err.Error(), Err: err}
}
