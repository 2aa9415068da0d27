package billingapi

import "errors"

var (
	ErrMissingBaseURL     = errors.New("billing API base URL is required")
	ErrInvalidBaseURL     = errors.New("billing API base URL is invalid")
	ErrRefreshFailed      = errors.New("session refresh failed")
	ErrUnexpectedResponse = errors.New("unexpected billing API response")

	ErrMissingAPIKey              = errors.New("paddle API key is required")
	ErrInvalidProviderEnvironment = errors.New("invalid paddle environment")
	ErrMissingPriceID             = errors.New("plan has no provider price ID for this billing cycle")
	ErrNoCheckoutURL              = errors.New("no checkout URL returned from paddle")
)

// errNotFound marks a 404 so reads can turn it into "absent".
var errNotFound = errors.New("not found")
