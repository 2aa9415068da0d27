package catalog

import "errors"

var (
	ErrFetchFailed              = errors.New("failed to fetch subscription plans")
	ErrEmptyCatalog             = errors.New("subscription plan catalog is empty")
	ErrInvalidPlanConfiguration = errors.New("invalid subscription plan configuration")
	ErrPlanNotFound             = errors.New("subscription plan not found")
	ErrUnknownBillingCycle      = errors.New("unknown billing cycle")
	ErrFailedToParseYAML        = errors.New("failed to parse plans YAML")
)
