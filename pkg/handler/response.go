package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrymomot/checkoutkit/pkg/catalog"
	"github.com/dmitrymomot/checkoutkit/pkg/checkout"
	"github.com/dmitrymomot/checkoutkit/pkg/statemachine"
	"github.com/dmitrymomot/checkoutkit/pkg/wizard"
)

// Response renders itself to an http.ResponseWriter.
type Response interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// JSONResponse is the envelope every endpoint answers with.
type JSONResponse struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string              `json:"code,omitempty"`
	Message string              `json:"message,omitempty"`
	Details map[string][]string `json:"details,omitempty"`
}

type jsonResponse struct {
	status int
	body   JSONResponse
}

func (j jsonResponse) Render(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.body)
}

// JSONOption configures JSON response
type JSONOption func(*jsonResponse)

// WithJSONStatus sets custom HTTP status code
func WithJSONStatus(status int) JSONOption {
	return func(r *jsonResponse) {
		r.status = status
	}
}

// WithJSONMeta adds metadata to response
func WithJSONMeta(meta map[string]any) JSONOption {
	return func(r *jsonResponse) {
		r.body.Meta = meta
	}
}

// JSON creates a JSON response with options
func JSON(v any, opts ...JSONOption) Response {
	r := &jsonResponse{status: http.StatusOK}

	switch val := v.(type) {
	case JSONResponse:
		r.body = val
	case error:
		r.body.Error = errorToDetail(val, &r.status)
	default:
		r.body.Data = v
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// JSONError creates a JSON error response from an error with options
func JSONError(err error, opts ...JSONOption) Response {
	r := &jsonResponse{status: http.StatusInternalServerError}
	r.body.Error = errorToDetail(err, &r.status)

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// errorToDetail maps checkout failures to a status and a stable code.
// Server-of-record messages are passed through verbatim.
func errorToDetail(err error, status *int) *ErrorDetail {
	var (
		valErr     *checkout.ValidationError
		apiErr     *checkout.APIError
		httpErr    HTTPError
		estErr     *checkout.EstimateError
		fetchErr   *checkout.FetchError
	)

	set := func(code int, key, msg string) *ErrorDetail {
		*status = code
		return &ErrorDetail{Code: key, Message: msg}
	}

	switch {
	case errors.As(err, &valErr):
		d := set(http.StatusUnprocessableEntity, "validation_error", valErr.Error())
		d.Details = map[string][]string{valErr.Field: {valErr.Message}}
		return d
	case errors.As(err, &httpErr):
		return set(httpErr.Code, httpErr.Key, http.StatusText(httpErr.Code))
	case errors.Is(err, checkout.ErrUnauthenticated):
		return set(http.StatusUnauthorized, "unauthenticated", err.Error())
	case errors.Is(err, checkout.ErrClosed):
		return set(http.StatusGone, "session_closed", err.Error())
	case errors.Is(err, checkout.ErrBusy):
		return set(http.StatusConflict, "busy", err.Error())
	case errors.Is(err, checkout.ErrStaleResult):
		return set(http.StatusConflict, "stale_result", err.Error())
	case errors.Is(err, checkout.ErrEstimatePending):
		return set(http.StatusConflict, "estimate_pending", err.Error())
	case errors.Is(err, checkout.ErrNotAtCheckout),
		errors.Is(err, checkout.ErrNoPendingPrompt),
		errors.Is(err, checkout.ErrProjectRequired),
		errors.Is(err, checkout.ErrCatalogNotLoaded),
		statemachine.IsNoTransitionAvailableError(err),
		statemachine.IsTransitionRejectedError(err):
		return set(http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, checkout.ErrProjectNotFound):
		return set(http.StatusNotFound, "project_not_found", err.Error())
	case errors.Is(err, catalog.ErrPlanNotFound):
		return set(http.StatusNotFound, "plan_not_found", err.Error())
	case errors.Is(err, wizard.ErrUnknownStep),
		errors.Is(err, catalog.ErrUnknownBillingCycle),
		errors.Is(err, ErrInvalidJSON),
		errors.Is(err, ErrMissingContentType),
		errors.Is(err, ErrUnsupportedMediaType):
		return set(http.StatusBadRequest, "bad_request", err.Error())
	case errors.As(err, &estErr):
		return set(http.StatusFailedDependency, "estimate_failed", err.Error())
	case errors.As(err, &apiErr):
		code := apiErr.Status
		if code < http.StatusBadRequest {
			code = http.StatusBadGateway
		}
		return set(code, "api_error", apiErr.Message)
	case errors.As(err, &fetchErr):
		return set(http.StatusBadGateway, "fetch_failed", err.Error())
	}

	if *status < http.StatusBadRequest {
		*status = http.StatusInternalServerError
	}
	return &ErrorDetail{Code: "internal_error", Message: err.Error()}
}
