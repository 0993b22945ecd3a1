// Package httpx owns the wire error contract: every failure leaving the
// service is translated here into a stable (HTTP status, error code) pair.
package httpx

import (
	"errors"
	"net/http"
)

// FailureKind enumerates every failure class the service can emit. The
// mapping to status and code is fixed; new kinds may be added but existing
// rows never change.
type FailureKind int

const (
	// FailureUnauthenticated covers missing or invalid credentials.
	FailureUnauthenticated FailureKind = iota
	// FailureForbidden covers a valid credential lacking permission.
	FailureForbidden
	// FailureNotFound covers absent resources.
	FailureNotFound
	// FailureFeatureDisabled covers requests to a gated, switched-off API
	// family. On the wire it is indistinguishable from FailureNotFound.
	FailureFeatureDisabled
	// FailureValidation covers structurally invalid input.
	FailureValidation
	// FailureConflict covers uniqueness violations.
	FailureConflict
	// FailureThrottled covers rate-limited requests.
	FailureThrottled
	// FailureUnavailable covers upstream or storage outages.
	FailureUnavailable
	// FailureInternal covers everything unclassified.
	FailureInternal
)

// Error codes published in response bodies. Stable once shipped.
const (
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeNotFound         = "RESOURCE_NOT_FOUND"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeConflict         = "CONFLICT"
	CodeTooManyRequests  = "TOO_MANY_REQUESTS"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
	CodeInternal         = "INTERNAL_ERROR"
)

// Sentinel errors shared across services. Handlers translate them with
// RespondError rather than switching on status codes themselves.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("permission denied")
	ErrNotFound        = errors.New("resource not found")
	ErrConflict        = errors.New("resource conflict")
	ErrValidation      = errors.New("validation failed")
	ErrUnavailable     = errors.New("service unavailable")
)

type failureRow struct {
	status  int
	code    string
	message string
}

// table is the single source of truth for the wire contract. Messages are
// generic on purpose: no internals, no hints about which check failed.
var table = map[FailureKind]failureRow{
	FailureUnauthenticated: {http.StatusUnauthorized, CodeUnauthorized, "Authentication required"},
	FailureForbidden:       {http.StatusForbidden, CodeForbidden, "Permission denied"},
	FailureNotFound:        {http.StatusNotFound, CodeNotFound, "Resource not found"},
	FailureFeatureDisabled: {http.StatusNotFound, CodeNotFound, "Resource not found"},
	FailureValidation:      {http.StatusBadRequest, CodeValidationFailed, "Validation failed"},
	FailureConflict:        {http.StatusConflict, CodeConflict, "Resource conflict"},
	FailureThrottled:       {http.StatusTooManyRequests, CodeTooManyRequests, "Too many requests"},
	FailureUnavailable:     {http.StatusServiceUnavailable, CodeUnavailable, "Service temporarily unavailable"},
	FailureInternal:        {http.StatusInternalServerError, CodeInternal, "Internal error"},
}

// Classify maps an error to its FailureKind. Unknown errors are internal
// faults; their text never reaches the client.
func Classify(err error) FailureKind {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return FailureUnauthenticated
	case errors.Is(err, ErrForbidden):
		return FailureForbidden
	case errors.Is(err, ErrNotFound):
		return FailureNotFound
	case errors.Is(err, ErrConflict):
		return FailureConflict
	case errors.Is(err, ErrValidation):
		return FailureValidation
	case errors.Is(err, ErrUnavailable):
		return FailureUnavailable
	default:
		return FailureInternal
	}
}

// RespondError writes the wire representation of err.
func RespondError(w http.ResponseWriter, err error) {
	Fail(w, Classify(err), nil)
}

// Fail writes the canonical body for the given failure kind. The details
// map is optional and must already be safe for external eyes; it never
// carries a retryable flag, stack traces, or internal identifiers.
func Fail(w http.ResponseWriter, kind FailureKind, details map[string]string) {
	row, ok := table[kind]
	if !ok {
		row = table[FailureInternal]
	}
	if kind == FailureUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	JSON(w, row.status, ErrorBody{Code: row.code, Message: row.message, Details: details})
}

// FailWithMessage overrides the canonical message for kinds whose contract
// fixes the text elsewhere (e.g. login failures). Status and code still come
// from the table.
func FailWithMessage(w http.ResponseWriter, kind FailureKind, message string) {
	row, ok := table[kind]
	if !ok {
		row = table[FailureInternal]
	}
	JSON(w, row.status, ErrorBody{Code: row.code, Message: message})
}

// NotFound writes the canonical 404 body. The feature gate reuses this so a
// disabled family and an unmapped route are byte-identical.
func NotFound(w http.ResponseWriter) {
	Fail(w, FailureNotFound, nil)
}
