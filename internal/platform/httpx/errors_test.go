package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailStatusAndCode(t *testing.T) {
	cases := []struct {
		kind   FailureKind
		status int
		code   string
	}{
		{FailureUnauthenticated, http.StatusUnauthorized, CodeUnauthorized},
		{FailureForbidden, http.StatusForbidden, CodeForbidden},
		{FailureNotFound, http.StatusNotFound, CodeNotFound},
		{FailureFeatureDisabled, http.StatusNotFound, CodeNotFound},
		{FailureValidation, http.StatusBadRequest, CodeValidationFailed},
		{FailureConflict, http.StatusConflict, CodeConflict},
		{FailureThrottled, http.StatusTooManyRequests, CodeTooManyRequests},
		{FailureUnavailable, http.StatusServiceUnavailable, CodeUnavailable},
		{FailureInternal, http.StatusInternalServerError, CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Fail(rec, tc.kind, nil)

			assert.Equal(t, tc.status, rec.Code)
			var body ErrorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Code)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestFeatureDisabledMatchesNotFoundOnTheWire(t *testing.T) {
	disabled := httptest.NewRecorder()
	Fail(disabled, FailureFeatureDisabled, nil)

	missing := httptest.NewRecorder()
	NotFound(missing)

	assert.Equal(t, missing.Code, disabled.Code)
	assert.Equal(t, missing.Body.String(), disabled.Body.String())
	assert.Equal(t, missing.Header(), disabled.Header())
}

func TestUnavailableSetsRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	Fail(rec, FailureUnavailable, nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("Retry-After"))
}

func TestRetryAfterOnlyOnUnavailable(t *testing.T) {
	for kind := range table {
		if kind == FailureUnavailable {
			continue
		}
		rec := httptest.NewRecorder()
		Fail(rec, kind, nil)
		assert.Empty(t, rec.Header().Get("Retry-After"))
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want FailureKind
	}{
		{ErrUnauthenticated, FailureUnauthenticated},
		{ErrForbidden, FailureForbidden},
		{ErrNotFound, FailureNotFound},
		{ErrConflict, FailureConflict},
		{ErrValidation, FailureValidation},
		{ErrUnavailable, FailureUnavailable},
		{errors.New("disk on fire"), FailureInternal},
		{nil, FailureInternal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.err))
	}

	// Wrapped sentinels still classify.
	wrapped := fmt.Errorf("role lookup: %w", ErrUnavailable)
	assert.Equal(t, FailureUnavailable, Classify(wrapped))
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("pq: connection refused on 10.0.0.3"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.3")
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, CodeInternal, body.Code)
}

func TestFailDetailsRoundTrip(t *testing.T) {
	rec := httptest.NewRecorder()
	Fail(rec, FailureValidation, map[string]string{"username": "required"})

	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"username": "required"}, body.Details)
}

func TestFailWithMessageKeepsStatusAndCode(t *testing.T) {
	rec := httptest.NewRecorder()
	FailWithMessage(rec, FailureUnauthenticated, "Invalid username or password")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, CodeUnauthorized, body.Code)
	assert.Equal(t, "Invalid username or password", body.Message)
}
