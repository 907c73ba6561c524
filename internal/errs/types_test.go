package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeUpperCaseWithUnderscores(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "BAD_REQUEST", MakeUpperCaseWithUnderscores("Bad Request"))
	assert.Equal(t, "TOO_MANY_REQUESTS", MakeUpperCaseWithUnderscores("Too Many Requests"))
	assert.Equal(t, "OK", MakeUpperCaseWithUnderscores("OK"))
}

func TestHTTPErrorIsMatchesAnyHTTPError(t *testing.T) {
	t.Parallel()

	err := NewNotFoundError("Receipt not found", true, nil)
	wrapped := fmt.Errorf("looking up receipt: %w", err)

	assert.True(t, errors.Is(wrapped, &HTTPError{}))

	var httpErr *HTTPError
	require.True(t, errors.As(wrapped, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.Status)
}

func TestWithMessageCopies(t *testing.T) {
	t.Parallel()

	original := NewUnauthorizedError("Unauthorized", false)
	changed := original.WithMessage("Invalid refresh token")

	assert.Equal(t, "Unauthorized", original.Message)
	assert.Equal(t, "Invalid refresh token", changed.Message)
	assert.Equal(t, original.Status, changed.Status)
	assert.Equal(t, original.Code, changed.Code)
}

func TestConstructorStatusCodes(t *testing.T) {
	t.Parallel()

	code := "CUSTOM_CODE"

	tests := []struct {
		name       string
		err        *HTTPError
		wantStatus int
		wantCode   string
	}{
		{name: "unauthorized", err: NewUnauthorizedError("no", false), wantStatus: 401, wantCode: "UNAUTHORIZED"},
		{name: "forbidden", err: NewForbiddenError("no", false), wantStatus: 403, wantCode: "FORBIDDEN"},
		{name: "bad request", err: NewBadRequestError("no", false, nil, nil, nil), wantStatus: 400, wantCode: "BAD_REQUEST"},
		{name: "bad request custom code", err: NewBadRequestError("no", false, &code, nil, nil), wantStatus: 400, wantCode: "CUSTOM_CODE"},
		{name: "not found", err: NewNotFoundError("no", false, nil), wantStatus: 404, wantCode: "NOT_FOUND"},
		{name: "conflict", err: NewConflictError("no", false, nil), wantStatus: 409, wantCode: "CONFLICT"},
		{name: "too many requests", err: NewTooManyRequestsError("no"), wantStatus: 429, wantCode: "TOO_MANY_REQUESTS"},
		{name: "internal", err: NewInternalServerError(), wantStatus: 500, wantCode: "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantStatus, tt.err.Status)
			assert.Equal(t, tt.wantCode, tt.err.Code)
		})
	}
}
