package sqlerr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/checkbill/receipts-api/internal/errs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleErrorPassesThroughHTTPError(t *testing.T) {
	t.Parallel()

	original := errs.NewUnauthorizedError("Invalid login or password", true)

	got := HandleError(original)
	assert.Same(t, error(original), got)
}

func TestHandleErrorUniqueViolation(t *testing.T) {
	t.Parallel()

	pgErr := &pgconn.PgError{
		Code:           "23505",
		Severity:       "ERROR",
		Message:        `duplicate key value violates unique constraint "users_login_key"`,
		TableName:      "users",
		ConstraintName: "users_login_key",
	}

	got := HandleError(pgErr)

	var httpErr *errs.HTTPError
	require.True(t, errors.As(got, &httpErr))

	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	assert.Equal(t, "USER_ALREADY_EXISTS", httpErr.Code)
	assert.Equal(t, "A User with this Login already exists", httpErr.Message)
	assert.True(t, httpErr.Override)
}

func TestHandleErrorForeignKeyViolation(t *testing.T) {
	t.Parallel()

	pgErr := &pgconn.PgError{
		Code:           "23503",
		Severity:       "ERROR",
		TableName:      "receipts",
		ColumnName:     "user_id",
		ConstraintName: "receipts_user_id_fkey",
	}

	got := HandleError(pgErr)

	var httpErr *errs.HTTPError
	require.True(t, errors.As(got, &httpErr))

	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	assert.Equal(t, "RECEIPT_NOT_FOUND", httpErr.Code)
	assert.Equal(t, "The referenced User does not exist", httpErr.Message)
}

func TestHandleErrorNotNullViolation(t *testing.T) {
	t.Parallel()

	pgErr := &pgconn.PgError{
		Code:       "23502",
		Severity:   "ERROR",
		TableName:  "receipt_items",
		ColumnName: "product_name",
	}

	got := HandleError(pgErr)

	var httpErr *errs.HTTPError
	require.True(t, errors.As(got, &httpErr))

	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	assert.Equal(t, "RECEIPT_ITEM_REQUIRED", httpErr.Code)
	require.Len(t, httpErr.Errors, 1)
	assert.Equal(t, "product_name", httpErr.Errors[0].Field)
}

func TestHandleErrorNoRowsWithTableAnnotation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		message string
	}{
		{
			name:    "users",
			err:     fmt.Errorf("table:users: %w", pgx.ErrNoRows),
			message: "User not found",
		},
		{
			name:    "receipts",
			err:     fmt.Errorf("table:receipts: %w", pgx.ErrNoRows),
			message: "Receipt not found",
		},
		{
			name:    "bare",
			err:     pgx.ErrNoRows,
			message: "Resource not found",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := HandleError(tt.err)

			var httpErr *errs.HTTPError
			require.True(t, errors.As(got, &httpErr))
			assert.Equal(t, http.StatusNotFound, httpErr.Status)
			assert.Equal(t, tt.message, httpErr.Message)
		})
	}
}

func TestHandleErrorUnknownFallsBackTo500(t *testing.T) {
	t.Parallel()

	got := HandleError(errors.New("connection reset by peer"))

	var httpErr *errs.HTTPError
	require.True(t, errors.As(got, &httpErr))
	assert.Equal(t, http.StatusInternalServerError, httpErr.Status)
}

func TestExtractColumnForUniqueViolation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		constraint string
		want       string
	}{
		{constraint: "users_login_key", want: "login"},
		{constraint: "unique_users_login", want: "login"},
		{constraint: "receipts_pkey", want: ""},
		{constraint: "", want: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.constraint, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, extractColumnForUniqueViolation(tt.constraint))
		})
	}
}
