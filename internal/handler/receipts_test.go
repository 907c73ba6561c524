package handler

import (
	"errors"
	"testing"
	"time"

	"github.com/checkbill/receipts-api/internal/errs"
	"github.com/checkbill/receipts-api/internal/repository"
	"github.com/checkbill/receipts-api/internal/validation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func validCreateRequest() *CreateReceiptRequest {
	return &CreateReceiptRequest{
		Products: []ProductInput{
			{Name: "Coffee", Price: dec("3.50"), Quantity: 2},
		},
		Payment: PaymentInput{Type: "cash", Amount: decPtr("10.00")},
	}
}

func TestCreateReceiptRequestValidate(t *testing.T) {
	t.Parallel()

	t.Run("valid cash request", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, validCreateRequest().Validate())
	})

	t.Run("valid card request without amount", func(t *testing.T) {
		t.Parallel()
		req := validCreateRequest()
		req.Payment = PaymentInput{Type: "card"}
		require.NoError(t, req.Validate())
	})

	t.Run("empty products rejected", func(t *testing.T) {
		t.Parallel()
		req := validCreateRequest()
		req.Products = nil
		require.Error(t, req.Validate())
	})

	t.Run("zero quantity rejected", func(t *testing.T) {
		t.Parallel()
		req := validCreateRequest()
		req.Products[0].Quantity = 0
		require.Error(t, req.Validate())
	})

	t.Run("unknown payment type rejected", func(t *testing.T) {
		t.Parallel()
		req := validCreateRequest()
		req.Payment.Type = "barter"
		require.Error(t, req.Validate())
	})

	t.Run("cash without amount rejected", func(t *testing.T) {
		t.Parallel()
		req := validCreateRequest()
		req.Payment.Amount = nil

		err := req.Validate()
		require.Error(t, err)

		var custom validation.CustomValidationErrors
		require.True(t, errors.As(err, &custom))
		require.Len(t, custom, 1)
		assert.Equal(t, "payment.amount", custom[0].Field)
	})

	t.Run("non-positive price rejected", func(t *testing.T) {
		t.Parallel()
		req := validCreateRequest()
		req.Products[0].Price = dec("0")

		err := req.Validate()
		require.Error(t, err)

		var custom validation.CustomValidationErrors
		require.True(t, errors.As(err, &custom))
		assert.Equal(t, "products[0].price", custom[0].Field)
	})

	t.Run("non-positive cash amount rejected", func(t *testing.T) {
		t.Parallel()
		req := validCreateRequest()
		req.Payment.Amount = decPtr("-1.00")
		require.Error(t, req.Validate())
	})
}

func TestListReceiptsRequestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     ListReceiptsRequest
		wantErr bool
	}{
		{name: "empty is valid", req: ListReceiptsRequest{}},
		{name: "full filter", req: ListReceiptsRequest{PaymentType: "card", Limit: 50, Offset: 10}},
		{name: "unknown payment type", req: ListReceiptsRequest{PaymentType: "barter"}, wantErr: true},
		{name: "oversized limit accepted for clamping", req: ListReceiptsRequest{Limit: 500}},
		{name: "negative limit rejected", req: ListReceiptsRequest{Limit: -1}, wantErr: true},
		{name: "negative offset", req: ListReceiptsRequest{Offset: -1}, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.req.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestParseFilterTime(t *testing.T) {
	t.Parallel()

	t.Run("empty means unset", func(t *testing.T) {
		t.Parallel()
		got, err := parseFilterTime("", "start_date", false)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("rfc3339", func(t *testing.T) {
		t.Parallel()
		got, err := parseFilterTime("2026-08-24T10:30:00Z", "start_date", false)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, time.Date(2026, 8, 24, 10, 30, 0, 0, time.UTC), got.UTC())
	})

	t.Run("bare start date keeps midnight", func(t *testing.T) {
		t.Parallel()
		got, err := parseFilterTime("2026-08-24", "start_date", false)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 0, got.Hour())
	})

	t.Run("bare end date is pushed to end of day", func(t *testing.T) {
		t.Parallel()
		got, err := parseFilterTime("2026-08-24", "end_date", true)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 23, got.Hour())
		assert.Equal(t, 24, got.Day())
	})

	t.Run("garbage rejected with 400", func(t *testing.T) {
		t.Parallel()
		_, err := parseFilterTime("yesterday", "start_date", false)
		require.Error(t, err)

		var httpErr *errs.HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, 400, httpErr.Status)
	})
}

func TestNewReceiptResponse(t *testing.T) {
	t.Parallel()

	paid := dec("20.00")
	receipt := &repository.Receipt{
		ID:          uuid.New(),
		PaymentType: repository.PaymentTypeCash,
		TotalAmount: dec("17.00"),
		PaidAmount:  &paid,
		CreatedAt:   time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
		Items: []repository.ReceiptItem{
			{ProductName: "Tea", UnitPrice: dec("8.50"), Quantity: 2},
		},
	}

	got := newReceiptResponse(receipt)

	assert.Equal(t, receipt.ID.String(), got.ID)
	assert.Equal(t, "cash", got.Payment.Type)
	assert.True(t, got.Payment.Amount.Equal(dec("20.00")))
	assert.True(t, got.Rest.Equal(dec("3.00")))
	require.Len(t, got.Products, 1)
	assert.True(t, got.Products[0].Total.Equal(dec("17.00")))
}
