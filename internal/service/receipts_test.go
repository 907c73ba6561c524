package service

import (
	"context"
	"errors"
	"testing"

	"github.com/checkbill/receipts-api/internal/config"
	"github.com/checkbill/receipts-api/internal/errs"
	"github.com/checkbill/receipts-api/internal/repository"
	"github.com/checkbill/receipts-api/internal/server"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubReceipts records the filter it was queried with.
type stubReceipts struct {
	lastFilter repository.ReceiptsFilter
}

func (s *stubReceipts) Create(ctx context.Context, receipt *repository.Receipt) (*repository.Receipt, error) {
	return receipt, nil
}

func (s *stubReceipts) ListByUser(ctx context.Context, userID uuid.UUID, filter repository.ReceiptsFilter) ([]*repository.Receipt, error) {
	s.lastFilter = filter
	return nil, nil
}

func (s *stubReceipts) GetByID(ctx context.Context, userID, receiptID uuid.UUID) (*repository.Receipt, error) {
	return nil, nil
}

func (s *stubReceipts) GetByIDPublic(ctx context.Context, receiptID uuid.UUID) (*repository.Receipt, string, error) {
	return nil, "", nil
}

func newTestReceiptsService(receipts ReceiptsStore) *ReceiptsService {
	logger := zerolog.Nop()
	return NewReceiptsService(&server.Server{
		Config: &config.Config{},
		Logger: &logger,
	}, receipts)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestReceiptAmounts(t *testing.T) {
	t.Parallel()

	paid := dec("1000.00")

	tests := []struct {
		name     string
		receipt  *repository.Receipt
		wantPaid string
		wantRest string
	}{
		{
			name: "cash with change",
			receipt: &repository.Receipt{
				PaymentType: repository.PaymentTypeCash,
				TotalAmount: dec("896.61"),
				PaidAmount:  &paid,
			},
			wantPaid: "1000",
			wantRest: "103.39",
		},
		{
			name: "cash exact",
			receipt: &repository.Receipt{
				PaymentType: repository.PaymentTypeCash,
				TotalAmount: dec("1000.00"),
				PaidAmount:  &paid,
			},
			wantPaid: "1000",
			wantRest: "0",
		},
		{
			name: "card is always exact",
			receipt: &repository.Receipt{
				PaymentType: repository.PaymentTypeCard,
				TotalAmount: dec("250.50"),
			},
			wantPaid: "250.5",
			wantRest: "0",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gotPaid, gotRest := ReceiptAmounts(tt.receipt)
			assert.True(t, gotPaid.Equal(dec(tt.wantPaid)), "paid = %s", gotPaid)
			assert.True(t, gotRest.Equal(dec(tt.wantRest)), "rest = %s", gotRest)
		})
	}
}

func TestCreateRejectsInsufficientCash(t *testing.T) {
	t.Parallel()

	svc := newTestReceiptsService(nil)
	amount := dec("5.00")

	_, err := svc.Create(context.Background(), &repository.User{ID: uuid.New()}, CreateReceiptInput{
		Products: []ReceiptProduct{
			{Name: "Coffee", Price: dec("3.50"), Quantity: 2},
		},
		Payment: ReceiptPayment{Type: "cash", Amount: &amount},
	})
	require.Error(t, err)

	var httpErr *errs.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, 400, httpErr.Status)
	assert.Equal(t, "Insufficient cash provided", httpErr.Message)
}

func TestCreateRejectsCashWithoutAmount(t *testing.T) {
	t.Parallel()

	svc := newTestReceiptsService(nil)

	_, err := svc.Create(context.Background(), &repository.User{ID: uuid.New()}, CreateReceiptInput{
		Products: []ReceiptProduct{
			{Name: "Coffee", Price: dec("3.50"), Quantity: 1},
		},
		Payment: ReceiptPayment{Type: "cash"},
	})
	require.Error(t, err)

	var httpErr *errs.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, 400, httpErr.Status)
}

func TestCreateRejectsUnknownPaymentType(t *testing.T) {
	t.Parallel()

	svc := newTestReceiptsService(nil)

	_, err := svc.Create(context.Background(), &repository.User{ID: uuid.New()}, CreateReceiptInput{
		Products: []ReceiptProduct{
			{Name: "Coffee", Price: dec("3.50"), Quantity: 1},
		},
		Payment: ReceiptPayment{Type: "barter"},
	})
	require.Error(t, err)

	var httpErr *errs.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, 400, httpErr.Status)
}

func TestListRejectsUnknownPaymentType(t *testing.T) {
	t.Parallel()

	svc := newTestReceiptsService(nil)
	paymentType := "barter"

	_, err := svc.List(context.Background(), uuid.New(), ListReceiptsInput{PaymentType: &paymentType})
	require.Error(t, err)

	var httpErr *errs.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, 400, httpErr.Status)
}

func TestListClampsPageBounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		input      ListReceiptsInput
		wantLimit  int
		wantOffset int
	}{
		{name: "defaults", input: ListReceiptsInput{}, wantLimit: DefaultListLimit},
		{name: "oversized limit clamped", input: ListReceiptsInput{Limit: 500}, wantLimit: MaxListLimit},
		{name: "limit in range kept", input: ListReceiptsInput{Limit: 25, Offset: 5}, wantLimit: 25, wantOffset: 5},
		{name: "negative offset reset", input: ListReceiptsInput{Offset: -3}, wantLimit: DefaultListLimit},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := &stubReceipts{}
			svc := newTestReceiptsService(store)

			_, err := svc.List(context.Background(), uuid.New(), tt.input)
			require.NoError(t, err)

			assert.Equal(t, tt.wantLimit, store.lastFilter.Limit)
			assert.Equal(t, tt.wantOffset, store.lastFilter.Offset)
		})
	}
}

func TestBuildDocument(t *testing.T) {
	t.Parallel()

	paid := dec("20.00")
	receipt := &repository.Receipt{
		ID:          uuid.New(),
		PaymentType: repository.PaymentTypeCash,
		TotalAmount: dec("17.00"),
		PaidAmount:  &paid,
		Items: []repository.ReceiptItem{
			{ProductName: "Tea", UnitPrice: dec("8.50"), Quantity: 2},
		},
	}

	doc := buildDocument(receipt, "Corner Shop")

	assert.Equal(t, "Corner Shop", doc.SellerName)
	require.Len(t, doc.Items, 1)
	assert.Equal(t, "Tea", doc.Items[0].Name)
	assert.Equal(t, 2, doc.Items[0].Quantity)
	assert.True(t, doc.Rest.Equal(dec("3.00")))
	assert.Equal(t, "cash", doc.PaymentType)
}
