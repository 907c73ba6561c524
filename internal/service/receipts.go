package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/checkbill/receipts-api/internal/errs"
	"github.com/checkbill/receipts-api/internal/lib/job"
	"github.com/checkbill/receipts-api/internal/lib/render"
	"github.com/checkbill/receipts-api/internal/repository"
	"github.com/checkbill/receipts-api/internal/server"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	// Listing page size bounds. Oversized limits are clamped, not rejected.
	DefaultListLimit = 10
	MaxListLimit     = 100
)

// CreateReceiptInput is the service-level shape of a receipt creation
// request, already syntactically validated by the handler.
type CreateReceiptInput struct {
	Products []ReceiptProduct
	Payment  ReceiptPayment
}

// ReceiptProduct is one product line of a creation request.
type ReceiptProduct struct {
	Name     string
	Price    decimal.Decimal
	Quantity int
}

// ReceiptPayment describes how the receipt is paid. Amount is required for
// cash and ignored for card.
type ReceiptPayment struct {
	Type   string
	Amount *decimal.Decimal
}

// ListReceiptsInput carries listing filters from the handler.
type ListReceiptsInput struct {
	StartDate   *time.Time
	EndDate     *time.Time
	MinTotal    *decimal.Decimal
	PaymentType *string
	Limit       int
	Offset      int
}

// ReceiptsStore is the persistence surface the receipts service needs. It
// is satisfied by *repository.ReceiptsRepository.
type ReceiptsStore interface {
	Create(ctx context.Context, receipt *repository.Receipt) (*repository.Receipt, error)
	ListByUser(ctx context.Context, userID uuid.UUID, filter repository.ReceiptsFilter) ([]*repository.Receipt, error)
	GetByID(ctx context.Context, userID, receiptID uuid.UUID) (*repository.Receipt, error)
	GetByIDPublic(ctx context.Context, receiptID uuid.UUID) (*repository.Receipt, string, error)
}

// ReceiptsService implements receipt creation, listing, and the public
// text/QR views.
type ReceiptsService struct {
	server   *server.Server
	receipts ReceiptsStore
}

func NewReceiptsService(s *server.Server, receipts ReceiptsStore) *ReceiptsService {
	return &ReceiptsService{
		server:   s,
		receipts: receipts,
	}
}

// Create computes totals and change, persists the receipt, and enqueues a
// job that warms the public render cache.
//
// Business rules: cash payments must cover the total; card payments are
// always exact and carry no paid amount.
func (r *ReceiptsService) Create(ctx context.Context, user *repository.User, input CreateReceiptInput) (*repository.Receipt, error) {
	paymentType := repository.PaymentType(input.Payment.Type)
	if !paymentType.Valid() {
		return nil, errs.NewBadRequestError("Unknown payment type", true, nil, nil, nil)
	}

	total := decimal.Zero
	items := make([]repository.ReceiptItem, 0, len(input.Products))
	for _, product := range input.Products {
		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(product.Quantity))))
		items = append(items, repository.ReceiptItem{
			ProductName: product.Name,
			UnitPrice:   product.Price,
			Quantity:    product.Quantity,
		})
	}

	var paidAmount *decimal.Decimal
	if paymentType == repository.PaymentTypeCash {
		if input.Payment.Amount == nil {
			return nil, errs.NewBadRequestError("Cash payments require an amount", true, nil, nil, nil)
		}
		if input.Payment.Amount.LessThan(total) {
			return nil, errs.NewBadRequestError("Insufficient cash provided", true, nil, nil, nil)
		}
		paidAmount = input.Payment.Amount
	}

	receipt, err := r.receipts.Create(ctx, &repository.Receipt{
		UserID:      user.ID,
		PaymentType: paymentType,
		TotalAmount: total,
		PaidAmount:  paidAmount,
		Items:       items,
	})
	if err != nil {
		return nil, err
	}

	r.enqueueRenderWarmup(receipt, user.Name)

	return receipt, nil
}

// enqueueRenderWarmup pre-renders the default text view and hands it to the
// background worker together with the public URL for the QR code. A failed
// enqueue is logged, not surfaced: the public view renders on demand anyway.
func (r *ReceiptsService) enqueueRenderWarmup(receipt *repository.Receipt, sellerName string) {
	text := render.Text(buildDocument(receipt, sellerName), render.DefaultWidth)

	task, err := job.NewReceiptRenderTask(receipt.ID.String(), render.DefaultWidth, text, r.publicURL(receipt.ID))
	if err != nil {
		r.server.Logger.Error().Err(err).Msg("Failed to build receipt render task")
		return
	}
	if _, err := r.server.Job.Client.Enqueue(task); err != nil {
		r.server.Logger.Error().Err(err).Str("receipt_id", receipt.ID.String()).Msg("Failed to enqueue receipt render")
	}
}

// List returns the user's receipts, newest first, applying filter defaults.
func (r *ReceiptsService) List(ctx context.Context, userID uuid.UUID, input ListReceiptsInput) ([]*repository.Receipt, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	filter := repository.ReceiptsFilter{
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
		MinTotal:  input.MinTotal,
		Limit:     limit,
		Offset:    offset,
	}
	if input.PaymentType != nil {
		paymentType := repository.PaymentType(*input.PaymentType)
		if !paymentType.Valid() {
			return nil, errs.NewBadRequestError("Unknown payment type", true, nil, nil, nil)
		}
		filter.PaymentType = &paymentType
	}

	return r.receipts.ListByUser(ctx, userID, filter)
}

// Get returns one receipt owned by the user.
func (r *ReceiptsService) Get(ctx context.Context, userID, receiptID uuid.UUID) (*repository.Receipt, error) {
	return r.receipts.GetByID(ctx, userID, receiptID)
}

// RenderText returns the plain-text view of a receipt at the given line
// width, serving from the Redis cache when warm.
func (r *ReceiptsService) RenderText(ctx context.Context, receiptID uuid.UUID, width int) (string, error) {
	width = render.ClampWidth(width)
	key := render.TextCacheKey(receiptID.String(), width)

	if cached, err := r.server.Redis.Get(ctx, key).Result(); err == nil {
		return cached, nil
	} else if !errors.Is(err, redis.Nil) {
		r.server.Logger.Warn().Err(err).Msg("Render cache read failed")
	}

	receipt, sellerName, err := r.receipts.GetByIDPublic(ctx, receiptID)
	if err != nil {
		return "", err
	}

	text := render.Text(buildDocument(receipt, sellerName), width)

	if err := r.server.Redis.Set(ctx, key, text, render.CacheTTL).Err(); err != nil {
		r.server.Logger.Warn().Err(err).Msg("Render cache write failed")
	}

	return text, nil
}

// RenderQR returns a PNG QR code linking to the receipt's public text view.
func (r *ReceiptsService) RenderQR(ctx context.Context, receiptID uuid.UUID) ([]byte, error) {
	key := render.QRCacheKey(receiptID.String())

	if cached, err := r.server.Redis.Get(ctx, key).Bytes(); err == nil {
		return cached, nil
	} else if !errors.Is(err, redis.Nil) {
		r.server.Logger.Warn().Err(err).Msg("Render cache read failed")
	}

	// Existence check so unknown receipts 404 instead of producing a QR
	// code to nowhere.
	if _, _, err := r.receipts.GetByIDPublic(ctx, receiptID); err != nil {
		return nil, err
	}

	png, err := render.QRPNG(r.publicURL(receiptID))
	if err != nil {
		return nil, err
	}

	if err := r.server.Redis.Set(ctx, key, png, render.CacheTTL).Err(); err != nil {
		r.server.Logger.Warn().Err(err).Msg("Render cache write failed")
	}

	return png, nil
}

func (r *ReceiptsService) publicURL(receiptID uuid.UUID) string {
	return fmt.Sprintf("%s/receipts/%s/view?format=txt", r.server.Config.Server.PublicBaseURL, receiptID)
}

// ReceiptAmounts derives the displayed paid amount and change. Card payments
// are exact by definition.
func ReceiptAmounts(receipt *repository.Receipt) (paid, rest decimal.Decimal) {
	if receipt.PaymentType == repository.PaymentTypeCash && receipt.PaidAmount != nil {
		paid = *receipt.PaidAmount
		rest = paid.Sub(receipt.TotalAmount)
		return paid, rest
	}
	return receipt.TotalAmount, decimal.Zero
}

func buildDocument(receipt *repository.Receipt, sellerName string) render.Document {
	paid, rest := ReceiptAmounts(receipt)

	items := make([]render.Item, 0, len(receipt.Items))
	for _, item := range receipt.Items {
		items = append(items, render.Item{
			Name:      item.ProductName,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	return render.Document{
		SellerName:  sellerName,
		Items:       items,
		Total:       receipt.TotalAmount,
		PaymentType: string(receipt.PaymentType),
		Paid:        paid,
		Rest:        rest,
		CreatedAt:   receipt.CreatedAt,
	}
}
