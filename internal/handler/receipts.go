package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/checkbill/receipts-api/internal/errs"
	"github.com/checkbill/receipts-api/internal/middleware"
	"github.com/checkbill/receipts-api/internal/repository"
	"github.com/checkbill/receipts-api/internal/server"
	"github.com/checkbill/receipts-api/internal/service"
	"github.com/checkbill/receipts-api/internal/validation"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// ReceiptsHandler exposes receipt creation, listing, retrieval, and the
// public text/QR views.
type ReceiptsHandler struct {
	Handler
	receipts *service.ReceiptsService
}

func NewReceiptsHandler(s *server.Server, receipts *service.ReceiptsService) *ReceiptsHandler {
	return &ReceiptsHandler{
		Handler:  NewHandler(s),
		receipts: receipts,
	}
}

// ProductInput is one product line of a creation request.
type ProductInput struct {
	Name     string          `json:"name" validate:"required,min=1,max=250"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity" validate:"required,gt=0"`
}

// PaymentInput describes the payment. Amount is required for cash.
type PaymentInput struct {
	Type   string           `json:"type" validate:"required,oneof=cash card"`
	Amount *decimal.Decimal `json:"amount"`
}

// CreateReceiptRequest is the body of POST /receipts.
type CreateReceiptRequest struct {
	Products []ProductInput `json:"products" validate:"required,min=1,dive"`
	Payment  PaymentInput   `json:"payment"`
}

// Validate combines tag validation with the cross-field rules the tags
// cannot express: positive prices and the cash/amount pairing.
func (r *CreateReceiptRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}

	var custom validation.CustomValidationErrors
	for i, product := range r.Products {
		if !product.Price.IsPositive() {
			custom = append(custom, validation.CustomValidationError{
				Field:   fmt.Sprintf("products[%d].price", i),
				Message: "must be greater than 0",
			})
		}
	}
	if r.Payment.Type == string(repository.PaymentTypeCash) {
		if r.Payment.Amount == nil {
			custom = append(custom, validation.CustomValidationError{
				Field:   "payment.amount",
				Message: "is required for cash payments",
			})
		} else if !r.Payment.Amount.IsPositive() {
			custom = append(custom, validation.CustomValidationError{
				Field:   "payment.amount",
				Message: "must be greater than 0",
			})
		}
	}
	if len(custom) > 0 {
		return custom
	}

	return nil
}

// ReceiptProductResponse is one product line of a receipt response, with
// the computed line total.
type ReceiptProductResponse struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Total    decimal.Decimal `json:"total"`
}

// ReceiptPaymentResponse reports how the receipt was paid. Amount equals
// the total for card payments.
type ReceiptPaymentResponse struct {
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
}

// ReceiptResponse is the public shape of a receipt.
type ReceiptResponse struct {
	ID        string                   `json:"id"`
	Products  []ReceiptProductResponse `json:"products"`
	Payment   ReceiptPaymentResponse   `json:"payment"`
	Total     decimal.Decimal          `json:"total"`
	Rest      decimal.Decimal          `json:"rest"`
	CreatedAt time.Time                `json:"created_at"`
}

func newReceiptResponse(receipt *repository.Receipt) *ReceiptResponse {
	paid, rest := service.ReceiptAmounts(receipt)

	products := make([]ReceiptProductResponse, 0, len(receipt.Items))
	for _, item := range receipt.Items {
		products = append(products, ReceiptProductResponse{
			Name:     item.ProductName,
			Price:    item.UnitPrice,
			Quantity: item.Quantity,
			Total:    item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}

	return &ReceiptResponse{
		ID:        receipt.ID.String(),
		Products:  products,
		Payment: ReceiptPaymentResponse{
			Type:   string(receipt.PaymentType),
			Amount: paid,
		},
		Total:     receipt.TotalAmount,
		Rest:      rest,
		CreatedAt: receipt.CreatedAt,
	}
}

// Create handles POST /receipts.
func (h *ReceiptsHandler) Create(c echo.Context, req *CreateReceiptRequest) (*ReceiptResponse, error) {
	user := middleware.GetUser(c)
	if user == nil {
		return nil, errs.NewUnauthorizedError("Unauthorized", false)
	}

	products := make([]service.ReceiptProduct, 0, len(req.Products))
	for _, product := range req.Products {
		products = append(products, service.ReceiptProduct{
			Name:     product.Name,
			Price:    product.Price,
			Quantity: product.Quantity,
		})
	}

	receipt, err := h.receipts.Create(c.Request().Context(), user, service.CreateReceiptInput{
		Products: products,
		Payment: service.ReceiptPayment{
			Type:   req.Payment.Type,
			Amount: req.Payment.Amount,
		},
	})
	if err != nil {
		return nil, err
	}

	return newReceiptResponse(receipt), nil
}

// ListReceiptsRequest carries the listing filters as query parameters.
// Dates and amounts arrive as strings and are parsed in the handler so bad
// values produce targeted 400s. Oversized limits are clamped by the service,
// like view widths, rather than rejected.
type ListReceiptsRequest struct {
	StartDate   string `query:"start_date"`
	EndDate     string `query:"end_date"`
	MinTotal    string `query:"min_total"`
	PaymentType string `query:"payment_type" validate:"omitempty,oneof=cash card"`
	Limit       int    `query:"limit" validate:"omitempty,gte=1"`
	Offset      int    `query:"offset" validate:"omitempty,gte=0"`
}

func (r *ListReceiptsRequest) Validate() error {
	return validate.Struct(r)
}

// List handles GET /receipts.
func (h *ReceiptsHandler) List(c echo.Context, req *ListReceiptsRequest) ([]*ReceiptResponse, error) {
	user := middleware.GetUser(c)
	if user == nil {
		return nil, errs.NewUnauthorizedError("Unauthorized", false)
	}

	input := service.ListReceiptsInput{
		Limit:  req.Limit,
		Offset: req.Offset,
	}

	var err error
	if input.StartDate, err = parseFilterTime(req.StartDate, "start_date", false); err != nil {
		return nil, err
	}
	if input.EndDate, err = parseFilterTime(req.EndDate, "end_date", true); err != nil {
		return nil, err
	}
	if req.MinTotal != "" {
		minTotal, err := decimal.NewFromString(req.MinTotal)
		if err != nil {
			return nil, errs.NewBadRequestError("min_total must be a decimal number", true, nil, nil, nil)
		}
		input.MinTotal = &minTotal
	}
	if req.PaymentType != "" {
		input.PaymentType = &req.PaymentType
	}

	receipts, err := h.receipts.List(c.Request().Context(), user.ID, input)
	if err != nil {
		return nil, err
	}

	responses := make([]*ReceiptResponse, 0, len(receipts))
	for _, receipt := range receipts {
		responses = append(responses, newReceiptResponse(receipt))
	}
	return responses, nil
}

// parseFilterTime accepts RFC3339 timestamps or bare dates. A bare end date
// is pushed to the end of that day so the range stays inclusive.
func parseFilterTime(value, field string, endOfDay bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}

	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, errs.NewBadRequestError(field+" must be an RFC3339 timestamp or YYYY-MM-DD date", true, nil, nil, nil)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// GetReceiptRequest identifies one receipt by path parameter.
type GetReceiptRequest struct {
	ID string `param:"id" validate:"required,uuid"`
}

func (r *GetReceiptRequest) Validate() error {
	return validate.Struct(r)
}

// Get handles GET /receipts/:id.
func (h *ReceiptsHandler) Get(c echo.Context, req *GetReceiptRequest) (*ReceiptResponse, error) {
	user := middleware.GetUser(c)
	if user == nil {
		return nil, errs.NewUnauthorizedError("Unauthorized", false)
	}

	receipt, err := h.receipts.Get(c.Request().Context(), user.ID, uuid.MustParse(req.ID))
	if err != nil {
		return nil, err
	}

	return newReceiptResponse(receipt), nil
}

// ViewReceiptRequest selects the public rendering of a receipt. Width
// outside the render bounds is clamped, not rejected.
type ViewReceiptRequest struct {
	ID     string `param:"id" validate:"required,uuid"`
	Format string `query:"format" validate:"omitempty,oneof=txt qr"`
	Width  int    `query:"width" validate:"omitempty,gte=0"`
}

func (r *ViewReceiptRequest) Validate() error {
	return validate.Struct(r)
}

// View handles GET /receipts/:id/view. The format parameter picks between
// the plain-text body and the PNG QR code; both go through the shared
// pipeline.
func (h *ReceiptsHandler) View() echo.HandlerFunc {
	textHandler := HandleText(h.Handler, h.viewText, http.StatusOK,
		func() *ViewReceiptRequest { return &ViewReceiptRequest{} })
	qrHandler := HandleBlob(h.Handler, h.viewQR, http.StatusOK,
		func() *ViewReceiptRequest { return &ViewReceiptRequest{} }, "image/png")

	return func(c echo.Context) error {
		if c.QueryParam("format") == "qr" {
			return qrHandler(c)
		}
		return textHandler(c)
	}
}

func (h *ReceiptsHandler) viewText(c echo.Context, req *ViewReceiptRequest) (string, error) {
	return h.receipts.RenderText(c.Request().Context(), uuid.MustParse(req.ID), req.Width)
}

func (h *ReceiptsHandler) viewQR(c echo.Context, req *ViewReceiptRequest) ([]byte, error) {
	return h.receipts.RenderQR(c.Request().Context(), uuid.MustParse(req.ID))
}
