package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ReceiptsRepository performs database operations on receipts and their
// items.
type ReceiptsRepository struct {
	pool *pgxpool.Pool
}

// NewReceiptsRepository constructs a ReceiptsRepository on the shared pool.
func NewReceiptsRepository(pool *pgxpool.Pool) *ReceiptsRepository {
	return &ReceiptsRepository{pool: pool}
}

// ReceiptsFilter narrows a receipt listing. Nil fields are ignored.
// StartDate/EndDate are inclusive.
type ReceiptsFilter struct {
	StartDate   *time.Time
	EndDate     *time.Time
	MinTotal    *decimal.Decimal
	PaymentType *PaymentType
	Limit       int
	Offset      int
}

// Create persists a receipt together with its items in one transaction and
// returns it with generated IDs and the creation timestamp.
func (r *ReceiptsRepository) Create(ctx context.Context, receipt *Receipt) (*Receipt, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var paidAmount *string
	if receipt.PaidAmount != nil {
		s := receipt.PaidAmount.StringFixed(2)
		paidAmount = &s
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO receipts (user_id, payment_type, total_amount, paid_amount)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		receipt.UserID, receipt.PaymentType, receipt.TotalAmount.StringFixed(2), paidAmount,
	).Scan(&receipt.ID, &receipt.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting receipt: %w", err)
	}

	batch := &pgx.Batch{}
	for i := range receipt.Items {
		item := &receipt.Items[i]
		item.ReceiptID = receipt.ID
		batch.Queue(`
			INSERT INTO receipt_items (receipt_id, position, product_name, unit_price, quantity)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			item.ReceiptID, i, item.ProductName, item.UnitPrice.StringFixed(2), item.Quantity,
		).QueryRow(func(row pgx.Row) error {
			return row.Scan(&item.ID)
		})
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return nil, fmt.Errorf("inserting receipt items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing receipt: %w", err)
	}

	return receipt, nil
}

// ListByUser returns the user's receipts matching the filter, newest first,
// with items attached.
func (r *ReceiptsRepository) ListByUser(ctx context.Context, userID uuid.UUID, filter ReceiptsFilter) ([]*Receipt, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, user_id, payment_type, total_amount::text, paid_amount::text, created_at
		FROM receipts
		WHERE user_id = $1`)

	args := []any{userID}

	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		fmt.Fprintf(&sb, " AND created_at >= $%d", len(args))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		fmt.Fprintf(&sb, " AND created_at <= $%d", len(args))
	}
	if filter.MinTotal != nil {
		args = append(args, filter.MinTotal.StringFixed(2))
		fmt.Fprintf(&sb, " AND total_amount >= $%d", len(args))
	}
	if filter.PaymentType != nil {
		args = append(args, *filter.PaymentType)
		fmt.Fprintf(&sb, " AND payment_type = $%d", len(args))
	}

	args = append(args, filter.Limit)
	fmt.Fprintf(&sb, " ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, filter.Offset)
	fmt.Fprintf(&sb, " OFFSET $%d", len(args))

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying receipts: %w", err)
	}
	defer rows.Close()

	var receipts []*Receipt
	for rows.Next() {
		receipt, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, receipt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating receipts: %w", err)
	}

	if err := r.loadItems(ctx, receipts); err != nil {
		return nil, err
	}

	return receipts, nil
}

// GetByID returns one receipt owned by the given user, with items.
func (r *ReceiptsRepository) GetByID(ctx context.Context, userID, receiptID uuid.UUID) (*Receipt, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, payment_type, total_amount::text, paid_amount::text, created_at
		FROM receipts
		WHERE id = $1 AND user_id = $2`,
		receiptID, userID)

	return r.getOne(ctx, row)
}

// GetByIDPublic returns one receipt by ID regardless of owner, along with
// the seller's display name. Used by the public receipt view.
func (r *ReceiptsRepository) GetByIDPublic(ctx context.Context, receiptID uuid.UUID) (*Receipt, string, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT r.id, r.user_id, r.payment_type, r.total_amount::text, r.paid_amount::text, r.created_at, u.name
		FROM receipts r
		JOIN users u ON u.id = r.user_id
		WHERE r.id = $1`,
		receiptID)

	receipt := &Receipt{}
	var totalAmount, sellerName string
	var paidAmount *string

	err := row.Scan(
		&receipt.ID, &receipt.UserID, &receipt.PaymentType,
		&totalAmount, &paidAmount, &receipt.CreatedAt, &sellerName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", fmt.Errorf("table:receipts: %w", pgx.ErrNoRows)
		}
		return nil, "", fmt.Errorf("querying receipt: %w", err)
	}

	if err := parseReceiptAmounts(receipt, totalAmount, paidAmount); err != nil {
		return nil, "", err
	}
	if err := r.loadItems(ctx, []*Receipt{receipt}); err != nil {
		return nil, "", err
	}

	return receipt, sellerName, nil
}

func (r *ReceiptsRepository) getOne(ctx context.Context, row pgx.Row) (*Receipt, error) {
	receipt, err := scanReceipt(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("table:receipts: %w", pgx.ErrNoRows)
		}
		return nil, err
	}

	if err := r.loadItems(ctx, []*Receipt{receipt}); err != nil {
		return nil, err
	}

	return receipt, nil
}

// loadItems attaches items to the given receipts with a single query.
func (r *ReceiptsRepository) loadItems(ctx context.Context, receipts []*Receipt) error {
	if len(receipts) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*Receipt, len(receipts))
	ids := make([]uuid.UUID, 0, len(receipts))
	for _, receipt := range receipts {
		byID[receipt.ID] = receipt
		ids = append(ids, receipt.ID)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, receipt_id, product_name, unit_price::text, quantity
		FROM receipt_items
		WHERE receipt_id = ANY($1)
		ORDER BY receipt_id, position`,
		ids)
	if err != nil {
		return fmt.Errorf("querying receipt items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item ReceiptItem
		var unitPrice string
		if err := rows.Scan(&item.ID, &item.ReceiptID, &item.ProductName, &unitPrice, &item.Quantity); err != nil {
			return fmt.Errorf("scanning receipt item: %w", err)
		}
		item.UnitPrice, err = decimal.NewFromString(unitPrice)
		if err != nil {
			return fmt.Errorf("parsing unit price: %w", err)
		}

		receipt := byID[item.ReceiptID]
		receipt.Items = append(receipt.Items, item)
	}
	return rows.Err()
}

// scanReceipt reads one receipt row. Amounts travel as text and are parsed
// into decimals to avoid float rounding.
func scanReceipt(row pgx.Row) (*Receipt, error) {
	receipt := &Receipt{}
	var totalAmount string
	var paidAmount *string

	err := row.Scan(
		&receipt.ID, &receipt.UserID, &receipt.PaymentType,
		&totalAmount, &paidAmount, &receipt.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := parseReceiptAmounts(receipt, totalAmount, paidAmount); err != nil {
		return nil, err
	}

	return receipt, nil
}

func parseReceiptAmounts(receipt *Receipt, totalAmount string, paidAmount *string) error {
	var err error
	receipt.TotalAmount, err = decimal.NewFromString(totalAmount)
	if err != nil {
		return fmt.Errorf("parsing total amount: %w", err)
	}
	if paidAmount != nil {
		paid, err := decimal.NewFromString(*paidAmount)
		if err != nil {
			return fmt.Errorf("parsing paid amount: %w", err)
		}
		receipt.PaidAmount = &paid
	}
	return nil
}
