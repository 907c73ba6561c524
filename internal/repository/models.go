// Package repository handles all interactions with the database.
//
// It contains the SQL queries and methods to fetch, persist, or update
// users and receipts, abstracting SQL logic away from the service layer.
package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentType enumerates how a receipt was paid.
type PaymentType string

const (
	PaymentTypeCash PaymentType = "cash"
	PaymentTypeCard PaymentType = "card"
)

// Valid reports whether the payment type is one of the known values.
func (p PaymentType) Valid() bool {
	return p == PaymentTypeCash || p == PaymentTypeCard
}

// User is a registered account. Password holds the bcrypt hash, never the
// plaintext. RefreshToken is the currently valid refresh token, nil when the
// user has been logged out or the token was rotated away.
type User struct {
	ID           uuid.UUID
	Name         string
	Login        string
	Password     string
	RefreshToken *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Receipt is a sales check owned by a user. PaidAmount is set for cash
// payments only; card payments are always exact.
type Receipt struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	PaymentType PaymentType
	TotalAmount decimal.Decimal
	PaidAmount  *decimal.Decimal
	CreatedAt   time.Time
	Items       []ReceiptItem
}

// ReceiptItem is a single product line on a receipt.
type ReceiptItem struct {
	ID          uuid.UUID
	ReceiptID   uuid.UUID
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int
}
