// Package render turns receipts into their shareable representations: a
// fixed-width plain text layout and a QR code image pointing at the public
// receipt URL.
package render

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	// DefaultWidth is the line width used when the caller does not ask for one.
	DefaultWidth = 40

	MinWidth = 20
	MaxWidth = 120

	// CacheTTL bounds how long cached renderings live. Receipts are immutable
	// once created, so the TTL only limits cache size.
	CacheTTL = 24 * time.Hour
)

// TextCacheKey is the Redis key for the cached text view of a receipt at a
// given line width. Shared by the on-demand renderer and the warm-up job.
func TextCacheKey(receiptID string, width int) string {
	return fmt.Sprintf("receipt:text:%s:%d", receiptID, width)
}

// QRCacheKey is the Redis key for the cached QR image of a receipt.
func QRCacheKey(receiptID string) string {
	return fmt.Sprintf("receipt:qr:%s", receiptID)
}

// Item is a single product line to render.
type Item struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Document carries everything the text layout needs. Amounts are
// pre-computed by the service layer; render only formats.
type Document struct {
	SellerName  string
	Items       []Item
	Total       decimal.Decimal
	PaymentType string
	Paid        decimal.Decimal
	Rest        decimal.Decimal
	CreatedAt   time.Time
}

// ClampWidth normalizes a requested line width. Zero or negative means the
// default; out-of-range values are clamped rather than rejected.
func ClampWidth(width int) int {
	switch {
	case width <= 0:
		return DefaultWidth
	case width < MinWidth:
		return MinWidth
	case width > MaxWidth:
		return MaxWidth
	}
	return width
}

// Text renders the receipt as fixed-width plain text, the kind a thermal
// printer would produce.
func Text(doc Document, width int) string {
	width = ClampWidth(width)

	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteByte('\n')
	}

	line(center(doc.SellerName, width))
	line(strings.Repeat("=", width))

	for i, item := range doc.Items {
		if i > 0 {
			line(strings.Repeat("-", width))
		}

		total := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		line(formatQuantity(item.Quantity) + " x " + formatAmount(item.UnitPrice))

		for _, nameLine := range nameLines(item.Name, formatAmount(total), width) {
			line(nameLine)
		}
	}

	line(strings.Repeat("=", width))
	line(spread("TOTAL", formatAmount(doc.Total), width))
	line(spread(paymentLabel(doc.PaymentType), formatAmount(doc.Paid), width))
	line(spread("Rest", formatAmount(doc.Rest), width))
	line(strings.Repeat("=", width))
	line(center(doc.CreatedAt.Format("02.01.2006 15:04"), width))
	line(center("Thank you for your purchase!", width))

	return b.String()
}

// QRPNG encodes the given URL as a PNG QR code.
func QRPNG(url string) ([]byte, error) {
	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		return nil, errors.Wrap(err, "encoding qr code")
	}
	return png, nil
}

func paymentLabel(paymentType string) string {
	if paymentType == "card" {
		return "Card"
	}
	return "Cash"
}

// nameLines word-wraps the product name to the line width, placing the line
// total right-aligned on the last line when it fits, on its own line when
// it does not.
func nameLines(name, amount string, width int) []string {
	nameWidth := width - runeLen(amount) - 1
	if nameWidth < 1 {
		nameWidth = 1
	}

	var lines []string
	var current string
	for _, word := range strings.Fields(name) {
		if current == "" {
			current = word
			continue
		}
		if runeLen(current)+1+runeLen(word) <= nameWidth {
			current += " " + word
		} else {
			lines = append(lines, current)
			current = word
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	if len(lines) == 0 {
		lines = []string{""}
	}

	last := len(lines) - 1
	if runeLen(lines[last]) <= nameWidth {
		lines[last] = spread(lines[last], amount, width)
	} else {
		lines = append(lines, spread("", amount, width))
	}
	return lines
}

// spread left-aligns a label and right-aligns a value on one line.
func spread(left, right string, width int) string {
	gap := width - runeLen(left) - runeLen(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func center(s string, width int) string {
	if runeLen(s) >= width {
		return s
	}
	pad := (width - runeLen(s)) / 2
	return strings.Repeat(" ", pad) + s
}

// runeLen measures printable width in runes; byte length would misalign any
// non-ASCII product or seller name.
func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// formatAmount renders a decimal with two fraction digits and spaces as
// thousands separators, e.g. 1 516 610.00.
func formatAmount(d decimal.Decimal) string {
	s := d.StringFixed(2)

	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart := s[:len(s)-3]
	fracPart := s[len(s)-3:]

	var grouped strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte(' ')
		}
		grouped.WriteRune(r)
	}

	out := grouped.String() + fracPart
	if neg {
		out = "-" + out
	}
	return out
}

func formatQuantity(q int) string {
	return decimal.NewFromInt(int64(q)).String()
}
