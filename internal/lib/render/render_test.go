package render

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampWidth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		width int
		want  int
	}{
		{name: "zero means default", width: 0, want: DefaultWidth},
		{name: "negative means default", width: -5, want: DefaultWidth},
		{name: "below minimum clamps up", width: 10, want: MinWidth},
		{name: "above maximum clamps down", width: 500, want: MaxWidth},
		{name: "in range passes through", width: 64, want: 64},
		{name: "exact minimum", width: MinWidth, want: MinWidth},
		{name: "exact maximum", width: MaxWidth, want: MaxWidth},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ClampWidth(tt.width))
		})
	}
}

func testDocument() Document {
	paid := decimal.RequireFromString("1000.00")
	total := decimal.RequireFromString("896.61")

	return Document{
		SellerName: "Test Seller",
		Items: []Item{
			{Name: "Drone", Quantity: 3, UnitPrice: decimal.RequireFromString("298.87")},
		},
		Total:       total,
		PaymentType: "cash",
		Paid:        paid,
		Rest:        paid.Sub(total),
		CreatedAt:   time.Date(2023, 8, 14, 14, 42, 0, 0, time.UTC),
	}
}

func TestText(t *testing.T) {
	t.Parallel()

	out := Text(testDocument(), 40)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	for _, line := range lines {
		assert.LessOrEqual(t, len(line), 40, "line exceeds width: %q", line)
	}

	assert.Contains(t, out, "Test Seller")
	assert.Contains(t, out, "3 x 298.87")
	assert.Contains(t, out, "896.61")
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, out, "Cash")
	assert.Contains(t, out, "103.39")
	assert.Contains(t, out, "14.08.2023 14:42")
	assert.Contains(t, out, "Thank you for your purchase!")

	// Separator lines span the full width.
	assert.Contains(t, lines, strings.Repeat("=", 40))
}

func TestTextCardPayment(t *testing.T) {
	t.Parallel()

	doc := testDocument()
	doc.PaymentType = "card"
	doc.Paid = doc.Total
	doc.Rest = decimal.Zero

	out := Text(doc, 40)

	assert.Contains(t, out, "Card")
	assert.NotContains(t, out, "Cash")
}

func TestTextWrapsLongProductNames(t *testing.T) {
	t.Parallel()

	doc := testDocument()
	doc.Items = []Item{
		{
			Name:      "A very long product name that certainly does not fit on one narrow line",
			Quantity:  1,
			UnitPrice: decimal.RequireFromString("10.00"),
		},
	}

	out := Text(doc, 20)
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		assert.LessOrEqual(t, len(line), 20, "line exceeds width: %q", line)
	}
}

func TestTextAlignsNonASCIINames(t *testing.T) {
	t.Parallel()

	doc := testDocument()
	doc.SellerName = "Магазин"
	doc.Items = []Item{
		{Name: "Молоко", Quantity: 2, UnitPrice: decimal.RequireFromString("29.90")},
	}

	out := Text(doc, 40)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	// Width is measured in runes; byte length would push Cyrillic names past
	// the margin.
	for _, line := range lines {
		assert.LessOrEqual(t, utf8.RuneCountInString(line), 40, "line exceeds width: %q", line)
	}

	// The line total sits flush against the right margin of its name line.
	var found bool
	for _, line := range lines {
		if strings.Contains(line, "Молоко") {
			found = true
			assert.Equal(t, 40, utf8.RuneCountInString(line))
			assert.True(t, strings.HasSuffix(line, "59.80"), "line = %q", line)
		}
	}
	require.True(t, found)
}

func TestTextRespectsRequestedWidth(t *testing.T) {
	t.Parallel()

	out := Text(testDocument(), 80)
	assert.Contains(t, out, strings.Repeat("=", 80))
}

func TestFormatAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "0", want: "0.00"},
		{in: "10.5", want: "10.50"},
		{in: "1000", want: "1 000.00"},
		{in: "1516610", want: "1 516 610.00"},
		{in: "-12345.67", want: "-12 345.67"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, formatAmount(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestCacheKeys(t *testing.T) {
	t.Parallel()

	// Key formats are shared by the on-demand renderer and the warm-up job;
	// both must address the same cache entries.
	assert.Equal(t, "receipt:text:abc:40", TextCacheKey("abc", 40))
	assert.Equal(t, "receipt:qr:abc", QRCacheKey("abc"))
}

func TestQRPNG(t *testing.T) {
	t.Parallel()

	png, err := QRPNG("https://receipts.example.com/receipts/abc/view?format=txt")
	require.NoError(t, err)
	require.NotEmpty(t, png)

	// PNG magic bytes.
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}
