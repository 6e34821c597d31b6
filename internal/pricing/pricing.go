// Package pricing computes cart totals. All amounts are whole Chilean
// pesos; there are no minor units to round.
package pricing

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/pbravo/mimbre-terminal/internal/cart"
)

// Shipping policy: a flat fee, waived once the subtotal reaches the
// free-shipping threshold.
const (
	FreeShippingMin = 50000
	FlatShippingFee = 2500
)

// Totals is the pricing result for a cart. Total is always
// Subtotal + Shipping.
type Totals struct {
	Subtotal int
	Shipping int
	Total    int
}

// Subtotal sums price × qty over all lines.
func Subtotal(lines []cart.Line) int {
	subtotal := 0
	for _, l := range lines {
		subtotal += l.Price * l.Qty
	}
	return subtotal
}

// ShippingFee returns the shipping cost for a given subtotal.
func ShippingFee(subtotal int) int {
	if subtotal >= FreeShippingMin {
		return 0
	}
	return FlatShippingFee
}

// Compute derives the full pricing result from cart contents alone. Nothing
// is cached; every caller recomputes from current state.
func Compute(lines []cart.Line) Totals {
	subtotal := Subtotal(lines)
	shipping := ShippingFee(subtotal)
	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Total:    subtotal + shipping,
	}
}

// clp formats numbers with Chilean grouping ("12.500").
var clp = message.NewPrinter(language.MustParse("es-CL"))

// FormatCLP renders an amount the way the shop displays prices: peso sign,
// thousands separators, no decimals.
func FormatCLP(amount int) string {
	return clp.Sprintf("$%v", number.Decimal(amount))
}
