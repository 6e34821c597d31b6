package checkout

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/pbravo/mimbre-terminal/internal/cart"
	"github.com/pbravo/mimbre-terminal/internal/pricing"
)

// DefaultWhatsAppNumber is the shop's WhatsApp destination, country code
// included, no plus sign or spaces.
const DefaultWhatsAppNumber = "56972086522"

// WhatsApp builds quote messages and wa.me deep links for the manual,
// human-mediated checkout path.
type WhatsApp struct {
	number string
}

// NewWhatsApp creates a quote builder for the given destination number. An
// empty number falls back to the shop default.
func NewWhatsApp(number string) *WhatsApp {
	if number == "" {
		number = DefaultWhatsAppNumber
	}
	return &WhatsApp{number: number}
}

// GeneralMessage is the context-free "contact us" inquiry. It does not
// depend on cart contents and works with an empty cart.
func (w *WhatsApp) GeneralMessage() string {
	return "Hola! 👋 Quiero cotizar un producto de Artesanía en Mimbre. ¿Me ayudas con stock y envío?"
}

// CartMessage formats the quote request for the given cart: one line per
// cart line, then the same subtotal/shipping/total the cart view shows,
// then the closing question.
func (w *WhatsApp) CartMessage(lines []cart.Line, totals pricing.Totals) string {
	var items []string
	for _, l := range lines {
		items = append(items, fmt.Sprintf("• %s x%d (%s c/u) = %s",
			l.Name, l.Qty, pricing.FormatCLP(l.Price), pricing.FormatCLP(l.Total())))
	}

	return fmt.Sprintf(`Hola! 👋 Quiero cotizar mi carrito:

%s

Subtotal: %s
Envío: %s
Total: %s

¿Tienen stock y cuánto sale/demora el envío?`,
		strings.Join(items, "\n"),
		pricing.FormatCLP(totals.Subtotal),
		pricing.FormatCLP(totals.Shipping),
		pricing.FormatCLP(totals.Total))
}

// Link wraps a message into a wa.me deep link.
func (w *WhatsApp) Link(message string) string {
	return fmt.Sprintf("https://wa.me/%s?text=%s", w.number, url.QueryEscape(message))
}

// QuoteLink builds the deep link for a cart quote. An empty cart is a
// blocking validation error, checked independently of the payment path.
func (w *WhatsApp) QuoteLink(lines []cart.Line) (string, error) {
	if len(lines) == 0 {
		return "", ErrEmptyCart
	}
	return w.Link(w.CartMessage(lines, pricing.Compute(lines))), nil
}

// GeneralLink builds the deep link for the general inquiry.
func (w *WhatsApp) GeneralLink() string {
	return w.Link(w.GeneralMessage())
}
