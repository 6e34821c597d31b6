// Package shop provides a client for the Artesanía en Mimbre shop API.
package shop

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ID is a product identity. The API serves ids as JSON numbers or strings
// depending on the catalog source, so both decode to the same canonical form
// and compare equal.
type ID string

// UnmarshalJSON accepts both string and numeric ids.
func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ID(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("product id must be a string or number, got %s", data)
	}
	*id = ID(n.String())
	return nil
}

// String returns the canonical string form of the id.
func (id ID) String() string {
	return string(id)
}

// Equal reports whether two ids name the same product after normalization.
func (id ID) Equal(other ID) bool {
	return strings.TrimSpace(string(id)) == strings.TrimSpace(string(other))
}

// Product represents a catalog product. Prices are whole Chilean pesos,
// no minor units.
type Product struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Price int    `json:"price"`
	Img   string `json:"img"`
	Desc  string `json:"desc,omitempty"`
}

// ============================================
// Checkout Session Types
// ============================================

// CheckoutItem is one cart line in a checkout-session request. Only the id
// and quantity are sent; the server re-prices from its own catalog.
type CheckoutItem struct {
	ID  ID  `json:"id"`
	Qty int `json:"qty"`
}

// CheckoutRequest is the body of a checkout-session request.
type CheckoutRequest struct {
	Cart []CheckoutItem `json:"cart"`
}

// CheckoutSession is a server-issued hosted payment session: the gateway URL
// to hand the user to, and the token that authorizes the payment.
type CheckoutSession struct {
	URL   string `json:"url"`
	Token string `json:"token"`
}

// ============================================
// API Error Types
// ============================================

// APIError represents an error response from the shop API. Message carries
// the server-supplied error text when the body was parseable.
type APIError struct {
	Message string `json:"error"`
	Status  int    `json:"-"`
}

// Error implements the error interface. It prefers the server's own message
// and falls back to a generic one when the body had none.
func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("shop API error (status %d)", e.Status)
}
