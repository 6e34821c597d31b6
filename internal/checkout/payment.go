// Package checkout drives the two checkout paths: a hosted payment redirect
// and a WhatsApp quote. Both consume a cart snapshot and pricing output;
// neither mutates the cart. Navigation itself belongs to the frontend — this
// package only produces the redirect form and deep links.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"sync"

	"github.com/pbravo/mimbre-terminal/internal/cart"
	"github.com/pbravo/mimbre-terminal/internal/shop"
)

// ErrEmptyCart blocks checkout before any network call is made.
var ErrEmptyCart = errors.New("cart is empty")

// ErrRequestInFlight rejects a second payment attempt while one is pending.
var ErrRequestInFlight = errors.New("payment request already in flight")

// State is the payment flow state.
type State int

const (
	StateIdle State = iota
	StateRequesting
	StateRedirecting
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateRedirecting:
		return "redirecting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// SessionCreator opens hosted payment sessions. *shop.Client satisfies it.
type SessionCreator interface {
	CreateCheckoutSession(ctx context.Context, checkout shop.CheckoutRequest) (*shop.CheckoutSession, error)
}

// Payment runs the hosted payment flow: validate the cart, request a
// session, hand back the redirect. Failures are transient; the flow returns
// to idle so the user can retry with the cart intact. Start is called from
// command goroutines, so the state is mutex-protected.
type Payment struct {
	client SessionCreator

	mu    sync.Mutex
	state State
}

// NewPayment creates an idle payment flow.
func NewPayment(client SessionCreator) *Payment {
	return &Payment{client: client}
}

// State returns the current flow state.
func (p *Payment) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Start requests a payment session for the given cart lines. Only ids and
// quantities are sent; the server re-prices from its own catalog rather
// than trusting the client's price snapshot. A second Start while one is
// pending fails with ErrRequestInFlight.
func (p *Payment) Start(ctx context.Context, lines []cart.Line) (*Redirect, error) {
	p.mu.Lock()
	if p.state == StateRequesting {
		p.mu.Unlock()
		return nil, ErrRequestInFlight
	}
	if len(lines) == 0 {
		p.mu.Unlock()
		return nil, ErrEmptyCart
	}
	p.state = StateRequesting
	p.mu.Unlock()

	items := make([]shop.CheckoutItem, len(lines))
	for i, l := range lines {
		items[i] = shop.CheckoutItem{ID: l.ID, Qty: l.Qty}
	}

	session, err := p.client.CreateCheckoutSession(ctx, shop.CheckoutRequest{Cart: items})
	if err != nil {
		p.setState(StateIdle)
		return nil, err
	}
	if session.URL == "" || session.Token == "" {
		p.setState(StateIdle)
		return nil, fmt.Errorf("payment session response missing url or token")
	}

	p.setState(StateRedirecting)
	return &Redirect{URL: session.URL, Token: session.Token}, nil
}

// Reset returns the flow to idle. The redirecting state is terminal for a
// browser page; a terminal session that stays alive after showing the
// handoff resets before the next attempt.
func (p *Payment) Reset() {
	p.setState(StateIdle)
}

func (p *Payment) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Redirect is the hosted payment handoff: a gateway URL plus the token it
// expects as a form POST.
type Redirect struct {
	URL   string
	Token string
}

// FormValues returns the POST body the gateway expects.
func (r *Redirect) FormValues() url.Values {
	return url.Values{"token_ws": {r.Token}}
}

var redirectTmpl = template.Must(template.New("redirect").Parse(`<!DOCTYPE html>
<html>
<body onload="document.forms[0].submit()">
<form method="POST" action="{{.URL}}">
<input type="hidden" name="token_ws" value="{{.Token}}">
</form>
</body>
</html>
`))

// HTML renders a self-submitting form page. A browser frontend serves or
// injects this to perform the full-page navigation to the gateway.
func (r *Redirect) HTML() (string, error) {
	var sb strings.Builder
	if err := redirectTmpl.Execute(&sb, r); err != nil {
		return "", fmt.Errorf("rendering redirect form: %w", err)
	}
	return sb.String(), nil
}
