package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/pbravo/mimbre-terminal/internal/cart"
	"github.com/pbravo/mimbre-terminal/internal/shop"
)

func testLines() []cart.Line {
	return []cart.Line{
		{ID: "1", Name: "Canasto panera", Price: 10000, Qty: 2},
		{ID: "2", Name: "Cesto ropa", Price: 20000, Qty: 1},
	}
}

func TestPaymentStartSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req shop.CheckoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}

		// only id and qty travel; no client-side prices
		if len(req.Cart) != 2 {
			t.Fatalf("expected 2 items, got %d", len(req.Cart))
		}
		if req.Cart[0].ID != "1" || req.Cart[0].Qty != 2 {
			t.Errorf("unexpected first item: %+v", req.Cart[0])
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(shop.CheckoutSession{
			URL:   "https://webpay.example/init",
			Token: "tok_123",
		})
	}))
	defer server.Close()

	p := NewPayment(shop.NewClient(server.URL))
	redirect, err := p.Start(context.Background(), testLines())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if p.State() != StateRedirecting {
		t.Errorf("expected redirecting state, got %s", p.State())
	}
	if redirect.URL != "https://webpay.example/init" || redirect.Token != "tok_123" {
		t.Errorf("unexpected redirect: %+v", redirect)
	}
}

func TestPaymentRequestBodyOmitsPrices(t *testing.T) {
	var body atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body.Store(string(raw))
		json.NewEncoder(w).Encode(shop.CheckoutSession{URL: "https://webpay.example/init", Token: "t"})
	}))
	defer server.Close()

	p := NewPayment(shop.NewClient(server.URL))
	if _, err := p.Start(context.Background(), testLines()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	raw := body.Load().(string)
	if strings.Contains(raw, "price") || strings.Contains(raw, "10000") {
		t.Errorf("expected prices to stay out of the checkout request, got %s", raw)
	}
	if strings.Contains(raw, "name") {
		t.Errorf("expected names to stay out of the checkout request, got %s", raw)
	}
}

func TestPaymentEmptyCartBlocksBeforeNetwork(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(shop.CheckoutSession{URL: "u", Token: "t"})
	}))
	defer server.Close()

	p := NewPayment(shop.NewClient(server.URL))
	_, err := p.Start(context.Background(), nil)
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}

	if calls != 0 {
		t.Errorf("expected no network call for empty cart, got %d", calls)
	}
	if p.State() != StateIdle {
		t.Errorf("expected idle state, got %s", p.State())
	}
}

func TestPaymentServerErrorReturnsToIdle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error": "producto sin stock"}`)
	}))
	defer server.Close()

	p := NewPayment(shop.NewClient(server.URL))
	_, err := p.Start(context.Background(), testLines())
	if err == nil {
		t.Fatal("expected error")
	}

	// server-supplied message surfaced verbatim
	if err.Error() != "producto sin stock" {
		t.Errorf("expected server message, got %q", err.Error())
	}

	// failure is transient: back to idle, retry allowed
	if p.State() != StateIdle {
		t.Errorf("expected idle state after failure, got %s", p.State())
	}
}

func TestPaymentMalformedSessionReturnsToIdle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 200 but missing the token
		io.WriteString(w, `{"url": "https://webpay.example/init"}`)
	}))
	defer server.Close()

	p := NewPayment(shop.NewClient(server.URL))
	_, err := p.Start(context.Background(), testLines())
	if err == nil {
		t.Fatal("expected error for malformed session response")
	}
	if p.State() != StateIdle {
		t.Errorf("expected idle state, got %s", p.State())
	}
}

func TestPaymentRetryAfterFailure(t *testing.T) {
	fail := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			http.Error(w, `{"error":"intenta de nuevo"}`, http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(shop.CheckoutSession{URL: "https://webpay.example/init", Token: "tok"})
	}))
	defer server.Close()

	p := NewPayment(shop.NewClient(server.URL))
	if _, err := p.Start(context.Background(), testLines()); err == nil {
		t.Fatal("expected first attempt to fail")
	}

	fail = false
	redirect, err := p.Start(context.Background(), testLines())
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if redirect.Token != "tok" {
		t.Errorf("unexpected token: %s", redirect.Token)
	}
}

// blockingCreator parks CreateCheckoutSession until released, so tests can
// observe the in-flight state deterministically.
type blockingCreator struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingCreator) CreateCheckoutSession(ctx context.Context, checkout shop.CheckoutRequest) (*shop.CheckoutSession, error) {
	close(b.entered)
	<-b.release
	return &shop.CheckoutSession{URL: "https://webpay.example/init", Token: "tok"}, nil
}

func TestPaymentSecondStartWhileInFlight(t *testing.T) {
	creator := &blockingCreator{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	p := NewPayment(creator)

	type result struct {
		redirect *Redirect
		err      error
	}
	first := make(chan result, 1)
	go func() {
		r, err := p.Start(context.Background(), testLines())
		first <- result{r, err}
	}()

	<-creator.entered

	if p.State() != StateRequesting {
		t.Fatalf("expected requesting state while in flight, got %s", p.State())
	}
	if _, err := p.Start(context.Background(), testLines()); !errors.Is(err, ErrRequestInFlight) {
		t.Fatalf("expected ErrRequestInFlight for concurrent start, got %v", err)
	}

	close(creator.release)
	res := <-first
	if res.err != nil {
		t.Fatalf("expected first start to succeed, got %v", res.err)
	}
	if res.redirect.Token != "tok" {
		t.Errorf("unexpected token: %s", res.redirect.Token)
	}
	if p.State() != StateRedirecting {
		t.Errorf("expected redirecting state, got %s", p.State())
	}
}

func TestRedirectFormValues(t *testing.T) {
	r := &Redirect{URL: "https://webpay.example/init", Token: "tok_ws_abc"}

	values := r.FormValues()
	if got := values.Get("token_ws"); got != "tok_ws_abc" {
		t.Errorf("expected token_ws field, got %q", got)
	}
	if len(values) != 1 {
		t.Errorf("expected a single hidden field, got %v", values)
	}
}

func TestRedirectHTML(t *testing.T) {
	r := &Redirect{URL: "https://webpay.example/init", Token: `tok"<script>`}

	page, err := r.HTML()
	if err != nil {
		t.Fatalf("HTML failed: %v", err)
	}

	if !strings.Contains(page, `action="https://webpay.example/init"`) {
		t.Errorf("expected form action with gateway url, got %s", page)
	}
	if !strings.Contains(page, `name="token_ws"`) {
		t.Errorf("expected token_ws hidden input, got %s", page)
	}
	if strings.Contains(page, "<script>") {
		t.Error("expected token to be escaped")
	}
}

func TestStateString(t *testing.T) {
	if StateIdle.String() != "idle" || StateRequesting.String() != "requesting" || StateRedirecting.String() != "redirecting" {
		t.Error("unexpected state names")
	}
}
