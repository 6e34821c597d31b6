package shop

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGetProducts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/products" {
			t.Errorf("unexpected path: %s", r.URL.Path)
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		products := []Product{
			{ID: "1", Name: "Canasto de mimbre", Price: 15990, Img: "/img/canasto.jpg", Desc: "Canasto tejido a mano"},
			{ID: "2", Name: "Lámpara colgante", Price: 32990, Img: "/img/lampara.jpg"},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(products)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	products, err := client.GetProducts(context.Background())
	if err != nil {
		t.Fatalf("GetProducts failed: %v", err)
	}

	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}

	if products[0].Name != "Canasto de mimbre" {
		t.Errorf("expected name 'Canasto de mimbre', got '%s'", products[0].Name)
	}

	if products[1].Price != 32990 {
		t.Errorf("expected price 32990, got %d", products[1].Price)
	}
}

func TestGetProductsNumericIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// ids arrive as raw JSON numbers from some catalog sources
		io.WriteString(w, `[{"id": 7, "name": "Bandeja ovalada", "price": 9990, "img": "/img/bandeja.jpg"}]`)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	products, err := client.GetProducts(context.Background())
	if err != nil {
		t.Fatalf("GetProducts failed: %v", err)
	}

	if len(products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(products))
	}

	if products[0].ID != ID("7") {
		t.Errorf("expected numeric id to normalize to \"7\", got %q", products[0].ID)
	}

	if !products[0].ID.Equal(ID("7")) {
		t.Error("expected numeric and string ids to compare equal")
	}
}

func TestGetProductsErrorNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.GetProducts(context.Background())
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}

	if !strings.Contains(err.Error(), "500") {
		t.Errorf("expected error to contain status code, got: %v", err)
	}
}

func TestGetProductsErrorInvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("not valid json"))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.GetProducts(context.Background())
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}

	if !strings.Contains(err.Error(), "decoding") {
		t.Errorf("expected decoding error, got: %v", err)
	}
}

func TestCreateCheckoutSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/api/checkout/webpay" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req CheckoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}

		if len(req.Cart) != 2 {
			t.Fatalf("expected 2 cart items, got %d", len(req.Cart))
		}
		if req.Cart[0].ID != ID("1") || req.Cart[0].Qty != 2 {
			t.Errorf("unexpected first item: %+v", req.Cart[0])
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(CheckoutSession{
			URL:   "https://webpay.example/init",
			Token: "tok_abc123",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	session, err := client.CreateCheckoutSession(context.Background(), CheckoutRequest{
		Cart: []CheckoutItem{
			{ID: "1", Qty: 2},
			{ID: "2", Qty: 1},
		},
	})
	if err != nil {
		t.Fatalf("CreateCheckoutSession failed: %v", err)
	}

	if session.URL != "https://webpay.example/init" {
		t.Errorf("unexpected url: %s", session.URL)
	}
	if session.Token != "tok_abc123" {
		t.Errorf("unexpected token: %s", session.Token)
	}
}

func TestCreateCheckoutSessionServerMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, `{"error": "pasarela de pago no disponible"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.CreateCheckoutSession(context.Background(), CheckoutRequest{
		Cart: []CheckoutItem{{ID: "1", Qty: 1}},
	})
	if err == nil {
		t.Fatal("expected error for 502 response")
	}

	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Message != "pasarela de pago no disponible" {
		t.Errorf("expected server message to be surfaced verbatim, got %q", apiErr.Message)
	}
	if apiErr.Status != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", apiErr.Status)
	}
}

func TestCreateCheckoutSessionMalformedErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, "<html>gateway timeout</html>")
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.CreateCheckoutSession(context.Background(), CheckoutRequest{
		Cart: []CheckoutItem{{ID: "1", Qty: 1}},
	})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}

	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Message != "" {
		t.Errorf("expected no parsed message, got %q", apiErr.Message)
	}
	if !strings.Contains(apiErr.Error(), "500") {
		t.Errorf("expected generic message with status, got %q", apiErr.Error())
	}
}
