// Package main implements a mock shop API server for local development: the
// product catalog plus a fake Webpay session endpoint and gateway page.
package main

import (
	"crypto/rand"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/pbravo/mimbre-terminal/internal/shop"
)

//go:embed testdata/*
var testdataFS embed.FS

var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	Prefix:          "mockshop",
})

var products []shop.Product

// issued remembers the tokens handed out by the checkout endpoint so the
// fake gateway can tell a real handoff from a stale or invented token.
var issued sync.Map

func main() {
	data, err := testdataFS.ReadFile("testdata/products.json")
	if err != nil {
		logger.Fatal("loading products.json", "err", err)
	}
	if err := json.Unmarshal(data, &products); err != nil {
		logger.Fatal("parsing products.json", "err", err)
	}

	addr := getEnv("MOCKSHOP_ADDR", ":18080")

	http.HandleFunc("/api/products", handleProducts)
	http.HandleFunc("/api/checkout/webpay", handleCheckout)
	http.HandleFunc("/gateway", handleGateway)

	logger.Info("mock shop server listening", "addr", addr, "products", len(products))
	if err := http.ListenAndServe(addr, nil); err != nil {
		logger.Fatal("server error", "err", err)
	}
}

func handleProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "método no permitido")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(products)
}

func handleCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "método no permitido")
		return
	}

	var req shop.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "cuerpo de la solicitud inválido")
		return
	}

	if len(req.Cart) == 0 {
		writeError(w, http.StatusBadRequest, "El carrito está vacío")
		return
	}

	// Re-price server side: the client only sends ids and quantities.
	total := 0
	for _, item := range req.Cart {
		if item.Qty <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Cantidad inválida para %s", item.ID))
			return
		}
		p, ok := findProduct(item.ID)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Producto no encontrado: %s", item.ID))
			return
		}
		total += p.Price * item.Qty
	}

	token, err := newToken()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "no se pudo crear la sesión de pago")
		return
	}
	issued.Store(token, total)

	logger.Info("checkout session created", "items", len(req.Cart), "total", total, "token", token)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(shop.CheckoutSession{
		URL:   fmt.Sprintf("http://%s/gateway", r.Host),
		Token: token,
	})
}

// handleGateway plays the part of the hosted payment page: it accepts the
// token_ws form POST a real gateway expects and renders a confirmation.
func handleGateway(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "el portal de pago espera un POST")
		return
	}

	token := r.FormValue("token_ws")
	total, ok := issued.Load(token)
	if token == "" || !ok {
		writeError(w, http.StatusBadRequest, "token_ws inválido")
		return
	}

	logger.Info("gateway received payment", "token", token, "total", total)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="es">
<body>
<h1>Pago simulado</h1>
<p>Sesión %s por $%d CLP recibida. Este portal es solo para desarrollo.</p>
</body>
</html>
`, token, total)
}

func findProduct(id shop.ID) (shop.Product, bool) {
	for _, p := range products {
		if p.ID.Equal(id) {
			return p, true
		}
	}
	return shop.Product{}, false
}

func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "tok_" + hex.EncodeToString(buf), nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
