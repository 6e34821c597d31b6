package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pbravo/mimbre-terminal/internal/shop"
)

func newTestIndex(t *testing.T, handler http.HandlerFunc) (*Index, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	return NewIndex(shop.NewClient(server.URL)), server
}

func TestLoadAndLookup(t *testing.T) {
	ix, server := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]shop.Product{
			{ID: "1", Name: "Canasto panera", Price: 12500, Img: "/img/panera.jpg"},
			{ID: "2", Name: "Cesto ropa", Price: 24990, Img: "/img/cesto.jpg"},
		})
	})
	defer server.Close()

	if err := ix.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if ix.Len() != 2 {
		t.Fatalf("expected 2 products, got %d", ix.Len())
	}

	p, ok := ix.Lookup("2")
	if !ok {
		t.Fatal("expected to find product 2")
	}
	if p.Name != "Cesto ropa" {
		t.Errorf("expected 'Cesto ropa', got '%s'", p.Name)
	}

	if _, ok := ix.Lookup("999"); ok {
		t.Error("expected lookup of unknown id to miss")
	}
}

func TestLookupNormalizesIDs(t *testing.T) {
	ix, server := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// numeric ids straight from the API
		io.WriteString(w, `[{"id": 7, "name": "Bandeja", "price": 9990, "img": "/img/bandeja.jpg"}]`)
	})
	defer server.Close()

	if err := ix.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if _, ok := ix.Lookup(shop.ID("7")); !ok {
		t.Error("expected string id \"7\" to resolve a numeric catalog id")
	}
	if _, ok := ix.Lookup(shop.ID(" 7 ")); !ok {
		t.Error("expected whitespace-padded id to resolve after normalization")
	}
}

func TestLoadFailureKeepsSnapshot(t *testing.T) {
	fail := false
	ix, server := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		if fail {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]shop.Product{{ID: "1", Name: "Canasto", Price: 9990}})
	})
	defer server.Close()

	if err := ix.Load(context.Background()); err != nil {
		t.Fatalf("first load failed: %v", err)
	}

	fail = true
	if err := ix.Load(context.Background()); err == nil {
		t.Fatal("expected reload failure")
	}

	if ix.Len() != 1 {
		t.Errorf("expected failed reload to keep previous snapshot, got %d products", ix.Len())
	}
}

func TestLoadContextCancelled(t *testing.T) {
	ix, server := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]shop.Product{})
	})
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ix.Load(ctx)
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got: %v", err)
	}
}

func TestSearch(t *testing.T) {
	ix, server := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]shop.Product{
			{ID: "1", Name: "Canasto panera", Price: 12500},
			{ID: "2", Name: "Lámpara colgante", Price: 32990},
			{ID: "3", Name: "Canasto frutero", Price: 8990},
		})
	})
	defer server.Close()

	if err := ix.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	got := ix.Search("canasto", SortNone)
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}

	asc := ix.Search("", SortPriceAsc)
	if asc[0].Price != 8990 || asc[2].Price != 32990 {
		t.Errorf("expected ascending price order, got %v", asc)
	}

	desc := ix.Search("", SortPriceDesc)
	if desc[0].Price != 32990 {
		t.Errorf("expected descending price order, got %v", desc)
	}

	// catalog order preserved when not sorting
	all := ix.Search("", SortNone)
	if all[0].ID != "1" || all[1].ID != "2" || all[2].ID != "3" {
		t.Errorf("expected catalog order, got %v", all)
	}
}
