// Package catalog holds the product list fetched from the shop API and
// resolves id lookups for the cart.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pbravo/mimbre-terminal/internal/shop"
)

// Fetcher fetches the product catalog. *shop.Client satisfies it.
type Fetcher interface {
	GetProducts(ctx context.Context) ([]shop.Product, error)
}

// Index owns the catalog snapshot for a session. Load replaces the list
// wholesale; there are no per-product mutations.
type Index struct {
	mu       sync.RWMutex
	fetcher  Fetcher
	products []shop.Product
	byID     map[string]int
}

// NewIndex creates an empty index backed by the given fetcher.
func NewIndex(fetcher Fetcher) *Index {
	return &Index{
		fetcher: fetcher,
		byID:    make(map[string]int),
	}
}

// Load fetches the catalog and replaces the current snapshot. On failure the
// previous snapshot is kept untouched.
func (ix *Index) Load(ctx context.Context) error {
	products, err := ix.fetcher.GetProducts(ctx)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	ix.Replace(products)
	return nil
}

// Replace swaps in a new snapshot wholesale. Used by Load and by callers
// that already hold a product list (for example from a shared cache).
func (ix *Index) Replace(products []shop.Product) {
	byID := make(map[string]int, len(products))
	for i, p := range products {
		byID[normalizeID(p.ID)] = i
	}

	ix.mu.Lock()
	ix.products = products
	ix.byID = byID
	ix.mu.Unlock()
}

// Lookup resolves a product by id. Ids compare by normalized string identity,
// so a numeric 7 from the API matches a "7" from the cart.
func (ix *Index) Lookup(id shop.ID) (shop.Product, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	i, ok := ix.byID[normalizeID(id)]
	if !ok {
		return shop.Product{}, false
	}
	return ix.products[i], true
}

// Products returns a copy of the current snapshot in catalog order.
func (ix *Index) Products() []shop.Product {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	out := make([]shop.Product, len(ix.products))
	copy(out, ix.products)
	return out
}

// Len returns the number of products in the snapshot.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.products)
}

// SortMode selects how Search orders its results.
type SortMode int

const (
	SortNone SortMode = iota
	SortPriceAsc
	SortPriceDesc
)

// Search returns the products whose name contains the term
// (case-insensitive), ordered by the given mode. An empty term matches all.
func (ix *Index) Search(term string, mode SortMode) []shop.Product {
	term = strings.ToLower(strings.TrimSpace(term))

	list := ix.Products()
	if term != "" {
		filtered := list[:0]
		for _, p := range list {
			if strings.Contains(strings.ToLower(p.Name), term) {
				filtered = append(filtered, p)
			}
		}
		list = filtered
	}

	switch mode {
	case SortPriceAsc:
		sort.SliceStable(list, func(i, j int) bool { return list[i].Price < list[j].Price })
	case SortPriceDesc:
		sort.SliceStable(list, func(i, j int) bool { return list[i].Price > list[j].Price })
	}
	return list
}

func normalizeID(id shop.ID) string {
	return strings.TrimSpace(string(id))
}
