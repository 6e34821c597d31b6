// Package cart implements the authoritative shopping cart: line invariants,
// merge-on-add, and synchronous persistence after every mutation.
package cart

import (
	"github.com/charmbracelet/log"

	"github.com/pbravo/mimbre-terminal/internal/shop"
)

// Quantity bounds for a single cart line.
const (
	MinQty = 1
	MaxQty = 99
)

// Line is one product entry in the cart. Name, price and image are a
// snapshot of the product at add time; they are not re-read from the live
// catalog afterwards, so a price change mid-session does not reprice lines
// already in the cart.
type Line struct {
	ID    shop.ID `json:"id"`
	Name  string  `json:"name"`
	Price int     `json:"price"`
	Img   string  `json:"img"`
	Qty   int     `json:"qty"`
}

// Total returns the line total in CLP.
func (l Line) Total() int {
	return l.Price * l.Qty
}

// Resolver resolves product ids to catalog products. *catalog.Index
// satisfies it.
type Resolver interface {
	Lookup(id shop.ID) (shop.Product, bool)
}

// Store owns the cart contents for one session. Mutations are synchronous:
// each one persists before returning, so storage always reflects the last
// completed mutation. Invalid targets (unknown id, missing line) are silent
// no-ops reported only through the boolean return; browsing is never
// interrupted by cart errors.
type Store struct {
	resolver Resolver
	storage  Storage
	logger   *log.Logger
	lines    []Line
	onChange []func()
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used for persistence failures. Those failures
// are never surfaced to callers, only logged.
func WithLogger(logger *log.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a cart store and restores any persisted lines. Absent or
// corrupt storage silently yields an empty cart.
func NewStore(resolver Resolver, storage Storage, opts ...StoreOption) *Store {
	s := &Store{
		resolver: resolver,
		storage:  storage,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.restore()
	return s
}

// restore replaces the in-memory lines with the persisted ones. Any load
// error degrades to an empty cart; it never propagates.
func (s *Store) restore() {
	lines, err := s.storage.Load()
	if err != nil {
		if s.logger != nil {
			s.logger.Debug("cart restore failed, starting empty", "err", err)
		}
		s.lines = nil
		return
	}
	s.lines = sanitize(lines)
}

// sanitize drops persisted lines that violate the cart invariants rather
// than rejecting the whole payload: unknown fields are already ignored by
// the decoder, and a single bad line should not wipe the rest.
func sanitize(lines []Line) []Line {
	out := lines[:0]
	seen := make(map[shop.ID]bool, len(lines))
	for _, l := range lines {
		if l.ID == "" || seen[l.ID] || l.Price < 0 {
			continue
		}
		if l.Qty < MinQty {
			l.Qty = MinQty
		}
		if l.Qty > MaxQty {
			l.Qty = MaxQty
		}
		seen[l.ID] = true
		out = append(out, l)
	}
	return out
}

// Add resolves the product and adds qty units to the cart. If a line with
// this id already exists its quantity is incremented instead of duplicating
// the line. Quantities clamp to MaxQty. Returns false without mutating when
// the id does not resolve or qty is not positive.
func (s *Store) Add(id shop.ID, qty int) bool {
	if qty <= 0 {
		return false
	}

	p, ok := s.resolver.Lookup(id)
	if !ok {
		return false
	}

	if i := s.find(p.ID); i >= 0 {
		s.lines[i].Qty += qty
		if s.lines[i].Qty > MaxQty {
			s.lines[i].Qty = MaxQty
		}
	} else {
		if qty > MaxQty {
			qty = MaxQty
		}
		s.lines = append(s.lines, Line{
			ID:    p.ID,
			Name:  p.Name,
			Price: p.Price,
			Img:   p.Img,
			Qty:   qty,
		})
	}

	s.persist()
	s.notify()
	return true
}

// Remove deletes the line with the given id. Returns false when no line
// matches.
func (s *Store) Remove(id shop.ID) bool {
	i := s.find(id)
	if i < 0 {
		return false
	}

	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	s.persist()
	s.notify()
	return true
}

// ChangeQty applies delta to an existing line's quantity, clamped to
// [MinQty, MaxQty]. A negative delta can never remove the line; it bottoms
// out at one unit. Returns false when no line matches.
func (s *Store) ChangeQty(id shop.ID, delta int) bool {
	i := s.find(id)
	if i < 0 {
		return false
	}

	qty := s.lines[i].Qty + delta
	if qty < MinQty {
		qty = MinQty
	}
	if qty > MaxQty {
		qty = MaxQty
	}
	s.lines[i].Qty = qty

	s.persist()
	s.notify()
	return true
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.lines = nil
	s.persist()
	s.notify()
}

// Count returns the total quantity across all lines.
func (s *Store) Count() int {
	count := 0
	for _, l := range s.lines {
		count += l.Qty
	}
	return count
}

// Len returns the number of distinct lines.
func (s *Store) Len() int {
	return len(s.lines)
}

// IsEmpty reports whether the cart has no lines.
func (s *Store) IsEmpty() bool {
	return len(s.lines) == 0
}

// Lines returns a copy of the cart contents in insertion order.
func (s *Store) Lines() []Line {
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// Subscribe registers fn to run after every completed mutation. The
// rendering layer uses this to stay in sync without owning cart state.
func (s *Store) Subscribe(fn func()) {
	s.onChange = append(s.onChange, fn)
}

func (s *Store) find(id shop.ID) int {
	for i := range s.lines {
		if s.lines[i].ID.Equal(id) {
			return i
		}
	}
	return -1
}

func (s *Store) persist() {
	if err := s.storage.Save(s.Lines()); err != nil && s.logger != nil {
		s.logger.Error("persisting cart failed", "err", err)
	}
}

func (s *Store) notify() {
	for _, fn := range s.onChange {
		fn()
	}
}
