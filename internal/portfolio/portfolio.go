// Package portfolio holds each user's watchlist and positions, persisted to
// the key/value store. A Book implements the assistant's capabilities.
package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/marketpulse/internal/datasource"
	"github.com/seenimoa/marketpulse/internal/store"
	"github.com/seenimoa/marketpulse/pkg/models"
)

// StateKey is the store key of a user's book.
const StateKey = "portfolio:state"

// DefaultWatchlist seeds the watchlist of a new user.
var DefaultWatchlist = []string{"AAPL", "MSFT", "NVDA", "GOOGL", "AMZN"}

// ErrInvalidQuantity is returned for non-positive quantities.
var ErrInvalidQuantity = errors.New("quantity must be greater than zero")

// ════════════════════════════════════════════════════════════════════
// Manager
// ════════════════════════════════════════════════════════════════════

// Manager loads and caches one Book per user.
type Manager struct {
	kv  store.Store
	log zerolog.Logger

	// SaveTimeout bounds each write-through save.
	SaveTimeout time.Duration

	mu    sync.Mutex
	books map[string]*Book
}

// NewManager creates a manager persisting to kv.
func NewManager(kv store.Store, log zerolog.Logger) *Manager {
	return &Manager{
		kv:          kv,
		log:         log,
		SaveTimeout: 5 * time.Second,
		books:       make(map[string]*Book),
	}
}

// For returns the user's book, loading it on first use. A user with no
// saved state starts with DefaultWatchlist and no positions.
func (m *Manager) For(ctx context.Context, userID string) (*Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.books[userID]; ok {
		return b, nil
	}

	var st state
	raw, err := m.kv.Get(ctx, userID, StateKey)
	switch {
	case errors.Is(err, store.ErrNotFound):
		st.Watchlist = slices.Clone(DefaultWatchlist)
	case err != nil:
		return nil, fmt.Errorf("load portfolio %s: %w", userID, err)
	default:
		if err := json.Unmarshal(raw, &st); err != nil {
			return nil, fmt.Errorf("decode portfolio %s: %w", userID, err)
		}
	}

	b := &Book{
		userID:    userID,
		watch:     st.Watchlist,
		positions: st.Positions,
		log:       m.log.With().Str("user", userID).Logger(),
	}
	b.save = func(st state) error { return m.save(userID, st) }
	m.books[userID] = b
	return b, nil
}

// Users returns the ids of the loaded books, sorted.
func (m *Manager) Users() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.books))
	for id := range m.books {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *Manager) save(userID string, st state) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode portfolio: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.SaveTimeout)
	defer cancel()
	if err := m.kv.Put(ctx, userID, StateKey, raw); err != nil {
		return fmt.Errorf("save portfolio %s: %w", userID, err)
	}
	return nil
}

// state is the persisted form of a Book.
type state struct {
	Watchlist []string                   `json:"watchlist"`
	Positions []models.PortfolioPosition `json:"positions"`
}

// ════════════════════════════════════════════════════════════════════
// Book
// ════════════════════════════════════════════════════════════════════

// Book is one user's watchlist and positions. Every mutation is written
// through to the store; a failed write is logged and the in-memory state
// is kept.
type Book struct {
	mu        sync.RWMutex
	userID    string
	watch     []string
	positions []models.PortfolioPosition

	save func(state) error
	log  zerolog.Logger
}

// UserID returns the owner of the book.
func (b *Book) UserID() string { return b.userID }

// Watchlist returns the watched symbols in insertion order.
func (b *Book) Watchlist() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.watch)
}

// AddToWatchlist adds symbol and reports false if it was already present.
func (b *Book) AddToWatchlist(symbol string) bool {
	symbol = datasource.NormalizeSymbol(symbol)
	if symbol == "" {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if slices.Contains(b.watch, symbol) {
		return false
	}
	b.watch = append(b.watch, symbol)
	b.persist()
	return true
}

// RemoveFromWatchlist removes symbol and reports false if it was absent.
func (b *Book) RemoveFromWatchlist(symbol string) bool {
	symbol = datasource.NormalizeSymbol(symbol)
	b.mu.Lock()
	defer b.mu.Unlock()
	i := slices.Index(b.watch, symbol)
	if i < 0 {
		return false
	}
	b.watch = slices.Delete(b.watch, i, i+1)
	b.persist()
	return true
}

// Portfolio returns the positions in insertion order.
func (b *Book) Portfolio() []models.PortfolioPosition {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.positions)
}

// AddToPortfolio adds quantity shares of symbol. Additions to an existing
// position accumulate.
func (b *Book) AddToPortfolio(symbol string, quantity float64) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	symbol = datasource.NormalizeSymbol(symbol)
	if symbol == "" {
		return fmt.Errorf("empty symbol")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.position(symbol); i >= 0 {
		b.positions[i].Quantity += quantity
	} else {
		b.positions = append(b.positions, models.PortfolioPosition{Symbol: symbol, Quantity: quantity})
	}
	b.persist()
	return nil
}

// RemovePosition drops the position in symbol and reports whether one
// existed.
func (b *Book) RemovePosition(symbol string) bool {
	symbol = datasource.NormalizeSymbol(symbol)
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.position(symbol)
	if i < 0 {
		return false
	}
	b.positions = slices.Delete(b.positions, i, i+1)
	b.persist()
	return true
}

// Symbols returns every watched or held symbol, deduplicated.
func (b *Book) Symbols() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := slices.Clone(b.watch)
	for _, p := range b.positions {
		if !slices.Contains(out, p.Symbol) {
			out = append(out, p.Symbol)
		}
	}
	return out
}

// Valuation prices every position with quotes. Positions without a quote
// are listed unpriced and excluded from the totals.
func (b *Book) Valuation(quotes []models.Quote, now time.Time) models.PortfolioSnapshot {
	bySymbol := make(map[string]models.Quote, len(quotes))
	for _, q := range quotes {
		bySymbol[q.Symbol] = q
	}

	snap := models.PortfolioSnapshot{UpdatedAt: now, Positions: []models.PositionValue{}}
	for _, p := range b.Portfolio() {
		pv := models.PositionValue{PortfolioPosition: p}
		if q, ok := bySymbol[p.Symbol]; ok {
			pv.Priced = true
			pv.Price = q.PriceValue()
			pv.MarketValue = pv.Price * p.Quantity
			pv.DayChange = q.ChangeValue() * p.Quantity
			snap.TotalValue += pv.MarketValue
			snap.DayChange += pv.DayChange
		}
		snap.Positions = append(snap.Positions, pv)
	}
	return snap
}

func (b *Book) position(symbol string) int {
	return slices.IndexFunc(b.positions, func(p models.PortfolioPosition) bool { return p.Symbol == symbol })
}

// persist must be called with b.mu held.
func (b *Book) persist() {
	st := state{Watchlist: slices.Clone(b.watch), Positions: slices.Clone(b.positions)}
	if err := b.save(st); err != nil {
		b.log.Warn().Err(err).Msg("portfolio not persisted")
	}
}
