package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/marketpulse/internal/assistant"
	"github.com/seenimoa/marketpulse/internal/store"
	"github.com/seenimoa/marketpulse/pkg/models"
)

var _ assistant.Capabilities = (*Book)(nil)

func TestNewUserGetsDefaultWatchlist(t *testing.T) {
	m := NewManager(store.NewMemory(), zerolog.Nop())
	b, err := m.For(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, DefaultWatchlist, b.Watchlist())
	assert.Empty(t, b.Portfolio())

	again, err := m.For(context.Background(), "u1")
	require.NoError(t, err)
	assert.Same(t, b, again)
}

func TestWatchlistSetSemantics(t *testing.T) {
	m := NewManager(store.NewMemory(), zerolog.Nop())
	b, _ := m.For(context.Background(), "u1")

	assert.True(t, b.AddToWatchlist("tsla"))
	assert.False(t, b.AddToWatchlist("TSLA"))
	assert.False(t, b.AddToWatchlist("  "))
	assert.True(t, b.RemoveFromWatchlist("AAPL"))
	assert.False(t, b.RemoveFromWatchlist("AAPL"))
	assert.Equal(t, []string{"MSFT", "NVDA", "GOOGL", "AMZN", "TSLA"}, b.Watchlist())
}

func TestPositionsAccumulate(t *testing.T) {
	m := NewManager(store.NewMemory(), zerolog.Nop())
	b, _ := m.For(context.Background(), "u1")

	require.NoError(t, b.AddToPortfolio("AAPL", 2))
	require.NoError(t, b.AddToPortfolio("aapl", 1.5))
	require.NoError(t, b.AddToPortfolio("MSFT", 1))
	assert.ErrorIs(t, b.AddToPortfolio("MSFT", 0), ErrInvalidQuantity)
	assert.ErrorIs(t, b.AddToPortfolio("MSFT", -1), ErrInvalidQuantity)

	assert.Equal(t, []models.PortfolioPosition{{Symbol: "AAPL", Quantity: 3.5}, {Symbol: "MSFT", Quantity: 1}}, b.Portfolio())

	assert.True(t, b.RemovePosition("AAPL"))
	assert.False(t, b.RemovePosition("AAPL"))
	assert.Len(t, b.Portfolio(), 1)
}

func TestBookPersistsEveryMutation(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	m := NewManager(kv, zerolog.Nop())
	b, _ := m.For(ctx, "u1")
	b.AddToWatchlist("TSLA")
	require.NoError(t, b.AddToPortfolio("NVDA", 4))

	raw, err := kv.Get(ctx, "u1", StateKey)
	require.NoError(t, err)
	var st state
	require.NoError(t, json.Unmarshal(raw, &st))
	assert.Contains(t, st.Watchlist, "TSLA")
	assert.Equal(t, []models.PortfolioPosition{{Symbol: "NVDA", Quantity: 4}}, st.Positions)

	// a fresh manager restores the saved book
	restored, err := NewManager(kv, zerolog.Nop()).For(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, b.Watchlist(), restored.Watchlist())
	assert.Equal(t, b.Portfolio(), restored.Portfolio())
}

type failingStore struct{ store.Store }

func (failingStore) Put(context.Context, string, string, []byte) error { return errors.New("disk full") }

func TestFailedSaveKeepsState(t *testing.T) {
	m := NewManager(failingStore{store.NewMemory()}, zerolog.Nop())
	b, err := m.For(context.Background(), "u1")
	require.NoError(t, err)
	require.NoError(t, b.AddToPortfolio("AAPL", 1))
	assert.Len(t, b.Portfolio(), 1)
}

func TestValuation(t *testing.T) {
	m := NewManager(store.NewMemory(), zerolog.Nop())
	b, _ := m.For(context.Background(), "u1")
	require.NoError(t, b.AddToPortfolio("AAPL", 2))
	require.NoError(t, b.AddToPortfolio("ZZZZ", 5))

	now := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	snap := b.Valuation([]models.Quote{models.NewQuote("AAPL", "Apple Inc.", 180, 3, 1.69, now)}, now)

	require.Len(t, snap.Positions, 2)
	assert.True(t, snap.Positions[0].Priced)
	assert.InDelta(t, 360, snap.Positions[0].MarketValue, 1e-9)
	assert.InDelta(t, 6, snap.Positions[0].DayChange, 1e-9)
	assert.False(t, snap.Positions[1].Priced)
	assert.InDelta(t, 360, snap.TotalValue, 1e-9)
	assert.Equal(t, now, snap.UpdatedAt)
}

func TestSymbolsAndUsers(t *testing.T) {
	m := NewManager(store.NewMemory(), zerolog.Nop())
	b, _ := m.For(context.Background(), "bob")
	_, _ = m.For(context.Background(), "alice")
	require.NoError(t, b.AddToPortfolio("TSLA", 1))
	require.NoError(t, b.AddToPortfolio("AAPL", 1))

	assert.Equal(t, []string{"AAPL", "MSFT", "NVDA", "GOOGL", "AMZN", "TSLA"}, b.Symbols())
	assert.Equal(t, []string{"alice", "bob"}, m.Users())
}

func TestCreateThemedPortfolioThroughBook(t *testing.T) {
	m := NewManager(store.NewMemory(), zerolog.Nop())
	b, _ := m.For(context.Background(), "u1")

	out, ok := assistant.TryExecuteAction("Create a tech portfolio", b, assistant.DefaultTables(), assistant.GoalDefaults{Years: 5})
	require.True(t, ok)
	assert.Contains(t, out, "Technology Leaders")
	assert.Len(t, b.Portfolio(), 5)
	assert.Contains(t, b.Watchlist(), "AMD")
}
