package assistant

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/marketpulse/pkg/models"
)

// fakeCaps records capability calls in memory.
type fakeCaps struct {
	watch     []string
	positions []models.PortfolioPosition
	failAdd   map[string]bool
}

func (f *fakeCaps) Watchlist() []string { return slices.Clone(f.watch) }

func (f *fakeCaps) AddToWatchlist(s string) bool {
	if slices.Contains(f.watch, s) {
		return false
	}
	f.watch = append(f.watch, s)
	return true
}

func (f *fakeCaps) RemoveFromWatchlist(s string) bool {
	i := slices.Index(f.watch, s)
	if i < 0 {
		return false
	}
	f.watch = slices.Delete(f.watch, i, i+1)
	return true
}

func (f *fakeCaps) Portfolio() []models.PortfolioPosition { return slices.Clone(f.positions) }

func (f *fakeCaps) AddToPortfolio(s string, qty float64) error {
	if f.failAdd[s] {
		return errors.New("rejected")
	}
	for i := range f.positions {
		if f.positions[i].Symbol == s {
			f.positions[i].Quantity += qty
			return nil
		}
	}
	f.positions = append(f.positions, models.PortfolioPosition{Symbol: s, Quantity: qty})
	return nil
}

func TestParseCommand(t *testing.T) {
	tables := DefaultTables()
	tests := []struct {
		msg     string
		kind    CommandKind
		symbols []string
		qty     float64
		theme   string
	}{
		{"add tsla to my watchlist", CmdAddWatchlist, []string{"TSLA"}, 0, ""},
		{"Put AMD on the watch list", CmdAddWatchlist, []string{"AMD"}, 0, ""},
		{"Remove AAPL from my watchlist", CmdRemoveWatchlist, []string{"AAPL"}, 0, ""},
		{"buy 2.5 shares of NVDA into my portfolio", CmdAddPortfolio, []string{"NVDA"}, 2.5, ""},
		{"add 10 MSFT to portfolio", CmdAddPortfolio, []string{"MSFT"}, 10, ""},
		{"show me my watchlist", CmdShowWatchlist, nil, 0, ""},
		{"what's in my portfolio", CmdShowPortfolio, nil, 0, ""},
		{"create a watchlist with AAPL, MSFT, THE, AAPL", CmdCreateWatchlist, []string{"AAPL", "MSFT"}, 0, ""},
		{"build me a dividend portfolio", CmdCreateThemedPortfolio, nil, 0, "dividend"},
		{"make me some investments", CmdCreateThemedPortfolio, nil, 0, DefaultTheme},
	}
	for _, tt := range tests {
		cmd, ok := ParseCommand(tt.msg, tables)
		if !ok {
			t.Errorf("ParseCommand(%q): no match", tt.msg)
			continue
		}
		if cmd.Kind != tt.kind {
			t.Errorf("ParseCommand(%q) kind: got %v, want %v", tt.msg, cmd.Kind, tt.kind)
		}
		if !slices.Equal(cmd.Symbols, tt.symbols) {
			t.Errorf("ParseCommand(%q) symbols: got %v, want %v", tt.msg, cmd.Symbols, tt.symbols)
		}
		if cmd.Quantity != tt.qty {
			t.Errorf("ParseCommand(%q) qty: got %v, want %v", tt.msg, cmd.Quantity, tt.qty)
		}
		if cmd.Theme != tt.theme {
			t.Errorf("ParseCommand(%q) theme: got %q, want %q", tt.msg, cmd.Theme, tt.theme)
		}
	}

	for _, msg := range []string{"Analyze AAPL", "how are markets", "portfolio theory"} {
		if _, ok := ParseCommand(msg, tables); ok {
			t.Errorf("ParseCommand(%q): unexpected match", msg)
		}
	}
}

func TestExecuteWatchlist(t *testing.T) {
	caps := &fakeCaps{}
	tables := DefaultTables()

	out, ok := TryExecuteAction("add TSLA to my watchlist", caps, tables, testDefaults)
	require.True(t, ok)
	assert.Contains(t, out, "Added **TSLA**")
	out, _ = TryExecuteAction("add TSLA to my watchlist", caps, tables, testDefaults)
	assert.Contains(t, out, "already on your watchlist")

	out, _ = TryExecuteAction("show my watchlist", caps, tables, testDefaults)
	assert.Contains(t, out, "TSLA")

	out, _ = TryExecuteAction("remove TSLA from my watchlist", caps, tables, testDefaults)
	assert.Contains(t, out, "Removed **TSLA**")
	out, _ = TryExecuteAction("remove TSLA from my watchlist", caps, tables, testDefaults)
	assert.Contains(t, out, "not on your watchlist")
	assert.Empty(t, caps.watch)

	_, ok = TryExecuteAction("Analyze AAPL", caps, tables, testDefaults)
	assert.False(t, ok)
}

func TestExecutePortfolioRejectsNonPositive(t *testing.T) {
	caps := &fakeCaps{}
	out, ok := TryExecuteAction("add 0 shares of AAPL to my portfolio", caps, DefaultTables(), testDefaults)
	require.True(t, ok)
	assert.Contains(t, out, "greater than zero")
	assert.Empty(t, caps.positions)

	out, _ = TryExecuteAction("add -3 AAPL to my portfolio", caps, DefaultTables(), testDefaults)
	assert.Contains(t, out, "greater than zero")
	assert.Empty(t, caps.positions)
}

func TestExecuteWithoutCapabilities(t *testing.T) {
	out, ok := TryExecuteAction("add TSLA to my watchlist", nil, DefaultTables(), testDefaults)
	require.True(t, ok)
	assert.NotEmpty(t, out)
}

func TestCreateTechPortfolio(t *testing.T) {
	caps := &fakeCaps{}
	out, ok := TryExecuteAction("Create a tech portfolio", caps, DefaultTables(), testDefaults)
	require.True(t, ok)

	want := []string{"AAPL", "MSFT", "NVDA", "GOOGL", "AMD"}
	assert.Equal(t, want, caps.watch)
	require.Len(t, caps.positions, len(want))
	for i, p := range caps.positions {
		assert.Equal(t, want[i], p.Symbol)
		assert.Equal(t, 1.0, p.Quantity)
	}
	assert.NotContains(t, out, "Goal check")
}

func TestRealismGate(t *testing.T) {
	tables := DefaultTables()

	blocked := &fakeCaps{}
	out, _ := TryExecuteAction("Create a tech portfolio to turn $20 into $2000", blocked, tables, testDefaults)
	assert.Empty(t, blocked.watch)
	assert.Empty(t, blocked.positions)
	assert.Contains(t, out, "haven't added anything")

	ok := &fakeCaps{}
	out, _ = TryExecuteAction("Create a tech portfolio with $1000 to grow to $1500 in 5 years", ok, tables, testDefaults)
	assert.Len(t, ok.positions, 5)
	assert.Contains(t, out, "Goal check: realistic")
}

func TestCheckRealism(t *testing.T) {
	tests := []struct {
		msg     string
		tag     string
		blocked bool
	}{
		{"turn 20 into 2000", "unrealistic", true},
		{"1000 to 1500", "realistic", false},
		{"1000 to 2000", "ambitious", false},
		{"1000 to 4000", "very aggressive", false},
		{"500 to 5000 over 2 years", "unrealistic", false},
	}
	for _, tt := range tests {
		r, ok := CheckRealism(tt.msg, testDefaults)
		if !ok {
			t.Errorf("CheckRealism(%q): no goal found", tt.msg)
			continue
		}
		if r.Tag != tt.tag || r.Blocked() != tt.blocked {
			t.Errorf("CheckRealism(%q): got %q blocked=%v, want %q blocked=%v", tt.msg, r.Tag, r.Blocked(), tt.tag, tt.blocked)
		}
	}

	if _, ok := CheckRealism("no numbers here", testDefaults); ok {
		t.Error("CheckRealism: expected no goal without numbers")
	}
}

func TestCheckRealismCalendarYear(t *testing.T) {
	r, ok := CheckRealism("Create a tech portfolio with $1000, I want $1500 by 2030", testDefaults)
	require.True(t, ok)
	assert.Equal(t, 1000.0, r.Amount)
	assert.Equal(t, 1500.0, r.Target)
	assert.Equal(t, 4.0, r.Years)
	assert.Equal(t, "ambitious", r.Tag)

	// the calendar year counts from the supplied clock
	later := testDefaults
	later.Now = testNow.AddDate(2, 0, 0)
	r, _ = CheckRealism("Create a tech portfolio with $1000, I want $1500 by 2030", later)
	assert.Equal(t, 2.0, r.Years)
}

func TestCreateThemedPortfolioReportsFailures(t *testing.T) {
	caps := &fakeCaps{failAdd: map[string]bool{"NVDA": true}}
	out, _ := TryExecuteAction("Create a tech portfolio", caps, DefaultTables(), testDefaults)
	assert.True(t, strings.Contains(out, "Could not add: NVDA"), out)
	assert.Len(t, caps.positions, 4)
}
