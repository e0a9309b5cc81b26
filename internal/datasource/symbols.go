package datasource

import (
	"sort"
	"strings"
)

// SymbolMap maps display symbols to Yahoo Finance provider symbols.
// Symbols not in the map are sent to the provider unchanged.
var SymbolMap = map[string]string{
	"SPX":    "^GSPC",
	"NDX":    "^NDX",
	"DJI":    "^DJI",
	"VIX":    "^VIX",
	"DAX":    "^GDAXI",
	"FTSE":   "^FTSE",
	"N225":   "^N225",
	"GOLD":   "GC=F",
	"SILVER": "SI=F",
	"OIL":    "CL=F",
	"EURUSD": "EURUSD=X",
	"GBPUSD": "GBPUSD=X",
	"USDJPY": "JPY=X",
	"BTC":    "BTC-USD",
	"ETH":    "ETH-USD",
}

var providerToDisplay = func() map[string]string {
	m := make(map[string]string, len(SymbolMap))
	for display, provider := range SymbolMap {
		m[provider] = display
	}
	return m
}()

// Kind classifies a directory entry.
type Kind string

const (
	KindIndex     Kind = "index"
	KindCommodity Kind = "commodity"
	KindFX        Kind = "fx"
	KindCrypto    Kind = "crypto"
	KindStock     Kind = "stock"
	KindETF       Kind = "etf"
)

// SymbolInfo is one entry of the symbol directory.
type SymbolInfo struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Kind   Kind   `json:"kind"`
}

// Directory is the static symbol directory used for names and lookup.
var Directory = []SymbolInfo{
	{"SPX", "S&P 500", KindIndex},
	{"NDX", "Nasdaq 100", KindIndex},
	{"DJI", "Dow Jones Industrial Average", KindIndex},
	{"VIX", "CBOE Volatility Index", KindIndex},
	{"DAX", "DAX Performance Index", KindIndex},
	{"FTSE", "FTSE 100", KindIndex},
	{"N225", "Nikkei 225", KindIndex},
	{"GOLD", "Gold Futures", KindCommodity},
	{"SILVER", "Silver Futures", KindCommodity},
	{"OIL", "Crude Oil WTI", KindCommodity},
	{"EURUSD", "EUR/USD", KindFX},
	{"GBPUSD", "GBP/USD", KindFX},
	{"USDJPY", "USD/JPY", KindFX},
	{"BTC", "Bitcoin", KindCrypto},
	{"ETH", "Ethereum", KindCrypto},
	{"AAPL", "Apple Inc.", KindStock},
	{"MSFT", "Microsoft Corporation", KindStock},
	{"NVDA", "NVIDIA Corporation", KindStock},
	{"GOOGL", "Alphabet Inc.", KindStock},
	{"AMZN", "Amazon.com Inc.", KindStock},
	{"META", "Meta Platforms Inc.", KindStock},
	{"TSLA", "Tesla Inc.", KindStock},
	{"AMD", "Advanced Micro Devices", KindStock},
	{"INTC", "Intel Corporation", KindStock},
	{"NFLX", "Netflix Inc.", KindStock},
	{"CRM", "Salesforce Inc.", KindStock},
	{"ORCL", "Oracle Corporation", KindStock},
	{"AVGO", "Broadcom Inc.", KindStock},
	{"TSM", "Taiwan Semiconductor", KindStock},
	{"ASML", "ASML Holding", KindStock},
	{"SAP", "SAP SE", KindStock},
	{"JPM", "JPMorgan Chase & Co.", KindStock},
	{"BAC", "Bank of America", KindStock},
	{"V", "Visa Inc.", KindStock},
	{"MA", "Mastercard Inc.", KindStock},
	{"JNJ", "Johnson & Johnson", KindStock},
	{"PFE", "Pfizer Inc.", KindStock},
	{"KO", "Coca-Cola Company", KindStock},
	{"PEP", "PepsiCo Inc.", KindStock},
	{"PG", "Procter & Gamble", KindStock},
	{"WMT", "Walmart Inc.", KindStock},
	{"XOM", "Exxon Mobil", KindStock},
	{"T", "AT&T Inc.", KindStock},
	{"VZ", "Verizon Communications", KindStock},
	{"F", "Ford Motor Company", KindStock},
	{"SNAP", "Snap Inc.", KindStock},
	{"SOFI", "SoFi Technologies", KindStock},
	{"PLTR", "Palantir Technologies", KindStock},
	{"NIO", "NIO Inc.", KindStock},
	{"BABA", "Alibaba Group", KindStock},
	{"SONY", "Sony Group", KindStock},
	{"TM", "Toyota Motor", KindStock},
	{"NVO", "Novo Nordisk", KindStock},
	{"NSRGY", "Nestle S.A.", KindStock},
	{"ENPH", "Enphase Energy", KindStock},
	{"FSLR", "First Solar", KindStock},
	{"NEE", "NextEra Energy", KindStock},
	{"COIN", "Coinbase Global", KindStock},
	{"MSTR", "MicroStrategy", KindStock},
	{"SPY", "SPDR S&P 500 ETF", KindETF},
	{"QQQ", "Invesco QQQ Trust", KindETF},
	{"VTI", "Vanguard Total Stock Market ETF", KindETF},
	{"VEA", "Vanguard FTSE Developed Markets ETF", KindETF},
	{"BND", "Vanguard Total Bond Market ETF", KindETF},
	{"SCHD", "Schwab US Dividend Equity ETF", KindETF},
	{"VGK", "Vanguard FTSE Europe ETF", KindETF},
	{"ICLN", "iShares Global Clean Energy ETF", KindETF},
	{"IBIT", "iShares Bitcoin Trust", KindETF},
}

var directoryIndex = func() map[string]SymbolInfo {
	m := make(map[string]SymbolInfo, len(Directory))
	for _, info := range Directory {
		m[info.Symbol] = info
	}
	return m
}()

// NormalizeSymbol trims and uppercases a display symbol.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// NormalizeSymbols trims, uppercases and deduplicates symbols, keeping the
// first occurrence order. Empty entries are dropped.
func NormalizeSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		n := NormalizeSymbol(s)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// ToProvider converts a display symbol to its Yahoo Finance symbol.
func ToProvider(symbol string) string {
	s := NormalizeSymbol(symbol)
	if p, ok := SymbolMap[s]; ok {
		return p
	}
	return s
}

// FromProvider converts a Yahoo Finance symbol back to its display symbol.
func FromProvider(symbol string) string {
	if d, ok := providerToDisplay[symbol]; ok {
		return d
	}
	return NormalizeSymbol(symbol)
}

// DisplayName returns the directory name for a symbol, or the symbol itself.
func DisplayName(symbol string) string {
	if info, ok := directoryIndex[NormalizeSymbol(symbol)]; ok {
		return info.Name
	}
	return NormalizeSymbol(symbol)
}

// Lookup returns the directory entry for a symbol.
func Lookup(symbol string) (SymbolInfo, bool) {
	info, ok := directoryIndex[NormalizeSymbol(symbol)]
	return info, ok
}

// Search returns directory entries whose symbol or name contains query,
// case-insensitively. Exact symbol matches come first, then symbol prefix
// matches, then the rest in symbol order.
func Search(query string, limit int) []SymbolInfo {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	type scored struct {
		info  SymbolInfo
		score int
	}
	var hits []scored
	for _, info := range Directory {
		sym := strings.ToLower(info.Symbol)
		name := strings.ToLower(info.Name)
		switch {
		case sym == q:
			hits = append(hits, scored{info, 0})
		case strings.HasPrefix(sym, q):
			hits = append(hits, scored{info, 1})
		case strings.Contains(sym, q) || strings.Contains(name, q):
			hits = append(hits, scored{info, 2})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score < hits[j].score
		}
		return hits[i].info.Symbol < hits[j].info.Symbol
	})

	out := make([]SymbolInfo, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.info)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
