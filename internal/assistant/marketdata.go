package assistant

import (
	"context"

	"github.com/seenimoa/marketpulse/pkg/models"
)

//go:generate mockgen -package=assistant -destination=mock_marketdata_test.go -source=marketdata.go MarketData

// MarketData is the quote fetcher the engine reads from. Errors are
// returned, not swallowed; the engine decides to degrade to cached data.
type MarketData interface {
	GetQuotes(ctx context.Context, symbols []string) (models.QuoteResult, error)
	GetHistory(ctx context.Context, symbol string, r models.Range) (models.HistoryResult, error)
}
