package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/seenimoa/marketpulse/internal/analysis/technical"
	"github.com/seenimoa/marketpulse/internal/datasource"
	"github.com/seenimoa/marketpulse/internal/market"
	"github.com/seenimoa/marketpulse/internal/portfolio"
	"github.com/seenimoa/marketpulse/pkg/models"
	"github.com/seenimoa/marketpulse/pkg/utils"
)

// ============================================================
// Health
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeOK(w, map[string]string{"status": "ok"})
}

// ============================================================
// Market data
// ============================================================

func (s *Server) handleQuotes(w http.ResponseWriter, r *http.Request) {
	symbols := s.cfg.Assistant.Tracked
	if q := r.URL.Query().Get("symbols"); q != "" {
		symbols = strings.Split(q, ",")
	}
	symbols = datasource.NormalizeSymbols(symbols)
	if len(symbols) == 0 {
		writeError(w, http.StatusBadRequest, "no symbols requested")
		return
	}

	res, err := s.deps.Quotes.GetQuotes(r.Context(), symbols)
	if err != nil && len(res.Data) == 0 {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeOK(w, res)
}

// DashboardResponse is returned by GET /api/v1/dashboard.
type DashboardResponse struct {
	market.Snapshot
	State        technical.MarketState `json:"state"`
	MarketStatus string                `json:"marketStatus"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if s.deps.Market == nil {
		writeError(w, http.StatusServiceUnavailable, "market data store is not running")
		return
	}
	snap := s.deps.Market.Snapshot()

	fearSym := s.cfg.Assistant.FearIndexSymbol
	fear := s.cfg.Assistant.DefaultFearIndex
	if q, ok := s.deps.Market.Quote(fearSym); ok && q.PriceValue() > 0 {
		fear = q.PriceValue()
	}
	writeOK(w, DashboardResponse{
		Snapshot:     snap,
		State:        technical.ClassifyMarket(technical.PositiveBias(snap.Quotes, fearSym), fear),
		MarketStatus: utils.MarketStatus(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	symbol := datasource.NormalizeSymbol(chi.URLParam(r, "symbol"))
	rangeParam := r.URL.Query().Get("range")
	if rangeParam == "" {
		rangeParam = s.cfg.Assistant.HistoryRange
	}
	rng, err := models.ParseRange(rangeParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.deps.Quotes.GetHistory(r.Context(), symbol, rng)
	if err != nil && len(res.History) == 0 {
		status := http.StatusBadGateway
		if errors.Is(err, datasource.ErrSymbolNotFound) || errors.Is(err, datasource.ErrNoData) {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}
	writeOK(w, res)
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	if s.deps.News == nil {
		writeError(w, http.StatusServiceUnavailable, "news is not configured")
		return
	}
	res, err := s.deps.News.GetNews(r.Context())
	if err != nil && len(res.News) == 0 {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 && limit < len(res.News) {
		res.News = res.News[:limit]
	}
	writeOK(w, res)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := 10
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		limit = n
	}
	writeOK(w, datasource.Search(q, limit))
}

// ============================================================
// Watchlist
// ============================================================

func (s *Server) book(w http.ResponseWriter, r *http.Request) (*portfolio.Book, bool) {
	if s.deps.Books == nil {
		writeError(w, http.StatusServiceUnavailable, "portfolio storage is not configured")
		return nil, false
	}
	b, err := s.deps.Books.For(r.Context(), UserFrom(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return b, true
}

func (s *Server) handleGetWatchlist(w http.ResponseWriter, r *http.Request) {
	b, ok := s.book(w, r)
	if !ok {
		return
	}
	writeOK(w, b.Watchlist())
}

func (s *Server) handleAddWatchlist(w http.ResponseWriter, r *http.Request) {
	var req SymbolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	symbol := datasource.NormalizeSymbol(req.Symbol)
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	b, ok := s.book(w, r)
	if !ok {
		return
	}
	status := http.StatusOK
	if b.AddToWatchlist(symbol) {
		status = http.StatusCreated
	}
	writeJSON(w, status, APIResponse{Success: true, Data: b.Watchlist()})
}

func (s *Server) handleRemoveWatchlist(w http.ResponseWriter, r *http.Request) {
	b, ok := s.book(w, r)
	if !ok {
		return
	}
	symbol := chi.URLParam(r, "symbol")
	if !b.RemoveFromWatchlist(symbol) {
		writeError(w, http.StatusNotFound, symbol+" is not on the watchlist")
		return
	}
	writeOK(w, b.Watchlist())
}

// ============================================================
// Portfolio
// ============================================================

func (s *Server) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	b, ok := s.book(w, r)
	if !ok {
		return
	}
	if s.deps.Market != nil {
		snap, err := s.deps.Market.RefreshPortfolio(r.Context(), b.UserID())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeOK(w, snap)
		return
	}

	var quotes []models.Quote
	if held := b.Symbols(); len(held) > 0 {
		res, _ := s.deps.Quotes.GetQuotes(r.Context(), held)
		quotes = res.Data
	}
	writeOK(w, b.Valuation(quotes, s.now()))
}

func (s *Server) handleAddPosition(w http.ResponseWriter, r *http.Request) {
	var req PositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if datasource.NormalizeSymbol(req.Symbol) == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	b, ok := s.book(w, r)
	if !ok {
		return
	}
	if err := b.AddToPortfolio(req.Symbol, req.Quantity); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, APIResponse{Success: true, Data: b.Portfolio()})
}

func (s *Server) handleRemovePosition(w http.ResponseWriter, r *http.Request) {
	b, ok := s.book(w, r)
	if !ok {
		return
	}
	symbol := chi.URLParam(r, "symbol")
	if !b.RemovePosition(symbol) {
		writeError(w, http.StatusNotFound, "no position in "+symbol)
		return
	}
	writeOK(w, b.Portfolio())
}

// ============================================================
// Chat
// ============================================================

func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r.Context(), UserFrom(r.Context()))
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeOK(w, sess.Messages())
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	user := UserFrom(r.Context())
	sess, err := s.session(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	reply, err := sess.Send(r.Context(), req.Message)
	if err != nil {
		// the reply was produced; only persistence failed
		s.log.Warn().Err(err).Str("user", user).Msg("chat transcript not saved")
	}

	s.hub.Broadcast(WSMessage{Type: "chat", UserID: user, Data: reply})
	writeOK(w, ChatResponse{Reply: reply, Messages: sess.Messages()})
}

func (s *Server) handleResetChat(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r.Context(), UserFrom(r.Context()))
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err := sess.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeOK(w, sess.Messages())
}
