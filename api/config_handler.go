package api

import (
	"net/http"
	"time"

	"github.com/seenimoa/marketpulse/internal/config"
	"github.com/seenimoa/marketpulse/pkg/utils"
)

// ConfigResponse is the JSON envelope returned by GET /api/v1/config.
type ConfigResponse struct {
	Config *config.Config `json:"config"`
}

// StatusResponse is returned by GET /api/v1/status.
type StatusResponse struct {
	MarketStatus  string    `json:"marketStatus"`
	ServerTime    string    `json:"serverTime"`
	Uptime        string    `json:"uptime"`
	WSClients     int       `json:"wsClients"`
	QuotesUpdated time.Time `json:"quotesUpdated"`
	NewsUpdated   time.Time `json:"newsUpdated"`
	Tracked       int       `json:"tracked"`
}

// handleGetConfig returns the running configuration. It is read-only.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeOK(w, ConfigResponse{Config: s.cfg})
}

// handleStatus reports the market clock and refresh freshness.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	st := StatusResponse{
		MarketStatus: utils.MarketStatusAt(now),
		ServerTime:   utils.FormatDateTimeET(now),
		Uptime:       now.Sub(s.start).Truncate(time.Second).String(),
		WSClients:    s.hub.ClientCount(),
		Tracked:      len(s.cfg.Assistant.Tracked),
	}
	if s.deps.Market != nil {
		snap := s.deps.Market.Snapshot()
		st.QuotesUpdated, st.NewsUpdated = snap.QuotesUpdated, snap.NewsUpdated
	}
	writeOK(w, st)
}

func (s *Server) now() time.Time { return time.Now() }
