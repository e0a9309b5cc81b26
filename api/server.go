// Package api provides the HTTP REST API server for MarketPulse.
//
// It exposes quotes, history, news, symbol search, the dashboard snapshot,
// watchlist and portfolio management, the chat assistant, and a WebSocket
// stream of refresh updates.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/seenimoa/marketpulse/internal/assistant"
	"github.com/seenimoa/marketpulse/internal/config"
	"github.com/seenimoa/marketpulse/internal/market"
	"github.com/seenimoa/marketpulse/internal/portfolio"
	"github.com/seenimoa/marketpulse/pkg/models"
)

// DefaultUserID is used when a request carries no X-User-ID header.
const DefaultUserID = "local"

// UserHeader carries the caller's user id.
const UserHeader = "X-User-ID"

// chatSessionID is the single chat session each user has over the API.
const chatSessionID = "main"

// QuoteService fetches quotes and history.
type QuoteService interface {
	GetQuotes(ctx context.Context, symbols []string) (models.QuoteResult, error)
	GetHistory(ctx context.Context, symbol string, r models.Range) (models.HistoryResult, error)
}

// NewsService fetches headlines.
type NewsService interface {
	GetNews(ctx context.Context) (models.NewsResult, error)
}

// Deps are the components the server is built from.
type Deps struct {
	Quotes    QuoteService
	News      NewsService
	Market    *market.Store
	Books     *portfolio.Manager
	Assistant *assistant.Assistant
	KV        assistant.KV
	Logger    zerolog.Logger
}

// Server is the HTTP API server.
type Server struct {
	router chi.Router
	cfg    *config.Config
	deps   Deps
	hub    *WSHub
	log    zerolog.Logger
	start  time.Time

	sessMu   sync.Mutex
	sessions map[string]*assistant.Session
}

// NewServer creates a configured API server with all routes and
// middleware. Market refreshes are forwarded to WebSocket clients.
func NewServer(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		cfg:      cfg,
		deps:     deps,
		hub:      NewWSHub(),
		log:      deps.Logger.With().Str("component", "api").Logger(),
		start:    time.Now(),
		sessions: make(map[string]*assistant.Session),
	}
	if deps.Market != nil {
		deps.Market.OnUpdate(func(u market.Update) {
			s.hub.Broadcast(WSMessage{Type: string(u.Kind), UserID: u.UserID, Data: u})
		})
	}
	s.router = s.buildRouter()
	return s
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WSHub { return s.hub }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(s.log))
	r.Use(middleware.Recoverer)
	r.Use(userID)

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", UserHeader},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)
		r.Get("/config", s.handleGetConfig)

		// WebSocket is registered outside the timeout group.
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			// Market data
			r.Get("/quotes", s.handleQuotes)
			r.Get("/dashboard", s.handleDashboard)
			r.Get("/history/{symbol}", s.handleHistory)
			r.Get("/news", s.handleNews)
			r.Get("/search", s.handleSearch)

			// Watchlist
			r.Get("/watchlist", s.handleGetWatchlist)
			r.Post("/watchlist", s.handleAddWatchlist)
			r.Delete("/watchlist/{symbol}", s.handleRemoveWatchlist)

			// Portfolio
			r.Get("/portfolio", s.handleGetPortfolio)
			r.Post("/portfolio", s.handleAddPosition)
			r.Delete("/portfolio/{symbol}", s.handleRemovePosition)

			// Chat
			r.Get("/chat", s.handleGetChat)
			r.Post("/chat", s.handleChat)
			r.Post("/chat/reset", s.handleResetChat)
		})
	})

	return r
}

// ============================================================
// Middleware
// ============================================================

// accessLog writes one zerolog line per request.
func accessLog(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				ev := log.Info()
				if ww.Status() >= http.StatusInternalServerError {
					ev = log.Error()
				}
				ev.Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("duration", time.Since(start)).
					Str("request_id", middleware.GetReqID(r.Context())).
					Msg("request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

type userKey struct{}

// userID stores the caller's user id in the request context.
func userID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(UserHeader))
		if id == "" {
			id = DefaultUserID
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, id)))
	})
}

// UserFrom returns the user id of the request.
func UserFrom(ctx context.Context) string {
	if id, ok := ctx.Value(userKey{}).(string); ok {
		return id
	}
	return DefaultUserID
}

// ============================================================
// Sessions
// ============================================================

// session returns the user's chat session, loading it on first use.
// Actions in the chat run against the user's book.
func (s *Server) session(ctx context.Context, user string) (*assistant.Session, error) {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	if sess, ok := s.sessions[user]; ok {
		return sess, nil
	}
	if s.deps.Assistant == nil || s.deps.KV == nil {
		return nil, errors.New("chat is not configured")
	}

	a := s.deps.Assistant
	if s.deps.Books != nil {
		book, err := s.deps.Books.For(ctx, user)
		if err != nil {
			return nil, err
		}
		a = a.WithCapabilities(book)
	}
	sess := assistant.NewSession(a, s.deps.KV, user, chatSessionID)
	if err := sess.Load(ctx); err != nil {
		return nil, err
	}
	s.sessions[user] = sess
	return sess, nil
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// SymbolRequest is the body for POST /api/v1/watchlist.
type SymbolRequest struct {
	Symbol string `json:"symbol"`
}

// PositionRequest is the body for POST /api/v1/portfolio.
type PositionRequest struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
}

// ChatRequest is the body for POST /api/v1/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is returned by POST /api/v1/chat.
type ChatResponse struct {
	Reply    models.Message   `json:"reply"`
	Messages []models.Message `json:"messages"`
}

// ============================================================
// Helpers
// ============================================================

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
