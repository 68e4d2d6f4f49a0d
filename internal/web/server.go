// Package web exposes the trade ledger and tax reports over HTTP.
package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"taxfolio/internal/domain"
	"taxfolio/internal/errs"
	"taxfolio/internal/services/report"
	"taxfolio/internal/services/valuation"
	"taxfolio/internal/storage/ledger"
)

// Server wires the HTTP surface to the ledger store and the valuation
// resolver.
type Server struct {
	addr     string
	token    string
	store    *ledger.Store
	resolver *valuation.Resolver
	logger   *zap.Logger
}

// NewServer creates a server. An empty token disables the query-token check.
func NewServer(addr, token string, store *ledger.Store, resolver *valuation.Resolver, logger *zap.Logger) *Server {
	return &Server{addr: addr, token: token, store: store, resolver: resolver, logger: logger}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /trades", s.guard(s.handleList))
	mux.HandleFunc("POST /trades", s.guard(s.handleCreate))
	mux.HandleFunc("POST /trades/lock", s.guard(s.handleLock))
	mux.HandleFunc("GET /trades/{id}", s.guard(s.handleGet))
	mux.HandleFunc("PUT /trades/{id}", s.guard(s.handleUpdate))
	mux.HandleFunc("DELETE /trades/{id}", s.guard(s.handleDelete))
	mux.HandleFunc("GET /tax/summary", s.guard(s.handleTaxSummary))
	mux.HandleFunc("GET /tax/preview", s.guard(s.handleTaxPreview))
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("http server listening", zap.String("addr", s.addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) guard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && r.URL.Query().Get("token") != s.token {
			s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}
		next(w, r)
	}
}

type listResponse struct {
	Trades     []domain.Trade `json:"trades"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var f ledger.Filter
	if v := q.Get("asset"); v != "" {
		asset, err := domain.ParseAsset(v)
		if err != nil {
			s.writeError(w, err)
			return
		}
		f.Asset = asset
	}
	if v := q.Get("side"); v != "" {
		side, err := domain.ParseSide(v)
		if err != nil {
			s.writeError(w, err)
			return
		}
		f.Side = side
	}
	var err error
	if f.FromMillis, err = parseMillis(q.Get("from")); err != nil {
		s.writeError(w, err)
		return
	}
	if f.ToMillis, err = parseMillis(q.Get("to")); err != nil {
		s.writeError(w, err)
		return
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			s.writeError(w, errs.Validation("invalid limit %q", v))
			return
		}
	}

	trades, next, err := s.store.List(f, limit, q.Get("cursor"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, listResponse{Trades: trades, NextCursor: next})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	t, err := decodeTrade(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	t.ID = domain.NewTradeID(t.Timestamp)
	t.Locked = false

	if err := s.resolver.Resolve(r.Context(), t); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.store.Put(t); err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("trade created",
		zap.String("id", t.ID),
		zap.String("asset", string(t.Asset)),
		zap.String("side", string(t.Side)))
	s.writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	t, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	t, err := decodeTrade(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	// Ids are immutable once assigned; the path id wins.
	t.ID = id

	if err := s.resolver.Resolve(r.Context(), t); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.store.Update(id, t); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.Delete(id); err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("trade deleted", zap.String("id", id))
	w.WriteHeader(http.StatusNoContent)
}

type lockRequest struct {
	IDs []string `json:"ids"`
}

type lockResponse struct {
	Locked []string `json:"locked"`
}

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	var req lockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errs.Validation("invalid request body"))
		return
	}
	locked, err := s.store.Lock(req.IDs)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, lockResponse{Locked: locked})
}

func (s *Server) handleTaxSummary(w http.ResponseWriter, r *http.Request) {
	year, err := domain.ParseTaxYear(r.URL.Query().Get("taxYear"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	all, err := s.store.LoadAll(0, 0)
	if err != nil {
		s.writeError(w, err)
		return
	}
	rep, err := report.BuildTaxYear(year, all)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleTaxPreview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := domain.ParseCivilDate(q.Get("from"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	to, err := domain.ParseCivilDate(q.Get("to"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	all, err := s.store.LoadAll(0, 0)
	if err != nil {
		s.writeError(w, err)
		return
	}
	rep, err := report.BuildWindow(from, to, all)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rep)
}

// parseMillis parses an optional epoch-millisecond query parameter.
func parseMillis(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil || ms < 0 {
		return 0, errs.Validation("invalid timestamp %q, want epoch milliseconds", v)
	}
	return ms, nil
}

// decodeTrade parses a request body into a trade, discarding any derived
// fields the caller may have sent.
func decodeTrade(r *http.Request) (*domain.Trade, error) {
	var t domain.Trade
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		return nil, errs.Validation("invalid request body")
	}
	t.UnitPriceGBP = decimal.Zero
	t.ValueGBP = decimal.Zero
	t.FeeGBP = decimal.Zero
	t.FXSource = ""
	return &t, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := errs.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
		s.writeJSON(w, status, map[string]string{"error": "internal error"})
		return
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
