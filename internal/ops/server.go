// Package ops serves the operations HTTP endpoints: health, metrics and
// read-only views of leaderboards and balances.
package ops

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"arcade-bot/internal/model"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// Ranker answers leaderboard queries.
type Ranker interface {
	Top(ctx context.Context, chatID int64, period model.Period, limit int) ([]*model.LeaderboardEntry, error)
}

// Accounts reads balances and ledger history.
type Accounts interface {
	Balance(ctx context.Context, telegramID int64) (int64, error)
	History(ctx context.Context, telegramID int64, limit int) ([]*model.Transaction, error)
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Deps are the collaborators the endpoints read from.
type Deps struct {
	Ranker   Ranker
	Accounts Accounts
	Metrics  http.Handler
	Checks   map[string]HealthCheck
}

// Server is the operations HTTP server.
type Server struct {
	engine *gin.Engine
	server *http.Server
	addr   string
}

// NewServer creates the server and registers its routes.
func NewServer(addr, mode string, deps Deps) *Server {
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	h := &handlers{deps: deps}
	engine.GET("/healthz", h.health)
	if deps.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(deps.Metrics))
	}
	engine.GET("/leaderboard/:chat", h.leaderboard)
	engine.GET("/users/:id/balance", h.balance)
	engine.GET("/users/:id/transactions", h.transactions)

	return &Server{engine: engine, addr: addr}
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.addr).Msg("Ops server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("ops server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ops server forced to shutdown: %w", err)
	}
	log.Info().Msg("Ops server stopped")
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("Ops request")
	}
}

type handlers struct {
	deps Deps
}

func (h *handlers) health(c *gin.Context) {
	status := http.StatusOK
	results := make(map[string]string, len(h.deps.Checks))
	for name, check := range h.deps.Checks {
		if err := check(c.Request.Context()); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}
	c.JSON(status, gin.H{"checks": results})
}

func (h *handlers) leaderboard(c *gin.Context) {
	chatID, err := strconv.ParseInt(c.Param("chat"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}
	period, err := model.ParsePeriod(c.DefaultQuery("period", string(model.PeriodDay)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	entries, err := h.deps.Ranker.Top(c.Request.Context(), chatID, period, limit)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("Leaderboard query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if entries == nil {
		entries = []*model.LeaderboardEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"chat_id": chatID, "period": period, "entries": entries})
}

func (h *handlers) balance(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}
	balance, err := h.deps.Accounts.Balance(c.Request.Context(), userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("Balance query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "balance": balance})
}

type transactionView struct {
	ID        int64     `json:"id"`
	Amount    int64     `json:"amount"`
	Type      string    `json:"type"`
	RoundID   *string   `json:"round_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *handlers) transactions(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	txs, err := h.deps.Accounts.History(c.Request.Context(), userID, limit)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("History query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	views := make([]transactionView, len(txs))
	for i, tx := range txs {
		views[i] = transactionView{ID: tx.ID, Amount: tx.Amount, Type: tx.Type, RoundID: tx.RoundID, CreatedAt: tx.CreatedAt}
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "transactions": views})
}

func parseUserID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, false
	}
	return id, true
}

func parseLimit(c *gin.Context) (int, bool) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit <= 0 || limit > maxLimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("limit must be in 1..%d", maxLimit)})
		return 0, false
	}
	return limit, true
}
