// Package server exposes the session actors over a JSON HTTP surface. Every
// response is wrapped in the {success, data|error, serverTimestamp}
// envelope; a websocket feed per session streams live combat events.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rgilks/spf-mcp-sub000/internal/config"
	"github.com/rgilks/spf-mcp-sub000/internal/domain"
	"github.com/rgilks/spf-mcp-sub000/internal/session"
)

// Pinger is the health-check face of the database pool. Nil means no
// database is configured.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP layer over the session manager.
type Server struct {
	echo     *echo.Echo
	sessions *session.Manager
	db       Pinger
	timeout  time.Duration
	version  string
	logger   *zap.Logger
}

// New builds the server and registers all routes.
func New(cfg config.ServerConfig, sessions *session.Manager, db Pinger, version string, logger *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		sessions: sessions,
		db:       db,
		timeout:  cfg.RequestTimeout,
		version:  version,
		logger:   logger,
	}

	e.Use(requestLogger(logger))

	e.GET("/healthz", s.handleHealth)

	v1 := e.Group("/v1")
	v1.POST("/sessions", s.handleCreateSession)
	v1.GET("/sessions/:id", s.handleGetSession)
	v1.GET("/sessions/:id/events", s.handleEvents)

	v1.POST("/sessions/:id/combat/start", s.handleCombatStart)
	v1.POST("/sessions/:id/combat/deal", s.handleCombatDeal)
	v1.POST("/sessions/:id/combat/advance", s.handleCombatAdvance)
	v1.POST("/sessions/:id/combat/hold", s.handleCombatHold)
	v1.POST("/sessions/:id/combat/interrupt", s.handleCombatInterrupt)
	v1.POST("/sessions/:id/combat/end-round", s.handleCombatEndRound)
	v1.GET("/sessions/:id/combat", s.handleCombatState)

	v1.POST("/sessions/:id/deck/reset", s.handleDeckReset)
	v1.POST("/sessions/:id/deck/deal", s.handleDeckDeal)
	v1.POST("/sessions/:id/deck/recall", s.handleDeckRecall)
	v1.GET("/sessions/:id/deck", s.handleDeckState)

	v1.POST("/sessions/:id/dice/roll", s.handleDiceRoll)
	v1.POST("/sessions/:id/dice/verify", s.handleDiceVerify)

	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("http server listening", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// envelope is the uniform response wrapper.
type envelope struct {
	Success         bool       `json:"success"`
	Data            any        `json:"data,omitempty"`
	Error           *errorBody `json:"error,omitempty"`
	ServerTimestamp time.Time  `json:"serverTimestamp"`
}

type errorBody struct {
	Kind    domain.Kind `json:"kind"`
	Message string      `json:"message"`
}

func respond(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, envelope{
		Success:         true,
		Data:            data,
		ServerTimestamp: time.Now().UTC(),
	})
}

func respondErr(c echo.Context, err error) error {
	kind := domain.KindOf(err)
	body := errorBody{Kind: kind, Message: err.Error()}
	if kind == domain.KindInternal {
		// Internal details stay server-side.
		body.Message = "internal error"
	}
	return c.JSON(statusFor(kind), envelope{
		Success:         false,
		Error:           &body,
		ServerTimestamp: time.Now().UTC(),
	})
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindStateConflict:
		return http.StatusConflict
	case domain.KindDependency:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// requestContext bounds each handler's work so a wedged actor call surfaces
// as an error instead of a hung connection.
func (s *Server) requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), s.timeout)
}

// lookup resolves the session from the :id path param and touches it.
func (s *Server) lookup(c echo.Context) (*session.Session, error) {
	id := c.Param("id")
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	s.sessions.Touch(c.Request().Context(), id)
	return sess, nil
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Info("request",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
			)
			return err
		}
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	status := map[string]any{"status": "ok", "version": s.version}
	if s.db != nil {
		ctx, cancel := s.requestContext(c)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			status["status"] = "degraded"
			status["database"] = "unreachable"
			return c.JSON(http.StatusServiceUnavailable, status)
		}
		status["database"] = "ok"
	}
	return c.JSON(http.StatusOK, status)
}
