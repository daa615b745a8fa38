// Copyright (c) Microsoft. All rights reserved.

// Package httpapi exposes the conversation and knowledge services over HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/microsoft/foundry-agents/go/internal/config"
	"github.com/microsoft/foundry-agents/go/internal/conversation"
	"github.com/microsoft/foundry-agents/go/internal/knowledge"
	"github.com/microsoft/foundry-agents/go/internal/metrics"
)

// Deps are the services behind the routes. Knowledge routes are registered
// only when VectorStores and Datasets are set.
type Deps struct {
	Conversation *conversation.Service
	VectorStores *knowledge.VectorStores
	Datasets     *knowledge.Datasets
	AgentConfig  *config.AgentConfiguration
	Metrics      *metrics.Collector
	Logger       *slog.Logger

	// RateLimit is the sustained requests per second allowed per client.
	// Zero disables limiting.
	RateLimit float64

	// RequestTimeout bounds a message round trip. Zero means no bound.
	RequestTimeout time.Duration

	// A2A, when set, serves one agent over the Agent2Agent protocol.
	A2A *A2A
}

// Server is the HTTP front end.
type Server struct {
	echo *echo.Echo
	deps Deps
}

// New builds the server and its routes.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(deps.Logger)

	s := &Server{echo: e, deps: deps}

	e.Use(middleware.Recover())
	e.Use(requestLogger(deps.Logger))
	if deps.Metrics != nil {
		e.Use(metricsMiddleware(deps.Metrics))
	}
	if deps.RateLimit > 0 {
		e.Use(rateLimiter(deps.RateLimit))
	}

	s.routes()
	return s
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler { return s.echo }

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) routes() {
	e := s.echo
	e.GET("/health", s.health)
	if s.deps.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.deps.Metrics.Handler()))
	}

	e.POST("/message", s.sendMessage)
	e.POST("/threads", s.createThread)
	e.POST("/threads/:threadId/messages", s.addMessage)

	if s.deps.A2A != nil {
		e.GET("/a2a/.well-known/agent-card.json", s.agentCard)
		e.GET("/a2a/.well-known/agent.json", s.agentCard)
		e.POST("/a2a", s.a2aRPC)
		e.POST("/a2a/", s.a2aRPC)
	}

	if s.deps.VectorStores != nil && s.deps.Datasets != nil {
		e.POST("/vector-stores", s.createVectorStore)
		e.POST("/vector-stores/initialize", s.initializeVectorStores)
		e.GET("/vector-stores/:id", s.getVectorStore)
		e.GET("/vector-stores/:id/files", s.listVectorStoreFiles)
		e.POST("/vector-stores/:id/files", s.addVectorStoreFile)
		e.POST("/vector-stores/:id/clean", s.cleanVectorStore)

		e.GET("/datasets/files", s.listFiles)
		e.POST("/datasets/files", s.uploadFile)
		e.GET("/datasets/files/:id", s.getFile)
		e.DELETE("/datasets/files/:id", s.deleteFile)
	}
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
				logger.LogAttrs(c.Request().Context(), slog.LevelError, "request failed", attrs...)
				return nil
			}
			logger.LogAttrs(c.Request().Context(), slog.LevelInfo, "request", attrs...)
			return nil
		},
	})
}

func metricsMiddleware(m *metrics.Collector) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = http.StatusInternalServerError
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				}
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			m.RecordHTTPRequest(c.Request().Method, path, status, time.Since(start))
			return err
		}
	}
}

func rateLimiter(rps float64) echo.MiddlewareFunc {
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(rps),
		Burst:     burst,
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/health" || c.Path() == "/metrics"
		},
		Store: store,
	})
}
