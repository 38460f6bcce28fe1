// Package server exposes the pipeline over HTTP: a bounded search
// endpoint, a streamed NDJSON systematic endpoint, and a health probe.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/CoReason-AI/coreason-search/internal/embed"
	cserrors "github.com/CoReason-AI/coreason-search/internal/errors"
	"github.com/CoReason-AI/coreason-search/internal/schema"
	"github.com/CoReason-AI/coreason-search/internal/search"
	"github.com/CoReason-AI/coreason-search/internal/store"
)

// HeaderRequestID carries the per-request id echoed back to callers and
// threaded through logs.
const HeaderRequestID = "X-Request-ID"

// errorBody is the JSON error envelope for non-2xx responses.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Server is the HTTP surface over one engine.
type Server struct {
	echo     *echo.Echo
	engine   *search.Engine
	docs     *store.DocumentStore
	embedder embed.Embedder
	logger   *slog.Logger
}

// New wires the routes. The document store and embedder back the health
// probe only; retrieval goes through the engine.
func New(engine *search.Engine, docs *store.DocumentStore, embedder embed.Embedder, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{echo: e, engine: engine, docs: docs, embedder: embedder, logger: logger}

	e.Use(s.requestID)
	e.POST("/search", s.handleSearch)
	e.POST("/search/systematic", s.handleSystematic)
	e.GET("/health", s.handleHealth)

	return s
}

// Handler returns the routed handler. Used by httptest and by callers
// that manage their own http.Server.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on addr until Shutdown or failure.
func (s *Server) Start(addr string) error {
	s.logger.Info("http_listening", slog.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// requestID assigns a uuid to every request, echoes it in the response
// header, and logs the request outcome.
func (s *Server) requestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Response().Header().Set(HeaderRequestID, id)
		c.Set("request_id", id)

		began := time.Now()
		err := next(c)
		s.logger.Info("request_completed",
			slog.String("request_id", id),
			slog.String("method", c.Request().Method),
			slog.String("path", c.Request().URL.Path),
			slog.Int("status", c.Response().Status),
			slog.Duration("duration", time.Since(began)))
		return err
	}
}

func (s *Server) handleSearch(c echo.Context) error {
	var req schema.SearchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{
			Code:    cserrors.ErrCodeInvalidRequest,
			Message: "malformed request body",
		})
	}

	resp, err := s.engine.Execute(c.Request().Context(), &req)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSystematic(c echo.Context) error {
	var req schema.SearchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{
			Code:    cserrors.ErrCodeInvalidRequest,
			Message: "malformed request body",
		})
	}

	stream, err := s.engine.ExecuteSystematic(c.Request().Context(), &req)
	if err != nil {
		return s.writeError(c, err)
	}
	defer stream.Close()

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "application/x-ndjson")
	resp.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(resp)
	for stream.Next() {
		if err := enc.Encode(stream.Hit()); err != nil {
			// Consumer went away; Close fires the completion audit.
			s.logger.Warn("systematic_write_failed", slog.String("error", err.Error()))
			return nil
		}
		resp.Flush()
	}
	if err := stream.Err(); err != nil {
		// Status is already committed; the truncated stream is the signal.
		s.logger.Warn("systematic_stream_failed", slog.String("error", err.Error()))
	}
	return nil
}

func (s *Server) handleHealth(c echo.Context) error {
	database := "connected"
	if err := s.docs.Ping(c.Request().Context()); err != nil {
		database = "disconnected"
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":   "ready",
		"database": database,
		"embedder": s.embedder.Provider(),
	})
}

// writeError maps a pipeline error onto the wire: validation failures
// carry their message, everything else stays opaque.
func (s *Server) writeError(c echo.Context, err error) error {
	code := cserrors.GetCode(err)
	if code == cserrors.ErrCodeInvalidRequest {
		return c.JSON(http.StatusBadRequest, errorBody{Code: code, Message: err.Error()})
	}

	s.logger.Error("request_failed", slog.String("error", err.Error()))
	return c.JSON(http.StatusInternalServerError, errorBody{
		Code:    code,
		Message: "internal error",
	})
}
