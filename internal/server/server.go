// Package server exposes the archive over HTTP: search, query
// translation, model metadata, and operational endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/VictoriaMetrics/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/mr-karan/abode/internal/abodeql"
	"github.com/mr-karan/abode/internal/ai"
	"github.com/mr-karan/abode/internal/config"
	"github.com/mr-karan/abode/internal/core"
	"github.com/mr-karan/abode/internal/postgres"
)

// Server is the HTTP API.
type Server struct {
	app    *fiber.App
	store  *postgres.Store
	assist *ai.Assist
	config config.ServerConfig
	log    *slog.Logger
}

// Options holds dependencies for creating a Server.
type Options struct {
	Config config.ServerConfig
	Store  *postgres.Store
	Assist *ai.Assist
	Logger *slog.Logger
}

// New creates the server and registers all routes.
func New(opts Options) *Server {
	s := &Server{
		store:  opts.Store,
		assist: opts.Assist,
		config: opts.Config,
		log:    opts.Logger.With("component", "server"),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "abode",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	s.app.Use(s.requestID)
	s.app.Get("/healthz", s.handleHealth)
	s.app.Get("/metrics", s.handleMetrics)

	api := s.app.Group("/api/v1", s.requireToken)
	api.Get("/models", s.handleListModels)
	api.Post("/search/:model", s.handleSearch)
	api.Post("/ql/translate", s.handleTranslate)
	api.Post("/ql/validate", s.handleValidate)
	api.Post("/assist", s.handleAssist)

	return s
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.log.Info("http server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return SendError(c, fiberErr.Code, fiberErr.Message)
	}
	s.log.Error("unhandled request error", "path", c.Path(), "error", err)
	return SendError(c, fiber.StatusInternalServerError, "internal error")
}

// requestID tags every request for log correlation.
func (s *Server) requestID(c *fiber.Ctx) error {
	id := c.Get("X-Request-ID")
	if id == "" {
		id = uuid.NewString()
	}
	c.Set("X-Request-ID", id)
	c.Locals("request_id", id)
	return c.Next()
}

// requireToken enforces the optional static bearer token.
func (s *Server) requireToken(c *fiber.Ctx) error {
	if s.config.APIToken == "" {
		return c.Next()
	}
	token := strings.TrimPrefix(c.Get("Authorization"), "Bearer ")
	if token != s.config.APIToken {
		return SendError(c, fiber.StatusUnauthorized, "invalid or missing API token")
	}
	return c.Next()
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	if err := s.store.Ping(c.Context()); err != nil {
		return SendError(c, fiber.StatusServiceUnavailable, "database unreachable")
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleMetrics(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	metrics.WritePrometheus(c.Response().BodyWriter(), true)
	return nil
}

// SendError writes a uniform error envelope.
func SendError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

// queryErrorKind names the abodeql error kind for API responses, or
// "" when err is not a query error.
func queryErrorKind(err error) string {
	var (
		parseErr     *abodeql.ParseError
		joinerErr    *abodeql.JoinerError
		unknownErr   *abodeql.UnknownFieldError
		typeErr      *abodeql.UnsupportedTypeError
		unlabeledErr *abodeql.UnlabeledSymbolError
		dirErr       *abodeql.OrderDirectionError
	)
	switch {
	case errors.As(err, &parseErr):
		return "parse_error"
	case errors.As(err, &joinerErr):
		return "joiner_error"
	case errors.As(err, &unknownErr):
		return "unknown_field"
	case errors.As(err, &typeErr):
		return "unsupported_type"
	case errors.As(err, &unlabeledErr):
		return "unlabeled_symbol"
	case errors.As(err, &dirErr):
		return "order_direction"
	default:
		return ""
	}
}

// sendQueryError converts a compile failure into a 400, or falls
// through to a 500 for anything unexpected.
func (s *Server) sendQueryError(c *fiber.Ctx, err error) error {
	if errors.Is(err, core.ErrUnknownModel) {
		return SendError(c, fiber.StatusNotFound, "unsupported model")
	}
	if kind := queryErrorKind(err); kind != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
			"kind":  kind,
		})
	}
	s.log.Error("search failed", "error", err)
	return SendError(c, fiber.StatusInternalServerError, "search failed")
}
