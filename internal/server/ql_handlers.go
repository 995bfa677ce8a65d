package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mr-karan/abode/internal/abodeql"
	"github.com/mr-karan/abode/internal/core"
)

// TranslateRequest asks for the SQL a search request would run.
type TranslateRequest struct {
	core.SearchRequest
}

// TranslateResponse is the compile-only preview of a query.
type TranslateResponse struct {
	SQL          string   `json:"sql"`
	Args         []any    `json:"args"`
	Models       []string `json:"models"`
	ReturnFields []string `json:"return_fields,omitempty"`
	Valid        bool     `json:"valid"`
	Error        string   `json:"error,omitempty"`
	Kind         string   `json:"kind,omitempty"`
}

// handleTranslate compiles a query without executing it. Useful for
// SQL previews and validating queries before a search.
//
// POST /api/v1/ql/translate
func (s *Server) handleTranslate(c *fiber.Ctx) error {
	var req TranslateRequest
	if err := c.BodyParser(&req); err != nil {
		return SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	compiled, _, err := core.Compile(req.SearchRequest)
	if err != nil {
		if kind := queryErrorKind(err); kind != "" {
			return c.JSON(TranslateResponse{Valid: false, Error: err.Error(), Kind: kind})
		}
		return s.sendQueryError(c, err)
	}

	names := make([]string, len(compiled.Models))
	for i, m := range compiled.Models {
		names[i] = m.Name
	}
	return c.JSON(TranslateResponse{
		SQL:          compiled.SQL,
		Args:         compiled.Args,
		Models:       names,
		ReturnFields: compiled.ReturnFields,
		Valid:        true,
	})
}

// ValidateRequest is a bare query to syntax-check.
type ValidateRequest struct {
	Query string `json:"query"`
}

// ValidateResponse reports whether a query parses.
type ValidateResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

// handleValidate checks query syntax only; field resolution needs a
// model and happens at translate/search time.
//
// POST /api/v1/ql/validate
func (s *Server) handleValidate(c *fiber.Ctx) error {
	var req ValidateRequest
	if err := c.BodyParser(&req); err != nil {
		return SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if _, err := abodeql.Parse(req.Query); err != nil {
		return c.JSON(ValidateResponse{Valid: false, Error: err.Error(), Kind: queryErrorKind(err)})
	}
	return c.JSON(ValidateResponse{Valid: true})
}

// AssistRequest asks the AI layer to draft a query.
type AssistRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// handleAssist suggests a search query from natural language.
//
// POST /api/v1/assist
func (s *Server) handleAssist(c *fiber.Ctx) error {
	if s.assist == nil {
		return SendError(c, fiber.StatusNotImplemented, "ai assist is not configured")
	}

	var req AssistRequest
	if err := c.BodyParser(&req); err != nil {
		return SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Prompt == "" {
		return SendError(c, fiber.StatusBadRequest, "prompt is required")
	}

	suggestion, err := s.assist.Suggest(c.Context(), req.Model, req.Prompt)
	if err != nil {
		s.log.Error("assist failed", "error", err)
		return SendError(c, fiber.StatusBadGateway, "suggestion failed")
	}

	// Round-trip the suggestion so broken model output never reaches
	// the client unvalidated.
	valid := true
	if _, err := abodeql.Parse(suggestion); err != nil {
		valid = false
	}
	return c.JSON(fiber.Map{"query": suggestion, "valid": valid})
}
