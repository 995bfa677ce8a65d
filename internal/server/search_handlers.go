package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mr-karan/abode/internal/core"
)

// handleSearch executes a search against one archive model.
//
// POST /api/v1/search/:model
func (s *Server) handleSearch(c *fiber.Ctx) error {
	var req core.SearchRequest
	if err := c.BodyParser(&req); err != nil {
		return SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Model = c.Params("model")

	resp, err := core.Search(c.Context(), s.store, s.log, req)
	if err != nil {
		return s.sendQueryError(c, err)
	}
	return c.JSON(resp)
}
