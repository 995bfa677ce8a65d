package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mr-karan/abode/internal/abodeql"
	"github.com/mr-karan/abode/pkg/models"
)

// ModelInfo describes one searchable model for clients building
// query UIs.
type ModelInfo struct {
	Name       string          `json:"name"`
	Table      string          `json:"table"`
	PrimaryKey string          `json:"primary_key"`
	Fields     []abodeql.Field `json:"fields"`
	FTSFields  []string        `json:"fts_fields,omitempty"`
	Refs       []RefInfo       `json:"refs,omitempty"`
}

// RefInfo describes one reference edge.
type RefInfo struct {
	Name       string `json:"name"`
	Target     string `json:"target"`
	AlwaysJoin bool   `json:"always_join"`
}

// handleListModels returns the searchable model registry.
//
// GET /api/v1/models
func (s *Server) handleListModels(c *fiber.Ctx) error {
	out := make([]ModelInfo, 0, len(models.Names()))
	for _, m := range models.All() {
		info := ModelInfo{
			Name:       m.Name,
			Table:      m.Table,
			PrimaryKey: m.PrimaryKey,
			Fields:     m.Fields,
		}
		for _, f := range m.Fields {
			if m.IsFTS(f.Name) {
				info.FTSFields = append(info.FTSFields, f.Name)
			}
		}
		for _, r := range m.Refs {
			info.Refs = append(info.Refs, RefInfo{
				Name:       r.Name,
				Target:     r.Target.Name,
				AlwaysJoin: r.AlwaysJoin,
			})
		}
		out = append(out, info)
	}
	return c.JSON(fiber.Map{"models": out})
}
