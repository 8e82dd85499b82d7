package handlers

import (
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"

	"garagesale/internal/domain"
	"garagesale/internal/log"
	"garagesale/internal/services"
	"garagesale/internal/validate"
)

type SearchHandler struct {
	Service *services.SuggestionService
}

// Suggestions serves GET /search/suggestions?query=&category=.
func (h *SearchHandler) Suggestions(c *fiber.Ctx) error {
	raw := c.Query("query")
	if raw == "" {
		raw = c.Query("q")
	}
	if utf8.RuneCountInString(strings.TrimSpace(raw)) < services.MinSuggestLen {
		return c.JSON(domain.SuggestionResult{Suggestions: []domain.Suggestion{}})
	}
	q, ok := validate.Q(raw)
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "query", "value": raw})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "enter a valid search term"})
	}
	category, ok := validate.OptionalName(c.Query("category"))
	if !ok {
		return badRequest(c, "category", "invalid category")
	}
	res, err := h.Service.Suggest(c.UserContext(), q, category)
	if err != nil {
		return apiError(c, "suggest.error", err)
	}
	return c.JSON(res)
}
