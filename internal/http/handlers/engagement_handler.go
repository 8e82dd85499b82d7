package handlers

import (
	"bytes"
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"garagesale/internal/log"
	"garagesale/internal/services"
	"garagesale/internal/validate"
)

type EngagementHandler struct {
	Engagement *services.EngagementService
}

// View serves POST /products/:id/view.
func (h *EngagementHandler) View(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id", "invalid listing id")
	}
	n, err := h.Engagement.IncrementView(c.UserContext(), id)
	if err != nil {
		return apiError(c, "engagement.view", err)
	}
	return c.JSON(fiber.Map{"views": n})
}

// Search serves POST /products/:id/search.
func (h *EngagementHandler) Search(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id", "invalid listing id")
	}
	n, err := h.Engagement.IncrementSearch(c.UserContext(), id)
	if err != nil {
		return apiError(c, "engagement.search", err)
	}
	return c.JSON(fiber.Map{"searches": n})
}

// Featured serves POST /products/:id/featured. The body is a bare JSON
// boolean or {"featured": bool}.
func (h *EngagementHandler) Featured(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id", "invalid listing id")
	}
	featured, ok := parseFeatured(c.Body())
	if !ok {
		return badRequest(c, "featured", "body must be true or false")
	}
	if err := h.Engagement.SetFeatured(c.UserContext(), id, featured); err != nil {
		return apiError(c, "engagement.featured", err)
	}
	log.Audit(c, "listing.featured", map[string]any{"id": id, "featured": featured})
	return c.JSON(fiber.Map{"id": id, "featured": featured})
}

func parseFeatured(body []byte) (bool, bool) {
	body = bytes.TrimSpace(body)
	var v bool
	if err := json.Unmarshal(body, &v); err == nil {
		return v, true
	}
	var wrapped struct {
		Featured *bool `json:"featured"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil || wrapped.Featured == nil {
		return false, false
	}
	return *wrapped.Featured, true
}
