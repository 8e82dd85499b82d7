package handlers

import (
	"github.com/gofiber/fiber/v2"

	"garagesale/internal/services"
)

// ReferenceHandler serves the static reference data the filter sidebar needs.
type ReferenceHandler struct {
	Catalog *services.CatalogService
}

type categoryOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

func (h *ReferenceHandler) Categories(c *fiber.Ctx) error {
	cats, err := h.Catalog.ListCategories(c.UserContext())
	if err != nil {
		return apiError(c, "categories.list", err)
	}
	out := make([]categoryOption, 0, len(cats))
	for _, cat := range cats {
		out = append(out, categoryOption{Value: cat.Name, Label: cat.Name})
	}
	return c.JSON(fiber.Map{"categories": out})
}

func (h *ReferenceHandler) Locations(c *fiber.Ctx) error {
	provs, locs, err := h.Catalog.ListLocations(c.UserContext())
	if err != nil {
		return apiError(c, "locations.list", err)
	}
	return c.JSON(fiber.Map{"provinces": provs, "localities": locs})
}
