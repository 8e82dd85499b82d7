package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"garagesale/internal/domain"
	"garagesale/internal/log"
	"garagesale/internal/services"
	"garagesale/internal/validate"
)

type ProductHandler struct {
	Catalog *services.CatalogService
	// Vocabulary is told about new listings so autocomplete and spelling
	// suggestions pick them up.
	Vocabulary interface{ Invalidate(context.Context) }
}

// List serves GET /products/.
func (h *ProductHandler) List(c *fiber.Ctx) error {
	f, field, ok := parseFilter(c)
	if !ok {
		return badRequest(c, field, "invalid "+field)
	}
	page, err := h.Catalog.Query(c.UserContext(), f)
	if err != nil {
		return apiError(c, "listings.query", err)
	}
	return c.JSON(page)
}

func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id", "invalid listing id")
	}
	l, err := h.Catalog.Get(c.UserContext(), id)
	if err != nil {
		return apiError(c, "listings.get", err)
	}
	return c.JSON(l)
}

// Publish serves POST /products/.
func (h *ProductHandler) Publish(c *fiber.Ctx) error {
	var in domain.NewListing
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "body", "malformed listing")
	}
	l, err := h.Catalog.Publish(c.UserContext(), in)
	if err != nil {
		return apiError(c, "listings.publish", err)
	}
	if h.Vocabulary != nil {
		h.Vocabulary.Invalidate(c.UserContext())
	}
	log.Audit(c, "listing.publish", map[string]any{"id": l.ID, "seller_id": l.Seller.ID})
	return c.Status(fiber.StatusCreated).JSON(l)
}

// parseFilter reads the listing query params. On failure it names the
// offending field.
func parseFilter(c *fiber.Ctx) (domain.ListingFilter, string, bool) {
	var f domain.ListingFilter
	var ok bool

	if raw := c.Query("search"); raw != "" {
		if f.Search, ok = validate.Q(raw); !ok {
			return f, "search", false
		}
	}
	if f.Category, ok = validate.OptionalName(c.Query("category")); !ok {
		return f, "category", false
	}
	if f.Condition, ok = validate.Condition(c.Query("condition")); !ok {
		return f, "condition", false
	}
	if f.Location, ok = validate.OptionalName(c.Query("location")); !ok {
		return f, "location", false
	}
	if f.LocalityID, ok = validate.OptionalID(c.Query("locality")); !ok {
		return f, "locality", false
	}
	if f.PriceMin, ok = validate.Price(c.Query("price_min")); !ok {
		return f, "price_min", false
	}
	if f.PriceMax, ok = validate.Price(c.Query("price_max")); !ok {
		return f, "price_max", false
	}
	if f.EndsIn, ok = validate.EndsIn(c.Query("ends_in")); !ok {
		return f, "ends_in", false
	}
	if f.SellerID, ok = validate.OptionalID(c.Query("seller_id")); !ok {
		return f, "seller_id", false
	}
	if f.ActiveOnly, ok = validate.Bool(c.Query("active_only"), true); !ok {
		return f, "active_only", false
	}
	if f.FeaturedOnly, ok = validate.Bool(c.Query("featured_only"), false); !ok {
		return f, "featured_only", false
	}
	if f.Page, ok = validate.Page(c.Query("page"), 1); !ok {
		return f, "page", false
	}
	if f.PageSize, ok = validate.Page(c.Query("page_size"), domain.DefaultPageSize); !ok {
		return f, "page_size", false
	}
	return f, "", true
}
