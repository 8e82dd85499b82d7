package handlers

import (
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"

	"garagesale/internal/log"
)

// MediaHandler serves listing images from one directory.
type MediaHandler struct {
	Dir string
}

func NewMediaHandler(dir string) *MediaHandler {
	if !filepath.IsAbs(dir) {
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
	}
	return &MediaHandler{Dir: dir}
}

// Serve handles GET /uploads/*, refusing anything that could leave Dir.
func (h *MediaHandler) Serve(c *fiber.Ctx) error {
	path := c.Params("*")
	rawLower := strings.ToLower(path)
	// encoded traversal, raw "..", backslashes and NUL bytes
	if strings.Contains(rawLower, "..") || strings.Contains(rawLower, "%2e") ||
		strings.Contains(rawLower, "%5c") || strings.ContainsAny(rawLower, "\\\x00") {
		log.Security(c, "media.traversal.block", map[string]any{"path": path})
		return c.SendStatus(fiber.StatusNotFound)
	}
	clean := filepath.Clean(path)
	if clean == "." || strings.Contains(clean, "..") || filepath.IsAbs(clean) {
		log.Security(c, "media.traversal.block", map[string]any{"path": path})
		return c.SendStatus(fiber.StatusNotFound)
	}
	return c.SendFile(filepath.Join(h.Dir, clean), true)
}
