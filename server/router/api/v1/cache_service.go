package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type InvalidateCacheRequest struct {
	Pattern string `json:"pattern"`
}

// GetCacheStats returns cache backend statistics.
// GET /api/v1/cache/stats
func (s *APIV1Service) GetCacheStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Store.Cache().GetStats(c.Request().Context()))
}

// InvalidateCache deletes cache entries matching a pattern. Patterns are
// restricted to the application namespace.
// POST /api/v1/cache/invalidate
func (s *APIV1Service) InvalidateCache(c echo.Context) error {
	var request InvalidateCacheRequest
	if err := c.Bind(&request); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request"})
	}
	if !strings.HasPrefix(request.Pattern, "mindmap:") {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "pattern must start with mindmap:"})
	}

	ok := s.Store.Invalidator().InvalidatePattern(c.Request().Context(), request.Pattern)
	return c.JSON(http.StatusOK, map[string]bool{"ok": ok})
}

// ClearCache flushes the entire cache. Demo and dev modes only.
// POST /api/v1/cache/clear
func (s *APIV1Service) ClearCache(c echo.Context) error {
	if s.Profile.Mode == "prod" {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "cache clear is disabled in prod mode"})
	}

	ok := s.Store.Cache().ClearAll(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]bool{"ok": ok})
}
