package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hoferino/dealintel/pkg/shared/tenancy"
)

// securityHeaders sets the same baseline headers the teacher's Echo
// middleware applied, translated to gin.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Next()
	}
}

// requestLogger logs one structured line per request via slog, the way the
// teacher's services log request outcomes.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("http_request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// scopeFromHeaders builds a tenancy.Scope from the X-Org-ID/X-Deal-ID
// headers a trusted upstream (API gateway/BFF) is expected to set after
// authenticating the caller. dealintel's HTTP surface does not itself
// terminate user auth; it trusts scope headers set by the layer in front
// of it, and the /admin/usage handlers check pkg/policy on top of that
// scope.
func scopeFromHeaders(c *gin.Context) (tenancy.Scope, string, string, bool) {
	orgID := c.GetHeader("X-Org-ID")
	dealID := c.GetHeader("X-Deal-ID")
	userID := c.GetHeader("X-User-ID")
	role := c.GetHeader("X-User-Role")
	if orgID == "" || userID == "" || role == "" {
		return tenancy.Scope{}, "", "", false
	}
	return tenancy.Scope{OrgID: orgID, DealID: dealID}, userID, role, true
}

// requireScope extracts and validates tenant scope + identity, writing a
// 401 and aborting the chain if any required header is missing.
func requireScope(c *gin.Context) (tenancy.Scope, string, string, bool) {
	scope, userID, role, ok := scopeFromHeaders(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing tenant scope headers"})
		c.Abort()
		return tenancy.Scope{}, "", "", false
	}
	return scope, userID, role, true
}
