package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hoferino/dealintel/pkg/observability"
)

const adminUsageResource = "admin_usage"

func (s *Server) dateRangeFromQuery(c *gin.Context) observability.DateRange {
	now := time.Now()
	rng := observability.DateRange{From: now.Add(-30 * 24 * time.Hour), To: now}
	if from := c.Query("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			rng.From = t
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			rng.To = t
		}
	}
	return rng
}

func (s *Server) authorizeAdminUsage(c *gin.Context) (orgID string, ok bool) {
	scope, userID, role, sok := requireScope(c)
	if !sok {
		return "", false
	}
	if err := s.authz.Authorize(c.Request.Context(), scope, userID, role, "view", adminUsageResource); err != nil {
		writeError(c, err)
		return "", false
	}
	return scope.OrgID, true
}

func (s *Server) handleUsageDaily(c *gin.Context) {
	orgID, ok := s.authorizeAdminUsage(c)
	if !ok {
		return
	}
	out, err := s.usageRepo.DailyCosts(c.Request.Context(), orgID, s.dateRangeFromQuery(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleUsageByFeature(c *gin.Context) {
	orgID, ok := s.authorizeAdminUsage(c)
	if !ok {
		return
	}
	out, err := s.usageRepo.CostsByFeature(c.Request.Context(), orgID, s.dateRangeFromQuery(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleUsageByModel(c *gin.Context) {
	orgID, ok := s.authorizeAdminUsage(c)
	if !ok {
		return
	}
	out, err := s.usageRepo.CostsByModel(c.Request.Context(), orgID, s.dateRangeFromQuery(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleUsageByDeal(c *gin.Context) {
	orgID, ok := s.authorizeAdminUsage(c)
	if !ok {
		return
	}
	out, err := s.usageRepo.PerDealSummary(c.Request.Context(), orgID, s.dateRangeFromQuery(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleUsageErrors(c *gin.Context) {
	orgID, ok := s.authorizeAdminUsage(c)
	if !ok {
		return
	}
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	out, err := s.usageRepo.RecentErrors(c.Request.Context(), orgID, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleUsageSummary(c *gin.Context) {
	orgID, ok := s.authorizeAdminUsage(c)
	if !ok {
		return
	}
	out, err := s.usageRepo.OverallSummaryFor(c.Request.Context(), orgID, s.dateRangeFromQuery(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
