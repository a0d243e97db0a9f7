package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestScopeFromHeaders_RequiresOrgUserRole(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("X-Org-ID", "org-1")
	c.Request.Header.Set("X-Deal-ID", "deal-1")
	c.Request.Header.Set("X-User-ID", "user-1")
	c.Request.Header.Set("X-User-Role", "member")

	scope, userID, role, ok := scopeFromHeaders(c)
	require.True(t, ok)
	require.Equal(t, "org-1", scope.OrgID)
	require.Equal(t, "deal-1", scope.DealID)
	require.Equal(t, "user-1", userID)
	require.Equal(t, "member", role)
}

func TestScopeFromHeaders_MissingRoleFails(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("X-Org-ID", "org-1")
	c.Request.Header.Set("X-User-ID", "user-1")

	_, _, _, ok := scopeFromHeaders(c)
	require.False(t, ok)
}

func TestRequireScope_AbortsWithUnauthorizedWhenMissing(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	_, _, _, ok := requireScope(c)
	require.False(t, ok)
	require.True(t, c.IsAborted())
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
