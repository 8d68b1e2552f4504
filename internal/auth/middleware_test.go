package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"coopfund/internal/models"
)

// staticRoles is an in-memory RoleChecker
type staticRoles map[string][]models.Role

func (s staticRoles) HasRole(_ context.Context, wallet string, role models.Role) (bool, error) {
	for _, r := range s[wallet] {
		if r == role {
			return true, nil
		}
	}
	return false, nil
}

func asWallet(wallet string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("wallet_address", wallet)
		c.Next()
	}
}

func TestRoleMiddlewareGatesOperatorRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	checker := staticRoles{
		"operator":  {models.RoleBackend},
		"treasurer": {models.RoleTreasurer},
	}

	newRouter := func(wallet string) *gin.Engine {
		r := gin.New()
		ops := r.Group("/api/ops")
		ops.Use(asWallet(wallet))
		ops.Use(RoleMiddleware(checker, models.RoleBackend))
		ops.POST("/redemptions/:id/forfeit", func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		return r
	}

	cases := []struct {
		wallet string
		want   int
	}{
		{"operator", http.StatusOK},
		{"treasurer", http.StatusForbidden},
		{"nobody", http.StatusForbidden},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/ops/redemptions/abc/forfeit", nil)
		newRouter(tc.wallet).ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Errorf("wallet %s: expected %d, got %d", tc.wallet, tc.want, w.Code)
		}
	}
}

func TestRoleMiddlewareRequiresAuthentication(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/x", RoleMiddleware(staticRoles{}, models.RoleBackend), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without wallet in context, got %d", w.Code)
	}
}
