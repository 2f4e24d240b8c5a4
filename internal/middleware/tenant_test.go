package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func tenantTestRouter(claim string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if claim != "" {
		r.Use(func(c *gin.Context) {
			c.Set("tenant_id", claim)
			c.Next()
		})
	}
	r.Use(TenantMiddleware())
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, GetTenantID(c))
	})
	return r
}

func TestTenantMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		claim      string
		header     string
		wantStatus int
		wantTenant string
	}{
		{"claim only", "tenant-a", "", http.StatusOK, "tenant-a"},
		{"header only", "", "tenant-a", http.StatusOK, "tenant-a"},
		{"claim and matching header", "tenant-a", "tenant-a", http.StatusOK, "tenant-a"},
		{"header cannot override claim", "tenant-a", "tenant-b", http.StatusUnauthorized, ""},
		{"no tenant context", "", "", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tenantTestRouter(tt.claim)
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("X-Tenant-ID", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantTenant, w.Body.String())
			}
		})
	}
}

func TestTenantMiddlewareNeverScopesToForeignHeader(t *testing.T) {
	// A token for tenant-a combined with another tenant's header must not
	// produce a request scoped to that other tenant.
	r := tenantTestRouter("tenant-a")
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-Tenant-ID", "tenant-b")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotContains(t, w.Body.String(), "tenant-b")
	assert.Contains(t, w.Body.String(), "TENANT_MISMATCH")
}
