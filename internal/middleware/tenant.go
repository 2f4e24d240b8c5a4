package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// TenantMiddleware resolves the acting tenant.
// SECURITY: a tenant claim set by the auth middleware from a verified token is
// authoritative; the X-Tenant-ID header can only supply the tenant when no
// claim exists, or confirm it. A header that disagrees with the claim is
// rejected, never trusted. No default fallback - requests without tenant
// context fail closed.
func TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var claimTenant string
		if tid, exists := c.Get("tenant_id"); exists {
			claimTenant = tid.(string)
		}
		headerTenant := c.GetHeader("X-Tenant-ID")

		tenantID := claimTenant
		if tenantID == "" {
			tenantID = headerTenant
		} else if headerTenant != "" && headerTenant != claimTenant {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "TENANT_MISMATCH",
					"message": "X-Tenant-ID header does not match the authenticated tenant.",
				},
			})
			c.Abort()
			return
		}

		if tenantID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "TENANT_REQUIRED",
					"message": "Tenant ID is required. Include X-Tenant-ID header.",
				},
			})
			c.Abort()
			return
		}

		// Set tenant ID in context for handlers to use
		c.Set("tenant_id", tenantID)
		c.Next()
	}
}

// BrandMiddleware extracts brand ID from headers for multi-brand tenants.
// Optional: components and SKUs may be scoped to a brand within a tenant.
func BrandMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		brandID := c.GetHeader("X-Brand-ID")

		if brandID == "" {
			if bid, exists := c.Get("brand_id"); exists {
				brandID = bid.(string)
			}
		}

		if brandID != "" {
			c.Set("brand_id", brandID)
		}
		c.Next()
	}
}

// GetTenantID retrieves the tenant ID from gin context
func GetTenantID(c *gin.Context) string {
	return c.GetString("tenant_id")
}

// GetBrandID retrieves the brand ID from gin context
// Returns empty string if not set (single-brand mode)
func GetBrandID(c *gin.Context) string {
	return c.GetString("brand_id")
}
