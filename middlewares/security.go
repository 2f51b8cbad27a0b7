package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/qr-table-order/utils"
)

func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")

		c.Next()
	}
}

// GeoRestriction refuses requests whose country header (set by the edge
// proxy) is not in countries. An empty list lets everything through, and
// so does a request without the header.
func GeoRestriction(header string, countries []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(countries))
	for _, cc := range countries {
		allowed[strings.ToUpper(strings.TrimSpace(cc))] = true
	}

	return func(c *gin.Context) {
		if len(allowed) == 0 {
			c.Next()
			return
		}
		country := strings.ToUpper(strings.TrimSpace(c.GetHeader(header)))
		if country != "" && !allowed[country] {
			utils.AbortWithError(c, utils.NewAppError(utils.KindForbidden, "REGION_NOT_ALLOWED", "service is not available in your region"))
			return
		}
		c.Next()
	}
}
