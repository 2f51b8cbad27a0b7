package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/qr-table-order/services"
)

// WebSocketAuthMiddleware authenticates the dashboard socket. Browsers
// cannot set headers on the upgrade request, so the token may also come in
// the "token" query parameter.
func WebSocketAuthMiddleware(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token = bearerToken(c)
		}
		if token == "" {
			token, _ = c.Cookie(AuthCookieName)
		}
		authenticate(c, users, token)
	}
}
