package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/qr-table-order/models"
	"github.com/yeremiapane/qr-table-order/services"
	"github.com/yeremiapane/qr-table-order/utils"
)

const (
	AuthCookieName = "auth_token"

	ContextUserKey   = "user"
	ContextUserIDKey = "user_id"
	ContextRoleKey   = "role"
)

// AuthMiddleware accepts the auth_token cookie or an
// "Authorization: Bearer" header and loads the staff user behind it.
func AuthMiddleware(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			token, _ = c.Cookie(AuthCookieName)
		}
		authenticate(c, users, token)
	}
}

func authenticate(c *gin.Context, users *services.UserService, token string) {
	if token == "" {
		utils.AbortWithError(c, utils.Unauthorized("authentication required"))
		return
	}

	user, err := users.Authenticate(c.Request.Context(), token)
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}

	c.Set(ContextUserKey, user)
	c.Set(ContextUserIDKey, user.ID)
	c.Set(ContextRoleKey, user.Role)
	c.Next()
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// CurrentUser returns the staff user set by AuthMiddleware.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

// CurrentRole returns the role of the authenticated staff user.
func CurrentRole(c *gin.Context) models.Role {
	v, ok := c.Get(ContextRoleKey)
	if !ok {
		return ""
	}
	role, _ := v.(models.Role)
	return role
}
