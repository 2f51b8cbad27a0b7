package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/qr-table-order/models"
	"github.com/yeremiapane/qr-table-order/services"
	"github.com/yeremiapane/qr-table-order/utils"
)

const (
	TableSessionCookieName = "table_session"

	contextTableSessionKey = "table_session"
)

// TableSessionMiddleware decodes the table_session cookie when present and
// refuses blocked devices. It never checks the session against the table;
// that is the job of the service handling the request.
func TableSessionMiddleware(gate *services.DeviceGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(TableSessionCookieName)
		if err != nil || raw == "" {
			c.Next()
			return
		}

		session, err := models.DecodeTableSession(raw)
		if err != nil {
			// Treat a garbled cookie like a missing one.
			c.Next()
			return
		}

		blocked, err := gate.IsBlocked(c.Request.Context(), session.DeviceID)
		if err != nil {
			utils.AbortWithError(c, err)
			return
		}
		if blocked {
			utils.AbortWithError(c, services.ErrDeviceBlocked)
			return
		}

		c.Set(contextTableSessionKey, session)
		c.Next()
	}
}

// TableSessionFrom returns the decoded cookie, or nil when the request has
// none.
func TableSessionFrom(c *gin.Context) *models.TableSession {
	v, ok := c.Get(contextTableSessionKey)
	if !ok {
		return nil
	}
	session, _ := v.(*models.TableSession)
	return session
}
