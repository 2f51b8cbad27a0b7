package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/qr-table-order/middlewares"
	"github.com/yeremiapane/qr-table-order/models"
	"github.com/yeremiapane/qr-table-order/services"
	"github.com/yeremiapane/qr-table-order/utils"
)

// SessionController handles the customer's table login.
type SessionController struct {
	Sessions     *services.SessionService
	CookieSecure bool
}

func NewSessionController(sessions *services.SessionService, cookieSecure bool) *SessionController {
	return &SessionController{Sessions: sessions, CookieSecure: cookieSecure}
}

// Login -> POST /session/login
func (sc *SessionController) Login(c *gin.Context) {
	var req struct {
		TableID  uint   `json:"tableId" binding:"required"`
		DeviceID string `json:"deviceId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, bindError(err))
		return
	}

	grant, err := sc.Sessions.OpenSession(c.Request.Context(), req.TableID, req.DeviceID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	value, err := models.EncodeTableSession(grant.Session)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	sc.setCookie(c, value, int(sc.Sessions.TTL().Seconds()))

	utils.RespondSuccess(c, http.StatusOK, gin.H{
		"table":     grant.Table,
		"session":   grant.Session,
		"expiresAt": grant.ExpiresAt,
	})
}

// Current -> GET /session/login, re-validates the cookie against the table.
func (sc *SessionController) Current(c *gin.Context) {
	session := middlewares.TableSessionFrom(c)
	if session == nil {
		c.JSON(http.StatusOK, utils.ErrorResponse{Success: false, Error: "no table session"})
		return
	}

	check, err := sc.Sessions.ValidateSession(c.Request.Context(), session)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if !check.Valid {
		sc.setCookie(c, "", -1)
		c.JSON(http.StatusOK, utils.ErrorResponse{Success: false, Error: check.Reason})
		return
	}

	utils.RespondSuccess(c, http.StatusOK, gin.H{
		"session": session,
		"table":   check.Table,
	})
}

// Logout -> POST /session/logout. Only the cookie is dropped; the table
// stays open until staff close it.
func (sc *SessionController) Logout(c *gin.Context) {
	sc.setCookie(c, "", -1)
	utils.RespondSuccess(c, http.StatusOK, nil)
}

func (sc *SessionController) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middlewares.TableSessionCookieName, value, maxAge, "/", "", sc.CookieSecure, true)
}
