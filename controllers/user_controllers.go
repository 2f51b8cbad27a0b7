package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/qr-table-order/middlewares"
	"github.com/yeremiapane/qr-table-order/services"
	"github.com/yeremiapane/qr-table-order/utils"
)

type UserController struct {
	Users        *services.UserService
	CookieSecure bool
}

func NewUserController(users *services.UserService, cookieSecure bool) *UserController {
	return &UserController{Users: users, CookieSecure: cookieSecure}
}

// Login -> POST /auth/login, returns the token and sets the auth cookie.
func (uc *UserController) Login(c *gin.Context) {
	var input struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, bindError(err))
		return
	}

	result, err := uc.Users.Login(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	maxAge := int(time.Until(result.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middlewares.AuthCookieName, result.Token, maxAge, "/", "", uc.CookieSecure, true)

	utils.RespondSuccess(c, http.StatusOK, gin.H{
		"token":     result.Token,
		"expiresAt": result.ExpiresAt,
		"user":      result.User,
	})
}

// Logout -> POST /auth/logout. Dropping the cookie is enough for this
// browser; use ForceLogout to kill tokens held elsewhere.
func (uc *UserController) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middlewares.AuthCookieName, "", -1, "/", "", uc.CookieSecure, true)
	utils.RespondSuccess(c, http.StatusOK, nil)
}

// GetProfile -> GET /auth/me
func (uc *UserController) GetProfile(c *gin.Context) {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		utils.RespondError(c, utils.Unauthorized("authentication required"))
		return
	}
	utils.RespondSuccess(c, http.StatusOK, gin.H{"user": user})
}

// GetAllUsers -> GET /admin/users
func (uc *UserController) GetAllUsers(c *gin.Context) {
	users, err := uc.Users.List(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, users)
}

// CreateUser -> POST /admin/users
func (uc *UserController) CreateUser(c *gin.Context) {
	var input services.CreateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, bindError(err))
		return
	}

	user, err := uc.Users.Create(c.Request.Context(), input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, user)
}

// UpdateUser -> PUT /admin/users/:id
func (uc *UserController) UpdateUser(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	var input services.UpdateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, bindError(err))
		return
	}

	user, err := uc.Users.Update(c.Request.Context(), id, input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, user)
}

// ForceLogout -> POST /admin/users/:id/logout
func (uc *UserController) ForceLogout(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	user, err := uc.Users.ForceLogout(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, gin.H{"user": user})
}
