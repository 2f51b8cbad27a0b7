package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/qr-table-order/services"
	"github.com/yeremiapane/qr-table-order/utils"
)

// AdminController serves the admin dashboard and the site settings.
type AdminController struct {
	Tables   *services.TableService
	Settings *services.SettingsService
	Rewards  *services.RewardService
}

func NewAdminController(tables *services.TableService, settings *services.SettingsService, rewards *services.RewardService) *AdminController {
	return &AdminController{Tables: tables, Settings: settings, Rewards: rewards}
}

// GetDashboardStats -> GET /admin/dashboard/stats
func (ac *AdminController) GetDashboardStats(c *gin.Context) {
	stats, err := ac.Tables.Stats(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, gin.H{"stats": stats})
}

// GetSettings -> GET /settings (public)
func (ac *AdminController) GetSettings(c *gin.Context) {
	settings, err := ac.Settings.Get(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, settings)
}

// UpdateSettings -> PUT /admin/settings
func (ac *AdminController) UpdateSettings(c *gin.Context) {
	var patch services.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		utils.RespondError(c, bindError(err))
		return
	}
	settings, err := ac.Settings.Update(c.Request.Context(), patch)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, settings)
}

// GetDevicePoints -> GET /admin/rewards/:deviceId
func (ac *AdminController) GetDevicePoints(c *gin.Context) {
	deviceID := c.Param("deviceId")
	points, err := ac.Rewards.Points(c.Request.Context(), deviceID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, gin.H{"deviceId": deviceID, "points": points})
}
