package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/qr-table-order/services"
	"github.com/yeremiapane/qr-table-order/utils"
)

type DeviceController struct {
	Gate *services.DeviceGate
}

func NewDeviceController(gate *services.DeviceGate) *DeviceController {
	return &DeviceController{Gate: gate}
}

// ListBlocked -> GET /admin/devices
func (dc *DeviceController) ListBlocked(c *gin.Context) {
	devices, err := dc.Gate.List(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, devices)
}

// Manage -> POST /admin/devices {deviceId, action: BLOCK|UNBLOCK, reason?}
func (dc *DeviceController) Manage(c *gin.Context) {
	var req struct {
		DeviceID string `json:"deviceId" binding:"required"`
		Action   string `json:"action" binding:"required"`
		Reason   string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, bindError(err))
		return
	}

	ctx := c.Request.Context()
	switch strings.ToUpper(req.Action) {
	case "BLOCK":
		entry, err := dc.Gate.Block(ctx, req.DeviceID, req.Reason)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		utils.RespondSuccess(c, http.StatusOK, gin.H{"device": entry})
	case "UNBLOCK":
		if err := dc.Gate.Unblock(ctx, req.DeviceID); err != nil {
			utils.RespondError(c, err)
			return
		}
		utils.RespondSuccess(c, http.StatusOK, gin.H{"deviceId": req.DeviceID})
	default:
		utils.RespondError(c, utils.Validation("action must be BLOCK or UNBLOCK"))
	}
}
