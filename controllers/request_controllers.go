package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/qr-table-order/middlewares"
	"github.com/yeremiapane/qr-table-order/models"
	"github.com/yeremiapane/qr-table-order/services"
	"github.com/yeremiapane/qr-table-order/utils"
)

// maxAudioBody caps POST /requests; voice orders carry base64 audio.
const maxAudioBody = 8 << 20

type RequestController struct {
	Requests *services.RequestService
}

func NewRequestController(requests *services.RequestService) *RequestController {
	return &RequestController{Requests: requests}
}

// CreateRequest -> POST /requests (customer)
func (rc *RequestController) CreateRequest(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAudioBody)

	var req struct {
		TableNo   string             `json:"tableNo"`
		Type      models.RequestType `json:"type" binding:"required"`
		UserLat   *float64           `json:"userLat"`
		UserLng   *float64           `json:"userLng"`
		AudioData string             `json:"audioData"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, bindError(err))
		return
	}

	created, err := rc.Requests.CreateRequest(c.Request.Context(), services.CreateRequestInput{
		Session:   middlewares.TableSessionFrom(c),
		TableNo:   req.TableNo,
		Type:      req.Type,
		UserLat:   req.UserLat,
		UserLng:   req.UserLng,
		AudioData: req.AudioData,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, created)
}

// ListRequests -> GET /requests?status=
func (rc *RequestController) ListRequests(c *gin.Context) {
	status := models.RequestStatus(c.Query("status"))
	if status != "" && status != models.RequestPending && !status.Terminal() {
		utils.RespondError(c, utils.Validation("unknown status filter"))
		return
	}

	requests, err := rc.Requests.ListRequests(c.Request.Context(), status)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, requests)
}

// ResolveRequest -> PATCH /requests {id, status}
func (rc *RequestController) ResolveRequest(c *gin.Context) {
	var req struct {
		ID     uint                 `json:"id" binding:"required"`
		Status models.RequestStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, bindError(err))
		return
	}

	updated, err := rc.Requests.ResolveRequest(c.Request.Context(), req.ID, req.Status)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, updated)
}

// RequestAudio -> GET /requests/:id/audio
func (rc *RequestController) RequestAudio(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	data, contentType, err := rc.Requests.RequestAudio(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.Data(http.StatusOK, contentType, data)
}
