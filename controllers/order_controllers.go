package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/qr-table-order/middlewares"
	"github.com/yeremiapane/qr-table-order/models"
	"github.com/yeremiapane/qr-table-order/services"
	"github.com/yeremiapane/qr-table-order/utils"
)

const idempotencyHeader = "Idempotency-Key"

type OrderController struct {
	Orders   *services.OrderService
	Sessions *services.SessionService
}

func NewOrderController(orders *services.OrderService, sessions *services.SessionService) *OrderController {
	return &OrderController{Orders: orders, Sessions: sessions}
}

// PlaceOrder -> POST /orders (customer)
func (oc *OrderController) PlaceOrder(c *gin.Context) {
	var req struct {
		TableNo        string             `json:"tableNo"`
		Items          []models.OrderLine `json:"items"`
		Total          float64            `json:"total"`
		PaymentMethod  string             `json:"paymentMethod"`
		DeviceName     string             `json:"deviceName"`
		Location       string             `json:"location"`
		IsOnlineOrder  bool               `json:"isOnlineOrder"`
		IdempotencyKey string             `json:"idempotencyKey"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, bindError(err))
		return
	}

	key := c.GetHeader(idempotencyHeader)
	if key == "" {
		key = req.IdempotencyKey
	}

	order, err := oc.Orders.PlaceOrder(c.Request.Context(), services.PlaceOrderInput{
		Session:        middlewares.TableSessionFrom(c),
		TableNo:        req.TableNo,
		Items:          req.Items,
		Total:          req.Total,
		PaymentMethod:  req.PaymentMethod,
		DeviceName:     req.DeviceName,
		Location:       req.Location,
		IsOnlineOrder:  req.IsOnlineOrder,
		IdempotencyKey: key,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, order)
}

// MyOrders -> GET /orders/mine, what the current table session ordered.
func (oc *OrderController) MyOrders(c *gin.Context) {
	ctx := c.Request.Context()
	check, err := oc.Sessions.ValidateSession(ctx, middlewares.TableSessionFrom(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if !check.Valid {
		utils.RespondError(c, services.ErrInvalidSession)
		return
	}

	orders, err := oc.Orders.ListSessionOrders(ctx, *check.Table.CurrentSessionID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, orders)
}

// ListOrders -> GET /orders?status=&paymentStatus=&tableNo=&limit=
func (oc *OrderController) ListOrders(c *gin.Context) {
	filter := services.OrderFilter{
		Status:        models.OrderStatus(c.Query("status")),
		PaymentStatus: models.PaymentStatus(c.Query("paymentStatus")),
		TableNo:       c.Query("tableNo"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		utils.RespondError(c, utils.Validation("unknown status filter"))
		return
	}
	if filter.PaymentStatus != "" && !filter.PaymentStatus.Valid() {
		utils.RespondError(c, utils.Validation("unknown paymentStatus filter"))
		return
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			utils.RespondError(c, utils.Validation("limit must be a non-negative number"))
			return
		}
		filter.Limit = limit
	}

	orders, err := oc.Orders.ListOrders(c.Request.Context(), filter)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, orders)
}

// GetOrder -> GET /orders/:id
func (oc *OrderController) GetOrder(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	order, err := oc.Orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, gin.H{
		"order":        order,
		"nextStatuses": models.NextStatuses(order.Status, middlewares.CurrentRole(c)),
	})
}

// UpdateOrder -> PUT /orders {id, status?, paymentStatus?}
func (oc *OrderController) UpdateOrder(c *gin.Context) {
	var req struct {
		ID            uint                  `json:"id" binding:"required"`
		Status        *models.OrderStatus   `json:"status"`
		PaymentStatus *models.PaymentStatus `json:"paymentStatus"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, bindError(err))
		return
	}

	order, err := oc.Orders.AdvanceStatus(c.Request.Context(), services.AdvanceInput{
		OrderID:       req.ID,
		Status:        req.Status,
		PaymentStatus: req.PaymentStatus,
		Role:          middlewares.CurrentRole(c),
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, order)
}
