package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/qr-table-order/services"
	"github.com/yeremiapane/qr-table-order/utils"
)

type TableController struct {
	Tables   *services.TableService
	Sessions *services.SessionService
}

func NewTableController(tables *services.TableService, sessions *services.SessionService) *TableController {
	return &TableController{Tables: tables, Sessions: sessions}
}

// CreateTable -> POST /admin/tables {number}
func (tc *TableController) CreateTable(c *gin.Context) {
	var req struct {
		Number string `json:"number" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, bindError(err))
		return
	}

	table, err := tc.Tables.Create(c.Request.Context(), req.Number)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, table)
}

// GetAllTables -> GET /admin/tables
func (tc *TableController) GetAllTables(c *gin.Context) {
	tables, err := tc.Tables.List(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, tables)
}

// GetTable -> GET /admin/tables/:id
func (tc *TableController) GetTable(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	table, err := tc.Tables.Get(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, table)
}

// DeleteTable -> DELETE /admin/tables/:id
func (tc *TableController) DeleteTable(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := tc.Tables.Delete(c.Request.Context(), id); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, gin.H{"id": id})
}

// OpenTable -> POST /admin/tables/:id/open
func (tc *TableController) OpenTable(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	table, err := tc.Sessions.OpenManually(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, gin.H{"table": table})
}

// CloseTable -> POST /admin/tables/:id/close. Every cookie issued for the
// table stops working.
func (tc *TableController) CloseTable(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	table, err := tc.Sessions.CloseSession(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, gin.H{"table": table})
}
