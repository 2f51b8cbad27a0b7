package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/qr-table-order/utils"
)

func paramID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, utils.Validation("invalid " + name)
	}
	return uint(id), nil
}

func bindError(err error) error {
	return utils.Validation("invalid request body: " + err.Error())
}
