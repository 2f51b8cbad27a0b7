package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// RespondJSON writes data as-is.
func RespondJSON(c *gin.Context, code int, data interface{}) {
	c.JSON(code, data)
}

// RespondSuccess writes {success: true, ...fields}.
func RespondSuccess(c *gin.Context, code int, fields gin.H) {
	body := gin.H{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(code, body)
}

// RespondError maps err onto a status code and the {success, error, code}
// body. Errors that are not AppErrors are logged and hidden behind a 500.
func RespondError(c *gin.Context, err error) {
	appErr, ok := AsAppError(err)
	if !ok || appErr.Kind == KindInternal {
		ErrorLogger.WithFields(map[string]interface{}{
			"path":       c.Request.URL.Path,
			"request_id": c.GetString(RequestIDKey),
		}).Errorf("internal error: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Success: false,
			Error:   "internal server error",
		})
		return
	}

	c.JSON(appErr.Kind.Status(), ErrorResponse{
		Success: false,
		Error:   appErr.Message,
		Code:    appErr.Code,
	})
}

// AbortWithError is RespondError for middlewares.
func AbortWithError(c *gin.Context, err error) {
	RespondError(c, err)
	c.Abort()
}

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"
