package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mingshilin.com/app/internal/http/middleware"
	"mingshilin.com/app/internal/http/validation"
	"mingshilin.com/app/internal/shared/apperr"
)

// OK writes the shared success envelope {code:0, data, message}.
func OK(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"data":    data,
		"message": message,
	})
}

// bindJSON binds and validates; on failure it pushes a field-annotated
// invalid error and reports false.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fields := validation.FromBindError(err, dst)
		middleware.Fail(c, apperr.InvalidErr("Missing or invalid request fields.", fields))
		return false
	}
	return true
}
