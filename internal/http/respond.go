package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "tera-rewards-backend/internal/common/errors"
	"tera-rewards-backend/internal/common/middleware"
	"tera-rewards-backend/internal/common/validation"
)

// Response is the envelope of every successful request.
type Response struct {
	Success bool        `json:"success" example:"true"`
	Data    interface{} `json:"data"`
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

func success(c *gin.Context, data interface{}) {
	respond(c, http.StatusOK, data)
}

// fail renders err through the shared error envelope.
func fail(c *gin.Context, err error) {
	middleware.Abort(c, err)
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, apperrors.NewValidationError("body", err.Error()))
		return false
	}
	return true
}

func caller(c *gin.Context) (int64, bool) {
	id, exists := middleware.CallerID(c)
	if !exists {
		fail(c, apperrors.NewUnauthorizedError("missing caller"))
		return 0, false
	}
	return id, true
}

func pathAccountID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, apperrors.NewValidationError("id", "must be a positive integer"))
		return 0, false
	}
	return id, true
}

func amountParam(c *gin.Context, raw, field string) (decimal.Decimal, bool) {
	d, err := validation.ParseAmount(raw, field)
	if err != nil {
		fail(c, apperrors.NewValidationError(field, err.Error()))
		return decimal.Zero, false
	}
	return d, true
}

// page reads limit/offset; bad values fall back to the repository defaults.
func page(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.Query("limit"))
	offset, _ = strconv.Atoi(c.Query("offset"))
	return limit, offset
}
