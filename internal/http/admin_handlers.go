package http

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "tera-rewards-backend/internal/common/errors"
	"tera-rewards-backend/internal/common/middleware"
	"tera-rewards-backend/internal/domain/account"
	"tera-rewards-backend/internal/domain/request"
	"tera-rewards-backend/internal/service/rewards"
)

// AdminHandler serves operator routes. RequireAdmin guards the whole group.
type AdminHandler struct {
	api *rewards.API
}

func NewAdminHandler(api *rewards.API) *AdminHandler {
	return &AdminHandler{api: api}
}

func (h *AdminHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/stats", h.stats)

	router.GET("/deposits", h.listDeposits)
	router.POST("/deposits/:id/approve", moderate(h.api.ApproveDeposit))
	router.POST("/deposits/:id/reject", moderate(h.api.RejectDeposit))

	router.GET("/withdrawals", h.listWithdrawals)
	router.POST("/withdrawals/:id/approve", moderate(h.api.ApproveWithdrawal))
	router.POST("/withdrawals/:id/reject", moderate(h.api.RejectWithdrawal))

	router.GET("/accounts/:id", h.getAccount)
	router.POST("/accounts/:id/adjust", h.adjust)
	router.POST("/accounts/:id/toggle", h.toggle)
}

// @Summary Platform statistics
// @Tags admin
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} Response
// @Failure 403 {object} middleware.ErrorResponse
// @Router /admin/stats [get]
func (h *AdminHandler) stats(c *gin.Context) {
	snap, err := h.api.GetAdminStats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	success(c, snap)
}

func filterFromQuery(c *gin.Context) (request.Filter, bool) {
	limit, offset := page(c)
	f := request.Filter{Limit: limit, Offset: offset}
	if raw := c.Query("status"); raw != "" {
		st, err := request.ParseStatus(raw)
		if err != nil {
			fail(c, apperrors.NewValidationError("status", err.Error()))
			return f, false
		}
		f.Status = &st
	}
	if raw := c.Query("account_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			fail(c, apperrors.NewValidationError("account_id", "must be an integer"))
			return f, false
		}
		f.AccountID = &id
	}
	return f, true
}

// @Summary List deposits
// @Tags admin
// @Produce json
// @Security TelegramInitData
// @Param status query string false "Status filter" Enums(pending, approved, rejected)
// @Param account_id query int false "Account filter"
// @Param limit query int false "Page size" default(100)
// @Param offset query int false "Offset"
// @Success 200 {object} Response
// @Router /admin/deposits [get]
func (h *AdminHandler) listDeposits(c *gin.Context) {
	f, ok := filterFromQuery(c)
	if !ok {
		return
	}
	list, err := h.api.ListDeposits(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, list)
}

// @Summary List withdrawals
// @Tags admin
// @Produce json
// @Security TelegramInitData
// @Param status query string false "Status filter" Enums(pending, approved, rejected)
// @Param account_id query int false "Account filter"
// @Param limit query int false "Page size" default(100)
// @Param offset query int false "Offset"
// @Success 200 {object} Response
// @Router /admin/withdrawals [get]
func (h *AdminHandler) listWithdrawals(c *gin.Context) {
	f, ok := filterFromQuery(c)
	if !ok {
		return
	}
	list, err := h.api.ListWithdrawals(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, list)
}

// moderate adapts an approve/reject operation to a handler. The body is optional.
//
// @Summary Approve or reject a request
// @Tags admin
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Request ID"
// @Param body body ModerationRequest false "Note"
// @Success 200 {object} Response
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse "Not pending"
// @Router /admin/deposits/{id}/approve [post]
// @Router /admin/deposits/{id}/reject [post]
// @Router /admin/withdrawals/{id}/approve [post]
// @Router /admin/withdrawals/{id}/reject [post]
func moderate[T any](op func(ctx context.Context, id, note string) (T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ModerationRequest
		if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
			return
		}
		out, err := op(c.Request.Context(), c.Param("id"), req.Note)
		if err != nil {
			fail(c, err)
			return
		}
		success(c, out)
	}
}

// @Summary Get account
// @Tags admin
// @Produce json
// @Security TelegramInitData
// @Param id path int true "Account ID"
// @Success 200 {object} Response
// @Failure 404 {object} middleware.ErrorResponse
// @Router /admin/accounts/{id} [get]
func (h *AdminHandler) getAccount(c *gin.Context) {
	id, ok := pathAccountID(c)
	if !ok {
		return
	}
	acc, err := h.api.GetAccount(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, acc)
}

// @Summary Adjust balance
// @Description Applies a signed delta to one balance. The operator id is recorded in the ledger.
// @Tags admin
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param id path int true "Account ID"
// @Param body body AdjustRequest true "Adjustment"
// @Success 200 {object} Response{data=AdjustResponse}
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 422 {object} middleware.ErrorResponse "Balance would become negative"
// @Router /admin/accounts/{id}/adjust [post]
func (h *AdminHandler) adjust(c *gin.Context) {
	id, ok := pathAccountID(c)
	if !ok {
		return
	}
	operator, _ := middleware.CallerID(c)
	var req AdjustRequest
	if !bindJSON(c, &req) {
		return
	}
	kind, err := account.ParseBalanceKind(req.Kind)
	if err != nil {
		fail(c, apperrors.NewValidationError("kind", err.Error()))
		return
	}
	delta, ok := amountParam(c, req.Delta, "delta")
	if !ok {
		return
	}
	balance, err := h.api.AdjustBalance(c.Request.Context(), id, kind, delta, operator)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, AdjustResponse{Kind: string(kind), Balance: balance.String()})
}

// @Summary Toggle account status
// @Description Flips is_active. Deactivation pauses an open mining session.
// @Tags admin
// @Produce json
// @Security TelegramInitData
// @Param id path int true "Account ID"
// @Success 200 {object} Response
// @Failure 404 {object} middleware.ErrorResponse
// @Router /admin/accounts/{id}/toggle [post]
func (h *AdminHandler) toggle(c *gin.Context) {
	id, ok := pathAccountID(c)
	if !ok {
		return
	}
	acc, err := h.api.ToggleAccountStatus(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, acc)
}
