package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "tera-rewards-backend/internal/common/errors"
	"tera-rewards-backend/internal/domain/withdrawal"
	"tera-rewards-backend/internal/service/rewards"
)

// RequestHandler accepts deposit and withdrawal submissions from users.
type RequestHandler struct {
	api *rewards.API
}

func NewRequestHandler(api *rewards.API) *RequestHandler {
	return &RequestHandler{api: api}
}

func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/deposits", h.submitDeposit)
	router.POST("/withdrawals", h.submitWithdrawal)
}

// @Summary Submit deposit
// @Description Records a pending deposit for moderation. The tx hash must be unique.
// @Tags requests
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param body body DepositRequest true "Deposit"
// @Success 201 {object} Response
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse "Duplicate tx hash"
// @Router /deposits [post]
func (h *RequestHandler) submitDeposit(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req DepositRequest
	if !bindJSON(c, &req) {
		return
	}
	amount, ok := amountParam(c, req.Amount, "amount")
	if !ok {
		return
	}
	d, err := h.api.SubmitDeposit(c.Request.Context(), id, amount, req.TxHash)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, d)
}

// @Summary Submit withdrawal
// @Description Holds the amount on the source balance and records a pending withdrawal.
// @Tags requests
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param body body WithdrawalRequest true "Withdrawal"
// @Success 201 {object} Response
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 422 {object} middleware.ErrorResponse "Insufficient funds"
// @Router /withdrawals [post]
func (h *RequestHandler) submitWithdrawal(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req WithdrawalRequest
	if !bindJSON(c, &req) {
		return
	}
	amount, ok := amountParam(c, req.Amount, "amount")
	if !ok {
		return
	}
	wType, err := withdrawal.ParseType(req.WithdrawType)
	if err != nil {
		fail(c, apperrors.NewValidationError("withdraw_type", err.Error()))
		return
	}
	w, err := h.api.SubmitWithdrawal(c.Request.Context(), id, amount, req.WalletAddress, wType)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, w)
}
