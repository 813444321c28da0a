package http

import (
	"github.com/gin-gonic/gin"

	apperrors "tera-rewards-backend/internal/common/errors"
	dswap "tera-rewards-backend/internal/domain/swap"
	"tera-rewards-backend/internal/service/rewards"
)

type SwapHandler struct {
	api *rewards.API
}

func NewSwapHandler(api *rewards.API) *SwapHandler {
	return &SwapHandler{api: api}
}

// RegisterRoutes mounts the authenticated swap routes. The quote route is public
// and registered separately so it can sit behind the response cache.
func (h *SwapHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/swaps", h.swap)
	router.GET("/swaps", h.history)
}

// @Summary Swap
// @Description Converts between TON (main balance) and TERA at the configured rate.
// @Tags swaps
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param body body SwapRequest true "Swap"
// @Success 200 {object} Response
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 422 {object} middleware.ErrorResponse "Insufficient funds"
// @Router /swaps [post]
func (h *SwapHandler) swap(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req SwapRequest
	if !bindJSON(c, &req) {
		return
	}
	from, err := dswap.ParseCurrency(req.FromCurrency)
	if err != nil {
		fail(c, apperrors.NewValidationError("from_currency", err.Error()))
		return
	}
	amount, ok := amountParam(c, req.Amount, "amount")
	if !ok {
		return
	}
	res, err := h.api.Swap(c.Request.Context(), id, from, amount)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, res)
}

// @Summary Swap history
// @Tags swaps
// @Produce json
// @Security TelegramInitData
// @Param limit query int false "Page size" default(100)
// @Param offset query int false "Offset"
// @Success 200 {object} Response
// @Router /swaps [get]
func (h *SwapHandler) history(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	limit, offset := page(c)
	txs, err := h.api.SwapHistory(c.Request.Context(), id, limit, offset)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, txs)
}

// @Summary Quote swap
// @Description Computes fee and net amount without touching balances.
// @Tags swaps
// @Produce json
// @Param from query string true "Source currency" Enums(TON, TERA)
// @Param amount query string true "Amount"
// @Success 200 {object} Response
// @Failure 400 {object} middleware.ErrorResponse
// @Router /swaps/quote [get]
func (h *SwapHandler) quote(c *gin.Context) {
	from, err := dswap.ParseCurrency(c.Query("from"))
	if err != nil {
		fail(c, apperrors.NewValidationError("from", err.Error()))
		return
	}
	amount, ok := amountParam(c, c.Query("amount"), "amount")
	if !ok {
		return
	}
	q, err := h.api.QuoteSwap(from, amount)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, q)
}
