package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tera-rewards-backend/internal/service/rewards"
)

// AccountHandler serves the caller's own account.
type AccountHandler struct {
	api *rewards.API
}

func NewAccountHandler(api *rewards.API) *AccountHandler {
	return &AccountHandler{api: api}
}

func (h *AccountHandler) RegisterRoutes(router *gin.RouterGroup) {
	me := router.Group("/accounts/me")
	{
		me.POST("", h.register)
		me.GET("", h.getMe)
		me.POST("/referrer", h.applyReferralCode)
		me.GET("/history", h.history)
		me.GET("/referrals", h.referrals)
	}
}

// @Summary Register account
// @Description Creates the caller's account, or returns it unchanged when it already exists. A referral code is only applied on creation.
// @Tags accounts
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param body body RegisterRequest false "Optional wallet and referral code"
// @Success 200 {object} Response "Existing account"
// @Success 201 {object} Response "Created account"
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse "Unknown referral code"
// @Router /accounts/me [post]
func (h *AccountHandler) register(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req RegisterRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	acc, created, err := h.api.RegisterAccount(c.Request.Context(), id, req.WalletAddress, req.ReferralCode)
	if err != nil {
		fail(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respond(c, status, RegisterResponse{Account: acc, Created: created})
}

// @Summary Get current account
// @Tags accounts
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} Response
// @Failure 404 {object} middleware.ErrorResponse
// @Router /accounts/me [get]
func (h *AccountHandler) getMe(c *gin.Context) {
	id, ok := caller(c)
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

// @Summary Apply referral code
// @Description Links the owner of the code as the caller's referrer. Allowed once.
// @Tags accounts
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param body body ReferrerRequest true "Referral code"
// @Success 200 {object} Response
// @Failure 400 {object} middleware.ErrorResponse "Self referral, cycle or already referred"
// @Failure 404 {object} middleware.ErrorResponse "Unknown code"
// @Router /accounts/me/referrer [post]
func (h *AccountHandler) applyReferralCode(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req ReferrerRequest
	if !bindJSON(c, &req) {
		return
	}
	edge, err := h.api.ApplyReferralCode(c.Request.Context(), id, req.Code)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, edge)
}

// @Summary Balance history
// @Tags accounts
// @Produce json
// @Security TelegramInitData
// @Param limit query int false "Page size" default(100)
// @Param offset query int false "Offset"
// @Success 200 {object} Response
// @Router /accounts/me/history [get]
func (h *AccountHandler) history(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	limit, offset := page(c)
	entries, err := h.api.AccountHistory(c.Request.Context(), id, limit, offset)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, entries)
}

// @Summary Direct referrals
// @Tags accounts
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} Response
// @Router /accounts/me/referrals [get]
func (h *AccountHandler) referrals(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	nodes, err := h.api.ReferralTree(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, nodes)
}
