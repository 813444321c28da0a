package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tera-rewards-backend/internal/service/rewards"
)

type MiningHandler struct {
	api *rewards.API
}

func NewMiningHandler(api *rewards.API) *MiningHandler {
	return &MiningHandler{api: api}
}

func (h *MiningHandler) RegisterRoutes(router *gin.RouterGroup) {
	m := router.Group("/mining")
	{
		m.POST("/start", h.start)
		m.POST("/stop", h.stop)
		m.GET("/preview", h.preview)
	}
}

// @Summary Start mining
// @Description Opens a session over the current mining balance.
// @Tags mining
// @Produce json
// @Security TelegramInitData
// @Success 201 {object} Response
// @Failure 401 {object} middleware.ErrorResponse "Inactive account"
// @Failure 409 {object} middleware.ErrorResponse "Already mining"
// @Failure 422 {object} middleware.ErrorResponse "Mining balance is zero"
// @Router /mining/start [post]
func (h *MiningHandler) start(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	sess, err := h.api.StartMining(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, sess)
}

// @Summary Stop mining
// @Description Settles accrued profit into earning_profit.
// @Tags mining
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} Response{data=StopMiningResponse}
// @Failure 409 {object} middleware.ErrorResponse "No active session"
// @Router /mining/stop [post]
func (h *MiningHandler) stop(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	earned, err := h.api.StopMining(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, StopMiningResponse{Earned: earned.String()})
}

// @Summary Preview accrual
// @Tags mining
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} Response
// @Router /mining/preview [get]
func (h *MiningHandler) preview(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	p, err := h.api.PreviewMining(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, p)
}
