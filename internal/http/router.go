package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"tera-rewards-backend/internal/common/logger"
	"tera-rewards-backend/internal/common/middleware"
	"tera-rewards-backend/internal/common/validation"
	"tera-rewards-backend/internal/service/rewards"
)

const serviceName = "tera-rewards-backend"

// Deps is everything the router needs.
type Deps struct {
	API *rewards.API
	// Auth authenticates the caller and stores its id (middleware.InitData in production).
	Auth    gin.HandlerFunc
	IsAdmin func(id int64) bool
	Origins []string
	// Ready reports backing store health for /ready; nil means always ready.
	Ready func(ctx context.Context) error
	// Cache backs the public quote route; nil disables response caching.
	Cache    redis.Cmdable
	CacheTTL time.Duration
}

// NewRouter builds the gin engine with middleware and every route wired.
func NewRouter(d Deps) *gin.Engine {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := validation.RegisterTags(v); err != nil {
			logger.Error().Err(err).Msg("Failed to register validation tags")
		}
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())

	corsConfig := cors.DefaultConfig()
	if len(d.Origins) == 0 || (len(d.Origins) == 1 && d.Origins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = d.Origins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.InitDataHeader}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{Status: "ok", Timestamp: time.Now().UTC(), Service: serviceName})
	})
	router.GET("/ready", func(c *gin.Context) {
		if d.Ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := d.Ready(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "unready",
					"details": err.Error(),
				})
				return
			}
		}
		c.JSON(http.StatusOK, HealthResponse{Status: "ready", Timestamp: time.Now().UTC(), Service: serviceName})
	})
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/api/v1")

	swaps := NewSwapHandler(d.API)
	quoteChain := []gin.HandlerFunc{}
	if d.Cache != nil {
		quoteChain = append(quoteChain, middleware.RedisCache(d.Cache, d.CacheTTL))
	}
	v1.GET("/swaps/quote", append(quoteChain, swaps.quote)...)

	user := v1.Group("", d.Auth)
	NewAccountHandler(d.API).RegisterRoutes(user)
	NewMiningHandler(d.API).RegisterRoutes(user)
	NewRequestHandler(d.API).RegisterRoutes(user)
	swaps.RegisterRoutes(user)

	admin := v1.Group("/admin", d.Auth, middleware.RequireAdmin(d.IsAdmin))
	NewAdminHandler(d.API).RegisterRoutes(admin)

	return router
}
