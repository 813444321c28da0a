package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"tera-rewards-backend/internal/common/errors"
)

const (
	// InitDataHeader carries the raw Telegram Mini App init-data string.
	InitDataHeader = "X-Telegram-Init-Data"

	userIDKey   = "user_id"
	usernameKey = "username"
)

// InitData validates Telegram Mini App init-data and stores the caller id in context.
// expIn == 0 disables the expiration check (library contract).
func InitData(token string, expIn time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			Abort(c, errors.New(errors.ErrCodeInternal, "init-data validation is not configured"))
			return
		}

		raw := c.GetHeader(InitDataHeader)
		if raw == "" {
			raw = c.Query("init_data")
		}
		if raw == "" {
			Abort(c, errors.NewUnauthorizedError("missing init data"))
			return
		}

		if err := initdata.Validate(raw, token, expIn); err != nil {
			Abort(c, errors.NewUnauthorizedError("invalid init data"))
			return
		}

		parsed, err := initdata.Parse(raw)
		if err != nil || parsed.User.ID == 0 {
			Abort(c, errors.NewValidationError("init_data", "cannot parse user"))
			return
		}

		c.Set(userIDKey, parsed.User.ID)
		c.Set(usernameKey, parsed.User.Username)
		c.Next()
	}
}

// RequireAdmin allows only callers for which isAdmin returns true.
func RequireAdmin(isAdmin func(int64) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := CallerID(c)
		if !ok {
			Abort(c, errors.NewUnauthorizedError("missing caller"))
			return
		}
		if !isAdmin(id) {
			Abort(c, errors.NewForbiddenError("operator access required"))
			return
		}
		c.Next()
	}
}

// CallerID returns the authenticated Telegram user id.
func CallerID(c *gin.Context) (int64, bool) {
	v, exists := c.Get(userIDKey)
	if !exists {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// SetCallerID is used by trusted front proxies and tests to inject an identity.
func SetCallerID(c *gin.Context, id int64) {
	c.Set(userIDKey, id)
}
