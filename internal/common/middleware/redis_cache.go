package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type bodyWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// CacheKey is the Redis key a GET request is cached under.
func CacheKey(r *http.Request) string {
	return "httpcache:" + r.Method + ":" + r.URL.RequestURI()
}

// RedisCache caches successful GET responses for a short TTL. Only mount it on
// routes whose response does not depend on the caller.
func RedisCache(rdb redis.Cmdable, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := CacheKey(c.Request)
		if bs, err := rdb.Get(c.Request.Context(), key).Bytes(); err == nil && len(bs) > 0 {
			var entry cachedResponse
			if json.Unmarshal(bs, &entry) == nil {
				c.Header("X-Cache", "HIT")
				c.Data(entry.Status, entry.ContentType, entry.Body)
				c.Abort()
				return
			}
		}

		w := &bodyWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Header("X-Cache", "MISS")
		c.Next()

		status := w.Status()
		if status >= 200 && status < 300 {
			entry := cachedResponse{Status: status, ContentType: w.Header().Get("Content-Type"), Body: w.buf.Bytes()}
			if payload, err := json.Marshal(entry); err == nil {
				_ = rdb.Set(context.Background(), key, payload, ttl).Err()
			}
		}
	}
}
