package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, mock := redismock.NewClientMock()

	payload, err := json.Marshal(cachedResponse{Status: 200, ContentType: "application/json", Body: []byte(`{"cached":true}`)})
	require.NoError(t, err)
	mock.ExpectGet("httpcache:GET:/quote?amount=1").SetVal(string(payload))

	called := false
	r := gin.New()
	r.GET("/quote", RedisCache(db, time.Second), func(c *gin.Context) {
		called = true
		c.JSON(http.StatusOK, gin.H{"cached": false})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/quote?amount=1", nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"cached":true}`, w.Body.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheMissStoresResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, mock := redismock.NewClientMock()

	mock.ExpectGet("httpcache:GET:/quote?amount=2").RedisNil()
	entry, err := json.Marshal(cachedResponse{Status: 200, ContentType: "application/json; charset=utf-8", Body: []byte(`{"net":"2"}`)})
	require.NoError(t, err)
	mock.ExpectSet("httpcache:GET:/quote?amount=2", entry, time.Second).SetVal("OK")

	r := gin.New()
	r.GET("/quote", RedisCache(db, time.Second), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"net": "2"})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/quote?amount=2", nil))

	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheSkipsWithoutClient(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/quote", RedisCache(nil, time.Second), func(c *gin.Context) {
		c.String(http.StatusOK, "fresh")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/quote", nil))
	assert.Equal(t, "fresh", w.Body.String())
	assert.Empty(t, w.Header().Get("X-Cache"))
}
