package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRateLimiterIsPerIP(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/login", RateLimitMiddleware(NewRateLimiter(0.001, 1)), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestRequestIDMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestRespondError(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		code    int
		message string
		detail  bool
	}{
		{"bad request", BadRequestError("Amount must be positive", nil), http.StatusBadRequest, "Amount must be positive", false},
		{"state conflict", StateConflictError("Order is not paid"), http.StatusBadRequest, "Order is not paid", true},
		{"wrapped", fmt.Errorf("service: %w", NotFoundError("Order not found", nil)), http.StatusNotFound, "Order not found", false},
		{"gorm not found", gorm.ErrRecordNotFound, http.StatusNotFound, "Record not found", false},
		{"persistence hides cause", PersistenceError("Failed to save", errors.New("pq: connection refused")), http.StatusInternalServerError, "Failed to save", false},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, ErrInternalServer, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/x", nil)

			RespondError(c, tc.err)

			assert.Equal(t, tc.code, w.Code)
			var body StandardResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "error", body.Status)
			assert.Equal(t, tc.message, body.Message)
			assert.Equal(t, tc.detail, body.Data != nil)
			assert.False(t, strings.Contains(w.Body.String(), "connection refused"))
		})
	}
}

func TestNewOrderReferenceIsUnique(t *testing.T) {
	require.NoError(t, InitIDGenerator(7))
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		ref := NewOrderReference()
		require.True(t, strings.HasPrefix(ref, "ORD-"))
		require.False(t, seen[ref], ref)
		seen[ref] = true
	}
	assert.Error(t, InitIDGenerator(2048))
}
