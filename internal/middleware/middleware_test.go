package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freeshare/internal/auth"
	"freeshare/internal/models"
)

type stubValidator map[string]models.User

func (s stubValidator) ValidateSession(_ context.Context, token string) (models.User, error) {
	if token == "db-down" {
		return models.User{}, errors.New("database is locked")
	}
	if u, ok := s[token]; ok {
		return u, nil
	}
	return models.User{}, auth.ErrInvalidSession
}

func setupAuthRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", mw, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(UserIDKey), "token": c.GetString(TokenKey)})
	})
	return r
}

func doGet(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestBearerToken(t *testing.T) {
	tok, ok := BearerToken("Bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	tok, ok = BearerToken("bearer xyz")
	assert.True(t, ok)
	assert.Equal(t, "xyz", tok)

	for _, bad := range []string{"", "abc", "Basic abc", "Bearer ", "Bearer"} {
		_, ok := BearerToken(bad)
		assert.False(t, ok, bad)
	}
}

func TestRequireAuth(t *testing.T) {
	r := setupAuthRouter(RequireAuth(stubValidator{"good": {ID: "u1"}}))

	rec := doGet(r, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Unauthorized"}`, rec.Body.String())

	rec = doGet(r, "Bearer bad")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Invalid session"}`, rec.Body.String())

	rec = doGet(r, "Bearer db-down")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Internal server error"}`, rec.Body.String())

	rec = doGet(r, "Bearer good")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":"u1","token":"good"}`, rec.Body.String())
}

func TestOptionalAuth(t *testing.T) {
	r := setupAuthRouter(OptionalAuth(stubValidator{"good": {ID: "u1"}}))

	rec := doGet(r, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":"","token":""}`, rec.Body.String())

	rec = doGet(r, "Bearer bad")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":"","token":""}`, rec.Body.String())

	rec = doGet(r, "Bearer db-down")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":"","token":""}`, rec.Body.String())

	rec = doGet(r, "Bearer good")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":"u1","token":"good"}`, rec.Body.String())
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Body.String())
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Body.String(), 36)
	assert.Equal(t, rec.Body.String(), rec.Header().Get("X-Request-ID"))
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"https://app.example.com"}))
	r.GET("/api/items", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/items", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/items", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(2))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "198.51.100.7:1234"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
