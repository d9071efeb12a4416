package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"freeshare/internal/middleware"
	"freeshare/internal/models"
)

type envelopeBody struct {
	Success    bool               `json:"success"`
	Data       json.RawMessage    `json:"data"`
	Error      string             `json:"error"`
	Pagination *models.Pagination `json:"pagination"`
}

// setupRouter returns a test engine that acts as user when user.ID is set.
func setupRouter(user models.User, register func(r *gin.Engine)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	RegisterValidators()
	r := gin.New()
	LoadTemplates(r)
	r.Use(func(c *gin.Context) {
		if user.ID != "" {
			c.Set(middleware.UserIDKey, user.ID)
			c.Set(middleware.UserKey, user)
			c.Set(middleware.TokenKey, "test-token")
		}
		c.Next()
	})
	register(r)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch v := body.(type) {
		case string:
			buf.WriteString(v)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(v))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelopeBody {
	t.Helper()
	var env envelopeBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func decodeData[T any](t *testing.T, env envelopeBody) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func ptr[T any](v T) *T { return &v }
