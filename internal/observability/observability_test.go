package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestIPFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", IPFromRequest(req))

	req.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", IPFromRequest(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", IPFromRequest(req))

	req.Header.Set("X-Forwarded-For", "garbage")
	assert.Equal(t, "198.51.100.7", IPFromRequest(req))
}

func TestCorrelationHeaders(t *testing.T) {
	assert.Empty(t, CorrelationFromContext(context.Background(), "", "").Headers())

	corr := CorrelationFromContext(context.Background(), "r1", "u1")
	assert.Equal(t, map[string]string{"x-request-id": "r1", "x-user-id": "u1"}, corr.Headers())

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))

	headers := CorrelationFromContext(ctx, "r1", "").Headers()
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", headers["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", headers["span_id"])
}

func TestLevelForStatus(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, levelForStatus(http.StatusOK))
	assert.Equal(t, zerolog.WarnLevel, levelForStatus(http.StatusNotFound))
	assert.Equal(t, zerolog.ErrorLevel, levelForStatus(http.StatusBadGateway))
}

func TestHTTPMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(HTTPMetricsMiddleware(), RequestLogger())
	r.GET("/api/items/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/items/:id", "204"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/items/abc", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/items/:id", "204"))
	assert.Equal(t, before+1, after)
}

func TestInitTracingDisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), "freeshare", "test", "")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
