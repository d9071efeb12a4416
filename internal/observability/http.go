package observability

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RequestIDHeader carries the correlation id in and out of the API.
const RequestIDHeader = "X-Request-ID"

func RequestIDFromRequest(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(RequestIDHeader))
}

// IPFromRequest prefers proxy headers, then the socket peer.
func IPFromRequest(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	if real := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); real != nil {
		return real.String()
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func levelForStatus(status int) zerolog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zerolog.ErrorLevel
	case status >= http.StatusBadRequest:
		return zerolog.WarnLevel
	}
	return zerolog.InfoLevel
}

// RequestLogger writes one structured log event per request. Health and
// metrics probes are logged at debug.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := routeOf(c)
		level := levelForStatus(status)
		if level == zerolog.InfoLevel && (route == "/api/health" || route == "/metrics") {
			level = zerolog.DebugLevel
		}

		event := log.WithLevel(level)
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.
			Str("method", c.Request.Method).
			Str("route", route).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Str("ip", IPFromRequest(c.Request)).
			Str("request_id", c.GetString("request_id")).
			Str("user_id", c.GetString("userID")).
			Msg("http request")
	}
}
