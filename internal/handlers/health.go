package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports store reachability.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type healthResponse struct {
	Status   string `json:"status"`
	Time     string `json:"time"`
	Database string `json:"database"`
}

// Health handles GET /api/health.
func Health(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := healthResponse{
			Status:   "ok",
			Time:     time.Now().UTC().Format(time.RFC3339Nano),
			Database: "ok",
		}
		status := http.StatusOK

		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				resp.Status = "degraded"
				resp.Database = "unreachable"
				status = http.StatusServiceUnavailable
			}
		}
		c.JSON(status, resp)
	}
}
