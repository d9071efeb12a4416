package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freeshare_http_requests_total",
			Help: "Total number of HTTP requests processed by the FreeShare API.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "freeshare_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "freeshare_ws_active_connections",
			Help: "Number of active conversation websocket connections.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freeshare_ws_events_total",
			Help: "Total number of websocket events pushed to clients.",
		},
		[]string{"event"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "freeshare_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
	loginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freeshare_logins_total",
			Help: "Successful logins by provider.",
		},
		[]string{"provider"},
	)
	itemsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freeshare_items_created_total",
			Help: "Listings created by category.",
		},
		[]string{"category"},
	)
	messagesSentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "freeshare_messages_sent_total",
			Help: "Messages sent in conversations.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		amqpPublishErrorsTotal,
		loginsTotal,
		itemsCreatedTotal,
		messagesSentTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := routeOf(c)
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// routeOf prefers the route template so ids do not explode label cardinality.
func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}

func IncLogin(provider string) {
	loginsTotal.WithLabelValues(provider).Inc()
}

func IncItemCreated(category string) {
	itemsCreatedTotal.WithLabelValues(category).Inc()
}

func IncMessageSent() {
	messagesSentTotal.Inc()
}
