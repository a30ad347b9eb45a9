package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	WsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chatx_ws_connections",
		Help: "Current number of active websocket connections",
	})
	DispatchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chatx_dispatches_total",
		Help: "Fan-out dispatch calls by aggregate result",
	}, []string{"result"})
	StaleConnectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chatx_stale_connections_total",
		Help: "Connection handles the transport reported gone during fan-out",
	})
	MessagesStoredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chatx_messages_stored_total",
		Help: "Chat messages appended to the message log",
	})
	HttpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	HttpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

func init() {
	prometheus.MustRegister(WsConnections, DispatchesTotal, StaleConnectionsTotal,
		MessagesStoredTotal, HttpRequestsTotal, HttpRequestDuration)
}

// GinMiddleware records basic request metrics for Prometheus scrapes.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		labels := prometheus.Labels{"method": c.Request.Method, "path": path, "status": status}
		HttpRequestsTotal.With(labels).Inc()
		HttpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}
