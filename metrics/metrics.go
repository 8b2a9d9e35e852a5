// Package metrics holds the prometheus collectors exposed on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentstudio_http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contentstudio_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// GenerationsTotal counts text generations. result: ok, fallback, mock, error.
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentstudio_generations_total",
			Help: "AI text generations by kind and result",
		},
		[]string{"kind", "result"},
	)

	// NarrationsTotal counts finished narration jobs. result: concluida, erro.
	NarrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentstudio_narrations_total",
			Help: "Narration jobs by final status",
		},
		[]string{"result"},
	)

	TTSCharactersTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "contentstudio_tts_characters_total",
			Help: "Characters sent to speech synthesis",
		},
	)

	ConfigCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentstudio_config_cache_lookups_total",
			Help: "Config manager cache lookups by result (hit, miss)",
		},
		[]string{"result"},
	)

	WebsocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "contentstudio_websocket_connections",
			Help: "Open websocket connections",
		},
	)
)

// Middleware records request count and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
