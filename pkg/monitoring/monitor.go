package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// AttemptTransitions 记录测试尝试进入各状态的次数
	AttemptTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "test_attempt_transitions_total",
			Help: "Test attempts entering a status",
		},
		[]string{"status"},
	)

	// SyncFlushes 记录答案同步轮次，result 为 ok / error / skipped / stale
	SyncFlushes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "test_answer_sync_flushes_total",
			Help: "Answer sync rounds by outcome",
		},
		[]string{"side", "result"},
	)

	SyncedAnswers = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "test_answer_sync_batch_size",
			Help:    "Answers carried per sync round",
			Buckets: []float64{1, 2, 5, 10, 25, 50},
		},
	)

	CountdownStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "test_countdown_streams",
			Help: "Open countdown websocket streams",
		},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(AttemptTransitions)
		prometheus.MustRegister(SyncFlushes)
		prometheus.MustRegister(SyncedAnswers)
		prometheus.MustRegister(CountdownStreams)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
