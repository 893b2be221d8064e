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
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 15, 60},
		},
		[]string{"method", "endpoint"},
	)

	// AssessmentsStarted 按结果统计 start 调用：resumed / generated / regenerated
	AssessmentsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "careerx_assessments_started_total",
			Help: "Assessment start calls by outcome",
		},
		[]string{"outcome"},
	)

	AssessmentsSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "careerx_assessments_submitted_total",
			Help: "Assessment sessions completed",
		},
	)

	AICalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "careerx_ai_calls_total",
			Help: "Generative AI calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	AICallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "careerx_ai_call_duration_seconds",
			Help:    "Duration of generative AI calls",
			Buckets: []float64{1, 5, 15, 30, 60, 120},
		},
		[]string{"operation"},
	)

	PaymentsVerified = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "careerx_payments_verified_total",
			Help: "Payment verification attempts by outcome",
		},
		[]string{"outcome"},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			AssessmentsStarted,
			AssessmentsSubmitted,
			AICalls,
			AICallDuration,
			PaymentsVerified,
		)
	})
}

// ObserveAICall 记录一次 AI 调用的耗时和结果
func ObserveAICall(operation string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	AICalls.WithLabelValues(operation, outcome).Inc()
	AICallDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
