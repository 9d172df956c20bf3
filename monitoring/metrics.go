package monitoring

import (
	"context"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	callbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_callbacks_total",
			Help: "Total processed payment callbacks by outcome",
		},
		[]string{"outcome"},
	)

	credentialsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_credentials_issued_total",
			Help: "Total session credentials minted for settled transactions",
		},
	)

	upstreamDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gateway_status_query_duration_seconds",
			Help:    "Duration of upstream gateway status queries",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	upstreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_status_query_errors_total",
			Help: "Upstream status query errors by kind",
		},
		[]string{"kind"},
	)

	breakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_circuit_breaker_state",
			Help: "Circuit breaker state for the gateway (0 closed, 1 half-open, 2 open)",
		},
	)

	goroutineCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_goroutines_total",
			Help: "Current number of active goroutines",
		},
	)

	pendingCallbacks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "callback_audit_entries_total",
			Help: "Callback audit entries currently tracked in redis",
		},
	)
)

// TrackCallback counts one resolved callback.
func TrackCallback(outcome string) {
	callbacksTotal.WithLabelValues(outcome).Inc()
}

// TrackCredentialIssued counts one minted session credential.
func TrackCredentialIssued() {
	credentialsIssued.Inc()
}

// TrackUpstreamQuery records the duration of one status query.
func TrackUpstreamQuery(duration time.Duration) {
	upstreamDuration.Observe(duration.Seconds())
}

// TrackUpstreamError counts an upstream failure by kind.
func TrackUpstreamError(kind string) {
	upstreamErrors.WithLabelValues(kind).Inc()
}

// SetBreakerState mirrors the gateway circuit breaker state.
func SetBreakerState(state int) {
	breakerState.Set(float64(state))
}

type Monitor struct {
	redis *redis.Client
}

func NewMonitor(redisClient *redis.Client) *Monitor {
	monitor := &Monitor{redis: redisClient}

	// Start metrics collection
	go monitor.collectMetrics()

	return monitor
}

func (m *Monitor) collectMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		ctx := context.Background()

		m.collectCallbackMetrics(ctx)
		m.collectGoroutineMetrics()
	}
}

func (m *Monitor) collectCallbackMetrics(ctx context.Context) {
	keys, _ := m.redis.Keys(ctx, "callback:*").Result()
	pendingCallbacks.Set(float64(len(keys)))
}

func (m *Monitor) collectGoroutineMetrics() {
	goroutineCount.Set(float64(runtime.NumGoroutine()))
}
