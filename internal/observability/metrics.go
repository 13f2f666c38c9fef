package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "regbank",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "regbank",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	modbusRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "regbank",
			Subsystem: "modbus",
			Name:      "requests_total",
			Help:      "Modbus requests by function code and outcome.",
		},
		[]string{"node", "function", "result"},
	)
	modbusDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "regbank",
			Subsystem: "modbus",
			Name:      "request_duration_seconds",
			Help:      "Modbus request handling duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "function", "result"},
	)
	bindingDispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "regbank",
			Subsystem: "binding",
			Name:      "dispatches_total",
			Help:      "Binding consumers invoked per bank.",
		},
		[]string{"node", "bank"},
	)
	skippedWords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "regbank",
			Subsystem: "binding",
			Name:      "skipped_words_total",
			Help:      "Written words that satisfied no binding, per bank.",
		},
		[]string{"node", "bank"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			modbusRequests, modbusDuration,
			bindingDispatches, skippedWords,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordModbusRequest(node string, function uint8, result string, duration time.Duration) {
	RegisterMetrics()
	fnLabel := "0x" + strconv.FormatUint(uint64(function), 16)
	modbusRequests.WithLabelValues(node, fnLabel, result).Inc()
	modbusDuration.WithLabelValues(node, fnLabel, result).Observe(duration.Seconds())
}

func RecordDispatch(node, bank string, dispatched, skipped int) {
	RegisterMetrics()
	bindingDispatches.WithLabelValues(node, bank).Add(float64(dispatched))
	skippedWords.WithLabelValues(node, bank).Add(float64(skipped))
}
