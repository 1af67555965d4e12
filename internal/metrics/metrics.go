// Package metrics содержит метрики Prometheus сервиса учёта купонов.
package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mmeshcher/coupontracker/internal/model"
)

var (
	CouponsByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "coupontracker_coupons",
		Help: "Current number of coupons by display status",
	}, []string{"status"})

	ActiveCouponAmount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "coupontracker_active_coupon_amount",
		Help: "Total remaining value of usable coupons",
	})

	GenerationRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coupontracker_generation_requests_total",
		Help: "Generative-text requests by flow and result",
	}, []string{"flow", "result"})

	GenerationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coupontracker_generation_duration_seconds",
		Help:    "Duration of generative-text requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"flow"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coupontracker_http_requests_total",
		Help: "HTTP requests by method and status code",
	}, []string{"method", "code"})

	HTTPRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "coupontracker_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	})
)

// SetStatusCounts обновляет число купонов по статусам.
func SetStatusCounts(counts []model.StatusCount) {
	for _, c := range counts {
		CouponsByStatus.WithLabelValues(string(c.Status)).Set(float64(c.Count))
	}
}

// ObserveGeneration учитывает один запрос к генеративной модели.
func ObserveGeneration(flow string, err error, duration time.Duration) {
	label := strings.TrimSpace(flow)
	if label == "" {
		label = "unknown"
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	GenerationRequests.WithLabelValues(label, result).Inc()
	GenerationDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// ObserveHTTPRequest учитывает один обработанный HTTP-запрос.
func ObserveHTTPRequest(method string, status int, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.Observe(duration.Seconds())
}
