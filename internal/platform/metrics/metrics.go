package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)

	JudgeRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "judge_requests_total",
			Help: "Outbound calls to the code execution service",
		},
		[]string{"op", "outcome"},
	)

	JudgeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "judge_request_duration_seconds",
			Help:    "Latency of outbound judge calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	FinalizeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grading_finalize_total",
			Help: "Finalize attempts by outcome",
		},
		[]string{"outcome"},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestCounter, RequestDuration, JudgeRequests, JudgeDuration, FinalizeTotal)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}
