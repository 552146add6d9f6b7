package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "antmaps_requests_total",
		Help: "Total number of data requests by operation and format",
	}, []string{"op", "format"})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "antmaps_request_duration_ms",
		Help:    "Request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	}, []string{"op"})
	ValidationErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "antmaps_validation_errors_total",
		Help: "Total number of requests rejected for missing or invalid arguments",
	}, []string{"op"})
	EmptyResultsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "antmaps_empty_results_total",
		Help: "Total number of responses with no records",
	}, []string{"op"})
	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "antmaps_cache_hits_total",
		Help: "Total response cache hits",
	}, []string{"backend"})
	CacheMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "antmaps_cache_misses_total",
		Help: "Total response cache misses",
	}, []string{"backend"})
	StoreQueryDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "antmaps_store_query_duration_ms",
		Help:    "Backing store query duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	}, []string{"query"})
	StoreErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "antmaps_store_errors_total",
		Help: "Total backing store query failures",
	}, []string{"query"})
	ErrorReportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "antmaps_error_reports_total",
		Help: "Error report submissions by outcome (invalid, sent, failed)",
	}, []string{"outcome"})
	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "antmaps_rate_limited_total",
		Help: "Total requests rejected by the per-visitor rate limiter",
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(ValidationErrorsTotal)
	prometheus.MustRegister(EmptyResultsTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(StoreQueryDurationMs)
	prometheus.MustRegister(StoreErrorsTotal)
	prometheus.MustRegister(ErrorReportsTotal)
	prometheus.MustRegister(RateLimitedTotal)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标到 /metrics 路径，供 Prometheus 抓取；在主入口挂载。
func Handler() http.Handler { return promhttp.Handler() }
