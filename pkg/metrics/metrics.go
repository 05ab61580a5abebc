package metrics

import (
	"net/http"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// APIRequests counts outgoing backend calls by method and status class.
	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yeetbank_api_requests_total",
			Help: "Backend requests issued by the client.",
		},
		[]string{"method", "status"},
	)

	TokenRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yeetbank_token_refreshes_total",
			Help: "Access token refresh attempts.",
		},
		[]string{"result"},
	)

	Transfers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yeetbank_transfers_total",
			Help: "Submitted transfers by flow and result.",
		},
		[]string{"flow", "result"},
	)

	ChatPolls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yeetbank_chat_polls_total",
			Help: "Chat poll ticks by loop and outcome.",
		},
		[]string{"loop", "outcome"},
	)

	// DashboardRefreshes counts background identity and unread-count fetches.
	DashboardRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yeetbank_dashboard_refreshes_total",
			Help: "Background dashboard refreshes by part and result.",
		},
		[]string{"part", "result"},
	)

	UnreadNotifications = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "yeetbank_unread_notifications",
			Help: "Last observed unread notification count.",
		},
	)

	DemoRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yeetbank_demo_requests_total",
			Help: "Requests served by the demo backend.",
		},
		[]string{"method", "status"},
	)

	heapAlloc = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "go_heap_alloc_bytes",
			Help: "Current heap allocation in bytes.",
		},
		func() float64 {
			var stats runtime.MemStats
			runtime.ReadMemStats(&stats)
			return float64(stats.HeapAlloc)
		},
	)
)

func init() {
	prometheus.MustRegister(APIRequests)
	prometheus.MustRegister(TokenRefreshes)
	prometheus.MustRegister(Transfers)
	prometheus.MustRegister(ChatPolls)
	prometheus.MustRegister(DashboardRefreshes)
	prometheus.MustRegister(UnreadNotifications)
	prometheus.MustRegister(DemoRequests)
	prometheus.MustRegister(heapAlloc)
}

// StatusClass buckets an HTTP status into "2xx", "4xx" and so on; zero means
// the request never got a response.
func StatusClass(status int) string {
	switch {
	case status <= 0:
		return "error"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// WrapHTTPHandler wraps an http.Handler to work with fasthttp.
func WrapHTTPHandler(h http.Handler) fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(h)
}

// Handler serves the default registry in the prometheus text format.
func Handler() fasthttp.RequestHandler {
	return WrapHTTPHandler(promhttp.Handler())
}
