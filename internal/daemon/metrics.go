package daemon

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// refreshes counts refresh attempts. Labels: result (ok, error, guest)
	refreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lacag",
		Subsystem: "daemon",
		Name:      "refreshes_total",
		Help:      "Total remote refresh attempts by result",
	}, []string{"result"})

	refreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "lacag",
		Subsystem: "daemon",
		Name:      "refresh_duration_seconds",
		Help:      "Remote refresh latency in seconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	spentToday = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lacag",
		Name:      "spent_today",
		Help:      "Sum of today's expenses in the active list",
	})

	activeTransactions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lacag",
		Name:      "active_transactions",
		Help:      "Number of transactions in the active list",
	})

	// eventsPublished counts events. Labels: type
	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lacag",
		Subsystem: "daemon",
		Name:      "events_total",
		Help:      "Total events published to subscribers",
	}, []string{"type"})

	// httpRequests counts API calls. Labels: route, code
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lacag",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests served by route and status",
	}, []string{"route", "code"})
)

func metricsHandler() http.Handler {
	return promhttp.Handler()
}

func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
