// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// Prometheus instrumentation for HTTP traffic. Labels are method, route
// template and status, so per-user URLs never fan out into new series. 304s
// are counted separately to show how often clients revalidate their history
// with an ETag instead of downloading it again.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// sizeBuckets spans 200B to 5MiB; recency lists and catalog pages sit in the
// low KiB range.
var sizeBuckets = prometheus.ExponentialBucketsRange(200, 5<<20, 12)

var (
	httpReqs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"method", "path", "status"})

	// Status is left out of the histograms to bound their series count.
	httpLat = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	httpRespSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_response_size_bytes",
		Help:    "Size of HTTP responses in bytes.",
		Buckets: sizeBuckets,
	}, []string{"method", "path"})

	httpInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_requests_inflight",
		Help: "Current number of in-flight HTTP requests.",
	})

	// rateLimited counts requests rejected with 429, by limiter scope.
	rateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_rate_limited_total",
		Help: "Requests rejected by a rate limiter.",
	}, []string{"scope"})

	// notModified counts conditional reads answered with 304.
	notModified = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_not_modified_total",
		Help: "Conditional requests answered with 304 Not Modified.",
	}, []string{"path"})
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize, rateLimited, notModified)
}

// Metrics returns a Gin middleware that instruments requests with Prometheus.
// The "path" label is the route template (c.FullPath()), so per-user URLs
// such as /api/users/:userId/recentlyViewed collapse into one series. When no
// route matched the raw path is used.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method

		status := c.Writer.Status()
		httpReqs.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		if status == http.StatusNotModified {
			notModified.WithLabelValues(path).Inc()
		}
		httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		// Size is -1 when nothing was written.
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}
