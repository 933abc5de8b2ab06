package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHTTPMetricsRecordsRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	registry := prometheus.NewRegistry()
	metrics, err := NewHTTPMetrics(HTTPMetricsOptions{Registerer: registry})
	if err != nil {
		t.Fatalf("NewHTTPMetrics: %v", err)
	}

	router := gin.New()
	router.Use(metrics.Handler())
	router.GET("/api/plants/:id", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/plants/"+id, nil))
	}
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	got := testutil.ToFloat64(metrics.Requests.With(prometheus.Labels{"method": "GET", "route": "/api/plants/:id", "status": "404"}))
	if got != 2 {
		t.Fatalf("expected 2 requests on the route template, got %f", got)
	}
	unmatched := testutil.ToFloat64(metrics.Requests.With(prometheus.Labels{"method": "GET", "route": "unmatched", "status": "404"}))
	if unmatched != 1 {
		t.Fatalf("expected unmatched path to share one label, got %f", unmatched)
	}
	if testutil.ToFloat64(metrics.InFlight) != 0 {
		t.Fatalf("in-flight gauge must return to 0")
	}
	if testutil.CollectAndCount(metrics.Duration) == 0 {
		t.Fatalf("expected duration samples")
	}
}

func TestNewHTTPMetricsReusesRegisteredCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()

	first, err := NewHTTPMetrics(HTTPMetricsOptions{Registerer: registry})
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := NewHTTPMetrics(HTTPMetricsOptions{Registerer: registry})
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first.Requests != second.Requests {
		t.Fatalf("expected the registered counter to be reused")
	}
}

func TestHTTPMetricsNilHandlerPassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use((*HTTPMetrics)(nil).Handler())
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}
