package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestJSONBodyGuard(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(JSONBodyGuard(64))
	router.POST("/echo", func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.Status(http.StatusTeapot)
			return
		}
		c.JSON(http.StatusOK, body)
	})

	cases := []struct {
		name        string
		contentType string
		body        string
		want        int
	}{
		{"valid", "application/json", `{"a":1}`, http.StatusOK},
		{"malformed", "application/json", `{"a":`, http.StatusBadRequest},
		{"charset", "application/json; charset=utf-8", `nope`, http.StatusBadRequest},
		{"too large", "application/json", `{"a":"` + strings.Repeat("x", 100) + `"}`, http.StatusRequestEntityTooLarge},
		{"not json", "text/plain", `{"a":`, http.StatusTeapot},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", tc.contentType)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("expected %d, got %d (%s)", tc.want, rr.Code, rr.Body.String())
			}
			if tc.want == http.StatusBadRequest && messageOf(t, rr) != "invalid payload" {
				t.Fatalf("unexpected body %s", rr.Body.String())
			}
		})
	}
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(CORS("https://app.example.com/, https://admin.example.com"))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Header().Get("Access-Control-Allow-Origin") != "https://app.example.com" || rr.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("expected allowed origin, got %v", rr.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unknown origin must not be allowed")
	}

	req = httptest.NewRequest(http.MethodOptions, "/", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("preflight: expected 204, got %d", rr.Code)
	}

	wildcard := gin.New()
	wildcard.Use(CORS(""))
	wildcard.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	rr = httptest.NewRecorder()
	wildcard.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("empty client url must allow any origin")
	}
}

func TestSecurityHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)

	for _, production := range []bool{false, true} {
		router := gin.New()
		router.Use(SecurityHeaders(production))
		router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Fatalf("missing nosniff header")
		}
		if hsts := rr.Header().Get("Strict-Transport-Security"); (hsts != "") != production {
			t.Fatalf("production=%v: unexpected HSTS %q", production, hsts)
		}
	}
}

func TestRecoveryAnswersGenericError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.ErrorLevel)

	router := gin.New()
	router.Use(EnrichContext(), Recovery(zap.New(core)))
	router.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rr.Code != http.StatusInternalServerError || messageOf(t, rr) != "server error" {
		t.Fatalf("expected generic 500, got %d %s", rr.Code, rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), "kaboom") {
		t.Fatalf("panic value must not leak")
	}
	if logs.FilterMessage("panic recovered").Len() != 1 {
		t.Fatalf("expected panic to be logged")
	}
}

func TestEnrichContextTraceID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestID(), EnrichContext())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, GetTraceID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TraceIDHeader, "caller-trace")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Header().Get(TraceIDHeader) != "caller-trace" || rr.Body.String() != "caller-trace" {
		t.Fatalf("expected propagated trace id, got %q", rr.Header().Get(TraceIDHeader))
	}
	if rr.Header().Get(RequestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Header().Get(TraceIDHeader) == "" {
		t.Fatalf("expected generated trace id")
	}
}

func TestLoggerWritesAccessLine(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)

	router := gin.New()
	router.Use(EnrichContext(), Logger(zap.New(core)))
	router.GET("/plants/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/plants/42", nil)
	req.RemoteAddr = "198.51.100.7:1234"
	router.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("request completed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one access log line, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["route"] != "/plants/:id" || fields["status"] != int64(http.StatusNoContent) {
		t.Fatalf("unexpected fields %v", fields)
	}
	if fields["client_ip"] == "198.51.100.7" {
		t.Fatalf("client ip must be masked")
	}
}
