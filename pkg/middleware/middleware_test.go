package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/yeisme/pinboard/pkg/board"
	"github.com/yeisme/pinboard/pkg/configs"
	"github.com/yeisme/pinboard/pkg/log"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// TestRateLimitPerIP 测试按客户端 IP 限流.
func TestRateLimitPerIP(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(configs.RateLimitConfig{Enabled: true, RPS: 1, Burst: 2, Key: "ip"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	get := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		return w.Code
	}

	for i := 0; i < 2; i++ {
		if code := get("10.0.0.1"); code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, code)
		}
	}

	if code := get("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Errorf("third request: status %d, want 429", code)
	}

	if code := get("10.0.0.2"); code != http.StatusOK {
		t.Errorf("other client limited: status %d", code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(configs.RateLimitConfig{Enabled: false}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 50; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("status %d", w.Code)
		}
	}
}

func TestLimiterSetEvictsIdle(t *testing.T) {
	now := time.Unix(0, 0)
	s := newLimiterSet(configs.RateLimitConfig{RPS: 1, Burst: 1}, func() time.Time { return now })

	s.get("a")
	now = now.Add(limiterIdleTTL + time.Minute)
	s.get("b")

	if _, ok := s.entries["a"]; ok {
		t.Error("idle limiter a not evicted")
	}

	if len(s.entries) != 1 {
		t.Errorf("entries = %d", len(s.entries))
	}
}

func TestBoardInjection(t *testing.T) {
	b := board.NewFolder(t.TempDir(), board.WithReporter(log.Discard()))

	r := gin.New()
	r.Use(BoardMiddleware(b))
	r.GET("/", func(c *gin.Context) {
		if GetBoard(c) == nil {
			c.Status(http.StatusInternalServerError)
			return
		}

		if GetScheduler(c) != nil {
			c.Status(http.StatusConflict)
			return
		}

		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status %d", w.Code)
	}
}

// TestTracingRouteName 测试 span 使用路由模板命名，5xx 标记为错误.
func TestTracingRouteName(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()

	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	r := gin.New()
	r.Use(TracingMiddleware())
	r.GET("/pins/:name", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/pins/mtcars", nil))

	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans = %d", len(ended))
	}

	if ended[0].Name() != "GET /pins/:name" {
		t.Errorf("span name = %q", ended[0].Name())
	}

	if ended[0].Status().Code != codes.Error {
		t.Errorf("status = %v", ended[0].Status())
	}
}

func TestSchedulerInjection(t *testing.T) {
	r := gin.New()
	r.Use(SchedulerMiddleware(nil))
	r.GET("/", func(c *gin.Context) {
		if GetScheduler(c) != nil {
			t.Error("expected nil scheduler")
		}

		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d", w.Code)
	}
}
