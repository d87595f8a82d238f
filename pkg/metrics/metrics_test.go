package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/pinboard/pkg/configs"
)

func TestInitMetricsLabels(t *testing.T) {
	cfg := configs.MetricsConfig{Enabled: true, Path: "/metrics", Labels: map[string]string{"service": "pinboard"}}

	if err := InitMetrics(cfg); err != nil {
		t.Fatalf("init: %v", err)
	}

	// 重复初始化不会重复注册
	if err := InitMetrics(cfg); err != nil {
		t.Fatalf("second init: %v", err)
	}

	PinOperations.WithLabelValues("write", "file").Inc()

	families, err := Gather()
	if err != nil {
		t.Fatal(err)
	}

	var found bool

	for _, f := range families {
		if f.GetName() != "pin_operations_total" {
			continue
		}

		found = true

		for _, l := range f.GetMetric()[0].GetLabel() {
			if l.GetName() == "service" && l.GetValue() != "pinboard" {
				t.Errorf("service label = %q", l.GetValue())
			}
		}
	}

	if !found {
		t.Error("pin_operations_total not registered")
	}

	gin.SetMode(gin.TestMode)

	engine := gin.New()
	if err := StartMetricsServer(cfg, engine); err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "pin_operations_total") {
		t.Errorf("metrics endpoint: %d %s", w.Code, w.Body.String())
	}
}
