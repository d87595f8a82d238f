package api_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/pinboard/pkg/api"
	"github.com/yeisme/pinboard/pkg/board"
	"github.com/yeisme/pinboard/pkg/log"
)

func TestMount(t *testing.T) {
	gin.SetMode(gin.TestMode)

	engine := api.Mount(gin.New(), board.NewFolder(t.TempDir(), board.WithReporter(log.Discard())), nil)

	for _, target := range []string{"/health", "/api/v1/pins", "/api/v1/scheduler/jobs"} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusOK, w.Code, target)
	}
}
