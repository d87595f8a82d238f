package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/pinboard/pkg/configs"
	"github.com/yeisme/pinboard/pkg/middleware"
	"github.com/yeisme/pinboard/pkg/storage"
)

// Health 健康检查，返回版本和 board 协议. 远端存储熔断时返回 503.
func Health(c *gin.Context) {
	resp := gin.H{"status": "ok", "version": configs.AppVersion}

	b := middleware.GetBoard(c)
	if b == nil {
		resp["status"] = "unhealthy"
		resp["error"] = "board not initialized"
		render(c, http.StatusServiceUnavailable, resp)

		return
	}

	if p, ok := b.(interface{ Protocol() string }); ok {
		resp["protocol"] = p.Protocol()
	}

	if f, ok := b.(interface{ FS() storage.FileSystem }); ok {
		if br, ok := storage.FindBreaker(f.FS()); ok {
			resp["breaker"] = br.State()

			if br.State() == "open" {
				resp["status"] = "degraded"
				render(c, http.StatusServiceUnavailable, resp)

				return
			}
		}
	}

	render(c, http.StatusOK, resp)
}
