package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/pinboard/pkg/configs"
)

// CORSMiddleware 只开放 API 用到的方法. 配置了 allow_origins 时只允许这些来源，
// debug 模式下允许任意来源携带凭据.
func CORSMiddleware(cfg configs.ServerConfig) gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}

	switch {
	case len(cfg.AllowOrigins) > 0:
		config.AllowOrigins = cfg.AllowOrigins
	case cfg.Debug:
		config.AllowOriginFunc = func(string) bool { return true }
		config.AllowCredentials = true
	default:
		config.AllowAllOrigins = true
	}

	return cors.New(config)
}
