package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/pinboard/pkg/internal/handle"
)

// RegisterHealthCheckRoute 注册健康检查路由.
func RegisterHealthCheckRoute(r gin.IRoutes) {
	r.GET("/health", handle.Health)
}
