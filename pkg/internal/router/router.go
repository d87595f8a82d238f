// Package router 绑定 HTTP 路由到 handle 包中的处理器.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/pinboard/pkg/internal/handle"
	"github.com/yeisme/pinboard/pkg/rule"
)

// Register 注册全部路由. /health 在根路径，其余在 /api/v1 下.
func Register(engine *gin.Engine) {
	// 请求参数使用 rule 标签校验
	rule.Engine()

	RegisterHealthCheckRoute(engine)

	v1 := engine.Group("/api/v1")
	RegisterPinRoutes(v1)
	RegisterSchedulerRoutes(v1)
}

// RegisterPinRoutes 注册 pin 相关路由.
func RegisterPinRoutes(g *gin.RouterGroup) {
	pins := g.Group("/pins")
	{
		pins.GET("", handle.ListPins)
		pins.GET("/versions", handle.PinVersions)
		pins.GET("/meta", handle.PinMeta)
		pins.DELETE("/version", handle.DeletePinVersion)
		pins.POST("/prune", handle.PrunePinVersions)
	}
}
