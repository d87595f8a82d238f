// Package api 把 pinboard 的 HTTP 接口挂载到 gin 引擎上，可嵌入其他服务.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/pinboard/pkg/board"
	"github.com/yeisme/pinboard/pkg/internal/router"
	"github.com/yeisme/pinboard/pkg/middleware"
	"github.com/yeisme/pinboard/pkg/scheduler"
)

// Mount 注入 board 和调度器并注册全部路由. sched 可以为 nil，此时任务列表为空.
func Mount(e *gin.Engine, b board.Board, sched *scheduler.Scheduler) *gin.Engine {
	e.Use(middleware.BoardMiddleware(b), middleware.SchedulerMiddleware(sched))
	router.Register(e)

	return e
}
