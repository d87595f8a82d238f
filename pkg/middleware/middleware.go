// Package middleware serve 模式使用的 gin 中间件.
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/pinboard/pkg/board"
	"github.com/yeisme/pinboard/pkg/scheduler"
)

type (
	boardKey     struct{}
	schedulerKey struct{}
)

// BoardMiddleware 把 board 注入请求 context.
func BoardMiddleware(b board.Board) gin.HandlerFunc {
	return inject(func(ctx context.Context) context.Context { return WithBoard(ctx, b) })
}

// SchedulerMiddleware 把 scheduler 注入请求 context，未启用调度时传 nil.
func SchedulerMiddleware(sched *scheduler.Scheduler) gin.HandlerFunc {
	return inject(func(ctx context.Context) context.Context {
		return context.WithValue(ctx, schedulerKey{}, sched)
	})
}

func inject(with func(context.Context) context.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(with(c.Request.Context()))
		c.Next()
	}
}

// WithBoard 返回携带 board 的 context.
func WithBoard(ctx context.Context, b board.Board) context.Context {
	return context.WithValue(ctx, boardKey{}, b)
}

// GetBoard 从请求中取出 board，未注入时返回 nil.
func GetBoard(c *gin.Context) board.Board {
	b, _ := c.Request.Context().Value(boardKey{}).(board.Board)
	return b
}

// GetScheduler 从请求中取出 scheduler.
func GetScheduler(c *gin.Context) *scheduler.Scheduler {
	sched, _ := c.Request.Context().Value(schedulerKey{}).(*scheduler.Scheduler)
	return sched
}
