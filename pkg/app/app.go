// Package app 组装 serve 模式的 HTTP 服务：中间件、路由、定时任务和优雅退出.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yeisme/pinboard/pkg/api"
	"github.com/yeisme/pinboard/pkg/board"
	"github.com/yeisme/pinboard/pkg/configs"
	"github.com/yeisme/pinboard/pkg/internal/jobs"
	"github.com/yeisme/pinboard/pkg/log"
	"github.com/yeisme/pinboard/pkg/metrics"
	"github.com/yeisme/pinboard/pkg/middleware"
	"github.com/yeisme/pinboard/pkg/scheduler"
	"github.com/yeisme/pinboard/pkg/tracing"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	Engine    *gin.Engine
	Board     board.Board
	Scheduler *scheduler.Scheduler
	config    *configs.AppConfig
}

// NewApp 创建服务. 配置需已通过 configs.InitConfig 加载.
func NewApp(ctx context.Context, config *configs.AppConfig, b board.Board) (*App, error) {
	// 初始化追踪
	if err := tracing.InitTracer(ctx, config.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	// 初始化监控
	if err := metrics.InitMetrics(config.Metrics); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	sched, err := scheduler.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("init scheduler: %w", err)
	}

	if err := jobs.RegisterCronJobs(ctx, sched, config); err != nil {
		return nil, err
	}

	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.GinLoggerMiddleware(),
		middleware.CORSMiddleware(config.Server),
		middleware.TracingMiddleware(),
		middleware.PrometheusMiddleware(),
	)

	if config.RateLimit.Enabled {
		engine.Use(middleware.RateLimitMiddleware(config.RateLimit))
	}

	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	if config.Metrics.Enabled {
		_ = metrics.StartMetricsServer(config.Metrics, engine)
	}

	api.Mount(engine, b, sched)

	return &App{
		Engine:    engine,
		Board:     b,
		Scheduler: sched,
		config:    config,
	}, nil
}

// Run 启动调度器和 HTTP 服务，ctx 取消后优雅退出.
func (a *App) Run(ctx context.Context) error {
	l := log.Logger()
	addr := a.config.Server.Addr()

	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Engine,
		ReadHeaderTimeout: a.config.Server.GetTimeoutDuration(),
	}

	a.Scheduler.Start()

	errCh := make(chan error, 1)

	go func() {
		l.Info().Str("addr", addr).Msg("pinboard server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	var runErr error

	select {
	case <-ctx.Done():
		l.Info().Msg("shutting down server")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("server shutdown")
	}

	if err := a.Scheduler.Stop(); err != nil {
		l.Error().Err(err).Msg("scheduler shutdown")
	}

	if err := tracing.ShutdownTracer(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("tracer shutdown")
	}

	return runErr
}
