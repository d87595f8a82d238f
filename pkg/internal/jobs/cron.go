// Package jobs 注册 serve 模式下的定时任务.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/yeisme/pinboard/pkg/cache"
	"github.com/yeisme/pinboard/pkg/configs"
	"github.com/yeisme/pinboard/pkg/log"
	"github.com/yeisme/pinboard/pkg/metrics"
	"github.com/yeisme/pinboard/pkg/scheduler"
)

// JobCachePrune 缓存清理任务名称.
const JobCachePrune = "cache.prune"

// RegisterCronJobs 按配置注册缓存清理任务：cache.prune_cron 触发，删除超过 cache.prune_days 天未访问的版本.
func RegisterCronJobs(ctx context.Context, sched *scheduler.Scheduler, cfg *configs.AppConfig) error {
	if sched == nil {
		return fmt.Errorf("scheduler is nil")
	}

	root := cache.DefaultDir(cfg.Cache.Dir)
	days := cfg.Cache.PruneDays

	return sched.AddCron(ctx, JobCachePrune, cfg.Cache.PruneCron, func(context.Context) error {
		_, err := PruneCache(root, days, time.Now)
		return err
	})
}

// PruneCache 非交互地清理缓存并记录释放的字节数.
func PruneCache(root string, days int, now func() time.Time) (cache.PruneResult, error) {
	l := log.Component("scheduler").With().Str("job", JobCachePrune).Logger()

	res, err := cache.Prune(root, days, cache.Always, log.NewReporter(true, nil).WithLogger(&l), now)
	if err != nil {
		return res, fmt.Errorf("prune cache %s: %w", root, err)
	}

	if res.Deleted {
		metrics.CachePrunedBytes.Add(float64(res.Bytes))
	}

	l.Info().Int("versions", len(res.Versions)).Int64("bytes", res.Bytes).Msg("cache prune finished")

	return res, nil
}
