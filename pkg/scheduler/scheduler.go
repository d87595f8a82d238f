// Package scheduler serve 模式下的定时任务，使用 gocron/v2.
//
// 任务返回 error，调度器记录每次运行的结果，供 /api/v1/scheduler/jobs 查看.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yeisme/pinboard/pkg/log"
)

// JobStatus 任务状态.
type JobStatus string

const (
	StatusScheduled JobStatus = "scheduled" // 等待下次运行
	StatusRunning   JobStatus = "running"   // 正在运行
	StatusError     JobStatus = "error"     // 上次运行失败
)

// Job 定时任务函数.
type Job func(ctx context.Context) error

// JobInfo 任务信息.
type JobInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CronExpr    string    `json:"cron_expr"`
	NextRun     time.Time `json:"next_run"`
	LastRun     time.Time `json:"last_run"`
	LastSuccess time.Time `json:"last_success,omitempty"`
	Runs        int       `json:"runs"`
	Status      JobStatus `json:"status"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Scheduler gocron 调度器加上按名称管理的任务信息.
type Scheduler struct {
	scheduler gocron.Scheduler
	jobs      map[string]gocron.Job
	infos     map[string]*JobInfo
	mu        sync.RWMutex
	logger    *zerolog.Logger
	now       func() time.Time
}

// NewScheduler 创建调度器，需要调用 Start 才会运行任务.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		scheduler: s,
		jobs:      make(map[string]gocron.Job),
		infos:     make(map[string]*JobInfo),
		logger:    log.Logger(),
		now:       time.Now,
	}, nil
}

// AddCron 按 cron 表达式添加任务，名称不能重复. 同一任务不会并发运行.
func (s *Scheduler) AddCron(ctx context.Context, name, cronExpr string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job with name %s already exists", name)
	}

	j, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(func(ctx context.Context) { s.run(ctx, name, job) }, ctx),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("add job %s: %w", name, err)
	}

	nextRun, _ := j.NextRun()

	s.jobs[name] = j
	s.infos[name] = &JobInfo{
		ID:        j.ID().String(),
		Name:      name,
		CronExpr:  cronExpr,
		NextRun:   nextRun,
		Status:    StatusScheduled,
		CreatedAt: s.now(),
	}

	s.logger.Info().Str("job", name).Str("cron", cronExpr).Msg("Added cron job")

	return nil
}

// run 执行任务并记录结果，panic 视为失败.
func (s *Scheduler) run(ctx context.Context, name string, job Job) {
	s.setStatus(name, StatusRunning, nil)

	var err error

	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in job: %v", r)
			}
		}()

		err = job(ctx)
	}()

	if err != nil {
		s.logger.Error().Err(err).Str("job", name).Msg("Job failed")
		s.setStatus(name, StatusError, err)

		return
	}

	s.setStatus(name, StatusScheduled, nil)
}

func (s *Scheduler) setStatus(name string, status JobStatus, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.infos[name]
	if !ok {
		return
	}

	now := s.now()
	info.Status = status

	switch status {
	case StatusRunning:
		info.LastRun = now
		info.Runs++
	case StatusScheduled:
		info.Error = ""
		info.LastSuccess = now
	case StatusError:
		info.Error = err.Error()
	}
}

// RunNow 立即触发一次任务，不影响原有的调度时间.
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	j, ok := s.jobs[name]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("job with name %s does not exist", name)
	}

	return j.RunNow()
}

// RemoveJobByName 通过名称移除任务.
func (s *Scheduler) RemoveJobByName(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("job with name %s does not exist", name)
	}

	if err := s.scheduler.RemoveJob(j.ID()); err != nil {
		return err
	}

	delete(s.jobs, name)
	delete(s.infos, name)

	s.logger.Info().Str("job", name).Msg("Removed job")

	return nil
}

// JobID 任务在 gocron 中的 id.
func (s *Scheduler) JobID(name string) (uuid.UUID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[name]
	if !ok {
		return uuid.Nil, false
	}

	return j.ID(), true
}

// GetJobInfos 返回所有任务信息，按名称排序. 下次运行时间在读取时刷新.
func (s *Scheduler) GetJobInfos() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]JobInfo, 0, len(s.infos))

	for name, info := range s.infos {
		if next, err := s.jobs[name].NextRun(); err == nil {
			info.NextRun = next
		}

		infos = append(infos, *info)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

	return infos
}

// Start 启动调度器.
func (s *Scheduler) Start() {
	s.logger.Info().Msg("Starting scheduler")
	s.scheduler.Start()
}

// Stop 停止调度器并等待运行中的任务结束.
func (s *Scheduler) Stop() error {
	s.logger.Info().Msg("Stopping scheduler")
	return s.scheduler.Shutdown()
}
