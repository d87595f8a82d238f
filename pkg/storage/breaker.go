package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sony/gobreaker"

	"github.com/yeisme/pinboard/pkg/configs"
	"github.com/yeisme/pinboard/pkg/log"
	"github.com/yeisme/pinboard/pkg/pinerr"
)

// ErrUnavailable 熔断打开时返回.
var ErrUnavailable = errors.New("storage backend temporarily unavailable")

// Breaker 用熔断器包装远端后端. 路径不存在和后端能力错误不计为失败.
type Breaker struct {
	fs FileSystem
	cb *gobreaker.CircuitBreaker
}

// NewBreaker 按配置包装后端，未启用时原样返回.
func NewBreaker(fsys FileSystem, cfg configs.CircuitBreakerConfig) FileSystem {
	if !cfg.Enabled {
		return fsys
	}

	name := "storage"
	if p := fsys.Protocol(); len(p) > 0 {
		name = "storage." + p[0]
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequestsInHalf,
		Interval:    time.Duration(cfg.IntervalSeconds) * time.Second,
		Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}

			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRate
		},
		IsSuccessful: func(err error) bool {
			return err == nil || IsNotExist(err) || errors.Is(err, context.Canceled) ||
				pinerr.KindOf(err) != pinerr.Other
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Logger().Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("storage circuit breaker state changed")
		},
	}

	return &Breaker{fs: fsys, cb: gobreaker.NewCircuitBreaker(settings)}
}

// Unwrap 返回被包装的后端.
func (b *Breaker) Unwrap() FileSystem { return b.fs }

// State 熔断器当前状态.
func (b *Breaker) State() string { return b.cb.State().String() }

func (b *Breaker) do(fn func() (any, error)) (any, error) {
	v, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	return v, err
}

func (b *Breaker) Protocol() []string { return b.fs.Protocol() }

func (b *Breaker) Ls(ctx context.Context, p string, detail bool) ([]Entry, error) {
	v, err := b.do(func() (any, error) { return b.fs.Ls(ctx, p, detail) })
	if err != nil {
		return nil, err
	}

	return v.([]Entry), nil
}

func (b *Breaker) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	v, err := b.do(func() (any, error) { return b.fs.Open(ctx, p) })
	if err != nil {
		return nil, err
	}

	return v.(io.ReadCloser), nil
}

func (b *Breaker) Put(ctx context.Context, localDir, remotePath string, recursive bool) (string, error) {
	v, err := b.do(func() (any, error) { return b.fs.Put(ctx, localDir, remotePath, recursive) })
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

func (b *Breaker) Exists(ctx context.Context, p string) (bool, error) {
	v, err := b.do(func() (any, error) { return b.fs.Exists(ctx, p) })
	if err != nil {
		return false, err
	}

	return v.(bool), nil
}

func (b *Breaker) Mkdir(ctx context.Context, p string) error {
	_, err := b.do(func() (any, error) { return nil, b.fs.Mkdir(ctx, p) })
	return err
}

func (b *Breaker) Rm(ctx context.Context, p string, recursive bool) error {
	_, err := b.do(func() (any, error) { return nil, b.fs.Rm(ctx, p, recursive) })
	return err
}

func (b *Breaker) Info(ctx context.Context, p string) (Entry, error) {
	v, err := b.do(func() (any, error) { return b.fs.Info(ctx, p) })
	if err != nil {
		return Entry{}, err
	}

	return v.(Entry), nil
}

// FindBreaker 沿包装链查找熔断器.
func FindBreaker(fsys FileSystem) (*Breaker, bool) {
	for fsys != nil {
		if b, ok := fsys.(*Breaker); ok {
			return b, true
		}

		w, ok := fsys.(interface{ Unwrap() FileSystem })
		if !ok {
			return nil, false
		}

		fsys = w.Unwrap()
	}

	return nil, false
}
