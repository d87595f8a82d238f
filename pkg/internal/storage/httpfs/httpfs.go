// Package httpfs 提供只读的 HTTP(S) 存储后端，用于 URL board.
// 只支持 Open/Exists/Info，列表和写入操作返回 BackendCapability 错误.
package httpfs

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/yeisme/pinboard/pkg/configs"
	"github.com/yeisme/pinboard/pkg/pinerr"
	"github.com/yeisme/pinboard/pkg/storage"
)

// Client HTTP 后端.
type Client struct {
	client  *http.Client
	headers map[string]string
}

func init() {
	factory := func(_ context.Context, config any) (storage.FileSystem, error) {
		cfg, _ := config.(*configs.HTTPConfig)
		return New(cfg), nil
	}

	storage.RegisterFactory(storage.TypeHTTP, factory)
	storage.RegisterFactory(storage.TypeHTTPS, factory)
}

// New 创建客户端，cfg 为 nil 时使用默认超时.
func New(cfg *configs.HTTPConfig) *Client {
	timeout := configs.DefaultHTTPTimeout
	headers := map[string]string{}

	if cfg != nil {
		if cfg.Timeout > 0 {
			timeout = cfg.Timeout
		}

		headers = cfg.Headers
	}

	return &Client{client: &http.Client{Timeout: timeout}, headers: headers}
}

// NewWithClient 使用给定的 http.Client，便于测试.
func NewWithClient(c *http.Client) *Client {
	return &Client{client: c, headers: map[string]string{}}
}

func (c *Client) Protocol() []string {
	return []string{string(storage.TypeHTTP), string(storage.TypeHTTPS)}
}

func (c *Client) do(ctx context.Context, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}

	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	return c.client.Do(req)
}

func (c *Client) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	resp, err := c.do(ctx, http.MethodGet, url)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_ = resp.Body.Close()
		return nil, storage.NotExist(url)
	case resp.StatusCode >= http.StatusBadRequest:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("get %s: unexpected status %s", url, resp.Status)
	}

	return resp.Body, nil
}

func (c *Client) Exists(ctx context.Context, url string) (bool, error) {
	resp, err := c.do(ctx, http.MethodHead, url)
	if err != nil {
		return false, fmt.Errorf("head %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode >= http.StatusBadRequest:
		return false, fmt.Errorf("head %s: unexpected status %s", url, resp.Status)
	}

	return true, nil
}

func (c *Client) Info(ctx context.Context, url string) (storage.Entry, error) {
	resp, err := c.do(ctx, http.MethodHead, url)
	if err != nil {
		return storage.Entry{}, fmt.Errorf("head %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return storage.Entry{}, storage.NotExist(url)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return storage.Entry{}, fmt.Errorf("head %s: unexpected status %s", url, resp.Status)
	}

	e := storage.Entry{Name: url, Size: resp.ContentLength}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			e.ModTime = t.UTC()
		}
	}

	if e.Size < 0 {
		e.Size = 0
	}

	return e, nil
}

func (c *Client) Ls(_ context.Context, url string, _ bool) ([]storage.Entry, error) {
	return nil, pinerr.New(pinerr.BackendCapability, "http storage cannot list %s", url)
}

func (c *Client) Put(_ context.Context, _, url string, _ bool) (string, error) {
	return "", pinerr.New(pinerr.BackendCapability, "http storage is read only, cannot write %s", url)
}

func (c *Client) Mkdir(_ context.Context, url string) error {
	return pinerr.New(pinerr.BackendCapability, "http storage is read only, cannot create %s", url)
}

func (c *Client) Rm(_ context.Context, url string, _ bool) error {
	return pinerr.New(pinerr.BackendCapability, "http storage is read only, cannot remove %s", url)
}

