// Package s3 基于 MinIO 客户端实现 S3 兼容对象存储后端.
// 路径格式为 "bucket/key/..."，第一段是桶名.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/sync/errgroup"

	"github.com/yeisme/pinboard/pkg/configs"
	nlog "github.com/yeisme/pinboard/pkg/log"
	"github.com/yeisme/pinboard/pkg/storage"
)

// Client 包装 MinIO 客户端，实现 storage.FileSystem.
type Client struct {
	*minio.Client
	concurrency int
}

func init() {
	storage.RegisterFactory(storage.TypeS3, func(ctx context.Context, config any) (storage.FileSystem, error) {
		cfg, ok := config.(*configs.S3Config)
		if !ok || cfg == nil {
			return nil, fmt.Errorf("s3: expected *configs.S3Config, got %T", config)
		}

		return New(ctx, cfg)
	})
}

// New 初始化 MinIO 客户端，若配置了 bucket 且不存在则尝试创建.
func New(ctx context.Context, cfg *configs.S3Config) (*Client, error) {
	endpoint := cfg.Endpoint
	secure := cfg.UseSSL
	// 允许用户传完整 schema endpoint（http:// 或 https://）
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			secure = true
		}
	}

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	cli.SetAppInfo("pinboard", configs.AppVersion)

	if cfg.Bucket != "" && cfg.CreateBucket {
		exists, err := cli.BucketExists(ctx, cfg.Bucket)
		if err != nil {
			return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
		}

		if !exists {
			if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
				return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
			}

			nlog.Logger().Info().Str("bucket", cfg.Bucket).Msg("bucket created")
		}
	}

	nlog.Logger().Info().Str("endpoint", cfg.Endpoint).Msg("s3 connected")

	concurrency := cfg.PutConcurrency
	if concurrency <= 0 {
		concurrency = configs.DefaultS3PutConcurrency
	}

	return &Client{Client: cli, concurrency: concurrency}, nil
}

// HealthCheck 简单的健康检查，通过列出桶来验证连接.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.ListBuckets(ctx)
	return err
}

func (c *Client) Protocol() []string { return []string{string(storage.TypeS3), "s3a"} }

// split 把 "bucket/a/b" 拆成桶和对象键.
func split(p string) (bucket, key string) {
	p = strings.Trim(p, "/")
	bucket, key, _ = strings.Cut(p, "/")

	return bucket, key
}

func dirPrefix(key string) string {
	if key == "" {
		return ""
	}

	return strings.TrimSuffix(key, "/") + "/"
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchBucket" || code == "NotFound"
}

func (c *Client) Ls(ctx context.Context, p string, detail bool) ([]storage.Entry, error) {
	bucket, key := split(p)
	prefix := dirPrefix(key)

	var entries []storage.Entry

	for obj := range c.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			if isNotFound(obj.Err) {
				return nil, storage.NotExist(p)
			}

			return nil, fmt.Errorf("ls %s: %w", p, obj.Err)
		}

		name := strings.TrimSuffix(obj.Key, "/")
		if name == strings.TrimSuffix(prefix, "/") {
			continue
		}

		e := storage.Entry{Name: bucket + "/" + name, IsDir: strings.HasSuffix(obj.Key, "/")}
		if detail {
			e.Size = obj.Size
			e.ModTime = obj.LastModified
		}

		entries = append(entries, e)
	}

	if len(entries) == 0 && key != "" {
		return nil, storage.NotExist(p)
	}

	return entries, nil
}

func (c *Client) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	bucket, key := split(p)

	if _, err := c.StatObject(ctx, bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNotFound(err) {
			return nil, storage.NotExist(p)
		}

		return nil, fmt.Errorf("stat %s: %w", p, err)
	}

	obj, err := c.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", p, err)
	}

	return obj, nil
}

// Put 并发上传本地目录下的所有文件.
func (c *Client) Put(ctx context.Context, localDir, remotePath string, recursive bool) (string, error) {
	bucket, key := split(remotePath)

	var files []string

	err := filepath.WalkDir(localDir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if p != localDir && !recursive {
				return filepath.SkipDir
			}

			return nil
		}

		files = append(files, p)

		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walk %s: %w", localDir, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for _, f := range files {
		rel, err := filepath.Rel(localDir, f)
		if err != nil {
			return "", err
		}

		objectKey := path.Join(key, filepath.ToSlash(rel))
		if rel == "." {
			objectKey = key
		}

		g.Go(func() error {
			if _, err := c.FPutObject(gctx, bucket, objectKey, f, minio.PutObjectOptions{}); err != nil {
				return fmt.Errorf("upload %s: %w", objectKey, err)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", err
	}

	nlog.Logger().Debug().Str("bucket", bucket).Str("key", key).Int("files", len(files)).Msg("uploaded directory")

	return remotePath, nil
}

func (c *Client) Exists(ctx context.Context, p string) (bool, error) {
	bucket, key := split(p)
	if key == "" {
		return c.BucketExists(ctx, bucket)
	}

	if _, err := c.StatObject(ctx, bucket, key, minio.StatObjectOptions{}); err == nil {
		return true, nil
	} else if !isNotFound(err) {
		return false, fmt.Errorf("stat %s: %w", p, err)
	}

	for obj := range c.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: dirPrefix(key), MaxKeys: 1}) {
		if obj.Err != nil {
			if isNotFound(obj.Err) {
				return false, nil
			}

			return false, obj.Err
		}

		return true, nil
	}

	return false, nil
}

// Mkdir 对象存储没有目录，空操作.
func (c *Client) Mkdir(context.Context, string) error { return nil }

func (c *Client) Rm(ctx context.Context, p string, recursive bool) error {
	bucket, key := split(p)

	if !recursive {
		if err := c.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("rm %s: %w", p, err)
		}

		return nil
	}

	objects := c.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: dirPrefix(key), Recursive: true})

	var errs []error
	for rerr := range c.RemoveObjects(ctx, bucket, objects, minio.RemoveObjectsOptions{}) {
		errs = append(errs, fmt.Errorf("rm %s: %w", rerr.ObjectName, rerr.Err))
	}

	return errors.Join(errs...)
}

func (c *Client) Info(ctx context.Context, p string) (storage.Entry, error) {
	bucket, key := split(p)

	info, err := c.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return storage.Entry{Name: p, Size: info.Size, ModTime: info.LastModified}, nil
	}

	if !isNotFound(err) {
		return storage.Entry{}, fmt.Errorf("stat %s: %w", p, err)
	}

	ok, err := c.Exists(ctx, p)
	if err != nil {
		return storage.Entry{}, err
	}

	if !ok {
		return storage.Entry{}, storage.NotExist(p)
	}

	return storage.Entry{Name: p, IsDir: true}, nil
}
