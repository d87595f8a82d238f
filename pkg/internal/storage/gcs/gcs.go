// Package gcs 通过 Google Cloud Storage 的 S3 兼容 XML 接口（HMAC 密钥）实现存储后端.
// 路径格式为 "bucket/key/..."，与 s3 后端一致.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/sync/errgroup"

	"github.com/yeisme/pinboard/pkg/configs"
	nlog "github.com/yeisme/pinboard/pkg/log"
	"github.com/yeisme/pinboard/pkg/storage"
)

// Client GCS 后端.
type Client struct {
	client      *s3.Client
	concurrency int
}

func init() {
	storage.RegisterFactory(storage.TypeGCS, func(_ context.Context, config any) (storage.FileSystem, error) {
		cfg, ok := config.(*configs.GCSConfig)
		if !ok || cfg == nil {
			return nil, fmt.Errorf("gcs: expected *configs.GCSConfig, got %T", config)
		}

		return New(cfg)
	})
}

// New 创建客户端，不做连通性检查.
func New(cfg *configs.GCSConfig) (*Client, error) {
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("gcs: hmac access key and secret are required")
	}

	creds := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
		cfg.AccessKeyID,
		cfg.SecretAccessKey,
		"",
	))

	client := s3.New(s3.Options{
		BaseEndpoint:               aws.String(cfg.Endpoint),
		Region:                     cfg.Region,
		Credentials:                creds,
		UsePathStyle:               true,
		RetryMode:                  aws.RetryModeAdaptive,
		RetryMaxAttempts:           cfg.RetryMaxAttempts,
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
	})

	concurrency := cfg.PutConcurrency
	if concurrency <= 0 {
		concurrency = configs.DefaultS3PutConcurrency
	}

	nlog.Logger().Info().Str("endpoint", cfg.Endpoint).Msg("gcs client created")

	return &Client{client: client, concurrency: concurrency}, nil
}

func (c *Client) Protocol() []string { return []string{string(storage.TypeGCS), "gs"} }

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
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	var nsb *types.NoSuchBucket

	return errors.As(err, &nsk) || errors.As(err, &nf) || errors.As(err, &nsb)
}

func (c *Client) Ls(ctx context.Context, p string, detail bool) ([]storage.Entry, error) {
	bucket, key := split(p)

	pager := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(bucket),
		Prefix:    aws.String(dirPrefix(key)),
		Delimiter: aws.String("/"),
	})

	var entries []storage.Entry

	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			if isNotFound(err) {
				return nil, storage.NotExist(p)
			}

			return nil, fmt.Errorf("ls %s: %w", p, err)
		}

		for _, cp := range page.CommonPrefixes {
			entries = append(entries, storage.Entry{
				Name:  bucket + "/" + strings.TrimSuffix(aws.ToString(cp.Prefix), "/"),
				IsDir: true,
			})
		}

		for _, obj := range page.Contents {
			k := aws.ToString(obj.Key)
			if k == dirPrefix(key) {
				continue
			}

			e := storage.Entry{Name: bucket + "/" + k}
			if detail {
				e.Size = aws.ToInt64(obj.Size)
				e.ModTime = aws.ToTime(obj.LastModified)
			}

			entries = append(entries, e)
		}
	}

	if len(entries) == 0 && key != "" {
		return nil, storage.NotExist(p)
	}

	return entries, nil
}

func (c *Client) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	bucket, key := split(p)

	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, storage.NotExist(p)
		}

		return nil, fmt.Errorf("get %s: %w", p, err)
	}

	return out.Body, nil
}

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
			body, err := os.Open(f)
			if err != nil {
				return err
			}
			defer body.Close()

			_, err = c.client.PutObject(gctx, &s3.PutObjectInput{
				Bucket: aws.String(bucket),
				Key:    aws.String(objectKey),
				Body:   body,
			})
			if err != nil {
				return fmt.Errorf("upload %s: %w", objectKey, err)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", err
	}

	return remotePath, nil
}

func (c *Client) Exists(ctx context.Context, p string) (bool, error) {
	bucket, key := split(p)

	if key == "" {
		_, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
		if err != nil {
			if isNotFound(err) {
				return false, nil
			}

			return false, err
		}

		return true, nil
	}

	_, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err == nil {
		return true, nil
	}

	if !isNotFound(err) {
		return false, fmt.Errorf("head %s: %w", p, err)
	}

	out, err := c.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		Prefix:  aws.String(dirPrefix(key)),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}

		return false, fmt.Errorf("ls %s: %w", p, err)
	}

	return len(out.Contents) > 0, nil
}

// Mkdir 对象存储没有目录，空操作.
func (c *Client) Mkdir(context.Context, string) error { return nil }

// Rm GCS 的 XML 接口不支持批量删除，逐个删除对象.
func (c *Client) Rm(ctx context.Context, p string, recursive bool) error {
	bucket, key := split(p)

	if !recursive {
		_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
		if err != nil {
			return fmt.Errorf("rm %s: %w", p, err)
		}

		return nil
	}

	pager := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(dirPrefix(key)),
	})

	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("ls %s: %w", p, err)
		}

		for _, obj := range page.Contents {
			if _, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(bucket), Key: obj.Key}); err != nil {
				return fmt.Errorf("rm %s: %w", aws.ToString(obj.Key), err)
			}
		}
	}

	return nil
}

func (c *Client) Info(ctx context.Context, p string) (storage.Entry, error) {
	bucket, key := split(p)

	out, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err == nil {
		return storage.Entry{Name: p, Size: aws.ToInt64(out.ContentLength), ModTime: aws.ToTime(out.LastModified)}, nil
	}

	if !isNotFound(err) {
		return storage.Entry{}, fmt.Errorf("head %s: %w", p, err)
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
