package board

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yeisme/pinboard/pkg/configs"
	"github.com/yeisme/pinboard/pkg/meta"
	"github.com/yeisme/pinboard/pkg/pinerr"
	"github.com/yeisme/pinboard/pkg/storage"
	"github.com/yeisme/pinboard/pkg/version"
)

// Connect 服务端错误码.
const (
	ConnectCodePermission   = 19 // 无权访问内容
	ConnectCodeLatestBundle = 75 // 不能删除当前 bundle
)

// ConnectContent Connect 上的一个 pin 内容项.
type ConnectContent struct {
	GUID          string `json:"guid"`
	Name          string `json:"name"`
	OwnerUsername string `json:"owner_username"`
	BundleID      string `json:"bundle_id"`
	AccessType    string `json:"access_type"`
	Title         string `json:"title"`
}

// ContentPatch 写入后同步到内容项的字段.
type ContentPatch struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	AccessType  string `json:"access_type"`
}

// ConnectAPI board 需要的 Connect 接口. 文件的读写由配套的 storage.FileSystem 完成：
// Put 到 user/content 会创建新的 bundle，返回 user/content/{bundle_id}.
type ConnectAPI interface {
	ServerURL() string
	CurrentUser(ctx context.Context) (string, error)
	// SearchPins 服务端按名称搜索 pin 内容，query 为空时返回全部.
	SearchPins(ctx context.Context, query string) ([]ConnectContent, error)
	// Content 按 user/content 查找内容项.
	Content(ctx context.Context, pinPath string) (ConnectContent, error)
	PatchContent(ctx context.Context, guid string, patch ContentPatch) error
}

// ConnectAPIError Connect 返回的业务错误.
type ConnectAPIError struct {
	Code    int
	Message string
}

func (e *ConnectAPIError) Error() string {
	return fmt.Sprintf("connect api error %d: %s", e.Code, e.Message)
}

func connectCode(err error) (int, bool) {
	var apiErr *ConnectAPIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}

	return 0, false
}

// connectLayout user/content/bundle，没有 board 根路径.
type connectLayout struct {
	c *Connect
}

func (l connectLayout) pinPath(ctx context.Context, name string) (string, error) {
	allowShort, err := configs.AllowConnectShortName()
	if err != nil {
		return "", pinerr.Wrap(pinerr.Usage, err, "invalid environment")
	}

	if !allowShort && strings.Count(name, "/") != 1 {
		return "", pinerr.New(pinerr.Usage,
			"invalid pin name: %q; Connect pin names must include the user name, e.g. some_user/mtcars", name)
	}

	if name == "" || strings.Count(name, "/") > 1 || strings.HasPrefix(strings.TrimSpace(name), "/") {
		return "", pinerr.New(pinerr.Usage, "invalid pin name: %q", name)
	}

	for _, seg := range strings.Split(name, "/") {
		if !validSegment(seg) {
			return "", pinerr.New(pinerr.Usage, "invalid pin name: %q", name)
		}
	}

	if strings.Contains(name, "/") {
		return name, nil
	}

	user, err := l.c.UserName(ctx)
	if err != nil {
		return "", err
	}

	return user + "/" + name, nil
}

func (connectLayout) path(elems ...string) string { return strings.Join(elems, "/") }

// deployPath 部署新版本是在内容项下创建 bundle，目标就是 pin 路径本身.
func (connectLayout) deployPath(pinPath, _ string) string { return pinPath }

func (connectLayout) dataName(name string) string {
	return name[strings.LastIndex(name, "/")+1:]
}

func (connectLayout) compare(a, b version.Version) int { return version.CompareInt(a, b) }

// Connect 基于 Connect 服务的 board.
type Connect struct {
	*Base
	api      ConnectAPI
	userName string
}

// NewConnect 创建 Connect board. fsys 为与 api 配套的文件系统，通常已用缓存包装.
func NewConnect(api ConnectAPI, fsys storage.FileSystem, opts ...Option) *Connect {
	c := &Connect{api: api}
	c.Base = newBase("", fsys, connectLayout{c: c}, opts...)
	c.impl = c
	c.metaLocal = c.localFields

	return c
}

// API 返回使用的 Connect 客户端.
func (c *Connect) API() ConnectAPI { return c.api }

// UserName 当前 API key 对应的用户名，首次调用后缓存.
func (c *Connect) UserName(ctx context.Context) (string, error) {
	if c.userName != "" {
		return c.userName, nil
	}

	user, err := c.api.CurrentUser(ctx)
	if err != nil {
		return "", fmt.Errorf("get connect user: %w", err)
	}

	c.userName = user

	return user, nil
}

func (c *Connect) localFields(ctx context.Context, p string) (map[string]any, error) {
	parts := strings.Split(p, "/")
	if len(parts) < 3 {
		return nil, fmt.Errorf("unexpected connect metadata path %q", p)
	}

	content, err := c.api.Content(ctx, parts[0]+"/"+parts[1])
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"content_id": content.GUID,
		"version":    parts[2],
		"url":        strings.TrimRight(c.api.ServerURL(), "/") + "/content/" + content.GUID + "/",
	}, nil
}

func (c *Connect) PinList(ctx context.Context) ([]string, error) {
	results, err := c.api.SearchPins(ctx, "")
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.OwnerUsername+"/"+r.Name)
	}

	return names, nil
}

// PinWrite 只有内容项的所有者可以创建新的 pin；写入后把标题和描述同步到内容项.
// 版本数在上传前确定，非版本化写入在上传成功后才删除旧 bundle.
func (c *Connect) PinWrite(ctx context.Context, obj any, name string, opts WriteOptions) (rec meta.Record, err error) {
	ctx, done := c.observe(ctx, "write", name)
	defer done(&err)

	pinPath, err := c.layout.pinPath(ctx, name)
	if err != nil {
		return nil, err
	}

	user, err := c.UserName(ctx)
	if err != nil {
		return nil, err
	}

	if owner := strings.SplitN(pinPath, "/", 2)[0]; owner != user {
		exists, err := c.fs.Exists(ctx, pinPath)
		if err != nil {
			return nil, err
		}

		if !exists {
			return nil, pinerr.New(pinerr.Usage,
				"you are connected as %s, but you are trying to create a new piece of content for another user (%s); "+
					"they must create the content before you can write to it", user, pinPath)
		}
	}

	var versions []version.Version

	if opts.Versioned == nil && !c.versioned || opts.Versioned != nil && !*opts.Versioned {
		versions, err = c.PinVersions(ctx, name, true)
		if err != nil && !isNotFound(err) {
			return nil, err
		}
	}

	versioned := c.resolveVersioned(opts.Versioned, len(versions))
	if !versioned && len(versions) > 1 {
		return nil, versionConflict(name, len(versions))
	}

	rec, err = c.store(ctx, obj, name, opts, false)
	if err != nil {
		return nil, err
	}

	content, err := c.api.Content(ctx, pinPath)
	if err != nil {
		return nil, err
	}

	m, _ := rec.(*meta.Meta)

	patch := ContentPatch{AccessType: opts.AccessType}
	if patch.AccessType == "" {
		patch.AccessType = content.AccessType
	}

	if m != nil {
		patch.Title = m.Title
		patch.Description = m.Description
	}

	if err := c.api.PatchContent(ctx, content.GUID, patch); err != nil {
		return nil, fmt.Errorf("update content %s: %w", pinPath, err)
	}

	if !versioned && len(versions) == 1 && !version.Equal(versions[0], rec.PinVersion()) {
		c.reporter.Infof("Replacing version '%s' with '%s'", versions[0], rec.PinVersion())

		if err := c.PinVersionDelete(ctx, name, versions[0]); err != nil {
			return nil, err
		}
	}

	return rec, nil
}

// PinSearch 由服务端按名称过滤，不能按标题搜索. 没有权限读取的内容返回 Raw 元数据.
func (c *Connect) PinSearch(ctx context.Context, query string) (recs []meta.Record, err error) {
	ctx, done := c.observe(ctx, "search", query)
	defer done(&err)

	results, err := c.api.SearchPins(ctx, query)
	if err != nil {
		return nil, err
	}

	recs = make([]meta.Record, 0, len(results))

	for _, r := range results {
		name := r.OwnerUsername + "/" + r.Name

		rec, err := c.PinMeta(ctx, name, version.Raw{ID: r.BundleID})
		if err != nil {
			if code, ok := connectCode(err); ok && code == ConnectCodePermission {
				recs = append(recs, c.factory.CreateRaw(nil, "", name))
				continue
			}

			return nil, err
		}

		recs = append(recs, rec)
	}

	return recs, nil
}

func (c *Connect) PinVersionDelete(ctx context.Context, name string, ver version.Version) error {
	err := c.Base.PinVersionDelete(ctx, name, ver)
	if code, ok := connectCode(err); ok && code == ConnectCodeLatestBundle {
		return pinerr.Wrap(pinerr.Usage, err, "Connect cannot delete the latest version %s of pin %q", ver, name)
	}

	return err
}

func (c *Connect) PinVersionsPrune(ctx context.Context, name string, opts PruneOptions) error {
	if opts.Days != 0 {
		return pinerr.New(pinerr.BackendCapability, "Connect boards cannot prune versions using days")
	}

	return c.Base.PinVersionsPrune(ctx, name, opts)
}
