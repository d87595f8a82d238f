package cache

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/yeisme/pinboard/pkg/log"
	"github.com/yeisme/pinboard/pkg/meta"
)

// Pruner 扫描一个 board 缓存目录，找出长期未访问的版本.
// 目录结构为 {Dir}/{pin}/{version}/data.txt.
type Pruner struct {
	Dir string
	now func() time.Time
}

// NewPruner 创建 Pruner.
func NewPruner(dir string) *Pruner {
	return &Pruner{Dir: dir, now: time.Now}
}

// WithClock 替换时间来源.
func (p *Pruner) WithClock(now func() time.Time) *Pruner {
	p.now = now
	return p
}

// Versions 所有包含元数据记录的版本目录.
func (p *Pruner) Versions() ([]string, error) {
	candidates, err := filepath.Glob(filepath.Join(p.Dir, "*", "*"))
	if err != nil {
		return nil, err
	}

	var versions []string

	for _, c := range candidates {
		info, err := os.Stat(filepath.Join(c, meta.FileName))
		if err != nil || info.IsDir() {
			continue
		}

		versions = append(versions, c)
	}

	sort.Strings(versions)

	return versions, nil
}

// ShouldPrune 元数据记录最后访问时间早于 now - days 时返回 true.
func (p *Pruner) ShouldPrune(days int, versionDir string) (bool, error) {
	atime, err := accessTime(filepath.Join(versionDir, meta.FileName))
	if err != nil {
		return false, fmt.Errorf("read access time of %s: %w", versionDir, err)
	}

	cutoff := p.now().Add(-time.Duration(days) * 24 * time.Hour)

	return atime.Before(cutoff), nil
}

// OldVersions 需要清理的版本目录.
func (p *Pruner) OldVersions(days int) ([]string, error) {
	versions, err := p.Versions()
	if err != nil {
		return nil, err
	}

	var old []string

	for _, v := range versions {
		ok, err := p.ShouldPrune(days, v)
		if err != nil {
			return nil, err
		}

		if ok {
			old = append(old, v)
		}
	}

	return old, nil
}

// DiskUsage 目录下所有文件的大小之和.
func DiskUsage(root string) (int64, error) {
	var total int64

	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		total += info.Size()

		return nil
	})

	return total, err
}

// ConfirmFunc 删除前的确认，参数为待删除目录及其总大小.
type ConfirmFunc func(dirs []string, size int64) bool

// Always 不做确认.
func Always([]string, int64) bool { return true }

// PruneResult 一次清理的结果.
type PruneResult struct {
	Versions []string `json:"versions"`
	Bytes    int64    `json:"bytes"`
	Deleted  bool     `json:"deleted"`
}

// Prune 清理 root 下所有 board 缓存中超过 days 天未访问的版本.
// 中途失败时已删除的目录不会恢复，重复执行是安全的.
func Prune(root string, days int, confirm ConfirmFunc, reporter *log.Reporter, now func() time.Time) (PruneResult, error) {
	if days <= 0 {
		return PruneResult{}, fmt.Errorf("days must be positive, got %d", days)
	}

	if now == nil {
		now = time.Now
	}

	boards, err := boardDirs(root)
	if err != nil {
		return PruneResult{}, err
	}

	var res PruneResult

	for _, b := range boards {
		old, err := NewPruner(b).WithClock(now).OldVersions(days)
		if err != nil {
			return res, err
		}

		res.Versions = append(res.Versions, old...)
	}

	if len(res.Versions) == 0 {
		reporter.Infof("No stale pins found")
		return res, nil
	}

	for _, v := range res.Versions {
		size, err := DiskUsage(v)
		if err != nil {
			return res, err
		}

		res.Bytes += size
	}

	if confirm == nil {
		confirm = Always
	}

	if !confirm(res.Versions, res.Bytes) {
		reporter.Infof("Skipping deletion")
		return res, nil
	}

	for _, v := range res.Versions {
		if err := os.RemoveAll(v); err != nil {
			return res, fmt.Errorf("remove cached version %s: %w", v, err)
		}

		l := log.Component("cache")
		l.Debug().Str("path", v).Msg("pruned cached version")
	}

	res.Deleted = true

	reporter.Infof("Deleted %d pin versions, freed %s", len(res.Versions), humanize.IBytes(uint64(res.Bytes)))

	return res, nil
}

// BoardUsage 单个 board 缓存目录的占用.
type BoardUsage struct {
	Dir      string `json:"dir"`
	Versions int    `json:"versions"`
	Bytes    int64  `json:"bytes"`
}

// Info 统计 root 下每个 board 缓存的版本数和大小.
func Info(root string) ([]BoardUsage, error) {
	boards, err := boardDirs(root)
	if err != nil {
		return nil, err
	}

	usage := make([]BoardUsage, 0, len(boards))

	for _, b := range boards {
		versions, err := NewPruner(b).Versions()
		if err != nil {
			return nil, err
		}

		size, err := DiskUsage(b)
		if err != nil {
			return nil, err
		}

		usage = append(usage, BoardUsage{Dir: b, Versions: len(versions), Bytes: size})
	}

	return usage, nil
}

func boardDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("read cache root %s: %w", root, err)
	}

	var dirs []string

	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(root, e.Name()))
		}
	}

	return dirs, nil
}

// PromptConfirm 在终端询问是否删除.
func PromptConfirm(in io.Reader, out io.Writer) ConfirmFunc {
	return func(dirs []string, size int64) bool {
		fmt.Fprintf(out, "Delete %d pin versions, freeing %s?\n1: Yes\n2: No\n\nSelection: ",
			len(dirs), humanize.IBytes(uint64(size)))

		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && line == "" {
			return false
		}

		return strings.TrimSpace(line) == "1"
	}
}
