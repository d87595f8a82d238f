//go:build !linux && !darwin

package cache

import (
	"os"
	"time"
)

// accessTime 不支持读取访问时间的平台退化为修改时间.
func accessTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}

	return info.ModTime(), nil
}
