package board

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yeisme/pinboard/pkg/pinerr"
)

// Deparse 返回可以重新连接到同一个 board 的命令行，用于诊断输出.
// 不包含 API key 等敏感信息.
func Deparse(b Board) (string, error) {
	switch v := b.(type) {
	case *Connect:
		return "pinboard --protocol rsc --server-url " + quote(v.api.ServerURL()) + v.unsafeFlag(), nil
	case *Manual:
		names := make([]string, 0, len(v.pinPaths))
		for name, p := range v.pinPaths {
			names = append(names, name+"="+p)
		}

		sort.Strings(names)

		return fmt.Sprintf("pinboard --protocol url --path %s --pin-paths %s%s",
			quote(v.root), quote(strings.Join(names, ",")), v.unsafeFlag()), nil
	case *Base:
		proto, err := deparseProtocol(v.fs.Protocol())
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("pinboard --protocol %s --path %s%s", proto, quote(v.root), v.unsafeFlag()), nil
	}

	return "", pinerr.New(pinerr.BackendCapability, "board deparsing is not supported for %T", b)
}

func deparseProtocol(protos []string) (string, error) {
	set := map[string]bool{}
	for _, p := range protos {
		set[p] = true
	}

	switch {
	case set["file"] || set["local"]:
		return "file", nil
	case set["memory"]:
		return "memory", nil
	case set["s3"] || set["s3a"]:
		return "s3", nil
	case set["gcs"] || set["gs"]:
		return "gcs", nil
	}

	return "", pinerr.New(pinerr.BackendCapability, "board deparsing is not supported for protocol %v", protos)
}

func (b *Base) unsafeFlag() string {
	if b.allowUnsafeRead == nil {
		return ""
	}

	return fmt.Sprintf(" --allow-unsafe-read=%t", *b.allowUnsafeRead)
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
