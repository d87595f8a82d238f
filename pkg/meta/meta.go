// Package meta 定义 pin 版本的元数据记录（每个版本目录下的 data.txt）及其 YAML 编解码.
//
// 记录是一个按 schema 区分的联合类型：
//   - *Meta   当前格式 (api_version: 1)
//   - *MetaV0 旧格式，只读
//   - *Raw    后端无法提供元数据时的最小记录（例如直接指向文件的 URL）
package meta

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/yeisme/pinboard/pkg/version"
)

const (
	// FileName 每个版本目录中元数据记录的文件名.
	FileName = "data.txt"
	// ManifestName 部分后端放在 board 根目录的清单文件.
	ManifestName = "_pins.yaml"
	// APIVersion 当前写入的 schema 版本.
	APIVersion = 1
)

// 内容类型.
const (
	TypeCSV     = "csv"
	TypeArrow   = "arrow"
	TypeFeather = "feather" // 写入时转换为 arrow
	TypeParquet = "parquet"
	TypeJoblib  = "joblib"
	TypeJSON    = "json"
	TypeFile    = "file"
	TypeRDS     = "rds"
	TypeTable   = "table" // 旧格式，读取 data.csv
)

var knownTypes = map[string]struct{}{
	TypeCSV: {}, TypeArrow: {}, TypeFeather: {}, TypeParquet: {}, TypeJoblib: {},
	TypeJSON: {}, TypeFile: {}, TypeRDS: {}, TypeTable: {},
}

// IsKnownType 判断类型是否属于固定集合.
func IsKnownType(t string) bool {
	_, ok := knownTypes[t]
	return ok
}

// Record 任意 schema 的元数据记录.
type Record interface {
	PinName() string
	PinVersion() version.Version
	FileList() []string
	PinType() string
	PinTitle() string
	LocalFields() map[string]any
}

// Meta 当前格式的元数据.
// Name、Version、Local 由调用方在读取时注入，不写入磁盘；Unknown 保存当前 schema 不认识的字段.
type Meta struct {
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	Created     string         `yaml:"created"`
	PinHash     string         `yaml:"pin_hash"`
	File        Files          `yaml:"file"`
	FileSize    Size           `yaml:"file_size"`
	Type        string         `yaml:"type"`
	APIVersion  int            `yaml:"api_version"`
	Tags        []string       `yaml:"tags,omitempty"`
	User        map[string]any `yaml:"user"`

	Name    string          `yaml:"-"`
	Version version.Version `yaml:"-"`
	Local   map[string]any  `yaml:"-"`

	Unknown map[string]any `yaml:",inline"`
}

func (m *Meta) PinName() string { return m.Name }
func (m *Meta) PinVersion() version.Version { return m.Version }
func (m *Meta) FileList() []string { return m.File }
func (m *Meta) PinType() string { return m.Type }
func (m *Meta) PinTitle() string { return m.Title }
func (m *Meta) LocalFields() map[string]any { return m.Local }

// MetaV0 旧格式元数据，使用 path 字段记录文件.
type MetaV0 struct {
	File        Files
	Type        string
	Description string
	Name        string
	Version     version.Version
	Original    map[string]any // data.txt 原始内容
	Local       map[string]any
}

func (m *MetaV0) PinName() string { return m.Name }
func (m *MetaV0) PinVersion() version.Version { return m.Version }
func (m *MetaV0) FileList() []string { return m.File }
func (m *MetaV0) PinType() string { return m.Type }
func (m *MetaV0) PinTitle() string { return "" }
func (m *MetaV0) LocalFields() map[string]any { return m.Local }

// Raw 最小元数据，只有文件与类型.
type Raw struct {
	File Files
	Type string
	Name string
}

func (m *Raw) PinName() string { return m.Name }
func (m *Raw) PinVersion() version.Version { return nil }
func (m *Raw) FileList() []string { return m.File }
func (m *Raw) PinType() string { return m.Type }
func (m *Raw) PinTitle() string { return "" }
func (m *Raw) LocalFields() map[string]any { return nil }

// Files 单个文件名或有序文件列表，单个时序列化为标量.
type Files []string

func (f Files) MarshalYAML() (any, error) {
	if len(f) == 1 {
		return f[0], nil
	}

	return []string(f), nil
}

func (f *Files) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*f = nil
			return nil
		}

		*f = Files{node.Value}

		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}

		*f = list

		return nil
	default:
		return fmt.Errorf("file: expected a string or a list of strings at line %d", node.Line)
	}
}

// Size 文件总大小，读取时兼容按文件列出的大小列表.
type Size int64

func (s *Size) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*s = 0
			return nil
		}

		var n int64
		if err := node.Decode(&n); err != nil {
			return err
		}

		*s = Size(n)

		return nil
	case yaml.SequenceNode:
		var sizes []int64
		if err := node.Decode(&sizes); err != nil {
			return err
		}

		var total int64
		for _, n := range sizes {
			total += n
		}

		*s = Size(total)

		return nil
	default:
		return fmt.Errorf("file_size: expected an integer at line %d", node.Line)
	}
}
