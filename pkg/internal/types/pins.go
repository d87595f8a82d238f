// Package types HTTP API 的请求与响应结构.
package types

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/yeisme/pinboard/pkg/board"
	"github.com/yeisme/pinboard/pkg/meta"
)

// PinSummary 列表和搜索结果中的一项.
type PinSummary struct {
	Name    string   `json:"name"`
	Title   string   `json:"title,omitempty"`
	Type    string   `json:"type,omitempty"`
	Version string   `json:"version,omitempty"`
	Files   []string `json:"files,omitempty"`
	// Raw 为 true 表示后端只提供了最小元数据
	Raw bool `json:"raw,omitempty"`
}

// ListPinsResponse GET /api/v1/pins.
type ListPinsResponse struct {
	Pins  []PinSummary `json:"pins"`
	Total int          `json:"total"`
}

// PinVersionsRequest GET /api/v1/pins/versions.
type PinVersionsRequest struct {
	Name string `form:"name" rule:"required,pinname"`
	// Order asc（默认）或 desc
	Order string `form:"order" rule:"omitempty,oneof=asc desc"`
}

// PinVersionsResponse 版本列表.
type PinVersionsResponse struct {
	Name     string   `json:"name"`
	Versions []string `json:"versions"`
}

// PinMetaRequest GET /api/v1/pins/meta.
type PinMetaRequest struct {
	Name    string `form:"name"    rule:"required,pinname"`
	Version string `form:"version" rule:"omitempty,pinversion"`
}

// PinMetaResponse 元数据记录. Meta 为 data.txt 的全部字段.
type PinMetaResponse struct {
	Name    string         `json:"name"`
	Version string         `json:"version,omitempty"`
	Schema  string         `json:"schema"`
	Meta    map[string]any `json:"meta"`
	Local   map[string]any `json:"local,omitempty"`
}

// DeleteVersionRequest DELETE /api/v1/pins/version.
type DeleteVersionRequest struct {
	Name    string `form:"name"    rule:"required,pinname"`
	Version string `form:"version" rule:"required,pinversion"`
}

// PruneRequest POST /api/v1/pins/prune. N 和 Days 只能指定一个，由 board 校验.
type PruneRequest struct {
	Name string `json:"name" rule:"required,pinname"`
	N    int    `json:"n"    rule:"gte=0"`
	Days int    `json:"days" rule:"gte=0"`
}

// Options 转换为 board 的清理参数.
func (r PruneRequest) Options() board.PruneOptions {
	return board.PruneOptions{N: r.N, Days: r.Days}
}

// PruneResponse 清理后剩余的版本.
type PruneResponse struct {
	Name      string   `json:"name"`
	Remaining []string `json:"remaining"`
}

// ErrorResponse 错误响应，Kind 为错误分类.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	// Fields 参数校验失败时，参数名到未通过的规则
	Fields map[string]string `json:"fields,omitempty"`
}

// Summarize 从元数据记录生成列表项.
func Summarize(rec meta.Record) PinSummary {
	s := PinSummary{
		Name:  rec.PinName(),
		Title: rec.PinTitle(),
		Type:  rec.PinType(),
		Files: rec.FileList(),
	}

	if v := rec.PinVersion(); v != nil {
		s.Version = v.String()
	}

	if _, ok := rec.(*meta.Raw); ok {
		s.Raw = true
	}

	return s
}

// Describe 把任意 schema 的记录转换为 API 响应.
func Describe(rec meta.Record) (PinMetaResponse, error) {
	resp := PinMetaResponse{Name: rec.PinName(), Local: rec.LocalFields()}

	if v := rec.PinVersion(); v != nil {
		resp.Version = v.String()
	}

	switch m := rec.(type) {
	case *meta.Meta:
		data, err := meta.Marshal(m)
		if err != nil {
			return resp, err
		}

		fields := map[string]any{}
		if err := yaml.Unmarshal(data, &fields); err != nil {
			return resp, fmt.Errorf("decode metadata of %s: %w", m.Name, err)
		}

		resp.Schema, resp.Meta = "v1", fields
	case *meta.MetaV0:
		resp.Schema, resp.Meta = "v0", m.Original
	default:
		resp.Schema = "raw"
		resp.Meta = map[string]any{"file": rec.FileList(), "type": rec.PinType()}
	}

	return resp, nil
}
