// Package handle HTTP 请求处理器. board 和调度器由中间件注入.
package handle

import (
	"errors"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/pinboard/pkg/internal/types"
	"github.com/yeisme/pinboard/pkg/log"
	"github.com/yeisme/pinboard/pkg/pinerr"
	"github.com/yeisme/pinboard/pkg/rule"
	"github.com/yeisme/pinboard/pkg/storage"
)

const contentTypeJSON = "application/json; charset=utf-8"

// render 使用 sonic 编码 JSON 响应.
func render(c *gin.Context, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		log.Logger().Error().Err(err).Msg("encode response")
		c.AbortWithStatus(http.StatusInternalServerError)

		return
	}

	c.Data(status, contentTypeJSON, data)
}

// statusOf 错误分类到 HTTP 状态码.
func statusOf(err error) int {
	if errors.Is(err, storage.ErrUnavailable) {
		return http.StatusServiceUnavailable
	}

	switch pinerr.KindOf(err) {
	case pinerr.NotFound:
		return http.StatusNotFound
	case pinerr.Usage, pinerr.MalformedVersion:
		return http.StatusBadRequest
	case pinerr.UnsupportedType:
		return http.StatusUnsupportedMediaType
	case pinerr.UnsafeRead:
		return http.StatusForbidden
	case pinerr.VersionConflict, pinerr.Collision:
		return http.StatusConflict
	case pinerr.Schema:
		return http.StatusUnprocessableEntity
	case pinerr.BackendCapability:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// writeError 写入错误响应，5xx 记录为 error 日志.
func writeError(c *gin.Context, err error) {
	status := statusOf(err)

	l := log.Logger()
	if status >= http.StatusInternalServerError {
		l.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	} else {
		l.Debug().Err(err).Str("path", c.FullPath()).Msg("request rejected")
	}

	render(c, status, types.ErrorResponse{Error: err.Error(), Kind: pinerr.KindOf(err).String()})
}

// badRequest 请求参数校验失败.
func badRequest(c *gin.Context, err error) {
	render(c, http.StatusBadRequest, types.ErrorResponse{
		Error:  err.Error(),
		Kind:   pinerr.Usage.String(),
		Fields: rule.Errors(err),
	})
}
