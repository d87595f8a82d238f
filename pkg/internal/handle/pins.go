package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/pinboard/pkg/internal/types"
	"github.com/yeisme/pinboard/pkg/middleware"
	"github.com/yeisme/pinboard/pkg/version"
)

// ListPins 列出或搜索 pin.
//
//	@Summary	列出 pin，q 非空时按名称和标题搜索
//	@Router		/api/v1/pins [get]
func ListPins(c *gin.Context) {
	b := middleware.GetBoard(c)

	recs, err := b.PinSearch(c.Request.Context(), c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}

	resp := types.ListPinsResponse{Pins: make([]types.PinSummary, 0, len(recs)), Total: len(recs)}
	for _, rec := range recs {
		resp.Pins = append(resp.Pins, types.Summarize(rec))
	}

	render(c, http.StatusOK, resp)
}

// PinVersions 列出 pin 的版本.
//
//	@Router	/api/v1/pins/versions [get]
func PinVersions(c *gin.Context) {
	var req types.PinVersionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	versions, err := middleware.GetBoard(c).PinVersions(c.Request.Context(), req.Name, req.Order != "desc")
	if err != nil {
		writeError(c, err)
		return
	}

	render(c, http.StatusOK, types.PinVersionsResponse{Name: req.Name, Versions: versionStrings(versions)})
}

// PinMeta 读取元数据，version 为空时读取最新版本.
//
//	@Router	/api/v1/pins/meta [get]
func PinMeta(c *gin.Context) {
	var req types.PinMetaRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	var ver version.Version
	if req.Version != "" {
		ver = version.Guess(req.Version)
	}

	rec, err := middleware.GetBoard(c).PinMeta(c.Request.Context(), req.Name, ver)
	if err != nil {
		writeError(c, err)
		return
	}

	resp, err := types.Describe(rec)
	if err != nil {
		writeError(c, err)
		return
	}

	render(c, http.StatusOK, resp)
}

// DeletePinVersion 删除一个版本.
//
//	@Router	/api/v1/pins/version [delete]
func DeletePinVersion(c *gin.Context) {
	var req types.DeleteVersionRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	err := middleware.GetBoard(c).PinVersionDelete(c.Request.Context(), req.Name, version.Guess(req.Version))
	if err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// PrunePinVersions 按数量或天数清理旧版本，返回剩余版本.
//
//	@Router	/api/v1/pins/prune [post]
func PrunePinVersions(c *gin.Context) {
	var req types.PruneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	b := middleware.GetBoard(c)

	if err := b.PinVersionsPrune(ctx, req.Name, req.Options()); err != nil {
		writeError(c, err)
		return
	}

	versions, err := b.PinVersions(ctx, req.Name, true)
	if err != nil {
		writeError(c, err)
		return
	}

	render(c, http.StatusOK, types.PruneResponse{Name: req.Name, Remaining: versionStrings(versions)})
}

func versionStrings(versions []version.Version) []string {
	out := make([]string, 0, len(versions))
	for _, v := range versions {
		out = append(out, v.String())
	}

	return out
}
