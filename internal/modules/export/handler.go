// Package export exposes CSV export over HTTP: the dashboard posts an
// already-fetched result set plus a kind tag and gets back a downloadable
// attachment named <kind>.csv.
package export

import (
	"bytes"
	"net/http"

	coreexport "github.com/AngeloGiacco/less-crap-netlify-analytics/internal/export"
	"github.com/AngeloGiacco/less-crap-netlify-analytics/internal/pkg/notify"
	"github.com/AngeloGiacco/less-crap-netlify-analytics/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

type exportRequest struct {
	Kind string      `json:"kind"`
	Data interface{} `json:"data"`
}

// Handler serves POST /api/export.
type Handler struct {
	notifier notify.Notifier
}

func NewHandler(notifier notify.Notifier) *Handler {
	return &Handler{notifier: notifier}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/export", h.export)
}

func (h *Handler) export(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "request body is not valid JSON")
		return
	}
	if req.Kind == "" {
		response.BadRequest(c, "kind is required")
		return
	}

	kind := coreexport.Kind(req.Kind)
	var buf bytes.Buffer
	if ok := coreexport.New(h.notifier).Export(&buf, kind, req.Data); !ok {
		response.BadRequest(c, "No data to export")
		return
	}

	c.Header("Content-Disposition", `attachment; filename=`+kind.Filename())
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
