// Package proxy is the externally reachable query endpoint: it validates
// the dashboard's request, builds the upstream call, and maps every
// failure mode to a structured HTTP response without ever exposing the
// provider credential.
package proxy

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/AngeloGiacco/less-crap-netlify-analytics/internal/analytics"
	"github.com/AngeloGiacco/less-crap-netlify-analytics/internal/config"
	"github.com/AngeloGiacco/less-crap-netlify-analytics/internal/pkg/response"
	"github.com/AngeloGiacco/less-crap-netlify-analytics/internal/upstream"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TimezoneHeader carries the browser's IANA zone name, when it sends one.
const TimezoneHeader = "X-Client-Timezone"

// Handler serves POST /api/query.
type Handler struct {
	cfg     *config.AppConfig
	service *Service
	logger  *zap.Logger
}

func NewHandler(cfg *config.AppConfig, service *Service, logger *zap.Logger) *Handler {
	return &Handler{cfg: cfg, service: service, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/query", h.query)
}

func (h *Handler) query(c *gin.Context) {
	// Checked at startup too, but a process can boot without credentials
	// and get them later; never serve a credentialless upstream call.
	if !h.cfg.Upstream.Complete() {
		response.InternalError(c, "Server configuration error")
		return
	}

	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "request body is not valid JSON")
		return
	}
	if req.Endpoint == nil {
		response.BadRequest(c, "endpoint is required and must be a string")
		return
	}
	endpoint := *req.Endpoint
	if !analytics.KnownEndpoint(endpoint) {
		response.BadRequest(c, "unknown endpoint "+strconv.Quote(endpoint))
		return
	}

	rng := analytics.DefaultRange
	if req.TimeRange != nil {
		rng = analytics.TimeRange(*req.TimeRange)
		if !analytics.ValidRange(rng) {
			response.BadRequest(c, "timeRange must be one of 7d, 30d, 3m, 1y")
			return
		}
	}

	extras, err := flattenParams(req.Params)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	timezone := strings.TrimSpace(c.GetHeader(TimezoneHeader))
	if timezone == "" {
		timezone = h.cfg.Timezone
	}

	body, err := h.service.Query(c.Request.Context(), endpoint, rng, timezone, extras)
	if err != nil {
		var ue *upstream.UpstreamError
		if errors.As(err, &ue) {
			response.UpstreamFailure(c, ue.Status, ue.StatusText, ue.Body)
			return
		}
		// Transport failures and anything unexpected: generic body,
		// detail stays in the logs.
		h.logger.Error("query failed", zap.String("endpoint", endpoint), zap.Error(err))
		response.InternalError(c, "Internal proxy error")
		return
	}

	response.RawJSON(c, body)
}

// flattenParams renders the string|number param values into the strings
// the upstream query wants. Anything else is a caller mistake.
func flattenParams(params map[string]json.RawMessage) (map[string]string, error) {
	if len(params) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(params))
	for k, raw := range params {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			out[k] = s
			continue
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			out[k] = n.String()
			continue
		}
		return nil, errors.New("param " + strconv.Quote(k) + " must be a string or number")
	}
	return out, nil
}
