package app

import (
	"net/http"
	"time"

	"github.com/AngeloGiacco/less-crap-netlify-analytics/internal/middleware"
	exporthttp "github.com/AngeloGiacco/less-crap-netlify-analytics/internal/modules/export"
	"github.com/AngeloGiacco/less-crap-netlify-analytics/internal/modules/proxy"
	"github.com/AngeloGiacco/less-crap-netlify-analytics/internal/pkg/notify"
	"github.com/AngeloGiacco/less-crap-netlify-analytics/internal/pkg/response"
	"github.com/AngeloGiacco/less-crap-netlify-analytics/internal/upstream"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

func (a *App) registerRoutes(client *upstream.Client, notifier notify.Notifier) {
	r := a.router

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c, http.MethodPost)
	})

	var rawRedis *goredis.Client
	var cache proxy.Cache
	if a.rc != nil {
		rawRedis = a.rc.Raw()
		cache = a.rc
	}

	api := r.Group("/api")
	api.Use(middleware.RateLimit(rawRedis))

	api.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{
			"status":     "ok",
			"configured": a.cfg.Upstream.Complete(),
			"cache":      a.rc != nil,
		})
	})

	svc := proxy.NewService(client, cache, time.Duration(a.cfg.CacheTTLSec)*time.Second, a.logger)
	proxy.NewHandler(a.cfg, svc, a.logger).RegisterRoutes(api)
	exporthttp.NewHandler(notifier).RegisterRoutes(api)
}
