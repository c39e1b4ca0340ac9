package app

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/AngeloGiacco/less-crap-netlify-analytics/internal/config"
	"github.com/AngeloGiacco/less-crap-netlify-analytics/internal/middleware"
	"github.com/AngeloGiacco/less-crap-netlify-analytics/internal/pkg/notify"
	pkgredis "github.com/AngeloGiacco/less-crap-netlify-analytics/internal/pkg/redis"
	"github.com/AngeloGiacco/less-crap-netlify-analytics/internal/upstream"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	rc     *pkgredis.Client
	logger *zap.Logger
}

// New initializes the application: config → runtime settings → Redis →
// routes. Missing provider credentials are logged here but do not stop
// startup; the proxy answers 500 until they are configured.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := applyRuntimeSettings(cfg); err != nil {
		return nil, err
	}
	if !cfg.Upstream.Complete() {
		logger.Warn("upstream token or site id missing, queries will be refused until configured")
	}

	var rc *pkgredis.Client
	if cfg.RedisURL != "" {
		var err error
		rc, err = pkgredis.Connect(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
	} else {
		logger.Warn("no redis_url configured, running without cache and rate limit")
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.Logger(logger))

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Client-Timezone", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) > 0 && !cfg.IsDev() {
		patterns := cfg.AllowedOrigins
		corsConfig.AllowOriginFunc = func(origin string) bool {
			host := extractOriginHost(origin)
			for _, pattern := range patterns {
				if matchOriginPattern(pattern, host) {
					return true
				}
			}
			return false
		}
	} else {
		corsConfig.AllowOriginFunc = func(origin string) bool { return true }
	}
	router.Use(cors.New(corsConfig))

	notifier := buildNotifier(cfg, logger)
	client := upstream.New(cfg.Upstream.BaseURL, cfg.Upstream.SiteID, cfg.Upstream.Token)

	app := &App{cfg: cfg, router: router, rc: rc, logger: logger}
	app.registerRoutes(client, notifier)

	return app, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

func buildNotifier(cfg *config.AppConfig, logger *zap.Logger) notify.Notifier {
	if cfg.Notify.WebhookURL == "" {
		return notify.NewLogNotifier(logger)
	}
	return notify.NewWebhook(func() (string, string) {
		return cfg.Notify.WebhookURL, cfg.Notify.SiteTitle
	})
}
