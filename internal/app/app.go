package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/classpod/core/internal/config"
	"github.com/classpod/core/internal/database"
	"github.com/classpod/core/internal/middleware"
	"github.com/classpod/core/internal/modules/authz"
	"github.com/classpod/core/internal/modules/gateway"
	"github.com/classpod/core/internal/modules/registry"
	"github.com/classpod/core/internal/modules/rooms"
	"github.com/classpod/core/internal/modules/submissions"
	"github.com/classpod/core/internal/pkg/cron"
	"github.com/classpod/core/internal/pkg/redis"
	"github.com/classpod/core/internal/pkg/token"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	db     *gorm.DB
	hub    *gateway.Hub
	logger *zap.Logger

	stopJobs context.CancelFunc
}

// New initializes the application: config → DB → room state → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	token.SetSecret(cfg.JWTSecret)

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	var rc *redis.Client
	if cfg.RedisURL != "" {
		rc, err = redis.Connect(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(cors.New(corsConfig(cfg)))

	reg := registry.New()
	scopes := authz.NewService(db)
	roomMgr := rooms.NewManager(reg, scopes)
	intake := submissions.NewService(db, scopes, roomMgr, logger)
	hub := gateway.NewHub(reg, roomMgr, scopes, intake, logger)

	sched := cron.New(logger)
	sched.Register(cron.Job{
		Name:     "room-sweep",
		Interval: 10 * time.Minute,
		Fn: func(ctx context.Context) error {
			if n := roomMgr.SweepEmptyRooms(); n > 0 {
				logger.Info("swept empty rooms", zap.Int("count", n))
			}
			return nil
		},
	})
	jobCtx, stopJobs := context.WithCancel(context.Background())
	sched.Start(jobCtx)

	app := &App{cfg: cfg, router: router, db: db, hub: hub, logger: logger, stopJobs: stopJobs}
	app.registerRoutes(rc, roomMgr, scopes, sched)

	return app, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown stops background jobs and closes the realtime hub.
func (a *App) Shutdown() {
	a.stopJobs()
	a.hub.Close()
}

func corsConfig(cfg *config.AppConfig) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}
	if len(cfg.AllowedOrigins) > 0 && !cfg.IsDev() {
		patterns := cfg.AllowedOrigins
		c.AllowOriginFunc = func(origin string) bool {
			return originAllowed(patterns, origin)
		}
	} else {
		c.AllowOriginFunc = func(origin string) bool { return true }
	}
	return c
}
