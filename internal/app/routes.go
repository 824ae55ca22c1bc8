package app

import (
	"time"

	"github.com/classpod/core/internal/middleware"
	"github.com/classpod/core/internal/modules/authz"
	"github.com/classpod/core/internal/modules/bridge"
	"github.com/classpod/core/internal/modules/rooms"
	"github.com/classpod/core/internal/modules/submissions"
	"github.com/classpod/core/internal/pkg/cron"
	"github.com/classpod/core/internal/pkg/redis"
	"github.com/classpod/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

var processStart = time.Now()

func (a *App) registerRoutes(rc *redis.Client, roomMgr *rooms.Manager, scopes *authz.Service, sched *cron.Scheduler) {
	r := a.router

	r.NoRoute(func(c *gin.Context) { response.NotFound(c) })
	r.NoMethod(func(c *gin.Context) { response.MethodNotAllowed(c) })

	r.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{
			"status": "ok",
			"uptime": time.Since(processStart).Round(time.Second).String(),
			"jobs":   sched.Jobs(),
		})
	})

	// Realtime coordination channel.
	r.Any("/socket.io/*any", gin.WrapH(a.hub.Handler()))

	// Trusted internal bridge for the owning web application.
	bridge.NewHandler(roomMgr, a.logger).RegisterRoutes(r, middleware.InternalAuth())

	// End-user HTTP API (instructor review).
	api := r.Group("/api/v1", middleware.RateLimit(rc.Raw()))
	submissions.NewHandler(a.db, scopes).RegisterRoutes(api, middleware.SessionAuth())
}
