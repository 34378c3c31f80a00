package app

import (
	"github.com/gin-gonic/gin"
	"github.com/mendian-cloud/core/internal/middleware"
	"github.com/mendian-cloud/core/internal/modules/notify/channel"
	"github.com/mendian-cloud/core/internal/modules/notify/dispatch"
	"github.com/mendian-cloud/core/internal/modules/tasks/crontask"
	pkgredis "github.com/mendian-cloud/core/internal/pkg/redis"
	"github.com/mendian-cloud/core/internal/pkg/response"
)

const apiPrefix = "/api/v2"

func (a *App) registerRoutes(rc *pkgredis.Client) {
	r := a.router
	db := a.db
	authMW := middleware.Auth()

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	r.Use(middleware.RateLimit(rc.Raw()))

	api := r.Group(apiPrefix)
	api.Use(middleware.Idempotence(rc.Raw()))

	api.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{"status": "ok"})
	})

	channelSvc := channel.NewService(db)
	dispatchSvc := dispatch.NewService(db, channelSvc, a.logger)

	channel.NewHandler(channelSvc).RegisterRoutes(api, authMW)
	dispatch.NewHandler(dispatchSvc).RegisterRoutes(api, authMW)
	crontask.NewHandler(a.sched).RegisterRoutes(api, authMW)
}
