package router

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/habitloop/internal/handler"
)

// Setup 配置 Gin 引擎和路由
func Setup(api *handler.API, sessionSecret string) *gin.Engine {
	r := gin.Default()

	// 配置会话中间件
	store := cookie.NewStore([]byte(sessionSecret))
	r.Use(sessions.Sessions("habitloop_session", store))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	r.POST("/login", handler.Login)
	r.POST("/logout", handler.Logout)

	// 需要认证的 API 路由
	apiGroup := r.Group("/api")
	apiGroup.Use(handler.AuthRequired())
	{
		engines := apiGroup.Group("/engines")
		{
			engines.GET("/:name", api.GetEngineStatus)
			engines.POST("/:name/start", api.StartEngine)
			engines.POST("/:name/pause", api.PauseEngine)
			engines.POST("/:name/resume", api.ResumeEngine)
			engines.POST("/:name/stop", api.StopEngine)
			engines.POST("/:name/skip-prep", api.SkipPrepPhase)
			engines.POST("/:name/skip-rest", api.SkipRestPhase)
		}

		trackers := apiGroup.Group("/trackers")
		{
			trackers.GET("/:name/sessions", api.ListSessions)
			trackers.POST("/:name/sessions", api.CreateSession)
			trackers.DELETE("/:name/sessions", api.DeleteSessions)
			trackers.GET("/:name/stats", api.GetTrackerStats)
			trackers.POST("/:name/reset", api.ResetTracker)
		}
	}

	return r
}
