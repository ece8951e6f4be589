package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jengzang/geomap/internal/config"
	"github.com/jengzang/geomap/internal/handler"
	"github.com/jengzang/geomap/internal/logging"
	"github.com/jengzang/geomap/internal/metrics"
	"github.com/jengzang/geomap/internal/middleware"
)

// Deps are the collaborators of the HTTP surface
type Deps struct {
	Server  config.ServerConfig
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
	Limiter *middleware.RateLimiter
	Maps    *handler.MapHandler
}

// SetupRouter 设置路由
func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logging.Component(d.Logger, "http"), d.Metrics))

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "geomap API is running",
		})
	})
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	api := r.Group("/api/v1")
	if d.Limiter != nil {
		api.Use(middleware.RateLimit(d.Limiter))
	}
	if d.Server.JWTSecret != "" {
		api.Use(middleware.Auth(d.Server.JWTSecret))
	}

	// 地图接口
	maps := api.Group("/maps")
	{
		maps.GET("", d.Maps.GetRuns)
		maps.POST("", d.Maps.CreateMap)
		maps.POST("/validate", d.Maps.ValidateMap)
		maps.GET("/:id", d.Maps.GetPage)
		maps.GET("/:id/report", d.Maps.GetRun)
	}

	return r
}
