package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/taxi-explorer-go/internal/config"
	"github.com/jengzang/taxi-explorer-go/internal/handler"
	"github.com/jengzang/taxi-explorer-go/internal/middleware"
	"github.com/jengzang/taxi-explorer-go/internal/service"
)

// Deps carries the services the router wires into handlers.
type Deps struct {
	Config   *config.Config
	Sessions *service.SessionService
	Dataset  *service.DatasetService
	Views    *service.ViewService
}

// SetupRouter 设置路由
func SetupRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit(deps.Config.RateLimitPerMin, time.Minute))

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
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
			"message": "Taxi Explorer API is running",
		})
	})

	sessionHandler := handler.NewSessionHandler(deps.Sessions, deps.Config.JWTSecret)
	paramsHandler := handler.NewParamsHandler()
	explorerHandler := handler.NewExplorerHandler()
	savedViewHandler := handler.NewSavedViewHandler(deps.Views)
	datasetHandler := handler.NewDatasetHandler(deps.Dataset)

	authed := middleware.SessionAuth(deps.Config.JWTSecret, deps.Sessions)

	// API 路由组
	api := r.Group("/api/v1")
	{
		// 控件约束（无需会话）
		api.GET("/explorer/schema", paramsHandler.GetSchema)

		// 会话接口
		api.POST("/sessions", sessionHandler.CreateSession)
		current := api.Group("/sessions/current", authed)
		{
			current.GET("", sessionHandler.GetCurrent)
			current.DELETE("", sessionHandler.DeleteCurrent)
			current.GET("/params", paramsHandler.GetParams)
			current.PUT("/params/:name", paramsHandler.SetParam)
			current.GET("/view", explorerHandler.RenderView)
			current.POST("/viewport", explorerHandler.PostViewport)
			current.GET("/frames", explorerHandler.StreamFrames)
		}

		// 保存视图接口
		views := api.Group("/views")
		{
			views.GET("", savedViewHandler.ListViews)
			views.GET("/:id", savedViewHandler.GetView)
			views.DELETE("/:id", savedViewHandler.DeleteView)
			views.POST("", authed, savedViewHandler.CreateView)
			views.POST("/:id/apply", authed, savedViewHandler.ApplyView)
		}

		// 数据集统计接口
		dataset := api.Group("/dataset")
		{
			dataset.GET("/summary", datasetHandler.GetSummary)
			dataset.GET("/histogram", datasetHandler.GetHistogram)
		}
	}

	return r
}
