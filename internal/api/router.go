package api

import (
	"time"

	"recipe-agents/internal/api/handlers"
	"recipe-agents/internal/api/handlers/health"
	recipeHandler "recipe-agents/internal/api/handlers/recipe"
	"recipe-agents/internal/api/middleware"
	"recipe-agents/internal/core/ai/service"
	recipeService "recipe-agents/internal/core/recipe"
	"recipe-agents/internal/infrastructure/config"
	"recipe-agents/internal/infrastructure/tablestore"
	"recipe-agents/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, aiSvc *service.Service, recipeSvc *recipeService.Service, tables tablestore.Store) *gin.Engine {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.NoRoute(func(c *gin.Context) {
		c.JSON(common.ErrNotFound.Status, gin.H{"status": "error", "error": gin.H{
			"code":    common.ErrCodeNotFound,
			"message": common.ErrNotFound.Message,
		}})
	})
	router.NoMethod(func(c *gin.Context) {
		c.JSON(common.ErrMethodNotAllowed.Status, gin.H{"status": "error", "error": gin.H{
			"code":    common.ErrCodeMethodNotAllowed,
			"message": common.ErrMethodNotAllowed.Message,
		}})
	})

	// 註冊基礎中間件
	router.Use(requestid.New()) // 自動生成請求 ID，同時作為管線 run_id
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	// 健康檢查路由
	healthHandler := health.NewHandler(cfg.App.Version, aiSvc, tables, recipeSvc.Pipelines())
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	// 成品圖片
	if cfg.Recipe.StaticDir != "" {
		router.Static("/static/images", cfg.Recipe.StaticDir)
	}

	api := router.Group("/api/v1")
	{
		pipelineGroup := api.Group("/pipeline")
		if cfg.RateLimit.Enabled {
			pipelineGroup.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
		}
		if cfg.DedupWindow > 0 {
			pipelineGroup.Use(middleware.NewDeduplicator(cfg.DedupWindow).Handler())
		}

		h := recipeHandler.NewHandler(recipeSvc, cfg.App.Debug)
		pipelineGroup.POST("/profile-options", h.HandleProfileOptions)
		pipelineGroup.POST("/detail", h.HandleDetail)
		pipelineGroup.POST("/explain-step", h.HandleExplainStep)
		pipelineGroup.POST("/chat", h.HandleChat)

		aiHandler := handlers.NewAIHandler(aiSvc)
		api.POST("/ai/generate", aiHandler.Generate)
	}

	common.LogInfo("Router setup completed successfully",
		zap.String("provider", aiSvc.ProviderName()),
		zap.String("tables", tables.Kind()),
		zap.Strings("pipelines", recipeSvc.Pipelines()),
		zap.Duration("request_timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
	)

	return router
}
