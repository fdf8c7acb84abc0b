package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipe-agents/internal/api"
	"recipe-agents/internal/core/ai/service"
	"recipe-agents/internal/core/media"
	"recipe-agents/internal/core/prompt"
	"recipe-agents/internal/core/recipe"
	"recipe-agents/internal/infrastructure/config"
	"recipe-agents/internal/infrastructure/tablestore"
	"recipe-agents/internal/pkg/common"

	"go.uber.org/zap"
)

func main() {
	// 載入設定（含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel, cfg.LogDir); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("gemini_api_key", common.MaskSecret(cfg.Gemini.APIKey)),
		zap.String("openrouter_api_key", common.MaskSecret(cfg.OpenRouter.APIKey)),
		zap.String("tables_source", cfg.Tables.Source),
		zap.String("critic_guard", cfg.Recipe.CriticGuard),
	)

	ctx := context.Background()

	aiSvc, err := service.NewFromConfig(ctx, cfg)
	if err != nil {
		common.LogFatal("Failed to initialize AI service", zap.Error(err))
	}
	defer aiSvc.Close()

	tables, err := tablestore.NewFromConfig(ctx, cfg)
	if err != nil {
		common.LogFatal("Failed to initialize table store", zap.Error(err))
	}
	if closer, ok := tables.(io.Closer); ok {
		defer closer.Close()
	}

	image, err := media.NewStaticImage(cfg.Recipe.ImagePath, cfg.Recipe.ImageURL, cfg.Image.MaxSizeBytes)
	if err != nil {
		common.LogFatal("Failed to load dish image", zap.Error(err))
	}

	catalogue, err := prompt.LoadCatalogue(cfg.Prompts.OverridePath)
	if err != nil {
		common.LogFatal("Failed to load prompt catalogue", zap.Error(err))
	}

	recipeSvc, err := recipe.NewService(recipe.Deps{
		Generator:   aiSvc,
		Catalogue:   catalogue,
		Tables:      tables,
		Image:       image,
		CriticGuard: cfg.Recipe.CriticGuard,
		Stages:      cfg.Stages,
	})
	if err != nil {
		common.LogFatal("Failed to initialize recipe pipelines", zap.Error(err))
	}

	router := api.SetupRouter(cfg, aiSvc, recipeSvc, tables)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
		return
	}

	common.LogInfo("Server exited")
}
