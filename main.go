package main

import (
	"flag"
	"log"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/tabiq-ai/tabiq-engine/pkg/altflow"
	"github.com/tabiq-ai/tabiq-engine/pkg/config"
	"github.com/tabiq-ai/tabiq-engine/pkg/engine"
	"github.com/tabiq-ai/tabiq-engine/pkg/feedback"
	"github.com/tabiq-ai/tabiq-engine/pkg/handlers"
	"github.com/tabiq-ai/tabiq-engine/pkg/llm"
	"github.com/tabiq-ai/tabiq-engine/pkg/logging"
	"github.com/tabiq-ai/tabiq-engine/pkg/middleware"
	"github.com/tabiq-ai/tabiq-engine/pkg/sandbox"
	"github.com/tabiq-ai/tabiq-engine/pkg/uploads"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	sandboxChild := flag.Bool("sandbox", false, "run as a sandbox child process reading a payload from stdin")
	flag.Parse()

	if *sandboxChild {
		if err := sandbox.RunChild(os.Stdin, os.Stdout); err != nil {
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("port", cfg.Port),
		zap.String("llm_type", cfg.LLM.Type),
		zap.String("uploads_dir", cfg.Uploads.BaseDir))

	files, err := uploads.NewStore(cfg.Uploads.BaseDir, cfg.Uploads.MaxFileSizeMB, logger)
	if err != nil {
		logger.Fatal("upload store init failed", zap.Error(err))
	}
	store, err := feedback.NewStore(cfg.Feedback.QueryCacheDir, cfg.Feedback.UserFeedbackDir, logger)
	if err != nil {
		logger.Fatal("feedback store init failed", zap.Error(err))
	}
	if err := store.Cleanup(cfg.Feedback.MaxAgeDays); err != nil {
		logger.Warn("feedback cleanup failed", zap.Error(err))
	}

	provider, err := llm.FromConfig(cfg.LLM, logger)
	if err != nil {
		logger.Fatal("llm provider init failed", zap.Error(err))
	}
	gateway := llm.NewGateway(provider, logger)

	registry := engine.NewRegistry(logger)
	eng := engine.New(gateway, altflow.NewRephraser(provider, logger), store, cfg.Engine, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, registry, files, logger).RegisterRoutes(mux)
	handlers.NewFilesHandler(files, registry, cfg.Uploads.MaxFileSizeMB, logger).RegisterRoutes(mux)
	handlers.NewQueryHandler(eng, registry, store, cfg.Engine.MaxResultRows, logger).RegisterRoutes(mux)

	handler := middleware.Recover(logger)(middleware.RequestLogger(logger)(mux))

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("starting tabiq-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version),
		zap.String("model", gateway.Model()))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
