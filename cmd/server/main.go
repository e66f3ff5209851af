package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/shawnsang/auto-openspg-schema/internal/config"
	"github.com/shawnsang/auto-openspg-schema/internal/core"
	"github.com/shawnsang/auto-openspg-schema/internal/core/extraction"
	"github.com/shawnsang/auto-openspg-schema/internal/llm"
	"github.com/shawnsang/auto-openspg-schema/internal/logger"
	"github.com/shawnsang/auto-openspg-schema/internal/server"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Failed to load .env: %v", err)
	}

	cfg := config.Default()
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		cfg = loaded
	}
	cfg.ApplyEnv()
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Addr = ":" + port
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Fatal(err)
	}
	appLog := logger.New(os.Stderr, level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var gen *core.Generator
	llmClient, err := llm.NewClient(ctx, cfg.LLM, appLog)
	if err != nil {
		appLog.Warn("LLM unavailable, document uploads disabled", "error", err)
	} else {
		gen = core.NewGenerator(extraction.NewExtractor(llmClient, cfg, appLog), appLog)
	}

	if err := server.NewServer(cfg, gen, appLog).Run(ctx, cfg.Server.Addr); err != nil {
		log.Fatal(err)
	}
}
