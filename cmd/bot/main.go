package main

import (
	"time"

	"go.uber.org/zap"

	"keeperbot/internal/bot"
	"keeperbot/internal/llm"
	"keeperbot/internal/ratelimit"
	"keeperbot/internal/store"
	"keeperbot/pkg/config"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Initialize the entry store backend
	var st store.Store
	switch cfg.Store.Mode {
	case "postgres":
		logger.Info("Using PostgreSQL store")
		st, err = store.NewPostgresStore(store.DatabaseConfig{
			Host:     cfg.Store.Database.Host,
			Port:     cfg.Store.Database.Port,
			User:     cfg.Store.Database.User,
			Password: cfg.Store.Database.Password,
			DBName:   cfg.Store.Database.DBName,
			SSLMode:  cfg.Store.Database.SSLMode,
		})
		if err != nil {
			logger.Fatal("Failed to initialize store", zap.Error(err))
		}
	case "memory":
		logger.Info("Using in-memory store")
		st = store.NewMemoryStorage()
	default:
		logger.Info("Using HTTP store", zap.String("base_url", cfg.Store.BaseURL))
		st = store.NewHTTPStore(cfg.Store.BaseURL)
	}
	defer st.Close()

	// Initialize the language-model client
	lc := llm.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.MaxTokens, logger)

	// Initialize the rate limiter
	limiter := ratelimit.New(cfg.RateLimit.Cap, time.Duration(cfg.RateLimit.WindowSeconds)*time.Second)

	// Initialize bot
	b, err := bot.New(cfg.Telegram.Token, cfg.Telegram.AllowedChatID, st, lc, limiter, logger)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	// Start the bot
	if err := b.Start(); err != nil {
		logger.Fatal("Bot error", zap.Error(err))
	}
}
