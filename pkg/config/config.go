package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Store     StoreConfig     `mapstructure:"store"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
	// AllowedChatID is the single allow-listed identity; inline queries
	// are checked against it as a user id.
	AllowedChatID int64 `mapstructure:"allowed_chat_id"`
}

type OpenAIConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

type StoreConfig struct {
	// Mode selects the backend: http (default), postgres or memory.
	Mode     string         `mapstructure:"mode"`
	BaseURL  string         `mapstructure:"base_url"`
	Database DatabaseConfig `mapstructure:"database"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RateLimitConfig struct {
	Cap           int `mapstructure:"cap"`
	WindowSeconds int `mapstructure:"window_seconds"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  "disable",
	}, nil
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("store.mode", "http")
	v.SetDefault("store.base_url", "http://localhost:8080")
	v.SetDefault("store.database.port", 5432)
	v.SetDefault("store.database.host", "localhost")
	v.SetDefault("store.database.user", "postgres")
	v.SetDefault("store.database.sslmode", "disable")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 500)
	v.SetDefault("rate_limit.cap", 20)
	v.SetDefault("rate_limit.window_seconds", 60)

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %v", err)
		}
		config.Store.Database = dbConfig
		config.Store.Mode = "postgres"
	}

	// Get other environment variables
	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}
	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}
	if chatID := v.GetInt64("ALLOWED_CHAT_ID"); chatID != 0 {
		config.Telegram.AllowedChatID = chatID
	}
	if baseURL := v.GetString("STORE_BASE_URL"); baseURL != "" {
		config.Store.BaseURL = baseURL
	}

	if config.Telegram.AllowedChatID == 0 {
		return nil, fmt.Errorf("telegram.allowed_chat_id is required")
	}

	return &config, nil
}
