package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the signal executor.
type Config struct {
	Port string

	// Gate.io credentials
	GateAPIKey    string
	GateAPISecret string
	GateBaseURL   string

	// Inbound webhook shared secret (empty disables the check)
	WebhookToken string

	// Admin API auth
	JWTSecret     string
	AdminPassword string

	// Persistence
	DBPath  string
	DataDir string

	// Per-symbol trading parameters file
	SymbolsPath string

	// Sizing defaults
	QuoteCurrency   string
	RiskPercentage  float64
	MaxPositionVal  float64
	MinOrderValue   float64
	MinQuoteBalance float64

	// Notification sinks
	TelegramToken     string
	TelegramChatID    int64
	DiscordWebhookURL string

	// Bracket watcher
	BracketInterval int // seconds between price checks, 0 disables
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	return &Config{
		Port:              getEnv("PORT", "8090"),
		GateAPIKey:        os.Getenv("GATE_API_KEY"),
		GateAPISecret:     os.Getenv("GATE_API_SECRET"),
		GateBaseURL:       getEnv("GATE_BASE_URL", ""),
		WebhookToken:      os.Getenv("WEBHOOK_TOKEN"),
		JWTSecret:         getEnv("JWT_SECRET", "dev-secret"),
		AdminPassword:     getEnv("ADMIN_PASSWORD", ""),
		DBPath:            getEnv("DB_PATH", "./data/tradehook.db"),
		DataDir:           getEnv("DATA_DIR", "./data"),
		SymbolsPath:       getEnv("SYMBOLS_CONFIG", "./symbols.yaml"),
		QuoteCurrency:     strings.ToUpper(getEnv("QUOTE_CURRENCY", "USDT")),
		RiskPercentage:    getEnvFloat("RISK_PERCENTAGE", 2.0),
		MaxPositionVal:    getEnvFloat("MAX_POSITION_VALUE", 1000.0),
		MinOrderValue:     getEnvFloat("MIN_ORDER_VALUE", 3.0),
		MinQuoteBalance:   getEnvFloat("MIN_QUOTE_BALANCE", 10.0),
		TelegramToken:     os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID:    getEnvInt64("TELEGRAM_CHAT_ID", 0),
		DiscordWebhookURL: os.Getenv("DISCORD_WEBHOOK_URL"),
		BracketInterval:   getEnvInt("BRACKET_INTERVAL_SECONDS", 10),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}
