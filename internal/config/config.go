package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/liamashdown/suimarket/internal/secrets"
	"github.com/sirupsen/logrus"
)

// AuthMode represents the authentication mode for the backend API
type AuthMode string

const (
	AuthModeNone   AuthMode = "none"
	AuthModeBearer AuthMode = "bearer"
	AuthModeAPIKey AuthMode = "api_key"
)

// Known Sui networks and their public full nodes.
var networkRPC = map[string]string{
	"mainnet":  "https://fullnode.mainnet.sui.io:443",
	"testnet":  "https://fullnode.testnet.sui.io:443",
	"devnet":   "https://fullnode.devnet.sui.io:443",
	"localnet": "http://127.0.0.1:9000",
}

var objectIDPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{1,64}$`)

// Config holds all application configuration
type Config struct {
	// Environment
	Environment string
	LogLevel    logrus.Level

	// Backend API
	BackendBaseURL      string
	BackendAuthMode     AuthMode
	BackendBearerToken  string
	BackendAPIKey       string
	BackendExtraHeaders map[string]string
	BackendRPS          float64
	BackendTimeout      time.Duration

	// Chain
	SuiNetwork           string
	SuiRPCURL            string
	PackageID            string
	PlatformAdminAddress string
	WalletPrivateKey     string
	GasBudgetMist        uint64

	// Settle waiting after state-changing actions
	SettleInitialInterval time.Duration
	SettleMaxInterval     time.Duration
	SettleTimeout         time.Duration

	// Journal (optional)
	JournalDSN         string
	JournalMaxConns    int
	JournalMaxIdleTime time.Duration

	// Notices
	NotifyMode         string // log, discord, smtp (comma-separated)
	DiscordWebhookURLs []string
	SMTPHost           string
	SMTPPort           int
	SMTPUser           string
	SMTPPassword       string
	SMTPFrom           string
	SMTPTo             []string

	// Watch mode
	PollIntervalSec int
	HealthPort      int
}

// Load reads configuration from environment variables, after loading an
// optional .env file from the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	network := strings.ToLower(getEnv("SUI_NETWORK", "testnet"))

	cfg := &Config{
		Environment:           getEnv("ENVIRONMENT", "development"),
		BackendBaseURL:        strings.TrimRight(getEnv("BACKEND_BASE_URL", "http://localhost:3000"), "/"),
		BackendAuthMode:       AuthMode(getEnv("BACKEND_AUTH_MODE", "none")),
		BackendBearerToken:    secrets.GetOptionalSecret("BACKEND_BEARER_TOKEN", ""),
		BackendAPIKey:         secrets.GetOptionalSecret("BACKEND_API_KEY", ""),
		BackendRPS:            getEnvFloat("BACKEND_RPS", 5.0),
		BackendTimeout:        time.Duration(getEnvInt("BACKEND_TIMEOUT_SEC", 30)) * time.Second,
		SuiNetwork:            network,
		SuiRPCURL:             getEnv("SUI_RPC_URL", networkRPC[network]),
		PackageID:             getEnv("PACKAGE_ID", ""),
		PlatformAdminAddress:  getEnv("PLATFORM_ADMIN_ADDRESS", ""),
		WalletPrivateKey:      secrets.GetOptionalSecret("WALLET_PRIVATE_KEY", ""),
		GasBudgetMist:         uint64(getEnvInt("GAS_BUDGET_MIST", 50_000_000)),
		SettleInitialInterval: time.Duration(getEnvInt("SETTLE_INITIAL_MS", 500)) * time.Millisecond,
		SettleMaxInterval:     time.Duration(getEnvInt("SETTLE_MAX_INTERVAL_MS", 4000)) * time.Millisecond,
		SettleTimeout:         time.Duration(getEnvInt("SETTLE_TIMEOUT_SEC", 20)) * time.Second,
		JournalDSN:            secrets.GetOptionalSecret("JOURNAL_DSN", ""),
		JournalMaxConns:       getEnvInt("JOURNAL_MAX_CONNS", 5),
		JournalMaxIdleTime:    time.Duration(getEnvInt("JOURNAL_MAX_IDLE_TIME_MINS", 5)) * time.Minute,
		NotifyMode:            getEnv("NOTIFY_MODE", "log"),
		SMTPHost:              getEnv("SMTP_HOST", ""),
		SMTPPort:              getEnvInt("SMTP_PORT", 587),
		SMTPUser:              getEnv("SMTP_USER", ""),
		SMTPPassword:          secrets.GetOptionalSecret("SMTP_PASSWORD", ""),
		SMTPFrom:              getEnv("SMTP_FROM", "suimarket@example.com"),
		PollIntervalSec:       getEnvInt("POLL_INTERVAL_SEC", 30),
		HealthPort:            getEnvInt("HEALTH_PORT", 8080),
	}

	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	cfg.DiscordWebhookURLs = parseCSV(secrets.GetOptionalSecret("DISCORD_WEBHOOK_URLS", ""))
	cfg.SMTPTo = parseCSV(getEnv("SMTP_TO", ""))

	extraHeadersJSON := getEnv("BACKEND_EXTRA_HEADERS", "{}")
	if err := json.Unmarshal([]byte(extraHeadersJSON), &cfg.BackendExtraHeaders); err != nil {
		return nil, fmt.Errorf("invalid BACKEND_EXTRA_HEADERS JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	if c.BackendBaseURL == "" {
		return fmt.Errorf("BACKEND_BASE_URL is required")
	}

	switch c.BackendAuthMode {
	case AuthModeNone:
	case AuthModeBearer:
		if c.BackendBearerToken == "" {
			return fmt.Errorf("BACKEND_BEARER_TOKEN is required when BACKEND_AUTH_MODE is bearer")
		}
	case AuthModeAPIKey:
		if c.BackendAPIKey == "" {
			return fmt.Errorf("BACKEND_API_KEY is required when BACKEND_AUTH_MODE is api_key")
		}
	default:
		return fmt.Errorf("invalid BACKEND_AUTH_MODE: %s (must be none, bearer, or api_key)", c.BackendAuthMode)
	}

	if c.SuiRPCURL == "" {
		return fmt.Errorf("SUI_RPC_URL is required for network %q", c.SuiNetwork)
	}

	if c.PackageID != "" && !objectIDPattern.MatchString(c.PackageID) {
		return fmt.Errorf("invalid PACKAGE_ID: %s (must be a 0x-prefixed object id)", c.PackageID)
	}

	if c.SettleTimeout <= 0 {
		return fmt.Errorf("SETTLE_TIMEOUT_SEC must be positive")
	}
	if c.SettleInitialInterval <= 0 || c.SettleMaxInterval < c.SettleInitialInterval {
		return fmt.Errorf("SETTLE_MAX_INTERVAL_MS must be >= SETTLE_INITIAL_MS > 0")
	}

	modes := strings.Split(c.NotifyMode, ",")
	for _, mode := range modes {
		switch strings.TrimSpace(mode) {
		case "log":
		case "discord":
			if len(c.DiscordWebhookURLs) == 0 {
				return fmt.Errorf("DISCORD_WEBHOOK_URLS is required when discord is in NOTIFY_MODE")
			}
		case "smtp":
			if c.SMTPHost == "" || len(c.SMTPTo) == 0 {
				return fmt.Errorf("SMTP_HOST and SMTP_TO are required when smtp is in NOTIFY_MODE")
			}
		default:
			return fmt.Errorf("invalid NOTIFY_MODE value: %s (valid values: log, discord, smtp)", mode)
		}
	}

	if c.PollIntervalSec <= 0 {
		return fmt.Errorf("POLL_INTERVAL_SEC must be positive")
	}

	return nil
}

// BettingEnabled reports whether bets can be signed locally.
func (c *Config) BettingEnabled() bool {
	return c.PackageID != "" && c.WalletPrivateKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func parseCSV(s string) []string {
	var result []string
	for _, item := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
