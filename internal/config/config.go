// Package config loads process configuration from the environment. A .env
// file is honored when present; explicit environment variables win.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ExchangeConfig selects and credentials the market adapter
type ExchangeConfig struct {
	Name      string // "bybit" or "sim"
	APIKey    string
	APISecret string
	Category  string
	Testnet   bool
	Demo      bool
}

// RiskConfig holds the risk engine's startup limits and cadence
type RiskConfig struct {
	MaxPositionSize  float64
	MaxLeverage      float64
	MaxDailyLoss     float64
	MaxDrawdown      float64
	MaxConcentration float64
	VaRLimit         float64
	StopLossPercent  float64
	MaxOrderValue    float64
	CheckInterval    time.Duration
	AccountAddress   string
}

// ExecutionConfig holds dispatch retry tuning
type ExecutionConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// MonitoringConfig holds the HTTP server ports
type MonitoringConfig struct {
	Port int
}

// ReportingConfig holds the shutdown export destination
type ReportingConfig struct {
	ExcelPath string
}

// NotificationsConfig holds optional alert delivery credentials
type NotificationsConfig struct {
	TelegramToken  string
	TelegramChatID string
}

// Config is the full process configuration
type Config struct {
	Environment string
	Debug       bool

	Exchange      ExchangeConfig
	Risk          RiskConfig
	Execution     ExecutionConfig
	Monitoring    MonitoringConfig
	Reporting     ReportingConfig
	Notifications NotificationsConfig
}

// Load reads configuration from the environment, after loading .env if
// one exists
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Environment: getEnv("ENV", "development"),
		Debug:       getEnvBool("DEBUG", false),

		Exchange: ExchangeConfig{
			Name:      getEnv("EXCHANGE_NAME", "sim"),
			APIKey:    getEnv("BYBIT_API_KEY", ""),
			APISecret: getEnv("BYBIT_API_SECRET", ""),
			Category:  getEnv("BYBIT_CATEGORY", "linear"),
			Testnet:   getEnvBool("BYBIT_TESTNET", false),
			Demo:      getEnvBool("BYBIT_DEMO", true),
		},

		Risk: RiskConfig{
			MaxPositionSize:  getEnvFloat("RISK_MAX_POSITION_SIZE", 100000),
			MaxLeverage:      getEnvFloat("RISK_MAX_LEVERAGE", 5),
			MaxDailyLoss:     getEnvFloat("RISK_MAX_DAILY_LOSS", 5000),
			MaxDrawdown:      getEnvFloat("RISK_MAX_DRAWDOWN", 0.15),
			MaxConcentration: getEnvFloat("RISK_MAX_CONCENTRATION", 0.4),
			VaRLimit:         getEnvFloat("RISK_VAR_LIMIT", 10000),
			StopLossPercent:  getEnvFloat("RISK_STOP_LOSS_PERCENT", 0.05),
			MaxOrderValue:    getEnvFloat("RISK_MAX_ORDER_VALUE", 50000),
			CheckInterval:    getEnvDuration("RISK_CHECK_INTERVAL", 30*time.Second),
			AccountAddress:   getEnv("RISK_ACCOUNT_ADDRESS", ""),
		},

		Execution: ExecutionConfig{
			MaxRetries:    getEnvInt("EXECUTION_MAX_RETRIES", 3),
			InitialDelay:  getEnvDuration("EXECUTION_RETRY_INITIAL_DELAY", 500*time.Millisecond),
			MaxDelay:      getEnvDuration("EXECUTION_RETRY_MAX_DELAY", 5*time.Second),
			BackoffFactor: getEnvFloat("EXECUTION_RETRY_BACKOFF_FACTOR", 2.0),
		},

		Monitoring: MonitoringConfig{
			Port: getEnvInt("HTTP_PORT", 8080),
		},

		Reporting: ReportingConfig{
			ExcelPath: getEnv("EXECUTION_REPORT_PATH", "data/execution_reports.xlsx"),
		},

		Notifications: NotificationsConfig{
			TelegramToken:  getEnv("TELEGRAM_TOKEN", ""),
			TelegramChatID: getEnv("TELEGRAM_CHAT_ID", ""),
		},
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}
