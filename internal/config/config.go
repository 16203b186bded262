// Package config содержит загрузку и валидацию конфигурации.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config представляет конфигурацию приложения
type Config struct {
	// Telegram
	BotToken        string
	OwnerID         int64
	NotifyOnApprove bool

	// Storage
	AppDataDir     string
	DataFile       string
	LastBackupFile string

	// Database (optional snapshot archive)
	DatabaseURL string
	ArchiveKeep int

	// Health
	HealthPort         string
	HealthCheckEnabled bool

	// Logging
	LogLevel string

	// Rate limiting
	RateLimit RateLimitConfig

	// Search proxy
	Search SearchConfig
}

// RateLimitConfig представляет настройки ограничения частоты запросов
type RateLimitConfig struct {
	PerSecond float64
	Burst     int
}

// SearchConfig представляет настройки поиска через пользовательский аккаунт
type SearchConfig struct {
	APIID       int
	APIHash     string
	Phone       string
	SessionFile string
	PageSize    int
	ResultLimit int
	SessionTTL  time.Duration
	// Timeout ограничивает один запрос поиска
	Timeout time.Duration
}

// Enabled сообщает, заданы ли учетные данные MTProto
func (s SearchConfig) Enabled() bool {
	return s.APIID != 0 && s.APIHash != ""
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	dataDir := getEnv("APP_DATA_DIR", "./data")

	config := &Config{
		BotToken:           getEnv("BOT_TOKEN", ""),
		OwnerID:            getEnvInt64("OWNER_ID", 0),
		NotifyOnApprove:    getEnvBool("NOTIFY_ON_APPROVE", true),
		AppDataDir:         dataDir,
		DataFile:           resolvePath(dataDir, getEnv("DATA_FILE", "data.json")),
		LastBackupFile:     resolvePath(dataDir, getEnv("LAST_BACKUP_FILE", "last_backup.json")),
		DatabaseURL:        getEnv("DB_DSN", ""),
		ArchiveKeep:        getEnvInt("ARCHIVE_KEEP", 100),
		HealthPort:         getEnv("HEALTH_PORT", "8080"),
		HealthCheckEnabled: getEnvBool("HEALTH_CHECK_ENABLED", false),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		RateLimit: RateLimitConfig{
			PerSecond: getEnvFloat("RATE_LIMIT_PER_SECOND", 1),
			Burst:     getEnvInt("RATE_LIMIT_BURST", 5),
		},
		Search: loadSearchConfig(dataDir),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// LoadSearch загружает только настройки поиска; нужна утилите входа
func LoadSearch() (SearchConfig, error) {
	_ = godotenv.Load()

	cfg := loadSearchConfig(getEnv("APP_DATA_DIR", "./data"))
	if !cfg.Enabled() {
		return cfg, fmt.Errorf("SEARCH_API_ID and SEARCH_API_HASH are required")
	}
	return cfg, nil
}

func loadSearchConfig(dataDir string) SearchConfig {
	return SearchConfig{
		APIID:       getEnvInt("SEARCH_API_ID", 0),
		APIHash:     getEnv("SEARCH_API_HASH", ""),
		Phone:       getEnv("SEARCH_PHONE", ""),
		SessionFile: resolvePath(dataDir, getEnv("SEARCH_SESSION_FILE", "search_session.json")),
		PageSize:    getEnvInt("SEARCH_PAGE_SIZE", 10),
		ResultLimit: getEnvInt("SEARCH_RESULT_LIMIT", 50),
		SessionTTL:  getEnvDuration("SEARCH_SESSION_TTL", 30*time.Minute),
		Timeout:     getEnvDuration("SEARCH_TIMEOUT", 15*time.Second),
	}
}

// Validate проверяет конфигурацию
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}

	if c.OwnerID == 0 {
		return fmt.Errorf("OWNER_ID is required")
	}

	if c.DataFile == "" || c.LastBackupFile == "" {
		return fmt.Errorf("DATA_FILE and LAST_BACKUP_FILE must not be empty")
	}

	if port, err := strconv.Atoi(c.HealthPort); c.HealthCheckEnabled && (err != nil || port <= 0 || port > 65535) {
		return fmt.Errorf("HEALTH_PORT is invalid: %q", c.HealthPort)
	}

	if c.RateLimit.PerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_SECOND and RATE_LIMIT_BURST must be positive")
	}

	if c.DatabaseURL != "" && c.ArchiveKeep <= 0 {
		return fmt.Errorf("ARCHIVE_KEEP must be positive")
	}

	if c.Search.APIHash != "" && c.Search.APIID == 0 {
		return fmt.Errorf("SEARCH_API_ID is required when SEARCH_API_HASH is set")
	}

	if c.Search.PageSize <= 0 {
		return fmt.Errorf("SEARCH_PAGE_SIZE must be positive")
	}

	return nil
}

// GetAppDataDir возвращает директорию данных приложения
func (c *Config) GetAppDataDir() string {
	return c.AppDataDir
}

func resolvePath(dir, name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

// getEnv получает переменную окружения с значением по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает переменную окружения как int
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvInt64 получает переменную окружения как int64
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration получает переменную окружения как time.Duration
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvBool получает переменную окружения как bool
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvFloat получает переменную окружения как float64
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
