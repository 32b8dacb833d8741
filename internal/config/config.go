package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// YouTube Data API
	YouTubeAPIKey string

	// Gemini image classification
	GeminiAPIKey    string
	GeminiModel     string
	ClassifierDelay time.Duration

	// Scan defaults and limits
	DefaultMaxVideos      int
	DefaultMaxComments    int
	DefaultLanguage       string
	ScanTimeout           time.Duration
	ProgressReportingMode string // "percent" or "lines"

	// Recurring watch scans
	WatchKeywords []string
	WatchSchedule string // "daily" or "weekly"

	// Azure Storage artifact archive (optional)
	StorageAccount   string
	StorageContainer string

	// Notification configuration (optional)
	TeamsWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		YouTubeAPIKey: getEnv("YOUTUBE_API_KEY", ""),

		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-1.5-pro-latest"),
		ClassifierDelay: getDurationEnv("CLASSIFIER_DELAY", 200*time.Millisecond),

		DefaultMaxVideos:      getIntEnv("DEFAULT_MAX_VIDEOS", 50),
		DefaultMaxComments:    getIntEnv("DEFAULT_MAX_COMMENTS", 200),
		DefaultLanguage:       getEnv("DEFAULT_LANGUAGE", "en"),
		ScanTimeout:           getDurationEnv("SCAN_TIMEOUT", 1200*time.Second),
		ProgressReportingMode: getEnv("PROGRESS_REPORTING_MODE", "percent"),

		WatchKeywords: getSliceEnv("WATCH_KEYWORDS", nil),
		WatchSchedule: getEnv("WATCH_SCHEDULE", "daily"),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "scan-artifacts"),

		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.YouTubeAPIKey == "" {
		return fmt.Errorf("YOUTUBE_API_KEY is required")
	}

	if c.ProgressReportingMode != "percent" && c.ProgressReportingMode != "lines" {
		return fmt.Errorf("PROGRESS_REPORTING_MODE must be 'percent' or 'lines'")
	}

	if c.WatchSchedule != "daily" && c.WatchSchedule != "weekly" {
		return fmt.Errorf("WATCH_SCHEDULE must be 'daily' or 'weekly'")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		var out []string
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}
