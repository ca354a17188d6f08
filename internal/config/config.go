// Package config handles loading of process settings from the environment
// and of job files from disk.
package config

import (
	"os"
	"strings"
)

// Config holds all process-wide settings, typically loaded from environment
// variables (which may be populated by the .env file in main.go).
type Config struct {
	// SourceDSN replaces the DSN of every reader connection when set.
	SourceDSN      string
	MongoURI       string
	LogFile        string
	LogLevel       string
	PushgatewayURL string
}

// LoadConfig reads the RDBSYNC_* environment variables. None of them is
// mandatory; a job file can carry everything it needs.
func LoadConfig() (*Config, error) {
	level := strings.ToUpper(strings.TrimSpace(os.Getenv("RDBSYNC_LOG_LEVEL")))
	if level == "" {
		level = "INFO"
	}
	return &Config{
		SourceDSN:      os.Getenv("RDBSYNC_SOURCE_DSN"),
		MongoURI:       os.Getenv("RDBSYNC_MONGO_URI"),
		LogFile:        os.Getenv("RDBSYNC_LOG_FILE"),
		LogLevel:       level,
		PushgatewayURL: os.Getenv("RDBSYNC_PUSHGATEWAY_URL"),
	}, nil
}
