// Package config resolves all winfault settings up front. Extractors and the
// analyzer receive plain values from here and never consult the environment
// themselves.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Timeout clamp bounds for the debugger subprocess, in seconds.
const (
	MinTimeoutSeconds     = 1
	MaxTimeoutSeconds     = 3600
	DefaultTimeoutSeconds = 300
)

// Config holds all winfault configuration.
type Config struct {
	Debugger DebuggerConfig
	Events   EventsConfig
	Analyzer AnalyzerConfig
}

// DebuggerConfig holds the resolved external-debugger settings.
type DebuggerConfig struct {
	CdbPath        string
	KdPath         string
	SymbolPath     string
	TimeoutSeconds int
}

// Timeout returns the clamped subprocess timeout as a duration.
func (d DebuggerConfig) Timeout() time.Duration {
	return time.Duration(clampTimeout(d.TimeoutSeconds)) * time.Second
}

// EventsConfig holds event-filtering defaults.
type EventsConfig struct {
	FilterLevel       string // "all", "critical", "error", "warning", "info", "verbose"
	TimeWindowSeconds int
}

// AnalyzerConfig holds LLM analyzer settings.
type AnalyzerConfig struct {
	APIKey string
	Model  string
}

// Load reads configuration from an optional ~/.winfault/config.yaml and
// WINFAULT_* environment variables, with sensible defaults. A missing config
// file is not an error; an unreadable one is.
func Load() (Config, error) {
	dir, _ := Dir()
	return loadFrom(dir)
}

func loadFrom(dir string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WINFAULT")
	v.AutomaticEnv()

	v.SetDefault("debugger.cdb_path", "")
	v.SetDefault("debugger.kd_path", "")
	v.SetDefault("debugger.symbol_path", "srv*")
	v.SetDefault("debugger.timeout_seconds", DefaultTimeoutSeconds)
	v.SetDefault("events.filter_level", "all")
	v.SetDefault("events.time_window_seconds", 3600)
	v.SetDefault("analyzer.model", "gpt-4")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return Config{}, fmt.Errorf("config: read: %w", err)
		}
	}

	// The API key may also arrive via the conventional OpenAI variable.
	apiKey := v.GetString("analyzer.api_key")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	return Config{
		Debugger: DebuggerConfig{
			CdbPath:        v.GetString("debugger.cdb_path"),
			KdPath:         v.GetString("debugger.kd_path"),
			SymbolPath:     v.GetString("debugger.symbol_path"),
			TimeoutSeconds: clampTimeout(v.GetInt("debugger.timeout_seconds")),
		},
		Events: EventsConfig{
			FilterLevel:       v.GetString("events.filter_level"),
			TimeWindowSeconds: v.GetInt("events.time_window_seconds"),
		},
		Analyzer: AnalyzerConfig{
			APIKey: apiKey,
			Model:  v.GetString("analyzer.model"),
		},
	}, nil
}

// Dir returns the winfault configuration directory (~/.winfault).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: home dir: %w", err)
	}
	return filepath.Join(home, ".winfault"), nil
}

// SessionsDir returns the directory session JSON files are stored in,
// creating it if needed.
func SessionsDir() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	sessions := filepath.Join(dir, "sessions")
	if err := os.MkdirAll(sessions, 0o755); err != nil {
		return "", fmt.Errorf("config: create sessions dir: %w", err)
	}
	return sessions, nil
}

// clampTimeout forces the debugger timeout into [MinTimeoutSeconds,
// MaxTimeoutSeconds], mapping non-positive values to the default.
func clampTimeout(seconds int) int {
	switch {
	case seconds <= 0:
		return DefaultTimeoutSeconds
	case seconds < MinTimeoutSeconds:
		return MinTimeoutSeconds
	case seconds > MaxTimeoutSeconds:
		return MaxTimeoutSeconds
	default:
		return seconds
	}
}
