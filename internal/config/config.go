package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Config is the complete application configuration, loaded from environment
// variables with the RPLY prefix (e.g. RPLY_SERVER_PORT).
type Config struct {
	Server  ServerConfig  `envconfig:"SERVER"`
	Source  SourceConfig  `envconfig:"SOURCE"`
	Logging LoggingConfig `envconfig:"LOGGING"`
}

// ServerConfig contains the HTTP server settings.
type ServerConfig struct {
	Port         int    `envconfig:"PORT" default:"8080"`
	ReadTimeout  string `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout string `envconfig:"WRITE_TIMEOUT" default:"15s"`
}

// SourceConfig describes where the ledger data comes from.
type SourceConfig struct {
	// Mode selects the transport: csv (public export URL), script (Apps
	// Script JSON endpoint) or sheets (Sheets API value range).
	Mode          string `envconfig:"MODE" default:"csv"`
	SheetID       string `envconfig:"SHEET_ID"`
	SheetGID      string `envconfig:"SHEET_GID" default:"0"`
	SheetRange    string `envconfig:"SHEET_RANGE" default:"A1:AZ1000"`
	APIKey        string `envconfig:"API_KEY"`
	AppsScriptURL string `envconfig:"APPS_SCRIPT_URL"`
	Timeout       string `envconfig:"TIMEOUT" default:"15s"`
	// FallbackSample serves the built-in sample dataset when the transport
	// fails instead of surfacing the error. Off by default: masking a dead
	// source as demo data hides real outages.
	FallbackSample bool `envconfig:"FALLBACK_SAMPLE" default:"false"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"text"`
}

// DefaultSheetID is the ledger spreadsheet the dashboard was built around,
// used when neither an explicit ID nor the environment provides one.
const DefaultSheetID = "1xK9mH2pQ7vR4nT8wL5cY3bD6fG0jS1aZ"

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("RPLY", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	cfg.Source.Mode = strings.ToLower(strings.TrimSpace(cfg.Source.Mode))
	switch cfg.Source.Mode {
	case "csv", "script", "sheets":
	default:
		return nil, fmt.Errorf("invalid source mode %q: use csv, script or sheets", cfg.Source.Mode)
	}
	return &cfg, nil
}

// ResolveSheetID applies the sheet-ID precedence chain: an explicit ID (CLI
// flag or request parameter) beats the configured one, which beats the
// built-in default.
func (s SourceConfig) ResolveSheetID(explicit string) string {
	if v := strings.TrimSpace(explicit); v != "" {
		return v
	}
	if v := strings.TrimSpace(s.SheetID); v != "" {
		return v
	}
	return DefaultSheetID
}
