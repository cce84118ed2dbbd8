package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv   = "NOTE_ANALYTICS_CONFIG"
	databasePathEnv = "DATABASE_PATH"
	serverAddrEnv   = "SERVER_ADDR"
	authTokenEnv    = "NOTE_AUTH_TOKEN"
	sessionTokenEnv = "NOTE_SESSION_TOKEN"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Note     NoteConfig     `yaml:"note"`
	Sync     SyncConfig     `yaml:"sync"`
	Retry    RetryConfig    `yaml:"retry"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig describes the SQLite database location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// NoteConfig wires everything needed to talk to the note stats endpoint.
// AuthToken and SessionToken are the server-held credential pair; requests
// may also supply their own.
type NoteConfig struct {
	BaseURL      string `yaml:"baseUrl"`
	SiteURL      string `yaml:"siteUrl"`
	AuthToken    string `yaml:"authToken"`
	SessionToken string `yaml:"sessionToken"`
	MaxPages     int    `yaml:"maxPages"`
	PageDelayMs  int    `yaml:"pageDelayMs"`
}

// PageDelay resolves the inter-page pause used to respect rate limits.
func (n NoteConfig) PageDelay() time.Duration {
	if n.PageDelayMs <= 0 {
		return time.Second
	}
	return time.Duration(n.PageDelayMs) * time.Millisecond
}

// SyncConfig controls the automatic background sync.
type SyncConfig struct {
	AutoSyncHours int `yaml:"autoSyncHours"`
}

// RetryConfig parameterizes the shared retry-with-backoff wrapper.
type RetryConfig struct {
	MaxAttempts    int `yaml:"maxAttempts"`
	BaseDelayMs    int `yaml:"baseDelayMs"`
	TimeoutSeconds int `yaml:"timeoutSeconds"`
}

// BaseDelay resolves the first backoff interval.
func (r RetryConfig) BaseDelay() time.Duration {
	if r.BaseDelayMs <= 0 {
		return time.Second
	}
	return time.Duration(r.BaseDelayMs) * time.Millisecond
}

// Timeout resolves the per-attempt deadline.
func (r RetryConfig) Timeout() time.Duration {
	if r.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// LoggingConfig selects the log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.Path = v
	}

	if v := os.Getenv(serverAddrEnv); v != "" {
		c.Server.Addr = v
	}

	if v := os.Getenv(authTokenEnv); v != "" {
		c.Note.AuthToken = v
	}

	if v := os.Getenv(sessionTokenEnv); v != "" {
		c.Note.SessionToken = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Database.Path != "" {
		base.Database = override.Database
	}

	if override.Server.Addr != "" {
		base.Server = override.Server
	}

	if override.Note.BaseURL != "" {
		base.Note.BaseURL = override.Note.BaseURL
	}
	if override.Note.SiteURL != "" {
		base.Note.SiteURL = override.Note.SiteURL
	}
	if override.Note.AuthToken != "" {
		base.Note.AuthToken = override.Note.AuthToken
	}
	if override.Note.SessionToken != "" {
		base.Note.SessionToken = override.Note.SessionToken
	}
	if override.Note.MaxPages > 0 {
		base.Note.MaxPages = override.Note.MaxPages
	}
	if override.Note.PageDelayMs > 0 {
		base.Note.PageDelayMs = override.Note.PageDelayMs
	}

	if override.Sync.AutoSyncHours > 0 {
		base.Sync.AutoSyncHours = override.Sync.AutoSyncHours
	}

	if override.Retry.MaxAttempts > 0 {
		base.Retry.MaxAttempts = override.Retry.MaxAttempts
	}
	if override.Retry.BaseDelayMs > 0 {
		base.Retry.BaseDelayMs = override.Retry.BaseDelayMs
	}
	if override.Retry.TimeoutSeconds > 0 {
		base.Retry.TimeoutSeconds = override.Retry.TimeoutSeconds
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Database: DatabaseConfig{Path: "noteanalytics.db"},
		Server:   ServerConfig{Addr: ":8787"},
		Note: NoteConfig{
			BaseURL:     "https://note.com/api",
			SiteURL:     "https://note.com",
			MaxPages:    10,
			PageDelayMs: 1000,
		},
		Sync: SyncConfig{AutoSyncHours: 0},
		Retry: RetryConfig{
			MaxAttempts:    3,
			BaseDelayMs:    1000,
			TimeoutSeconds: 30,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}
