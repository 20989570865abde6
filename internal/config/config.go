package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the root configuration for ttt, stored in ~/.ttt/config.json.
// The file supports single-line // comments for documentation purposes.
// Environment variables (optionally from a .env file) override file values.
type Config struct {
	Storage   StorageConfig   `json:"storage"`
	Lock      LockConfig      `json:"lock"`
	Log       LogConfig       `json:"log"`
	Timesheet TimesheetConfig `json:"timesheet"`
	Outlook   OutlookConfig   `json:"outlook"`
}

// StorageConfig selects where timesheet data lives.
type StorageConfig struct {
	// Driver is "file", "sqlite" or "postgres".
	Driver string `json:"driver"`
	// Path is the data directory (file) or database file (sqlite). Empty = under ~/.ttt.
	Path string `json:"path"`
	// DSN is the PostgreSQL connection string.
	DSN      string `json:"dsn"`
	MaxConns int    `json:"max_conns"`
}

// LockConfig selects how concurrent writers to the same day are serialised.
type LockConfig struct {
	// Backend is "memory" (single process) or "redis" (shared).
	Backend       string `json:"backend"`
	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`
	TTLSeconds    int    `json:"ttl_seconds"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// TimesheetConfig holds engine tunables.
type TimesheetConfig struct {
	// Owner is the default owner id for commands run without --owner.
	Owner               string  `json:"owner"`
	ReviewWindowMinutes int     `json:"review_window_minutes"`
	ManualActivityRate  float64 `json:"manual_activity_rate"`
	StoreRetries        int     `json:"store_retries"`
}

// ReviewWindow returns the screenshot review window.
func (t TimesheetConfig) ReviewWindow() time.Duration {
	return time.Duration(t.ReviewWindowMinutes) * time.Minute
}

// OutlookConfig holds Microsoft Graph / Outlook calendar sync settings.
type OutlookConfig struct {
	// TenantID is the Azure AD tenant. Use "common" for personal/multi-tenant accounts.
	TenantID string `json:"tenant_id"`
	// ClientID is the Azure app (client) ID for the OAuth2 device code flow.
	ClientID string `json:"client_id"`
	// DefaultProject is the project id assigned to imported Outlook events.
	DefaultProject string `json:"default_project"`
	// Timezone is the IANA timezone for event times (e.g. "Europe/Berlin"). Empty = UTC.
	Timezone string `json:"timezone"`
}

const (
	// DefaultTenantID is the Microsoft "common" tenant (supports personal and
	// multi-tenant organisational accounts without additional registration).
	DefaultTenantID = "common"
	// DefaultClientID is the well-known public Azure CLI app ID.
	// It supports device code flow without a client secret and requires no
	// app registration. Replace with your own registered app ID for
	// organisational or production deployments.
	DefaultClientID = "04b07795-8542-4c4a-95af-30b2c573d5ab"
	// DefaultProject is the project used when none is specified.
	DefaultProject = "Meetings"
)

// Storage drivers and lock backends.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	LockMemory = "memory"
	LockRedis  = "redis"
)

// Default returns a Config pre-filled with sensible defaults.
func Default() Config {
	return Config{
		Storage: StorageConfig{Driver: DriverFile, MaxConns: 10},
		Lock:    LockConfig{Backend: LockMemory, RedisAddr: "localhost:6379", TTLSeconds: 30},
		Log:     LogConfig{Level: "info", Format: "console"},
		Timesheet: TimesheetConfig{
			Owner:               getEnv("USER", "local"),
			ReviewWindowMinutes: 10,
			ManualActivityRate:  50,
			StoreRetries:        3,
		},
		Outlook: OutlookConfig{
			TenantID:       DefaultTenantID,
			ClientID:       DefaultClientID,
			DefaultProject: DefaultProject,
			Timezone:       "",
		},
	}
}

// configTemplate is the annotated config written on first run.
// Lines whose trimmed content starts with // are stripped before JSON parsing,
// allowing human-readable documentation inside the file.
const configTemplate = `// ttt configuration – ~/.ttt/config.json
//
// All settings are optional; the built-in defaults shown below work out of
// the box. Environment variables override this file (see README):
// TTT_STORAGE_DRIVER, TTT_STORAGE_PATH, TTT_DATABASE_DSN, TTT_LOCK_BACKEND,
// REDIS_ADDR, REDIS_PASSWORD, REDIS_DB, LOG_LEVEL, LOG_FORMAT, TTT_OWNER.
{
  // ── Storage ───────────────────────────────────────────────────────────────
  "storage": {
    // "file" (JSON per day under ~/.ttt), "sqlite" or "postgres".
    "driver": "file",
    // Data directory for "file", database file for "sqlite". Empty = ~/.ttt.
    "path": "",
    // Connection string for "postgres", e.g. "postgres://ttt@localhost/ttt?sslmode=disable".
    "dsn": "",
    "max_conns": 10
  },

  // ── Locking ───────────────────────────────────────────────────────────────
  "lock": {
    // "memory" for a single process, "redis" when several processes write.
    "backend": "memory",
    "redis_addr": "localhost:6379",
    "redis_password": "",
    "redis_db": 0,
    // How long a crashed writer can hold a day before the lock expires.
    "ttl_seconds": 30
  },

  "log": {
    // debug, info, warn, error
    "level": "info",
    // console or json
    "format": "console"
  },

  "timesheet": {
    // Owner used when --owner is not given. Empty = $USER.
    "owner": "",
    // Minutes each screenshot stands for in the review view.
    "review_window_minutes": 10,
    // Activity rate recorded for manually added time. 0 disables.
    "manual_activity_rate": 50,
    // Extra attempts when another writer updated the same day concurrently.
    "store_retries": 3
  },

  // ── Microsoft Graph / Outlook calendar sync ──────────────────────────────
  "outlook": {
    // Azure AD tenant ID.
    // • "common"  – personal Microsoft accounts and any organisation (default)
    // • Your organisation's tenant GUID, e.g. "xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx"
    "tenant_id": "common",

    // Azure application (client) ID used for the OAuth2 device code flow.
    // The built-in value is the public Azure CLI app – no app registration needed.
    "client_id": "04b07795-8542-4c4a-95af-30b2c573d5ab",

    // Project id assigned to imported Outlook calendar events.
    // Can be overridden per-sync with: ttt outlook sync --project <id>
    "default_project": "Meetings",

    // IANA timezone for interpreting calendar event times, e.g. "Europe/Berlin".
    // Leave empty to use UTC. Can be overridden with: ttt outlook sync --timezone <tz>
    "timezone": ""
  }
}
`

// DefaultPath returns the path to ~/.ttt/config.json, or $TTT_CONFIG if set.
func DefaultPath() (string, error) {
	if p := os.Getenv("TTT_CONFIG"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".ttt", "config.json"), nil
}

// stripLineComments removes lines whose leading non-whitespace content starts
// with //. Only full-line comments are handled; inline comments are not stripped.
func stripLineComments(data []byte) []byte {
	var out []byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		if bytes.HasPrefix(bytes.TrimLeft(line, " \t"), []byte("//")) {
			continue
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out
}

// Load reads the config file at path (DefaultPath when empty), creating it
// with annotated defaults on first run, then applies environment overrides.
// envFiles are loaded with godotenv first; when none are given ".env" in the
// working directory is tried. Missing env files are ignored.
func Load(path string, envFiles ...string) (Config, error) {
	for _, f := range envFilesOrDefault(envFiles) {
		// godotenv never overwrites variables already set in the environment.
		_ = godotenv.Load(f)
	}

	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return withEnv(Default()), err
		}
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		// First run: write the annotated template so users can discover options.
		if writeErr := writeDefault(path); writeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create config file %s: %v\n", path, writeErr)
		}
		return finish(Default())
	}
	if err != nil {
		return withEnv(Default()), fmt.Errorf("reading config file %s: %w", path, err)
	}

	// Unmarshal over the defaults so a partially filled file still yields a
	// usable Config.
	cfg := Default()
	if err := json.Unmarshal(stripLineComments(data), &cfg); err != nil {
		return withEnv(Default()), fmt.Errorf("parsing config file %s: %w\nTip: delete the file to regenerate defaults", path, err)
	}
	if cfg.Outlook.TenantID == "" {
		cfg.Outlook.TenantID = DefaultTenantID
	}
	if cfg.Outlook.ClientID == "" {
		cfg.Outlook.ClientID = DefaultClientID
	}
	if cfg.Outlook.DefaultProject == "" {
		cfg.Outlook.DefaultProject = DefaultProject
	}
	if cfg.Timesheet.Owner == "" {
		cfg.Timesheet.Owner = Default().Timesheet.Owner
	}
	return finish(cfg)
}

func envFilesOrDefault(files []string) []string {
	if len(files) == 0 {
		return []string{".env"}
	}
	return files
}

func finish(cfg Config) (Config, error) {
	cfg = withEnv(cfg)
	return cfg, cfg.Validate()
}

// withEnv applies environment overrides.
func withEnv(cfg Config) Config {
	cfg.Storage.Driver = getEnv("TTT_STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.Path = getEnv("TTT_STORAGE_PATH", cfg.Storage.Path)
	cfg.Storage.DSN = getEnv("TTT_DATABASE_DSN", cfg.Storage.DSN)
	cfg.Lock.Backend = getEnv("TTT_LOCK_BACKEND", cfg.Lock.Backend)
	cfg.Lock.RedisAddr = getEnv("REDIS_ADDR", cfg.Lock.RedisAddr)
	cfg.Lock.RedisPassword = getEnv("REDIS_PASSWORD", cfg.Lock.RedisPassword)
	cfg.Lock.RedisDB = getEnvInt("REDIS_DB", cfg.Lock.RedisDB)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
	cfg.Timesheet.Owner = getEnv("TTT_OWNER", cfg.Timesheet.Owner)
	return cfg
}

// Validate rejects unknown drivers and backends and out-of-range tunables.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case DriverFile, DriverSQLite:
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage driver postgres needs a dsn (TTT_DATABASE_DSN)")
		}
	default:
		return fmt.Errorf("unknown storage driver %q (want file, sqlite or postgres)", c.Storage.Driver)
	}
	switch c.Lock.Backend {
	case LockMemory, LockRedis:
	default:
		return fmt.Errorf("unknown lock backend %q (want memory or redis)", c.Lock.Backend)
	}
	if c.Timesheet.ReviewWindowMinutes <= 0 {
		return fmt.Errorf("review_window_minutes must be positive, got %d", c.Timesheet.ReviewWindowMinutes)
	}
	if c.Timesheet.ManualActivityRate < 0 || c.Timesheet.ManualActivityRate > 100 {
		return fmt.Errorf("manual_activity_rate must be within 0-100, got %.2f", c.Timesheet.ManualActivityRate)
	}
	if c.Timesheet.StoreRetries < 0 {
		return fmt.Errorf("store_retries must not be negative, got %d", c.Timesheet.StoreRetries)
	}
	return nil
}

// StoragePath resolves the data directory or database file for the
// configured driver, defaulting to ~/.ttt or ~/.ttt/ttt.db.
func (c Config) StoragePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	base := filepath.Join(home, ".ttt")
	if c.Storage.Driver == DriverSQLite {
		return filepath.Join(base, "ttt.db"), nil
	}
	return base, nil
}

// writeDefault creates the config directory and writes the annotated default
// config template.
func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if intVal, err := strconv.Atoi(v); err == nil {
			return intVal
		}
	}
	return defaultVal
}
