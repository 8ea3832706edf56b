// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/chimera-cli/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete chimera configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	API     APIConfig     `toml:"api" json:"api"`
	Sync    SyncConfig    `toml:"sync" json:"sync"`
	Storage StorageConfig `toml:"storage" json:"storage"`
	Log     LogConfig     `toml:"log" json:"log"`
	Chat    ChatConfig    `toml:"chat" json:"chat"`
	Session SessionConfig `toml:"session" json:"session"`
	UI      UIConfig      `toml:"ui" json:"ui"`
}

// APIConfig controls how the backend is reached.
type APIConfig struct {
	// BaseURL is the backend API root, including the /api suffix.
	BaseURL string `toml:"base_url" json:"base_url"`
	// TimeoutSecs is the per-request timeout.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// MaxRetries is the number of attempts for idempotent requests.
	MaxRetries int `toml:"max_retries" json:"max_retries"`
	// RateLimit is the sustained requests per second (0 disables limiting).
	RateLimit float64 `toml:"rate_limit" json:"rate_limit"`
	// RateBurst is the burst size of the limiter.
	RateBurst int `toml:"rate_burst" json:"rate_burst"`
}

// SyncConfig controls the background refresh loops.
type SyncConfig struct {
	// PollIntervalMs is how often an open conversation is refreshed.
	PollIntervalMs int `toml:"poll_interval_ms" json:"poll_interval_ms"`
	// InvitationIntervalSecs is how often the invitation inbox is refreshed.
	InvitationIntervalSecs int `toml:"invitation_interval_secs" json:"invitation_interval_secs"`
	// TeamIntervalSecs is how often the active workspace's team is refreshed.
	TeamIntervalSecs int `toml:"team_interval_secs" json:"team_interval_secs"`
	// LoadIntervalSecs is how often workspace load is recorded (0 disables).
	LoadIntervalSecs int `toml:"load_interval_secs" json:"load_interval_secs"`
}

// StorageConfig controls local persistence.
type StorageConfig struct {
	// Driver is "sqlite" or "bolt".
	Driver string `toml:"driver" json:"driver"`
	// Path is the database file (empty = inside the config directory).
	Path string `toml:"path" json:"path"`
	// Encrypt seals stored values with a key derived from CacheKey.
	Encrypt bool `toml:"encrypt" json:"encrypt"`
	// CacheKey is the sealing passphrase. Prefer CHIMERA_CACHE_KEY over the file.
	CacheKey string `toml:"cache_key" json:"cache_key"`
}

// LogConfig controls logging.
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `toml:"level" json:"level"`
	// Dir is the directory for daily log files (empty = <config dir>/logs).
	Dir string `toml:"dir" json:"dir"`
	// JSON switches the file format to JSON lines.
	JSON bool `toml:"json" json:"json"`
}

// ChatConfig holds chat defaults.
type ChatConfig struct {
	// DefaultModel is the model used for new conversations.
	DefaultModel string `toml:"default_model" json:"default_model"`
	// AIResponse requests an assistant reply for every message by default.
	AIResponse bool `toml:"ai_response" json:"ai_response"`
	// HistoryFile is the REPL input history (empty = <config dir>/history).
	HistoryFile string `toml:"history_file" json:"history_file"`
}

// SessionConfig controls local session handling.
type SessionConfig struct {
	// IdleTimeoutMins ends the local session after inactivity (0 disables).
	IdleTimeoutMins int `toml:"idle_timeout_mins" json:"idle_timeout_mins"`
	// RefreshSkewSecs refreshes the access token this long before it expires.
	RefreshSkewSecs int `toml:"refresh_skew_secs" json:"refresh_skew_secs"`
}

// UIConfig controls terminal output.
type UIConfig struct {
	// Theme is "dark", "light" or "auto".
	Theme string `toml:"theme" json:"theme"`
	// Markdown renders assistant replies as Markdown.
	Markdown bool `toml:"markdown" json:"markdown"`
	// Compact reduces spacing between messages.
	Compact bool `toml:"compact" json:"compact"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		API: APIConfig{
			BaseURL:     "https://chimera-protocol-mad-scientist.onrender.com/api",
			TimeoutSecs: 60,
			MaxRetries:  3,
			RateLimit:   10,
			RateBurst:   20,
		},
		Sync: SyncConfig{
			PollIntervalMs:         3000,
			InvitationIntervalSecs: 30,
			TeamIntervalSecs:       8,
			LoadIntervalSecs:       60,
		},
		Storage: StorageConfig{
			Driver: "sqlite",
		},
		Log: LogConfig{
			Level: "info",
		},
		Chat: ChatConfig{
			DefaultModel: "gpt-4o",
			AIResponse:   true,
		},
		Session: SessionConfig{
			IdleTimeoutMins: 0,
			RefreshSkewSecs: 60,
		},
		UI: UIConfig{
			Theme:    "auto",
			Markdown: true,
		},
	}
}

// Duration helpers.

// Timeout returns the API request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSecs) * time.Second
}

// PollInterval returns the conversation poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Sync.PollIntervalMs) * time.Millisecond
}

// IdleTimeout returns the local session idle timeout (0 = disabled).
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Session.IdleTimeoutMins) * time.Minute
}

// RefreshSkew returns how early the access token is refreshed.
func (c *Config) RefreshSkew() time.Duration {
	return time.Duration(c.Session.RefreshSkewSecs) * time.Second
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the chimera configuration directory. CHIMERA_HOME overrides it.
func ConfigDir() (string, error) {
	if dir := os.Getenv("CHIMERA_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".chimera"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ensureSecurePermissions tightens a config file to 0600, since it may hold the cache key.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// StoragePath returns the configured database path or the default one.
func (c *Config) StoragePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	if c.Storage.Driver == "bolt" {
		return filepath.Join(dir, "state.bolt"), nil
	}
	return filepath.Join(dir, "state.db"), nil
}

// LogDir returns the configured log directory or the default one.
func (c *Config) LogDir() (string, error) {
	if c.Log.Dir != "" {
		return c.Log.Dir, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "logs"), nil
}

// HistoryPath returns the REPL history file.
func (c *Config) HistoryPath() (string, error) {
	if c.Chat.HistoryFile != "" {
		return c.Chat.HistoryFile, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// LoadDotEnv loads KEY=VALUE pairs from .env in the working directory into the
// environment. Variables already set win. A missing file is not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()

	for _, pathFn := range []func() (string, error){ConfigPathTOML, ConfigPathJSON} {
		path, err := pathFn()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		return LoadFromPath(path)
	}

	return finish(cfg)
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}
	return finish(cfg)
}

// finish applies env overrides, defaults and validation.
func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	if err := fillDefaults(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return fillDefaults(cfg)
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return fillDefaults(cfg)
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) error {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}

	// API
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = defaults.API.BaseURL
	}
	cfg.API.BaseURL = strings.TrimSuffix(cfg.API.BaseURL, "/")
	if cfg.API.TimeoutSecs == 0 {
		cfg.API.TimeoutSecs = defaults.API.TimeoutSecs
	}
	if cfg.API.MaxRetries == 0 {
		cfg.API.MaxRetries = defaults.API.MaxRetries
	}
	if cfg.API.RateBurst == 0 {
		cfg.API.RateBurst = defaults.API.RateBurst
	}

	// Sync
	if cfg.Sync.PollIntervalMs == 0 {
		cfg.Sync.PollIntervalMs = defaults.Sync.PollIntervalMs
	}
	if cfg.Sync.InvitationIntervalSecs == 0 {
		cfg.Sync.InvitationIntervalSecs = defaults.Sync.InvitationIntervalSecs
	}
	if cfg.Sync.TeamIntervalSecs == 0 {
		cfg.Sync.TeamIntervalSecs = defaults.Sync.TeamIntervalSecs
	}

	// Storage
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = defaults.Storage.Driver
	}

	// Log
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}

	// Chat
	if cfg.Chat.DefaultModel == "" {
		cfg.Chat.DefaultModel = defaults.Chat.DefaultModel
	}

	// Session
	if cfg.Session.RefreshSkewSecs == 0 {
		cfg.Session.RefreshSkewSecs = defaults.Session.RefreshSkewSecs
	}

	// UI
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}

	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf strings.Builder
	buf.WriteString("# chimera configuration file\n")
	buf.WriteString("# Environment variables (CHIMERA_*) and .env override these values.\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, []byte(buf.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// API
	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, ValidationError{
			Field:   "api.base_url",
			Message: fmt.Sprintf("invalid URL '%s', must be an absolute http(s) URL", c.API.BaseURL),
		})
	}
	if c.API.TimeoutSecs < 1 || c.API.TimeoutSecs > 600 {
		errs = append(errs, ValidationError{
			Field:   "api.timeout_secs",
			Message: fmt.Sprintf("timeout %d out of range, must be between 1 and 600", c.API.TimeoutSecs),
		})
	}
	if c.API.MaxRetries < 1 || c.API.MaxRetries > 10 {
		errs = append(errs, ValidationError{
			Field:   "api.max_retries",
			Message: fmt.Sprintf("max retries %d out of range, must be between 1 and 10", c.API.MaxRetries),
		})
	}
	if c.API.RateLimit < 0 {
		errs = append(errs, ValidationError{Field: "api.rate_limit", Message: "must not be negative"})
	}

	// Sync
	if c.Sync.PollIntervalMs < 500 {
		errs = append(errs, ValidationError{
			Field:   "sync.poll_interval_ms",
			Message: fmt.Sprintf("poll interval %dms too short, minimum is 500ms", c.Sync.PollIntervalMs),
		})
	}
	if c.Sync.InvitationIntervalSecs < 1 {
		errs = append(errs, ValidationError{Field: "sync.invitation_interval_secs", Message: "must be at least 1"})
	}
	if c.Sync.TeamIntervalSecs < 1 {
		errs = append(errs, ValidationError{Field: "sync.team_interval_secs", Message: "must be at least 1"})
	}
	if c.Sync.LoadIntervalSecs < 0 {
		errs = append(errs, ValidationError{Field: "sync.load_interval_secs", Message: "must not be negative"})
	}

	// Storage
	switch strings.ToLower(c.Storage.Driver) {
	case "sqlite", "bolt":
	default:
		errs = append(errs, ValidationError{
			Field:   "storage.driver",
			Message: fmt.Sprintf("invalid driver '%s', must be one of: sqlite, bolt", c.Storage.Driver),
		})
	}
	if c.Storage.Encrypt && c.Storage.CacheKey == "" {
		errs = append(errs, ValidationError{
			Field:   "storage.cache_key",
			Message: "required when storage.encrypt is set (or set CHIMERA_CACHE_KEY)",
		})
	}

	// Log
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: trace, debug, info, warn, error", c.Log.Level),
		})
	}

	// Session
	if c.Session.IdleTimeoutMins < 0 {
		errs = append(errs, ValidationError{Field: "session.idle_timeout_mins", Message: "must not be negative"})
	}
	if c.Session.RefreshSkewSecs < 0 {
		errs = append(errs, ValidationError{Field: "session.refresh_skew_secs", Message: "must not be negative"})
	}

	// UI
	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides:
//   - CHIMERA_API_URL: overrides api.base_url
//   - CHIMERA_LOG_LEVEL: overrides log.level
//   - CHIMERA_STORAGE_DRIVER: overrides storage.driver
//   - CHIMERA_STORAGE_PATH: overrides storage.path
//   - CHIMERA_CACHE_KEY: sets storage.cache_key and enables sealing
//   - CHIMERA_POLL_INTERVAL_MS: overrides sync.poll_interval_ms
//   - CHIMERA_MODEL: overrides chat.default_model
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("CHIMERA_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("CHIMERA_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("CHIMERA_STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("CHIMERA_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("CHIMERA_CACHE_KEY"); v != "" {
		c.Storage.CacheKey = v
		c.Storage.Encrypt = true
	}
	if v := os.Getenv("CHIMERA_POLL_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			c.Sync.PollIntervalMs = ms
		}
	}
	if v := os.Getenv("CHIMERA_MODEL"); v != "" {
		c.Chat.DefaultModel = v
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "sync.poll_interval_ms").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "ui.theme").
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

// lookup walks the struct along a dotted key.
func (c *Config) lookup(key string) (reflect.Value, error) {
	parts := strings.Split(key, ".")
	if key == "" || len(parts) == 0 {
		return reflect.Value{}, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			lower := strings.ToLower(strVal)
			field.SetBool(lower == "1" || lower == "true" || lower == "yes")
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// Keys returns every configuration key in dot notation.
func Keys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		section := f.Tag.Get("toml")
		if f.Type.Kind() != reflect.Struct {
			keys = append(keys, section)
			continue
		}
		for j := 0; j < f.Type.NumField(); j++ {
			keys = append(keys, section+"."+f.Type.Field(j).Tag.Get("toml"))
		}
	}
	return keys
}

// Clone creates a copy of the configuration. Config holds no reference types.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a JSON rendering of the config with secrets redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Storage.CacheKey != "" {
		safe.Storage.CacheKey = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}
