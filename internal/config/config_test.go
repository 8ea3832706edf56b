// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolate points CHIMERA_HOME at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CHIMERA_HOME", dir)
	for _, k := range []string{
		"CHIMERA_API_URL", "CHIMERA_LOG_LEVEL", "CHIMERA_STORAGE_DRIVER",
		"CHIMERA_STORAGE_PATH", "CHIMERA_CACHE_KEY", "CHIMERA_POLL_INTERVAL_MS", "CHIMERA_MODEL",
	} {
		t.Setenv(k, "")
	}
	return dir
}

// =============================================================================
// DEFAULTS & LOADING
// =============================================================================

func TestDefault_Validates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default() config is invalid: %v", err)
	}
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Sync.PollIntervalMs != 3000 {
		t.Errorf("PollIntervalMs = %d, want 3000", cfg.Sync.PollIntervalMs)
	}
	if cfg.Sync.InvitationIntervalSecs != 30 || cfg.Sync.TeamIntervalSecs != 8 {
		t.Errorf("unexpected sync defaults: %+v", cfg.Sync)
	}
}

func TestLoad_TOMLFillsMissingValues(t *testing.T) {
	dir := isolate(t)
	content := `
[api]
base_url = "http://localhost:8000/api/"

[sync]
poll_interval_ms = 1500
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:8000/api" {
		t.Errorf("BaseURL = %q, trailing slash should be trimmed", cfg.API.BaseURL)
	}
	if cfg.PollInterval() != 1500*time.Millisecond {
		t.Errorf("PollInterval() = %v", cfg.PollInterval())
	}
	if cfg.API.TimeoutSecs != 60 {
		t.Errorf("TimeoutSecs = %d, default should fill in", cfg.API.TimeoutSecs)
	}
}

func TestLoad_JSONFallback(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"log":{"level":"debug"}}`), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoad_InvalidFileReportsFields(t *testing.T) {
	dir := isolate(t)
	content := "[storage]\ndriver = \"postgres\"\n[sync]\npoll_interval_ms = 10\n"
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should fail")
	}
	var verrs ValidateErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("want ValidateErrors, got %T", err)
	}
	if len(verrs) != 2 {
		t.Errorf("got %d validation errors, want 2: %v", len(verrs), verrs)
	}
}

// =============================================================================
// ENVIRONMENT
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("CHIMERA_API_URL", "https://api.example.com")
	t.Setenv("CHIMERA_POLL_INTERVAL_MS", "5000")
	t.Setenv("CHIMERA_CACHE_KEY", "s3cret")
	t.Setenv("CHIMERA_MODEL", "claude-3-opus")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.API.BaseURL != "https://api.example.com" {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.Sync.PollIntervalMs != 5000 {
		t.Errorf("PollIntervalMs = %d", cfg.Sync.PollIntervalMs)
	}
	if !cfg.Storage.Encrypt || cfg.Storage.CacheKey != "s3cret" {
		t.Errorf("cache key override not applied: %+v", cfg.Storage)
	}
	if cfg.Chat.DefaultModel != "claude-3-opus" {
		t.Errorf("DefaultModel = %q", cfg.Chat.DefaultModel)
	}
	if strings.Contains(cfg.String(), "s3cret") {
		t.Error("String() leaks the cache key")
	}
}

func TestLoadDotEnv(t *testing.T) {
	isolate(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envFile, []byte("CHIMERA_DOTENV_PROBE=from-file\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("CHIMERA_DOTENV_PROBE") })

	if err := LoadDotEnv(envFile); err != nil {
		t.Fatalf("LoadDotEnv() error: %v", err)
	}
	if got := os.Getenv("CHIMERA_DOTENV_PROBE"); got != "from-file" {
		t.Errorf("CHIMERA_DOTENV_PROBE = %q", got)
	}
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing .env should not be an error: %v", err)
	}
}

// =============================================================================
// GET / SET / SAVE
// =============================================================================

func TestGetSet(t *testing.T) {
	cfg := Default()

	if err := cfg.Set("sync.poll_interval_ms", "2500"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := cfg.Set("ui.markdown", "false"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	v, err := cfg.Get("sync.poll_interval_ms")
	if err != nil || v.(int) != 2500 {
		t.Errorf("Get() = %v, %v", v, err)
	}
	if cfg.UI.Markdown {
		t.Error("ui.markdown should be false")
	}
	if _, err := cfg.Get("sync.nope"); err == nil {
		t.Error("unknown key should fail")
	}
	if err := cfg.Set("sync.poll_interval_ms", "abc"); err == nil {
		t.Error("non-numeric value should fail")
	}
}

func TestKeys(t *testing.T) {
	keys := Keys()
	want := map[string]bool{"api.base_url": false, "sync.poll_interval_ms": false, "storage.driver": false}
	for _, k := range keys {
		if _, ok := want[k]; ok {
			want[k] = true
		}
	}
	for k, seen := range want {
		if !seen {
			t.Errorf("Keys() missing %s", k)
		}
	}
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Chat.DefaultModel = "deepseek-chat"
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML() error: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("permissions = %o, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if loaded.Chat.DefaultModel != "deepseek-chat" {
		t.Errorf("DefaultModel = %q", loaded.Chat.DefaultModel)
	}
}

// =============================================================================
// WATCH
// =============================================================================

func TestWatch_ReloadsOnWrite(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := SaveTOML(Default(), path); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan *Config, 1)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config) {
			select {
			case changed <- c:
			default:
			}
		}, nil)
	}()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)
	cfg := Default()
	cfg.Log.Level = "debug"
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-changed:
		if c.Log.Level != "debug" {
			t.Errorf("reloaded Log.Level = %q", c.Log.Level)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("config change was not observed")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Watch() returned %v, want context.Canceled", err)
	}
}
