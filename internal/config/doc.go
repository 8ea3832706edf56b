// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for chimera.
//
// Supports both TOML and JSON configuration formats, with defaults,
// .env files, environment variable overrides, validation, and hot reload.
//
// Configuration file locations (in order of precedence):
//   - ~/.chimera/config.toml
//   - ~/.chimera/config.json
//   - Built-in defaults
//
// CHIMERA_HOME relocates the whole directory.
//
// # Usage
//
//	_ = config.LoadDotEnv()
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	client := api.New(cfg.API.BaseURL, api.WithTimeout(cfg.Timeout()))
package config
