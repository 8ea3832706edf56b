// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Local configuration command.
//
// Command: config [subcommand]
//
// Subcommands:
//   show (default)      Display the current configuration (secrets redacted)
//   path                Show the configuration file path
//   get <key>           Print one value
//   set <key> <value>   Change one value and save
//   keys                List every key
//
// Examples:
//   chimera config set api.base_url https://chimera.example.com
//   chimera config set ui.theme light
//   chimera config set chat.ai_response false

package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jeranaias/chimera-cli/internal/config"
)

const configUsage = `chimera config [show]
chimera config path
chimera config get <key>
chimera config set <key> <value>
chimera config keys`

func runConfig(_ context.Context, e *Env) error {
	switch sub := e.sub("show"); sub {
	case "show":
		if e.Args.JSON {
			return NewJSONResponse("config", e.Config).Write(e.Out)
		}
		fmt.Fprintln(e.Out, highlight(e.Config.String(), "json"))
		return nil
	case "path":
		path, err := e.configPath()
		if err != nil {
			return err
		}
		return e.emit(map[string]string{"path": path}, func() { fmt.Fprintln(e.Out, path) })
	case "get":
		return configGet(e)
	case "set":
		return configSet(e)
	case "keys":
		keys := config.Keys()
		return e.emit(map[string]any{"keys": keys}, func() {
			for _, k := range keys {
				fmt.Fprintln(e.Out, k)
			}
		})
	default:
		return ErrUnknownSubcommand("config", sub, configUsage)
	}
}

func (e *Env) configPath() (string, error) {
	if e.Args.ConfigPath != "" {
		return filepath.Abs(e.Args.ConfigPath)
	}
	return config.ConfigPathTOML()
}

func configGet(e *Env) error {
	key, err := e.Params.Require(1, "key", "chimera config get <key>")
	if err != nil {
		return err
	}
	v, err := e.Config.Get(key)
	if err != nil {
		return &ValidationError{Field: "key", Value: key, Reason: err.Error(), Example: "chimera config keys"}
	}
	if key == "storage.cache_key" && fmt.Sprint(v) != "" {
		v = "[REDACTED]"
	}
	return e.emit(map[string]any{"key": key, "value": v}, func() { fmt.Fprintln(e.Out, v) })
}

func configSet(e *Env) error {
	key, err := e.Params.Require(1, "key", "chimera config set <key> <value>")
	if err != nil {
		return err
	}
	if e.Params.PositionalCount() < 3 {
		return ErrMissingArgument("value", "chimera config set <key> <value>")
	}
	value := JoinPositionalArgs(e.Params, 2)

	cfg := e.Config.Clone()
	if err := cfg.Set(key, value); err != nil {
		return &ValidationError{Field: "key", Value: key, Reason: err.Error(), Example: "chimera config keys"}
	}
	if err := cfg.Validate(); err != nil {
		return &ValidationError{Field: key, Value: value, Reason: err.Error()}
	}

	var saveErr error
	switch path := e.Args.ConfigPath; {
	case path == "":
		saveErr = config.Save(cfg)
	case strings.EqualFold(filepath.Ext(path), ".json"):
		saveErr = config.SaveJSON(cfg, path)
	default:
		saveErr = config.SaveTOML(cfg, path)
	}
	if saveErr != nil {
		return NewCommandError("config", "set", "could not save configuration", saveErr)
	}
	*e.Config = *cfg
	return e.done(map[string]string{"key": key, "value": value}, fmt.Sprintf("%s = %s", key, value))
}
