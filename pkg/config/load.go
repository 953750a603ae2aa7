package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values
const (
	EnvBotToken = "TELEGRAM_BOT_TOKEN"
	EnvChatID   = "TELEGRAM_CHAT_ID"
	EnvLogLevel = "MESHRELAY_LOG_LEVEL"
)

// Supported file formats
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
	FormatTOML = "toml"
)

// FormatOf returns the file format implied by the path extension
func FormatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json", ".jsonc":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported config file extension %q (yaml, yml, json, jsonc, toml)", filepath.Ext(path))
	}
}

// Load reads the configuration at path over the built-in defaults, applies
// environment overrides and validates the result. A missing file is
// created with the defaults; if that fails the defaults are used in memory.
func Load(path string) (*Config, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if werr := WriteDefault(path, false); werr != nil {
			cfg.warnf("config file %s not found and could not be created, using defaults: %v", path, werr)
		} else {
			cfg.warnf("config file %s not found, created it with defaults", path)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := decode(format, data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.mergeDefaultTemplates()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	cfg.lint()

	return cfg, nil
}

// Parse decodes data in the given format over the defaults and validates it
func Parse(format string, data []byte) (*Config, error) {
	cfg := Default()
	if err := decode(format, data, cfg); err != nil {
		return nil, err
	}
	cfg.mergeDefaultTemplates()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.lint()
	return cfg, nil
}

func decode(format string, data []byte, cfg *Config) error {
	switch format {
	case FormatYAML:
		return yaml.Unmarshal(data, cfg)
	case FormatJSON:
		return json.Unmarshal(jsonc.ToJSON(data), cfg)
	case FormatTOML:
		_, err := toml.Decode(string(data), cfg)
		return err
	default:
		return fmt.Errorf("unsupported config format %q", format)
	}
}

// mergeDefaultTemplates restores built-in templates the file did not
// override, so a file that only sets "msg" keeps "default" and "pos".
func (c *Config) mergeDefaultTemplates() {
	defaults := Default().Forwarding.Telegram.Templates
	if c.Forwarding.Telegram.Templates == nil {
		c.Forwarding.Telegram.Templates = defaults
		return
	}
	for name, src := range defaults {
		if _, ok := c.Forwarding.Telegram.Templates[name]; !ok {
			c.Forwarding.Telegram.Templates[name] = src
		}
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvBotToken); v != "" {
		c.Forwarding.Telegram.BotToken = v
	}
	if v := os.Getenv(EnvChatID); v != "" {
		c.Forwarding.Telegram.ChatID = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Console.Level = v
	}
}

// Encode serializes cfg in the format implied by path
func Encode(path string, cfg *Config) ([]byte, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatYAML:
		return yaml.Marshal(cfg)
	case FormatJSON:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "    ")
		if err := enc.Encode(cfg); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
}

// WriteDefault writes the built-in configuration to path, creating parent
// directories. An existing file is only replaced when force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists", path)
		}
	}

	data, err := Encode(path, Default())
	if err != nil {
		return fmt.Errorf("failed to encode default config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
