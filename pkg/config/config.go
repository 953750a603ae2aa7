package config

import (
	"fmt"
	"net"
	"time"

	"github.com/cuemby/meshrelay/pkg/log"
	"github.com/cuemby/meshrelay/pkg/render"
	"github.com/cuemby/meshrelay/pkg/storage"
	"github.com/cuemby/meshrelay/pkg/telegram"
	"github.com/cuemby/meshrelay/pkg/types"
)

// DefaultPath is the configuration file used when none is given
const DefaultPath = "config.yaml"

// ProviderTelegram is the only supported forwarding provider
const ProviderTelegram = "telegram"

// Config is the complete relay configuration
type Config struct {
	Database   DatabaseConfig   `yaml:"database" json:"database" toml:"database"`
	Listener   ListenerConfig   `yaml:"listener" json:"listener" toml:"listener"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging" toml:"logging"`
	Forwarding ForwardingConfig `yaml:"forwarding" json:"forwarding" toml:"forwarding"`
	Admin      AdminConfig      `yaml:"admin" json:"admin" toml:"admin"`

	// Warnings collected while loading, to be logged once logging is set up
	Warnings []string `yaml:"-" json:"-" toml:"-"`
}

// DatabaseConfig selects the message store
type DatabaseConfig struct {
	Backend   string `yaml:"backend" json:"backend" toml:"backend"`
	DBFile    string `yaml:"db_file" json:"db_file" toml:"db_file"`
	TableName string `yaml:"table_name" json:"table_name" toml:"table_name"`
	DSN       string `yaml:"dsn,omitempty" json:"dsn,omitempty" toml:"dsn,omitempty"`
}

// ListenerConfig configures the UDP socket
type ListenerConfig struct {
	Host       string   `yaml:"host" json:"host" toml:"host"`
	Port       int      `yaml:"port" json:"port" toml:"port"`
	BufferSize int      `yaml:"buffer_size" json:"buffer_size" toml:"buffer_size"`
	StoreTypes []string `yaml:"store_types" json:"store_types" toml:"store_types"`
}

// LoggingConfig configures the console and file sinks
type LoggingConfig struct {
	Console ConsoleLogConfig `yaml:"console" json:"console" toml:"console"`
	JSON    bool             `yaml:"json" json:"json" toml:"json"`
	File    FileLogConfig    `yaml:"file" json:"file" toml:"file"`
}

// ConsoleLogConfig configures the console sink
type ConsoleLogConfig struct {
	Level string `yaml:"level" json:"level" toml:"level"`
}

// FileLogConfig configures the rotating log file. An empty path disables it.
type FileLogConfig struct {
	Path                   string `yaml:"path" json:"path" toml:"path"`
	Level                  string `yaml:"level" json:"level" toml:"level"`
	MaxSizeMB              int    `yaml:"max_size_mb" json:"max_size_mb" toml:"max_size_mb"`
	RetainedFileCountLimit int    `yaml:"retained_file_count_limit" json:"retained_file_count_limit" toml:"retained_file_count_limit"`
	MaxAgeDays             int    `yaml:"max_age_days" json:"max_age_days" toml:"max_age_days"`
	Compress               bool   `yaml:"compress" json:"compress" toml:"compress"`
	RollingInterval        string `yaml:"rolling_interval" json:"rolling_interval" toml:"rolling_interval"`
}

// ForwardingConfig configures rule matching and delivery.
// Rules are kept as plain maps so unknown keys can be reported.
type ForwardingConfig struct {
	Enabled  bool                `yaml:"enabled" json:"enabled" toml:"enabled"`
	Provider string              `yaml:"provider" json:"provider" toml:"provider"`
	Rules    []map[string]string `yaml:"rules" json:"rules" toml:"rules"`
	Telegram TelegramConfig      `yaml:"telegram" json:"telegram" toml:"telegram"`
}

// TelegramConfig holds the bot credentials and message templates
type TelegramConfig struct {
	BotToken  string            `yaml:"bot_token" json:"bot_token" toml:"bot_token"`
	ChatID    string            `yaml:"chat_id" json:"chat_id" toml:"chat_id"`
	APIURL    string            `yaml:"api_url" json:"api_url" toml:"api_url"`
	Timeout   Duration          `yaml:"timeout" json:"timeout" toml:"timeout"`
	Templates map[string]string `yaml:"templates" json:"templates" toml:"templates"`
}

// AdminConfig configures the admin HTTP server. An empty Addr disables it.
type AdminConfig struct {
	Addr string `yaml:"addr" json:"addr" toml:"addr"`
}

// Duration is a time.Duration written as text ("10s") in every format
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Backend:   storage.BackendBolt,
			DBFile:    "db/meshcom_messages.db",
			TableName: "messages",
		},
		Listener: ListenerConfig{
			Host:       "0.0.0.0",
			Port:       1799,
			BufferSize: 2048,
			StoreTypes: []string{string(types.MessageTypeText)},
		},
		Logging: LoggingConfig{
			Console: ConsoleLogConfig{Level: string(log.InfoLevel)},
			File: FileLogConfig{
				Path:                   "logs/meshrelay.log",
				Level:                  string(log.InfoLevel),
				MaxSizeMB:              10,
				RetainedFileCountLimit: 7,
				RollingInterval:        log.RollDay,
			},
		},
		Forwarding: ForwardingConfig{
			Enabled:  false,
			Provider: ProviderTelegram,
			Rules:    []map[string]string{},
			Telegram: TelegramConfig{
				BotToken:  telegram.Placeholder,
				ChatID:    telegram.Placeholder,
				APIURL:    telegram.DefaultAPIURL,
				Timeout:   Duration(telegram.DefaultTimeout),
				Templates: render.DefaultTemplates(),
			},
		},
		Admin: AdminConfig{
			Addr: "127.0.0.1:9179",
		},
	}
}

// ruleKeys are the predicates a forwarding rule may set
var ruleKeys = map[string]bool{"type": true, "dst": true, "src": true}

// Validate checks the configuration and returns the first problem found
func (c *Config) Validate() error {
	switch c.Database.Backend {
	case storage.BackendBolt, storage.BackendSQLite:
		if c.Database.DBFile == "" {
			return fmt.Errorf("database.db_file is required for backend %q", c.Database.Backend)
		}
	case storage.BackendPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for backend %q", c.Database.Backend)
		}
	default:
		return fmt.Errorf("database.backend %q is not supported (bolt, sqlite, postgres)", c.Database.Backend)
	}
	if !storage.ValidTableName(c.Database.TableName) {
		return fmt.Errorf("database.table_name %q is not a valid identifier", c.Database.TableName)
	}

	if c.Listener.Port < 1 || c.Listener.Port > 65535 {
		return fmt.Errorf("listener.port %d must be between 1 and 65535", c.Listener.Port)
	}
	if c.Listener.BufferSize <= 0 {
		return fmt.Errorf("listener.buffer_size %d must be positive", c.Listener.BufferSize)
	}
	for i, t := range c.Listener.StoreTypes {
		if t == "" {
			return fmt.Errorf("listener.store_types[%d] is empty", i)
		}
	}

	if _, err := log.ParseLevel(c.Logging.Console.Level); err != nil {
		return fmt.Errorf("logging.console.level: %w", err)
	}
	if _, err := log.ParseLevel(c.Logging.File.Level); err != nil {
		return fmt.Errorf("logging.file.level: %w", err)
	}
	if _, err := log.RollingPeriod(c.Logging.File.RollingInterval); err != nil {
		return fmt.Errorf("logging.file.rolling_interval: %w", err)
	}
	if c.Logging.File.RetainedFileCountLimit < 0 {
		return fmt.Errorf("logging.file.retained_file_count_limit %d must be >= 0", c.Logging.File.RetainedFileCountLimit)
	}
	if c.Logging.File.MaxSizeMB < 0 || c.Logging.File.MaxAgeDays < 0 {
		return fmt.Errorf("logging.file size and age limits must be >= 0")
	}

	if c.Forwarding.Provider == "" {
		return fmt.Errorf("forwarding.provider is required")
	}
	for i, rule := range c.Forwarding.Rules {
		if rule == nil {
			return fmt.Errorf("forwarding.rules[%d] must be a mapping", i)
		}
	}
	if _, err := render.NewTemplateSet(c.Forwarding.Telegram.Templates); err != nil {
		return fmt.Errorf("forwarding.telegram.templates: %w", err)
	}
	if c.Forwarding.Telegram.Timeout <= 0 {
		return fmt.Errorf("forwarding.telegram.timeout must be positive")
	}
	if c.Forwarding.Enabled {
		if err := telegram.ValidateCredentials(c.Forwarding.Telegram.BotToken, c.Forwarding.Telegram.ChatID); err != nil {
			return fmt.Errorf("forwarding is enabled but %w: set TELEGRAM_BOT_TOKEN / TELEGRAM_CHAT_ID or the config file", err)
		}
	}

	if c.Admin.Addr != "" {
		if _, _, err := net.SplitHostPort(c.Admin.Addr); err != nil {
			return fmt.Errorf("admin.addr %q: %w", c.Admin.Addr, err)
		}
	}

	return nil
}

// lint collects non-fatal problems as warnings
func (c *Config) lint() {
	if c.Forwarding.Provider != ProviderTelegram {
		c.warnf("forwarding provider %q is not supported, only %q is", c.Forwarding.Provider, ProviderTelegram)
	}
	for i, rule := range c.Forwarding.Rules {
		for key := range rule {
			if !ruleKeys[key] {
				c.warnf("unknown key %q in forwarding.rules[%d] is ignored", key, i)
			}
		}
	}
	for name, err := range c.templateErrors() {
		c.warnf("template %q will fall back to the error template: %v", name, err)
	}
}

func (c *Config) templateErrors() map[string]error {
	set, err := render.NewTemplateSet(c.Forwarding.Telegram.Templates)
	if err != nil {
		return nil
	}
	return set.Errors()
}

func (c *Config) warnf(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

// ListenAddr returns the host:port the listener binds to
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Listener.Host, fmt.Sprint(c.Listener.Port))
}

// StoreTypeSet returns the message types eligible for storage
func (c *Config) StoreTypeSet() storage.TypeSet {
	return storage.NewTypeSet(c.Listener.StoreTypes...)
}

// ForwardingRules converts the configured rules, dropping unknown keys
func (c *Config) ForwardingRules() []types.ForwardingRule {
	rules := make([]types.ForwardingRule, 0, len(c.Forwarding.Rules))
	for _, r := range c.Forwarding.Rules {
		rules = append(rules, types.ForwardingRule{
			Type: r["type"],
			Dst:  r["dst"],
			Src:  r["src"],
		})
	}
	return rules
}

// StorageConfig returns the store settings
func (c *Config) StorageConfig() storage.Config {
	return storage.Config{
		Backend: c.Database.Backend,
		Path:    c.Database.DBFile,
		Table:   c.Database.TableName,
		DSN:     c.Database.DSN,
	}
}

// LogConfig returns the logger settings. Levels are assumed valid.
func (c *Config) LogConfig() log.Config {
	consoleLevel, _ := log.ParseLevel(c.Logging.Console.Level)
	fileLevel, _ := log.ParseLevel(c.Logging.File.Level)
	return log.Config{
		Level:      consoleLevel,
		JSONOutput: c.Logging.JSON,
		File: log.FileConfig{
			Path:            c.Logging.File.Path,
			Level:           fileLevel,
			MaxSizeMB:       c.Logging.File.MaxSizeMB,
			MaxBackups:      c.Logging.File.RetainedFileCountLimit,
			MaxAgeDays:      c.Logging.File.MaxAgeDays,
			Compress:        c.Logging.File.Compress,
			RollingInterval: c.Logging.File.RollingInterval,
		},
	}
}

// TelegramConfig returns the delivery client settings
func (c *Config) TelegramConfig() telegram.Config {
	return telegram.Config{
		BotToken: c.Forwarding.Telegram.BotToken,
		ChatID:   c.Forwarding.Telegram.ChatID,
		APIURL:   c.Forwarding.Telegram.APIURL,
		Timeout:  time.Duration(c.Forwarding.Telegram.Timeout),
	}
}

// Templates compiles the configured templates
func (c *Config) Templates() (*render.TemplateSet, error) {
	return render.NewTemplateSet(c.Forwarding.Telegram.Templates)
}
