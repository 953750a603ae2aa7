package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cuemby/meshrelay/pkg/log"
	"github.com/cuemby/meshrelay/pkg/render"
	"github.com/cuemby/meshrelay/pkg/storage"
	"github.com/cuemby/meshrelay/pkg/telegram"
	"github.com/cuemby/meshrelay/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvBotToken, "")
	t.Setenv(EnvChatID, "")
	t.Setenv(EnvLogLevel, "")
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0:1799", cfg.ListenAddr())
	assert.Equal(t, 2048, cfg.Listener.BufferSize)
	assert.Equal(t, []string{"msg"}, cfg.StoreTypeSet().List())
	assert.False(t, cfg.Forwarding.Enabled)
	assert.Empty(t, cfg.ForwardingRules())
	assert.Contains(t, cfg.Forwarding.Telegram.Templates, render.DefaultTemplate)
}

func TestLoadMissingFileWritesDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Database, cfg.Database)
	require.Len(t, cfg.Warnings, 1)
	assert.Contains(t, cfg.Warnings[0], "created it with defaults")

	_, err = os.Stat(path)
	require.NoError(t, err)

	// The written file loads back to the same settings
	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Listener, again.Listener)
	assert.Equal(t, cfg.Forwarding.Telegram.Templates, again.Forwarding.Telegram.Templates)
	assert.Empty(t, again.Warnings)
}

func TestLoadFormats(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{
			name: "yaml",
			file: "config.yaml",
			body: `
listener:
  port: 1800
  store_types: [msg, pos]
forwarding:
  rules:
    - type: msg
      dst: 9
    - {}
  telegram:
    timeout: 3s
    templates:
      msg: "hi {src}"
`,
		},
		{
			name: "jsonc",
			file: "config.jsonc",
			body: `{
  // comments and trailing commas are allowed
  "listener": {"port": 1800, "store_types": ["msg", "pos"],},
  "forwarding": {
    "rules": [{"type": "msg", "dst": "9"}, {}],
    "telegram": {"timeout": "3s", "templates": {"msg": "hi {src}"}},
  },
}`,
		},
		{
			name: "toml",
			file: "config.toml",
			body: `
[listener]
port = 1800
store_types = ["msg", "pos"]

[[forwarding.rules]]
type = "msg"
dst = "9"

[[forwarding.rules]]

[forwarding.telegram]
timeout = "3s"

[forwarding.telegram.templates]
msg = "hi {src}"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0644))

			cfg, err := Load(path)
			require.NoError(t, err)

			assert.Equal(t, 1800, cfg.Listener.Port)
			assert.Equal(t, "0.0.0.0", cfg.Listener.Host, "unset keys keep defaults")
			assert.Equal(t, []string{"msg", "pos"}, cfg.StoreTypeSet().List())
			assert.Equal(t, []types.ForwardingRule{{Type: "msg", Dst: "9"}, {}}, cfg.ForwardingRules())
			assert.Equal(t, 3*time.Second, cfg.TelegramConfig().Timeout)

			templates := cfg.Forwarding.Telegram.Templates
			assert.Equal(t, "hi {src}", templates["msg"])
			assert.Equal(t, render.DefaultTemplates()[render.DefaultTemplate], templates[render.DefaultTemplate])
			assert.Equal(t, render.DefaultTemplates()["pos"], templates["pos"])
		})
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("forwarding:\n  enabled: true\n"), 0644))

	t.Setenv(EnvBotToken, "123:abc")
	t.Setenv(EnvChatID, "-10042")
	t.Setenv(EnvLogLevel, "DEBUG")

	cfg, err := Load(path)
	require.NoError(t, err)

	tg := cfg.TelegramConfig()
	assert.Equal(t, "123:abc", tg.BotToken)
	assert.Equal(t, "-10042", tg.ChatID)
	assert.Equal(t, log.DebugLevel, cfg.LogConfig().Level)
}

func TestLoadEnabledWithoutCredentials(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("forwarding:\n  enabled: true\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvBotToken)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{name: "unknown extension", file: "config.ini", body: "x=1"},
		{name: "malformed yaml", file: "config.yaml", body: "listener: [1"},
		{name: "malformed toml", file: "config.toml", body: "[listener\nport = 1"},
		{name: "wrong type", file: "config.json", body: `{"listener": {"port": "high"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "sqlite backend", mutate: func(c *Config) { c.Database.Backend = storage.BackendSQLite }},
		{name: "unknown backend", mutate: func(c *Config) { c.Database.Backend = "mysql" }, wantErr: true},
		{name: "empty db file", mutate: func(c *Config) { c.Database.DBFile = "" }, wantErr: true},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Database.Backend = storage.BackendPostgres }, wantErr: true},
		{name: "bad table name", mutate: func(c *Config) { c.Database.TableName = "drop table;" }, wantErr: true},
		{name: "empty table name", mutate: func(c *Config) { c.Database.TableName = "" }, wantErr: true},
		{name: "port zero", mutate: func(c *Config) { c.Listener.Port = 0 }, wantErr: true},
		{name: "port too high", mutate: func(c *Config) { c.Listener.Port = 65536 }, wantErr: true},
		{name: "port max", mutate: func(c *Config) { c.Listener.Port = 65535 }},
		{name: "zero buffer", mutate: func(c *Config) { c.Listener.BufferSize = 0 }, wantErr: true},
		{name: "empty store type", mutate: func(c *Config) { c.Listener.StoreTypes = []string{""} }, wantErr: true},
		{name: "no store types", mutate: func(c *Config) { c.Listener.StoreTypes = nil }},
		{name: "bad console level", mutate: func(c *Config) { c.Logging.Console.Level = "loud" }, wantErr: true},
		{name: "warning alias", mutate: func(c *Config) { c.Logging.File.Level = "WARNING" }},
		{name: "bad rolling interval", mutate: func(c *Config) { c.Logging.File.RollingInterval = "fortnight" }, wantErr: true},
		{name: "negative retention", mutate: func(c *Config) { c.Logging.File.RetainedFileCountLimit = -1 }, wantErr: true},
		{name: "empty provider", mutate: func(c *Config) { c.Forwarding.Provider = "" }, wantErr: true},
		{name: "nil rule", mutate: func(c *Config) { c.Forwarding.Rules = []map[string]string{nil} }, wantErr: true},
		{name: "missing default template", mutate: func(c *Config) {
			c.Forwarding.Telegram.Templates = map[string]string{"msg": "{msg}"}
		}, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.Forwarding.Telegram.Timeout = 0 }, wantErr: true},
		{name: "enabled with placeholder", mutate: func(c *Config) { c.Forwarding.Enabled = true }, wantErr: true},
		{name: "enabled with credentials", mutate: func(c *Config) {
			c.Forwarding.Enabled = true
			c.Forwarding.Telegram.BotToken = "1:x"
			c.Forwarding.Telegram.ChatID = "2"
		}},
		{name: "bad admin addr", mutate: func(c *Config) { c.Admin.Addr = "nohost" }, wantErr: true},
		{name: "admin disabled", mutate: func(c *Config) { c.Admin.Addr = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLintWarnings(t *testing.T) {
	cfg, err := Parse(FormatYAML, []byte(`
forwarding:
  provider: matrix
  rules:
    - type: msg
      channel: ops
  telegram:
    templates:
      msg: "{broken"
`))
	require.NoError(t, err)

	require.Len(t, cfg.Warnings, 3)
	assert.Contains(t, cfg.Warnings[0], `"matrix"`)
	assert.Contains(t, cfg.Warnings[1], `"channel"`)
	assert.Contains(t, cfg.Warnings[2], `"msg"`)

	assert.Equal(t, []types.ForwardingRule{{Type: "msg"}}, cfg.ForwardingRules())
}

func TestDerivedConfigs(t *testing.T) {
	cfg := Default()
	cfg.Database.Backend = storage.BackendSQLite
	cfg.Logging.File.Level = "debug"
	cfg.Logging.JSON = true

	assert.Equal(t, storage.Config{
		Backend: storage.BackendSQLite,
		Path:    "db/meshcom_messages.db",
		Table:   "messages",
	}, cfg.StorageConfig())

	lc := cfg.LogConfig()
	assert.Equal(t, log.InfoLevel, lc.Level)
	assert.Equal(t, log.DebugLevel, lc.File.Level)
	assert.True(t, lc.JSONOutput)
	assert.Equal(t, 7, lc.File.MaxBackups)

	tg := cfg.TelegramConfig()
	assert.Equal(t, telegram.DefaultAPIURL, tg.APIURL)
	assert.Equal(t, telegram.DefaultTimeout, tg.Timeout)

	set, err := cfg.Templates()
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "msg", "pos"}, set.Names())
}

func TestWriteDefault(t *testing.T) {
	for _, name := range []string{"config.yaml", "config.json", "config.toml"} {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			path := filepath.Join(t.TempDir(), name)

			require.NoError(t, WriteDefault(path, false))
			assert.Error(t, WriteDefault(path, false), "existing file is kept")
			require.NoError(t, WriteDefault(path, true))

			cfg, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, Default().Listener, cfg.Listener)
			assert.Equal(t, Default().Logging, cfg.Logging)
			assert.Equal(t, Default().Forwarding.Telegram, cfg.Forwarding.Telegram)
		})
	}
}
