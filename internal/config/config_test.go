package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv() *envLoader {
	l := newEnvLoader(EnvPrefix)
	l.environ = func() []string { return nil }
	return l
}

func fixedEnv(vars ...string) *envLoader {
	l := newEnvLoader(EnvPrefix)
	l.environ = func() []string { return vars }
	return l
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 50, cfg.History.MaxEntries)
	assert.Equal(t, time.Second, cfg.Editor.CommitDelay)
	assert.Equal(t, 300*time.Millisecond, cfg.Editor.RenderDelay)
	assert.Equal(t, DefaultSeed, cfg.Editor.Seed)
	assert.Equal(t, "https://kroki.io", cfg.Render.URL)
	assert.Equal(t, 5*time.Minute, cfg.Render.CacheTTL)
	assert.Equal(t, "gemini-2.0-flash", cfg.AI.Model)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "#0a0a0a", cfg.Export.Background)
	assert.Equal(t, 30*time.Minute, cfg.Server.SessionIdle)
	assert.False(t, cfg.RepairEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "mermaidflow.toml", `
[history]
maxEntries = 10

[editor]
commitDelay = "2s"
renderDelay = "150ms"

[store]
driver = "sqlite"
path = "diagrams.db"

[keymap]
"ctrl+u" = "undo"
`)

	cfg, err := load(path, noEnv())
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, 10, cfg.History.MaxEntries)
	assert.Equal(t, 2*time.Second, cfg.Editor.CommitDelay)
	assert.Equal(t, 150*time.Millisecond, cfg.Editor.RenderDelay)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "diagrams.db", cfg.Store.Path)
	assert.Equal(t, map[string]string{"ctrl+u": "undo"}, cfg.Keymap)
	// Untouched sections keep their defaults.
	assert.Equal(t, "https://kroki.io", cfg.Render.URL)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "mermaidflow.yaml", `
render:
  url: http://localhost:8000
  cacheSize: 4
logging:
  level: debug
  format: console
`)

	cfg, err := load(path, noEnv())
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.Render.URL)
	assert.Equal(t, 4, cfg.Render.CacheSize)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "mermaidflow.json", `{
  "history": {"maxEntries": 20},
  "editor": {"commitDelay": "250ms"},
  "keymap": {"ctrl+q": "undo"}
}`)

	cfg, err := load(path, noEnv())
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.History.MaxEntries)
	assert.Equal(t, 250*time.Millisecond, cfg.Editor.CommitDelay)
	assert.Equal(t, "undo", cfg.Keymap["ctrl+q"])
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "mermaidflow.toml", `
[history]
maxEntries = 10
[ai]
model = "gemini-1.5-pro"
`)

	cfg, err := load(path, fixedEnv(
		"MERMAIDFLOW_HISTORY_MAX_ENTRIES=20",
		"MERMAIDFLOW_EDITOR_COMMIT_DELAY=500ms",
		"MERMAIDFLOW_GEMINI_API_KEY=secret",
		"HOME=/root",
	))
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.History.MaxEntries)
	assert.Equal(t, 500*time.Millisecond, cfg.Editor.CommitDelay)
	assert.Equal(t, "secret", cfg.AI.APIKey)
	assert.Equal(t, "gemini-1.5-pro", cfg.AI.Model)
	assert.True(t, cfg.RepairEnabled())
}

func TestLoad_ProcessEnvironment(t *testing.T) {
	t.Setenv("MERMAIDFLOW_SERVER_ADDR", ":9999")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Addr)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := load(filepath.Join(t.TempDir(), "nope.toml"), noEnv())
		assert.ErrorIs(t, err, ErrFileNotFound)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := writeFile(t, "config.ini", "x=1")
		_, err := load(path, noEnv())
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("toml syntax", func(t *testing.T) {
		path := writeFile(t, "bad.toml", "[history\nmaxEntries = 1\n")
		_, err := load(path, noEnv())

		var pe *ParseError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, path, pe.Path)
		assert.Positive(t, pe.Line)
	})

	t.Run("yaml syntax", func(t *testing.T) {
		path := writeFile(t, "bad.yaml", "history: [1, 2\n")
		_, err := load(path, noEnv())

		var pe *ParseError
		assert.ErrorAs(t, err, &pe)
	})

	t.Run("json syntax", func(t *testing.T) {
		path := writeFile(t, "bad.json", "{\n  \"history\": {,}\n}")
		_, err := load(path, noEnv())

		var pe *ParseError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "json", pe.Format)
		assert.Equal(t, 2, pe.Line)
	})

	t.Run("invalid value", func(t *testing.T) {
		path := writeFile(t, "zero.toml", "[history]\nmaxEntries = 0\n")
		_, err := load(path, noEnv())

		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "history.maxEntries", ve.Path)
		assert.ErrorIs(t, err, ErrValidationFailed)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"negative commit delay", func(c *Config) { c.Editor.CommitDelay = -1 }, "editor.commitDelay"},
		{"negative render delay", func(c *Config) { c.Editor.RenderDelay = -1 }, "editor.renderDelay"},
		{"relative render url", func(c *Config) { c.Render.URL = "/kroki" }, "render.url"},
		{"zero render timeout", func(c *Config) { c.Render.Timeout = 0 }, "render.timeout"},
		{"empty model", func(c *Config) { c.AI.Model = "" }, "ai.model"},
		{"unknown driver", func(c *Config) { c.Store.Driver = "postgres" }, "store.driver"},
		{"sqlite without path", func(c *Config) { c.Store.Driver = "sqlite"; c.Store.Path = "" }, "store.path"},
		{"redis without addr", func(c *Config) { c.Store.Driver = "redis"; c.Store.RedisAddr = "" }, "store.redisAddr"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.path, ve.Path)
		})
	}
}

func TestEnvToPath(t *testing.T) {
	l := newEnvLoader(EnvPrefix)

	tests := []struct {
		env  string
		want string
	}{
		{"MERMAIDFLOW_EDITOR_COMMIT_DELAY", "editor.commitDelay"},
		{"MERMAIDFLOW_HISTORY_MAX_ENTRIES", "history.maxEntries"},
		{"MERMAIDFLOW_STORE_DRIVER", "store.driver"},
		{"MERMAIDFLOW_DEBUG", "debug"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, l.envToPath(tt.env), tt.env)
	}
}

func TestDeepMerge(t *testing.T) {
	dst := map[string]any{
		"a": map[string]any{"x": 1, "y": 2},
		"b": "keep",
	}
	src := map[string]any{
		"a": map[string]any{"y": 3, "z": 4},
		"c": map[string]any{"n": true},
	}

	got := deepMerge(dst, src)

	assert.Equal(t, map[string]any{
		"a": map[string]any{"x": 1, "y": 3, "z": 4},
		"b": "keep",
		"c": map[string]any{"n": true},
	}, got)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := writeFile(t, "mermaidflow.toml", "[history]\nmaxEntries = 5\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(cfg *Config, err error) {
			if err == nil {
				reloaded <- cfg
			}
		}, WithReloadDelay(20*time.Millisecond))
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("[history]\nmaxEntries = 7\n"), 0o644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 7, cfg.History.MaxEntries)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
