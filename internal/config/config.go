package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap/zapcore"
)

// DefaultSeed is the diagram a new editing session starts with.
const DefaultSeed = "graph TD\n" +
	"    A[Inicio] --> B[Proceso]\n" +
	"    B --> C{Decisión}\n" +
	"    C -->|Sí| D[Acción 1]\n" +
	"    C -->|No| E[Acción 2]\n" +
	"    D --> F[Fin]\n" +
	"    E --> F"

// Config is the fully resolved application configuration.
type Config struct {
	History HistoryConfig     `mapstructure:"history"`
	Editor  EditorConfig      `mapstructure:"editor"`
	Render  RenderConfig      `mapstructure:"render"`
	AI      AIConfig          `mapstructure:"ai"`
	Store   StoreConfig       `mapstructure:"store"`
	Export  ExportConfig      `mapstructure:"export"`
	Server  ServerConfig      `mapstructure:"server"`
	Logging LoggingConfig     `mapstructure:"logging"`
	Keymap  map[string]string `mapstructure:"keymap"`

	// Path is the file the configuration was loaded from, if any.
	Path string `mapstructure:"-"`
}

// HistoryConfig bounds the undo log.
type HistoryConfig struct {
	MaxEntries int `mapstructure:"maxEntries"`
}

// EditorConfig controls edit coalescing and rendering cadence.
type EditorConfig struct {
	CommitDelay time.Duration `mapstructure:"commitDelay"`
	RenderDelay time.Duration `mapstructure:"renderDelay"`
	Seed        string        `mapstructure:"seed"`
}

// RenderConfig configures the Kroki rendering service.
type RenderConfig struct {
	URL       string        `mapstructure:"url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	CacheTTL  time.Duration `mapstructure:"cacheTTL"`
	CacheSize int           `mapstructure:"cacheSize"`
}

// AIConfig configures the Gemini repair assistant.
// An empty APIKey disables repair.
type AIConfig struct {
	APIKey  string        `mapstructure:"apiKey"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StoreConfig selects and configures the diagram store.
type StoreConfig struct {
	Driver        string `mapstructure:"driver"`
	Path          string `mapstructure:"path"`
	RedisAddr     string `mapstructure:"redisAddr"`
	RedisPassword string `mapstructure:"redisPassword"`
	RedisDB       int    `mapstructure:"redisDB"`
	RedisPrefix   string `mapstructure:"redisPrefix"`
}

// ExportConfig holds export defaults.
type ExportConfig struct {
	Background string `mapstructure:"background"`
	Dir        string `mapstructure:"dir"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr        string        `mapstructure:"addr"`
	SessionIdle time.Duration `mapstructure:"sessionIdle"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Defaults returns the built-in configuration layer.
func Defaults() map[string]any {
	return map[string]any{
		"history": map[string]any{
			"maxEntries": 50,
		},
		"editor": map[string]any{
			"commitDelay": "1s",
			"renderDelay": "300ms",
			"seed":        DefaultSeed,
		},
		"render": map[string]any{
			"url":       "https://kroki.io",
			"timeout":   "10s",
			"cacheTTL":  "5m",
			"cacheSize": 128,
		},
		"ai": map[string]any{
			"apiKey":  "",
			"model":   "gemini-2.0-flash",
			"timeout": "30s",
		},
		"store": map[string]any{
			"driver":        "memory",
			"path":          "mermaidflow.db",
			"redisAddr":     "localhost:6379",
			"redisPassword": "",
			"redisDB":       0,
			"redisPrefix":   "mermaidflow:",
		},
		"export": map[string]any{
			"background": "#0a0a0a",
			"dir":        ".",
		},
		"server": map[string]any{
			"addr":        ":8080",
			"sessionIdle": "30m",
		},
		"logging": map[string]any{
			"level":  "info",
			"format": "json",
		},
		"keymap": map[string]any{},
	}
}

// Default returns the decoded built-in configuration.
func Default() *Config {
	cfg, err := decode(Defaults())
	if err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return cfg
}

// Load builds the configuration from defaults, the file at path (skipped
// when path is empty) and the environment, then validates it.
func Load(path string) (*Config, error) {
	return load(path, newEnvLoader(EnvPrefix))
}

func load(path string, env *envLoader) (*Config, error) {
	merged := Defaults()

	if path != "" {
		file, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		merged = deepMerge(merged, file)
	}
	if env != nil {
		merged = deepMerge(merged, env.Load())
	}

	cfg, err := decode(merged)
	if err != nil {
		return nil, err
	}
	cfg.Path = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(data map[string]any) (*Config, error) {
	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("creating decoder: %w", err)
	}
	if err := decoder.Decode(data); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for values the application cannot use.
// It returns the first problem found as a *ValidationError.
func (c *Config) Validate() error {
	if c.History.MaxEntries < 1 {
		return &ValidationError{Path: "history.maxEntries", Message: "must be at least 1", Value: c.History.MaxEntries}
	}
	if c.Editor.CommitDelay < 0 {
		return &ValidationError{Path: "editor.commitDelay", Message: "must not be negative", Value: c.Editor.CommitDelay}
	}
	if c.Editor.RenderDelay < 0 {
		return &ValidationError{Path: "editor.renderDelay", Message: "must not be negative", Value: c.Editor.RenderDelay}
	}
	if u, err := url.Parse(c.Render.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return &ValidationError{Path: "render.url", Message: "must be an absolute URL", Value: c.Render.URL}
	}
	if c.Render.Timeout <= 0 {
		return &ValidationError{Path: "render.timeout", Message: "must be positive", Value: c.Render.Timeout}
	}
	if c.Render.CacheSize < 0 {
		return &ValidationError{Path: "render.cacheSize", Message: "must not be negative", Value: c.Render.CacheSize}
	}
	if c.AI.Model == "" {
		return &ValidationError{Path: "ai.model", Message: "must not be empty", Value: c.AI.Model}
	}

	switch c.Store.Driver {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return &ValidationError{Path: "store.path", Message: "required for sqlite", Value: c.Store.Path}
		}
	case "redis":
		if c.Store.RedisAddr == "" {
			return &ValidationError{Path: "store.redisAddr", Message: "required for redis", Value: c.Store.RedisAddr}
		}
	default:
		return &ValidationError{Path: "store.driver", Message: "must be one of memory, sqlite, redis", Value: c.Store.Driver}
	}

	if c.Server.SessionIdle < 0 {
		return &ValidationError{Path: "server.sessionIdle", Message: "must not be negative", Value: c.Server.SessionIdle}
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return &ValidationError{Path: "logging.level", Message: "unknown level", Value: c.Logging.Level}
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return &ValidationError{Path: "logging.format", Message: "must be json or console", Value: c.Logging.Format}
	}
	return nil
}

// RepairEnabled reports whether an AI key is configured.
func (c *Config) RepairEnabled() bool {
	return c.AI.APIKey != ""
}
