package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variables read by Load.
const EnvPrefix = "MERMAIDFLOW_"

// yamlLine extracts the line from yaml.v3 syntax errors ("yaml: line 3: ...").
var yamlLine = regexp.MustCompile(`line (\d+)`)

// loadFile reads a TOML, YAML or JSON file, chosen by extension, into a map.
func loadFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(path, data)
}

func parse(path string, data []byte) (map[string]any, error) {
	result := make(map[string]any)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &result); err != nil {
			return nil, tomlParseError(path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &result); err != nil {
			pe := &ParseError{Path: path, Format: "yaml", Err: err}
			if m := yamlLine.FindStringSubmatch(err.Error()); m != nil {
				pe.Line, _ = strconv.Atoi(m[1])
			}
			return nil, pe
		}
	case ".json":
		if err := json.Unmarshal(data, &result); err != nil {
			pe := &ParseError{Path: path, Format: "json", Err: err}
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				pe.Line, pe.Column = position(data, syntaxErr.Offset)
			}
			return nil, pe
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	return result, nil
}

func tomlParseError(path string, err error) *ParseError {
	pe := &ParseError{Path: path, Format: "toml", Err: err}
	var decodeErr *toml.DecodeError
	if errors.As(err, &decodeErr) {
		pe.Line, pe.Column = decodeErr.Position()
	}
	return pe
}

// position converts a byte offset into a 1-based line and column.
func position(data []byte, offset int64) (line, col int) {
	line, col = 1, 1
	for i := int64(0); i < offset && i < int64(len(data)); i++ {
		if data[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}

// envLoader loads configuration from environment variables.
type envLoader struct {
	prefix  string
	mapping map[string]string // Env var -> config path
	environ func() []string
}

func newEnvLoader(prefix string) *envLoader {
	return &envLoader{
		prefix:  prefix,
		mapping: defaultEnvMapping(),
		environ: os.Environ,
	}
}

// defaultEnvMapping returns variables whose names don't follow the
// SECTION_SETTING convention.
func defaultEnvMapping() map[string]string {
	return map[string]string{
		"MERMAIDFLOW_LOG_LEVEL":      "logging.level",
		"MERMAIDFLOW_LOG_FORMAT":     "logging.format",
		"MERMAIDFLOW_ADDR":           "server.addr",
		"MERMAIDFLOW_KROKI_URL":      "render.url",
		"MERMAIDFLOW_REDIS_URL":      "store.redisAddr",
		"MERMAIDFLOW_REDIS_PASSWORD": "store.redisPassword",
		// Sensitive settings
		"MERMAIDFLOW_GEMINI_API_KEY": "ai.apiKey",
		"GEMINI_API_KEY":             "ai.apiKey",
	}
}

// Load reads environment variables and returns a configuration map.
// Empty values are treated as set.
func (l *envLoader) Load() map[string]any {
	config := make(map[string]any)
	mapped := make(map[string]any)

	for _, env := range l.environ() {
		name, value, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		if path, ok := l.mapping[name]; ok {
			mapped[path] = parseEnvValue(value)
			continue
		}
		if !strings.HasPrefix(name, l.prefix) || name == l.prefix {
			continue
		}
		setByPath(config, l.envToPath(name), parseEnvValue(value))
	}

	// Explicit mappings win over the generic scan.
	for path, value := range mapped {
		setByPath(config, path, value)
	}
	return config
}

// envToPath converts MERMAIDFLOW_EDITOR_COMMIT_DELAY to editor.commitDelay.
func (l *envLoader) envToPath(env string) string {
	parts := strings.Split(strings.TrimPrefix(env, l.prefix), "_")

	section := strings.ToLower(parts[0])
	if len(parts) == 1 {
		return section
	}

	setting := strings.ToLower(parts[1])
	for _, part := range parts[2:] {
		if part == "" {
			continue
		}
		setting += strings.ToUpper(part[:1]) + strings.ToLower(part[1:])
	}
	return section + "." + setting
}

// parseEnvValue converts booleans and integers; everything else, including
// durations, stays a string for the decoder's hooks.
func parseEnvValue(s string) any {
	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	return s
}
