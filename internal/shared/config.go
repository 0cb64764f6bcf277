package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

//go:embed config.example.toml
var exampleConf []byte

// Supported export formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Environment variables read by [LoadConfig].
const (
	EnvToken      = "MS_TODO_TOKEN"
	EnvFormat     = "MS_TODO_FORMAT"
	EnvOutputPath = "MS_TODO_OUTPUT_PATH"
	EnvSingleFile = "MS_TODO_SINGLE_FILE"
)

// Config represents the merged application configuration.
type Config struct {
	Token   string        `toml:"token" mapstructure:"token"`
	Output  OutputConfig  `toml:"output" mapstructure:"output"`
	CSV     CSVConfig     `toml:"csv" mapstructure:"csv"`
	API     APIConfig     `toml:"api" mapstructure:"api"`
	Server  ServerConfig  `toml:"server" mapstructure:"server"`
	History HistoryConfig `toml:"history" mapstructure:"history"`
	Log     LogConfig     `toml:"log" mapstructure:"log"`
}

// OutputConfig controls what an export produces and where the CLI writes it.
type OutputConfig struct {
	Format     string `toml:"format" mapstructure:"format"`
	Path       string `toml:"path" mapstructure:"path"`
	SingleFile bool   `toml:"single_file" mapstructure:"single_file"`
}

// CSVConfig contains task selection settings.
type CSVConfig struct {
	IncludeCompleted bool `toml:"include_completed" mapstructure:"include_completed"`
}

// APIConfig contains Microsoft Graph client settings.
type APIConfig struct {
	BaseURL           string  `toml:"base_url" mapstructure:"base_url"`
	PaginationLimit   int     `toml:"pagination_limit" mapstructure:"pagination_limit"`
	Timeout           int     `toml:"timeout" mapstructure:"timeout"` // seconds
	MaxRetries        int     `toml:"max_retries" mapstructure:"max_retries"`
	RequestsPerSecond float64 `toml:"requests_per_second" mapstructure:"requests_per_second"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host" mapstructure:"host"`
	Port int    `toml:"port" mapstructure:"port"`
}

// HistoryConfig controls the export-run history database.
type HistoryConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Path    string `toml:"path" mapstructure:"path"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level" mapstructure:"level"`
}

// ConfigSources holds every input to [AssembleConfig].
//
// File is the decoded config file (nil when none was found), Env an environment snapshot,
// and Overrides explicit values such as command-line flags.
type ConfigSources struct {
	File      map[string]any
	Env       map[string]string
	Overrides map[string]any
}

// AssembleConfig merges defaults, file, environment and overrides (lowest to highest precedence).
//
// Nested keys are deep merged, and a nil value never replaces a concrete value from a lower layer.
// The function reads nothing outside of src.
func AssembleConfig(src ConfigSources) (*Config, error) {
	defaults, err := defaultMap()
	if err != nil {
		return nil, err
	}

	merged := defaults
	for _, layer := range []map[string]any{src.File, envLayer(src.Env), overrideLayer(src.Overrides)} {
		merged = deepMerge(merged, layer)
	}

	v := viper.New()
	if err := v.MergeConfigMap(merged); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	config.Token = strings.TrimSpace(config.Token)
	config.Output.Format = strings.ToLower(strings.TrimSpace(config.Output.Format))
	return &config, nil
}

// LoadConfig reads the config file (explicit path, or the first search path with content)
// and the process environment, then assembles the final [Config].
func LoadConfig(path string, overrides map[string]any) (*Config, error) {
	file, err := findConfigFile(path, ConfigSearchPaths())
	if err != nil {
		return nil, err
	}

	return AssembleConfig(ConfigSources{
		File:      file,
		Env:       EnvSnapshot(os.Environ()),
		Overrides: overrides,
	})
}

// DefaultConfig returns a Config with the defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	config, err := AssembleConfig(ConfigSources{})
	if err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return config
}

// Validate checks values that cannot be corrected silently.
func (c *Config) Validate() error {
	switch c.Output.Format {
	case FormatCSV, FormatJSON:
	default:
		return fmt.Errorf("%w: %q (expected csv or json)", ErrInvalidFormat, c.Output.Format)
	}

	if c.API.PaginationLimit <= 0 {
		return fmt.Errorf("%w: api.pagination_limit must be positive", ErrInvalidConfig)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("%w: api.timeout must be positive", ErrInvalidConfig)
	}
	if c.API.MaxRetries < 0 {
		return fmt.Errorf("%w: api.max_retries must not be negative", ErrInvalidConfig)
	}
	return nil
}

// ConfigSearchPaths lists the files tried, in order, when no explicit config path is given.
func ConfigSearchPaths() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".export-ms-todo.toml"),
			filepath.Join(home, ".export-ms-todo.yml"),
		)
	}
	return append(paths, "./config.toml", "./config.yml")
}

// ReadConfigFile decodes a TOML or YAML (by extension) config file into a map.
func ReadConfigFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	values := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, &values); err != nil {
			return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidConfig, path, err)
		}
	default:
		if err := toml.Unmarshal(data, &values); err != nil {
			return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidConfig, path, err)
		}
	}

	return values, nil
}

// CreateConfigFile creates a config file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// EnvSnapshot converts "KEY=value" pairs (as from [os.Environ]) into a map.
func EnvSnapshot(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

func findConfigFile(explicit string, search []string) (map[string]any, error) {
	if explicit != "" {
		values, err := ReadConfigFile(explicit)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrMissingConfig, explicit)
			}
			return nil, err
		}
		return values, nil
	}

	for _, path := range search {
		values, err := ReadConfigFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if len(values) > 0 {
			return values, nil
		}
	}
	return nil, nil
}

func defaultMap() (map[string]any, error) {
	values := map[string]any{}
	if err := toml.Unmarshal(exampleConf, &values); err != nil {
		return nil, fmt.Errorf("%w: embedded defaults: %v", ErrInvalidConfig, err)
	}
	return values, nil
}

func envLayer(env map[string]string) map[string]any {
	output := map[string]any{}
	if v, ok := env[EnvFormat]; ok {
		output["format"] = v
	}
	if v, ok := env[EnvOutputPath]; ok {
		output["path"] = v
	}
	if v, ok := env[EnvSingleFile]; ok {
		output["single_file"] = v == "true"
	}

	layer := map[string]any{}
	if len(output) > 0 {
		layer["output"] = output
	}
	if v, ok := env[EnvToken]; ok {
		layer["token"] = v
	}
	return layer
}

// overrideLayer maps flat override keys onto their nested config location.
func overrideLayer(overrides map[string]any) map[string]any {
	layer := map[string]any{}
	output := map[string]any{}

	for key, value := range overrides {
		switch key {
		case "output_path":
			output["path"] = value
		case "output_format", "format":
			output["format"] = value
		case "single_file":
			output["single_file"] = value
		case "include_completed":
			layer = deepMerge(layer, map[string]any{"csv": map[string]any{"include_completed": value}})
		default:
			layer = deepMerge(layer, map[string]any{key: value})
		}
	}

	if len(output) > 0 {
		layer = deepMerge(layer, map[string]any{"output": output})
	}
	return layer
}

// deepMerge returns base with over applied on top. Maps merge recursively; nil values in over are skipped.
func deepMerge(base, over map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}

	for k, nv := range over {
		if nv == nil {
			continue
		}
		if nm, ok := nv.(map[string]any); ok {
			if om, ok := out[k].(map[string]any); ok {
				out[k] = deepMerge(om, nm)
				continue
			}
			out[k] = deepMerge(nil, nm)
			continue
		}
		out[k] = nv
	}
	return out
}
