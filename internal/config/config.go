package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/adrg/xdg"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog"
)

const (
	APP_NAME            = "treecss"
	CONFIG_FILE_NAME    = "config.yaml"
	CONFIG_FILE_RELPATH = APP_NAME + "/" + CONFIG_FILE_NAME

	DEFAULT_LOG_LEVEL     = "info"
	DEFAULT_OUTPUT_FORMAT = JSON_OUTPUT_FORMAT
	DEFAULT_TREE          = LOGICAL_TREE
	DEFAULT_DEBOUNCE_MS   = 100
	DEFAULT_WATCH_PATTERN = "*.{css,scss}"

	JSON_OUTPUT_FORMAT = "json"
	YAML_OUTPUT_FORMAT = "yaml"
	CSS_OUTPUT_FORMAT  = "css"
	AST_OUTPUT_FORMAT  = "ast"

	LOGICAL_TREE = "logical"
	VISUAL_TREE  = "visual"
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config is the configuration of the treecss command, command line flags override it.
type Config struct {
	LogLevel         string `yaml:"log-level"`
	DefaultNamespace string `yaml:"default-namespace"`
	OutputFormat     string `yaml:"output-format"`
	Tree             string `yaml:"tree"`
	DebounceMillis   int    `yaml:"debounce-ms"`
	Strict           bool   `yaml:"strict"`

	//glob matched against the names of the files changed next to a watched stylesheet.
	WatchPattern string `yaml:"watch-pattern"`
}

func Default() Config {
	return Config{
		LogLevel:       DEFAULT_LOG_LEVEL,
		OutputFormat:   DEFAULT_OUTPUT_FORMAT,
		Tree:           DEFAULT_TREE,
		DebounceMillis: DEFAULT_DEBOUNCE_MS,
		WatchPattern:   DEFAULT_WATCH_PATTERN,
	}
}

// Load searches for treecss/config.yaml in the XDG configuration directories and loads it.
// The default configuration and an empty path are returned if there is no such file.
func Load() (cfg Config, path string, err error) {
	path, err = xdg.SearchConfigFile(CONFIG_FILE_RELPATH)
	if err != nil {
		return Default(), "", nil
	}

	cfg, err = LoadFile(path)
	return cfg, path, err
}

func LoadFile(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read configuration file %s: %w", path, err)
	}

	cfg, err := Parse(content)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML configuration, missing fields keep their default value.
func Parse(content []byte) (Config, error) {
	cfg := Default()

	if err := yaml.UnmarshalWithOptions(content, &cfg, yaml.Strict()); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log-level: %w", ErrInvalidConfig, err)
	}

	switch c.OutputFormat {
	case JSON_OUTPUT_FORMAT, YAML_OUTPUT_FORMAT, CSS_OUTPUT_FORMAT, AST_OUTPUT_FORMAT:
	default:
		return fmt.Errorf("%w: output-format should be %s, %s, %s or %s, not %q", ErrInvalidConfig,
			JSON_OUTPUT_FORMAT, YAML_OUTPUT_FORMAT, CSS_OUTPUT_FORMAT, AST_OUTPUT_FORMAT, c.OutputFormat)
	}

	switch c.Tree {
	case LOGICAL_TREE, VISUAL_TREE:
	default:
		return fmt.Errorf("%w: tree should be %s or %s, not %q", ErrInvalidConfig, LOGICAL_TREE, VISUAL_TREE, c.Tree)
	}

	if c.DebounceMillis < 0 {
		return fmt.Errorf("%w: debounce-ms should be positive", ErrInvalidConfig)
	}

	if !doublestar.ValidatePattern(c.WatchPattern) {
		return fmt.Errorf("%w: watch-pattern: invalid pattern %q", ErrInvalidConfig, c.WatchPattern)
	}
	return nil
}

func (c Config) ZerologLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func (c Config) DebounceDuration() time.Duration {
	return time.Duration(c.DebounceMillis) * time.Millisecond
}
