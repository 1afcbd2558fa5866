// Package config loads winnow's layered configuration: built-in defaults,
// an optional JSON file, WINNOW_* environment variables and command-line
// flags, each layer overriding the previous one.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/jmylchreest/winnow/pkg/report"
	"github.com/jmylchreest/winnow/pkg/tokenizer"
)

const (
	// DefaultConfigFile is read from the working directory when present.
	DefaultConfigFile = ".winnow.json"
	// EnvPrefix prefixes every environment variable.
	EnvPrefix = "WINNOW_"
	// DefaultDebounce is the watch-mode quiet period.
	DefaultDebounce = 500 * time.Millisecond
	// DefaultMaxFileSize skips larger files during discovery.
	DefaultMaxFileSize = 1024 * 1024
)

// Output formats.
const (
	FormatTerminal = "terminal"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatCSV      = "csv"
)

// Formats returns the accepted output formats.
func Formats() []string {
	return []string{FormatTerminal, FormatJSON, FormatYAML, FormatCSV}
}

// Config is the effective configuration of a run.
type Config struct {
	report.Options `koanf:",squash"`

	// Language forces one tokenizer for every file. Empty detects the
	// language from each file's extension.
	Language        string   `koanf:"language"`
	IncludeComments bool     `koanf:"include_comments"`
	Include         []string `koanf:"include"`
	Exclude         []string `koanf:"exclude"`
	MaxFileSize     int64    `koanf:"max_file_size"`
	// IgnoreFile is a template whose fingerprints are ignored.
	IgnoreFile string `koanf:"ignore"`

	Format        string `koanf:"format"`
	Output        string `koanf:"output"`
	ShowFragments bool   `koanf:"show_fragments"`
	MetricsFile   string `koanf:"metrics_file"`

	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	Debounce time.Duration `koanf:"debounce"`
}

// defaults is the lowest configuration layer.
func defaults() map[string]any {
	o := report.DefaultOptions()
	return map[string]any{
		"k":                          o.KgramLength,
		"w":                          o.KgramsInWindow,
		"no_winnow":                  o.NoWinnow,
		"min_fragment_length":        o.MinFragmentLength,
		"min_similarity":             o.MinSimilarity,
		"max_fingerprint_count":      o.MaxFingerprintCount,
		"max_fingerprint_percentage": o.MaxFingerprintPercentage,
		"limit":                      o.LimitResults,
		"sort_by":                    string(o.SortBy),
		"workers":                    o.Workers,
		"language":                   "",
		"include_comments":           false,
		"max_file_size":              DefaultMaxFileSize,
		"format":                     FormatTerminal,
		"log_level":                  "info",
		"log_format":                 "text",
		"debounce":                   DefaultDebounce.String(),
	}
}

// LoadOptions selects the configuration sources.
type LoadOptions struct {
	// ConfigFile is an explicit JSON file, which must exist. When empty,
	// DefaultConfigFile is read if present.
	ConfigFile string
	// Flags are command-line values keyed like the JSON file.
	Flags map[string]any
	// Environ returns the environment. Defaults to os.Environ.
	Environ func() []string
}

// Load merges all layers and validates the result.
func Load(lo LoadOptions) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	path := lo.ConfigFile
	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), json.Parser()); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	environ := lo.Environ
	if environ == nil {
		environ = os.Environ
	}
	envProvider := env.Provider(".", env.Opt{
		Prefix:      EnvPrefix,
		EnvironFunc: environ,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
			switch key {
			case "include", "exclude":
				return key, strings.Split(value, ",")
			}
			return key, value
		},
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if len(lo.Flags) > 0 {
		if err := k.Load(confmap.Provider(lo.Flags, "."), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the report options and the output settings, returning a
// single *report.ValidationError listing every problem.
func (c *Config) Validate() error {
	var problems []string
	if err := c.Options.Validate(); err != nil {
		var verr *report.ValidationError
		if !errors.As(err, &verr) {
			return err
		}
		problems = append(problems, verr.Problems...)
	}

	if !slices.Contains(Formats(), c.Format) {
		problems = append(problems, fmt.Sprintf("format must be one of %s (got %q)", strings.Join(Formats(), ", "), c.Format))
	}
	if c.Format == FormatCSV && c.Output == "" {
		problems = append(problems, "csv format needs an output directory")
	}
	if c.Language != "" && !slices.Contains(tokenizer.Languages(), c.Language) {
		problems = append(problems, fmt.Sprintf("unknown language %q", c.Language))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		problems = append(problems, fmt.Sprintf("log format must be text or json (got %q)", c.LogFormat))
	}
	if c.MaxFileSize < 0 {
		problems = append(problems, fmt.Sprintf("max file size must not be negative (got %d)", c.MaxFileSize))
	}
	if c.Debounce < 0 {
		problems = append(problems, fmt.Sprintf("debounce must not be negative (got %s)", c.Debounce))
	}

	if len(problems) > 0 {
		return &report.ValidationError{Problems: problems}
	}
	return nil
}
