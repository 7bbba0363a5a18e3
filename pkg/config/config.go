// Package config loads the YAML configuration shared by the intake CLI and
// HTTP service.
//
//	log_level: info
//	document_ai:
//	  project_id: "your-gcp-project-id"
//	  location: "us"
//	  processor_id: "your-processor-id"
//	process_keys:
//	  - keyValue: executedOnDate
//	    precedence: [hawb, prealert]
//	  - keyValue: goodsDescription
//	    fallback: true
//	truncation: {accountNumber: 12}
//	render: {markdown: false, workers: 4}
//	audit: {sqlite_path: audit.db}
//	http: {addr: ":8080"}
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gardar/cargointake/pkg/fields"
	"github.com/gardar/cargointake/pkg/flatten"
	"github.com/gardar/cargointake/pkg/gdocai"
	"github.com/gardar/cargointake/pkg/layout"
	"github.com/gardar/cargointake/pkg/precedence"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the root of the YAML configuration file.
type Config struct {
	LogLevel         string               `yaml:"log_level"`
	DocumentAI       DocumentAI           `yaml:"document_ai"`
	ProcessKeys      []flatten.ProcessKey `yaml:"process_keys"`
	Truncation       map[string]int       `yaml:"truncation"` // Merged over the built-in limits
	StrictNamespaces bool                 `yaml:"strict_namespaces"`
	FixTypos         bool                 `yaml:"fix_typos"`
	Render           Render               `yaml:"render"`
	Audit            Audit                `yaml:"audit"`
	HTTP             HTTP                 `yaml:"http"`
}

// DocumentAI holds Google Document AI processor settings.
type DocumentAI struct {
	ProjectID   string `yaml:"project_id"`
	Location    string `yaml:"location"`
	ProcessorID string `yaml:"processor_id"`
}

// Render controls page text rendering.
type Render struct {
	Markdown  bool   `yaml:"markdown"`
	Workers   int    `yaml:"workers"`
	SkipFiles string `yaml:"skip_files"` // Regexp of document file paths left out of rendering
}

// Audit selects the audit sinks. An empty SQLitePath logs events only.
type Audit struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// HTTP configures the intake service.
type HTTP struct {
	Addr string `yaml:"addr"`
}

// Default returns a config with every default applied.
func Default() *Config {
	c := &Config{}
	c.defaults()
	return c
}

func (c *Config) defaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.DocumentAI.Location == "" {
		c.DocumentAI.Location = "us"
	}
	if c.Render.Workers == 0 {
		c.Render.Workers = 4
	}
	if c.Render.SkipFiles == "" {
		c.Render.SkipFiles = layout.DefaultSkipFiles.String()
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
}

// Load reads a YAML file and returns the validated config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	c.defaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate reports the first problem found.
func (c *Config) Validate() error {
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Render.Workers <= 0 {
		return fmt.Errorf("%w: render.workers must be positive, got %d", ErrInvalidConfig, c.Render.Workers)
	}
	if _, err := regexp.Compile(c.Render.SkipFiles); err != nil {
		return fmt.Errorf("%w: render.skip_files: %v", ErrInvalidConfig, err)
	}
	seen := make(map[string]bool, len(c.ProcessKeys))
	for i, k := range c.ProcessKeys {
		if k.KeyValue == "" {
			return fmt.Errorf("%w: process_keys[%d] has no keyValue", ErrInvalidConfig, i)
		}
		if seen[k.KeyValue] {
			return fmt.Errorf("%w: duplicate process key %q", ErrInvalidConfig, k.KeyValue)
		}
		seen[k.KeyValue] = true
	}
	for label, n := range c.Truncation {
		if n < 0 {
			return fmt.Errorf("%w: truncation for %q is negative", ErrInvalidConfig, label)
		}
	}
	return nil
}

// Level returns the slog level named by log_level.
func (c *Config) Level() slog.Level {
	lvl, _ := parseLevel(c.LogLevel)
	return lvl
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: log_level %q", ErrInvalidConfig, s)
	}
	return lvl, nil
}

// GoogleDocumentAI converts the document_ai section for the gdocai package.
// It returns nil when no processor is configured.
func (c *Config) GoogleDocumentAI() *gdocai.Config {
	if c.DocumentAI.ProjectID == "" && c.DocumentAI.ProcessorID == "" {
		return nil
	}
	return &gdocai.Config{
		ProjectID:   c.DocumentAI.ProjectID,
		Location:    c.DocumentAI.Location,
		ProcessorID: c.DocumentAI.ProcessorID,
	}
}

// FlattenConfig builds the flattener settings.
func (c *Config) FlattenConfig(logger *slog.Logger) flatten.Config {
	collector := fields.DefaultCollectorConfig()
	for label, n := range c.Truncation {
		collector.Truncation[label] = n
	}
	collector.Logger = logger
	return flatten.Config{
		Collector: collector,
		Resolver: precedence.ResolverConfig{
			Style:  precedence.ReasoningStyle{FixTypos: c.FixTypos},
			Logger: logger,
		},
		StrictNamespaces: c.StrictNamespaces,
		Logger:           logger,
	}
}

// RendererConfig builds the page renderer settings.
func (c *Config) RendererConfig(logger *slog.Logger) layout.RendererConfig {
	return layout.RendererConfig{
		Markdown:  c.Render.Markdown,
		SkipFiles: regexp.MustCompile(c.Render.SkipFiles),
		Logger:    logger,
	}
}
