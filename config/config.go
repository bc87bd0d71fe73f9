// Package config provides YAML configuration parsing for nodeboard.
//
// This package enables running the watcher and the collection registry as
// a standalone binary with a configuration file, as an alternative to the
// programmatic SDK approach.
//
// Example configuration:
//
//	title: Collectors
//	port: 8080
//	poll_interval: 5s
//	color_scheme: dark
//
//	status:
//	  base_url: ${COLLECTOR_URL:-http://localhost:8081/}
//	  timeout: 10s
//	  headers:
//	    Authorization: Bearer ${COLLECTOR_TOKEN}
//
//	collector:
//	  port: 8081
//	  symbols:
//	    BTC: ₿
//	    ETH: Ξ
//	    USD: $
//	    EUR: €
//	    JPY: ¥
//	  tasks:
//	    - from: [BTC, ETH]
//	      to: [USD, EUR]
//	      interval: 60
//	  subscriptions:
//	    - from: BTC
//	      to: JPY
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/nodeboard"
	"github.com/jpalmerr/nodeboard/internal/collect"
)

const (
	// minPollInterval is the minimum allowed polling interval.
	// This prevents accidental hammering of the collection service.
	minPollInterval = 1 * time.Second

	defaultPort          = 8080
	defaultCollectorPort = 8081
	defaultPollInterval  = 5 * time.Second
)

// Config is the root configuration structure for nodeboard.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "Nodeboard" if not set.
	Title string `yaml:"title"`

	// Port is the dashboard HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// PollInterval is the time between status polls.
	// Accepts duration strings like "5s", "1m", "500ms".
	// Defaults to 5s.
	PollInterval Duration `yaml:"poll_interval"`

	// ColorScheme is the initial theme: "light" or "dark".
	// Defaults to light.
	ColorScheme string `yaml:"color_scheme"`

	// HostPage is the path to an HTML page to render into instead of the
	// embedded dashboard. It must contain an element with id running-nodes.
	HostPage string `yaml:"host_page"`

	// Status locates the collection service to watch.
	Status StatusConfig `yaml:"status"`

	// Collector configures the collection registry service.
	Collector *CollectorConfig `yaml:"collector"`
}

// StatusConfig locates the status endpoint of a collection service.
type StatusConfig struct {
	// BaseURL is the collection service base URL.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	BaseURL string `yaml:"base_url"`

	// Path overrides the status route. Defaults to v1/collect/status.
	Path string `yaml:"path"`

	// Timeout is the request timeout. Defaults to 10s.
	Timeout Duration `yaml:"timeout"`

	// Headers are custom HTTP headers sent with each poll.
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers"`
}

// CollectorConfig configures the collection registry service.
type CollectorConfig struct {
	// Port is the collector HTTP server port. Defaults to 8081.
	Port int `yaml:"port"`

	// Symbols maps each currency requests may name to its sign. Defaults
	// to the collector's built-in set. Jobs may only name these symbols.
	Symbols map[string]string `yaml:"symbols"`

	// Tasks are REST pull jobs started at boot.
	Tasks []JobConfig `yaml:"tasks"`

	// Subscriptions are streaming jobs started at boot.
	Subscriptions []JobConfig `yaml:"subscriptions"`
}

// JobConfig defines collection jobs that expand via cartesian product.
//
// For example, from [BTC, ETH] and to [USD, EUR] expands to 4 jobs:
// BTC/USD, BTC/EUR, ETH/USD, ETH/EUR.
type JobConfig struct {
	From Symbols `yaml:"from"`
	To   Symbols `yaml:"to"`

	// Interval is the pull interval in seconds for tasks. Zero uses the
	// collector default. Ignored for subscriptions.
	Interval int64 `yaml:"interval"`
}

// Symbols is a list of currency symbols.
//
// It supports two formats in YAML:
//
//	from: BTC
//	from: [BTC, ETH]
type Symbols []string

// UnmarshalYAML implements yaml.Unmarshaler for Symbols.
func (s *Symbols) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var one string
		if err := node.Decode(&one); err != nil {
			return err
		}
		*s = Symbols{one}
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := node.Decode(&many); err != nil {
			return err
		}
		*s = many
		return nil
	}
	return fmt.Errorf("symbols must be a string or list, got %v", node.Kind)
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in the base URL, header values and
// the host page path. Defaults are applied for Port (8080), PollInterval
// (5s) and the collector port (8081).
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = Duration(defaultPollInterval)
	}
	if cfg.Collector != nil && cfg.Collector.Port == 0 {
		cfg.Collector.Port = defaultCollectorPort
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Theme returns the configured initial theme.
func (c *Config) Theme() nodeboard.Theme {
	if c.ColorScheme == "" {
		return nodeboard.ThemeLight
	}
	// validated in Parse
	theme, _ := nodeboard.ParseTheme(c.ColorScheme)
	return theme
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.PollInterval.Duration() < minPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s", minPollInterval, c.PollInterval.Duration())
	}
	if err := validatePort("port", c.Port); err != nil {
		return err
	}

	if c.ColorScheme != "" {
		if _, err := nodeboard.ParseTheme(c.ColorScheme); err != nil {
			return fmt.Errorf("color_scheme: %w", err)
		}
	}

	if c.HostPage != "" {
		expanded, err := expandEnvVars(c.HostPage)
		if err != nil {
			return fmt.Errorf("host_page: %w", err)
		}
		c.HostPage = expanded
	}

	if err := c.Status.expandAndValidate(); err != nil {
		return err
	}

	if c.Collector != nil {
		if err := c.Collector.validate(); err != nil {
			return err
		}
	}

	if c.Status.BaseURL == "" && c.Collector == nil {
		return errors.New("status.base_url or a collector section must be defined")
	}

	return nil
}

func (s *StatusConfig) expandAndValidate() error {
	if s.BaseURL == "" {
		if len(s.Headers) > 0 || s.Path != "" || s.Timeout != 0 {
			return errors.New("status: base_url is required")
		}
		return nil
	}

	expanded, err := expandEnvVars(s.BaseURL)
	if err != nil {
		return fmt.Errorf("status: base_url: %w", err)
	}
	s.BaseURL = expanded

	parsedURL, err := url.Parse(s.BaseURL)
	if err != nil {
		return fmt.Errorf("status: invalid base_url: %w", err)
	}
	if parsedURL.Scheme == "" {
		return errors.New("status: base_url must have a scheme (http:// or https://)")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("status: base_url scheme must be http or https, got %q", parsedURL.Scheme)
	}

	for k, v := range s.Headers {
		expanded, err := expandEnvVars(v)
		if err != nil {
			return fmt.Errorf("status: headers[%s]: %w", k, err)
		}
		s.Headers[k] = expanded
	}

	if s.Timeout != 0 {
		if s.Timeout.Duration() < 0 {
			return fmt.Errorf("status: timeout cannot be negative, got %s", s.Timeout.Duration())
		}
		if s.Timeout.Duration() < time.Second {
			return fmt.Errorf("status: timeout must be at least 1s if specified, got %s", s.Timeout.Duration())
		}
	}

	return nil
}

func (c *CollectorConfig) validate() error {
	if err := validatePort("collector.port", c.Port); err != nil {
		return err
	}
	for sym, sign := range c.Symbols {
		if !collect.ValidSymbol(sym) {
			return fmt.Errorf("collector.symbols: invalid symbol %q", sym)
		}
		if sign == "" {
			return fmt.Errorf("collector.symbols[%s]: sign is required", sym)
		}
	}
	known := c.knownSymbols()

	tasks := make(map[pair]string)
	for i, job := range c.Tasks {
		context := fmt.Sprintf("collector.tasks[%d]", i)
		if err := job.validate(context, known); err != nil {
			return err
		}
		if job.Interval < 0 {
			return fmt.Errorf("%s: interval cannot be negative, got %d", context, job.Interval)
		}
		if err := checkPairs(context, job, tasks); err != nil {
			return err
		}
	}

	subs := make(map[pair]string)
	for i, job := range c.Subscriptions {
		context := fmt.Sprintf("collector.subscriptions[%d]", i)
		if err := job.validate(context, known); err != nil {
			return err
		}
		if job.Interval != 0 {
			return fmt.Errorf("%s: subscriptions have no interval", context)
		}
		if err := checkPairs(context, job, subs); err != nil {
			return err
		}
	}
	return nil
}

// knownSymbols returns the upper-cased symbols jobs may name.
func (c *CollectorConfig) knownSymbols() map[string]struct{} {
	symbols := c.Symbols
	if len(symbols) == 0 {
		symbols = collect.DefaultSymbols()
	}
	known := make(map[string]struct{}, len(symbols))
	for sym := range symbols {
		known[strings.ToUpper(sym)] = struct{}{}
	}
	return known
}

// checkPairs records the pairs job expands to in seen, failing on a pair
// an earlier job already lists.
func checkPairs(context string, job JobConfig, seen map[pair]string) error {
	for _, p := range expandJob(job) {
		key := pair{from: strings.ToUpper(p.from), to: strings.ToUpper(p.to)}
		if first, exists := seen[key]; exists {
			return fmt.Errorf("%s: pair %s/%s is already listed in %s", context, key.from, key.to, first)
		}
		seen[key] = context
	}
	return nil
}

func (j JobConfig) validate(context string, known map[string]struct{}) error {
	dims := []struct {
		name    string
		symbols Symbols
	}{
		{"from", j.From},
		{"to", j.To},
	}
	for _, dim := range dims {
		if len(dim.symbols) == 0 {
			return fmt.Errorf("%s: %s has no symbols", context, dim.name)
		}
		seen := make(map[string]struct{}, len(dim.symbols))
		for _, sym := range dim.symbols {
			if !collect.ValidSymbol(sym) {
				return fmt.Errorf("%s: %s has invalid symbol %q", context, dim.name, sym)
			}
			key := strings.ToUpper(sym)
			if _, ok := known[key]; !ok {
				return fmt.Errorf("%s: %s has unknown symbol %q", context, dim.name, sym)
			}
			if _, exists := seen[key]; exists {
				return fmt.Errorf("%s: %s has duplicate symbol %q", context, dim.name, sym)
			}
			seen[key] = struct{}{}
		}
	}
	return nil
}

func validatePort(name string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535, got %d", name, port)
	}
	return nil
}
