package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/jpalmerr/nodeboard"
	"github.com/jpalmerr/nodeboard/internal/collect"
)

// BuildEndpoint converts the status section into an SDK Endpoint.
func BuildEndpoint(cfg *Config) (nodeboard.Endpoint, error) {
	sc := cfg.Status
	if sc.BaseURL == "" {
		return nodeboard.Endpoint{}, errors.New("status.base_url is required to watch a collector")
	}

	var opts []nodeboard.EndpointOption

	if sc.Path != "" {
		opts = append(opts, nodeboard.WithPath(sc.Path))
	}

	if sc.Timeout != 0 {
		opts = append(opts, nodeboard.WithTimeout(sc.Timeout.Duration()))
	}

	if len(sc.Headers) > 0 {
		opts = append(opts, nodeboard.WithHeaders(mapToKeyValuePairs(sc.Headers)...))
	}

	return nodeboard.NewEndpoint(sc.BaseURL, opts...)
}

// BuildOptions converts parsed configuration into watcher options.
//
// The host page file, if configured, is read here.
func BuildOptions(cfg *Config, logger *slog.Logger) ([]nodeboard.Option, error) {
	ep, err := BuildEndpoint(cfg)
	if err != nil {
		return nil, err
	}

	opts := []nodeboard.Option{
		nodeboard.WithEndpoint(ep),
		nodeboard.WithPollingInterval(cfg.PollInterval.Duration()),
		nodeboard.WithPort(cfg.Port),
		nodeboard.WithTheme(cfg.Theme()),
	}

	if cfg.Title != "" {
		opts = append(opts, nodeboard.WithTitle(cfg.Title))
	}

	if cfg.HostPage != "" {
		page, err := os.ReadFile(cfg.HostPage)
		if err != nil {
			return nil, fmt.Errorf("failed to read host page: %w", err)
		}
		opts = append(opts, nodeboard.WithHostPage(string(page)))
	}

	if logger != nil {
		opts = append(opts, nodeboard.WithLogger(logger))
	}

	return opts, nil
}

// BuildRegistry creates a collection registry seeded with the configured
// symbols, tasks and subscriptions. A nil collector section yields an
// empty registry accepting the default symbols.
func BuildRegistry(cc *CollectorConfig) (*collect.Registry, error) {
	if cc == nil {
		return collect.NewRegistry(), nil
	}

	reg := collect.NewRegistry()
	if len(cc.Symbols) > 0 {
		symbols, err := collect.NewSymbols(cc.Symbols)
		if err != nil {
			return nil, fmt.Errorf("collector symbols: %w", err)
		}
		reg = collect.NewRegistryWithSymbols(symbols)
	}

	for _, job := range cc.Tasks {
		for _, pair := range expandJob(job) {
			reg.AddTask(pair.from, pair.to, job.Interval)
		}
	}

	for _, job := range cc.Subscriptions {
		for _, pair := range expandJob(job) {
			if _, err := reg.Subscribe(pair.from, pair.to); err != nil {
				return nil, fmt.Errorf("subscription %s/%s: %w", pair.from, pair.to, err)
			}
		}
	}

	return reg, nil
}

// mapToKeyValuePairs converts a map to a sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	// sort keys for deterministic ordering
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}

type pair struct {
	from string
	to   string
}

// expandJob expands a JobConfig into currency pairs via cartesian product.
func expandJob(job JobConfig) []pair {
	combos := cartesianProduct(map[string][]string{
		"from": job.From,
		"to":   job.To,
	})

	pairs := make([]pair, 0, len(combos))
	for _, combo := range combos {
		pairs = append(pairs, pair{from: combo["from"], to: combo["to"]})
	}
	return pairs
}

// cartesianProduct generates all combinations of dimension values.
func cartesianProduct(dimensions map[string][]string) []map[string]string {
	if len(dimensions) == 0 {
		return nil
	}

	// sort dimension keys for deterministic ordering
	keys := make([]string, 0, len(dimensions))
	for k := range dimensions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// start with single empty combination
	result := []map[string]string{{}}

	for _, key := range keys {
		values := dimensions[key]
		var newResult []map[string]string

		for _, combo := range result {
			for _, val := range values {
				newCombo := make(map[string]string, len(combo)+1)
				for k, v := range combo {
					newCombo[k] = v
				}
				newCombo[key] = val
				newResult = append(newResult, newCombo)
			}
		}
		result = newResult
	}

	return result
}
