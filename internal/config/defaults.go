package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Pusher91/truderwatch/internal/prefs"
)

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Server:  "http://127.0.0.1:8080",
		Timeout: 15 * time.Second,
		Findings: FindingsConfig{
			Limit:     500,
			StreamMax: 500,
		},
		Probes: ProbesConfig{Max: 20000},
		Logs: LogsConfig{
			TailInterval: 750 * time.Millisecond,
			PageLimit:    500,
			BackfillMax:  2000,
		},
		AutoSeek: AutoSeekConfig{
			Debounce: 200 * time.Millisecond,
			MaxPages: 40,
			MaxItems: 20000,
		},
		Events:    EventsConfig{Retry: 2 * time.Second},
		NetInfo:   NetInfoConfig{Interval: 30 * time.Second},
		PrefsFile: prefs.DefaultPath(),
	}
}

// document renders c with durations as strings so the file reads back
// through viper unchanged.
func (c *Config) document() map[string]any {
	return map[string]any{
		"server":   c.Server,
		"timeout":  c.Timeout.String(),
		"proxy":    c.Proxy,
		"insecure": c.Insecure,
		"findings": map[string]any{
			"limit":      c.Findings.Limit,
			"stream_max": c.Findings.StreamMax,
		},
		"probes": map[string]any{"max": c.Probes.Max},
		"logs": map[string]any{
			"tail_interval": c.Logs.TailInterval.String(),
			"page_limit":    c.Logs.PageLimit,
			"backfill_max":  c.Logs.BackfillMax,
		},
		"autoseek": map[string]any{
			"debounce":  c.AutoSeek.Debounce.String(),
			"max_pages": c.AutoSeek.MaxPages,
			"max_items": c.AutoSeek.MaxItems,
		},
		"events": map[string]any{"retry": c.Events.Retry.String()},
		"netinfo": map[string]any{
			"public":   c.NetInfo.Public,
			"interval": c.NetInfo.Interval.String(),
		},
		"prefs_file": c.PrefsFile,
	}
}

// Marshal renders c as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c.document())
}

// WriteDefault writes a default configuration to the specified path
func WriteDefault(path string) error {
	data, err := DefaultConfig().Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
