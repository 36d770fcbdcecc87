package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "TRUDERWATCH"
	fileName  = "truderwatch"
)

// Config is the resolved client configuration: defaults, then the config
// file, then TRUDERWATCH_* environment variables, then command-line flags.
type Config struct {
	Server    string         `mapstructure:"server"`
	Timeout   time.Duration  `mapstructure:"timeout"`
	Proxy     string         `mapstructure:"proxy"`
	Insecure  bool           `mapstructure:"insecure"`
	Findings  FindingsConfig `mapstructure:"findings"`
	Probes    ProbesConfig   `mapstructure:"probes"`
	Logs      LogsConfig     `mapstructure:"logs"`
	AutoSeek  AutoSeekConfig `mapstructure:"autoseek"`
	Events    EventsConfig   `mapstructure:"events"`
	NetInfo   NetInfoConfig  `mapstructure:"netinfo"`
	PrefsFile string         `mapstructure:"prefs_file"`
}

type FindingsConfig struct {
	Limit     int `mapstructure:"limit"`
	StreamMax int `mapstructure:"stream_max"`
}

type ProbesConfig struct {
	Max int `mapstructure:"max"`
}

type LogsConfig struct {
	TailInterval time.Duration `mapstructure:"tail_interval"`
	PageLimit    int           `mapstructure:"page_limit"`
	BackfillMax  int           `mapstructure:"backfill_max"`
}

type AutoSeekConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
	MaxPages int           `mapstructure:"max_pages"`
	MaxItems int           `mapstructure:"max_items"`
}

type EventsConfig struct {
	Retry time.Duration `mapstructure:"retry"`
}

type NetInfoConfig struct {
	Public   bool          `mapstructure:"public"`
	Interval time.Duration `mapstructure:"interval"`
}

// FlagKeys maps command-line flag names onto config keys. Only flags
// present in the set handed to Load are bound.
var FlagKeys = map[string]string{
	"server":        "server",
	"timeout":       "timeout",
	"proxy":         "proxy",
	"insecure":      "insecure",
	"page-size":     "findings.limit",
	"stream-max":    "findings.stream_max",
	"max-probes":    "probes.max",
	"tail-interval": "logs.tail_interval",
	"backfill":      "logs.backfill_max",
	"seek-pages":    "autoseek.max_pages",
	"seek-items":    "autoseek.max_items",
	"public-ip":     "netinfo.public",
	"prefs":         "prefs_file",
}

// Load resolves the configuration. An explicit path must exist; without
// one, truderwatch.yaml is looked up in the working directory and
// ~/.config/truderwatch and is optional.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		v.SetConfigName(fileName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", fileName))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	if err := BindFlags(v, flags); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Server = strings.TrimRight(strings.TrimSpace(cfg.Server), "/")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// BindFlags binds every known flag in fs to its config key. Unchanged flags
// do not override file or environment values.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	if fs == nil {
		return nil
	}
	for name, key := range FlagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag --%s: %w", name, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("server", d.Server)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("proxy", d.Proxy)
	v.SetDefault("insecure", d.Insecure)
	v.SetDefault("findings.limit", d.Findings.Limit)
	v.SetDefault("findings.stream_max", d.Findings.StreamMax)
	v.SetDefault("probes.max", d.Probes.Max)
	v.SetDefault("logs.tail_interval", d.Logs.TailInterval)
	v.SetDefault("logs.page_limit", d.Logs.PageLimit)
	v.SetDefault("logs.backfill_max", d.Logs.BackfillMax)
	v.SetDefault("autoseek.debounce", d.AutoSeek.Debounce)
	v.SetDefault("autoseek.max_pages", d.AutoSeek.MaxPages)
	v.SetDefault("autoseek.max_items", d.AutoSeek.MaxItems)
	v.SetDefault("events.retry", d.Events.Retry)
	v.SetDefault("netinfo.public", d.NetInfo.Public)
	v.SetDefault("netinfo.interval", d.NetInfo.Interval)
	v.SetDefault("prefs_file", d.PrefsFile)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if u, err := url.Parse(c.Server); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("server must be an http(s) URL, got %q", c.Server))
	}
	if c.Proxy != "" {
		if u, err := url.Parse(c.Proxy); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("proxy must be a URL, got %q", c.Proxy))
		}
	}

	positiveDur := func(name string, d time.Duration) {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	positiveDur("timeout", c.Timeout)
	positiveDur("logs.tail_interval", c.Logs.TailInterval)
	positiveDur("autoseek.debounce", c.AutoSeek.Debounce)
	positiveDur("events.retry", c.Events.Retry)
	positiveDur("netinfo.interval", c.NetInfo.Interval)

	positive := func(name string, n int) {
		if n <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	positive("findings.limit", c.Findings.Limit)
	positive("findings.stream_max", c.Findings.StreamMax)
	positive("probes.max", c.Probes.Max)
	positive("logs.page_limit", c.Logs.PageLimit)
	positive("logs.backfill_max", c.Logs.BackfillMax)
	positive("autoseek.max_pages", c.AutoSeek.MaxPages)
	positive("autoseek.max_items", c.AutoSeek.MaxItems)

	if c.Findings.Limit > 2000 {
		errs = append(errs, errors.New("findings.limit must be at most 2000"))
	}

	return errors.Join(errs...)
}
