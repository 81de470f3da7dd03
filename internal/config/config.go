// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"firestige.xyz/cobslog/internal/core"
	"firestige.xyz/cobslog/internal/log"
)

// Config is the top-level configuration.
// Maps to the `cobslog:` root key in YAML.
type Config struct {
	Log     log.LoggerConfig `mapstructure:"log"`
	Decoder DecoderConfig    `mapstructure:"decoder"`
	Layout  LayoutConfig     `mapstructure:"layout"`
	Metrics MetricsConfig    `mapstructure:"metrics"`
	Serial  SerialConfig     `mapstructure:"serial"`
}

// ─── Decoder ───

// DecoderConfig controls record extraction.
type DecoderConfig struct {
	RecordSize  int  `mapstructure:"record_size"`  // 0 = size of the loaded layout
	MetadataLen int  `mapstructure:"metadata_len"` // 0 = 7
	Lenient     bool `mapstructure:"lenient"`
	Shards      int  `mapstructure:"shards"` // 0 = GOMAXPROCS, 1 = sequential
	Stream      bool `mapstructure:"stream"` // scan the input instead of loading it whole

	LogLimit  int           `mapstructure:"log_limit"`  // per-frame log lines per kind per window, 0 = unlimited
	LogWindow time.Duration `mapstructure:"log_window"` // default 10s
}

// ─── Layout ───

// LayoutConfig points at the record layout description.
type LayoutConfig struct {
	Path string `mapstructure:"path"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// ─── Serial ───

// SerialConfig configures live capture from a device.
type SerialConfig struct {
	Port        string        `mapstructure:"port"`
	Baud        int           `mapstructure:"baud"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

// ─── Loading ───

type configRoot struct {
	Cobslog Config `mapstructure:"cobslog"`
}

// Load loads configuration from file. An empty path loads defaults and
// environment overrides only.
// The YAML file uses `cobslog:` as root key; env vars use the COBSLOG_ prefix
// (e.g., COBSLOG_LOG_LEVEL).
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// key "cobslog.log.level" → env "COBSLOG_LOG_LEVEL"
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Cobslog

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration Load produces with no file and no
// environment.
func Default() *Config {
	cfg := &Config{
		Log: *log.DefaultConfig(),
		Decoder: DecoderConfig{
			MetadataLen: core.DefaultMetadataLen,
			Shards:      1,
			LogLimit:    100,
			LogWindow:   10 * time.Second,
		},
		Metrics: MetricsConfig{Listen: ":9091", Path: "/metrics"},
		Serial:  SerialConfig{Baud: 115200, ReadTimeout: 500 * time.Millisecond},
	}
	_ = cfg.ValidateAndApplyDefaults()
	return cfg
}

func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("cobslog.log.level", "info")
	v.SetDefault("cobslog.log.pattern", log.DefaultPattern)
	v.SetDefault("cobslog.log.time", log.DefaultTimeLayout)
	v.SetDefault("cobslog.log.caller", false)

	// Decoder defaults
	v.SetDefault("cobslog.decoder.record_size", 0)
	v.SetDefault("cobslog.decoder.metadata_len", core.DefaultMetadataLen)
	v.SetDefault("cobslog.decoder.lenient", false)
	v.SetDefault("cobslog.decoder.shards", 1)
	v.SetDefault("cobslog.decoder.stream", false)
	v.SetDefault("cobslog.decoder.log_limit", 100)
	v.SetDefault("cobslog.decoder.log_window", "10s")

	v.SetDefault("cobslog.layout.path", "")

	// Metrics defaults
	v.SetDefault("cobslog.metrics.enabled", false)
	v.SetDefault("cobslog.metrics.listen", ":9091")
	v.SetDefault("cobslog.metrics.path", "/metrics")

	// Serial defaults
	v.SetDefault("cobslog.serial.port", "")
	v.SetDefault("cobslog.serial.baud", 115200)
	v.SetDefault("cobslog.serial.read_timeout", "500ms")
}

// ValidateAndApplyDefaults validates configuration and applies runtime defaults.
func (cfg *Config) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: invalid log level: %s (must be trace/debug/info/warn/error)", core.ErrConfigInvalid, cfg.Log.Level)
	}
	if len(cfg.Log.Appenders) == 0 {
		cfg.Log.Appenders = []log.AppenderConfig{{Type: log.AppenderConsole}}
	}

	// ── Decoder ──
	d := &cfg.Decoder
	if d.RecordSize < 0 {
		return fmt.Errorf("%w: decoder.record_size must not be negative", core.ErrConfigInvalid)
	}
	if d.MetadataLen < 0 {
		return fmt.Errorf("%w: decoder.metadata_len must not be negative", core.ErrConfigInvalid)
	}
	if d.MetadataLen == 0 {
		d.MetadataLen = core.DefaultMetadataLen
	}
	if d.Shards < 0 {
		return fmt.Errorf("%w: decoder.shards must not be negative", core.ErrConfigInvalid)
	}
	if d.Shards == 0 {
		d.Shards = runtime.GOMAXPROCS(0)
	}
	if d.LogLimit < 0 {
		return fmt.Errorf("%w: decoder.log_limit must not be negative", core.ErrConfigInvalid)
	}
	if d.LogWindow <= 0 {
		d.LogWindow = 10 * time.Second
	}
	if d.Stream && d.Shards > 1 {
		return fmt.Errorf("%w: decoder.stream cannot be combined with decoder.shards > 1", core.ErrConfigInvalid)
	}

	// ── Metrics ──
	if cfg.Metrics.Enabled {
		if cfg.Metrics.Listen == "" {
			return fmt.Errorf("%w: metrics.listen is required when metrics.enabled=true", core.ErrConfigInvalid)
		}
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			return fmt.Errorf("%w: metrics.path must start with '/': %q", core.ErrConfigInvalid, cfg.Metrics.Path)
		}
	}

	// ── Serial ──
	if cfg.Serial.Baud <= 0 {
		return fmt.Errorf("%w: serial.baud must be positive", core.ErrConfigInvalid)
	}
	if cfg.Serial.ReadTimeout < 0 {
		return fmt.Errorf("%w: serial.read_timeout must not be negative", core.ErrConfigInvalid)
	}

	return nil
}

