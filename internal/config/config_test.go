package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"firestige.xyz/cobslog/internal/core"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "cobslog.yml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return configPath
}

func TestLoadValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
cobslog:
  log:
    level: "debug"
    appenders:
      - type: file
        options:
          filename: /tmp/cobslog.log
          max_size: 10
  decoder:
    record_size: 64
    metadata_len: 8
    lenient: true
    shards: 4
  layout:
    path: "layouts/flimnap.yaml"
  metrics:
    enabled: true
    listen: "127.0.0.1:9100"
    path: "/metrics"
  serial:
    port: "/dev/ttyACM0"
    baud: 921600
    read_timeout: "250ms"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", cfg.Log.Level)
	}
	if len(cfg.Log.Appenders) != 1 || cfg.Log.Appenders[0].Type != "file" {
		t.Fatalf("Expected one file appender, got %+v", cfg.Log.Appenders)
	}
	if cfg.Log.Appenders[0].Options["filename"] != "/tmp/cobslog.log" {
		t.Errorf("Expected appender filename, got %v", cfg.Log.Appenders[0].Options)
	}
	if cfg.Decoder.RecordSize != 64 || cfg.Decoder.MetadataLen != 8 {
		t.Errorf("Unexpected decoder sizes: %+v", cfg.Decoder)
	}
	if !cfg.Decoder.Lenient || cfg.Decoder.Shards != 4 {
		t.Errorf("Unexpected decoder mode: %+v", cfg.Decoder)
	}
	if cfg.Layout.Path != "layouts/flimnap.yaml" {
		t.Errorf("Expected layout path, got %s", cfg.Layout.Path)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Listen != "127.0.0.1:9100" {
		t.Errorf("Unexpected metrics config: %+v", cfg.Metrics)
	}
	if cfg.Serial.Port != "/dev/ttyACM0" || cfg.Serial.Baud != 921600 {
		t.Errorf("Unexpected serial config: %+v", cfg.Serial)
	}
	if cfg.Serial.ReadTimeout != 250*time.Millisecond {
		t.Errorf("Expected read timeout 250ms, got %v", cfg.Serial.ReadTimeout)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "cobslog: {}\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Expected default log level info, got %s", cfg.Log.Level)
	}
	if len(cfg.Log.Appenders) != 1 || cfg.Log.Appenders[0].Type != "console" {
		t.Errorf("Expected default console appender, got %+v", cfg.Log.Appenders)
	}
	if cfg.Decoder.MetadataLen != core.DefaultMetadataLen {
		t.Errorf("Expected default metadata_len %d, got %d", core.DefaultMetadataLen, cfg.Decoder.MetadataLen)
	}
	if cfg.Decoder.Shards != 1 {
		t.Errorf("Expected default shards 1, got %d", cfg.Decoder.Shards)
	}
	if cfg.Decoder.LogLimit != 100 || cfg.Decoder.LogWindow != 10*time.Second {
		t.Errorf("Unexpected log limit defaults: %d per %v", cfg.Decoder.LogLimit, cfg.Decoder.LogWindow)
	}
	if cfg.Metrics.Enabled {
		t.Error("Expected metrics disabled by default")
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Expected default metrics path /metrics, got %s", cfg.Metrics.Path)
	}
	if cfg.Serial.Baud != 115200 || cfg.Serial.ReadTimeout != 500*time.Millisecond {
		t.Errorf("Unexpected serial defaults: %+v", cfg.Serial)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load defaults: %v", err)
	}
	if cfg.Decoder.MetadataLen != core.DefaultMetadataLen {
		t.Errorf("Expected default metadata_len, got %d", cfg.Decoder.MetadataLen)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	if err == nil {
		t.Error("Expected error for missing config file, got nil")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	configPath := writeConfig(t, `
cobslog:
  log:
    level: "info"
`)
	t.Setenv("COBSLOG_LOG_LEVEL", "debug")
	t.Setenv("COBSLOG_DECODER_LENIENT", "true")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Expected log level debug from env var, got %s", cfg.Log.Level)
	}
	if !cfg.Decoder.Lenient {
		t.Error("Expected decoder.lenient from env var")
	}
}

func TestLoadShardsAuto(t *testing.T) {
	cfg, err := Load(writeConfig(t, "cobslog:\n  decoder:\n    shards: 0\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Decoder.Shards != runtime.GOMAXPROCS(0) {
		t.Errorf("Expected shards %d, got %d", runtime.GOMAXPROCS(0), cfg.Decoder.Shards)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"log level", "cobslog:\n  log:\n    level: loud\n"},
		{"record size", "cobslog:\n  decoder:\n    record_size: -1\n"},
		{"metadata len", "cobslog:\n  decoder:\n    metadata_len: -7\n"},
		{"shards", "cobslog:\n  decoder:\n    shards: -2\n"},
		{"log limit", "cobslog:\n  decoder:\n    log_limit: -1\n"},
		{"stream with shards", "cobslog:\n  decoder:\n    stream: true\n    shards: 4\n"},
		{"metrics listen", "cobslog:\n  metrics:\n    enabled: true\n    listen: \"\"\n"},
		{"metrics path", "cobslog:\n  metrics:\n    enabled: true\n    path: metrics\n"},
		{"baud", "cobslog:\n  serial:\n    baud: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !errors.Is(err, core.ErrConfigInvalid) {
				t.Errorf("Expected ErrConfigInvalid, got %v", err)
			}
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Log.Level != "info" || cfg.Decoder.Shards != 1 {
		t.Errorf("Unexpected default config: %+v", cfg)
	}
}
