// Package config loads tcf settings from YAML or TOML files with
// environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Environment overrides.
const (
	EnvJSONRPCURI = "TCF_JSON_RPC_URI"
	EnvLogLevel   = "TCF_LOG_LEVEL"
	EnvLogFormat  = "TCF_LOG_FORMAT"
	EnvStrictIDs  = "TCF_STRICT_IDS"
)

// Capability names accepted in Config.Capabilities.
const CapabilityEncryptionKeySet = "encryption_key_set"

// Config holds client and emulator settings.
type Config struct {
	JSONRPCURI   string        `yaml:"json_rpc_uri" toml:"json_rpc_uri"`
	Timeout      time.Duration `yaml:"timeout" toml:"timeout"`
	PollInterval time.Duration `yaml:"poll_interval" toml:"poll_interval"`
	MaxAttempts  int           `yaml:"max_attempts" toml:"max_attempts"`
	StrictIDs    bool          `yaml:"strict_ids" toml:"strict_ids"`
	Capabilities []string      `yaml:"capabilities" toml:"capabilities"`
	RateLimit    RateLimit     `yaml:"rate_limit" toml:"rate_limit"`
	Log          Log           `yaml:"log" toml:"log"`
	Emulator     Emulator      `yaml:"emulator" toml:"emulator"`
}

// RateLimit caps outbound requests. RPS zero disables it.
type RateLimit struct {
	RPS   float64 `yaml:"rps" toml:"rps"`
	Burst int     `yaml:"burst" toml:"burst"`
}

// Log selects logger level and format.
type Log struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Emulator configures `tcf emulate`.
type Emulator struct {
	Addr         string `yaml:"addr" toml:"addr"`
	DB           string `yaml:"db" toml:"db"`
	PageSize     int    `yaml:"page_size" toml:"page_size"`
	PendingPolls int    `yaml:"pending_polls" toml:"pending_polls"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		JSONRPCURI:   "http://localhost:1947",
		Timeout:      30 * time.Second,
		PollInterval: 2 * time.Second,
		RateLimit:    RateLimit{Burst: 1},
		Log:          Log{Level: "info", Format: "text"},
		Emulator: Emulator{
			Addr:         "localhost:1947",
			DB:           "tcf-emulator.db",
			PageSize:     10,
			PendingPolls: 1,
		},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// An empty path skips the file. The format follows the extension:
// .yaml/.yml or .toml. Unknown keys are errors.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parse yaml config %s: %w", path, err)
		}
	case ".toml":
		meta, err := toml.Decode(string(data), cfg)
		if err != nil {
			return fmt.Errorf("parse toml config %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("parse toml config %s: unknown key %q", path, undecoded[0].String())
		}
	default:
		return fmt.Errorf("config %s: unsupported extension %q (expected .yaml, .yml or .toml)", path, ext)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvJSONRPCURI); ok && strings.TrimSpace(v) != "" {
		cfg.JSONRPCURI = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvLogLevel); ok && strings.TrimSpace(v) != "" {
		cfg.Log.Level = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvLogFormat); ok && strings.TrimSpace(v) != "" {
		cfg.Log.Format = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvStrictIDs); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvStrictIDs, err)
		}
		cfg.StrictIDs = b
	}
	return nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.JSONRPCURI == "" {
		errs = append(errs, errors.New("json_rpc_uri is required"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, errors.New("poll_interval must be positive"))
	}
	if c.MaxAttempts < 0 {
		errs = append(errs, errors.New("max_attempts must not be negative"))
	}
	if c.RateLimit.RPS < 0 {
		errs = append(errs, errors.New("rate_limit.rps must not be negative"))
	}
	if c.Emulator.PageSize <= 0 {
		errs = append(errs, errors.New("emulator.page_size must be positive"))
	}
	if c.Emulator.PendingPolls < 0 {
		errs = append(errs, errors.New("emulator.pending_polls must not be negative"))
	}
	for _, cp := range c.Capabilities {
		if cp != CapabilityEncryptionKeySet {
			errs = append(errs, fmt.Errorf("unknown capability %q", cp))
		}
	}
	return errors.Join(errs...)
}

// HasCapability reports whether name is enabled.
func (c Config) HasCapability(name string) bool {
	for _, cp := range c.Capabilities {
		if cp == name {
			return true
		}
	}
	return false
}
