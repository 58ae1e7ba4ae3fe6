// Package config loads harness settings from defaults, an optional YAML or JSON
// file and HARNESS_* environment variables, in that order of precedence.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/harness/internal/logging"
	"github.com/aretw0/harness/pkg/adapters/process"
	"github.com/aretw0/harness/pkg/domain"
)

// Environment variables read by ApplyEnv.
const (
	EnvEngine        = "HARNESS_ENGINE"
	EnvFailurePolicy = "HARNESS_FAILURE_POLICY"
	EnvOrdering      = "HARNESS_ORDERING"
	EnvRedisAddr     = "HARNESS_REDIS_ADDR"
	EnvLogLevel      = "HARNESS_LOG_LEVEL"
	EnvCacheBackend  = "HARNESS_CACHE"
	EnvHTTPPort      = "HARNESS_PORT"
)

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// EngineProcess names the external program engine configured under "process".
const EngineProcess = "process"

// DefaultFiles are probed, in order, when no config path is given.
var DefaultFiles = []string{"harness.yaml", "harness.yml", "harness.json"}

// Config is the full set of harness settings.
type Config struct {
	Engine        string         `mapstructure:"engine" json:"engine"`
	FailurePolicy string         `mapstructure:"failure_policy" json:"failure_policy"`
	Ordering      string         `mapstructure:"ordering" json:"ordering"`
	LogLevel      string         `mapstructure:"log_level" json:"log_level"`
	HTTP          HTTPConfig     `mapstructure:"http" json:"http"`
	Cache         CacheConfig    `mapstructure:"cache" json:"cache"`
	Redis         RedisConfig    `mapstructure:"redis" json:"redis"`
	Process       process.Config `mapstructure:"process" json:"process"`
}

type HTTPConfig struct {
	Port         int   `mapstructure:"port" json:"port"`
	MaxBodyBytes int64 `mapstructure:"max_body_bytes" json:"max_body_bytes"`
}

type CacheConfig struct {
	Backend string        `mapstructure:"backend" json:"backend"`
	TTL     time.Duration `mapstructure:"ttl" json:"ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" json:"addr"`
	Password string `mapstructure:"password" json:"-"`
	DB       int    `mapstructure:"db" json:"db"`
	Prefix   string `mapstructure:"prefix" json:"prefix"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Engine:        "eval",
		FailurePolicy: string(domain.FailureMarker),
		Ordering:      string(domain.OrderLastSubmitted),
		LogLevel:      "info",
		HTTP: HTTPConfig{
			Port:         8080,
			MaxBodyBytes: 1 << 20,
		},
		Cache: CacheConfig{
			Backend: CacheNone,
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "harness:result:",
		},
	}
}

// Load builds the configuration.
// An empty path probes DefaultFiles in the working directory; a missing default
// file is not an error, a missing explicit path is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		for _, name := range DefaultFiles {
			if _, err := os.Stat(name); err == nil {
				path = name
				break
			}
		}
	}

	if path != "" {
		if err := cfg.MergeFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// MergeFile overlays the keys present in a YAML or JSON file.
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	raw := map[string]any{}
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	} else {
		// Default to YAML
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}
	return c.Merge(raw)
}

// Merge overlays a generic map onto c. Unknown keys are errors.
func (c *Config) Merge(raw map[string]any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           c,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ApplyEnv overlays HARNESS_* variables found through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvEngine); ok && v != "" {
		c.Engine = v
	}
	if v, ok := lookup(EnvFailurePolicy); ok && v != "" {
		c.FailurePolicy = v
	}
	if v, ok := lookup(EnvOrdering); ok && v != "" {
		c.Ordering = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvCacheBackend); ok && v != "" {
		c.Cache.Backend = v
	}
	if v, ok := lookup(EnvRedisAddr); ok && v != "" {
		c.Redis.Addr = v
		// pointing at a server implies using it
		if c.Cache.Backend == CacheNone {
			c.Cache.Backend = CacheRedis
		}
	}
	if v, ok := lookup(EnvHTTPPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvHTTPPort, err)
		}
		c.HTTP.Port = port
	}
	return nil
}

// Validate checks every field and reports all problems at once.
func (c Config) Validate() error {
	var errs []error
	if c.Engine == "" {
		errs = append(errs, errors.New("engine is required"))
	}
	if _, err := domain.ParseFailurePolicy(c.FailurePolicy); err != nil {
		errs = append(errs, err)
	}
	if _, err := domain.ParseOrdering(c.Ordering); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port out of range: %d", c.HTTP.Port))
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("http.max_body_bytes must be positive"))
	}
	switch c.Cache.Backend {
	case CacheNone, CacheMemory:
	case CacheRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr is required for the redis cache"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q", c.Cache.Backend))
	}
	if c.Engine == EngineProcess || c.Process.Enabled() {
		if err := c.Process.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, errors.New("cache.ttl must not be negative"))
	}
	return errors.Join(errs...)
}

// Policy returns the parsed failure policy. Call after Validate.
func (c Config) Policy() domain.FailurePolicy {
	p, _ := domain.ParseFailurePolicy(c.FailurePolicy)
	return p
}

// Order returns the parsed ordering. Call after Validate.
func (c Config) Order() domain.Ordering {
	o, _ := domain.ParseOrdering(c.Ordering)
	return o
}
