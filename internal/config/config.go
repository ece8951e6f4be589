// Package config holds the geomap configuration: logging, server settings
// and the list of maps to render.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g. GEOMAP_LOG_LEVEL
const EnvPrefix = "GEOMAP"

// Config is the application configuration
type Config struct {
	LogLevel  string       `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string       `mapstructure:"log_format" yaml:"log_format"` // console or json
	Parallel  int          `mapstructure:"parallel" yaml:"parallel"`     // Maps rendered concurrently
	Server    ServerConfig `mapstructure:"server" yaml:"server"`
	Maps      []MapSpec    `mapstructure:"maps" yaml:"maps"`
}

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	Port       string        `mapstructure:"port" yaml:"port"`
	OutputDir  string        `mapstructure:"output_dir" yaml:"output_dir"` // Where rendered pages are stored
	DataDir    string        `mapstructure:"data_dir" yaml:"data_dir"`     // Request data paths must stay inside it
	DBPath     string        `mapstructure:"db_path" yaml:"db_path"`       // Run history
	JWTSecret  string        `mapstructure:"jwt_secret" yaml:"jwt_secret"` // Auth is disabled when empty
	RateLimit  int           `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per window per IP
	RateWindow time.Duration `mapstructure:"rate_window" yaml:"rate_window"`
}

// NewViper returns a viper instance with defaults and environment overrides set
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// SetDefaults registers default values
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("parallel", 2)
	v.SetDefault("server.port", "")
	v.SetDefault("server.output_dir", "./output")
	v.SetDefault("server.data_dir", "./data")
	v.SetDefault("server.db_path", "")
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.rate_limit", 60)
	v.SetDefault("server.rate_window", time.Minute)
}

// Load decodes the configuration held by v and validates it
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.applyEnvFallbacks()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvFallbacks honors the plain PORT, JWT_SECRET and DB_PATH variables used by
// container platforms when no geomap-specific value is set
func (c *Config) applyEnvFallbacks() {
	if c.Server.Port == "" {
		c.Server.Port = os.Getenv("PORT")
	}
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
	if !strings.Contains(c.Server.Port, ":") {
		c.Server.Port = ":" + c.Server.Port
	}
	if c.Server.JWTSecret == "" {
		c.Server.JWTSecret = os.Getenv("JWT_SECRET")
	}
	if c.Server.DBPath == "" {
		c.Server.DBPath = os.Getenv("DB_PATH")
	}
	if c.Server.DBPath == "" {
		c.Server.DBPath = filepath.Join(c.Server.OutputDir, "geomap.db")
	}
}

// Validate normalizes defaults and checks every map spec
func (c *Config) Validate() error {
	if c.Parallel < 1 {
		c.Parallel = 1
	}
	if c.Server.RateLimit <= 0 {
		c.Server.RateLimit = 60
	}
	if c.Server.RateWindow <= 0 {
		c.Server.RateWindow = time.Minute
	}

	names := make(map[string]bool, len(c.Maps))
	outputs := make(map[string]string, len(c.Maps))
	for i := range c.Maps {
		m := &c.Maps[i]
		if err := m.Validate(); err != nil {
			return fmt.Errorf("maps[%d]: %w", i, err)
		}
		if names[m.Name] {
			return fmt.Errorf("maps[%d]: duplicate map name %q", i, m.Name)
		}
		names[m.Name] = true

		out := filepath.Clean(m.Output)
		if other, ok := outputs[out]; ok {
			return fmt.Errorf("maps[%d]: output %s already used by map %q", i, m.Output, other)
		}
		outputs[out] = m.Name
	}
	return nil
}

// Select returns the maps whose names are listed, in config order.
// An empty list selects every map.
func (c *Config) Select(names []string) ([]MapSpec, error) {
	if len(names) == 0 {
		return c.Maps, nil
	}

	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}

	var out []MapSpec
	for _, m := range c.Maps {
		if want[m.Name] {
			out = append(out, m)
			delete(want, m.Name)
		}
	}
	for n := range want {
		return nil, fmt.Errorf("no map named %q in config", n)
	}
	return out, nil
}

// Dump renders the effective configuration as YAML. The JWT secret is masked.
func (c *Config) Dump() ([]byte, error) {
	masked := *c
	if masked.Server.JWTSecret != "" {
		masked.Server.JWTSecret = "********"
	}
	data, err := yaml.Marshal(&masked)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return data, nil
}
