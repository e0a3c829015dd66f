// Package config loads stream and logging settings with viper.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/exp/slog"

	"github.com/nlimpid/sqlstream/record"
	"github.com/nlimpid/sqlstream/stream"
)

// Config is the on-disk configuration. Keys can be overridden by environment
// variables prefixed with SQLSTREAM_, e.g. SQLSTREAM_TIMEOUTS_CONNECT=5s.
type Config struct {
	Database struct {
		Driver string `mapstructure:"driver"`
		DSN    string `mapstructure:"dsn"`
	} `mapstructure:"database"`

	Timeouts struct {
		Connect time.Duration `mapstructure:"connect"`
		Read    time.Duration `mapstructure:"read"`
		Close   time.Duration `mapstructure:"close"`
	} `mapstructure:"timeouts"`

	Record struct {
		AmbiguousPolicy string `mapstructure:"ambiguous_policy"`
	} `mapstructure:"record"`

	Stream struct {
		ExpectedSize int `mapstructure:"expected_size"`
	} `mapstructure:"stream"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("database.driver", "duckdb")
	v.SetDefault("database.dsn", "")
	v.SetDefault("timeouts.connect", "30s")
	v.SetDefault("timeouts.read", "30s")
	v.SetDefault("timeouts.close", "10s")
	v.SetDefault("record.ambiguous_policy", "first")
	v.SetDefault("stream.expected_size", 0)
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix("sqlstream")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Default returns the built-in configuration with environment overrides applied.
func Default() (*Config, error) {
	return decode(newViper())
}

// Load reads a yaml config file at path.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return decode(v)
}

// Read parses yaml config from r.
func Read(r io.Reader) (*Config, error) {
	v := newViper()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if _, err := cfg.Policy(); err != nil {
		return nil, err
	}
	if _, err := cfg.LogLevel(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Policy returns the default ambiguous column policy.
func (c *Config) Policy() (record.AmbiguousPolicy, error) {
	return record.ParsePolicy(c.Record.AmbiguousPolicy)
}

// RecordOptions returns the cursor options described by c.
func (c *Config) RecordOptions() record.Options {
	p, _ := c.Policy()
	return record.Options{DefaultPolicy: p}
}

// StreamTimeouts returns the stream timeouts described by c.
func (c *Config) StreamTimeouts() stream.Timeouts {
	return stream.Timeouts{
		Connect: c.Timeouts.Connect,
		Read:    c.Timeouts.Read,
		Close:   c.Timeouts.Close,
	}
}

// StreamOptions returns the stream options described by c, logging to l.
func (c *Config) StreamOptions(l *slog.Logger) []stream.Option {
	return []stream.Option{
		stream.WithTimeouts(c.StreamTimeouts()),
		stream.WithRecordOptions(c.RecordOptions()),
		stream.WithExpectedSize(c.Stream.ExpectedSize),
		stream.WithLogger(l),
	}
}

// LogLevel parses the configured log level.
func (c *Config) LogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return lvl, fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	return lvl, nil
}

// Logger builds a text logger writing to w at the configured level. A nil w
// writes to stderr.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl, _ := c.LogLevel()
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
