// Package config loads the service configuration.
//
// Values come from a YAML file and are then overridden by environment
// variables. Each datasource has its own namespace in both: the YAML keys
// datasources.first / datasources.second and the env prefixes FIRST_DB_ /
// SECOND_DB_. Passwords are usually supplied through the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"go.yaml.in/yaml/v3"

	"github.com/koustreak/multidatasource/internal/database"
	"github.com/koustreak/multidatasource/internal/datasource"
	"github.com/koustreak/multidatasource/internal/errs"
	"github.com/koustreak/multidatasource/internal/logger"
)

// Config is the full service configuration.
type Config struct {
	Datasources DatasourcesConfig `yaml:"datasources"`
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
}

// DatasourcesConfig holds the two datasource namespaces.
type DatasourcesConfig struct {
	// Default names the default datasource: "first" or "second".
	Default string           `yaml:"default" env:"DEFAULT_DATASOURCE" env-default:"first"`
	First   DatasourceConfig `yaml:"first" env-prefix:"FIRST_DB_"`
	Second  DatasourceConfig `yaml:"second" env-prefix:"SECOND_DB_"`
}

// DatasourceConfig configures one connection pool.
type DatasourceConfig struct {
	Driver string `yaml:"driver" env:"DRIVER"`

	// DSN wins over the discrete connection fields when set.
	DSN string `yaml:"dsn" env:"DSN"`

	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	Database string `yaml:"database" env:"DATABASE"`
	SSLMode  string `yaml:"ssl_mode" env:"SSL_MODE"`

	MaxConns        int32         `yaml:"max_conns" env:"MAX_CONNS"`
	MinConns        int32         `yaml:"min_conns" env:"MIN_CONNS"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env:"MAX_CONN_LIFETIME"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"MAX_CONN_IDLE_TIME"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" env:"CONNECT_TIMEOUT"`
	QueryTimeout    time.Duration `yaml:"query_timeout" env:"QUERY_TIMEOUT"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"SERVER_ADDR" env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"15s"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// Load reads path (skipped when empty), applies environment overrides and
// validates the result. Every failure is a configuration error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errs.Configuration(fmt.Sprintf("cannot read %s", path), err)
		}
		if err := decodeYAML(raw, cfg); err != nil {
			return nil, errs.Configuration(fmt.Sprintf("cannot parse %s", path), err)
		}
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, errs.Configuration("cannot apply environment overrides", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeYAML rejects unknown keys so a misspelled namespace fails loudly
// instead of silently leaving a datasource unconfigured.
func decodeYAML(raw []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks both namespaces and the default designation.
func (c *Config) Validate() error {
	if c.Datasources.Default != datasource.First && c.Datasources.Default != datasource.Second {
		return errs.Newf(errs.ErrKindConfiguration,
			"datasources.default must be %q or %q, got %q", datasource.First, datasource.Second, c.Datasources.Default)
	}

	for _, ns := range []struct {
		name string
		ds   DatasourceConfig
	}{
		{datasource.First, c.Datasources.First},
		{datasource.Second, c.Datasources.Second},
	} {
		name, ds := ns.name, ns.ds
		if ds.empty() {
			return errs.Newf(errs.ErrKindConfiguration, "datasources.%s is not configured", name)
		}
		if err := ds.PoolConfig().Validate(); err != nil {
			return errs.Configuration(fmt.Sprintf("datasources.%s", name), err)
		}
	}

	if c.Server.Addr == "" {
		return errs.New(errs.ErrKindConfiguration, "server.addr is required")
	}
	return nil
}

func (d DatasourceConfig) empty() bool {
	return d.Driver == "" && d.DSN == "" && d.Host == ""
}

// PoolConfig converts the namespace into a pool configuration.
func (d DatasourceConfig) PoolConfig() *database.Config {
	return &database.Config{
		Driver:          database.Driver(d.Driver),
		DSN:             d.DSN,
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		Database:        d.Database,
		SSLMode:         d.SSLMode,
		MaxConns:        d.MaxConns,
		MinConns:        d.MinConns,
		MaxConnLifetime: d.MaxConnLifetime,
		MaxConnIdleTime: d.MaxConnIdleTime,
		ConnectTimeout:  d.ConnectTimeout,
		QueryTimeout:    d.QueryTimeout,
	}
}

// Settings returns the registry settings for both datasources.
func (c *Config) Settings() datasource.Settings {
	return datasource.Settings{
		First:   c.Datasources.First.PoolConfig(),
		Second:  c.Datasources.Second.PoolConfig(),
		Default: c.Datasources.Default,
	}
}

// Logger returns the logger configuration.
func (c *Config) Logger() *logger.Config {
	lc := logger.DefaultConfig()
	lc.Level = c.Log.Level
	lc.Format = c.Log.Format
	return lc
}
