// Package config loads threatlens settings from a YAML file, THREATLENS_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/spektr-org/threatlens/logging"
)

// Config is the root of all settings.
type Config struct {
	Data      DataConfig      `mapstructure:"data"`
	Server    ServerConfig    `mapstructure:"server"`
	Logger    logging.Config  `mapstructure:"logger"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
}

// DataConfig locates and loads the incident CSV.
type DataConfig struct {
	Path   string `mapstructure:"path"`
	Strict bool   `mapstructure:"strict"` // fail the load on a type mismatch instead of dropping the row
	Watch  bool   `mapstructure:"watch"`  // evict the cached store when the file changes
}

// ServerConfig describes the HTTP server.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DashboardConfig sizes the capped tables.
type DashboardConfig struct {
	TopN          int `mapstructure:"top_n"`
	IndustryLimit int `mapstructure:"industry_limit"`
}

// EnvPrefix prefixes every environment override, e.g. THREATLENS_DATA_PATH.
const EnvPrefix = "THREATLENS"

// New returns a viper instance with defaults and environment overrides set.
// Callers may bind flags into it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data.path", "data/cybersecurity_threats.csv")
	v.SetDefault("data.strict", false)
	v.SetDefault("data.watch", true)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output", "stderr")
	v.SetDefault("logger.development", false)
	v.SetDefault("dashboard.top_n", 5)
	v.SetDefault("dashboard.industry_limit", 10)
}

// Load reads file (when non-empty) or else an optional threatlens.yaml from
// the working directory or ./configs, then decodes everything into Config.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("threatlens")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Data.Path == "" {
		errs = append(errs, errors.New("data.path is required"))
	}
	if c.Dashboard.TopN <= 0 {
		errs = append(errs, fmt.Errorf("dashboard.top_n must be positive, got %d", c.Dashboard.TopN))
	}
	if c.Dashboard.IndustryLimit <= 0 {
		errs = append(errs, fmt.Errorf("dashboard.industry_limit must be positive, got %d", c.Dashboard.IndustryLimit))
	}
	return errors.Join(errs...)
}
