package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. POOLSERVER_WORKERS
const EnvPrefix = "POOLSERVER"

// ErrHelp is returned by Load when -h or --help was requested
var ErrHelp = pflag.ErrHelp

// Config holds all application configuration.
// The mapstructure tags are used by Viper to unmarshal the data.
type Config struct {
	Addr            string        `mapstructure:"addr" validate:"required,hostname_port"`
	Workers         int           `mapstructure:"workers" validate:"min=1"`
	ReadBufferSize  int           `mapstructure:"read_buffer_size" validate:"min=1"`
	AdminAddr       string        `mapstructure:"admin_addr" validate:"omitempty,hostname_port"`
	LogLevel        string        `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat       string        `mapstructure:"log_format" validate:"oneof=text json"`
	Tracing         bool          `mapstructure:"tracing"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	GCPercent       int           `mapstructure:"gc_percent"`
	MemoryLimit     int64         `mapstructure:"memory_limit" validate:"min=0"`
}

// Defaults returns the configuration used when nothing is overridden
func Defaults() Config {
	return Config{
		Addr:            "127.0.0.1:7878",
		Workers:         4,
		ReadBufferSize:  8192,
		LogLevel:        "info",
		LogFormat:       "text",
		ShutdownTimeout: 5 * time.Second,
	}
}

// Load reads configuration from flags in args, POOLSERVER_* environment
// variables and an optional config file, in decreasing priority.
func Load(args []string) (*Config, error) {
	return load(args, io.Discard)
}

// LoadWithUsage is Load, printing flag usage to w on parse errors and --help
func LoadWithUsage(args []string, w io.Writer) (*Config, error) {
	return load(args, w)
}

func load(args []string, usage io.Writer) (*Config, error) {
	d := Defaults()
	v := viper.New()

	fs := pflag.NewFlagSet("pooled-server", pflag.ContinueOnError)
	fs.SetOutput(usage)
	configFile := fs.String("config", "", "config file (yaml, json or toml)")
	fs.String("addr", d.Addr, "request listener address")
	fs.Int("workers", d.Workers, "number of pool workers")
	fs.Int("read-buffer-size", d.ReadBufferSize, "read buffer size in bytes; longer requests are truncated")
	fs.String("admin-addr", d.AdminAddr, "admin (metrics/stats) listener address, empty to disable")
	fs.String("log-level", d.LogLevel, "log level (debug, info, warn, error)")
	fs.String("log-format", d.LogFormat, "log format (text, json)")
	fs.Bool("tracing", d.Tracing, "write OpenTelemetry spans to stderr")
	fs.Duration("shutdown-timeout", d.ShutdownTimeout, "time allowed for queued connections to drain")
	fs.Int("gc-percent", d.GCPercent, "GC target percentage, 0 keeps GOGC")
	fs.Int64("memory-limit", d.MemoryLimit, "soft memory limit in bytes, 0 keeps GOMEMLIMIT")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Flag names use dashes, config keys use underscores
	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" {
			return
		}
		if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil && bindErr == nil {
			bindErr = err
		}
	})
	if bindErr != nil {
		return nil, bindErr
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if *configFile != "" {
		v.SetConfigFile(*configFile)
	} else {
		v.SetConfigName("pooled-server")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if *configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// No config file: flags, env and defaults are enough
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field against its rules
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (got %v)", fe.Field(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
