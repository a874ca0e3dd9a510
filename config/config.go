package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/gkatanacio/mirror-downloader/download"
	"github.com/gkatanacio/mirror-downloader/transport"
)

// DefaultPath is read when no config file is given. It is optional.
const DefaultPath = "mdl.yaml"

type Config struct {
	Download DownloadConfig `mapstructure:"download" yaml:"download"`
	HTTP     HTTPConfig     `mapstructure:"http" yaml:"http"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`

	Progress bool `mapstructure:"progress" yaml:"progress"`
}

type DownloadConfig struct {
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RetryBudget   int           `mapstructure:"retry_budget" yaml:"retry_budget"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
	BufferSize    int           `mapstructure:"buffer_size" yaml:"buffer_size"`
	VerifyWorkers int           `mapstructure:"verify_workers" yaml:"verify_workers"`
}

type HTTPConfig struct {
	UserAgent           string `mapstructure:"user_agent" yaml:"user_agent"`
	InsecureSkipVerify  bool   `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
	MaxIdleConnsPerHost int    `mapstructure:"max_idle_conns_per_host" yaml:"max_idle_conns_per_host"`
}

type LogConfig struct {
	Path          string `mapstructure:"path" yaml:"path"`
	Level         string `mapstructure:"level" yaml:"level"`
	IncludeStdout bool   `mapstructure:"include_stdout" yaml:"include_stdout"`
}

// flagKeys maps command line flags onto config keys.
var flagKeys = map[string]string{
	"timeout":      "download.timeout",
	"retry-budget": "download.retry_budget",
	"retry-delay":  "download.retry_delay",
	"buffer-size":  "download.buffer_size",
	"workers":      "download.verify_workers",
	"insecure":     "http.insecure_skip_verify",
	"log-file":     "log.path",
	"log-level":    "log.level",
	"progress":     "progress",
}

// Load builds the configuration from defaults, the YAML file at path, MDL_*
// environment variables and flags, each overriding the previous. An empty
// path falls back to DefaultPath, which may be missing. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	transportDefaults := transport.DefaultOptions()
	downloadDefaults := download.DefaultOptions()

	// Set Defaults
	v.SetDefault("download.timeout", transportDefaults.Timeout)
	v.SetDefault("download.retry_budget", downloadDefaults.RetryBudget)
	v.SetDefault("download.retry_delay", downloadDefaults.RetryDelay)
	v.SetDefault("download.buffer_size", downloadDefaults.BufferSize)
	v.SetDefault("download.verify_workers", downloadDefaults.VerifyWorkers)
	v.SetDefault("http.user_agent", transportDefaults.UserAgent)
	v.SetDefault("http.insecure_skip_verify", false)
	v.SetDefault("http.max_idle_conns_per_host", transportDefaults.MaxIdleConnsPerHost)
	v.SetDefault("log.path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.include_stdout", true)
	v.SetDefault("progress", true)

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	} else if explicit || !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	// Support Environment Variables
	v.SetEnvPrefix("MDL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Download.Timeout <= 0 {
		return errors.New("download.timeout must be positive")
	}

	if c.Download.RetryBudget <= 0 {
		return errors.New("download.retry_budget must be positive")
	}

	if c.Download.RetryDelay < 0 {
		return errors.New("download.retry_delay cannot be negative")
	}

	if c.Download.BufferSize <= 0 {
		return errors.New("download.buffer_size must be positive")
	}

	if c.Download.VerifyWorkers <= 0 {
		// Default to a sane value
		c.Download.VerifyWorkers = download.DefaultOptions().VerifyWorkers
	}

	if c.HTTP.MaxIdleConnsPerHost <= 0 {
		c.HTTP.MaxIdleConnsPerHost = transport.DefaultOptions().MaxIdleConnsPerHost
	}

	return nil
}

// TransportOptions returns the HTTP transport settings.
func (c *Config) TransportOptions() transport.Options {
	return transport.Options{
		Timeout:             c.Download.Timeout,
		UserAgent:           c.HTTP.UserAgent,
		MaxIdleConnsPerHost: c.HTTP.MaxIdleConnsPerHost,
		InsecureSkipVerify:  c.HTTP.InsecureSkipVerify,
	}
}

// DownloadOptions returns the downloader settings. Progress and Logger are
// left for the caller.
func (c *Config) DownloadOptions() download.Options {
	delay := c.Download.RetryDelay
	if delay == 0 {
		// download.Options reads zero as the default delay
		delay = -1
	}

	return download.Options{
		RetryBudget:   c.Download.RetryBudget,
		RetryDelay:    delay,
		BufferSize:    c.Download.BufferSize,
		VerifyWorkers: c.Download.VerifyWorkers,
	}
}
