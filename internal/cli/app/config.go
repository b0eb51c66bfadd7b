package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aussiebroadwan/sharebox/pkg/apiclient"
	"github.com/aussiebroadwan/sharebox/pkg/credstore"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Store drivers.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Config is the CLI configuration. Sources, lowest precedence first: defaults,
// the YAML config file, SHAREBOX_* environment variables, global flags.
type Config struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Profile string        `mapstructure:"profile" yaml:"profile"`

	Store           string `mapstructure:"store" yaml:"store"`                       // file, sqlite or memory
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file"` // file driver
	Database        string `mapstructure:"database" yaml:"database"`                 // sqlite driver
	Passphrase      string `mapstructure:"passphrase" yaml:"passphrase,omitempty"`   // seals the file driver

	CoalesceRefresh   bool    `mapstructure:"coalesce_refresh" yaml:"coalesce_refresh"`
	RateLimit         int     `mapstructure:"rate_limit" yaml:"rate_limit"` // requests per second, 0 disables
	UploadParallelism int     `mapstructure:"upload_parallelism" yaml:"upload_parallelism"`
	LogLevel          string  `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string  `mapstructure:"log_format" yaml:"log_format"`
	JSON              bool    `mapstructure:"json" yaml:"json"`

	ConfigFileUsed string `mapstructure:"-" yaml:"-"`
}

// DefaultConfigDir is where the config file, credentials and database live
// unless configured otherwise.
func DefaultConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "sharebox")
	}
	return ".sharebox"
}

// GlobalFlags registers the flags that override configuration.
func GlobalFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (default "+filepath.Join(DefaultConfigDir(), "config.yaml")+")")
	fs.String("base-url", "", "backend base URL")
	fs.String("profile", "", "credential profile (sqlite store)")
	fs.String("store", "", "credential store: file, sqlite or memory")
	fs.Duration("timeout", 0, "per-request timeout")
	fs.String("log-level", "", "log level: debug, info, warn, error")
	fs.Bool("json", false, "print JSON instead of tables")
}

// LoadConfig resolves the configuration with v, overlaying the global flags
// that were set on fs.
func LoadConfig(v *viper.Viper, fs *pflag.FlagSet) (Config, error) {
	dir := DefaultConfigDir()

	v.SetDefault("base_url", apiclient.DefaultBaseURL)
	v.SetDefault("timeout", apiclient.DefaultTimeout)
	v.SetDefault("profile", credstore.DefaultProfile)
	v.SetDefault("store", StoreFile)
	v.SetDefault("credentials_file", filepath.Join(dir, "credentials.yaml"))
	v.SetDefault("database", filepath.Join(dir, "sharebox.db"))
	v.SetDefault("passphrase", "")
	v.SetDefault("coalesce_refresh", true)
	v.SetDefault("rate_limit", 0)
	v.SetDefault("upload_parallelism", apiclient.DefaultUploadParallelism)
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "text")
	v.SetDefault("json", false)

	v.SetEnvPrefix("SHAREBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for key, flag := range map[string]string{
			"base_url":  "base-url",
			"profile":   "profile",
			"store":     "store",
			"timeout":   "timeout",
			"log_level": "log-level",
			"json":      "json",
		} {
			if f := fs.Lookup(flag); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, err
				}
			}
		}
	}

	explicit := ""
	if fs != nil {
		explicit, _ = fs.GetString("config")
	}
	if explicit == "" {
		explicit = os.Getenv("SHAREBOX_CONFIG")
	}
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.ConfigFileUsed = v.ConfigFileUsed()

	return cfg, cfg.Validate()
}

// Validate rejects settings the CLI cannot act on.
func (c Config) Validate() error {
	switch c.Store {
	case StoreFile, StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("unknown store %q (want file, sqlite or memory)", c.Store)
	}
	if c.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	if c.UploadParallelism < 1 {
		return errors.New("upload_parallelism must be at least 1")
	}
	return nil
}

// Redacted returns c with secrets masked, for display.
func (c Config) Redacted() Config {
	if c.Passphrase != "" {
		c.Passphrase = "********"
	}
	return c
}
