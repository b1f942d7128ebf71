package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "PLUGIN_UPDATER"

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"   validate:"required,oneof=postgres sqlite"`
	Host     string `mapstructure:"host"     validate:"required_if=Driver postgres"`
	Port     int    `mapstructure:"port"     validate:"omitempty,min=1,max=65535"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database" validate:"required_if=Driver postgres"`
	SSLMode  string `mapstructure:"sslmode"`
	// Path is the sqlite database file.
	Path string `mapstructure:"path" validate:"required_if=Driver sqlite"`
}

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	KeyID     string `mapstructure:"key_id"`
	AccessKey string `mapstructure:"access_key"`
	Timeout   string `mapstructure:"timeout"`
}

type PersistenceConfig struct {
	Type       string   `mapstructure:"type"        validate:"required,oneof=filesystem memory s3"`
	StorageDir string   `mapstructure:"storage_dir" validate:"required_if=Type filesystem"`
	S3         S3Config `mapstructure:"s3"`
}

type AppConfig struct {
	DeveloperMode       bool   `mapstructure:"developer_mode"`
	LogLevel            string `mapstructure:"log_level"             validate:"required,oneof=trace debug info warn error"`
	HumanReadableOutput bool   `mapstructure:"human_readable_output"`

	// MetricsFile receives Prometheus metrics after each run when set.
	MetricsFile string `mapstructure:"metrics_file"`

	RootDir    string   `mapstructure:"root_dir"    validate:"required"`
	StagingDir string   `mapstructure:"staging_dir" validate:"required"`
	ScanDirs   []string `mapstructure:"scan_dirs"   validate:"required,min=1,dive,required"`

	Database    DatabaseConfig    `mapstructure:"database"`
	Persistence PersistenceConfig `mapstructure:"persistence"`

	Dependencies []DependencyConfig `mapstructure:"dependencies" validate:"dive"`
}

// DependencyConfig declares the files a plugin requires. It is a list entry
// rather than a map key because filenames contain dots.
type DependencyConfig struct {
	Plugin   string   `mapstructure:"plugin"   validate:"required"`
	Requires []string `mapstructure:"requires" validate:"dive,required"`
}

// DependencyMap returns the declared requirements keyed by plugin filename.
func (c *AppConfig) DependencyMap() map[string][]string {
	deps := make(map[string][]string, len(c.Dependencies))
	for _, d := range c.Dependencies {
		deps[d.Plugin] = append(deps[d.Plugin], d.Requires...)
	}

	return deps
}

// DefaultValue is registered with viper before anything else is read. Every
// key needs a default for its environment variable to be picked up.
type DefaultValue struct {
	Key   string
	Value any
}

var Defaults = []DefaultValue{
	{Key: "developer_mode", Value: false},
	{Key: "log_level", Value: "info"},
	{Key: "human_readable_output", Value: true},
	{Key: "metrics_file", Value: ""},
	{Key: "root_dir", Value: "."},
	{Key: "staging_dir", Value: "update"},
	{Key: "scan_dirs", Value: []string{"plugins", "jars", "macros", "scripts"}},

	{Key: "database.driver", Value: "sqlite"},
	{Key: "database.path", Value: "plugins.db"},
	{Key: "database.host", Value: ""},
	{Key: "database.port", Value: 5432},
	{Key: "database.username", Value: ""},
	{Key: "database.password", Value: ""},
	{Key: "database.database", Value: ""},
	{Key: "database.sslmode", Value: "disable"},

	{Key: "persistence.type", Value: "filesystem"},
	{Key: "persistence.storage_dir", Value: "site"},
	{Key: "persistence.s3.endpoint", Value: ""},
	{Key: "persistence.s3.region", Value: ""},
	{Key: "persistence.s3.bucket", Value: ""},
	{Key: "persistence.s3.prefix", Value: ""},
	{Key: "persistence.s3.key_id", Value: ""},
	{Key: "persistence.s3.access_key", Value: ""},
	{Key: "persistence.s3.timeout", Value: "30s"},
}

var Cfg = &AppConfig{}

// Load populates cfg from defaults, an optional config file, environment
// variables (PLUGIN_UPDATER_DATABASE_HOST for database.host) and flags, in
// increasing order of precedence, and validates the result. Flag names use
// dashes where keys use underscores.
func Load(
	cfg *AppConfig,
	configFile string,
	flags *pflag.FlagSet,
	defaults ...DefaultValue,
) error {
	v := viper.New()
	for _, d := range defaults {
		v.SetDefault(d.Key, d.Value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("plugin-updater")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(home + "/plugin-updater")
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		log.Debug().Msg("no config file found, using defaults and environment")
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(flag *pflag.Flag) {
			key := strings.ReplaceAll(flag.Name, "-", "_")
			if err := v.BindPFlag(key, flag); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return fmt.Errorf("failed to bind flags: %w", bindErr)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

// SetupLogging configures the global zerolog logger.
func SetupLogging(cfg *AppConfig) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.HumanReadableOutput {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
