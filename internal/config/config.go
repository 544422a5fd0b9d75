// Package config loads msgstats settings from flags, the environment and an
// optional dotenv file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jasperwreed/msgstats/internal/analytics"
	"github.com/jasperwreed/msgstats/internal/errs"
)

const (
	EnvOwner            = "OWNER_NAME"
	EnvMessageDirectory = "MESSAGE_DIRECTORY"
	EnvPrefix           = "MSGSTATS"

	DefaultEnvFile  = ".env"
	DefaultTimezone = "UTC"
)

type LogConfig struct {
	Level  string `mapstructure:"level"  validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
	File   string `mapstructure:"file"`
}

type Config struct {
	Owner            string  `mapstructure:"owner"`
	MessageDirectory string  `mapstructure:"message_directory" validate:"omitempty,dir"`
	DBPath           string  `mapstructure:"db"`
	FromDB           string  `mapstructure:"from_db"`
	Timezone         string  `mapstructure:"tz"                validate:"required,timezone"`
	HideNames        bool    `mapstructure:"hide_names"`
	NoGroupChats     bool    `mapstructure:"no_group_chats"`
	GhostLimit       float64 `mapstructure:"ghost_limit"       validate:"gte=0"`
	StoreRaw         bool    `mapstructure:"store_raw"`

	Log LogConfig `mapstructure:"log"`
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"owner":          "owner",
	"dir":            "message_directory",
	"db":             "db",
	"from-db":        "from_db",
	"tz":             "tz",
	"hide-names":     "hide_names",
	"no-group-chats": "no_group_chats",
	"ghost-limit":    "ghost_limit",
	"store-raw":      "store_raw",
	"log-level":      "log.level",
	"log-format":     "log.format",
	"log-file":       "log.file",
}

// RegisterFlags adds the global flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("env-file", "", "Dotenv file to load (default .env when present)")
	fs.String("owner", "", "Your own display name in the export ($"+EnvOwner+")")
	fs.String("dir", "", "Root of the extracted export ($"+EnvMessageDirectory+")")
	fs.String("db", "", "Database path (default ~/.msgstats/msgstats.db)")
	fs.String("from-db", "", "Analyze a stored run instead of scanning; 'latest' or a run id")
	fs.String("tz", DefaultTimezone, "Time zone used to derive calendar dates")
	fs.Bool("hide-names", false, "Replace participant names with pseudonyms")
	fs.Bool("no-group-chats", false, "Only keep two-party conversations")
	fs.Float64("ghost-limit", analytics.MinutesInAWeek, "Minutes after which a reply counts as ghosting")
	fs.Bool("store-raw", true, "Keep compressed copies of exports with stored runs")
	fs.String("log-level", "warn", "Log level: debug, info, warn, error")
	fs.String("log-format", "console", "Log format: console or json")
	fs.String("log-file", "", "Also write JSON logs to this rotating file")
}

// Load resolves configuration with flag > environment > default precedence.
func Load(fs *pflag.FlagSet) (*Config, error) {
	if err := loadEnvFile(fs); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("owner", EnvOwner, EnvPrefix+"_OWNER"); err != nil {
		return nil, errs.NewConfigurationError("failed to bind environment", err)
	}
	if err := v.BindEnv("message_directory", EnvMessageDirectory, EnvPrefix+"_MESSAGE_DIRECTORY"); err != nil {
		return nil, errs.NewConfigurationError("failed to bind environment", err)
	}

	for name, key := range flagKeys {
		if flag := fs.Lookup(name); flag != nil {
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, errs.NewConfigurationError("failed to bind flag "+name, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errs.NewConfigurationError("failed to parse configuration", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadEnvFile(fs *pflag.FlagSet) error {
	path, _ := fs.GetString("env-file")
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return errs.NewConfigurationError(fmt.Sprintf("failed to load env file %s", path), err)
		}
		return nil
	}

	if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errs.NewConfigurationError("failed to load "+DefaultEnvFile, err)
	}
	return nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return errs.NewConfigurationError("invalid configuration: "+strings.Join(msgs, "; "), err)
		}
		return errs.NewConfigurationError("invalid configuration", err)
	}
	return nil
}

func (c *Config) IncludeGroupChats() bool {
	return !c.NoGroupChats
}

func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errs.NewConfigurationError(fmt.Sprintf("unknown time zone %q", c.Timezone), err)
	}
	return loc, nil
}

// RequireOwner fails when no owner identity is configured.
func (c *Config) RequireOwner() error {
	if strings.TrimSpace(c.Owner) == "" {
		return errs.NewConfigurationError(
			fmt.Sprintf("owner name is not set; use --owner or $%s", EnvOwner), nil)
	}
	return nil
}

// RequireMessageDir fails when the export root is not configured.
func (c *Config) RequireMessageDir() error {
	if c.MessageDirectory == "" {
		return errs.NewConfigurationError(
			fmt.Sprintf("message directory is not set; use --dir or $%s", EnvMessageDirectory), nil)
	}
	return nil
}
