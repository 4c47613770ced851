package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/deanwagman/peregrine/internal/db"
)

// EnvPrefix is prepended to every environment override, e.g.
// PEREGRINE_DATABASE_DRIVER.
const EnvPrefix = "PEREGRINE"

// Config is the resolved runtime configuration.
type Config struct {
	Database db.Config
	Log      LogConfig
	Audit    AuditConfig
	// Source is the config file that was read, empty when none was found.
	Source string
}

// LogConfig controls logger construction.
type LogConfig struct {
	Level string
}

// AuditConfig controls the command audit log.
type AuditConfig struct {
	Enabled bool
}

// Load resolves configuration from defaults, an optional YAML file and
// environment variables, in increasing order of precedence. An explicit path
// must exist; otherwise peregrine.yaml is looked up in the working directory.
func Load(path string) (Config, error) {
	defaults := db.DefaultConfig()

	v := viper.New()
	v.SetDefault("database.driver", string(defaults.Driver))
	v.SetDefault("database.path", defaults.Path)
	v.SetDefault("database.host", defaults.Host)
	v.SetDefault("database.port", defaults.Port)
	v.SetDefault("database.user", defaults.User)
	v.SetDefault("database.password", defaults.Password)
	v.SetDefault("database.dbname", defaults.DBName)
	v.SetDefault("database.sslmode", defaults.SSLMode)
	v.SetDefault("database.connect_timeout", defaults.ConnectTimeout)
	v.SetDefault("log.level", "info")
	v.SetDefault("audit.enabled", true)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("peregrine")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	source := ""
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		source = v.ConfigFileUsed()
	}

	driver, err := db.ParseDriver(v.GetString("database.driver"))
	if err != nil {
		return Config{}, err
	}

	return Config{
		Database: db.Config{
			Driver:         driver,
			Path:           v.GetString("database.path"),
			Host:           v.GetString("database.host"),
			Port:           v.GetInt("database.port"),
			User:           v.GetString("database.user"),
			Password:       v.GetString("database.password"),
			DBName:         v.GetString("database.dbname"),
			SSLMode:        v.GetString("database.sslmode"),
			ConnectTimeout: v.GetDuration("database.connect_timeout"),
		},
		Log:    LogConfig{Level: v.GetString("log.level")},
		Audit:  AuditConfig{Enabled: v.GetBool("audit.enabled")},
		Source: source,
	}, nil
}
