package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Kommo   KommoConfig   `yaml:"kommo" mapstructure:"kommo"`
	Mapping MappingConfig `yaml:"mapping" mapstructure:"mapping"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// KommoConfig holds the Kommo account and credentials. A long-lived API
// token takes precedence; the OAuth fields are only used when no token is
// set.
type KommoConfig struct {
	Subdomain    string `yaml:"subdomain" mapstructure:"subdomain"`
	Domain       string `yaml:"domain" mapstructure:"domain"`
	APIToken     string `yaml:"api_token" mapstructure:"api_token"`
	ClientID     string `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret string `yaml:"client_secret" mapstructure:"client_secret"`
	RefreshToken string `yaml:"refresh_token" mapstructure:"refresh_token"`
	RedirectURI  string `yaml:"redirect_uri" mapstructure:"redirect_uri"`
}

// MappingConfig holds the translation defaults.
type MappingConfig struct {
	CloseDays int    `yaml:"close_days" mapstructure:"close_days"`
	TimeZone  string `yaml:"time_zone" mapstructure:"time_zone"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml (optional), BRIDGE_* environment
// variables, and the legacy flat names the previous deployment used
// (KOMMO_API_TOKEN, SF_CLOSE_DAYS, PORT, ...).
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Legacy environment names kept for deployment compatibility.
	_ = v.BindEnv("server.port", "BRIDGE_SERVER_PORT", "PORT")
	_ = v.BindEnv("kommo.subdomain", "BRIDGE_KOMMO_SUBDOMAIN", "KOMMO_SUBDOMAIN")
	_ = v.BindEnv("kommo.api_token", "BRIDGE_KOMMO_API_TOKEN", "KOMMO_API_TOKEN")
	_ = v.BindEnv("kommo.client_id", "BRIDGE_KOMMO_CLIENT_ID", "KOMMO_CLIENT_ID")
	_ = v.BindEnv("kommo.client_secret", "BRIDGE_KOMMO_CLIENT_SECRET", "KOMMO_CLIENT_SECRET")
	_ = v.BindEnv("kommo.refresh_token", "BRIDGE_KOMMO_REFRESH_TOKEN", "KOMMO_REFRESH_TOKEN")
	_ = v.BindEnv("kommo.redirect_uri", "BRIDGE_KOMMO_REDIRECT_URI", "KOMMO_REDIRECT_URI")
	_ = v.BindEnv("mapping.close_days", "BRIDGE_MAPPING_CLOSE_DAYS", "SF_CLOSE_DAYS")
	_ = v.BindEnv("mapping.time_zone", "BRIDGE_MAPPING_TIME_ZONE", "SF_TZ")

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("kommo.domain", "kommo.com")
	v.SetDefault("mapping.close_days", 30)
	v.SetDefault("mapping.time_zone", "America/Guayaquil")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger builds the global zap logger from LogConfig.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
