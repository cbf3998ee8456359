package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// DefaultEnv is used when CCENV is not set, matching the behaviour of
// the rest of the ClientComm tooling.
const DefaultEnv = "development"

type Config struct {
	Env      string
	Database DatabaseConfig `mapstructure:"database"`
	Importer ImporterConfig `mapstructure:"importer"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host" envconfig:"HOST"`
	Port     int    `mapstructure:"port" envconfig:"PORT"`
	User     string `mapstructure:"user" envconfig:"USER"`
	Password string `mapstructure:"password" envconfig:"PASSWORD"`
	Name     string `mapstructure:"name" envconfig:"NAME"`
	SSLMode  string `mapstructure:"sslmode" envconfig:"SSLMODE"`
}

type ImporterConfig struct {
	// WindowDays bounds how far ahead an appointment may be for a
	// reminder to be created.
	WindowDays int `mapstructure:"window_days"`
	// LeadDays is subtracted from the appointment date to compute the
	// notification send date.
	LeadDays int `mapstructure:"lead_days"`
	// MaxInFlight caps concurrently outstanding store operations
	// during the per-candidate commit phase.
	MaxInFlight int `mapstructure:"max_in_flight"`
}

// LoadConfig reads config.yaml and returns the profile selected by the
// CCENV environment variable (testing, development or production).
// A .env file, if present, is loaded first so database credentials can
// be kept out of the YAML; CC_DB_* variables override the profile.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	env := os.Getenv("CCENV")
	if env == "" {
		env = DefaultEnv
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if !viper.IsSet(env) {
		return nil, fmt.Errorf("no %q profile in config file", env)
	}

	var config Config
	if err := viper.UnmarshalKey(env, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.Env = env

	if config.Importer.WindowDays == 0 {
		config.Importer.WindowDays = 8
	}
	if config.Importer.LeadDays == 0 {
		config.Importer.LeadDays = 1
	}
	if config.Importer.MaxInFlight == 0 {
		config.Importer.MaxInFlight = 8
	}

	// envconfig only assigns fields whose variables are actually set,
	// so unset CC_DB_* variables leave the profile values intact.
	if err := envconfig.Process("cc_db", &config.Database); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	return &config, nil
}
