package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/ipmeta/ipmeta/errors"
)

// Load reads the configuration from ipmeta.toml (searched in the working
// directory and ~/.config/ipmeta) merged with IPMETA_* environment
// variables. A missing config file is not an error; Validate decides later
// whether the assembled configuration is usable.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("ipmeta")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/ipmeta")

	v.SetEnvPrefix("IPMETA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	return unmarshal(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &config, nil
}

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	// Fetcher defaults
	v.SetDefault("fetch.output_dir", "dumps")
	v.SetDefault("fetch.pdb_api", "https://www.peeringdb.com/api")
	v.SetDefault("fetch.workers", 4)              // concurrent neighbor queries per looking glass
	v.SetDefault("fetch.requests_per_minute", 30) // PeeringDB's anonymous budget is tight
	v.SetDefault("fetch.timeout_seconds", 60)
}
