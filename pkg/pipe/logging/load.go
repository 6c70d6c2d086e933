package logging

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads a Config from an optional file and from environment variables
// named <PREFIX>_<KEY>, e.g. PROCPIPE_LEVEL. Environment values win over the
// file, the file over the defaults.
func Load(envPrefix, file string) (Config, error) {
	v := viper.New()

	defaults := Config{}
	defaults.ApplyDefaults()
	v.SetDefault("level", defaults.Level)
	v.SetDefault("format", defaults.Format)
	v.SetDefault("output", defaults.Output)
	v.SetDefault("no_color", false)
	v.SetDefault("timestamp", true)
	v.SetDefault("caller", false)

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading logging config %s: %w", file, err)
		}
	}

	if envPrefix != "" {
		v.SetEnvPrefix(envPrefix)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding logging config: %w", err)
	}
	cfg.Level = strings.ToLower(cfg.Level)
	cfg.Format = strings.ToLower(cfg.Format)
	cfg.Output = strings.ToLower(cfg.Output)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
