// Package serverconfig holds cmd/server's process configuration,
// loaded from the environment.
package serverconfig

import "github.com/kelseyhightower/envconfig"

// Config is cmd/server's environment-derived configuration.
type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	Network  string `envconfig:"NETWORK" default:"mainnet"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads Config from the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
