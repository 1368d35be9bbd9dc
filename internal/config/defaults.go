package config

import (
	"fmt"

	"github.com/creasty/defaults"
)

// DefaultConfig returns a Config populated from the struct default tags.
func DefaultConfig() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		// The tags are static; a failure here is a programming error.
		panic(fmt.Sprintf("config: invalid default tags: %v", err))
	}
	return cfg
}
