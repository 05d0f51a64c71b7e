// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix namespaces every variable read by doosr processes.
const EnvPrefix = "DOOSR_"

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// RequireValue reports an error naming the variable when value is blank.
func RequireValue(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s%s is required", EnvPrefix, name)
	}
	return nil
}
