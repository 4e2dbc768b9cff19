package config

import (
	"fmt"
	"strings"
)

// MinHMACSecretBytes is the shortest accepted token secret.
const MinHMACSecretBytes = 32

func (c *Config) Validate() error {
	if len(strings.TrimSpace(c.Auth.HMACSecret)) < MinHMACSecretBytes {
		return fmt.Errorf("auth: HMACSecret must be at least %d bytes", MinHMACSecretBytes)
	}
	switch c.Journal.Driver {
	case "sqlite":
	case "postgres":
		if strings.TrimSpace(c.Journal.DSN) == "" {
			return fmt.Errorf("journal: DSN required for postgres")
		}
	default:
		return fmt.Errorf("journal: unsupported driver %q", c.Journal.Driver)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging: unsupported level %q", c.Logging.Level)
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 || c.Logging.MaxAgeDays < 0 {
		return fmt.Errorf("logging: rotation limits must not be negative")
	}
	if (c.Telemetry.Traces || c.Telemetry.Metrics) && strings.TrimSpace(c.Telemetry.Endpoint) == "" {
		return fmt.Errorf("telemetry: Endpoint required when exporters are enabled")
	}
	return nil
}
