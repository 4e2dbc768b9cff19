package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	ListenAddress  string `toml:"ListenAddress"`
	DataDir        string `toml:"DataDir"`
	GenesisFile    string `toml:"GenesisFile"`
	Environment    string `toml:"Environment"`
	ReadTimeout    int    `toml:"ReadTimeout"`
	WriteTimeout   int    `toml:"WriteTimeout"`
	MaxBodyBytes   int64  `toml:"MaxBodyBytes"`
	MetricsEnabled bool   `toml:"MetricsEnabled"`

	Logging   Logging   `toml:"logging"`
	Auth      Auth      `toml:"auth"`
	RateLimit RateLimit `toml:"ratelimit"`
	Journal   Journal   `toml:"journal"`
	Telemetry Telemetry `toml:"telemetry"`
}

// Load loads the configuration from the given path. A missing file is
// created with defaults and a freshly generated token secret.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s: unknown key %q", path, undecoded[0].String())
	}

	cfg.applyDefaults()
	if env := strings.TrimSpace(cfg.Auth.HMACSecretEnv); env != "" {
		if secret := strings.TrimSpace(os.Getenv(env)); secret != "" {
			cfg.Auth.HMACSecret = secret
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration written by createDefault, without a
// token secret.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = ":8080"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./swt-data"
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = "local"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 15
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 15
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 1 << 20
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	if strings.TrimSpace(c.Auth.Issuer) == "" {
		c.Auth.Issuer = "swtd"
	}
	if strings.TrimSpace(c.Auth.Audience) == "" {
		c.Auth.Audience = "securewrap"
	}
	if c.Auth.TokenTTLSeconds <= 0 {
		c.Auth.TokenTTLSeconds = 3600
	}
	if c.Auth.LoginSkewSeconds <= 0 {
		c.Auth.LoginSkewSeconds = 120
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		c.RateLimit.RequestsPerMinute = 600
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 50
	}
	if strings.TrimSpace(c.Journal.Driver) == "" {
		c.Journal.Driver = "sqlite"
	}
	if c.Journal.Driver == "sqlite" && strings.TrimSpace(c.Journal.DSN) == "" {
		c.Journal.DSN = filepath.Join(c.DataDir, "journal.db")
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	cfg := Default()
	cfg.Auth.HMACSecret = hex.EncodeToString(secret)
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
