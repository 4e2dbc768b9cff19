package config

// Logging controls the slog JSON output and optional rotating file.
type Logging struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// Auth configures caller authentication for the RPC surface.
type Auth struct {
	// HMACSecret signs caller bearer tokens. HMACSecretEnv, when set and
	// present in the environment, takes precedence.
	HMACSecret       string `toml:"HMACSecret"`
	HMACSecretEnv    string `toml:"HMACSecretEnv"`
	Issuer           string `toml:"Issuer"`
	Audience         string `toml:"Audience"`
	TokenTTLSeconds  int64  `toml:"TokenTTLSeconds"`
	LoginSkewSeconds int64  `toml:"LoginSkewSeconds"`
}

// RateLimit bounds requests per authenticated caller, or per remote address
// before login.
type RateLimit struct {
	RequestsPerMinute float64 `toml:"RequestsPerMinute"`
	Burst             int     `toml:"Burst"`
}

// Journal selects the SQL backend of the operation journal.
type Journal struct {
	Driver string `toml:"Driver"`
	DSN    string `toml:"DSN"`
}

// Telemetry configures the OTLP exporters.
type Telemetry struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Headers  string `toml:"Headers"`
	Traces   bool   `toml:"Traces"`
	Metrics  bool   `toml:"Metrics"`
}
