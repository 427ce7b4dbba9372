// Package config provides the runtime configuration shared by the psitest
// commands.
package config

// Config holds the global configuration for psitest
type Config struct {
	Verbose  bool
	NoColor  bool
	Timeout  int
	LogLevel string
}

// Default configuration values
const (
	// DefaultTimeout of zero leaves the protocol unbounded; a hung
	// interpreter is the operator's to interrupt.
	DefaultTimeout = 0

	DefaultLogLevel = "info"
)

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Timeout:  DefaultTimeout,
		LogLevel: DefaultLogLevel,
	}
}
