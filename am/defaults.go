package am

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/teranos/hmdraft/docmodel"
)

var defaultAllowedOrigins = []string{
	"http://localhost",
	"https://localhost",
	"http://127.0.0.1",
	"https://127.0.0.1",
}

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "hmdraft.db")

	v.SetDefault("drafts.autosave_debounce_ms", 500)
	v.SetDefault("drafts.mount_delay_ms", 20)
	v.SetDefault("drafts.saved_indicator_ms", 2000)
	v.SetDefault("drafts.compare_attributes", docmodel.DefaultCompareAttributes)
	v.SetDefault("drafts.structural_attributes", docmodel.DefaultStructuralAttributes)

	v.SetDefault("server.http_port", DefaultHTTPPort)
	v.SetDefault("server.grpc_port", DefaultGRPCPort)
	v.SetDefault("server.allowed_origins", defaultAllowedOrigins)

	v.SetDefault("client.address", fmt.Sprintf("localhost:%d", DefaultGRPCPort))
	v.SetDefault("client.timeout_seconds", 30)
	v.SetDefault("client.api_constraint", "^1.0.0")

	v.SetDefault("diagnosis.enabled", true)
	v.SetDefault("diagnosis.buffer", 256)
	v.SetDefault("diagnosis.max_per_second", 50)

	v.SetDefault("log.json", false)
}

// BindSensitiveEnvVars explicitly binds configuration that is commonly
// overridden per process to environment variables
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("database.path", "HMDRAFT_DATABASE_PATH")
	v.BindEnv("client.address", "HMDRAFT_CLIENT_ADDRESS")
	v.BindEnv("log.json", "HMDRAFT_LOG_JSON")
}

// GetDatabasePath returns the configured database path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return "hmdraft.db"
	}
	return c.Database.Path
}

// AutosaveDebounce returns the autosave quiet period
func (c *Config) AutosaveDebounce() time.Duration {
	if c.Drafts.AutosaveDebounceMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.Drafts.AutosaveDebounceMS) * time.Millisecond
}

// MountDelay returns the editor mount grace period
func (c *Config) MountDelay() time.Duration {
	if c.Drafts.MountDelayMS <= 0 {
		return 20 * time.Millisecond
	}
	return time.Duration(c.Drafts.MountDelayMS) * time.Millisecond
}

// SavedIndicatorDuration returns how long the "saved" indicator stays up
func (c *Config) SavedIndicatorDuration() time.Duration {
	if c.Drafts.SavedIndicatorMS <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.Drafts.SavedIndicatorMS) * time.Millisecond
}

// GetCompareAttributes returns the equality allowlist
func (c *Config) GetCompareAttributes() []string {
	if len(c.Drafts.CompareAttributes) == 0 {
		return docmodel.DefaultCompareAttributes
	}
	return c.Drafts.CompareAttributes
}

// GetStructuralAttributes returns the attributes that re-emit block positions
func (c *Config) GetStructuralAttributes() []string {
	if len(c.Drafts.StructuralAttributes) == 0 {
		return docmodel.DefaultStructuralAttributes
	}
	return c.Drafts.StructuralAttributes
}

// GetServerAllowedOrigins returns the allowed websocket origins
func (c *Config) GetServerAllowedOrigins() []string {
	if len(c.Server.AllowedOrigins) == 0 {
		return defaultAllowedOrigins
	}
	return c.Server.AllowedOrigins
}

// GetHTTPPort returns the HTTP port or DefaultHTTPPort
func (c *Config) GetHTTPPort() int {
	if c.Server.HTTPPort == 0 {
		return DefaultHTTPPort
	}
	return c.Server.HTTPPort
}

// GetGRPCPort returns the gRPC port or DefaultGRPCPort
func (c *Config) GetGRPCPort() int {
	if c.Server.GRPCPort == 0 {
		return DefaultGRPCPort
	}
	return c.Server.GRPCPort
}

// ClientTimeout returns the per-call timeout for CLI commands
func (c *Config) ClientTimeout() time.Duration {
	if c.Client.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Client.TimeoutSeconds) * time.Second
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Database: %s, Server: {HTTP: %d, gRPC: %d}, Client: %s, Debounce: %dms}",
		c.Database.Path, c.Server.HTTPPort, c.Server.GRPCPort, c.Client.Address, c.Drafts.AutosaveDebounceMS)
}
