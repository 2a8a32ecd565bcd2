package am

import (
	"github.com/Masterminds/semver/v3"

	"github.com/teranos/hmdraft/errors"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Durations: 0 = use default, negative = invalid
	if c.Drafts.AutosaveDebounceMS < 0 {
		return errors.Newf("drafts.autosave_debounce_ms must be >= 0, got %d", c.Drafts.AutosaveDebounceMS)
	}
	if c.Drafts.MountDelayMS < 0 {
		return errors.Newf("drafts.mount_delay_ms must be >= 0, got %d", c.Drafts.MountDelayMS)
	}
	if c.Drafts.SavedIndicatorMS < 0 {
		return errors.Newf("drafts.saved_indicator_ms must be >= 0, got %d", c.Drafts.SavedIndicatorMS)
	}

	for _, p := range []struct {
		key  string
		port int
	}{
		{"server.http_port", c.Server.HTTPPort},
		{"server.grpc_port", c.Server.GRPCPort},
	} {
		if p.port < 0 || p.port > 65535 {
			return errors.Newf("%s must be between 0 and 65535, got %d", p.key, p.port)
		}
	}
	if c.Server.HTTPPort != 0 && c.Server.HTTPPort == c.Server.GRPCPort {
		return errors.Newf("server.http_port and server.grpc_port must differ, both are %d", c.Server.HTTPPort)
	}

	if c.Client.TimeoutSeconds < 0 {
		return errors.Newf("client.timeout_seconds must be >= 0, got %d", c.Client.TimeoutSeconds)
	}
	if c.Client.APIConstraint != "" {
		if _, err := semver.NewConstraint(c.Client.APIConstraint); err != nil {
			return errors.Wrapf(err, "client.api_constraint %q is not a valid semver constraint", c.Client.APIConstraint)
		}
	}

	if c.Diagnosis.Buffer < 0 {
		return errors.Newf("diagnosis.buffer must be >= 0, got %d", c.Diagnosis.Buffer)
	}
	if c.Diagnosis.MaxPerSecond < 0 {
		return errors.Newf("diagnosis.max_per_second must be >= 0, got %d", c.Diagnosis.MaxPerSecond)
	}

	return nil
}
