package config

import (
	"github.com/ipmeta/ipmeta/errors"
)

// Validate checks that the configuration can initialize the lookup engine.
// Violations are configuration errors: fatal, the engine stays not-ready.
func (c *Config) Validate() error {
	if c.RIB.DB == "" {
		return errors.NewConfigurationError("rib.db is required")
	}
	if err := exactlyOne("ix", c.IXP.IXFile, c.IXP.IXStream); err != nil {
		return err
	}
	if err := exactlyOne("netixlan", c.IXP.NetixlanFile, c.IXP.NetixlanStream); err != nil {
		return err
	}

	// Fetcher knobs: 0 = use default, negative = invalid
	if c.Fetch.Workers < 0 {
		return errors.NewConfigurationError("fetch.workers must be >= 0, got %d", c.Fetch.Workers)
	}
	if c.Fetch.RequestsPerMinute < 0 {
		return errors.NewConfigurationError("fetch.requests_per_minute must be >= 0, got %d", c.Fetch.RequestsPerMinute)
	}
	if c.Fetch.TimeoutSeconds < 0 {
		return errors.NewConfigurationError("fetch.timeout_seconds must be >= 0, got %d", c.Fetch.TimeoutSeconds)
	}
	return nil
}

// exactlyOne enforces the file-or-stream contract for a record input.
func exactlyOne(name, file, stream string) error {
	if file == "" && stream == "" {
		return errors.NewConfigurationError("either file or stream is required for %s information", name)
	}
	if file != "" && stream != "" {
		return errors.NewConfigurationError("both file and stream specified for %s, please decide", name)
	}
	return nil
}
