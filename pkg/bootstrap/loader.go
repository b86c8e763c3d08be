package bootstrap

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/Masterminds/semver/v3"
)

const logPrefix = "bootstrap:loader"

// LoadRespondersConfig loads the responder config from file paths or
// environment. It tries paths in order: first any paths passed in, then the
// RESPONDERS_FILE env var, then defaults. So an explicit path (e.g. from
// "seed my.json") is tried before the env var.
func LoadRespondersConfig(paths ...string) (*RespondersConfig, error) {
	all := make([]string, 0, len(paths)+3)
	for _, p := range paths {
		if p != "" {
			all = append(all, p)
		}
	}
	if envPath := os.Getenv("RESPONDERS_FILE"); envPath != "" {
		all = append(all, envPath)
	}
	all = append(all, "config/responders.json", "responders.json")

	for _, p := range all {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}

		var cfg RespondersConfig
		if err := json.Unmarshal(data, &cfg); err != nil {
			slog.Warn(fmt.Sprintf("%s - Failed to parse responders file %s: %v", logPrefix, p, err))
			continue
		}

		slog.Info(fmt.Sprintf("%s - Loaded %d responders from %s", logPrefix, len(cfg.Responders), p))
		return &cfg, nil
	}

	slog.Info(fmt.Sprintf("%s - Using default responders config", logPrefix))
	return GetDefaultRespondersConfig(), nil
}

// GetDefaultRespondersConfig returns the embedded fallback responder set.
func GetDefaultRespondersConfig() *RespondersConfig {
	return &RespondersConfig{
		Name:    "agent-supervisor-bootstrap",
		Version: "1.0.0",
		Responders: []ResponderBootstrap{
			{
				Identifier: "cisco-intersight",
				Address:    "http://localhost:8002",
				Capability: "Device and policy management for Cisco Intersight infrastructure",
				Version:    "1.0.0",
			},
			{
				Identifier: "service-catalog",
				Address:    "http://localhost:8001",
				Capability: "Service discovery, catalog browsing and service information",
				Version:    "1.0.0",
			},
		},
	}
}

// Validate checks the config: every responder needs identifier, address and
// capability, and a declared version must parse as SemVer and satisfy the
// supervisor's protocol constraint (empty constraint skips the gate).
func (c *RespondersConfig) Validate(protocolConstraint string) error {
	var gate *semver.Constraints
	if protocolConstraint != "" {
		var err error
		gate, err = semver.NewConstraint(protocolConstraint)
		if err != nil {
			return fmt.Errorf("%s - invalid protocol constraint %q: %w", logPrefix, protocolConstraint, err)
		}
	}

	if len(c.Responders) == 0 {
		return fmt.Errorf("%s - no responders configured", logPrefix)
	}

	for _, r := range c.Responders {
		if r.Identifier == "" {
			return fmt.Errorf("%s - responder with empty identifier", logPrefix)
		}
		if r.Address == "" {
			return fmt.Errorf("%s - responder %q has no address", logPrefix, r.Identifier)
		}
		if r.Capability == "" {
			return fmt.Errorf("%s - responder %q has no capability summary", logPrefix, r.Identifier)
		}
		if r.Version == "" {
			continue
		}
		v, err := semver.NewVersion(r.Version)
		if err != nil {
			return fmt.Errorf("%s - responder %q has invalid version %q: %w", logPrefix, r.Identifier, r.Version, err)
		}
		if gate != nil && !gate.Check(v) {
			return fmt.Errorf("%s - responder %q version %s does not satisfy %s", logPrefix, r.Identifier, r.Version, protocolConstraint)
		}
	}
	return nil
}
