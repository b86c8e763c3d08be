// Package bootstrap loads the responder set from a JSON file and validates it.
package bootstrap

import "github.com/morezero/agent-supervisor/pkg/registry"

// RespondersConfig is the on-disk responder bootstrap configuration.
// Responders is ordered; registration order is what the router's tie-break
// and the registry's All() preserve.
type RespondersConfig struct {
	Name       string               `json:"name"`
	Version    string               `json:"version"`
	Responders []ResponderBootstrap `json:"responders"`
}

// ResponderBootstrap is one responder entry in the bootstrap file.
type ResponderBootstrap struct {
	Identifier string `json:"identifier"`
	// Address is an HTTP base URL or a COMMS subject.
	Address string `json:"address"`
	// Capability is the free-text summary used for routing.
	Capability string `json:"capability"`
	// Version is the responder's declared card version, gated against the
	// supervisor's protocol constraint at load time.
	Version string `json:"version,omitempty"`
}

// Descriptors converts the configured responders into registry descriptors,
// preserving order.
func (c *RespondersConfig) Descriptors() []registry.ResponderDescriptor {
	out := make([]registry.ResponderDescriptor, 0, len(c.Responders))
	for _, r := range c.Responders {
		out = append(out, registry.ResponderDescriptor{
			Identifier: r.Identifier,
			Address:    r.Address,
			Capability: r.Capability,
			Version:    r.Version,
			Health:     registry.HealthUnknown,
		})
	}
	return out
}
