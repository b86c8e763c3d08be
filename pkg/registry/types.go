package registry

// HealthState tracks what the transport layer last observed for a responder.
type HealthState string

// Health states. A responder starts unknown, becomes healthy after a
// successful call and unreachable after a timeout or refused connection. A
// malformed reply leaves the state untouched: the responder answered, it is
// reachable but misbehaving.
const (
	HealthUnknown     HealthState = "unknown"
	HealthHealthy     HealthState = "healthy"
	HealthUnreachable HealthState = "unreachable"
)

// ResponderDescriptor describes one registered responder. Identifier is
// unique within the registry; Address is either an HTTP base URL or a COMMS
// subject; Capability is the free-text summary the router classifies against.
type ResponderDescriptor struct {
	Identifier string      `json:"identifier"`
	Address    string      `json:"address"`
	Capability string      `json:"capability"`
	Version    string      `json:"version,omitempty"`
	Health     HealthState `json:"health"`
}
