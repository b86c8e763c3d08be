package commsutil

import (
	"fmt"
	"strings"
)

// Default COMMS subjects.
const (
	SubjectSupervisorChat   = "agent.supervisor.chat.v1"
	SubjectClassify         = "agent.supervisor.classify.v1"
	SubjectExchangeCompleted = "supervisor.exchange.completed"
)

// BuildResponderSubject builds the request/reply subject for a responder
// served over COMMS.
func BuildResponderSubject(identifier string) string {
	safe := strings.ReplaceAll(identifier, ".", "_")
	return fmt.Sprintf("agent.responder.%s.v1", safe)
}

// BuildExchangeSubject builds a granular exchange event subject for one responder.
func BuildExchangeSubject(responder string) string {
	if responder == "" {
		responder = "unrouted"
	}
	return fmt.Sprintf("%s.%s", SubjectExchangeCompleted, strings.ReplaceAll(responder, ".", "_"))
}
