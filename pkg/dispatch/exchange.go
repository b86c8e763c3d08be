// Package dispatch orchestrates one end-to-end exchange: routing, delivery
// with a bounded retry, and normalization of the result.
package dispatch

import "github.com/morezero/agent-supervisor/pkg/envelope"

// Outcome is the lifecycle state of an exchange.
type Outcome string

// Exchange outcomes. Pending transitions exactly once to one of the terminal
// states.
const (
	OutcomePending         Outcome = "pending"
	OutcomeDelivered       Outcome = "delivered"
	OutcomeRoutingFailed   Outcome = "routing-failed"
	OutcomeTransportFailed Outcome = "transport-failed"
	OutcomeInvalidReply    Outcome = "invalid-reply"
)

// Exchange tracks one caller request lifecycle. It is owned exclusively by
// the coordinator and discarded once the response is returned. Responder is
// set at most once; there is no mid-flight re-routing.
type Exchange struct {
	ID        string
	Inbound   envelope.Message
	Responder string
	Outbound  *envelope.Message
	Outcome   Outcome
	Attempts  int
}

func newExchange(inbound envelope.Message) *Exchange {
	return &Exchange{
		ID:      envelope.NewID(),
		Inbound: inbound,
		Outcome: OutcomePending,
	}
}

// finish applies the single pending→terminal transition. Later calls are
// ignored so a terminal outcome can never be overwritten.
func (e *Exchange) finish(o Outcome) {
	if e.Outcome != OutcomePending {
		return
	}
	e.Outcome = o
}
