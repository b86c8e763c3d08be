// Package router selects the responder for an inbound message by classifying
// its utterance against the registered capability summaries.
package router

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/morezero/agent-supervisor/pkg/envelope"
	"github.com/morezero/agent-supervisor/pkg/registry"
)

const logPrefix = "router:router"

// Candidate is what the classification capability sees of a responder.
type Candidate struct {
	Identifier string `json:"identifier"`
	Capability string `json:"capability"`
}

// Classifier is the black-box classification capability. Classify returns the
// identifiers of the best-matching candidates (usually zero or one; several
// when equally ranked). Implementations own their retry behavior; the router
// treats any error as a none result.
type Classifier interface {
	Classify(ctx context.Context, utterance string, candidates []Candidate) ([]string, error)
}

// Router maps an inbound message to at most one responder identifier.
type Router struct {
	classifier Classifier
}

// NewRouter creates a Router around the given classifier.
func NewRouter(classifier Classifier) *Router {
	return &Router{classifier: classifier}
}

// Route returns the chosen responder identifier, or ok=false when no
// candidate plausibly matches. Responders known to be unreachable are
// withheld from the classifier while a reachable alternative exists; when
// every responder is unreachable the full set is offered anyway so a routing
// failure stays distinct from the transport failure that will follow.
// Equally ranked winners are broken by registration order.
func (r *Router) Route(ctx context.Context, inbound envelope.Message, descs []registry.ResponderDescriptor) (string, bool) {
	utterance := inbound.Text()

	eligible := make([]registry.ResponderDescriptor, 0, len(descs))
	for _, d := range descs {
		if d.Health != registry.HealthUnreachable {
			eligible = append(eligible, d)
		}
	}
	if len(eligible) == 0 {
		eligible = descs
	}
	if len(eligible) == 0 {
		return "", false
	}

	candidates := make([]Candidate, 0, len(eligible))
	for _, d := range eligible {
		candidates = append(candidates, Candidate{Identifier: d.Identifier, Capability: d.Capability})
	}

	ids, err := r.classifier.Classify(ctx, utterance, candidates)
	if err != nil {
		// Classification failure downgrades to a none result; it is fatal to
		// this routing attempt, never to the exchange.
		slog.Warn(fmt.Sprintf("%s - classification failed, treating as no match: %v", logPrefix, err))
		return "", false
	}
	if len(ids) == 0 {
		return "", false
	}

	chosen := make(map[string]bool, len(ids))
	for _, id := range ids {
		chosen[id] = true
	}
	for _, c := range candidates {
		if chosen[c.Identifier] {
			return c.Identifier, true
		}
	}
	return "", false
}
