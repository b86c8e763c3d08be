// Package transport delivers request envelopes to responders and reports
// structured delivery failures. Each Send issues exactly one attempt; retry
// policy belongs to the dispatch coordinator so that retry counts and backoff
// are observable at one layer only.
package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/morezero/agent-supervisor/pkg/envelope"
	"github.com/morezero/agent-supervisor/pkg/registry"
)

// FailureKind classifies a delivery failure.
type FailureKind string

// Failure kinds.
const (
	FailureTimeout           FailureKind = "timeout"
	FailureConnectionRefused FailureKind = "connection-refused"
	FailureMalformedResponse FailureKind = "malformed-response"
)

// Failure is a structured transport error for one delivery attempt.
type Failure struct {
	Kind      FailureKind
	Responder string
	Err       error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("transport: %s to %s: %v", f.Kind, f.Responder, f.Err)
	}
	return fmt.Sprintf("transport: %s to %s", f.Kind, f.Responder)
}

func (f *Failure) Unwrap() error { return f.Err }

// Retryable reports whether a retry against the same responder can help. A
// malformed response means the responder answered; retrying risks duplicate
// side effects at the responder.
func (f *Failure) Retryable() bool {
	return f.Kind == FailureTimeout || f.Kind == FailureConnectionRefused
}

// HealthRecorder receives health observations after each delivery attempt.
// *registry.Registry implements it.
type HealthRecorder interface {
	MarkHealthy(identifier string)
	MarkUnreachable(identifier string)
}

// Client delivers one request envelope to a responder and returns its reply
// or a *Failure. The timeout bounds the whole attempt; when it elapses the
// in-flight call is abandoned, not awaited.
type Client interface {
	Send(ctx context.Context, desc registry.ResponderDescriptor, req *envelope.SendRequest, timeout time.Duration) (*envelope.SendResponse, error)
}

// nopRecorder discards health observations.
type nopRecorder struct{}

func (nopRecorder) MarkHealthy(string)     {}
func (nopRecorder) MarkUnreachable(string) {}

// validated checks a decoded reply and reports malformed responses.
func validated(resp *envelope.SendResponse, responder string) (*envelope.SendResponse, error) {
	if err := resp.Message.Validate(); err != nil {
		return nil, &Failure{Kind: FailureMalformedResponse, Responder: responder, Err: err}
	}
	return resp, nil
}
