package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/morezero/agent-supervisor/pkg/envelope"
	"github.com/morezero/agent-supervisor/pkg/events"
	"github.com/morezero/agent-supervisor/pkg/registry"
	"github.com/morezero/agent-supervisor/pkg/router"
	"github.com/morezero/agent-supervisor/pkg/transport"
)

const logPrefix = "dispatch:coordinator"

const (
	defaultTimeout    = 30 * time.Second
	defaultRetryDelay = 500 * time.Millisecond
)

// Coordinator runs exchanges against the registry, router and transport.
type Coordinator struct {
	registry   *registry.Registry
	router     *router.Router
	transport  transport.Client
	publisher  events.EventPublisher
	timeout    time.Duration
	retryDelay time.Duration
}

// NewCoordinatorParams holds parameters for NewCoordinator.
type NewCoordinatorParams struct {
	Registry  *registry.Registry
	Router    *router.Router
	Transport transport.Client
	Publisher events.EventPublisher
	// Timeout bounds each delivery attempt. RetryDelay is the fixed pause
	// before the single retry. Zero values use defaults.
	Timeout    time.Duration
	RetryDelay time.Duration
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(params NewCoordinatorParams) *Coordinator {
	pub := params.Publisher
	if pub == nil {
		pub = &events.NoOpPublisher{}
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retryDelay := params.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	return &Coordinator{
		registry:   params.Registry,
		router:     params.Router,
		transport:  params.Transport,
		publisher:  pub,
		timeout:    timeout,
		retryDelay: retryDelay,
	}
}

// Dispatch runs one exchange for the inbound message and returns the
// responder's reply or a DispatchError. A transient transport failure is
// retried once against the same responder after a short fixed delay; a
// malformed reply is surfaced immediately without retry.
func (c *Coordinator) Dispatch(ctx context.Context, inbound envelope.Message) (*envelope.Message, *DispatchError) {
	ex := newExchange(inbound)
	defer c.publishOutcome(ex)

	id, ok := c.router.Route(ctx, inbound, c.registry.All())
	if !ok {
		ex.finish(OutcomeRoutingFailed)
		return nil, &DispatchError{
			Code:    CodeRoutingFailed,
			Message: "could not determine how to handle this request",
		}
	}
	ex.Responder = id

	desc, found := c.registry.Lookup(id)
	if !found {
		// The classifier named a responder the registry does not know.
		slog.Warn(fmt.Sprintf("%s - router chose unknown responder %q", logPrefix, id))
		ex.finish(OutcomeRoutingFailed)
		return nil, &DispatchError{
			Code:    CodeRoutingFailed,
			Message: "could not determine how to handle this request",
		}
	}

	slog.Debug(fmt.Sprintf("%s - exchange %s routed to %s", logPrefix, ex.ID, id))

	req := &envelope.SendRequest{ID: ex.ID, Params: envelope.SendParams{Message: inbound}}

	resp, err := c.transport.Send(ctx, desc, req, c.timeout)
	ex.Attempts++

	var failure *transport.Failure
	if err != nil && errors.As(err, &failure) && failure.Retryable() {
		select {
		case <-time.After(c.retryDelay):
			slog.Info(fmt.Sprintf("%s - exchange %s retrying %s after %s", logPrefix, ex.ID, id, failure.Kind))
			resp, err = c.transport.Send(ctx, desc, req, c.timeout)
			ex.Attempts++
		case <-ctx.Done():
			// Cancelled while waiting: the retry must not fire late.
			ex.finish(OutcomeTransportFailed)
			return nil, &DispatchError{
				Code:      CodeTransportFailed,
				Message:   fmt.Sprintf("delivery to %s failed: %s", id, failure.Kind),
				Retryable: true,
			}
		}
	}

	if err != nil {
		failure = nil
		if errors.As(err, &failure) && failure.Kind == transport.FailureMalformedResponse {
			ex.finish(OutcomeInvalidReply)
			return nil, &DispatchError{
				Code:    CodeInvalidReply,
				Message: fmt.Sprintf("responder %s returned an invalid reply", id),
			}
		}
		kind := "error"
		if failure != nil {
			kind = string(failure.Kind)
		}
		ex.finish(OutcomeTransportFailed)
		return nil, &DispatchError{
			Code:      CodeTransportFailed,
			Message:   fmt.Sprintf("delivery to %s failed: %s", id, kind),
			Retryable: true,
		}
	}

	out := resp.Message
	ex.Outbound = &out
	ex.finish(OutcomeDelivered)
	return &out, nil
}

// publishOutcome emits the terminal exchange event. Publishing is best
// effort; a failed publish never fails the exchange.
func (c *Coordinator) publishOutcome(ex *Exchange) {
	if ex.Outcome == OutcomePending {
		return
	}
	event := &events.ExchangeCompletedEvent{
		ExchangeID: ex.ID,
		Responder:  ex.Responder,
		Outcome:    string(ex.Outcome),
		Attempts:   ex.Attempts,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	if err := c.publisher.PublishCompleted(context.Background(), event); err != nil {
		slog.Warn(fmt.Sprintf("%s - failed to publish exchange event for %s: %v", logPrefix, ex.ID, err))
	}
}
