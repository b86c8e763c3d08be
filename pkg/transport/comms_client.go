package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/agent-supervisor/pkg/commsutil"
	"github.com/morezero/agent-supervisor/pkg/envelope"
	"github.com/morezero/agent-supervisor/pkg/registry"
)

const commsLogPrefix = "transport:comms_client"

// CommsClient delivers envelopes over COMMS request/reply to responders
// addressed by a subject.
type CommsClient struct {
	nc     *comms.Conn
	health HealthRecorder
}

// NewCommsClient creates a CommsClient on an established connection.
func NewCommsClient(nc *comms.Conn, health HealthRecorder) *CommsClient {
	if health == nil {
		health = nopRecorder{}
	}
	return &CommsClient{nc: nc, health: health}
}

// Send issues one request/reply round trip on the descriptor's subject.
func (c *CommsClient) Send(ctx context.Context, desc registry.ResponderDescriptor, req *envelope.SendRequest, timeout time.Duration) (*envelope.SendResponse, error) {
	data, err := commsutil.EncodePayload(req)
	if err != nil {
		return nil, fmt.Errorf("%s - encode request: %w", commsLogPrefix, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	slog.Debug(fmt.Sprintf("%s - request %s id=%s", commsLogPrefix, desc.Address, req.ID))

	msg, err := c.nc.RequestWithContext(callCtx, desc.Address, data)
	if err != nil {
		return nil, c.deliveryFailure(ctx, desc.Identifier, err)
	}

	var resp envelope.SendResponse
	if err := commsutil.DecodePayload(msg.Data, &resp); err != nil {
		return nil, &Failure{Kind: FailureMalformedResponse, Responder: desc.Identifier, Err: err}
	}
	out, err := validated(&resp, desc.Identifier)
	if err != nil {
		return nil, err
	}

	c.health.MarkHealthy(desc.Identifier)
	return out, nil
}

func (c *CommsClient) deliveryFailure(parent context.Context, responder string, err error) *Failure {
	if errors.Is(parent.Err(), context.Canceled) {
		return &Failure{Kind: FailureTimeout, Responder: responder, Err: err}
	}

	kind := FailureConnectionRefused
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, comms.ErrTimeout) {
		kind = FailureTimeout
	}
	c.health.MarkUnreachable(responder)
	return &Failure{Kind: kind, Responder: responder, Err: err}
}
