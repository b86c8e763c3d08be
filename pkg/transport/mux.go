package transport

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/morezero/agent-supervisor/pkg/envelope"
	"github.com/morezero/agent-supervisor/pkg/registry"
)

const muxLogPrefix = "transport:mux"

// Mux routes Send calls to the HTTP or COMMS client based on the responder
// address: http:// and https:// addresses go over HTTP, everything else is
// treated as a COMMS subject.
type Mux struct {
	httpc  Client
	commsc Client
}

// NewMux creates a Mux. commsc may be nil when no COMMS connection is
// configured; sending to a subject-addressed responder then fails as
// connection-refused.
func NewMux(httpc, commsc Client) *Mux {
	return &Mux{httpc: httpc, commsc: commsc}
}

// Send delivers the envelope via the client matching the address scheme.
func (m *Mux) Send(ctx context.Context, desc registry.ResponderDescriptor, req *envelope.SendRequest, timeout time.Duration) (*envelope.SendResponse, error) {
	if strings.HasPrefix(desc.Address, "http://") || strings.HasPrefix(desc.Address, "https://") {
		return m.httpc.Send(ctx, desc, req, timeout)
	}
	if m.commsc == nil {
		return nil, &Failure{
			Kind:      FailureConnectionRefused,
			Responder: desc.Identifier,
			Err:       fmt.Errorf("%s - no COMMS connection for subject-addressed responder", muxLogPrefix),
		}
	}
	return m.commsc.Send(ctx, desc, req, timeout)
}
