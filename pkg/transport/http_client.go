package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/morezero/agent-supervisor/pkg/envelope"
	"github.com/morezero/agent-supervisor/pkg/registry"
)

const httpLogPrefix = "transport:http_client"

// messagesPath is the responder message endpoint, relative to its base URL.
const messagesPath = "/v1/messages"

// HTTPClient delivers envelopes to responders addressed by an HTTP base URL.
type HTTPClient struct {
	httpc  *http.Client
	health HealthRecorder
}

// NewHTTPClient creates an HTTPClient reporting health observations to the
// given recorder. A nil recorder discards observations.
func NewHTTPClient(health HealthRecorder) *HTTPClient {
	if health == nil {
		health = nopRecorder{}
	}
	// Per-attempt deadlines come from the Send context, not the http.Client.
	return &HTTPClient{httpc: &http.Client{}, health: health}
}

// Send POSTs the request envelope to {address}/v1/messages and parses the reply.
func (c *HTTPClient) Send(ctx context.Context, desc registry.ResponderDescriptor, req *envelope.SendRequest, timeout time.Duration) (*envelope.SendResponse, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%s - encode request: %w", httpLogPrefix, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := strings.TrimSuffix(desc.Address, "/") + messagesPath
	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s - build request: %w", httpLogPrefix, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	slog.Debug(fmt.Sprintf("%s - POST %s id=%s", httpLogPrefix, url, req.ID))

	httpResp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, c.deliveryFailure(ctx, desc.Identifier, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		// The responder answered, so it is reachable; health is left untouched.
		return nil, &Failure{
			Kind:      FailureMalformedResponse,
			Responder: desc.Identifier,
			Err:       fmt.Errorf("unexpected status %d", httpResp.StatusCode),
		}
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, c.deliveryFailure(ctx, desc.Identifier, err)
	}

	var resp envelope.SendResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &Failure{Kind: FailureMalformedResponse, Responder: desc.Identifier, Err: err}
	}
	out, err := validated(&resp, desc.Identifier)
	if err != nil {
		return nil, err
	}

	c.health.MarkHealthy(desc.Identifier)
	return out, nil
}

// deliveryFailure classifies an error from the round trip and records health.
// A cancelled parent context is reported as a timeout per the exchange
// cancellation contract, but does not mark the responder unreachable: the
// caller gave up, the responder was never observed failing.
func (c *HTTPClient) deliveryFailure(parent context.Context, responder string, err error) *Failure {
	if errors.Is(parent.Err(), context.Canceled) {
		return &Failure{Kind: FailureTimeout, Responder: responder, Err: err}
	}

	kind := FailureConnectionRefused
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = FailureTimeout
	}
	c.health.MarkUnreachable(responder)
	return &Failure{Kind: kind, Responder: responder, Err: err}
}
