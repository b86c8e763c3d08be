package router

import (
	"context"
	"fmt"
	"time"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/agent-supervisor/pkg/commsutil"
)

const commsClassifierLogPrefix = "router:comms_classifier"

const defaultClassifyTimeout = 10 * time.Second

// ClassifyRequest is the JSON payload sent to the classification service.
type ClassifyRequest struct {
	Utterance  string      `json:"utterance"`
	Candidates []Candidate `json:"candidates"`
}

// ClassifyResponse is the JSON payload returned by the classification service.
// Identifiers holds the best-matching candidates; empty means no match.
type ClassifyResponse struct {
	Identifiers []string `json:"identifiers"`
}

// CommsClassifier calls a model-backed classification service over COMMS
// request/reply. The model itself stays behind the service; the supervisor
// only sees the candidate verdict.
type CommsClassifier struct {
	nc      *comms.Conn
	subject string
	timeout time.Duration
}

// NewCommsClassifier creates a CommsClassifier on the given subject. A zero
// timeout uses the default.
func NewCommsClassifier(nc *comms.Conn, subject string, timeout time.Duration) *CommsClassifier {
	if subject == "" {
		subject = commsutil.SubjectClassify
	}
	if timeout <= 0 {
		timeout = defaultClassifyTimeout
	}
	return &CommsClassifier{nc: nc, subject: subject, timeout: timeout}
}

// Classify issues one classification round trip. Errors surface to the
// router, which downgrades them to a none result.
func (c *CommsClassifier) Classify(ctx context.Context, utterance string, candidates []Candidate) ([]string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var resp ClassifyResponse
	req := ClassifyRequest{Utterance: utterance, Candidates: candidates}
	if err := commsutil.RequestJSON(callCtx, c.nc, c.subject, req, &resp); err != nil {
		return nil, fmt.Errorf("%s - classify request on %s: %w", commsClassifierLogPrefix, c.subject, err)
	}
	return resp.Identifiers, nil
}
