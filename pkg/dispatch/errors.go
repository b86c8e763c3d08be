package dispatch

// DispatchError codes surfaced to the caller.
const (
	CodeRoutingFailed   = "ROUTING_FAILED"
	CodeTransportFailed = "TRANSPORT_FAILED"
	CodeInvalidReply    = "INVALID_REPLY"
)

// DispatchError is the structured caller-facing failure of an exchange. The
// caller always receives either a response envelope or one of these, never a
// raw transport error.
type DispatchError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func (e *DispatchError) Error() string {
	return e.Code + ": " + e.Message
}
