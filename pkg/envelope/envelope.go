// Package envelope defines the wire protocol messages exchanged with responders.
package envelope

import (
	"fmt"
	"strings"
)

// Message roles.
const (
	RoleUser  = "user"
	RoleAgent = "agent"
)

// MetadataName is the metadata key under which a responder reports its display name.
const MetadataName = "name"

// Part is a single content fragment of a message. Text is the only required
// variant; additional content types may be carried alongside it later.
type Part struct {
	Text string `json:"text"`
}

// Message is one message unit exchanged over the wire protocol. A Message is
// immutable once constructed; request and response are distinct messages
// correlated by the exchange id on the request envelope.
type Message struct {
	MessageID string            `json:"message_id"`
	Role      string            `json:"role"`
	Parts     []Part            `json:"parts"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// SendRequest is the JSON envelope for an outbound responder request.
type SendRequest struct {
	ID     string     `json:"id"`
	Params SendParams `json:"params"`
}

// SendParams holds the message payload of a SendRequest.
type SendParams struct {
	Message Message `json:"message"`
}

// SendResponse is the JSON envelope for a responder reply.
type SendResponse struct {
	Message Message `json:"message"`
}

// NewUserMessage builds a user-role message carrying a single text part.
func NewUserMessage(messageID, text string) Message {
	return Message{
		MessageID: messageID,
		Role:      RoleUser,
		Parts:     []Part{{Text: text}},
	}
}

// NewAgentMessage builds an agent-role message carrying a single text part.
func NewAgentMessage(messageID, text string) Message {
	return Message{
		MessageID: messageID,
		Role:      RoleAgent,
		Parts:     []Part{{Text: text}},
	}
}

// Text joins the text parts of the message into a single utterance.
func (m Message) Text() string {
	if len(m.Parts) == 1 {
		return m.Parts[0].Text
	}
	parts := make([]string, 0, len(m.Parts))
	for _, p := range m.Parts {
		if p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Name returns the responder display name from metadata, if present.
func (m Message) Name() string {
	return m.Metadata[MetadataName]
}

// Validate reports whether the message is well formed on the wire: a known
// role and at least one part. A reply failing this check is treated as a
// malformed response, never coerced into an empty message.
func (m Message) Validate() error {
	if m.Role != RoleUser && m.Role != RoleAgent {
		return fmt.Errorf("envelope: invalid role %q", m.Role)
	}
	if len(m.Parts) == 0 {
		return fmt.Errorf("envelope: message has no parts")
	}
	return nil
}
