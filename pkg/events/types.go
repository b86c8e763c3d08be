// Package events defines event types and publisher interfaces for exchange
// outcome events.
package events

// ExchangeCompletedEvent is emitted when an exchange reaches a terminal
// outcome. Responder is empty when routing never selected one.
type ExchangeCompletedEvent struct {
	ExchangeID string `json:"exchangeId"`
	Responder  string `json:"responder,omitempty"`
	Outcome    string `json:"outcome"`
	Attempts   int    `json:"attempts"`
	Timestamp  string `json:"timestamp"`
}
