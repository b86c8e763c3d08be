package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/agent-supervisor/pkg/dispatch"
	"github.com/morezero/agent-supervisor/pkg/envelope"
	"github.com/morezero/agent-supervisor/pkg/registry"
)

const handlersLogPrefix = "server:handlers"

// ChatRequest is the caller-facing chat payload.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the caller-facing success payload.
type ChatResponse struct {
	Response string `json:"response"`
}

// ChatErrorResponse is the caller-facing failure payload; the error shape
// distinguishes routing, transport and invalid-reply failures by code.
type ChatErrorResponse struct {
	Error *dispatch.DispatchError `json:"error"`
}

// HealthOutput is the /health payload.
type HealthOutput struct {
	Status     string                         `json:"status"`
	Responders []registry.ResponderDescriptor `json:"responders"`
	Timestamp  string                         `json:"timestamp"`
}

// buildMux wires the HTTP routes.
func (s *Server) buildMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/agent/chat", s.handleChat())
	mux.HandleFunc("/health", s.handleHealth())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	})
	return mux
}

// handleChat accepts {message} and returns {response} or a structured error.
func (s *Server) handleChat() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
			writeChatError(w, http.StatusBadRequest, &dispatch.DispatchError{
				Code:    "INVALID_REQUEST",
				Message: "request body must be {\"message\": \"...\"}",
			})
			return
		}

		inbound := envelope.NewUserMessage(envelope.NewID(), req.Message)

		// The request context carries caller disconnects into the exchange.
		out, dispErr := s.coord.Dispatch(r.Context(), inbound)
		if dispErr != nil {
			writeChatError(w, statusForDispatchError(dispErr), dispErr)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ChatResponse{Response: out.Text()})
	}
}

// handleHealth reports the registry health snapshot. The supervisor is
// degraded once every responder is unreachable.
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		descs := s.reg.All()

		status := "healthy"
		reachable := 0
		for _, d := range descs {
			if d.Health != registry.HealthUnreachable {
				reachable++
			}
		}
		if len(descs) > 0 && reachable == 0 {
			status = "unhealthy"
		}

		w.Header().Set("Content-Type", "application/json")
		if status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(HealthOutput{
			Status:     status,
			Responders: descs,
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// handleCommsChat serves the same chat contract over COMMS request/reply.
func (s *Server) handleCommsChat(ctx context.Context) comms.MsgHandler {
	return func(msg *comms.Msg) {
		var req ChatRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil || req.Message == "" {
			respondJSON(msg, ChatErrorResponse{Error: &dispatch.DispatchError{
				Code:    "INVALID_REQUEST",
				Message: "request payload must be {\"message\": \"...\"}",
			}})
			return
		}

		reqCtx, cancel := context.WithTimeout(ctx, s.chatDeadline())
		defer cancel()

		inbound := envelope.NewUserMessage(envelope.NewID(), req.Message)
		out, dispErr := s.coord.Dispatch(reqCtx, inbound)
		if dispErr != nil {
			respondJSON(msg, ChatErrorResponse{Error: dispErr})
			return
		}
		respondJSON(msg, ChatResponse{Response: out.Text()})
	}
}

// chatDeadline bounds a whole exchange: two delivery attempts plus the retry
// delay, with a little slack for routing.
func (s *Server) chatDeadline() time.Duration {
	return 2*s.cfg.ResponderTimeout + s.cfg.RetryDelay + 5*time.Second
}

func statusForDispatchError(e *dispatch.DispatchError) int {
	if e.Code == dispatch.CodeRoutingFailed {
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}

func writeChatError(w http.ResponseWriter, status int, e *dispatch.DispatchError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ChatErrorResponse{Error: e})
}

func respondJSON(msg *comms.Msg, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to encode response: %v", handlersLogPrefix, err))
		return
	}
	msg.Respond(data)
}
