package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/morezero/agent-supervisor/pkg/envelope"
	"github.com/morezero/agent-supervisor/pkg/registry"
)

// recorderSpy captures health observations.
type recorderSpy struct {
	healthy     []string
	unreachable []string
}

func (r *recorderSpy) MarkHealthy(id string)     { r.healthy = append(r.healthy, id) }
func (r *recorderSpy) MarkUnreachable(id string) { r.unreachable = append(r.unreachable, id) }

func testRequest() *envelope.SendRequest {
	return &envelope.SendRequest{
		ID:     "ex-1",
		Params: envelope.SendParams{Message: envelope.NewUserMessage("m-1", "hello")},
	}
}

func descriptorFor(url string) registry.ResponderDescriptor {
	return registry.ResponderDescriptor{Identifier: "service-catalog", Address: url, Capability: "service discovery"}
}

func TestHTTPClient_Send(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("transport:http_client_test - path = %q, want /v1/messages", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("transport:http_client_test - Content-Type = %q", ct)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":{"message_id":"r-1","role":"agent","parts":[{"text":"here are the services"}],"metadata":{"name":"Service Catalog Agent"}}}`))
	}))
	defer srv.Close()

	spy := &recorderSpy{}
	c := NewHTTPClient(spy)

	resp, err := c.Send(context.Background(), descriptorFor(srv.URL), testRequest(), time.Second)
	if err != nil {
		t.Fatalf("transport:http_client_test - unexpected error: %v", err)
	}
	if got := resp.Message.Text(); got != "here are the services" {
		t.Errorf("transport:http_client_test - Text() = %q", got)
	}
	if resp.Message.Name() != "Service Catalog Agent" {
		t.Errorf("transport:http_client_test - Name() = %q", resp.Message.Name())
	}
	if len(spy.healthy) != 1 || spy.healthy[0] != "service-catalog" {
		t.Errorf("transport:http_client_test - expected healthy mark, got %+v", spy)
	}
}

func TestHTTPClient_MalformedReply(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing parts", body: `{"message":{"message_id":"r-1","role":"agent"}}`},
		{name: "empty parts", body: `{"message":{"message_id":"r-1","role":"agent","parts":[]}}`},
		{name: "missing role", body: `{"message":{"message_id":"r-1","parts":[{"text":"x"}]}}`},
		{name: "not json", body: `garbage`},
		{name: "empty object", body: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			spy := &recorderSpy{}
			c := NewHTTPClient(spy)

			_, err := c.Send(context.Background(), descriptorFor(srv.URL), testRequest(), time.Second)
			var failure *Failure
			if !errors.As(err, &failure) {
				t.Fatalf("transport:http_client_test - expected *Failure, got %v", err)
			}
			if failure.Kind != FailureMalformedResponse {
				t.Errorf("transport:http_client_test - Kind = %q, want malformed-response", failure.Kind)
			}
			if failure.Retryable() {
				t.Error("transport:http_client_test - malformed response must not be retryable")
			}
			// Responder answered; health must be left untouched
			if len(spy.healthy) != 0 || len(spy.unreachable) != 0 {
				t.Errorf("transport:http_client_test - health touched on malformed reply: %+v", spy)
			}
		})
	}
}

func TestHTTPClient_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	spy := &recorderSpy{}
	c := NewHTTPClient(spy)

	_, err := c.Send(context.Background(), descriptorFor(srv.URL), testRequest(), time.Second)
	var failure *Failure
	if !errors.As(err, &failure) || failure.Kind != FailureMalformedResponse {
		t.Fatalf("transport:http_client_test - expected malformed-response, got %v", err)
	}
	if len(spy.unreachable) != 0 {
		t.Error("transport:http_client_test - non-2xx must not mark unreachable")
	}
}

func TestHTTPClient_Timeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	spy := &recorderSpy{}
	c := NewHTTPClient(spy)

	start := time.Now()
	_, err := c.Send(context.Background(), descriptorFor(srv.URL), testRequest(), 50*time.Millisecond)
	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("transport:http_client_test - expected *Failure, got %v", err)
	}
	if failure.Kind != FailureTimeout {
		t.Errorf("transport:http_client_test - Kind = %q, want timeout", failure.Kind)
	}
	if !failure.Retryable() {
		t.Error("transport:http_client_test - timeout must be retryable")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("transport:http_client_test - timeout not honored, took %v", elapsed)
	}
	if len(spy.unreachable) != 1 {
		t.Errorf("transport:http_client_test - expected unreachable mark, got %+v", spy)
	}
}

func TestHTTPClient_ConnectionRefused(t *testing.T) {
	// Grab a free port, then close the listener so dialing it is refused
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("transport:http_client_test - listen: %v", err)
	}
	addr := "http://" + ln.Addr().String()
	ln.Close()

	spy := &recorderSpy{}
	c := NewHTTPClient(spy)

	_, sendErr := c.Send(context.Background(), descriptorFor(addr), testRequest(), time.Second)
	var failure *Failure
	if !errors.As(sendErr, &failure) {
		t.Fatalf("transport:http_client_test - expected *Failure, got %v", sendErr)
	}
	if failure.Kind != FailureConnectionRefused {
		t.Errorf("transport:http_client_test - Kind = %q, want connection-refused", failure.Kind)
	}
	if len(spy.unreachable) != 1 {
		t.Errorf("transport:http_client_test - expected unreachable mark, got %+v", spy)
	}
}

// TestHTTPClient_CancelledCaller verifies a caller disconnect surfaces as a
// timeout-kind failure without penalizing the responder's health.
func TestHTTPClient_CancelledCaller(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	spy := &recorderSpy{}
	c := NewHTTPClient(spy)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	_, err := c.Send(ctx, descriptorFor(srv.URL), testRequest(), time.Minute)
	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("transport:http_client_test - expected *Failure, got %v", err)
	}
	if failure.Kind != FailureTimeout {
		t.Errorf("transport:http_client_test - Kind = %q, want timeout", failure.Kind)
	}
	if len(spy.unreachable) != 0 {
		t.Error("transport:http_client_test - caller cancellation must not mark unreachable")
	}
}
