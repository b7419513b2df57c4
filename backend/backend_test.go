package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"murmur/model"
)

// drain collects every event from a stream, verifying the channel closes.
func drain(t *testing.T, events <-chan model.Event) []model.Event {
	t.Helper()
	var out []model.Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, evt)
		case <-timeout:
			t.Fatal("timed out waiting for the event channel to close")
		}
	}
}

func terminalOf(t *testing.T, events []model.Event) model.Event {
	t.Helper()
	if len(events) == 0 {
		t.Fatal("expected at least one event")
	}
	last := events[len(events)-1]
	if last.Type != model.EventDone && last.Type != model.EventError {
		t.Fatalf("last event type = %v, want Done or Error", last.Type)
	}
	for _, evt := range events[:len(events)-1] {
		if evt.Type == model.EventDone || evt.Type == model.EventError {
			t.Fatalf("terminal event %v before end of stream", evt.Type)
		}
	}
	return last
}

func TestDirectStreamChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n" +
			"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n" +
			"data: [DONE]\n\n"))
	}))
	defer srv.Close()

	b, err := NewDirect(srv.URL, "key", 5*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events := drain(t, b.StreamChat(context.Background(), model.ChatRequest{Model: "m"}))
	last := terminalOf(t, events)
	if last.Type != model.EventDone {
		t.Fatalf("terminal = %v (%v), want Done", last.Type, last.Err)
	}

	var text strings.Builder
	for _, evt := range events {
		if evt.Type == model.EventTextDelta {
			text.WriteString(evt.Text)
		}
	}
	if text.String() != "Hello" {
		t.Errorf("text = %q, want %q", text.String(), "Hello")
	}
}

func TestDirectEarlyCloseIsGraceful(t *testing.T) {
	// Response body ends without a [DONE] sentinel.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n"))
	}))
	defer srv.Close()

	b, err := NewDirect(srv.URL, "key", 5*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events := drain(t, b.StreamChat(context.Background(), model.ChatRequest{Model: "m"}))
	last := terminalOf(t, events)
	if last.Type != model.EventDone {
		t.Errorf("terminal = %v, want Done on early close", last.Type)
	}
}

func TestDirectProviderErrorEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer srv.Close()

	b, err := NewDirect(srv.URL, "key", 5*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events := drain(t, b.StreamChat(context.Background(), model.ChatRequest{Model: "m"}))
	last := terminalOf(t, events)
	if last.Type != model.EventError {
		t.Fatalf("terminal = %v, want Error", last.Type)
	}
	var provErr *model.ProviderError
	if !errors.As(last.Err, &provErr) || provErr.StatusCode != 401 {
		t.Errorf("err = %v, want ProviderError 401", last.Err)
	}
}

func TestDirectCancelledMidStream(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"one\"}}]}\n\n"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	b, err := NewDirect(srv.URL, "key", 30*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	events := b.StreamChat(ctx, model.ChatRequest{Model: "m"})

	// Read the first delta, then cancel and drain to completion.
	first := <-events
	if first.Type != model.EventTextDelta || first.Text != "one" {
		t.Fatalf("first event = %+v, want text delta %q", first, "one")
	}
	cancel()

	rest := drain(t, events)
	// The producer must still terminate; the terminal may be an Error
	// (cancelled read) or absent if the emit itself was cancelled.
	for _, evt := range rest {
		if evt.Type == model.EventDone {
			t.Error("did not expect Done after cancellation")
		}
	}
}

func TestNewDirectValidation(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		apiKey   string
		wantErr  bool
	}{
		{"valid", "https://api.example.com/v1/chat/completions", "k", false},
		{"missing endpoint", "", "k", true},
		{"missing api key", "https://api.example.com/v1/chat/completions", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDirect(tt.endpoint, tt.apiKey, 0)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

func TestProxyMissingURL(t *testing.T) {
	backends := map[string]model.Backend{
		"worker": NewWorkerProxy("", time.Second),
		"edge":   NewEdgeProxy("", time.Second),
	}

	for name, b := range backends {
		t.Run(name, func(t *testing.T) {
			events := drain(t, b.StreamChat(context.Background(), model.ChatRequest{Model: "m"}))
			if len(events) != 1 {
				t.Fatalf("len(events) = %d, want exactly 1", len(events))
			}
			if events[0].Type != model.EventError {
				t.Fatalf("type = %v, want Error", events[0].Type)
			}
			if !errors.Is(events[0].Err, model.ErrMissingProxyURL) {
				t.Errorf("err = %v, want ErrMissingProxyURL", events[0].Err)
			}
		})
	}
}

func TestProxyStreamsWithoutAuthHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer srv.Close()

	b := NewWorkerProxy(srv.URL, 5*time.Second)
	events := drain(t, b.StreamChat(context.Background(), model.ChatRequest{Model: "m"}))
	last := terminalOf(t, events)
	if last.Type != model.EventDone {
		t.Fatalf("terminal = %v, want Done", last.Type)
	}
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want empty (relay injects credentials)", gotAuth)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		wantErr  bool
		wantType string
	}{
		{
			name:     "direct",
			config:   Config{Type: TypeDirect, Endpoint: "https://x/v1/chat/completions", APIKey: "k"},
			wantType: "*backend.Direct",
		},
		{
			name:     "worker",
			config:   Config{Type: TypeWorker, ProxyURL: "https://relay.example.com"},
			wantType: "*backend.WorkerProxy",
		},
		{
			name:     "edge",
			config:   Config{Type: TypeEdge, ProxyURL: "https://edge.example.com"},
			wantType: "*backend.EdgeProxy",
		},
		{
			name:    "direct without key",
			config:  Config{Type: TypeDirect, Endpoint: "https://x"},
			wantErr: true,
		},
		{
			name:    "unknown type",
			config:  Config{Type: Type("teleport")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := New(tt.config)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := typeName(b); got != tt.wantType {
				t.Errorf("type = %s, want %s", got, tt.wantType)
			}
		})
	}
}

func typeName(v interface{}) string {
	switch v.(type) {
	case *Direct:
		return "*backend.Direct"
	case *WorkerProxy:
		return "*backend.WorkerProxy"
	case *EdgeProxy:
		return "*backend.EdgeProxy"
	default:
		return "unknown"
	}
}

func TestMapBackendID(t *testing.T) {
	tests := []struct {
		id   string
		want Type
	}{
		{"", TypeDirect},
		{"direct", TypeDirect},
		{"worker", TypeWorker},
		{"edge", TypeEdge},
		{"bogus", Type("bogus")},
	}

	for _, tt := range tests {
		if got := MapBackendID(tt.id); got != tt.want {
			t.Errorf("MapBackendID(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}
