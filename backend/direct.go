// Package backend provides interchangeable implementations of the streaming
// chat capability. Direct talks to the model provider itself; the proxy
// variants forward through an operator-controlled endpoint so long-lived
// credentials stay server-side. All variants satisfy model.Backend and share
// one contract: a finite event stream ending in exactly one Done or Error.
package backend

import (
	"context"
	"fmt"
	"time"

	"murmur/config"
	"murmur/model"
	"murmur/sse"
	"murmur/transport"
)

// Direct streams chat completions straight from a provider's
// chat-completions endpoint.
type Direct struct {
	client *transport.Client
}

// NewDirect creates a direct backend. An API key is required; the provider
// rejects unauthenticated calls and the resulting error would be confusing.
func NewDirect(endpoint, apiKey string, timeout time.Duration) (*Direct, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("provider endpoint is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("provider API key is required (check API key configuration)")
	}
	return &Direct{client: transport.NewClient(endpoint, apiKey, timeout)}, nil
}

// StreamChat implements model.Backend.
func (b *Direct) StreamChat(ctx context.Context, req model.ChatRequest) <-chan model.Event {
	return runStream(ctx, b.client, req)
}

// emit delivers one event, giving up if the context is cancelled so an
// abandoned consumer never strands the producing goroutine. Consumers that
// stop reading early are expected to cancel ctx first.
func emit(ctx context.Context, events chan<- model.Event, evt model.Event) bool {
	select {
	case events <- evt:
		return true
	case <-ctx.Done():
		return false
	}
}

// runStream drives the transport + parser pipeline shared by all variants.
// The goroutine owns the channel: it emits at most one terminal event, then
// closes. Transport-level close without [DONE] counts as graceful completion;
// the provider ended the response and there is nothing more to read.
func runStream(ctx context.Context, client *transport.Client, req model.ChatRequest) <-chan model.Event {
	events := make(chan model.Event, 1)

	go func() {
		defer close(events)
		defer func() {
			if r := recover(); r != nil {
				emit(ctx, events, model.Event{Type: model.EventError, Err: fmt.Errorf("internal stream fault: %v", r)})
			}
		}()

		stream, err := client.Stream(ctx, req)
		if err != nil {
			emit(ctx, events, model.Event{Type: model.EventError, Err: err})
			return
		}
		defer stream.Close()

		var parser sse.Parser
		for stream.Next() {
			for _, evt := range parser.Push(stream.Current()) {
				if !emit(ctx, events, evt) {
					return
				}
			}
			if parser.Done() {
				break
			}
		}

		if err := stream.Err(); err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[backend] stream failed mid-read: %v", err)
			}
			emit(ctx, events, model.Event{Type: model.EventError, Err: err})
			return
		}

		emit(ctx, events, model.Event{Type: model.EventDone})
	}()

	return events
}
