package backend

import (
	"context"
	"time"

	"murmur/model"
	"murmur/transport"
)

// proxyStream is the shared behavior of both proxy variants: forward the
// request to an operator-controlled relay that injects provider credentials
// server-side. Without a configured URL the variant yields a single Error
// event synchronously instead of attempting a call to an empty endpoint.
func proxyStream(ctx context.Context, client *transport.Client, req model.ChatRequest) <-chan model.Event {
	if client == nil {
		events := make(chan model.Event, 1)
		events <- model.Event{Type: model.EventError, Err: model.ErrMissingProxyURL}
		close(events)
		return events
	}
	return runStream(ctx, client, req)
}

// WorkerProxy forwards chat requests to an edge-worker relay endpoint.
// The relay speaks the same completions wire format as the provider, so the
// transport and parser are reused unchanged; only the target differs.
type WorkerProxy struct {
	client *transport.Client
}

// NewWorkerProxy creates a worker-relay backend. url may be empty; the
// misconfiguration is reported per-request as an Error event rather than at
// construction, so backend selection never fails at startup.
func NewWorkerProxy(url string, timeout time.Duration) *WorkerProxy {
	p := &WorkerProxy{}
	if url != "" {
		p.client = transport.NewClient(url, "", timeout)
	}
	return p
}

// StreamChat implements model.Backend.
func (p *WorkerProxy) StreamChat(ctx context.Context, req model.ChatRequest) <-chan model.Event {
	return proxyStream(ctx, p.client, req)
}

// EdgeProxy forwards chat requests to a serverless-function relay endpoint.
// Contract-identical to WorkerProxy; kept as a separate variant because the
// two relays are deployed and configured independently.
type EdgeProxy struct {
	client *transport.Client
}

// NewEdgeProxy creates a function-relay backend. url may be empty; see
// NewWorkerProxy.
func NewEdgeProxy(url string, timeout time.Duration) *EdgeProxy {
	p := &EdgeProxy{}
	if url != "" {
		p.client = transport.NewClient(url, "", timeout)
	}
	return p
}

// StreamChat implements model.Backend.
func (p *EdgeProxy) StreamChat(ctx context.Context, req model.ChatRequest) <-chan model.Event {
	return proxyStream(ctx, p.client, req)
}
