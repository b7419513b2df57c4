// Package model holds the provider-agnostic chat types shared across murmur.
//
// The Backend interface lives here (not in the backend package) to avoid
// import cycles: backend implementations import model, and the chat
// controller can depend on the interface without importing any concrete
// backend.
package model

import "context"

// EventType discriminates the streaming event union.
type EventType int

const (
	// EventTextDelta carries an incremental fragment of visible response text.
	EventTextDelta EventType = iota
	// EventReasoningDelta carries an incremental fragment of model reasoning,
	// kept separate from visible content.
	EventReasoningDelta
	// EventDone marks successful end of stream. Always the last event.
	EventDone
	// EventError marks a failed stream. Always the last event.
	EventError
)

// Event is one element of a backend's streaming response. Text is set for
// delta events, Err for error events.
type Event struct {
	Type EventType
	Text string
	Err  error
}

// ChatRequest describes one generation request sent to a backend.
type ChatRequest struct {
	Messages     []Message
	Model        string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
}

// Backend abstracts one streaming chat implementation (direct provider call
// or an operator-controlled proxy). Implementations guarantee that the
// returned channel is finite, delivers events in production order, ends with
// exactly one EventDone or EventError, and is closed after the terminal
// event. Internal faults never escape as panics; they are converted to an
// EventError.
//
// Cancelling ctx stops the underlying network call; the channel still
// terminates (with an EventError describing the cancellation) and is closed.
type Backend interface {
	StreamChat(ctx context.Context, req ChatRequest) <-chan Event
}
