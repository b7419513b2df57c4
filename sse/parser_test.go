package sse

import (
	"strings"
	"testing"

	"murmur/model"
)

func collectText(events []model.Event) string {
	var b strings.Builder
	for _, evt := range events {
		if evt.Type == model.EventTextDelta {
			b.WriteString(evt.Text)
		}
	}
	return b.String()
}

func TestPushCompleteEvents(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantText string
		wantDone bool
	}{
		{
			name:     "single delta",
			input:    "data: {\"choices\":[{\"delta\":{\"content\":\"Hello\"}}]}\n\n",
			wantText: "Hello",
		},
		{
			name: "two deltas accumulate in order",
			input: "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n",
			wantText: "Hello",
		},
		{
			name: "done sentinel halts the stream",
			input: "data: {\"choices\":[{\"delta\":{\"content\":\"hi\"}}]}\n\n" +
				"data: [DONE]\n\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"ignored\"}}]}\n\n",
			wantText: "hi",
			wantDone: true,
		},
		{
			name: "comment lines skipped",
			input: ": keep-alive\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n\n",
			wantText: "ok",
		},
		{
			name: "malformed json skipped",
			input: "data: {not json}\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n\n",
			wantText: "ok",
		},
		{
			name:     "crlf line endings",
			input:    "data: {\"choices\":[{\"delta\":{\"content\":\"win\"}}]}\r\n\r\n",
			wantText: "win",
		},
		{
			name:     "empty choices skipped",
			input:    "data: {\"choices\":[]}\n\n",
			wantText: "",
		},
		{
			name:     "non-data field skipped",
			input:    "event: message\ndata: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n\n",
			wantText: "x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Parser
			events := p.Push(tt.input)

			if got := collectText(events); got != tt.wantText {
				t.Errorf("text = %q, want %q", got, tt.wantText)
			}
			if p.Done() != tt.wantDone {
				t.Errorf("Done() = %v, want %v", p.Done(), tt.wantDone)
			}
		})
	}
}

// TestPushSplitAcrossChunks verifies that an event split at an arbitrary
// byte boundary parses identically to one delivered whole.
func TestPushSplitAcrossChunks(t *testing.T) {
	full := "data: {\"choices\":[{\"delta\":{\"content\":\"Hello\"}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\" world\"}}]}\n\ndata: [DONE]\n\n"

	// Split at every position; the result must not depend on chunking.
	for cut := 1; cut < len(full); cut++ {
		var p Parser
		var all []model.Event
		all = append(all, p.Push(full[:cut])...)
		all = append(all, p.Push(full[cut:])...)

		if got := collectText(all); got != "Hello world" {
			t.Fatalf("cut=%d: text = %q, want %q", cut, got, "Hello world")
		}
		if !p.Done() {
			t.Fatalf("cut=%d: expected Done after [DONE]", cut)
		}
	}
}

func TestPushBuffersPartialLine(t *testing.T) {
	var p Parser

	if events := p.Push("data: {\"choices\":[{\"delta\":{\"cont"); len(events) != 0 {
		t.Fatalf("expected no events from partial line, got %d", len(events))
	}
	events := p.Push("ent\":\"abc\"}}]}\n")
	if got := collectText(events); got != "abc" {
		t.Errorf("text = %q, want %q", got, "abc")
	}
}

func TestPushAfterDoneReturnsNil(t *testing.T) {
	var p Parser
	p.Push("data: [DONE]\n")
	if !p.Done() {
		t.Fatal("expected Done after sentinel")
	}
	if events := p.Push("data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n"); events != nil {
		t.Errorf("expected nil events after done, got %v", events)
	}
}

func TestPushReasoningDelta(t *testing.T) {
	var p Parser
	events := p.Push("data: {\"choices\":[{\"delta\":{\"reasoning_content\":\"thinking\"}}]}\n")

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Type != model.EventReasoningDelta {
		t.Errorf("type = %v, want EventReasoningDelta", events[0].Type)
	}
	if events[0].Text != "thinking" {
		t.Errorf("text = %q, want %q", events[0].Text, "thinking")
	}
}
