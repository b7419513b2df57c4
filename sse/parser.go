// Package sse parses Server-Sent-Events framed chat-completion streams into
// provider-agnostic events. Chunks arrive as the transport reads them and are
// not aligned with line or event boundaries, so the parser buffers any
// trailing partial line between pushes.
package sse

import (
	"encoding/json"
	"strings"

	"murmur/model"
)

const dataPrefix = "data: "

// doneSentinel terminates the stream; nothing after it is processed.
const doneSentinel = "[DONE]"

// chunk mirrors the wire shape of one streamed completion record. Only the
// delta fields are extracted; everything else is ignored.
type chunk struct {
	Choices []struct {
		Delta struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Parser is a stateful SSE line parser. Zero value is ready to use. Not safe
// for concurrent use; a parser belongs to a single stream.
type Parser struct {
	buf  strings.Builder
	done bool
}

// Push feeds one raw chunk and returns the events parsed from every complete
// line it contained. Incomplete trailing lines are retained for the next
// Push. After the [DONE] sentinel has been seen, Push returns nil regardless
// of input.
func (p *Parser) Push(data string) []model.Event {
	if p.done {
		return nil
	}

	p.buf.WriteString(data)
	text := p.buf.String()

	idx := strings.LastIndexByte(text, '\n')
	if idx < 0 {
		return nil
	}

	complete := text[:idx]
	p.buf.Reset()
	p.buf.WriteString(text[idx+1:])

	var events []model.Event
	for _, line := range strings.Split(complete, "\n") {
		evt, stop := p.parseLine(line)
		if evt != nil {
			events = append(events, *evt)
		}
		if stop {
			p.done = true
			break
		}
	}
	return events
}

// Done reports whether the [DONE] sentinel has been seen.
func (p *Parser) Done() bool {
	return p.done
}

// parseLine handles one complete line. Returns the event to emit (or nil)
// and whether parsing must halt.
func (p *Parser) parseLine(line string) (*model.Event, bool) {
	line = strings.TrimRight(line, "\r")

	// Blank lines separate events; comment lines are keep-alives.
	if line == "" || strings.HasPrefix(line, ":") {
		return nil, false
	}
	if !strings.HasPrefix(line, dataPrefix) {
		return nil, false
	}

	payload := strings.TrimPrefix(line, dataPrefix)
	if payload == doneSentinel {
		return nil, true
	}

	var c chunk
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		// Providers interleave non-JSON keep-alive payloads; skip them.
		return nil, false
	}
	if len(c.Choices) == 0 {
		return nil, false
	}

	delta := c.Choices[0].Delta
	if delta.Content != "" {
		return &model.Event{Type: model.EventTextDelta, Text: delta.Content}, false
	}
	if delta.ReasoningContent != "" {
		return &model.Event{Type: model.EventReasoningDelta, Text: delta.ReasoningContent}, false
	}
	return nil, false
}
