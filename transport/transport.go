// Package transport issues streaming chat-completion requests over HTTP and
// exposes the response body as a sequence of raw text chunks. It knows
// nothing about SSE framing; the sse package parses what this package reads.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"murmur/config"
	"murmur/model"
)

// DefaultTimeout bounds the whole request including the streamed read.
const DefaultTimeout = 120 * time.Second

// Client issues requests against one chat-completions endpoint.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
}

// NewClient creates a transport client. The endpoint is the full
// chat-completions URL. apiKey may be empty for proxy endpoints that
// authenticate server-side.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   endpoint,
		apiKey:     apiKey,
	}
}

// wireMessage is the {role, content} pair of the completions request body.
type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// errorBody is the common {"error": {"message": ...}} shape providers return
// on non-2xx responses. Some send a bare {"message": ...} instead.
type errorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

// Stream opens a streaming request. On a non-2xx response the full error
// body is read and returned as a *model.ProviderError; network and timeout
// failures are wrapped in model.ErrTransport. On success the caller owns the
// returned Stream and must drain or Close it.
func (c *Client) Stream(ctx context.Context, req model.ChatRequest) (*Stream, error) {
	msgs := make([]wireMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		msgs = append(msgs, wireMessage{Role: string(model.RoleSystem), Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		msgs = append(msgs, wireMessage{Role: string(m.Role), Content: m.Content})
	}

	body, err := json.Marshal(completionRequest{
		Model:       req.Model,
		Messages:    msgs,
		Stream:      true,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyNetworkError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, decodeProviderError(resp)
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[transport] streaming from %s (model=%s, %d messages)", c.endpoint, req.Model, len(msgs))
	}

	return &Stream{body: resp.Body}, nil
}

// classifyNetworkError wraps dial/read/timeout failures as ErrTransport.
// The underlying error text never contains credentials.
func classifyNetworkError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: request timed out: %v", model.ErrTransport, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: request cancelled", model.ErrTransport)
	}
	return fmt.Errorf("%w: %v", model.ErrTransport, err)
}

// decodeProviderError reads the full error body of a failed response.
func decodeProviderError(resp *http.Response) error {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return &model.ProviderError{StatusCode: resp.StatusCode}
	}

	var eb errorBody
	msg := ""
	if json.Unmarshal(raw, &eb) == nil {
		msg = eb.Error.Message
		if msg == "" {
			msg = eb.Message
		}
	}
	if msg == "" {
		msg = string(bytes.TrimSpace(raw))
	}

	return &model.ProviderError{StatusCode: resp.StatusCode, Message: msg}
}

// Stream is a lazy sequence of raw text chunks read from the response body.
// Iterate with Next/Current; always Close when done consuming so the
// connection is released promptly.
type Stream struct {
	body    io.ReadCloser
	current string
	err     error
	closed  bool
}

// Next reads the next chunk. It returns false at end of stream or on error;
// check Err afterwards to distinguish the two.
func (s *Stream) Next() bool {
	if s.closed || s.err != nil {
		return false
	}

	buf := make([]byte, 4096)
	n, err := s.body.Read(buf)
	if n > 0 {
		s.current = string(buf[:n])
		// A read can return data and a terminal error together; surface the
		// data now and the error on the following call.
		if err != nil && err != io.EOF {
			s.err = classifyNetworkError(err)
		}
		return true
	}
	if err != nil && err != io.EOF {
		s.err = classifyNetworkError(err)
	}
	return false
}

// Current returns the chunk read by the last successful Next.
func (s *Stream) Current() string {
	return s.current
}

// Err returns the first failure encountered while reading, or nil if the
// stream ended cleanly.
func (s *Stream) Err() error {
	return s.err
}

// Close releases the underlying connection. Safe to call more than once.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}
