// Package chat owns the generation lifecycle: it turns a submitted message
// into a backend stream, folds the streamed deltas into the selected
// conversation's transcript, and exposes a cancellable
// idle/submitting/streaming/error status to observers. At most one
// generation is in flight at a time, process-wide.
package chat

import (
	"context"
	"strings"
	"sync"

	"murmur/config"
	"murmur/model"
	"murmur/storage"
	"murmur/store"
	"murmur/title"
)

// StoppedSuffix is appended to a partial response when the user stops a
// generation that had already produced text.
const StoppedSuffix = "\n\n*(stopped by user)*"

// Observer is invoked after every consistent transcript/status change. It is
// called with the controller's lock held and must not call any of the
// controller's locking methods (Status, Stop, the snapshot accessors).
type Observer func()

// Controller is the orchestration state machine. All transcript mutation
// funnels through it; the store itself is unsynchronized.
//
// Each accepted Submit gets a generation number. A stopped generation's
// stream keeps draining in the background, and a new Submit may be accepted
// while it does; the stale generation compares its number against the
// current one before touching shared state, so it can never disturb its
// successor.
type Controller struct {
	mu sync.Mutex

	store   *store.ConversationStore
	backend model.Backend
	titler  title.Generator  // optional; nil means fallback titles only
	archive *storage.Archive // optional; nil disables auto-save

	status          model.GenerationStatus
	generation      uint64
	cancelRequested bool
	cancelStream    context.CancelFunc

	// streamConvID/streamPlaceholder identify the transcript tail of the
	// current generation, so Stop can mark it without racing the stream.
	streamConvID      string
	streamPlaceholder model.Message

	systemPrompt string
	temperature  float64
	maxTokens    int

	reasoning strings.Builder
	observer  Observer
}

// Options carries the request parameters applied to every generation.
type Options struct {
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
}

// NewController wires the state machine to its collaborators. titler and
// archive may be nil.
func NewController(s *store.ConversationStore, b model.Backend, titler title.Generator, archive *storage.Archive, opts Options) *Controller {
	return &Controller{
		store:        s,
		backend:      b,
		titler:       titler,
		archive:      archive,
		status:       model.StatusIdle,
		systemPrompt: opts.SystemPrompt,
		temperature:  opts.Temperature,
		maxTokens:    opts.MaxTokens,
	}
}

// SetObserver registers the single change listener. Call before the first
// Submit; the observer is not swappable mid-generation.
func (c *Controller) SetObserver(fn Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observer = fn
}

// Status returns the current generation status.
func (c *Controller) Status() model.GenerationStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Store exposes the conversation store for persistence layering. The store
// is not internally synchronized; while a generation or title rename may be
// running, read through the controller's snapshot accessors instead.
func (c *Controller) Store() *store.ConversationStore {
	return c.store
}

// LastReasoning returns the reasoning text accumulated during the most
// recent generation. Reasoning deltas are kept out of the visible
// transcript but are never dropped.
func (c *Controller) LastReasoning() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reasoning.String()
}

// ConversationSummary is a read-only listing row snapshotted under the
// controller lock.
type ConversationSummary struct {
	ID           string
	Title        string
	MessageCount int
}

// NewConversation creates and selects a conversation, returning its id.
func (c *Controller) NewConversation() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Create().ID
}

// SelectConversation moves the selection pointer.
func (c *Controller) SelectConversation(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Select(id)
}

// DeleteConversation removes a conversation. Unknown ids are a no-op.
func (c *Controller) DeleteConversation(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Delete(id)
}

// ListConversations snapshots the store's ordering. Safe to call from any
// goroutine while a generation or title rename is in flight.
func (c *Controller) ListConversations() []ConversationSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return summarize(c.store.ListOrdered())
}

// SearchConversations snapshots the fuzzy title matches for a query.
func (c *Controller) SearchConversations(query string) []ConversationSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return summarize(c.store.Search(query))
}

func summarize(convs []*model.Conversation) []ConversationSummary {
	out := make([]ConversationSummary, len(convs))
	for i, conv := range convs {
		out[i] = ConversationSummary{
			ID:           conv.ID,
			Title:        conv.Title,
			MessageCount: len(conv.Messages),
		}
	}
	return out
}

// Transcript returns a copy of a conversation's messages, snapshotted under
// the controller lock. Returns nil for unknown ids.
func (c *Controller) Transcript(convID string) []model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	conv := c.store.Get(convID)
	if conv == nil {
		return nil
	}
	out := make([]model.Message, len(conv.Messages))
	copy(out, conv.Messages)
	return out
}

// notify fires the observer. Callers hold c.mu, so the observer always sees
// the transcript and status in a consistent pair.
func (c *Controller) notify() {
	if c.observer != nil {
		c.observer()
	}
}

// Submit runs one full generation session: it appends the user message,
// streams the response into the transcript, and blocks until the status is
// back to Idle. Empty input and submissions while a generation is already
// running are silent no-ops. Callers that must not block run Submit in its
// own goroutine and watch the observer.
func (c *Controller) Submit(ctx context.Context, text, modelID string) {
	trimmed := strings.TrimSpace(text)

	c.mu.Lock()
	if trimmed == "" || c.status != model.StatusIdle {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[chat] submit rejected (status=%s, empty=%v)", c.status, trimmed == "")
		}
		c.mu.Unlock()
		return
	}
	c.status = model.StatusSubmitting
	c.cancelRequested = false
	c.generation++
	gen := c.generation
	c.reasoning.Reset()

	conv := c.store.Selected()
	if conv == nil {
		conv = c.store.Create()
	}
	convID := conv.ID

	userMsg := model.NewMessage(model.RoleUser, trimmed)
	if err := c.store.AppendMessage(convID, userMsg); err != nil && config.DebugLog != nil {
		config.DebugLog.Printf("[chat] append user message: %v", err)
	}
	firstMessage := len(conv.Messages) == 1
	c.notify()

	if firstMessage {
		go c.nameConversation(convID, trimmed)
	}

	c.status = model.StatusStreaming
	c.notify()

	placeholder := model.NewMessage(model.RoleAssistant, "")
	if err := c.store.AppendMessage(convID, placeholder); err != nil && config.DebugLog != nil {
		config.DebugLog.Printf("[chat] append placeholder: %v", err)
	}
	c.streamConvID = convID
	c.streamPlaceholder = placeholder
	c.notify()

	// Snapshot the history without the empty placeholder; that is what the
	// provider should see.
	history := make([]model.Message, len(conv.Messages)-1)
	copy(history, conv.Messages[:len(conv.Messages)-1])

	streamCtx, cancel := context.WithCancel(ctx)
	c.cancelStream = cancel
	req := model.ChatRequest{
		Messages:     history,
		Model:        modelID,
		SystemPrompt: c.systemPrompt,
		Temperature:  c.temperature,
		MaxTokens:    c.maxTokens,
	}
	c.mu.Unlock()

	defer cancel()
	events := c.backend.StreamChat(streamCtx, req)
	c.consume(events, gen, convID, placeholder, cancel)
}

// consume drains the event stream, folding deltas into the transcript. On
// cancellation, or once a newer generation has superseded this one, it stops
// processing immediately, cancels the backend call, and keeps draining so
// the producer goroutine can exit.
func (c *Controller) consume(events <-chan model.Event, gen uint64, convID string, placeholder model.Message, cancel context.CancelFunc) {
	var acc strings.Builder

	for evt := range events {
		c.mu.Lock()
		if c.cancelRequested || c.generation != gen {
			c.mu.Unlock()
			cancel()
			continue // drain without processing
		}

		switch evt.Type {
		case model.EventTextDelta:
			acc.WriteString(evt.Text)
			if err := c.store.ReplaceLastMessage(convID, placeholder.WithContent(acc.String())); err != nil {
				// Conversation deleted mid-stream. Nothing left to
				// generate into; wind the generation down.
				if config.DebugLog != nil {
					config.DebugLog.Printf("[chat] replace streamed message: %v", err)
				}
				c.mu.Unlock()
				cancel()
				c.finalize(gen, convID)
				return
			}
			c.notify()
			c.mu.Unlock()

		case model.EventReasoningDelta:
			c.reasoning.WriteString(evt.Text)
			c.mu.Unlock()

		case model.EventDone:
			c.mu.Unlock()
			c.finalize(gen, convID)
			return

		case model.EventError:
			failure := evt.Err
			c.mu.Unlock()
			cancel()
			c.fail(gen, convID, placeholder, acc.String(), failure)
			return

		default:
			c.mu.Unlock()
		}
	}

	// Channel closed without a terminal event reaching us, only possible
	// after cancellation made the producer give up.
	c.finalize(gen, convID)
}

// finalize returns the controller to Idle on the normal and cancelled
// paths. A generation superseded by a newer Submit leaves every piece of
// shared state to its successor.
func (c *Controller) finalize(gen uint64, convID string) {
	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return
	}
	c.status = model.StatusIdle
	c.cancelStream = nil
	c.store.Touch(convID)
	c.notify()
	c.mu.Unlock()

	c.autoSave(convID)
}

// fail completes the failure path: an empty placeholder is replaced by the
// error-formatted message; partial content is preserved and the error is
// appended as a new assistant message instead. Superseded generations
// record nothing.
func (c *Controller) fail(gen uint64, convID string, placeholder model.Message, accumulated string, err error) {
	if config.DebugLog != nil {
		config.DebugLog.Printf("[chat] generation failed: %v", err)
	}

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return
	}
	c.status = model.StatusError
	errText := FormatError(err)
	if accumulated == "" {
		if rerr := c.store.ReplaceLastMessage(convID, placeholder.WithContent(errText)); rerr != nil && config.DebugLog != nil {
			config.DebugLog.Printf("[chat] record failure: %v", rerr)
		}
	} else {
		if aerr := c.store.AppendMessage(convID, model.NewMessage(model.RoleAssistant, errText)); aerr != nil && config.DebugLog != nil {
			config.DebugLog.Printf("[chat] record failure: %v", aerr)
		}
	}
	c.notify()

	c.status = model.StatusIdle
	c.cancelStream = nil
	c.store.Touch(convID)
	c.notify()
	c.mu.Unlock()

	c.autoSave(convID)
}

// Stop requests cancellation of the running generation. Valid only while
// streaming; otherwise a no-op. The stopped-by-user suffix is applied here,
// under the lock, before any later Submit can touch the transcript; the
// stale stream keeps draining in the background and no further text may
// land after this point.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != model.StatusStreaming {
		return
	}
	c.cancelRequested = true
	if c.cancelStream != nil {
		c.cancelStream()
	}
	c.applyStoppedSuffix()
	c.status = model.StatusIdle
	c.notify()
}

// applyStoppedSuffix marks the current generation's partial response as
// user-stopped. Caller holds c.mu. An empty placeholder is left untouched.
func (c *Controller) applyStoppedSuffix() {
	conv := c.store.Get(c.streamConvID)
	if conv == nil || len(conv.Messages) == 0 {
		return
	}
	last := conv.Messages[len(conv.Messages)-1]
	if last.ID != c.streamPlaceholder.ID || last.Content == "" {
		return
	}
	if err := c.store.ReplaceLastMessage(c.streamConvID, last.WithContent(last.Content+StoppedSuffix)); err != nil && config.DebugLog != nil {
		config.DebugLog.Printf("[chat] mark stopped response: %v", err)
	}
}

// nameConversation runs title generation off the main flow and applies the
// result through the controller's lock, the same serialized mutation point
// the stream uses. Failures fall back to the deterministic local rule and
// never surface.
func (c *Controller) nameConversation(convID, firstMessage string) {
	name := ""
	if c.titler != nil {
		generated, err := c.titler.GenerateTitle(context.Background(), firstMessage)
		if err == nil {
			name = generated
		} else if config.DebugLog != nil {
			config.DebugLog.Printf("[chat] title generation failed, using fallback: %v", err)
		}
	}
	if name == "" {
		name = FallbackTitle(firstMessage)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store.Get(convID) == nil {
		return // deleted while the title call was in flight
	}
	if err := c.store.Rename(convID, name); err != nil && config.DebugLog != nil {
		config.DebugLog.Printf("[chat] rename conversation: %v", err)
	}
	c.notify()
}

// FallbackTitle derives a title locally when the naming collaborator fails:
// messages of up to four words are used verbatim, longer ones are cut to
// their first four words plus an ellipsis.
func FallbackTitle(text string) string {
	words := strings.Fields(text)
	if len(words) <= 4 {
		return strings.TrimSpace(text)
	}
	return strings.Join(words[:4], " ") + "…"
}

// autoSave archives the conversation if an archive is attached. Failures
// are logged and otherwise ignored; persistence is best-effort.
func (c *Controller) autoSave(convID string) {
	if c.archive == nil {
		return
	}
	c.mu.Lock()
	conv := c.store.Get(convID)
	if conv == nil {
		c.mu.Unlock()
		return
	}
	snapshot := &model.Conversation{
		ID:          conv.ID,
		Title:       conv.Title,
		Messages:    make([]model.Message, len(conv.Messages)),
		LastUpdated: conv.LastUpdated,
	}
	copy(snapshot.Messages, conv.Messages)
	c.mu.Unlock()

	if err := c.archive.SaveConversation(snapshot); err != nil && config.DebugLog != nil {
		config.DebugLog.Printf("[chat] auto-save failed: %v", err)
	}
}
