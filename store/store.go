// Package store keeps the in-process collection of conversations: every
// transcript lives here for the lifetime of the session, together with the
// selection pointer the chat controller operates on. Durable persistence is
// a separate concern layered on top (see the storage package).
package store

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sahilm/fuzzy"

	"murmur/model"
)

// DefaultTitle is the title of a conversation before the first message names it.
const DefaultTitle = "New Chat"

// ConversationStore owns all Conversation and Message values. Methods are
// not internally synchronized; the chat controller serializes all mutation
// (a single generation may be in flight at a time).
type ConversationStore struct {
	conversations map[string]*model.Conversation
	order         []string // insertion order, used to break LastUpdated ties and pick delete fallback
	selected      string
}

// NewConversationStore creates an empty store with nothing selected.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		conversations: make(map[string]*model.Conversation),
	}
}

// Create adds a fresh conversation, selects it, and returns it.
func (s *ConversationStore) Create() *model.Conversation {
	conv := &model.Conversation{
		ID:          uuid.New().String(),
		Title:       DefaultTitle,
		LastUpdated: time.Now(),
	}
	s.conversations[conv.ID] = conv
	s.order = append(s.order, conv.ID)
	s.selected = conv.ID
	return conv
}

// Select moves the selection pointer. Passing an empty id clears the
// selection. The id is not validated; selecting an unknown id simply makes
// Selected return nil.
func (s *ConversationStore) Select(id string) {
	s.selected = id
}

// Selected returns the currently selected conversation, or nil.
func (s *ConversationStore) Selected() *model.Conversation {
	if s.selected == "" {
		return nil
	}
	return s.conversations[s.selected]
}

// Get returns a conversation by id, or nil.
func (s *ConversationStore) Get(id string) *model.Conversation {
	return s.conversations[id]
}

// Delete removes a conversation. Deleting an unknown id is a no-op and does
// not alter the selection. If the deleted conversation was selected, the
// selection falls to the most recently created remaining conversation.
func (s *ConversationStore) Delete(id string) {
	if _, ok := s.conversations[id]; !ok {
		return
	}
	delete(s.conversations, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.selected == id {
		s.selected = ""
		if len(s.order) > 0 {
			s.selected = s.order[len(s.order)-1]
		}
	}
}

// ListOrdered returns all conversations sorted by LastUpdated descending.
// Ties keep insertion order (stable sort).
func (s *ConversationStore) ListOrdered() []*model.Conversation {
	out := make([]*model.Conversation, 0, len(s.conversations))
	for _, id := range s.order {
		out = append(out, s.conversations[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastUpdated.After(out[j].LastUpdated)
	})
	return out
}

// AppendMessage appends to a conversation's transcript and bumps LastUpdated.
func (s *ConversationStore) AppendMessage(id string, msg model.Message) error {
	conv, ok := s.conversations[id]
	if !ok {
		return fmt.Errorf("append to unknown conversation %s: %w", id, model.ErrInvalidState)
	}
	conv.Messages = append(conv.Messages, msg)
	conv.LastUpdated = time.Now()
	return nil
}

// ReplaceLastMessage swaps the final transcript element for a new value.
// Only the last element may ever be replaced; this is how streamed text
// flows into the placeholder assistant message.
func (s *ConversationStore) ReplaceLastMessage(id string, msg model.Message) error {
	conv, ok := s.conversations[id]
	if !ok {
		return fmt.Errorf("replace in unknown conversation %s: %w", id, model.ErrInvalidState)
	}
	if len(conv.Messages) == 0 {
		return fmt.Errorf("replace last message of empty conversation %s: %w", id, model.ErrInvalidState)
	}
	conv.Messages[len(conv.Messages)-1] = msg
	return nil
}

// Rename sets a conversation's title and bumps LastUpdated.
func (s *ConversationStore) Rename(id, title string) error {
	conv, ok := s.conversations[id]
	if !ok {
		return fmt.Errorf("rename unknown conversation %s: %w", id, model.ErrInvalidState)
	}
	conv.Title = title
	conv.LastUpdated = time.Now()
	return nil
}

// Search fuzzy-matches conversations by title, best match first. An empty
// query returns nothing rather than everything; callers wanting the full
// list use ListOrdered.
func (s *ConversationStore) Search(query string) []*model.Conversation {
	if query == "" {
		return nil
	}
	ordered := s.ListOrdered()
	targets := make([]string, len(ordered))
	for i, c := range ordered {
		targets[i] = c.Title
	}
	matches := fuzzy.Find(query, targets)
	out := make([]*model.Conversation, len(matches))
	for i, match := range matches {
		out[i] = ordered[match.Index]
	}
	return out
}

// Touch bumps LastUpdated without any other mutation. The controller uses
// it when a generation finishes so ordering reflects streaming completion,
// not just the last append.
func (s *ConversationStore) Touch(id string) {
	if conv, ok := s.conversations[id]; ok {
		conv.LastUpdated = time.Now()
	}
}
