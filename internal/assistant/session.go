package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/seenimoa/marketpulse/internal/store"
	"github.com/seenimoa/marketpulse/pkg/models"
)

// KV is the subset of store.Store a session persists its transcript to.
type KV interface {
	Get(ctx context.Context, userID, key string) ([]byte, error)
	Put(ctx context.Context, userID, key string, value []byte) error
	Delete(ctx context.Context, userID, key string) error
}

// Session is one user's chat: the transcript, the conversation context
// and the assistant answering it. Turns are serialized.
type Session struct {
	mu        sync.Mutex
	assistant *Assistant
	kv        KV
	userID    string
	id        string
	now       func() time.Time

	messages []models.Message
	cc       ConversationContext
}

// NewSession creates a session. Call Load before the first Send to
// restore a saved transcript.
func NewSession(a *Assistant, kv KV, userID, sessionID string) *Session {
	return &Session{
		assistant: a,
		kv:        kv,
		userID:    userID,
		id:        sessionID,
		now:       time.Now,
	}
}

// Key is the storage key of the transcript.
func (s *Session) Key() string { return "chat:" + s.id + ":messages" }

// Load restores the transcript, or seeds the welcome message when none
// is stored. Conversation context is not persisted and starts empty.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.kv.Get(ctx, s.userID, s.Key())
	switch {
	case errors.Is(err, store.ErrNotFound):
		return s.seed(ctx)
	case err != nil:
		return fmt.Errorf("load transcript: %w", err)
	}

	var msgs []models.Message
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return fmt.Errorf("decode transcript: %w", err)
	}
	if len(msgs) == 0 {
		return s.seed(ctx)
	}
	s.messages = msgs
	return nil
}

// Send runs one turn: the user message and the reply are appended and
// the transcript is persisted after each. It returns the reply message.
func (s *Session) Send(ctx context.Context, text string) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, s.message(models.RoleUser, text))
	if err := s.save(ctx); err != nil {
		return models.Message{}, err
	}

	reply, next := s.assistant.Respond(ctx, text, s.cc)
	s.cc = next
	out := s.message(models.RoleAssistant, reply)
	s.messages = append(s.messages, out)
	if err := s.save(ctx); err != nil {
		return out, err
	}
	return out, nil
}

// Reset clears the stored transcript and the context, then reseeds the
// welcome message.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(ctx, s.userID, s.Key()); err != nil {
		return fmt.Errorf("reset transcript: %w", err)
	}
	s.cc = ConversationContext{}
	return s.seed(ctx)
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Message(nil), s.messages...)
}

// Context returns the current conversation context.
func (s *Session) Context() ConversationContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cc
}

func (s *Session) seed(ctx context.Context) error {
	s.messages = []models.Message{s.message(models.RoleAssistant, WelcomeText)}
	return s.save(ctx)
}

func (s *Session) message(role models.Role, content string) models.Message {
	return models.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: s.now().UTC(),
	}
}

func (s *Session) save(ctx context.Context) error {
	raw, err := json.Marshal(s.messages)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	if err := s.kv.Put(ctx, s.userID, s.Key(), raw); err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}
	return nil
}
