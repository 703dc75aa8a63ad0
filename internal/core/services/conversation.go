package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/askdb-core/internal/core/domain"
	"github.com/custodia-labs/askdb-core/internal/core/ports/driven"
	"github.com/custodia-labs/askdb-core/internal/logger"
)

// ConversationService owns all per-session mutable state: chat history
// and the selection notice slot. Each session is guarded by its own
// lock so concurrent requests for the same session cannot race on
// writes, while different sessions proceed fully in parallel.
type ConversationService struct {
	store driven.ConversationStore

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewConversationService creates a new conversation service.
func NewConversationService(store driven.ConversationStore) *ConversationService {
	return &ConversationService{
		store: store,
		locks: make(map[string]*sync.Mutex),
	}
}

// sessionLock returns the mutex owning the given session.
func (s *ConversationService) sessionLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

// Start creates a new conversation and returns it.
func (s *ConversationService) Start(ctx context.Context, translateChat bool) (*domain.Conversation, error) {
	now := time.Now().UTC()
	conv := &domain.Conversation{
		ID:            uuid.NewString(),
		TranslateChat: translateChat,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Save(ctx, conv); err != nil {
		return nil, fmt.Errorf("save conversation: %w", err)
	}
	logger.Debug("Started conversation %s (translate=%t)", conv.ID, translateChat)
	return conv, nil
}

// Get retrieves a conversation by session ID.
func (s *ConversationService) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	return s.store.Get(ctx, id)
}

// GetOrCreate retrieves the conversation for a session, creating it if
// the session is new.
func (s *ConversationService) GetOrCreate(ctx context.Context, id string) (*domain.Conversation, error) {
	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	conv, err := s.store.Get(ctx, id)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get conversation %s: %w", id, err)
	}

	now := time.Now().UTC()
	conv = &domain.Conversation{ID: id, CreatedAt: now, UpdatedAt: now}
	if err := s.store.Save(ctx, conv); err != nil {
		return nil, fmt.Errorf("save conversation: %w", err)
	}
	return conv, nil
}

// ApplyNotice writes the localised selection notice for the session.
// The translated text is used when the conversation has TranslateChat
// set, the neutral text otherwise. NoticeNone writes nothing.
func (s *ConversationService) ApplyNotice(
	ctx context.Context, id string, kind domain.NoticeKind, catalog domain.MessageCatalog,
) error {
	text, ok := catalog.Text(kind)
	if !ok {
		return nil
	}

	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	conv, err := s.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get conversation %s: %w", id, err)
	}

	conv.Notice = text.Pick(conv.TranslateChat)
	conv.UpdatedAt = time.Now().UTC()
	if err := s.store.Save(ctx, conv); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	logger.Debug("Notice %s written to conversation %s", kind, id)
	return nil
}

// AppendTurn records a completed user/assistant exchange.
func (s *ConversationService) AppendTurn(ctx context.Context, id, question, answer string) error {
	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	conv, err := s.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get conversation %s: %w", id, err)
	}

	conv.History = append(conv.History, domain.ChatTurn{Question: question, Answer: answer})
	conv.UpdatedAt = time.Now().UTC()
	if err := s.store.Save(ctx, conv); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}
