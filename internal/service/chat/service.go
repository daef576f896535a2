package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zhouzirui/memory-companion/backend/internal/model/chat"
	"github.com/zhouzirui/memory-companion/backend/internal/trigger"
)

var ErrConversationRequired = errors.New("conversation id is required")

// subscriberBuffer bounds how far a realtime listener may fall behind before
// messages are dropped for it.
const subscriberBuffer = 16

// Notifier receives a created event for every appended message.
type Notifier func(ctx context.Context, event trigger.Event)

// Option configures the Service.
type Option func(*Service)

// WithNotifier registers the callback invoked after each append.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notify = n
	}
}

// WithClock overrides the clock used for missing timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service is an in-memory, append-only realtime message store keyed by
// conversation. Messages are never updated or removed.
type Service struct {
	mu          sync.RWMutex
	messages    map[string][]chat.Message
	subscribers map[string]map[uint64]chan chat.Message
	nextSub     uint64
	notify      Notifier
	now         func() time.Time
}

// NewService bootstraps an empty store.
func NewService(opts ...Option) *Service {
	s := &Service{
		messages:    make(map[string][]chat.Message),
		subscribers: make(map[string]map[uint64]chan chat.Message),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Push appends message to the conversation under a fresh id and emits a
// created event. The stored copy is returned.
func (s *Service) Push(ctx context.Context, conversationID string, message chat.Message) (chat.Message, error) {
	if conversationID == "" {
		return chat.Message{}, ErrConversationRequired
	}

	message.ID = uuid.NewString()
	message.ConversationID = conversationID
	if message.Timestamp == "" {
		message.Timestamp = chat.FormatTimestamp(s.now())
	}

	data, err := json.Marshal(message)
	if err != nil {
		return chat.Message{}, fmt.Errorf("encode message: %w", err)
	}

	s.mu.Lock()
	s.messages[conversationID] = append(s.messages[conversationID], message)
	for _, ch := range s.subscribers[conversationID] {
		select {
		case ch <- message:
		default:
		}
	}
	s.mu.Unlock()

	if s.notify != nil {
		s.notify(ctx, trigger.Event{
			Kind: trigger.KindCreated,
			Path: chat.MessagePath(conversationID, message.ID),
			Data: data,
		})
	}

	return message, nil
}

// List returns a copy of the conversation's messages in append order.
func (s *Service) List(_ context.Context, conversationID string) ([]chat.Message, error) {
	if conversationID == "" {
		return nil, ErrConversationRequired
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := s.messages[conversationID]
	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}

// Subscribe streams messages appended to the conversation from now on. The
// returned cancel func closes the channel.
func (s *Service) Subscribe(conversationID string) (<-chan chat.Message, func()) {
	ch := make(chan chat.Message, subscriberBuffer)

	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	if s.subscribers[conversationID] == nil {
		s.subscribers[conversationID] = make(map[uint64]chan chat.Message)
	}
	s.subscribers[conversationID][id] = ch
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers[conversationID], id)
			if len(s.subscribers[conversationID]) == 0 {
				delete(s.subscribers, conversationID)
			}
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}
