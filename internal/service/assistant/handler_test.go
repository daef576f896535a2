package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/memory-companion/backend/internal/analysis/rules"
	"github.com/zhouzirui/memory-companion/backend/internal/config"
	"github.com/zhouzirui/memory-companion/backend/internal/model/chat"
	"github.com/zhouzirui/memory-companion/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/memory-companion/backend/internal/service/chat"
	"github.com/zhouzirui/memory-companion/backend/internal/trigger"
)

type stubReplier struct {
	reply string
	calls []string
}

func (s *stubReplier) Generate(_ context.Context, text string) string {
	s.calls = append(s.calls, text)
	return s.reply
}

type recordingStore struct {
	err    error
	pushes []pushed
}

type pushed struct {
	conversationID string
	message        chat.Message
}

func (s *recordingStore) Push(_ context.Context, conversationID string, message chat.Message) (chat.Message, error) {
	if s.err != nil {
		return chat.Message{}, s.err
	}
	s.pushes = append(s.pushes, pushed{conversationID: conversationID, message: message})
	return message, nil
}

func createdEvent(t *testing.T, conversationID string, data any) trigger.Event {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return trigger.Event{
		Kind:   trigger.KindCreated,
		Path:   chat.MessagePath(conversationID, "m1"),
		Params: map[string]string{"conversationId": conversationID, "messageId": "m1"},
		Data:   raw,
	}
}

func TestOnMessageCreatedAppendsReply(t *testing.T) {
	replier := &stubReplier{reply: "That’s wonderful! Keep smiling 😊."}
	store := &recordingStore{}
	h := New(replier, store, zerolog.Nop())
	h.now = func() time.Time { return time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC) }

	err := h.OnMessageCreated(context.Background(), createdEvent(t, "c1", map[string]string{"senderId": "u1", "text": "I am happy"}))
	require.NoError(t, err)

	assert.Equal(t, []string{"I am happy"}, replier.calls)
	require.Len(t, store.pushes, 1)
	assert.Equal(t, "c1", store.pushes[0].conversationID)
	assert.Equal(t, chat.Message{
		SenderID:  chat.AssistantID,
		Text:      "That’s wonderful! Keep smiling 😊.",
		Emotion:   "happy",
		Timestamp: "2026-10-15T09:00:00.000Z",
	}, store.pushes[0].message)
}

func TestOnMessageCreatedIgnoresInvalidPayloads(t *testing.T) {
	tests := []struct {
		name  string
		event func(t *testing.T) trigger.Event
	}{
		{name: "assistant message", event: func(t *testing.T) trigger.Event {
			return createdEvent(t, "c1", map[string]string{"senderId": chat.AssistantID, "text": "anything"})
		}},
		{name: "empty text", event: func(t *testing.T) trigger.Event {
			return createdEvent(t, "c1", map[string]string{"senderId": "u1", "text": ""})
		}},
		{name: "whitespace text", event: func(t *testing.T) trigger.Event {
			return createdEvent(t, "c1", map[string]string{"senderId": "u1", "text": " \n\t "})
		}},
		{name: "missing text", event: func(t *testing.T) trigger.Event {
			return createdEvent(t, "c1", map[string]string{"senderId": "u1"})
		}},
		{name: "null record", event: func(t *testing.T) trigger.Event {
			return createdEvent(t, "c1", nil)
		}},
		{name: "absent record", event: func(t *testing.T) trigger.Event {
			return trigger.Event{Params: map[string]string{"conversationId": "c1"}}
		}},
		{name: "not an object", event: func(t *testing.T) trigger.Event {
			return createdEvent(t, "c1", "just a string")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			replier := &stubReplier{reply: "unused"}
			store := &recordingStore{}
			h := New(replier, store, zerolog.Nop())

			require.NoError(t, h.OnMessageCreated(context.Background(), tt.event(t)))
			assert.Empty(t, replier.calls)
			assert.Empty(t, store.pushes)
		})
	}
}

func TestOnMessageCreatedPropagatesStoreFailure(t *testing.T) {
	storeErr := errors.New("database unavailable")
	h := New(&stubReplier{reply: "hello"}, &recordingStore{err: storeErr}, zerolog.Nop())

	err := h.OnMessageCreated(context.Background(), createdEvent(t, "c1", map[string]string{"senderId": "u1", "text": "hi"}))
	assert.ErrorIs(t, err, storeErr)
}

func TestTriggerContract(t *testing.T) {
	h := New(&stubReplier{}, &recordingStore{}, zerolog.Nop())
	tr := h.Trigger()

	assert.Equal(t, "onNewPatientMessage", tr.Name)
	assert.Equal(t, trigger.KindCreated, tr.Kind)
	assert.Equal(t, "conversations/{conversationId}/messages/{messageId}", tr.Pattern)
	assert.NotNil(t, tr.Handler)
}

// pipeline wires the real store, dispatcher and fallback-only generator.
func pipeline(t *testing.T) (*chatservice.Service, *trigger.Dispatcher) {
	t.Helper()
	ctx := context.Background()

	dispatcher := trigger.NewDispatcher(zerolog.Nop())
	store := chatservice.NewService(chatservice.WithNotifier(dispatcher.Dispatch))

	generator, err := ai.NewGenerator(ctx, config.AIConfig{Provider: config.ProviderOpenAI}, rules.NewResponder(), zerolog.Nop())
	require.NoError(t, err)

	h := New(generator, store, zerolog.Nop())
	require.NoError(t, dispatcher.Register(h.Trigger()))
	return store, dispatcher
}

func TestEndToEndGreeting(t *testing.T) {
	store, dispatcher := pipeline(t)
	ctx := context.Background()

	_, err := store.Push(ctx, "c1", chat.Message{SenderID: "u1", Text: "Hello"})
	require.NoError(t, err)
	dispatcher.Wait()

	messages, err := store.List(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, messages, 2)

	reply := messages[1]
	assert.Equal(t, chat.AssistantID, reply.SenderID)
	assert.Equal(t, "Hello! How are you feeling today?", reply.Text)
	assert.Equal(t, "", reply.Emotion)
	_, err = time.Parse(time.RFC3339, reply.Timestamp)
	assert.NoError(t, err)
}

func TestEndToEndSadAndTired(t *testing.T) {
	store, dispatcher := pipeline(t)
	ctx := context.Background()

	_, err := store.Push(ctx, "c1", chat.Message{SenderID: "u1", Text: "I feel sad and tired"})
	require.NoError(t, err)
	dispatcher.Wait()

	messages, err := store.List(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, messages, 2)

	// The tag is computed on the reply, which has no tagged keywords.
	assert.Equal(t, rules.ComfortReply, messages[1].Text)
	assert.Equal(t, "", messages[1].Emotion)
}

func TestEndToEndAssistantMessageIsNotAnswered(t *testing.T) {
	store, dispatcher := pipeline(t)
	ctx := context.Background()

	_, err := store.Push(ctx, "c1", chat.Message{SenderID: chat.AssistantID, Text: "anything"})
	require.NoError(t, err)
	dispatcher.Wait()

	messages, err := store.List(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}

func TestEndToEndConcurrentConversations(t *testing.T) {
	store, dispatcher := pipeline(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Push(ctx, id, chat.Message{SenderID: "u-" + id, Text: "hello"})
		}()
	}
	wg.Wait()
	dispatcher.Wait()

	for _, id := range []string{"a", "b", "c", "d"} {
		messages, err := store.List(ctx, id)
		require.NoError(t, err)
		require.Len(t, messages, 2, id)
		assert.Equal(t, rules.GreetingReply, messages[1].Text)
	}
}
