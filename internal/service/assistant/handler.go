package assistant

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/memory-companion/backend/internal/analysis/emotion"
	"github.com/zhouzirui/memory-companion/backend/internal/model/chat"
	"github.com/zhouzirui/memory-companion/backend/internal/trigger"
)

// Trigger contract for new patient messages.
const (
	TriggerName    = "onNewPatientMessage"
	MessagePattern = "conversations/{conversationId}/messages/{messageId}"
)

// Replier generates reply text and never fails.
type Replier interface {
	Generate(ctx context.Context, text string) string
}

// MessageStore appends messages to a conversation.
type MessageStore interface {
	Push(ctx context.Context, conversationID string, message chat.Message) (chat.Message, error)
}

// Handler answers every new human message in a conversation with one
// assistant message.
type Handler struct {
	replies Replier
	store   MessageStore
	now     func() time.Time
	logger  zerolog.Logger
}

// New creates the trigger handler.
func New(replies Replier, store MessageStore, logger zerolog.Logger) *Handler {
	return &Handler{
		replies: replies,
		store:   store,
		now:     time.Now,
		logger:  logger,
	}
}

// Trigger returns the registration binding OnMessageCreated to message
// creation events.
func (h *Handler) Trigger() trigger.Trigger {
	return trigger.Trigger{
		Name:    TriggerName,
		Kind:    trigger.KindCreated,
		Pattern: MessagePattern,
		Handler: h.OnMessageCreated,
	}
}

// OnMessageCreated ignores absent records, assistant-authored messages and
// blank text. Only a failed store write is returned.
func (h *Handler) OnMessageCreated(ctx context.Context, event trigger.Event) error {
	conversationID := event.Params["conversationId"]
	msg, ok := decodeMessage(event.Data)
	if !ok || conversationID == "" {
		return nil
	}
	if msg.FromAssistant() || strings.TrimSpace(msg.Text) == "" {
		return nil
	}

	replyText := h.replies.Generate(ctx, msg.Text)

	_, err := h.store.Push(ctx, conversationID, chat.Message{
		SenderID:  chat.AssistantID,
		Text:      replyText,
		Emotion:   string(emotion.Tag(replyText)),
		Timestamp: chat.FormatTimestamp(h.now()),
	})
	if err != nil {
		return err
	}

	h.logger.Info().
		Str("conversation", conversationID).
		Str("reply", replyText).
		Msg("assistant replied")
	return nil
}

func decodeMessage(data json.RawMessage) (chat.Message, bool) {
	if len(data) == 0 {
		return chat.Message{}, false
	}

	var msg *chat.Message
	if err := json.Unmarshal(data, &msg); err != nil || msg == nil {
		return chat.Message{}, false
	}
	return *msg, true
}
