package chat

import (
	"fmt"
	"time"
)

// AssistantID marks a message as written by the auto-reply assistant.
// Messages carrying it are never answered again.
const AssistantID = "assistant_bot"

// TimestampLayout matches the ISO-8601 form written by the mobile client.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Message is one immutable entry of a conversation.
type Message struct {
	ID             string `json:"id,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
	SenderID       string `json:"senderId"`
	Text           string `json:"text"`
	Emotion        string `json:"emotion"`
	Timestamp      string `json:"timestamp"`
}

// FromAssistant reports whether the message was authored by the assistant.
func (m Message) FromAssistant() bool {
	return m.SenderID == AssistantID
}

// FormatTimestamp renders t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// MessagesPath returns the collection path of a conversation.
func MessagesPath(conversationID string) string {
	return fmt.Sprintf("conversations/%s/messages", conversationID)
}

// MessagePath returns the path of a single message.
func MessagePath(conversationID, messageID string) string {
	return MessagesPath(conversationID) + "/" + messageID
}
