package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/memory-companion/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/memory-companion/backend/internal/service/chat"
	"github.com/zhouzirui/memory-companion/backend/pkg/utils"
)

// Store is the subset of the message store used over HTTP.
type Store interface {
	Push(ctx context.Context, conversationID string, message chat.Message) (chat.Message, error)
	List(ctx context.Context, conversationID string) ([]chat.Message, error)
	Subscribe(conversationID string) (<-chan chat.Message, func())
}

// Handler exposes conversations to the mobile client.
type Handler struct {
	store    Store
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// New 创建会话处理器
func New(store Store, logger zerolog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/conversations/{conversationID}", func(r chi.Router) {
		r.Post("/messages", h.handlePushMessage)
		r.Get("/messages", h.handleListMessages)
		r.Get("/ws", h.handleWebSocket)
	})
}

type pushRequest struct {
	SenderID string `json:"senderId"`
	Text     string `json:"text"`
}

// handlePushMessage 写入一条来自用户的消息，助手回复由触发器异步追加。
func (h *Handler) handlePushMessage(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	var payload pushRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	payload.SenderID = strings.TrimSpace(payload.SenderID)
	if payload.SenderID == "" {
		utils.RespondError(w, http.StatusBadRequest, "senderId is required")
		return
	}
	if payload.SenderID == chat.AssistantID {
		utils.RespondError(w, http.StatusForbidden, "sender id is reserved")
		return
	}

	stored, err := h.store.Push(r.Context(), conversationID, chat.Message{
		SenderID: payload.SenderID,
		Text:     payload.Text,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, chatservice.ErrConversationRequired) {
			status = http.StatusBadRequest
		}
		utils.RespondError(w, status, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, stored)
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	messages, err := h.store.List(r.Context(), conversationID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, chatservice.ErrConversationRequired) {
			status = http.StatusBadRequest
		}
		utils.RespondError(w, status, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"messages": messages})
}
