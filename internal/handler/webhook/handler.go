package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/memory-companion/backend/internal/trigger"
	"github.com/zhouzirui/memory-companion/backend/pkg/utils"
)

// Deliverer runs a named trigger synchronously.
type Deliverer interface {
	Deliver(ctx context.Context, name string, event trigger.Event) error
}

// Handler lets an external event source deliver data events over HTTP. A
// non-2xx answer tells the source to apply its own retry policy.
type Handler struct {
	triggers Deliverer
	logger   zerolog.Logger
}

// New creates the webhook handler.
func New(triggers Deliverer, logger zerolog.Logger) *Handler {
	return &Handler{triggers: triggers, logger: logger}
}

// RegisterRoutes 注册触发器投递路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/triggers/{name}", h.handleDeliver)
}

type deliveryRequest struct {
	ID   string          `json:"id"`
	Kind trigger.Kind    `json:"kind"`
	Path string          `json:"path"`
	Data json.RawMessage `json:"data"`
}

func (h *Handler) handleDeliver(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var payload deliveryRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Path) == "" {
		utils.RespondError(w, http.StatusBadRequest, "path is required")
		return
	}

	err := h.triggers.Deliver(r.Context(), name, trigger.Event{
		ID:   payload.ID,
		Kind: payload.Kind,
		Path: payload.Path,
		Data: payload.Data,
	})

	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, trigger.ErrTriggerNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, trigger.ErrPathMismatch):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Err(err).Str("trigger", name).Str("path", payload.Path).Msg("trigger delivery failed")
		utils.RespondError(w, http.StatusBadGateway, "trigger failed")
	}
}
