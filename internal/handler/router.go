package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/memory-companion/backend/internal/handler/conversation"
	"github.com/zhouzirui/memory-companion/backend/internal/handler/webhook"
	middlewarePkg "github.com/zhouzirui/memory-companion/backend/internal/middleware"
	"github.com/zhouzirui/memory-companion/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(store conversation.Store, triggers webhook.Deliverer, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	conversationHandler := conversation.New(store, logger.With().Str("component", "conversation").Logger())
	webhookHandler := webhook.New(triggers, logger.With().Str("component", "webhook").Logger())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		conversationHandler.RegisterRoutes(api)
		webhookHandler.RegisterRoutes(api)
	})

	return r
}
