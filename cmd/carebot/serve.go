package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/zhouzirui/memory-companion/backend/internal/analysis/rules"
	"github.com/zhouzirui/memory-companion/backend/internal/config"
	"github.com/zhouzirui/memory-companion/backend/internal/handler"
	"github.com/zhouzirui/memory-companion/backend/internal/service/ai"
	"github.com/zhouzirui/memory-companion/backend/internal/service/assistant"
	chatservice "github.com/zhouzirui/memory-companion/backend/internal/service/chat"
	"github.com/zhouzirui/memory-companion/backend/internal/trigger"
)

func newServeCmd(f *flags) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the message store, trigger dispatcher and HTTP API",
		Action: func(ctx context.Context, c *cli.Command) error {
			return serve(ctx, f.Config)
		},
	}
}

// newGenerator builds the reply generator shared by every command.
func newGenerator(ctx context.Context, cfg config.AIConfig) (*ai.Generator, error) {
	responder := rules.NewResponder(rules.WithClock(cfg.Now))
	logger := log.With().Str("component", "ai").Logger()

	generator, err := ai.NewGenerator(ctx, cfg, responder, logger)
	if err != nil {
		return nil, err
	}
	if generator.Remote() {
		logger.Info().Str("provider", cfg.Provider).Msg("remote reply generation enabled")
	} else {
		logger.Info().Msg("no model credential configured, replying from the rule table")
	}
	return generator, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	dispatcher := trigger.NewDispatcher(log.With().Str("component", "trigger").Logger())
	store := chatservice.NewService(chatservice.WithNotifier(dispatcher.Dispatch))

	generator, err := newGenerator(ctx, cfg.AI)
	if err != nil {
		return fmt.Errorf("init reply generator: %w", err)
	}

	replies := assistant.New(generator, store, log.With().Str("component", "assistant").Logger())
	if err := dispatcher.Register(replies.Trigger()); err != nil {
		return fmt.Errorf("register trigger: %w", err)
	}

	router := handler.NewRouter(store, dispatcher, log.With().Str("component", "http").Logger())
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", srv.Addr).Msg("carebot listening")
	err = runServer(ctx, srv)

	// Let in-flight replies land before exiting.
	dispatcher.Wait()
	return err
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
