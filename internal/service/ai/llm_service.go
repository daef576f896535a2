package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/memory-companion/backend/internal/config"
)

var errEmptyReply = errors.New("model returned empty content")

// Fallback produces a reply without any network access.
type Fallback interface {
	Reply(text string) string
}

// Generator produces the assistant's reply text. It tries the configured
// language model once and answers from the fallback whenever the model is
// not configured or the call fails in any way.
type Generator struct {
	chain    compose.Runnable[map[string]any, *schema.Message]
	fallback Fallback
	logger   zerolog.Logger
}

// NewGenerator builds a Generator. Without a credential in cfg the remote
// branch stays disarmed and no network call is ever made.
func NewGenerator(ctx context.Context, cfg config.AIConfig, fallback Fallback, logger zerolog.Logger) (*Generator, error) {
	g := &Generator{fallback: fallback, logger: logger}
	if !cfg.Enabled() {
		return g, nil
	}

	chatModel, err := newChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	g.chain, err = compileChain(ctx, chatModel)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func compileChain(ctx context.Context, chatModel model.BaseChatModel) (compose.Runnable[map[string]any, *schema.Message], error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile reply chain: %w", err)
	}
	return runnable, nil
}

// Remote reports whether replies are attempted through the language model.
func (g *Generator) Remote() bool {
	return g.chain != nil
}

// Generate always returns a non-empty reply.
func (g *Generator) Generate(ctx context.Context, text string) string {
	if g.chain == nil {
		return g.fallback.Reply(text)
	}

	reply, err := g.invoke(ctx, text)
	if err != nil {
		g.logger.Error().Err(err).Msg("remote reply generation failed, using rule-based reply")
		return g.fallback.Reply(text)
	}
	return reply
}

func (g *Generator) invoke(ctx context.Context, text string) (string, error) {
	msg, err := g.chain.Invoke(ctx, map[string]any{
		"system": CompanionPersona,
		"query":  text,
	})
	if err != nil {
		return "", err
	}
	if msg == nil {
		return "", errEmptyReply
	}

	reply := strings.TrimSpace(msg.Content)
	if reply == "" {
		return "", errEmptyReply
	}
	return reply, nil
}
