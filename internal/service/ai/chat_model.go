package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/zhouzirui/memory-companion/backend/internal/config"
)

var errNoChoices = errors.New("chat completion returned no choices")

// newChatModel 根据配置的 provider 创建模型实例。
func newChatModel(ctx context.Context, cfg config.AIConfig) (model.BaseChatModel, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("%s credential missing", cfg.Provider)
	}

	switch cfg.Provider {
	case config.ProviderArk:
		temperature := float32(cfg.Temperature)
		maxTokens := cfg.MaxTokens
		chatModel, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
			BaseURL:     cfg.ArkBaseURL,
			Region:      cfg.ArkRegion,
			APIKey:      cfg.ArkAPIKey,
			Model:       cfg.ArkModel,
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
		})
		if err != nil {
			return nil, err
		}
		return chatModel, nil
	default:
		return newOpenAIChatModel(cfg), nil
	}
}

// openAIChatModel adapts the OpenAI chat completions endpoint to eino's
// model interface. It makes exactly one request per call.
type openAIChatModel struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int64
}

func newOpenAIChatModel(cfg config.AIConfig) *openAIChatModel {
	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
	)

	return &openAIChatModel{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   int64(cfg.MaxTokens),
	}
}

func (m *openAIChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	completion, err := m.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(m.model),
		Messages:    toOpenAIMessages(input),
		Temperature: openai.Float(m.temperature),
		MaxTokens:   openai.Int(m.maxTokens),
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion request failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, errNoChoices
	}

	return schema.AssistantMessage(completion.Choices[0].Message.Content, nil), nil
}

func (m *openAIChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func toOpenAIMessages(input []*schema.Message) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(input))
	for _, msg := range input {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case schema.Assistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}
	return messages
}
