package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/duplexagent/core/internal/agent"
	"github.com/duplexagent/core/pkg/models"
)

// OpenAIProvider implements agent.Provider against the chat completions
// API. The persisted message format already mirrors OpenAI's shape, so
// this adapter's conversion is the most direct of the three.
type OpenAIProvider struct {
	BaseProvider
	client       *openai.Client
	defaultModel string
}

// OpenAIConfig configures an OpenAIProvider.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	MaxRetries   int
	RetryDelay   time.Duration
	DefaultModel string
}

// NewOpenAIProvider builds a provider against OpenAI's chat completions API.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: api key is required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.DefaultModel
	if model == "" {
		model = openai.GPT4o
	}
	return &OpenAIProvider{
		BaseProvider: NewBaseProvider("openai", cfg.MaxRetries, cfg.RetryDelay),
		client:       openai.NewClientWithConfig(clientCfg),
		defaultModel: model,
	}, nil
}

// Name implements agent.Provider.
func (p *OpenAIProvider) Name() string { return "openai" }

// Complete implements agent.Provider.
func (p *OpenAIProvider) Complete(ctx context.Context, req *agent.CompletionRequest) ([]agent.Event, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	messages := convertOpenAIMessages(req.Messages, req.System)
	tools := convertOpenAITools(req.Tools)

	params := openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
		Tools:    tools,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = req.MaxTokens
	}

	var resp openai.ChatCompletionResponse
	err := p.Retry(ctx, func(err error) bool { return IsRetryable(NewProviderError("openai", model, err)) }, func() error {
		var callErr error
		resp, callErr = p.client.CreateChatCompletion(ctx, params)
		return callErr
	})
	if err != nil {
		return nil, NewProviderError("openai", model, err)
	}
	if len(resp.Choices) == 0 {
		return nil, NewProviderError("openai", model, fmt.Errorf("empty response"))
	}

	return openAIEventsFromChoice(resp.Choices[0]), nil
}

func convertOpenAIMessages(messages []models.Message, system string) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}

	for _, m := range messages {
		switch m.Role {
		case models.RoleSystem:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: m.Content})
		case models.RoleUser:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.Content})
		case models.RoleAssistant:
			msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Content}
			for _, tc := range m.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   tc.CallID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Args),
					},
				})
			}
			out = append(out, msg)
		case models.RoleTool:
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    m.Content,
				ToolCallID: m.ToolCallID,
			})
		}
	}
	return out
}

func convertOpenAITools(tools []agent.Tool) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		var params any
		if len(t.Parameters) > 0 {
			_ = json.Unmarshal(t.Parameters, &params)
		}
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		})
	}
	return out
}

func openAIEventsFromChoice(choice openai.ChatCompletionChoice) []agent.Event {
	var events []agent.Event
	if choice.Message.Content != "" {
		events = append(events, agent.Event{Kind: agent.EventText, Text: choice.Message.Content, Done: true})
	}
	for _, tc := range choice.Message.ToolCalls {
		events = append(events, agent.Event{
			Kind:     agent.EventToolCall,
			ToolName: tc.Function.Name,
			CallID:   tc.ID,
			Args:     json.RawMessage(tc.Function.Arguments),
		})
	}
	return events
}
