// Package providers implements LLM provider adapters for the agent
// runtime's Provider interface: each adapter converts history and tools
// into the wire shape of one backend, drains its own response, and
// returns the finite ordered []agent.Event the orchestrator expects.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/duplexagent/core/internal/agent"
	"github.com/duplexagent/core/pkg/models"
)

// AnthropicProvider implements agent.Provider against Claude's messages
// API. Complete is synchronous from the orchestrator's point of view: it
// retries the request with linear backoff on transient failures,
// then drains the full response before returning.
type AnthropicProvider struct {
	BaseProvider
	client       anthropic.Client
	defaultModel string
}

// AnthropicConfig configures an AnthropicProvider.
type AnthropicConfig struct {
	APIKey       string
	BaseURL      string
	MaxRetries   int
	RetryDelay   time.Duration
	DefaultModel string
}

// NewAnthropicProvider builds a provider against Anthropic's API.
func NewAnthropicProvider(cfg AnthropicConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: api key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.DefaultModel
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &AnthropicProvider{
		BaseProvider: NewBaseProvider("anthropic", cfg.MaxRetries, cfg.RetryDelay),
		client:       anthropic.NewClient(opts...),
		defaultModel: model,
	}, nil
}

// Name implements agent.Provider.
func (p *AnthropicProvider) Name() string { return "anthropic" }

// Complete implements agent.Provider.
func (p *AnthropicProvider) Complete(ctx context.Context, req *agent.CompletionRequest) ([]agent.Event, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	messages, err := convertAnthropicMessages(req.Messages)
	if err != nil {
		return nil, fmt.Errorf("anthropic: convert messages: %w", err)
	}
	tools, err := convertAnthropicTools(req.Tools)
	if err != nil {
		return nil, fmt.Errorf("anthropic: convert tools: %w", err)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
		Tools:     tools,
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	var message *anthropic.Message
	err = p.Retry(ctx, func(err error) bool { return IsRetryable(NewProviderError("anthropic", model, err)) }, func() error {
		message, err = p.client.Messages.New(ctx, params)
		return err
	})
	if err != nil {
		return nil, NewProviderError("anthropic", model, err)
	}

	return anthropicEventsFromMessage(message), nil
}

func convertAnthropicMessages(messages []models.Message) ([]anthropic.MessageParam, error) {
	var out []anthropic.MessageParam
	for _, m := range messages {
		switch m.Role {
		case models.RoleSystem:
			continue // carried separately via params.System
		case models.RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case models.RoleAssistant:
			blocks := []anthropic.ContentBlockParamUnion{}
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				var input any
				if len(tc.Args) > 0 {
					if err := json.Unmarshal(tc.Args, &input); err != nil {
						return nil, fmt.Errorf("tool call %s has invalid args: %w", tc.CallID, err)
					}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.CallID, input, tc.Name))
			}
			out = append(out, anthropic.MessageParam{Role: anthropic.MessageParamRoleAssistant, Content: blocks})
		case models.RoleTool:
			out = append(out, anthropic.NewUserMessage(anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false)))
		}
	}
	return out, nil
}

func convertAnthropicTools(tools []agent.Tool) ([]anthropic.ToolUnionParam, error) {
	var out []anthropic.ToolUnionParam
	for _, t := range tools {
		var schema anthropic.ToolInputSchemaParam
		if len(t.Parameters) > 0 {
			if err := json.Unmarshal(t.Parameters, &schema); err != nil {
				return nil, fmt.Errorf("invalid parameters for %s: %w", t.Name, err)
			}
		}
		param := anthropic.ToolUnionParamOfTool(schema, t.Name)
		if param.OfTool != nil {
			param.OfTool.Description = anthropic.String(t.Description)
		}
		out = append(out, param)
	}
	return out, nil
}

func anthropicEventsFromMessage(message *anthropic.Message) []agent.Event {
	var events []agent.Event
	for _, block := range message.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			events = append(events, agent.Event{Kind: agent.EventText, Text: variant.Text, Done: true})
		case anthropic.ToolUseBlock:
			args, _ := json.Marshal(variant.Input)
			events = append(events, agent.Event{
				Kind:     agent.EventToolCall,
				ToolName: variant.Name,
				CallID:   variant.ID,
				Args:     args,
			})
		}
	}
	return events
}
