package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/duplexagent/core/internal/agent"
	"github.com/duplexagent/core/pkg/models"
)

// GeminiProvider implements agent.Provider against Google's Gemini API.
type GeminiProvider struct {
	BaseProvider
	client       *genai.Client
	defaultModel string
}

// GeminiConfig configures a GeminiProvider.
type GeminiConfig struct {
	APIKey       string
	MaxRetries   int
	RetryDelay   time.Duration
	DefaultModel string
}

// NewGeminiProvider builds a provider against the Gemini API.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	model := cfg.DefaultModel
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiProvider{
		BaseProvider: NewBaseProvider("gemini", cfg.MaxRetries, cfg.RetryDelay),
		client:       client,
		defaultModel: model,
	}, nil
}

// Name implements agent.Provider.
func (p *GeminiProvider) Name() string { return "gemini" }

// Complete implements agent.Provider.
func (p *GeminiProvider) Complete(ctx context.Context, req *agent.CompletionRequest) ([]agent.Event, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	contents := convertGeminiMessages(req.Messages)
	config := &genai.GenerateContentConfig{}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if len(req.Tools) > 0 {
		config.Tools = convertGeminiTools(req.Tools)
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	var resp *genai.GenerateContentResponse
	err := p.Retry(ctx, func(err error) bool { return IsRetryable(NewProviderError("gemini", model, err)) }, func() error {
		var callErr error
		resp, callErr = p.client.Models.GenerateContent(ctx, model, contents, config)
		return callErr
	})
	if err != nil {
		return nil, NewProviderError("gemini", model, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, NewProviderError("gemini", model, fmt.Errorf("empty response"))
	}

	return geminiEventsFromParts(resp.Candidates[0].Content.Parts), nil
}

func convertGeminiMessages(messages []models.Message) []*genai.Content {
	var out []*genai.Content
	for _, m := range messages {
		if m.Role == models.RoleSystem {
			continue
		}

		content := &genai.Content{}
		switch m.Role {
		case models.RoleUser, models.RoleTool:
			content.Role = genai.RoleUser
		case models.RoleAssistant:
			content.Role = genai.RoleModel
		}

		if m.Content != "" && m.Role != models.RoleTool {
			content.Parts = append(content.Parts, &genai.Part{Text: m.Content})
		}
		for _, tc := range m.ToolCalls {
			var args map[string]any
			if len(tc.Args) > 0 {
				_ = json.Unmarshal(tc.Args, &args)
			}
			content.Parts = append(content.Parts, &genai.Part{FunctionCall: &genai.FunctionCall{Name: tc.Name, Args: args}})
		}
		if m.Role == models.RoleTool {
			var response map[string]any
			if err := json.Unmarshal([]byte(m.Content), &response); err != nil {
				response = map[string]any{"result": m.Content}
			}
			content.Parts = append(content.Parts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{Name: toolNameForCallID(messages, m.ToolCallID), Response: response},
			})
		}

		if len(content.Parts) > 0 {
			out = append(out, content)
		}
	}
	return out
}

// toolNameForCallID recovers the tool name the Gemini API expects a
// FunctionResponse to echo back, since our history only carries the
// call id on tool entries — a consequence of the persisted message
// format's OpenAI-shaped coupling noted in the design notes.
func toolNameForCallID(messages []models.Message, callID string) string {
	for _, m := range messages {
		for _, tc := range m.ToolCalls {
			if tc.CallID == callID {
				return tc.Name
			}
		}
	}
	return callID
}

func convertGeminiTools(tools []agent.Tool) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		var schema *genai.Schema
		if len(t.Parameters) > 0 {
			schema = &genai.Schema{}
			_ = json.Unmarshal(t.Parameters, schema)
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  schema,
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func geminiEventsFromParts(parts []*genai.Part) []agent.Event {
	var events []agent.Event
	for _, part := range parts {
		if part.Text != "" {
			events = append(events, agent.Event{Kind: agent.EventText, Text: part.Text, Done: true})
		}
		if part.FunctionCall != nil {
			args, _ := json.Marshal(part.FunctionCall.Args)
			events = append(events, agent.Event{
				Kind:     agent.EventToolCall,
				ToolName: part.FunctionCall.Name,
				CallID:   uuid.NewString(),
				Args:     args,
			})
		}
	}
	return events
}
