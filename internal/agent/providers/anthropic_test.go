package providers

import (
	"encoding/json"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/duplexagent/core/internal/agent"
	"github.com/duplexagent/core/pkg/models"
)

func TestConvertAnthropicMessages_SkipsSystemRole(t *testing.T) {
	out, err := convertAnthropicMessages([]models.Message{
		{Role: models.RoleSystem, Content: "be helpful"},
		{Role: models.RoleUser, Content: "hi"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want 1 (system message carried separately)", len(out))
	}
	if out[0].Role != anthropic.MessageParamRoleUser {
		t.Errorf("Role = %v, want user", out[0].Role)
	}
}

func TestConvertAnthropicMessages_AssistantToolCallRoundTrips(t *testing.T) {
	out, err := convertAnthropicMessages([]models.Message{
		{
			Role:      models.RoleAssistant,
			Content:   "looking it up",
			ToolCalls: []models.ToolCall{{CallID: "call-1", Name: "weather", Args: json.RawMessage(`{"city":"Paris"}`)}},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want 1", len(out))
	}
	if len(out[0].Content) != 2 {
		t.Fatalf("len(Content) = %d, want 2 (text block + tool use block)", len(out[0].Content))
	}
}

func TestConvertAnthropicMessages_AssistantToolCallWithInvalidArgsErrors(t *testing.T) {
	_, err := convertAnthropicMessages([]models.Message{
		{
			Role:      models.RoleAssistant,
			ToolCalls: []models.ToolCall{{CallID: "call-1", Name: "weather", Args: json.RawMessage(`not-json`)}},
		},
	})
	if err == nil {
		t.Error("expected an error for invalid tool call args")
	}
}

func TestConvertAnthropicMessages_ToolResultBecomesUserMessage(t *testing.T) {
	out, err := convertAnthropicMessages([]models.Message{
		{Role: models.RoleTool, ToolCallID: "call-1", Content: "sunny"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].Role != anthropic.MessageParamRoleUser {
		t.Fatalf("tool result should round-trip as a user message, got %+v", out)
	}
}

func TestConvertAnthropicTools_InvalidParametersErrors(t *testing.T) {
	_, err := convertAnthropicTools([]agent.Tool{
		{Name: "broken", Parameters: json.RawMessage(`not-json`)},
	})
	if err == nil {
		t.Error("expected an error for invalid tool parameters")
	}
}

func TestConvertAnthropicTools_CarriesDescription(t *testing.T) {
	out, err := convertAnthropicTools([]agent.Tool{
		{Name: "weather", Description: "look up weather", Parameters: json.RawMessage(`{"type":"object","properties":{}}`)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want 1", len(out))
	}
	if out[0].OfTool == nil || out[0].OfTool.Name != "weather" {
		t.Errorf("expected a tool named weather, got %+v", out[0].OfTool)
	}
	if out[0].OfTool != nil && out[0].OfTool.Description.Value != "look up weather" {
		t.Errorf("Description = %q, want %q", out[0].OfTool.Description.Value, "look up weather")
	}
}

