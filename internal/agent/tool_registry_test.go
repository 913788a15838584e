package agent

import (
	"encoding/json"
	"testing"

	"github.com/duplexagent/core/pkg/models"
)

func serverTool(name string) Tool {
	return Tool{
		Name: name,
		Side: ExecutionServer,
		Handler: func(_ CallContext, params json.RawMessage, _ models.ClientContext) (json.RawMessage, error) {
			return params, nil
		},
	}
}

func TestToolRegistry_RegisterAndByName(t *testing.T) {
	r := NewToolRegistry(nil)
	if err := r.Register(serverTool("weather")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got, ok := r.ByName("weather")
	if !ok {
		t.Fatal("expected weather tool to be registered")
	}
	if got.Name != "weather" {
		t.Errorf("Name = %q, want %q", got.Name, "weather")
	}

	if _, ok := r.ByName("nonexistent"); ok {
		t.Error("expected nonexistent tool to be absent")
	}
}

func TestToolRegistry_Validate_RejectsBadTools(t *testing.T) {
	tests := []struct {
		name string
		tool Tool
	}{
		{"no name", Tool{Side: ExecutionServer, Handler: func(CallContext, json.RawMessage, models.ClientContext) (json.RawMessage, error) { return nil, nil }}},
		{"server without handler", Tool{Name: "x", Side: ExecutionServer}},
		{"server with result schema", Tool{
			Name: "x", Side: ExecutionServer, ResultSchema: json.RawMessage(`{}`),
			Handler: func(CallContext, json.RawMessage, models.ClientContext) (json.RawMessage, error) { return nil, nil },
		}},
		{"client with handler", Tool{
			Name: "x", Side: ExecutionClient,
			Handler: func(CallContext, json.RawMessage, models.ClientContext) (json.RawMessage, error) { return nil, nil },
		}},
		{"unknown side", Tool{Name: "x", Side: "bogus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewToolRegistry(nil)
			if err := r.Register(tt.tool); err == nil {
				t.Error("expected Register to reject invalid tool")
			}
		})
	}
}

func TestToolRegistry_ToolsForContext_FiltersByContext(t *testing.T) {
	r := NewToolRegistry(nil)
	if err := r.Register(serverTool("always")); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(Tool{
		Name: "settingsOnly",
		Side: ExecutionClient,
		ContextFilter: func(c models.ClientContext) bool {
			return c.PageID == "settings"
		},
	}); err != nil {
		t.Fatal(err)
	}

	onSettings := r.ToolsForContext(models.ClientContext{PageID: "settings"})
	if len(onSettings) != 2 {
		t.Fatalf("on settings page: got %d tools, want 2", len(onSettings))
	}

	elsewhere := r.ToolsForContext(models.ClientContext{PageID: "home"})
	if len(elsewhere) != 1 || elsewhere[0].Name != "always" {
		t.Fatalf("off settings page: got %v, want only [always]", elsewhere)
	}
}

func TestToolRegistry_IsAvailable_UnknownToolIsUnavailable(t *testing.T) {
	r := NewToolRegistry(nil)
	if r.IsAvailable("nonexistent", models.ClientContext{}) {
		t.Error("unknown tool should never be available")
	}
}

func TestToolRegistry_IsAvailable_ReflectsLiveContext(t *testing.T) {
	// This is the anti-ghost-execution invariant: availability must be
	// re-derived from whatever context is passed in, not cached from
	// registration time.
	r := NewToolRegistry(nil)
	if err := r.Register(Tool{
		Name: "settingsOnly",
		Side: ExecutionClient,
		ContextFilter: func(c models.ClientContext) bool {
			return c.PageID == "settings"
		},
	}); err != nil {
		t.Fatal(err)
	}

	if r.IsAvailable("settingsOnly", models.ClientContext{PageID: "home"}) {
		t.Error("expected unavailable off the settings page")
	}
	if !r.IsAvailable("settingsOnly", models.ClientContext{PageID: "settings"}) {
		t.Error("expected available on the settings page")
	}
}

func TestToolRegistry_ValidateResult(t *testing.T) {
	r := NewToolRegistry(nil)
	if err := r.Register(Tool{
		Name:         "toggleDarkMode",
		Side:         ExecutionClient,
		ResultSchema: json.RawMessage(`{"type":"object","properties":{"darkMode":{"type":"boolean"}},"required":["darkMode"]}`),
	}); err != nil {
		t.Fatal(err)
	}

	if _, err := r.ValidateResult("toggleDarkMode", json.RawMessage(`{"darkMode":true}`)); err != nil {
		t.Errorf("expected valid result to pass, got: %v", err)
	}
	if _, err := r.ValidateResult("toggleDarkMode", json.RawMessage(`{"darkMode":"yes"}`)); err == nil {
		t.Error("expected schema mismatch to fail validation")
	}
	if _, err := r.ValidateResult("nonexistent", json.RawMessage(`{}`)); err == nil {
		t.Error("expected unknown tool to fail validation")
	}
}

func TestToolRegistry_ValidateResult_NoSchemaPassesThrough(t *testing.T) {
	r := NewToolRegistry(nil)
	if err := r.Register(serverTool("weather")); err != nil {
		t.Fatal(err)
	}

	value := json.RawMessage(`"sunny"`)
	got, err := r.ValidateResult("weather", value)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != string(value) {
		t.Errorf("got %s, want %s", got, value)
	}
}

func TestToolRegistry_ReRegisterReplaces(t *testing.T) {
	r := NewToolRegistry(nil)
	if err := r.Register(serverTool("weather")); err != nil {
		t.Fatal(err)
	}
	replacement := serverTool("weather")
	replacement.Description = "replaced"
	if err := r.Register(replacement); err != nil {
		t.Fatal(err)
	}

	got, _ := r.ByName("weather")
	if got.Description != "replaced" {
		t.Errorf("Description = %q, want %q", got.Description, "replaced")
	}

	// Re-registration must not duplicate the insertion-order slot.
	all := r.ToolsForContext(models.ClientContext{})
	if len(all) != 1 {
		t.Errorf("got %d tools after re-register, want 1", len(all))
	}
}
