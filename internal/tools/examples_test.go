package tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/duplexagent/core/internal/agent"
	"github.com/duplexagent/core/pkg/models"
)

func TestExamples_WeatherToolReturnsSunnyForecast(t *testing.T) {
	router := Examples()
	weather := router.Tools[0]
	if weather.Name != "weather" {
		t.Fatalf("Tools[0].Name = %q, want weather", weather.Name)
	}

	params, _ := json.Marshal(weatherParams{City: "Paris"})
	got, err := weather.Handler(context.Background(), params, models.ClientContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result string
	if err := json.Unmarshal(got, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if result != "Weather in Paris is sunny" {
		t.Errorf("result = %q, want %q", result, "Weather in Paris is sunny")
	}
}

func TestExamples_WeatherToolRejectsMissingCity(t *testing.T) {
	weather := weatherTool()
	params, _ := json.Marshal(weatherParams{})
	if _, err := weather.Handler(context.Background(), params, models.ClientContext{}); err == nil {
		t.Error("expected an error for a missing city")
	}
}

func TestExamples_ToggleDarkModeIsClientSideAndContextFiltered(t *testing.T) {
	toggle := toggleDarkModeTool()
	if toggle.Side != agent.ExecutionClient {
		t.Errorf("Side = %v, want ExecutionClient", toggle.Side)
	}
	if toggle.Handler != nil {
		t.Error("client tools must not carry a server Handler")
	}
	if !toggle.ContextFilter(models.ClientContext{PageID: "settings"}) {
		t.Error("expected toggleDarkMode to be available on the settings page")
	}
	if toggle.ContextFilter(models.ClientContext{PageID: "home"}) {
		t.Error("expected toggleDarkMode to be unavailable off the settings page")
	}
}

func TestExamples_ToggleDarkModeResultSchemaValidation(t *testing.T) {
	registry := agent.NewToolRegistry(slog.Default())
	registry.RegisterAll(Examples().Tools)

	if _, err := registry.ValidateResult("toggleDarkMode", json.RawMessage(`{"darkMode":true}`)); err != nil {
		t.Errorf("expected a valid result to pass schema validation, got: %v", err)
	}
	if _, err := registry.ValidateResult("toggleDarkMode", json.RawMessage(`{"darkMode":"not-a-bool"}`)); err == nil {
		t.Error("expected a malformed result to fail schema validation")
	}
}

func TestExamples_ToolsForContextFiltersOutSettingsOnlyTool(t *testing.T) {
	registry := agent.NewToolRegistry(slog.Default())
	registry.RegisterAll(Examples().Tools)

	onHome := registry.ToolsForContext(models.ClientContext{PageID: "home"})
	for _, tl := range onHome {
		if tl.Name == "toggleDarkMode" {
			t.Error("toggleDarkMode should not be available on the home page")
		}
	}

	onSettings := registry.ToolsForContext(models.ClientContext{PageID: "settings"})
	var found bool
	for _, tl := range onSettings {
		if tl.Name == "toggleDarkMode" {
			found = true
		}
	}
	if !found {
		t.Error("toggleDarkMode should be available on the settings page")
	}
}
