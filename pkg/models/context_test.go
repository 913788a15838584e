package models

import "testing"

func TestClientContext_HasCapability(t *testing.T) {
	c := ClientContext{Capabilities: []string{"camera", "clipboard"}}

	if !c.HasCapability("camera") {
		t.Error("expected camera capability to be present")
	}
	if c.HasCapability("microphone") {
		t.Error("expected microphone capability to be absent")
	}
}

func TestMergeScopedContext_LastWriterWinsOnSimpleFields(t *testing.T) {
	scopes := map[string]ClientContext{
		"global": {PageID: "home", ActiveTab: "overview"},
		"tab":    {PageID: "settings"},
	}

	merged := MergeScopedContext(scopes, []string{"global", "tab"})
	if merged.PageID != "settings" {
		t.Errorf("PageID = %q, want %q", merged.PageID, "settings")
	}
	if merged.ActiveTab != "overview" {
		t.Errorf("ActiveTab = %q, want %q", merged.ActiveTab, "overview")
	}
}

func TestMergeScopedContext_CapabilitiesConcatenatedAndDeduped(t *testing.T) {
	scopes := map[string]ClientContext{
		"global": {Capabilities: []string{"camera", "clipboard"}},
		"tab":    {Capabilities: []string{"clipboard", "microphone"}},
	}

	merged := MergeScopedContext(scopes, []string{"global", "tab"})
	want := []string{"camera", "clipboard", "microphone"}
	if len(merged.Capabilities) != len(want) {
		t.Fatalf("Capabilities = %v, want %v", merged.Capabilities, want)
	}
	for i, cap := range want {
		if merged.Capabilities[i] != cap {
			t.Errorf("Capabilities[%d] = %q, want %q", i, merged.Capabilities[i], cap)
		}
	}
}

func TestMergeScopedContext_MetadataShallowOverwrite(t *testing.T) {
	scopes := map[string]ClientContext{
		"global": {Metadata: map[string]any{"theme": "light", "locale": "en"}},
		"tab":    {Metadata: map[string]any{"theme": "dark"}},
	}

	merged := MergeScopedContext(scopes, []string{"global", "tab"})
	if merged.Metadata["theme"] != "dark" {
		t.Errorf("theme = %v, want dark", merged.Metadata["theme"])
	}
	if merged.Metadata["locale"] != "en" {
		t.Errorf("locale = %v, want en", merged.Metadata["locale"])
	}
}

func TestMergeScopedContext_UnknownScopeInOrderIsIgnored(t *testing.T) {
	scopes := map[string]ClientContext{
		"global": {PageID: "home"},
	}

	merged := MergeScopedContext(scopes, []string{"global", "nonexistent"})
	if merged.PageID != "home" {
		t.Errorf("PageID = %q, want %q", merged.PageID, "home")
	}
}

func TestMergeScopedContext_EmptyOrderYieldsEmptyContext(t *testing.T) {
	scopes := map[string]ClientContext{
		"global": {PageID: "home"},
	}

	merged := MergeScopedContext(scopes, nil)
	if merged.PageID != "" {
		t.Errorf("PageID = %q, want empty", merged.PageID)
	}
}
