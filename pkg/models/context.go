package models

// ClientContext is the client-reported snapshot that drives tool
// availability and is passed verbatim to server-side tool handlers.
//
// All fields are optional; callers extend via Metadata rather than adding
// new recognized fields, keeping the schema stable across client versions.
type ClientContext struct {
	PageID       string         `json:"page_id,omitempty"`
	ActiveTab    string         `json:"active_tab,omitempty"`
	Capabilities []string       `json:"capabilities,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// HasCapability reports whether cap is present in Capabilities.
func (c ClientContext) HasCapability(cap string) bool {
	for _, have := range c.Capabilities {
		if have == cap {
			return true
		}
	}
	return false
}

// MergeScopedContext combines a set of scope-keyed partial contexts into one
// snapshot. order fixes the iteration order of scopes — simple fields are
// shallow-overwritten (last writer in order wins); Capabilities are
// concatenated and deduplicated preserving first occurrence; Metadata keys
// follow the same shallow-overwrite rule as simple fields.
func MergeScopedContext(scopes map[string]ClientContext, order []string) ClientContext {
	var merged ClientContext
	seenCap := make(map[string]bool)

	apply := func(c ClientContext) {
		if c.PageID != "" {
			merged.PageID = c.PageID
		}
		if c.ActiveTab != "" {
			merged.ActiveTab = c.ActiveTab
		}
		for _, cap := range c.Capabilities {
			if !seenCap[cap] {
				seenCap[cap] = true
				merged.Capabilities = append(merged.Capabilities, cap)
			}
		}
		for k, v := range c.Metadata {
			if merged.Metadata == nil {
				merged.Metadata = make(map[string]any)
			}
			merged.Metadata[k] = v
		}
	}

	for _, scope := range order {
		if c, ok := scopes[scope]; ok {
			apply(c)
		}
	}
	return merged
}
