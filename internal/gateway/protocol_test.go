package gateway

import (
	"encoding/json"
	"testing"
)

func TestValidateClientContext_AcceptsKnownFields(t *testing.T) {
	raw := json.RawMessage(`{"page_id":"settings","active_tab":"general","capabilities":["camera"],"metadata":{"theme":"dark"}}`)
	if err := validateClientContext(raw); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateClientContext_AcceptsEmptyObject(t *testing.T) {
	if err := validateClientContext(json.RawMessage(`{}`)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateClientContext_RejectsUnknownFields(t *testing.T) {
	raw := json.RawMessage(`{"page_id":"settings","unexpected_field":true}`)
	if err := validateClientContext(raw); err == nil {
		t.Error("expected an error for an unexpected field")
	}
}

func TestValidateClientContext_RejectsWrongFieldType(t *testing.T) {
	raw := json.RawMessage(`{"page_id":123}`)
	if err := validateClientContext(raw); err == nil {
		t.Error("expected an error for page_id with the wrong type")
	}
}

func TestValidateClientContext_RejectsMalformedJSON(t *testing.T) {
	if err := validateClientContext(json.RawMessage(`not-json`)); err == nil {
		t.Error("expected an error for malformed JSON")
	}
}

func TestValidateClientContext_RejectsNonArrayCapabilities(t *testing.T) {
	raw := json.RawMessage(`{"capabilities":"camera"}`)
	if err := validateClientContext(raw); err == nil {
		t.Error("expected an error for capabilities not being an array")
	}
}
