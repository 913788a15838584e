package clientrt

import (
	"context"
	"encoding/json"
	"testing"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	fn := func(_ context.Context, params json.RawMessage) (json.RawMessage, error) {
		return params, nil
	}
	r.RegisterExecutor("echo", fn)

	got, ok := r.Lookup("echo")
	if !ok {
		t.Fatal("expected echo executor to be registered")
	}

	out, err := got(context.Background(), json.RawMessage(`"hi"`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != `"hi"` {
		t.Errorf("out = %s, want \"hi\"", out)
	}
}

func TestRegistry_LookupMissing(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Lookup("nonexistent"); ok {
		t.Error("expected lookup of an unregistered tool to fail")
	}
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry()
	r.RegisterExecutor("echo", func(context.Context, json.RawMessage) (json.RawMessage, error) {
		return nil, nil
	})
	r.UnregisterExecutor("echo")

	if _, ok := r.Lookup("echo"); ok {
		t.Error("expected echo executor to be gone after Unregister")
	}
}

func TestRegistry_RegisterOverwritesExisting(t *testing.T) {
	r := NewRegistry()
	r.RegisterExecutor("echo", func(context.Context, json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage(`"first"`), nil
	})
	r.RegisterExecutor("echo", func(context.Context, json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage(`"second"`), nil
	})

	fn, ok := r.Lookup("echo")
	if !ok {
		t.Fatal("expected echo executor to be registered")
	}
	out, _ := fn(context.Background(), nil)
	if string(out) != `"second"` {
		t.Errorf("out = %s, want \"second\"", out)
	}
}
