package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/duplexagent/core/pkg/models"
)

func TestDispatchServerTool_Success(t *testing.T) {
	tool := Tool{
		Name: "echo",
		Side: ExecutionServer,
		Handler: func(_ CallContext, params json.RawMessage, _ models.ClientContext) (json.RawMessage, error) {
			return params, nil
		},
	}

	got, err := dispatchServerTool(context.Background(), tool, json.RawMessage(`"hi"`), models.ClientContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != `"hi"` {
		t.Errorf("got %s, want \"hi\"", got)
	}
}

func TestDispatchServerTool_HandlerError(t *testing.T) {
	wantErr := errors.New("boom")
	tool := Tool{
		Name: "fails",
		Side: ExecutionServer,
		Handler: func(_ CallContext, _ json.RawMessage, _ models.ClientContext) (json.RawMessage, error) {
			return nil, wantErr
		},
	}

	_, err := dispatchServerTool(context.Background(), tool, nil, models.ClientContext{})
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}

func TestDispatchServerTool_TimesOut(t *testing.T) {
	tool := Tool{
		Name:      "slow",
		Side:      ExecutionServer,
		TimeoutMs: 30,
		Handler: func(ctx CallContext, _ json.RawMessage, _ models.ClientContext) (json.RawMessage, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	start := time.Now()
	_, err := dispatchServerTool(context.Background(), tool, nil, models.ClientContext{})
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !isToolTimeout(err) {
		t.Errorf("expected a Tool Timeout error, got: %v", err)
	}
	if elapsed > 200*time.Millisecond {
		t.Errorf("took %v, expected to time out around 30ms", elapsed)
	}
}

func TestDispatchServerTool_ParentCancellation(t *testing.T) {
	tool := Tool{
		Name: "slow",
		Side: ExecutionServer,
		Handler: func(ctx CallContext, _ json.RawMessage, _ models.ClientContext) (json.RawMessage, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := dispatchServerTool(ctx, tool, nil, models.ClientContext{})
	if err == nil {
		t.Fatal("expected error from cancellation")
	}
	if isToolTimeout(err) {
		t.Error("cancellation should not be classified as a timeout")
	}
}

func TestDispatchServerTool_PassesClientContext(t *testing.T) {
	tool := Tool{
		Name: "contextAware",
		Side: ExecutionServer,
		Handler: func(_ CallContext, _ json.RawMessage, clientCtx models.ClientContext) (json.RawMessage, error) {
			return json.Marshal(clientCtx.PageID)
		},
	}

	got, err := dispatchServerTool(context.Background(), tool, nil, models.ClientContext{PageID: "settings"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != `"settings"` {
		t.Errorf("got %s, want \"settings\"", got)
	}
}
