package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/duplexagent/core/pkg/models"
)

const defaultToolTimeoutMs = 30000

// dispatchServerTool runs a server tool's handler with a timeout race: the
// handler runs on its own goroutine and sends its result over a buffered
// channel with a non-blocking send, so a handler that finishes after the
// deadline never blocks on a channel nobody is reading anymore.
func dispatchServerTool(ctx context.Context, tool Tool, params json.RawMessage, clientCtx models.ClientContext) (json.RawMessage, error) {
	timeoutMs := tool.TimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = defaultToolTimeoutMs
	}
	toolCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
	defer cancel()

	type outcome struct {
		data json.RawMessage
		err  error
	}
	resultCh := make(chan outcome, 1)

	go func() {
		data, err := tool.Handler(toolCtx, params, clientCtx)
		select {
		case resultCh <- outcome{data: data, err: err}:
		default:
		}
	}()

	select {
	case <-toolCtx.Done():
		if errors.Is(toolCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("Tool Timeout (%dms)", timeoutMs)
		}
		return nil, toolCtx.Err()
	case res := <-resultCh:
		return res.data, res.err
	}
}
