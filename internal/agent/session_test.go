package agent

import (
	"sync"
	"testing"

	"github.com/duplexagent/core/pkg/models"
)

func TestNewSession_DefaultsTimeout(t *testing.T) {
	s := NewSession("s1", "be helpful", 0)
	if s.DefaultToolTimeoutMs != defaultToolTimeoutMs {
		t.Errorf("DefaultToolTimeoutMs = %d, want %d", s.DefaultToolTimeoutMs, defaultToolTimeoutMs)
	}
	if s.RoundTrip == nil {
		t.Error("expected a RoundTrip registry to be initialized")
	}
}

func TestSession_ContextRoundTrip(t *testing.T) {
	s := NewSession("s1", "", 1000)
	if got := s.Context(); got.PageID != "" {
		t.Errorf("initial PageID = %q, want empty", got.PageID)
	}

	s.SetContext(models.ClientContext{PageID: "settings"})
	if got := s.Context().PageID; got != "settings" {
		t.Errorf("PageID = %q, want %q", got, "settings")
	}
}

func TestSession_HistoryIsACopy(t *testing.T) {
	s := NewSession("s1", "", 1000)
	s.AppendMessage(models.Message{Role: models.RoleUser, Content: "hi"})

	history := s.History()
	history[0].Content = "mutated"

	if s.Messages[0].Content != "hi" {
		t.Errorf("History() copy leaked back into session state: %q", s.Messages[0].Content)
	}
}

func TestSession_ContextUpdateVisibleConcurrently(t *testing.T) {
	// SetContext must be safe to call from a second goroutine while Context
	// is being read, without the race detector flagging it.
	s := NewSession("s1", "", 1000)
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			s.SetContext(models.ClientContext{PageID: "settings"})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_ = s.Context()
		}
	}()
	wg.Wait()
}
