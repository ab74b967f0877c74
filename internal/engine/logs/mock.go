package logs

import (
	"context"
	"log/slog"
	"sync"
)

// MockHandler keeps every record in memory. Tests use it to assert what was logged.
type MockHandler struct {
	mu   sync.Mutex
	Logs []slog.Record
}

func NewMockHandler() *MockHandler {
	return &MockHandler{}
}

func (h *MockHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (h *MockHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Logs = append(h.Logs, r.Clone())
	return nil
}

func (h *MockHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *MockHandler) WithGroup(_ string) slog.Handler {
	return h
}

// Messages returns the messages of the captured records in order.
func (h *MockHandler) Messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.Logs))
	for _, r := range h.Logs {
		out = append(out, r.Message)
	}
	return out
}
