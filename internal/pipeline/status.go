package pipeline

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Status is the latest reported status message.
type Status struct {
	Message   string    `json:"message"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusBoard keeps the latest status and forwards every report to
// subscribers. Reports are fire-and-forget.
type StatusBoard struct {
	clock  clockwork.Clock
	logger *slog.Logger

	mu          sync.RWMutex
	current     Status
	subscribers []StatusReporter
}

// NewStatusBoard creates an empty board.
func NewStatusBoard(clock clockwork.Clock, logger *slog.Logger) *StatusBoard {
	return &StatusBoard{clock: clock, logger: logger}
}

// Subscribe forwards future reports to r.
func (b *StatusBoard) Subscribe(r StatusReporter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, r)
}

// Report records msg as the current status.
func (b *StatusBoard) Report(msg string) {
	b.mu.Lock()
	b.current = Status{Message: msg, UpdatedAt: b.clock.Now().UTC()}
	subs := b.subscribers
	b.mu.Unlock()

	b.logger.Debug("status", "message", msg)
	for _, s := range subs {
		s.Report(msg)
	}
}

// Current returns the latest status.
func (b *StatusBoard) Current() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current
}
