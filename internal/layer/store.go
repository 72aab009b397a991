// Package layer holds the displayed detection layer and fans writes out to
// additional displays.
package layer

import (
	"context"
	"log/slog"
	"sync"

	"github.com/couchcryptid/firms-fire-etl/internal/domain"
)

// Snapshot is the displayed layer together with its visibility.
type Snapshot struct {
	Layer   domain.Layer
	Visible bool
}

// Store keeps the current layer in memory. Writes replace it wholesale.
type Store struct {
	mu      sync.RWMutex
	layer   domain.Layer
	visible bool
}

// NewStore returns an empty store with the given initial visibility.
func NewStore(visible bool) *Store {
	return &Store{layer: domain.EmptyLayer(0), visible: visible}
}

// ReplaceAll swaps in layer. An empty layer clears the display.
func (s *Store) ReplaceAll(_ context.Context, layer domain.Layer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layer = layer
	return nil
}

// SetVisible shows or hides the layer without touching its contents.
func (s *Store) SetVisible(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = visible
}

// Snapshot returns the current layer and visibility.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Layer: s.layer, Visible: s.visible}
}

// Sink is anything that can display a whole layer.
type Sink interface {
	ReplaceAll(ctx context.Context, layer domain.Layer) error
}

// Fanout writes each layer to a primary sink and then to secondaries. Only a
// primary failure fails the write; secondary failures are logged.
type Fanout struct {
	primary     Sink
	secondaries []Sink
	logger      *slog.Logger
}

// NewFanout creates a Fanout. Nil secondaries are skipped.
func NewFanout(logger *slog.Logger, primary Sink, secondaries ...Sink) *Fanout {
	f := &Fanout{primary: primary, logger: logger}
	for _, s := range secondaries {
		if s != nil {
			f.secondaries = append(f.secondaries, s)
		}
	}
	return f
}

// ReplaceAll implements Sink.
func (f *Fanout) ReplaceAll(ctx context.Context, layer domain.Layer) error {
	if err := f.primary.ReplaceAll(ctx, layer); err != nil {
		return err
	}
	for _, s := range f.secondaries {
		if err := s.ReplaceAll(ctx, layer); err != nil {
			f.logger.Warn("secondary layer sink failed", "cycle", layer.Cycle, "error", err)
		}
	}
	return nil
}
