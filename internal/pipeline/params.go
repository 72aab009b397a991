package pipeline

import (
	"slices"
	"sync"

	"github.com/couchcryptid/firms-fire-etl/internal/domain"
)

// Params is the user-controlled state that shapes an ingestion cycle.
type Params struct {
	Sources []string `json:"sources"`
	Days    int      `json:"days"`
	Enabled bool     `json:"enabled"`
}

// ParamUpdate is a partial change to Params. Nil fields are left as they are.
type ParamUpdate struct {
	Sources *[]string
	Days    *int
	Enabled *bool
}

// ParamChange is delivered to listeners after every update. The *Set flags
// record which fields the update touched, even when normalization left the
// value unchanged (e.g. a day window re-clamped to its previous value).
type ParamChange struct {
	Old, New   Params
	SourcesSet bool
	DaysSet    bool
	EnabledSet bool
}

// ParamState holds the current Params and notifies listeners of changes.
// It is safe for concurrent use.
type ParamState struct {
	mu        sync.RWMutex
	params    Params
	listeners []func(ParamChange)
}

// NewParamState validates initial and returns a state holding it.
func NewParamState(initial Params) (*ParamState, error) {
	sources, err := domain.NormalizeSources(initial.Sources)
	if err != nil {
		return nil, err
	}
	return &ParamState{params: Params{
		Sources: sources,
		Days:    domain.ClampDays(initial.Days),
		Enabled: initial.Enabled,
	}}, nil
}

// Params returns a copy of the current parameters.
func (s *ParamState) Params() Params {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params.clone()
}

// OnChange registers fn to be called after each successful update, in
// registration order, outside the state lock.
func (s *ParamState) OnChange(fn func(ParamChange)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Update applies u. Sources are validated and deduplicated; days are clamped
// to the FIRMS window. An invalid update changes nothing.
func (s *ParamState) Update(u ParamUpdate) (Params, error) {
	var sources []string
	if u.Sources != nil {
		var err error
		sources, err = domain.NormalizeSources(*u.Sources)
		if err != nil {
			return s.Params(), err
		}
	}

	s.mu.Lock()
	change := ParamChange{Old: s.params.clone()}
	if u.Sources != nil {
		s.params.Sources = sources
		change.SourcesSet = true
	}
	if u.Days != nil {
		s.params.Days = domain.ClampDays(*u.Days)
		change.DaysSet = true
	}
	if u.Enabled != nil {
		s.params.Enabled = *u.Enabled
		change.EnabledSet = true
	}
	change.New = s.params.clone()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(change)
	}
	return change.New, nil
}

// SetSources replaces the selected sources.
func (s *ParamState) SetSources(ids []string) (Params, error) {
	return s.Update(ParamUpdate{Sources: &ids})
}

// SetDays sets the day window, clamped to 1..10.
func (s *ParamState) SetDays(days int) Params {
	p, _ := s.Update(ParamUpdate{Days: &days})
	return p
}

// SetEnabled toggles the detection layer.
func (s *ParamState) SetEnabled(enabled bool) Params {
	p, _ := s.Update(ParamUpdate{Enabled: &enabled})
	return p
}

func (p Params) clone() Params {
	p.Sources = slices.Clone(p.Sources)
	return p
}
