package pipeline_test

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/couchcryptid/firms-fire-etl/internal/domain"
	"github.com/couchcryptid/firms-fire-etl/internal/observability"
)

// --- mocks ---

type fetchResponse struct {
	body string
	err  error
	// wait, when set, blocks the fetch until closed or the context ends.
	wait <-chan struct{}
	// started, when set, is closed as soon as the fetch begins.
	started chan struct{}
}

type mockFetcher struct {
	mu        sync.Mutex
	responses map[string][]fetchResponse // consumed in call order per source
	queries   []domain.SourceQuery
}

func newMockFetcher() *mockFetcher {
	return &mockFetcher{responses: make(map[string][]fetchResponse)}
}

func (m *mockFetcher) on(source string, resp fetchResponse) *mockFetcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[source] = append(m.responses[source], resp)
	return m
}

func (m *mockFetcher) FetchCSV(ctx context.Context, q domain.SourceQuery) (string, error) {
	m.mu.Lock()
	m.queries = append(m.queries, q)
	var resp fetchResponse
	if queue := m.responses[q.Source()]; len(queue) > 0 {
		resp = queue[0]
		if len(queue) > 1 {
			m.responses[q.Source()] = queue[1:]
		}
	}
	m.mu.Unlock()

	if resp.started != nil {
		close(resp.started)
	}
	if resp.wait != nil {
		select {
		case <-resp.wait:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return resp.body, resp.err
}

func (m *mockFetcher) calls() []domain.SourceQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.SourceQuery(nil), m.queries...)
}

type recordingSink struct {
	mu     sync.Mutex
	layers []domain.Layer
	err    error
}

func (s *recordingSink) ReplaceAll(_ context.Context, layer domain.Layer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.layers = append(s.layers, layer)
	return nil
}

func (s *recordingSink) writes() []domain.Layer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Layer(nil), s.layers...)
}

func (s *recordingSink) last() (domain.Layer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.layers) == 0 {
		return domain.Layer{}, false
	}
	return s.layers[len(s.layers)-1], true
}

type recordingStatus struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recordingStatus) Report(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recordingStatus) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

func (r *recordingStatus) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		return ""
	}
	return r.msgs[len(r.msgs)-1]
}

func newTestMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

const csvHeader = "latitude,longitude,bright_ti4,scan,track,acq_date,acq_time,satellite,instrument,confidence,version,bright_ti5,frp,daynight"

// firmsCSV builds a FIRMS-shaped body. Each row is lat, lon, date, time,
// satellite, confidence, frp.
func firmsCSV(rows ...[7]string) string {
	var b strings.Builder
	b.WriteString(csvHeader)
	for _, r := range rows {
		fmt.Fprintf(&b, "\n%s,%s,330.1,0.39,0.36,%s,%s,%s,VIIRS,%s,2.0NRT,290.2,%s,D",
			r[0], r[1], r[2], r[3], r[4], r[5], r[6])
	}
	return b.String()
}
