package pipeline_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/firms-fire-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestStatusBoard(t *testing.T) {
	now := time.Date(2024, time.August, 1, 17, 30, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(now)
	board := pipeline.NewStatusBoard(clock, slog.Default())

	assert.Equal(t, pipeline.Status{}, board.Current())

	sub := &recordingStatus{}
	board.Subscribe(sub)

	board.Report(pipeline.StatusDownloading)
	clock.Advance(2 * time.Second)
	board.Report(pipeline.StatusShowing(12))

	assert.Equal(t, pipeline.Status{Message: "Showing 12 detections.", UpdatedAt: now.Add(2 * time.Second)}, board.Current())
	assert.Equal(t, []string{"Downloading FIRMS data…", "Showing 12 detections."}, sub.messages())
}
