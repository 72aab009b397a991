//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/firms-fire-etl/internal/adapter/firms"
	"github.com/couchcryptid/firms-fire-etl/internal/adapter/kafka"
	"github.com/couchcryptid/firms-fire-etl/internal/config"
	"github.com/couchcryptid/firms-fire-etl/internal/domain"
	"github.com/couchcryptid/firms-fire-etl/internal/layer"
	"github.com/couchcryptid/firms-fire-etl/internal/observability"
	"github.com/couchcryptid/firms-fire-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
	geojson "github.com/paulmach/go.geojson"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLayerTopic = "test-firms-detections"

const csvHeader = "latitude,longitude,bright_ti4,scan,track,acq_date,acq_time,satellite,instrument,confidence,version,bright_ti5,frp,daynight"

// fakeFIRMS serves a fixed CSV body per source id.
func fakeFIRMS(t *testing.T, bodies map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /{key}/{source}/{bbox}/{days}
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 4 {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		body, ok := bodies[parts[1]]
		if !ok {
			http.Error(w, "Invalid source", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// TestCycleToKafka runs a full ingestion cycle against a fake FIRMS server and
// verifies the deduplicated layer lands on the Kafka topic.
func TestCycleToKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testLayerTopic)

	firmsSrv := fakeFIRMS(t, map[string]string{
		"VIIRS_SNPP_NRT": csvHeader + "\n" +
			"-17.12345,-60.98765,330.1,0.39,0.36,2024-08-01,1730,N,VIIRS,h,2.0NRT,290.2,25.3,D\n" +
			"-18.50000,-61.00000,310.4,0.41,0.37,2024-08-01,1730,N,VIIRS,n,2.0NRT,288.0,4.1,D\n",
		"VIIRS_NOAA20_NRT": csvHeader + "\r\n" +
			"-17.123451,-60.987649,331.0,0.40,0.36,2024-08-01,1730,1,VIIRS,l,2.0NRT,290.0,1.2,D\r\n" +
			"-19.00000,-59.00000,305.0,0.40,0.36,2024-08-01,412,1,VIIRS,l,2.0NRT,285.0,0.8,N\r\n",
	})

	cfg := &config.Config{
		KafkaBrokers:    []string{broker},
		KafkaLayerTopic: testLayerTopic,
	}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	client := firms.NewClient(firmsSrv.URL, 10*time.Second, metrics, discardLogger())
	params, err := pipeline.NewParamState(pipeline.Params{
		Sources: []string{"VIIRS_SNPP_NRT", "VIIRS_NOAA20_NRT"},
		Days:    2,
		Enabled: true,
	})
	require.NoError(t, err)

	store := layer.NewStore(true)
	sink := layer.NewFanout(discardLogger(), store, writer)
	status := pipeline.NewStatusBoard(clockwork.NewRealClock(), discardLogger())
	o := pipeline.New(client, params, sink, status, discardLogger(), metrics, pipeline.Options{
		MapKey:       "integration-key",
		BoundingBox:  domain.BoundingBox{-64.9, -22.5, -57.0, -16.0},
		DiscardStale: true,
	})

	require.NoError(t, o.RunCycle(ctx, pipeline.TriggerManual))
	assert.Equal(t, "Showing 3 detections.", status.Current().Message)
	require.Equal(t, 3, store.Snapshot().Layer.Len())

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testLayerTopic,
		GroupID:     fmt.Sprintf("test-layer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	var sources []string
	for range 3 {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read from layer topic")

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		assert.Equal(t, "1", headers["cycle"])
		_, err = time.Parse(time.RFC3339, headers["generated_at"])
		assert.NoError(t, err, "generated_at should be RFC3339")
		sources = append(sources, headers["source"])

		f, err := geojson.UnmarshalFeature(msg.Value)
		require.NoError(t, err)
		assert.Equal(t, string(msg.Key), f.ID)
		assert.True(t, f.Geometry.IsPoint())
	}

	// The duplicate from the second source was dropped in favour of the first.
	assert.Equal(t, []string{"VIIRS_SNPP_NRT", "VIIRS_SNPP_NRT", "VIIRS_NOAA20_NRT"}, sources)
}
