package prometheus

import (
	"testing"
	"time"

	"content-service/pkg/config"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackDBOperation(t *testing.T) {
	cfg := &config.Config{Metrics: config.MetricsConfig{Prefix: "content_test"}}
	InitMetrics(cfg)

	assert.Equal(t, 0, testutil.CollectAndCount(DbOperationDuration))

	done := TrackDBOperation("insert")
	done(time.Now().Add(-5 * time.Millisecond))

	assert.Equal(t, 1, testutil.CollectAndCount(DbOperationDuration, "content_test_db_operation_duration_seconds"))

	TrackDBOperation("select")(time.Now())
	assert.Equal(t, 2, testutil.CollectAndCount(DbOperationDuration))
}
