package observability

import (
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestMonitoringManager_Update(t *testing.T) {
	req := require.New(t)
	mm := NewMonitoringManager(logs.GetLoggerFromLevel(slog.LevelDebug))
	req.Zero(mm.GetLatest().TailID)

	// When the telemetry reports a sample
	mm.Update(MonitoringStats{TailID: 12, ActiveSessions: 3, RSSBytes: 1 << 20})

	// Then the latest sample is completed and kept
	latest := mm.GetLatest()
	req.Equal(uint64(12), latest.TailID)
	req.Equal(3, latest.ActiveSessions)
	req.Equal(uint64(1<<20), latest.RSSBytes)
	req.False(latest.SampledAt.IsZero())
}
