package workers

import (
	"chat-sync/contract"
	"chat-sync/observability"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

const defaultMetricInterval = 5 * time.Second

// TelemetryWorker samples the log tail, the connected sessions and the
// server memory at a fixed interval, publishes them as gauges and keeps
// the last sample in the monitoring manager
type TelemetryWorker struct {
	log            *slog.Logger
	metricInterval time.Duration
	store          contract.IMessageStore
	hub            contract.IHub
	monitoring     *observability.MonitoringManager
}

func NewTelemetryWorker(log *slog.Logger,
	metricInterval time.Duration,
	store contract.IMessageStore,
	hub contract.IHub,
	monitoring *observability.MonitoringManager) *TelemetryWorker {
	if metricInterval <= 0 {
		metricInterval = defaultMetricInterval
	}
	return &TelemetryWorker{
		log:            log,
		metricInterval: metricInterval,
		store:          store,
		hub:            hub,
		monitoring:     monitoring,
	}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	w.log.Info("Starting telemetry worker", "interval", w.metricInterval)
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.sample(ctx, p)
		}
	}
}

func (w *TelemetryWorker) sample(ctx context.Context, p *process.Process) observability.MonitoringStats {
	var stats observability.MonitoringStats
	tail, err := w.store.LatestID(ctx)
	if err != nil {
		w.log.Warn("Unable to read the log tail", "error", err)
	} else {
		stats.TailID = uint64(tail)
		observability.LogTailID.Set(float64(tail))
	}

	stats.ActiveSessions = w.hub.Len()
	observability.SessionsActive.Set(float64(stats.ActiveSessions))

	if p != nil {
		memInfo, err := p.MemoryInfo()
		if err != nil {
			w.log.Error("Failed to collect self stats", "error", err)
		} else {
			stats.RSSBytes = memInfo.RSS
			observability.ServerRSSBytes.Set(float64(memInfo.RSS))
		}
	}

	if w.monitoring != nil {
		return w.monitoring.Update(stats)
	}
	return stats
}
