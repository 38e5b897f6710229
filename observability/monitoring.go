package observability

import (
	"log/slog"
	"runtime"
	"sync"
	"time"
)

// MonitoringStats is the latest picture of the chat server
type MonitoringStats struct {
	// --- LOG ---
	TailID uint64 `json:"tail_id"`

	// --- VIEWERS ---
	ActiveSessions int `json:"active_sessions"`

	// --- SYSTEM ---
	RSSBytes   uint64    `json:"rss_bytes"`
	AllocMemMb uint64    `json:"alloc_mem_mb"`
	NumGC      uint32    `json:"num_gc"`
	SampledAt  time.Time `json:"sampled_at"`
}

// MonitoringManager keeps the last telemetry sample for the ops endpoints
type MonitoringManager struct {
	log         *slog.Logger
	mu          sync.RWMutex
	latestStats MonitoringStats
}

func NewMonitoringManager(log *slog.Logger) *MonitoringManager {
	return &MonitoringManager{log: log}
}

// Update stores a new sample, completed with the Go runtime memory stats
func (mm *MonitoringManager) Update(stats MonitoringStats) MonitoringStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	stats.AllocMemMb = m.Alloc / 1024 / 1024
	stats.NumGC = m.NumGC
	if stats.SampledAt.IsZero() {
		stats.SampledAt = time.Now().UTC()
	}

	mm.mu.Lock()
	mm.latestStats = stats
	mm.mu.Unlock()

	mm.log.Debug("Stats updated",
		"tail_id", stats.TailID,
		"active_sessions", stats.ActiveSessions,
		"rss_bytes", stats.RSSBytes,
		"mem_mb", stats.AllocMemMb)
	return stats
}

func (mm *MonitoringManager) GetLatest() MonitoringStats {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.latestStats
}
