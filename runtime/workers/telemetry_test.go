package workers

import (
	"chat-sync/domain"
	"chat-sync/errors"
	"chat-sync/mocks"
	"chat-sync/observability"
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shirou/gopsutil/process"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestTelemetryWorker_Sample(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	store := mocks.NewMockIMessageStore(ctrl)
	hub := mocks.NewMockIHub(ctrl)

	// Given a log of 42 messages and 3 viewers
	store.EXPECT().LatestID(gomock.Any()).Return(domain.MessageID(42), nil).Times(1)
	hub.EXPECT().Len().Return(3).Times(1)
	p, err := process.NewProcess(int32(os.Getpid()))
	req.NoError(err)

	// When a sample is taken
	monitoring := observability.NewMonitoringManager(log)
	NewTelemetryWorker(log, time.Second, store, hub, monitoring).sample(context.Background(), p)

	// Then the gauges and the monitoring follow the sample
	snapshot := monitoring.GetLatest()
	req.Equal(uint64(42), snapshot.TailID)
	req.Equal(3, snapshot.ActiveSessions)
	req.Greater(snapshot.RSSBytes, uint64(0))
	req.Equal(float64(42), testutil.ToFloat64(observability.LogTailID))
	req.Equal(float64(3), testutil.ToFloat64(observability.SessionsActive))
}

func TestTelemetryWorker_Sample_StoreFailureKeepsGoing(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	store := mocks.NewMockIMessageStore(ctrl)
	hub := mocks.NewMockIHub(ctrl)

	store.EXPECT().LatestID(gomock.Any()).Return(domain.MessageID(0), errors.ErrStorage).Times(1)
	hub.EXPECT().Len().Return(1).Times(1)

	snapshot := NewTelemetryWorker(log, time.Second, store, hub, nil).sample(context.Background(), nil)

	req.Equal(uint64(0), snapshot.TailID)
	req.Equal(1, snapshot.ActiveSessions)
}

func TestTelemetryWorker_Run_StopsOnCancel(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	store := mocks.NewMockIMessageStore(ctrl)
	hub := mocks.NewMockIHub(ctrl)
	store.EXPECT().LatestID(gomock.Any()).Return(domain.MessageID(1), nil).AnyTimes()
	hub.EXPECT().Len().Return(0).AnyTimes()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := NewTelemetryWorker(log, 10*time.Millisecond, store, hub, observability.NewMonitoringManager(log)).Run(ctx)
	req.NoError(err)
}
