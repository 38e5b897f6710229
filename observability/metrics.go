package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chat"

var (
	// MessagesAppended counts messages committed to the log.
	MessagesAppended = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_appended_total",
		Help:      "Total number of messages appended to the log",
	})

	// AppendsRejected counts refused appends by reason (validation, storage).
	AppendsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "appends_rejected_total",
		Help:      "Total number of rejected appends per reason",
	}, []string{"reason"})

	// LogTailID is the id of the last committed message.
	LogTailID = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "log_tail_id",
		Help:      "Id of the last message of the log",
	})

	// Deliveries counts messages handed to viewers, by phase (replay, live).
	Deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deliveries_total",
		Help:      "Total number of messages delivered to viewers per phase",
	}, []string{"phase"})

	// DeliveryFailures counts delivery callback errors and panics.
	DeliveryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "delivery_failures_total",
		Help:      "Total number of failed deliveries",
	})

	// SessionsActive is the number of sessions registered in the hub.
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Number of viewer sessions currently connected",
	})

	// SessionsDisconnected counts terminated sessions by reason.
	SessionsDisconnected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_disconnected_total",
		Help:      "Total number of disconnected sessions per reason",
	}, []string{"reason"})

	// ServerRSSBytes is the resident memory of the server process.
	ServerRSSBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "server_rss_bytes",
		Help:      "Resident set size of the chat server process",
	})
)
