package runtime

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"chat-sync/errors"
	"chat-sync/observability"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

const DefaultMaxFailures = 3

// SessionConfig bounds the resources of a single viewer session.
type SessionConfig struct {
	// QueueSize caps the live messages waiting for delivery, 0 means unbounded.
	// Overflow disconnects the session with ErrSlowConsumer.
	QueueSize int
	// MaxFailures is the number of consecutive delivery failures
	// after which the session is disconnected.
	MaxFailures int
	// ReplayBatchSize is the page size used to read the backlog, 0 reads it at once.
	ReplayBatchSize int
}

// SyncSession delivers the log to one viewer: the backlog after fromID first,
// then every message pushed by the hub, strictly in id order.
//
// A single goroutine drains the session, so the delivery callback is never
// called concurrently with itself. Delivery is at-most-once: a failed message
// is skipped and never retried within the session, and LastDeliveredID only
// moves on success. Reconnecting with a new session from LastDeliveredID
// recovers anything missed.
type SyncSession struct {
	id       string
	viewerID string
	fromID   domain.MessageID
	store    contract.IMessageStore
	hub      contract.IHub
	deliver  contract.Delivery
	config   SessionConfig
	log      *slog.Logger
	onState  func(from, to domain.SessionState)

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      domain.SessionState
	started    bool
	pending    []domain.Message
	queuedUpTo domain.MessageID
	reason     error

	wake          chan struct{}
	done          chan struct{}
	finishOnce    sync.Once
	lastDelivered atomic.Uint64
	// failures is only touched by the draining goroutine
	failures int
}

func NewSyncSession(log *slog.Logger, store contract.IMessageStore, hub contract.IHub,
	viewerID string, fromID domain.MessageID, deliver contract.Delivery, config SessionConfig) *SyncSession {
	ctx, cancel := context.WithCancel(context.Background())
	s := &SyncSession{
		id:         uuid.NewString(),
		viewerID:   viewerID,
		fromID:     fromID,
		store:      store,
		hub:        hub,
		deliver:    deliver,
		config:     config,
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
		state:      domain.Connecting,
		queuedUpTo: fromID,
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	s.lastDelivered.Store(uint64(fromID))
	return s
}

// OnStateChange registers a hook called after every transition.
// It must be set before Start and must not call back into the session.
func (s *SyncSession) OnStateChange(fn func(from, to domain.SessionState)) {
	s.onState = fn
}

func (s *SyncSession) ID() string { return s.id }

func (s *SyncSession) ViewerID() string { return s.viewerID }

func (s *SyncSession) FromID() domain.MessageID { return s.fromID }

// LastDeliveredID is the low-water mark: the highest id the callback accepted.
func (s *SyncSession) LastDeliveredID() domain.MessageID {
	return domain.MessageID(s.lastDelivered.Load())
}

func (s *SyncSession) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err is the reason of the disconnection, nil while the session is running.
func (s *SyncSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Done is closed once the session is disconnected and unregistered from the hub.
func (s *SyncSession) Done() <-chan struct{} {
	return s.done
}

// Start registers the session in the hub and starts delivering.
// The hub registration happens before the backlog snapshot is taken, so every
// message past the snapshot is guaranteed to be pushed by the hub.
func (s *SyncSession) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state == domain.Disconnected {
		s.mu.Unlock()
		return errors.ErrSessionClosed
	}
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("session %s already started", s.id)
	}
	s.started = true
	s.mu.Unlock()

	s.hub.Register(s)
	until, err := s.store.LatestID(ctx)
	if err != nil {
		s.disconnect(err)
		s.finish()
		return err
	}
	if !s.transition(domain.Replaying) {
		s.finish()
		return errors.ErrSessionClosed
	}
	go s.run(until)
	return nil
}

// Close disconnects the session and waits for the draining goroutine to stop.
// When Close returns no delivery is in flight and none will happen.
// It is idempotent. From inside the delivery callback use Disconnect instead,
// Close would wait for the callback to return.
func (s *SyncSession) Close() error {
	if s.Disconnect() {
		<-s.done
	}
	return nil
}

// Disconnect moves the session to DISCONNECTED without waiting for the
// draining goroutine. A delivery already running completes, no other one starts.
// It is safe to call from the delivery callback and reports whether the
// session had been started.
func (s *SyncSession) Disconnect() bool {
	s.mu.Lock()
	from, changed := s.disconnectLocked(errors.ErrSessionClosed)
	started := s.started
	s.started = true
	s.mu.Unlock()

	if changed {
		s.notify(from, domain.Disconnected)
	}
	if !started {
		s.finish()
	}
	return started
}

// Enqueue is called by the hub for every message published after registration.
func (s *SyncSession) Enqueue(message domain.Message) {
	s.mu.Lock()
	if s.state == domain.Disconnected || message.ID <= s.queuedUpTo {
		s.mu.Unlock()
		return
	}
	s.pending = append(s.pending, message)
	s.queuedUpTo = message.ID
	if s.config.QueueSize > 0 && len(s.pending) > s.config.QueueSize {
		from, changed := s.disconnectLocked(errors.ErrSlowConsumer)
		s.mu.Unlock()
		if changed {
			s.log.Warn("Session queue overflow",
				"session_id", s.id, "viewer_id", s.viewerID, "queue_size", s.config.QueueSize)
			s.notify(from, domain.Disconnected)
		}
		return
	}
	s.mu.Unlock()
	s.signal()
}

func (s *SyncSession) run(until domain.MessageID) {
	defer s.finish()

	if !s.replay(until) {
		return
	}
	if !s.goLive(until) {
		return
	}
	for {
		batch, ok := s.next()
		if !ok {
			return
		}
		for _, message := range batch {
			if !s.deliverOne(message, "live") {
				return
			}
		}
	}
}

// replay delivers the backlog (fromID, until], page by page.
func (s *SyncSession) replay(until domain.MessageID) bool {
	after := s.fromID
	limit := s.config.ReplayBatchSize
	for after < until {
		batch, err := s.store.Page(s.ctx, after, limit)
		if err != nil {
			s.disconnect(fmt.Errorf("replay after %d: %w", after, err))
			return false
		}
		if len(batch) == 0 {
			return true
		}
		for _, message := range batch {
			if message.ID > until {
				return true
			}
			if !s.deliverOne(message, "replay") {
				return false
			}
			after = message.ID
		}
		if limit <= 0 {
			return true
		}
	}
	return true
}

// goLive drops the queued pushes already covered by the backlog and switches to LIVE.
func (s *SyncSession) goLive(until domain.MessageID) bool {
	floor := max(until, s.fromID)

	s.mu.Lock()
	if s.state == domain.Disconnected {
		s.mu.Unlock()
		return false
	}
	kept := s.pending[:0]
	for _, message := range s.pending {
		if message.ID > floor {
			kept = append(kept, message)
		}
	}
	s.pending = kept
	from := s.state
	s.state = domain.Live
	s.mu.Unlock()

	s.notify(from, domain.Live)
	return true
}

func (s *SyncSession) next() ([]domain.Message, bool) {
	for {
		s.mu.Lock()
		if s.state == domain.Disconnected {
			s.mu.Unlock()
			return nil, false
		}
		if len(s.pending) > 0 {
			batch := s.pending
			s.pending = nil
			s.mu.Unlock()
			return batch, true
		}
		s.mu.Unlock()
		<-s.wake
	}
}

func (s *SyncSession) deliverOne(message domain.Message, phase string) bool {
	s.mu.Lock()
	closed := s.state == domain.Disconnected
	s.mu.Unlock()
	if closed {
		return false
	}

	if err := s.invoke(message); err != nil {
		s.failures++
		observability.DeliveryFailures.Inc()
		s.log.Warn("Delivery failed",
			"session_id", s.id,
			"viewer_id", s.viewerID,
			"message_id", message.ID,
			"failures", s.failures,
			"error", err)
		if s.failures >= s.maxFailures() {
			s.disconnect(fmt.Errorf("%d consecutive failures: %w", s.failures, err))
			return false
		}
		return true
	}
	s.failures = 0
	s.lastDelivered.Store(uint64(message.ID))
	observability.Deliveries.WithLabelValues(phase).Inc()
	return true
}

func (s *SyncSession) invoke(message domain.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: callback panic: %v", errors.ErrTransport, r)
		}
	}()
	if err := s.deliver(s.ctx, message); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrTransport, err)
	}
	return nil
}

func (s *SyncSession) maxFailures() int {
	if s.config.MaxFailures <= 0 {
		return DefaultMaxFailures
	}
	return s.config.MaxFailures
}

func (s *SyncSession) transition(to domain.SessionState) bool {
	s.mu.Lock()
	if s.state == domain.Disconnected {
		s.mu.Unlock()
		return false
	}
	from := s.state
	s.state = to
	s.mu.Unlock()

	s.notify(from, to)
	return true
}

func (s *SyncSession) disconnect(reason error) {
	s.mu.Lock()
	from, changed := s.disconnectLocked(reason)
	s.mu.Unlock()
	if changed {
		s.notify(from, domain.Disconnected)
	}
}

// disconnectLocked must be called with mu held.
func (s *SyncSession) disconnectLocked(reason error) (domain.SessionState, bool) {
	if s.state == domain.Disconnected {
		return s.state, false
	}
	from := s.state
	s.state = domain.Disconnected
	s.reason = reason
	s.pending = nil
	s.cancel()
	s.signal()
	return from, true
}

func (s *SyncSession) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *SyncSession) notify(from, to domain.SessionState) {
	s.log.Debug("Session state changed",
		"session_id", s.id, "viewer_id", s.viewerID, "from", from.String(), "to", to.String())
	if s.onState != nil {
		s.onState(from, to)
	}
}

func (s *SyncSession) finish() {
	s.finishOnce.Do(func() {
		s.hub.Unregister(s.id)
		s.cancel()
		reason := s.Err()
		observability.SessionsDisconnected.WithLabelValues(reasonLabel(reason)).Inc()
		s.log.Info("Session disconnected",
			"session_id", s.id,
			"viewer_id", s.viewerID,
			"last_delivered_id", s.LastDeliveredID(),
			"reason", reason)
		close(s.done)
	})
}

func reasonLabel(reason error) string {
	switch {
	case reason == nil, stderrors.Is(reason, errors.ErrSessionClosed):
		return "closed"
	case stderrors.Is(reason, errors.ErrSlowConsumer):
		return "slow_consumer"
	case stderrors.Is(reason, errors.ErrTransport):
		return "transport"
	default:
		return "storage"
	}
}
