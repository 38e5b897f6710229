package runtime

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"chat-sync/observability"
	"log/slog"
	"sort"
	"sync"
)

// SubscriptionHub tracks connected viewers and fans every committed message out to them.
// Publish only enqueues: each subscriber drains its own queue, so a slow viewer never
// delays the others nor the appending caller.
type SubscriptionHub struct {
	mu          sync.RWMutex
	log         *slog.Logger
	subscribers map[string]contract.Subscriber // map session -> subscriber
}

func NewSubscriptionHub(log *slog.Logger) *SubscriptionHub {
	return &SubscriptionHub{
		log:         log,
		subscribers: make(map[string]contract.Subscriber),
	}
}

// Register adds the subscriber, replacing a previous one with the same id.
// The returned Subscription starts at the subscriber's low-water mark.
func (h *SubscriptionHub) Register(subscriber contract.Subscriber) domain.Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.subscribers[subscriber.ID()] = subscriber
	observability.SessionsActive.Set(float64(len(h.subscribers)))
	h.log.Debug("Subscriber registered",
		"session_id", subscriber.ID(),
		"viewer_id", subscriber.ViewerID(),
		"from_id", subscriber.LastDeliveredID())
	return toSubscription(subscriber)
}

// Unregister removes the subscriber. It is idempotent and reports whether
// the subscriber was still known.
func (h *SubscriptionHub) Unregister(subscriberID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[subscriberID]; !ok {
		return false
	}
	delete(h.subscribers, subscriberID)
	observability.SessionsActive.Set(float64(len(h.subscribers)))
	h.log.Debug("Subscriber unregistered", "session_id", subscriberID)
	return true
}

// Publish enqueues the message for every subscriber that has not yet delivered it.
func (h *SubscriptionHub) Publish(message domain.Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, subscriber := range h.subscribers {
		if message.ID > subscriber.LastDeliveredID() {
			subscriber.Enqueue(message)
		}
	}
}

func (h *SubscriptionHub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Subscriptions returns a snapshot of the active subscriptions ordered by session id.
func (h *SubscriptionHub) Subscriptions() []domain.Subscription {
	h.mu.RLock()
	defer h.mu.RUnlock()

	res := make([]domain.Subscription, 0, len(h.subscribers))
	for _, subscriber := range h.subscribers {
		res = append(res, toSubscription(subscriber))
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].SessionID < res[j].SessionID
	})
	return res
}

func toSubscription(subscriber contract.Subscriber) domain.Subscription {
	return domain.Subscription{
		ViewerID:        subscriber.ViewerID(),
		SessionID:       subscriber.ID(),
		LastDeliveredID: subscriber.LastDeliveredID(),
	}
}
