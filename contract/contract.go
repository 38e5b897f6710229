//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-sync/domain"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Delivery hands one message to the viewer side.
// The context is canceled when the session is closed.
type Delivery func(ctx context.Context, message domain.Message) error

// Publisher receives every committed message, in id order.
// Publish must not block.
type Publisher interface {
	Publish(message domain.Message)
}

// Subscriber is a live connection known to the hub.
type Subscriber interface {
	ID() string
	ViewerID() string
	LastDeliveredID() domain.MessageID
	Enqueue(message domain.Message)
}

type IHub interface {
	Publisher
	Register(subscriber Subscriber) domain.Subscription
	Unregister(subscriberID string) bool
	Len() int
}

type IMessageStore interface {
	Append(ctx context.Context, cmd domain.SendCommand) (domain.Message, error)
	Since(ctx context.Context, after domain.MessageID) ([]domain.Message, error)
	Page(ctx context.Context, after domain.MessageID, limit int) ([]domain.Message, error)
	LatestID(ctx context.Context) (domain.MessageID, error)
}
