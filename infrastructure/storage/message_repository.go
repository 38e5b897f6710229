//go:generate go run go.uber.org/mock/mockgen -source=message_repository.go -destination=../../mocks/mock_message_repository.go -package=mocks
package storage

import (
	"chat-sync/domain"
	"context"
)

// MessageRepository is the durable side of the message log.
// Append assigns the next id; ids are contiguous and start at 1.
// Since returns messages with id greater than after, in id order,
// at most limit of them when limit is positive.
type MessageRepository interface {
	Append(ctx context.Context, draft domain.Draft) (domain.Message, error)
	Since(ctx context.Context, after domain.MessageID, limit int) ([]domain.Message, error)
	LatestID(ctx context.Context) (domain.MessageID, error)
}
