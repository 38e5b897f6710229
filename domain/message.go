// Package domain contains core concepts of the chat system.
// This file defines Message entries of the shared log and related rules.
// Messages are immutable once appended.
package domain

import (
	"strconv"
	"time"
)

// MessageID is the position of a message in the log.
// Ids start at 1 and strictly increase in append order; 0 means "before the first message".
type MessageID uint64

func (id MessageID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Message represents an immutable entry of the chat log.
type Message struct {
	ID        MessageID
	Sender    string
	Body      string
	CreatedAt time.Time
}

// Draft is a validated message not yet committed to the log.
// The persistence backend turns it into a Message by assigning the next id.
type Draft struct {
	Sender    string
	Body      string
	CreatedAt time.Time
}
