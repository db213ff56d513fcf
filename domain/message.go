// Package domain contains core concepts of the chat service.
// Entities here carry no runtime, network, or UI logic.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable chat event, either room-scoped or
// belonging to a direct-message thread. Append order is chronological order.
type Message struct {
	ID     uuid.UUID `json:"id"`
	Sender string    `json:"sender"`
	Body   string    `json:"body"`
	At     time.Time `json:"at"`
}

// NewMessage stamps a message with a fresh ID and a UTC timestamp.
func NewMessage(sender, body string) Message {
	return Message{
		ID:     uuid.New(),
		Sender: sender,
		Body:   body,
		At:     time.Now().UTC(),
	}
}
