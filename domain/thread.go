package domain

import "strings"

// ThreadHistoryCap bounds a direct-message thread's retained history.
const ThreadHistoryCap = 200

// Thread is the private message history between exactly two users,
// created lazily on first direct message and never deleted.
type Thread struct {
	Key      string    `json:"key"`
	Messages []Message `json:"messages"`
}

// ThreadKey derives the canonical key for the unordered pair of usernames,
// so that the thread between A and B is the thread between B and A.
func ThreadKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// ThreadUsers splits a canonical key back into its two usernames.
func ThreadUsers(key string) (string, string) {
	a, b, _ := strings.Cut(key, ":")
	return a, b
}

// Append adds a message and enforces the thread cap.
func (t *Thread) Append(msg Message) {
	t.Messages = append(t.Messages, msg)
	if len(t.Messages) > ThreadHistoryCap {
		t.Messages = t.Messages[len(t.Messages)-ThreadHistoryCap:]
	}
}

// Tail returns the most recent n messages in chronological order.
func (t *Thread) Tail(n int) []Message {
	return tail(t.Messages, n)
}
