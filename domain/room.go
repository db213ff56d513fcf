package domain

// RoomHistoryCap bounds a room's retained history; the oldest entry is
// evicted on overflow, enforced on every append.
const RoomHistoryCap = 500

// DefaultHistoryWindow is how many recent messages a history request
// returns when no explicit count is given.
const DefaultHistoryWindow = 50

// MaxHistoryWindow caps how many messages a single history request may
// ask for; larger requests are clamped, not rejected.
const MaxHistoryWindow = 200

// DefaultRooms exist at first boot and can never be deleted.
var DefaultRooms = []string{"general", "random", "tech"}

// HomeRoom is where freshly authenticated sessions land, and where members
// of a deleted room are relocated.
const HomeRoom = "general"

// Room is a named shared channel with an owner and a bounded, append-only
// message history. Presence (who is currently joined) is derived from live
// sessions and is not part of the entity.
type Room struct {
	Name    string    `json:"name"`
	Topic   string    `json:"topic"`
	Owner   string    `json:"owner"`
	Default bool      `json:"default"`
	History []Message `json:"history"`
}

// Append adds a message and enforces the history cap.
func (r *Room) Append(msg Message) {
	r.History = append(r.History, msg)
	if len(r.History) > RoomHistoryCap {
		r.History = r.History[len(r.History)-RoomHistoryCap:]
	}
}

// Tail returns the most recent n messages in chronological order.
// Asking for more than stored returns what exists.
func (r *Room) Tail(n int) []Message {
	return tail(r.History, n)
}

func tail(history []Message, n int) []Message {
	if n <= 0 {
		n = DefaultHistoryWindow
	}
	if n > len(history) {
		n = len(history)
	}
	out := make([]Message, n)
	copy(out, history[len(history)-n:])
	return out
}
