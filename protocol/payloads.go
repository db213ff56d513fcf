package protocol

import "time"

// Message is the wire shape of one chat entry.
type Message struct {
	From string    `json:"from"`
	Body string    `json:"body"`
	At   time.Time `json:"at"`
}

// RoomSummary is one entry of a room listing.
type RoomSummary struct {
	Name    string `json:"name"`
	Topic   string `json:"topic"`
	Owner   string `json:"owner"`
	Members int    `json:"members"`
}

// Client → server payloads. Validator tags carry the input limits.

type Register struct {
	Username string `json:"username" validate:"required,min=2,max=32"`
	Password string `json:"password" validate:"required"`
}

type Login struct {
	Username string `json:"username" validate:"required,min=2,max=32"`
	Password string `json:"password" validate:"required"`
}

type Chat struct {
	Body string `json:"body" validate:"required,max=1000"`
}

type Join struct {
	Room string `json:"room" validate:"required,min=2,max=32"`
}

type CreateRoom struct {
	Name  string `json:"name" validate:"required,min=2,max=32"`
	Topic string `json:"topic" validate:"max=200"`
}

type DeleteRoom struct {
	Name string `json:"name" validate:"required"`
}

type DM struct {
	To   string `json:"to" validate:"required,min=2,max=32"`
	Body string `json:"body" validate:"required,max=1000"`
}

type DMHistoryRequest struct {
	With string `json:"with" validate:"required,min=2,max=32"`
}

// HistoryRequest carries no limit validation on purpose: out-of-range
// limits are clamped server-side, not rejected as malformed.
type HistoryRequest struct {
	Room  string `json:"room,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

type Whois struct {
	User string `json:"user" validate:"required,min=2,max=32"`
}

type SetBio struct {
	Bio string `json:"bio" validate:"max=200"`
}

// Server → client payloads.

type LoginOK struct {
	Username string        `json:"username"`
	Motd     string        `json:"motd"`
	Rooms    []RoomSummary `json:"rooms"`
	Online   []string      `json:"online"`
}

type LoginFail struct {
	Reason string `json:"reason"`
}

type ChatEvent struct {
	Room string    `json:"room"`
	From string    `json:"from"`
	Body string    `json:"body"`
	At   time.Time `json:"at"`
}

type RoomJoined struct {
	Room    string    `json:"room"`
	Topic   string    `json:"topic"`
	Members []string  `json:"members"`
	History []Message `json:"history"`
}

type RoomList struct {
	Rooms []RoomSummary `json:"rooms"`
}

type OnlineList struct {
	Users []string `json:"users"`
}

type DMEvent struct {
	From string    `json:"from"`
	To   string    `json:"to"`
	Body string    `json:"body"`
	At   time.Time `json:"at"`
}

type DMThread struct {
	With     string    `json:"with"`
	Messages []Message `json:"messages"`
}

type HistorySet struct {
	Room     string    `json:"room"`
	Messages []Message `json:"messages"`
}

type Profile struct {
	User   string    `json:"user"`
	Bio    string    `json:"bio"`
	Joined time.Time `json:"joined"`
	Online bool      `json:"online"`
	Room   string    `json:"room,omitempty"`
}

type System struct {
	Text string `json:"text"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Presence struct {
	User   string `json:"user"`
	Online bool   `json:"online"`
}
