// Package protocol defines the wire format spoken between client and
// server: one self-delimited JSON record per line, each a tagged frame
// with a schema version, a type discriminator and a typed payload.
package protocol

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Version is the current frame schema version.
const Version = 1

// Kind discriminates frame payloads. The command set is closed: unknown
// kinds are a non-fatal protocol error, never a connection drop.
type Kind string

const (
	// Client → server.
	KindRegister   Kind = "register"
	KindLogin      Kind = "login"
	KindChat       Kind = "chat"
	KindJoin       Kind = "join"
	KindCreateRoom Kind = "create_room"
	KindDeleteRoom Kind = "delete_room"
	KindRooms      Kind = "rooms"
	KindOnline     Kind = "online"
	KindDM         Kind = "dm"
	KindDMHistory  Kind = "dm_history"
	KindHistory    Kind = "history"
	KindWhois      Kind = "whois"
	KindSetBio     Kind = "set_bio"
	KindPing       Kind = "ping"
	KindQuit       Kind = "quit"

	// Server → client.
	KindLoginOK    Kind = "login_ok"
	KindLoginFail  Kind = "login_fail"
	KindChatEvent  Kind = "chat_event"
	KindRoomJoined Kind = "room_joined"
	KindRoomList   Kind = "room_list"
	KindOnlineList Kind = "online_list"
	KindDMEvent    Kind = "dm_event"
	KindDMThread   Kind = "dm_thread"
	KindHistorySet Kind = "history_set"
	KindProfile    Kind = "profile"
	KindSystem     Kind = "system"
	KindError      Kind = "error"
	KindPresence   Kind = "presence_update"
	KindPong       Kind = "pong"
)

// Frame is one wire record. Payload stays raw until the receiver knows
// the concrete type for the frame's kind.
type Frame struct {
	Version int             `json:"v"`
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ErrMalformed marks records that could not be parsed or validated.
// The offending session gets an error frame; the connection survives.
var ErrMalformed = errors.New("malformed frame")

var validate = validator.New()

// New builds a frame of the given kind around a marshaled payload.
func New(kind Kind, payload any) (Frame, error) {
	frame := Frame{Version: Version, Type: kind}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Frame{}, fmt.Errorf("marshal %s payload: %w", kind, err)
		}
		frame.Payload = raw
	}
	return frame, nil
}

// MustNew is New for payloads the server itself constructs, where a
// marshal failure is a programming error.
func MustNew(kind Kind, payload any) Frame {
	frame, err := New(kind, payload)
	if err != nil {
		panic(err)
	}
	return frame
}

// Encode renders a frame as a single newline-terminated record.
func Encode(frame Frame) ([]byte, error) {
	raw, err := json.Marshal(frame)
	if err != nil {
		return nil, err
	}
	return append(raw, '\n'), nil
}

// Decode parses one record off the reader. It blocks until a full line
// arrives or the connection fails. No size bound beyond the delimiter is
// assumed; the reader's own buffer limit applies.
func Decode(r *bufio.Reader) (Frame, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return Frame{}, err
	}
	var frame Frame
	if err := json.Unmarshal(line, &frame); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if frame.Type == "" {
		return Frame{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return frame, nil
}

// Into unmarshals and validates a frame's payload into dst, which must be
// a pointer to one of the payload structs in this package. Field rules are
// declared as validator tags on the structs.
func Into(frame Frame, dst any) error {
	if len(frame.Payload) == 0 {
		return fmt.Errorf("%w: missing payload", ErrMalformed)
	}
	if err := json.Unmarshal(frame.Payload, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
