package services

import (
	"sort"
	"strings"

	"github.com/samber/lo"

	"nexus-chat/domain"
)

// RoomInfo is one entry of the room listing projection.
type RoomInfo struct {
	Name    string
	Topic   string
	Owner   string
	Members int
}

// JoinResult is everything a session needs after entering a room: the
// room's recent history for the joiner, and the presence set for
// announcements, all captured in one consistent snapshot.
type JoinResult struct {
	Room     string
	Topic    string
	Previous string
	Rejoined bool
	Members  []string
	History  []domain.Message
}

// DeleteResult reports who was relocated to the home room when an
// occupied room was deleted, plus the home room's state after the move.
type DeleteResult struct {
	Room  string
	Moved []string
	Home  JoinResult
}

// NormalizeRoomName applies the canonical room-name form: lowercase,
// spaces collapsed to dashes.
func NormalizeRoomName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}

// CreateRoom creates a room owned by the caller. The creator does not
// join automatically; an explicit join is still required.
func (s *ChatService) CreateRoom(owner, name, topic string) (RoomInfo, error) {
	name = NormalizeRoomName(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.snap.Rooms[name]; exists {
		return RoomInfo{}, domain.ErrRoomAlreadyExists
	}
	s.snap.Rooms[name] = &domain.Room{Name: name, Topic: topic, Owner: owner}
	if err := s.flushLocked(); err != nil {
		return RoomInfo{}, err
	}
	return RoomInfo{Name: name, Topic: topic, Owner: owner}, nil
}

// DeleteRoom removes a room. Only the owner may delete it, default rooms
// are exempt, and any members present are relocated to the home room.
func (s *ChatService) DeleteRoom(caller, name string) (DeleteResult, error) {
	name = NormalizeRoomName(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.snap.Rooms[name]
	if !ok {
		return DeleteResult{}, domain.ErrRoomNotFound
	}
	if room.Default {
		return DeleteResult{}, domain.ErrCannotDeleteDefaultRoom
	}
	if room.Owner != caller {
		return DeleteResult{}, domain.ErrNotOwner
	}

	moved := s.membersLocked(name)
	for _, member := range moved {
		s.where[member] = domain.HomeRoom
	}
	delete(s.snap.Rooms, name)

	home := s.snap.Rooms[domain.HomeRoom]
	result := DeleteResult{
		Room:  name,
		Moved: moved,
		Home: JoinResult{
			Room:    home.Name,
			Topic:   home.Topic,
			Members: s.membersLocked(domain.HomeRoom),
			History: home.Tail(domain.DefaultHistoryWindow),
		},
	}
	if err := s.flushLocked(); err != nil {
		// The deletion and relocation already happened in authoritative
		// memory; callers still need the result to notify moved members.
		return result, err
	}
	return result, nil
}

// JoinRoom moves the user's presence from its previous room to the named
// one and returns the new room's recent history. Re-joining the current
// room is allowed and flagged, so callers can skip announcements.
func (s *ChatService) JoinRoom(username, name string) (JoinResult, error) {
	name = NormalizeRoomName(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.snap.Rooms[name]
	if !ok {
		return JoinResult{}, domain.ErrRoomNotFound
	}

	previous := s.where[username]
	s.where[username] = name

	return JoinResult{
		Room:     name,
		Topic:    room.Topic,
		Previous: previous,
		Rejoined: previous == name,
		Members:  s.membersLocked(name),
		History:  room.Tail(domain.DefaultHistoryWindow),
	}, nil
}

// ListRooms projects all rooms with their live member counts, sorted by name.
func (s *ChatService) ListRooms() []RoomInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := lo.MapToSlice(s.snap.Rooms, func(name string, room *domain.Room) RoomInfo {
		return RoomInfo{
			Name:    name,
			Topic:   room.Topic,
			Owner:   room.Owner,
			Members: len(s.membersLocked(name)),
		}
	})
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Name < rooms[j].Name })
	return rooms
}

// RoomMembers returns a room's live presence set.
func (s *ChatService) RoomMembers(room string) ([]string, error) {
	room = NormalizeRoomName(room)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.snap.Rooms[room]; !ok {
		return nil, domain.ErrRoomNotFound
	}
	return s.membersLocked(room), nil
}

// CurrentRoom reports where a user's session presently is.
func (s *ChatService) CurrentRoom(username string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, online := s.where[username]
	return room, online
}
