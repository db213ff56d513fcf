package services

import (
	"nexus-chat/domain"
)

// PostResult carries a posted room message together with the presence
// snapshot taken atomically with the append, so the broadcast recipient
// list is always consistent with the room state the message landed in.
type PostResult struct {
	Room       string
	Message    domain.Message
	Recipients []string
}

// DMResult carries a stored direct message and whether the recipient has
// a live session for immediate delivery.
type DMResult struct {
	Message         domain.Message
	RecipientOnline bool
}

// PostRoomMessage appends to the sender's current room and returns the
// broadcast set, sender included. The append and the flush happen under
// one critical section: room-scoped total order is the lock order.
func (s *ChatService) PostRoomMessage(sender, body string) (PostResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roomName, online := s.where[sender]
	if !online || roomName == "" {
		return PostResult{}, domain.ErrRoomNotFound
	}
	room, ok := s.snap.Rooms[roomName]
	if !ok {
		return PostResult{}, domain.ErrRoomNotFound
	}

	msg := domain.NewMessage(sender, body)
	room.Append(msg)

	result := PostResult{
		Room:       roomName,
		Message:    msg,
		Recipients: s.membersLocked(roomName),
	}
	if err := s.flushLocked(); err != nil {
		// The message stays in authoritative memory; the caller reports
		// the failed flush while later readers still see the entry.
		return result, err
	}
	return result, nil
}

// PostDirectMessage appends to the pair's thread regardless of the
// recipient's online status; the record persists either way.
func (s *ChatService) PostDirectMessage(from, to, body string) (DMResult, error) {
	if from == to {
		return DMResult{}, domain.ErrSelfDirectMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.snap.Users[to]; !ok {
		return DMResult{}, domain.ErrUserNotFound
	}

	key := domain.ThreadKey(from, to)
	thread, ok := s.snap.Threads[key]
	if !ok {
		thread = &domain.Thread{Key: key}
		s.snap.Threads[key] = thread
	}

	msg := domain.NewMessage(from, body)
	thread.Append(msg)

	_, online := s.where[to]
	result := DMResult{Message: msg, RecipientOnline: online}
	if err := s.flushLocked(); err != nil {
		return result, err
	}
	return result, nil
}

// FetchRoomHistory returns the room's most recent n messages in
// chronological order. The window defaults when n <= 0 and clamps at
// MaxHistoryWindow; an oversized request is never an error, and asking
// for more than stored returns what exists.
func (s *ChatService) FetchRoomHistory(room string, n int) ([]domain.Message, error) {
	room = NormalizeRoomName(room)
	if n > domain.MaxHistoryWindow {
		n = domain.MaxHistoryWindow
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.snap.Rooms[room]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return r.Tail(n), nil
}

// FetchDMHistory returns the most recent n messages of the thread between
// two users, in chronological order. The projection is symmetric in its
// arguments. An absent thread is an empty history, not an error.
func (s *ChatService) FetchDMHistory(userA, userB string, n int) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.snap.Users[userB]; !ok {
		return nil, domain.ErrUserNotFound
	}
	thread, ok := s.snap.Threads[domain.ThreadKey(userA, userB)]
	if !ok {
		return []domain.Message{}, nil
	}
	return thread.Tail(n), nil
}
