// Package services hosts the authoritative in-memory chat state and the
// atomic operations sessions run against it. A single mutex serializes
// every mutating operation; read-only projections share a read lock.
// Every durable mutation is flushed to the store before the operation
// returns, so no acknowledged action can be lost to a crash.
package services

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/samber/lo"

	"nexus-chat/domain"
	"nexus-chat/storage"
)

// Flusher is the persistence seam: the store's whole-document write.
type Flusher interface {
	Flush(storage.Snapshot) error
}

// ErrFlushFailed wraps store I/O failures. The in-memory mutation stays
// applied — memory remains authoritative until the next successful flush —
// but the triggering command must report failure to its caller.
var ErrFlushFailed = errors.New("persistence flush failed")

// ChatService owns users, rooms, DM threads and the online/location
// registry. It never hands out references to its internal collections:
// results are copied snapshots taken under the lock.
type ChatService struct {
	mu    sync.RWMutex
	snap  storage.Snapshot
	where map[string]string // username -> current room, present only while connected
	store Flusher
	log   *slog.Logger
}

func NewChatService(snap storage.Snapshot, store Flusher, log *slog.Logger) *ChatService {
	return &ChatService{
		snap:  snap,
		where: make(map[string]string),
		store: store,
		log:   log,
	}
}

// Connect marks a user online with no current room yet. A user has at
// most one live session: a second login is rejected, not evicted.
func (s *ChatService) Connect(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, online := s.where[username]; online {
		return domain.ErrAlreadyLoggedIn
	}
	s.where[username] = ""
	return nil
}

// Disconnect removes the user from the online registry and from its
// room's presence set. It returns the room the user was in, for the
// caller's leave announcement, and is safe to call more than once.
func (s *ChatService) Disconnect(username string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, online := s.where[username]
	delete(s.where, username)
	return room, online
}

// ListOnline returns the usernames of all connected users, sorted.
func (s *ChatService) ListOnline() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.onlineLocked()
}

func (s *ChatService) onlineLocked() []string {
	users := lo.Keys(s.where)
	sort.Strings(users)
	return users
}

// membersLocked derives a room's presence set from the location registry.
func (s *ChatService) membersLocked(room string) []string {
	members := lo.Keys(lo.PickBy(s.where, func(_ string, r string) bool {
		return r == room
	}))
	sort.Strings(members)
	return members
}

// flushLocked persists the current snapshot. Callers hold the write lock,
// which makes the flush happen-before the acknowledging response and
// serializes it against concurrent writers.
func (s *ChatService) flushLocked() error {
	if err := s.store.Flush(s.snap); err != nil {
		s.log.Error("store flush failed", "error", err)
		return fmt.Errorf("%w: %v", ErrFlushFailed, err)
	}
	return nil
}

// FlushNow forces a flush of the current state; used once at shutdown.
func (s *ChatService) FlushNow() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}
