// Package storage persists the chat state as one flat JSON document,
// read whole at startup and rewritten whole, atomically, on every
// durable mutation.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"nexus-chat/domain"
)

// Snapshot is the full durable state: every collection the server owns.
// Room presence and live sessions are runtime-only and never stored.
type Snapshot struct {
	Users   map[string]*domain.User   `json:"users"`
	Rooms   map[string]*domain.Room   `json:"rooms"`
	Threads map[string]*domain.Thread `json:"threads"`
}

// ErrCorrupt marks a store file that exists but cannot be parsed.
// This is fatal at startup: failing loudly beats silently discarding history.
var ErrCorrupt = errors.New("store file is corrupt")

// Store reads and writes the snapshot document at a fixed path.
type Store struct {
	path string
	log  *slog.Logger
}

func NewStore(path string, log *slog.Logger) *Store {
	return &Store{path: path, log: log}
}

// DefaultSnapshot seeds the three non-deletable rooms and no users,
// matching first-boot state.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		Users: map[string]*domain.User{},
		Rooms: map[string]*domain.Room{
			"general": {Name: "general", Topic: "General chat for everyone", Owner: "system", Default: true},
			"random":  {Name: "random", Topic: "Random topics", Owner: "system", Default: true},
			"tech":    {Name: "tech", Topic: "Technology discussions", Owner: "system", Default: true},
		},
		Threads: map[string]*domain.Thread{},
	}
}

// Load reads the snapshot, or returns a fresh default when the file is
// absent. An unparseable file returns ErrCorrupt.
func (s *Store) Load() (Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.log.Info("no store file found, starting fresh", "path", s.path)
		return DefaultSnapshot(), nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("read store: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if snap.Users == nil {
		snap.Users = map[string]*domain.User{}
	}
	if snap.Rooms == nil {
		snap.Rooms = map[string]*domain.Room{}
	}
	if snap.Threads == nil {
		snap.Threads = map[string]*domain.Thread{}
	}
	s.log.Info("store loaded", "path", s.path,
		"users", len(snap.Users), "rooms", len(snap.Rooms), "threads", len(snap.Threads))
	return snap, nil
}

// Flush writes the snapshot durably. The document is written to a
// temporary file in the same directory, synced, then renamed over the
// previous version, so a crash mid-flush always leaves a loadable file.
func (s *Store) Flush(snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp store: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp store: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}
