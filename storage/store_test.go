package storage

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"nexus-chat/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nexus_data.json")
	return NewStore(path, slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

func TestLoad_FreshDefaults(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)

	snap, err := store.Load()
	req.NoError(err)
	req.Empty(snap.Users)
	req.Empty(snap.Threads)
	req.Len(snap.Rooms, 3)

	for _, name := range domain.DefaultRooms {
		room, ok := snap.Rooms[name]
		req.True(ok, "missing default room %s", name)
		req.True(room.Default)
		req.Equal("system", room.Owner)
		req.Empty(room.History)
	}
}

func TestFlush_RoundTrip(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)

	snap, err := store.Load()
	req.NoError(err)

	snap.Users["alice"] = &domain.User{Name: "alice", PasswordHash: "hash", Bio: "hi"}
	snap.Rooms["general"].Append(domain.NewMessage("alice", "hello"))
	key := domain.ThreadKey("alice", "bob")
	snap.Threads[key] = &domain.Thread{Key: key}
	snap.Threads[key].Append(domain.NewMessage("alice", "psst"))

	req.NoError(store.Flush(snap))

	reloaded, err := store.Load()
	req.NoError(err)
	req.Equal("hi", reloaded.Users["alice"].Bio)
	req.Len(reloaded.Rooms["general"].History, 1)
	req.Equal("hello", reloaded.Rooms["general"].History[0].Body)
	req.Len(reloaded.Threads[key].Messages, 1)
}

func TestLoad_CorruptFileIsFatal(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "nexus_data.json")
	req.NoError(os.WriteFile(path, []byte("{truncated"), 0o600))

	store := NewStore(path, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	_, err := store.Load()
	req.ErrorIs(err, ErrCorrupt)
}

func TestFlush_CrashBeforeRenameKeepsPreviousVersion(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)

	snap, err := store.Load()
	req.NoError(err)
	snap.Users["alice"] = &domain.User{Name: "alice", PasswordHash: "hash"}
	req.NoError(store.Flush(snap))

	// Simulate a crash during a later flush: the temp file was written but
	// the rename never happened. The previous document must stay loadable.
	stray := store.path + ".tmp-12345"
	req.NoError(os.WriteFile(stray, []byte(`{"users": {"half-writ`), 0o600))

	reloaded, err := store.Load()
	req.NoError(err)
	req.Contains(reloaded.Users, "alice")
}

func TestFlush_ReplacesAtomically(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)

	snap, err := store.Load()
	req.NoError(err)
	req.NoError(store.Flush(snap))

	snap.Users["bob"] = &domain.User{Name: "bob", PasswordHash: "hash"}
	req.NoError(store.Flush(snap))

	// No temp files left behind after a successful flush.
	entries, err := os.ReadDir(filepath.Dir(store.path))
	req.NoError(err)
	req.Len(entries, 1)
}
