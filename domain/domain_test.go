package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoom_AppendEnforcesCap(t *testing.T) {
	req := require.New(t)
	room := Room{Name: "general"}

	for i := 0; i <= RoomHistoryCap; i++ {
		room.Append(NewMessage("alice", fmt.Sprintf("msg-%d", i)))
	}

	req.Len(room.History, RoomHistoryCap)
	// msg-0 was evicted by the 501st append.
	req.Equal("msg-1", room.History[0].Body)
	req.Equal(fmt.Sprintf("msg-%d", RoomHistoryCap), room.History[len(room.History)-1].Body)
}

func TestRoom_Tail(t *testing.T) {
	room := Room{Name: "general"}
	for i := 0; i < 10; i++ {
		room.Append(NewMessage("alice", fmt.Sprintf("msg-%d", i)))
	}

	t.Run("returns the most recent n in order", func(t *testing.T) {
		req := require.New(t)
		last := room.Tail(3)
		req.Len(last, 3)
		req.Equal("msg-7", last[0].Body)
		req.Equal("msg-9", last[2].Body)
	})

	t.Run("zero falls back to the default window", func(t *testing.T) {
		require.Len(t, room.Tail(0), 10)
	})

	t.Run("over-asking returns what exists", func(t *testing.T) {
		require.Len(t, room.Tail(1000), 10)
	})

	t.Run("result is a copy, not a view", func(t *testing.T) {
		req := require.New(t)
		last := room.Tail(2)
		last[0].Body = "mutated"
		req.Equal("msg-8", room.History[8].Body)
	})
}

func TestThreadKey_UnorderedPair(t *testing.T) {
	req := require.New(t)
	req.Equal(ThreadKey("alice", "bob"), ThreadKey("bob", "alice"))

	a, b := ThreadUsers(ThreadKey("bob", "alice"))
	req.Equal("alice", a)
	req.Equal("bob", b)
}

func TestThread_AppendEnforcesCap(t *testing.T) {
	req := require.New(t)
	thread := Thread{Key: ThreadKey("alice", "bob")}

	for i := 0; i <= ThreadHistoryCap; i++ {
		thread.Append(NewMessage("alice", fmt.Sprintf("dm-%d", i)))
	}

	req.Len(thread.Messages, ThreadHistoryCap)
	req.Equal("dm-1", thread.Messages[0].Body)
}
