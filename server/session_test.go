package server

import (
	"bufio"
	"log/slog"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nexus-chat/protocol"
)

func newPipeSession(t *testing.T) (*Session, net.Conn) {
	t.Helper()
	serverConn, clientConn := net.Pipe()
	t.Cleanup(func() {
		serverConn.Close()
		clientConn.Close()
	})
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return newSession(serverConn, log), clientConn
}

func TestSession_WriteLoopDrainsQueue(t *testing.T) {
	req := require.New(t)
	sess, clientConn := newPipeSession(t)
	go sess.writeLoop()

	sess.send(systemFrame("one"))
	sess.send(systemFrame("two"))

	reader := bufio.NewReader(clientConn)
	req.NoError(clientConn.SetReadDeadline(time.Now().Add(time.Second)))

	for _, want := range []string{"one", "two"} {
		frame, err := protocol.Decode(reader)
		req.NoError(err)
		req.Equal(protocol.KindSystem, frame.Type)

		var system protocol.System
		req.NoError(protocol.Into(frame, &system))
		req.Equal(want, system.Text)
	}
}

func TestSession_QueueOverflowDisconnects(t *testing.T) {
	req := require.New(t)
	sess, _ := newPipeSession(t)
	// No writeLoop: the peer never drains, simulating a stalled reader.

	for i := 0; i <= outboundQueueCap; i++ {
		sess.send(systemFrame("flood"))
	}

	select {
	case <-sess.done:
		// Stalled session was disconnected rather than dropping frames.
	case <-time.After(time.Second):
		req.Fail("session was not closed on queue overflow")
	}
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	sess, _ := newPipeSession(t)
	sess.close()
	sess.close() // second close must not panic

	select {
	case <-sess.done:
	default:
		t.Fatal("done channel not closed")
	}
}

func TestSession_WriteLoopStopsOnPeerClose(t *testing.T) {
	sess, clientConn := newPipeSession(t)
	go sess.writeLoop()

	clientConn.Close()
	sess.send(systemFrame("into the void"))

	select {
	case <-sess.done:
		// write error tore the session down
	case <-time.After(time.Second):
		t.Fatal("writeLoop did not close the session after a write error")
	}
}
