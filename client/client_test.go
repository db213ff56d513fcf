package client

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/stretchr/testify/require"

	"nexus-chat/protocol"
)

func init() {
	color.Disable()
}

// newPipedClient wires a client to an in-memory connection and returns
// the server side of the pipe plus the rendered output buffer.
func newPipedClient(t *testing.T) (*Client, *bufio.Reader, net.Conn, *bytes.Buffer) {
	t.Helper()
	serverConn, clientConn := net.Pipe()
	t.Cleanup(func() {
		serverConn.Close()
		clientConn.Close()
	})
	out := &bytes.Buffer{}
	c := &Client{
		conn:     clientConn,
		reader:   bufio.NewReader(clientConn),
		input:    bufio.NewScanner(strings.NewReader("")),
		renderer: NewRenderer(out),
		username: "alice",
	}
	return c, bufio.NewReader(serverConn), serverConn, out
}

func readFrame(t *testing.T, r *bufio.Reader, conn net.Conn) protocol.Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	frame, err := protocol.Decode(r)
	require.NoError(t, err)
	return frame
}

func TestHandleInput_SlashCommands(t *testing.T) {
	c, serverReader, serverConn, _ := newPipedClient(t)

	t.Run("plain text becomes chat", func(t *testing.T) {
		req := require.New(t)
		go c.handleInput("hello there")
		frame := readFrame(t, serverReader, serverConn)
		req.Equal(protocol.KindChat, frame.Type)

		var chat protocol.Chat
		req.NoError(protocol.Into(frame, &chat))
		req.Equal("hello there", chat.Body)
	})

	t.Run("dm splits target and body", func(t *testing.T) {
		req := require.New(t)
		go c.handleInput("/dm bob hi there")
		frame := readFrame(t, serverReader, serverConn)
		req.Equal(protocol.KindDM, frame.Type)

		var dm protocol.DM
		req.NoError(protocol.Into(frame, &dm))
		req.Equal("bob", dm.To)
		req.Equal("hi there", dm.Body)
	})

	t.Run("create takes optional topic", func(t *testing.T) {
		req := require.New(t)
		go c.handleInput("/create lounge a cozy place")
		frame := readFrame(t, serverReader, serverConn)
		req.Equal(protocol.KindCreateRoom, frame.Type)

		var create protocol.CreateRoom
		req.NoError(protocol.Into(frame, &create))
		req.Equal("lounge", create.Name)
		req.Equal("a cozy place", create.Topic)
	})

	t.Run("history parses room and limit", func(t *testing.T) {
		req := require.New(t)
		go c.handleInput("/history tech 20")
		frame := readFrame(t, serverReader, serverConn)
		req.Equal(protocol.KindHistory, frame.Type)

		var hist protocol.HistoryRequest
		req.NoError(protocol.Into(frame, &hist))
		req.Equal("tech", hist.Room)
		req.Equal(20, hist.Limit)
	})

	t.Run("quit is reported without a frame", func(t *testing.T) {
		require.True(t, c.handleInput("/quit"))
	})
}

func TestHandleInput_UsageErrors(t *testing.T) {
	req := require.New(t)
	c, _, _, out := newPipedClient(t)

	c.handleInput("/join")
	req.Contains(out.String(), "usage: /join")

	out.Reset()
	c.handleInput("/frobnicate")
	req.Contains(out.String(), "unknown command")
}

func writeFrame(conn net.Conn, frame protocol.Frame) {
	encoded, err := protocol.Encode(frame)
	if err != nil {
		return
	}
	conn.Write(encoded)
}

func TestRun_HelperGoroutinesStopAfterQuit(t *testing.T) {
	req := require.New(t)
	serverConn, clientConn := net.Pipe()
	t.Cleanup(func() {
		serverConn.Close()
		clientConn.Close()
	})
	c := &Client{
		conn:     clientConn,
		reader:   bufio.NewReader(clientConn),
		input:    bufio.NewScanner(strings.NewReader("l\nalice\npw\n/quit\n")),
		renderer: NewRenderer(&bytes.Buffer{}),
	}

	// Scripted peer: accept the login, then push frames the client quits
	// before consuming.
	serverReader := bufio.NewReader(serverConn)
	go func() {
		frame, err := protocol.Decode(serverReader)
		if err != nil || frame.Type != protocol.KindLogin {
			return
		}
		writeFrame(serverConn, protocol.MustNew(protocol.KindLoginOK, protocol.LoginOK{Username: "alice", Motd: "hi"}))
		if frame, err = protocol.Decode(serverReader); err != nil || frame.Type != protocol.KindQuit {
			return
		}
		writeFrame(serverConn, protocol.MustNew(protocol.KindSystem, protocol.System{Text: "late one"}))
		writeFrame(serverConn, protocol.MustNew(protocol.KindSystem, protocol.System{Text: "late two"}))
	}()

	before := runtime.NumGoroutine()
	req.NoError(c.Run(context.Background()))
	req.NoError(c.conn.Close())

	req.Eventually(func() bool {
		return runtime.NumGoroutine() <= before
	}, 2*time.Second, 20*time.Millisecond, "reader or input goroutine did not exit")
}

func TestHandleFrame_Rendering(t *testing.T) {
	c, _, _, out := newPipedClient(t)

	t.Run("chat event", func(t *testing.T) {
		req := require.New(t)
		out.Reset()
		c.handleFrame(protocol.MustNew(protocol.KindChatEvent, protocol.ChatEvent{
			Room: "general", From: "bob", Body: "hi all", At: time.Now(),
		}))
		req.Contains(out.String(), "#general")
		req.Contains(out.String(), "bob: hi all")
	})

	t.Run("room joined tracks current room", func(t *testing.T) {
		req := require.New(t)
		out.Reset()
		c.handleFrame(protocol.MustNew(protocol.KindRoomJoined, protocol.RoomJoined{
			Room: "tech", Topic: "Technology discussions", Members: []string{"alice", "bob"},
		}))
		req.Equal("tech", c.room)
		req.Contains(out.String(), "#tech")
		req.Contains(out.String(), "alice, bob")
	})

	t.Run("error frame", func(t *testing.T) {
		req := require.New(t)
		out.Reset()
		c.handleFrame(protocol.MustNew(protocol.KindError, protocol.Error{
			Code: "room_not_found", Message: "room not found",
		}))
		req.Contains(out.String(), "room not found")
	})

	t.Run("profile shows offline status", func(t *testing.T) {
		req := require.New(t)
		out.Reset()
		c.handleFrame(protocol.MustNew(protocol.KindProfile, protocol.Profile{
			User: "carol", Bio: "here for the tech", Joined: time.Now(), Online: false,
		}))
		req.Contains(out.String(), "carol")
		req.Contains(out.String(), "offline")
		req.Contains(out.String(), "here for the tech")
	})
}
