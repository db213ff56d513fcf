// Package client implements the terminal chat client: one TCP connection
// to the server, a reader goroutine rendering inbound frames and an input
// loop turning slash commands into protocol frames.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"nexus-chat/protocol"
)

// Client drives one interactive chat session.
type Client struct {
	conn     net.Conn
	reader   *bufio.Reader
	input    *bufio.Scanner
	renderer *Renderer

	username string
	room     string
}

// Dial connects to the server and wires the client to the given terminal
// streams.
func Dial(addr string, input io.Reader, output io.Writer) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("could not connect to server at %s: %w", addr, err)
	}
	return &Client{
		conn:     conn,
		reader:   bufio.NewReader(conn),
		input:    bufio.NewScanner(input),
		renderer: NewRenderer(output),
	}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Run performs the auth handshake, then serves frames and user input
// until the context is canceled, the user quits, or the server goes away.
func (c *Client) Run(ctx context.Context) error {
	if err := c.authenticate(); err != nil {
		return err
	}

	// done stops the helper goroutines once Run returns, so neither can
	// stay parked on an unbuffered channel send.
	done := make(chan struct{})
	defer close(done)

	frames := make(chan protocol.Frame)
	readErr := make(chan error, 1)
	go func() {
		for {
			frame, err := protocol.Decode(c.reader)
			if err != nil {
				readErr <- err
				return
			}
			select {
			case frames <- frame:
			case <-done:
				return
			}
		}
	}()

	lines := make(chan string)
	go func() {
		for c.input.Scan() {
			select {
			case lines <- c.input.Text():
			case <-done:
				return
			}
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			c.send(protocol.KindQuit, nil)
			return nil
		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				c.renderer.System("Server closed the connection.")
				return nil
			}
			return fmt.Errorf("connection lost: %w", err)
		case frame := <-frames:
			c.handleFrame(frame)
		case line, ok := <-lines:
			if !ok {
				c.send(protocol.KindQuit, nil)
				return nil
			}
			if quit := c.handleInput(strings.TrimSpace(line)); quit {
				c.send(protocol.KindQuit, nil)
				return nil
			}
		}
	}
}

// authenticate loops on the login/register prompt until the server
// accepts the credentials.
func (c *Client) authenticate() error {
	for {
		action := strings.ToLower(c.prompt("Login or register? [l/r]: "))
		kind := protocol.KindLogin
		if strings.HasPrefix(action, "r") {
			kind = protocol.KindRegister
		}

		username := c.prompt("Username: ")
		password := c.prompt("Password: ")

		if kind == protocol.KindLogin {
			c.send(kind, protocol.Login{Username: username, Password: password})
		} else {
			c.send(kind, protocol.Register{Username: username, Password: password})
		}

		frame, err := protocol.Decode(c.reader)
		if err != nil {
			return fmt.Errorf("connection lost during login: %w", err)
		}
		switch frame.Type {
		case protocol.KindLoginOK:
			var ok protocol.LoginOK
			if err := protocol.Into(frame, &ok); err != nil {
				return err
			}
			c.username = ok.Username
			c.renderer.Welcome(ok)
			return nil
		case protocol.KindLoginFail:
			var fail protocol.LoginFail
			if err := protocol.Into(frame, &fail); err != nil {
				return err
			}
			c.renderer.Error(fail.Reason)
		default:
			c.handleFrame(frame)
		}
	}
}

func (c *Client) prompt(label string) string {
	c.renderer.Prompt(label)
	if !c.input.Scan() {
		return ""
	}
	return strings.TrimSpace(c.input.Text())
}

func (c *Client) send(kind protocol.Kind, payload any) {
	frame, err := protocol.New(kind, payload)
	if err != nil {
		c.renderer.Error(err.Error())
		return
	}
	encoded, err := protocol.Encode(frame)
	if err != nil {
		c.renderer.Error(err.Error())
		return
	}
	if _, err := c.conn.Write(encoded); err != nil {
		c.renderer.Error("send failed: " + err.Error())
	}
}

// handleInput parses one line of user input. It reports whether the user
// asked to quit.
func (c *Client) handleInput(line string) bool {
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		c.send(protocol.KindChat, protocol.Chat{Body: line})
		return false
	}

	command, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch command {
	case "/quit":
		return true
	case "/help":
		c.renderer.Help()
	case "/clear":
		c.renderer.Clear()
	case "/rooms":
		c.send(protocol.KindRooms, nil)
	case "/online":
		c.send(protocol.KindOnline, nil)
	case "/join":
		if rest == "" {
			c.renderer.Error("usage: /join <room>")
			return false
		}
		c.send(protocol.KindJoin, protocol.Join{Room: rest})
	case "/create":
		name, topic, _ := strings.Cut(rest, " ")
		if name == "" {
			c.renderer.Error("usage: /create <room> [topic]")
			return false
		}
		c.send(protocol.KindCreateRoom, protocol.CreateRoom{Name: name, Topic: strings.TrimSpace(topic)})
	case "/delete":
		if rest == "" {
			c.renderer.Error("usage: /delete <room>")
			return false
		}
		c.send(protocol.KindDeleteRoom, protocol.DeleteRoom{Name: rest})
	case "/dm":
		to, body, _ := strings.Cut(rest, " ")
		body = strings.TrimSpace(body)
		if to == "" || body == "" {
			c.renderer.Error("usage: /dm <user> <message>")
			return false
		}
		c.send(protocol.KindDM, protocol.DM{To: to, Body: body})
	case "/dms":
		if rest == "" {
			c.renderer.Error("usage: /dms <user>")
			return false
		}
		c.send(protocol.KindDMHistory, protocol.DMHistoryRequest{With: rest})
	case "/history":
		req := protocol.HistoryRequest{}
		fields := strings.Fields(rest)
		if len(fields) > 0 {
			req.Room = fields[0]
		}
		if len(fields) > 1 {
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				c.renderer.Error("usage: /history [room] [n]")
				return false
			}
			req.Limit = n
		}
		c.send(protocol.KindHistory, req)
	case "/whois":
		if rest == "" {
			c.renderer.Error("usage: /whois <user>")
			return false
		}
		c.send(protocol.KindWhois, protocol.Whois{User: rest})
	case "/bio":
		c.send(protocol.KindSetBio, protocol.SetBio{Bio: rest})
	default:
		c.renderer.Error(fmt.Sprintf("unknown command %s (try /help)", command))
	}
	return false
}

// handleFrame renders one inbound frame.
func (c *Client) handleFrame(frame protocol.Frame) {
	switch frame.Type {
	case protocol.KindChatEvent:
		var event protocol.ChatEvent
		if protocol.Into(frame, &event) == nil {
			c.renderer.Chat(event, c.username)
		}
	case protocol.KindRoomJoined:
		var joined protocol.RoomJoined
		if protocol.Into(frame, &joined) == nil {
			c.room = joined.Room
			c.renderer.RoomJoined(joined)
		}
	case protocol.KindSystem:
		var system protocol.System
		if protocol.Into(frame, &system) == nil {
			c.renderer.System(system.Text)
		}
	case protocol.KindError:
		var wireErr protocol.Error
		if protocol.Into(frame, &wireErr) == nil {
			c.renderer.Error(wireErr.Message)
		}
	case protocol.KindDMEvent:
		var dm protocol.DMEvent
		if protocol.Into(frame, &dm) == nil {
			c.renderer.DM(dm, c.username)
		}
	case protocol.KindDMThread:
		var thread protocol.DMThread
		if protocol.Into(frame, &thread) == nil {
			c.renderer.DMThread(thread)
		}
	case protocol.KindHistorySet:
		var history protocol.HistorySet
		if protocol.Into(frame, &history) == nil {
			c.renderer.History(history)
		}
	case protocol.KindRoomList:
		var list protocol.RoomList
		if protocol.Into(frame, &list) == nil {
			c.renderer.Rooms(list.Rooms)
		}
	case protocol.KindOnlineList:
		var list protocol.OnlineList
		if protocol.Into(frame, &list) == nil {
			c.renderer.Online(list.Users)
		}
	case protocol.KindProfile:
		var profile protocol.Profile
		if protocol.Into(frame, &profile) == nil {
			c.renderer.Profile(profile)
		}
	case protocol.KindPresence, protocol.KindPong:
		// presence is already narrated by system frames; pong is silent
	}
}
