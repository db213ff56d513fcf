// Package server owns the TCP listener, the per-connection sessions and
// the dispatch of parsed frames against the chat service.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"nexus-chat/domain"
	"nexus-chat/protocol"
	"nexus-chat/services"
)

// Server accepts connections indefinitely and owns the collective session
// lifecycle. Shutdown stops accepting, closes live sessions, waits for
// their handlers to finish and flushes the store once more.
type Server struct {
	addr     string
	svc      *services.ChatService
	registry *Registry
	log      *slog.Logger
	listener net.Listener
	wg       sync.WaitGroup

	// live tracks every session, authenticated or not, so shutdown can
	// unblock read loops that never got past the login phase.
	mu   sync.Mutex
	live map[*Session]struct{}
}

func New(addr string, svc *services.ChatService, log *slog.Logger) *Server {
	return &Server{
		addr:     addr,
		svc:      svc,
		registry: NewRegistry(),
		log:      log,
		live:     make(map[*Session]struct{}),
	}
}

// Listen binds the TCP listener. A bind failure is returned immediately.
func (srv *Server) Listen() error {
	listener, err := net.Listen("tcp", srv.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", srv.addr, err)
	}
	srv.listener = listener
	srv.log.Info("server listening", "addr", listener.Addr().String())
	return nil
}

// Addr reports the bound address; useful when listening on port 0.
func (srv *Server) Addr() net.Addr {
	return srv.listener.Addr()
}

// ListenAndServe runs until the context is canceled. Per-connection
// errors only terminate the affected session.
func (srv *Server) ListenAndServe(ctx context.Context) error {
	if err := srv.Listen(); err != nil {
		return err
	}
	return srv.Serve(ctx)
}

// Serve accepts connections until the context is canceled, then drains
// live sessions and flushes the store one final time.
func (srv *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = srv.listener.Close()
	}()

	for {
		conn, err := srv.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			srv.log.Warn("accept error", "error", err)
			continue
		}
		srv.wg.Add(1)
		go func() {
			defer srv.wg.Done()
			srv.handle(conn)
		}()
	}

	srv.log.Info("shutting down, closing sessions")
	srv.mu.Lock()
	for sess := range srv.live {
		sess.close()
	}
	srv.mu.Unlock()
	srv.wg.Wait()

	if err := srv.svc.FlushNow(); err != nil {
		srv.log.Error("final flush failed", "error", err)
	}
	srv.log.Info("server stopped cleanly")
	return nil
}

// handle runs a session's read loop: the unauthenticated phase first,
// then the command loop. Cleanup runs exactly once when it returns, no
// matter which side dropped the connection.
func (srv *Server) handle(conn net.Conn) {
	sess := newSession(conn, srv.log)
	srv.log.Info("new connection", "remote", conn.RemoteAddr().String())

	srv.mu.Lock()
	srv.live[sess] = struct{}{}
	srv.mu.Unlock()
	defer func() {
		srv.mu.Lock()
		delete(srv.live, sess)
		srv.mu.Unlock()
	}()

	go sess.writeLoop()
	defer srv.cleanup(sess)

	if !srv.authenticate(sess) {
		return
	}

	for {
		frame, err := protocol.Decode(sess.reader)
		if err != nil {
			if errors.Is(err, protocol.ErrMalformed) {
				sess.send(errorFrame(err))
				continue
			}
			return // socket gone
		}
		if frame.Type == protocol.KindQuit {
			return
		}
		srv.dispatch(sess, frame)
	}
}

// authenticate drives the unauthenticated state: only register and login
// frames advance it. Failures are reported and the session stays in this
// state; there is no lockout.
func (srv *Server) authenticate(sess *Session) bool {
	for {
		frame, err := protocol.Decode(sess.reader)
		if err != nil {
			if errors.Is(err, protocol.ErrMalformed) {
				sess.send(errorFrame(err))
				continue
			}
			return false
		}

		switch frame.Type {
		case protocol.KindRegister:
			var reg protocol.Register
			if err := protocol.Into(frame, &reg); err != nil {
				sess.send(loginFail(err))
				continue
			}
			if err := srv.svc.RegisterUser(reg.Username, reg.Password); err != nil {
				sess.send(loginFail(err))
				continue
			}
			srv.log.Info("new user registered", "user", reg.Username)
			if srv.bringOnline(sess, reg.Username) {
				return true
			}

		case protocol.KindLogin:
			var login protocol.Login
			if err := protocol.Into(frame, &login); err != nil {
				sess.send(loginFail(err))
				continue
			}
			if err := srv.svc.Authenticate(login.Username, login.Password); err != nil {
				sess.send(loginFail(err))
				continue
			}
			if srv.bringOnline(sess, login.Username) {
				return true
			}

		case protocol.KindPing:
			sess.send(protocol.MustNew(protocol.KindPong, nil))

		case protocol.KindQuit:
			return false

		default:
			sess.send(protocol.MustNew(protocol.KindError, protocol.Error{
				Code:    "not_authenticated",
				Message: "log in or register first",
			}))
		}
	}
}

// bringOnline transitions an authenticated session into the home room:
// registry entry, welcome frame, presence broadcast, auto-join.
func (srv *Server) bringOnline(sess *Session, username string) bool {
	if err := srv.svc.Connect(username); err != nil {
		sess.send(loginFail(err))
		return false
	}
	sess.user = username
	srv.registry.Add(username, sess)

	sess.send(protocol.MustNew(protocol.KindLoginOK, protocol.LoginOK{
		Username: username,
		Motd:     fmt.Sprintf("Welcome to NEXUS CHAT, %s!", username),
		Rooms:    roomSummaries(srv.svc.ListRooms()),
		Online:   srv.svc.ListOnline(),
	}))

	srv.broadcastAll(protocol.MustNew(protocol.KindPresence, protocol.Presence{User: username, Online: true}), username)
	srv.broadcastAll(systemFrame(fmt.Sprintf("%s has come online.", username)), username)

	srv.handleJoin(sess, protocol.Join{Room: domain.HomeRoom})
	srv.log.Info("user connected", "user", username, "remote", sess.conn.RemoteAddr().String())
	return true
}

// cleanup is the single teardown path for a session: presence removal,
// registry removal, announcements, socket close.
func (srv *Server) cleanup(sess *Session) {
	defer sess.close()

	if sess.user == "" {
		return
	}
	room, online := srv.svc.Disconnect(sess.user)
	srv.registry.Remove(sess.user, sess)
	if !online {
		return
	}
	if room != "" {
		srv.broadcastToRoom(room, systemFrame(fmt.Sprintf("%s left #%s", sess.user, room)), sess.user)
	}
	srv.broadcastAll(protocol.MustNew(protocol.KindPresence, protocol.Presence{User: sess.user, Online: false}), sess.user)
	srv.broadcastAll(systemFrame(fmt.Sprintf("%s went offline.", sess.user)), sess.user)
	srv.log.Info("user disconnected", "user", sess.user)
}

// broadcastAll enqueues a frame on every online session except the one
// named by exclude.
func (srv *Server) broadcastAll(frame protocol.Frame, exclude string) {
	for _, sess := range srv.registry.All() {
		if sess.user == exclude {
			continue
		}
		sess.send(frame)
	}
}

// broadcastToUsers delivers to a consistent recipient snapshot taken by
// the service at mutation time.
func (srv *Server) broadcastToUsers(users []string, frame protocol.Frame, exclude string) {
	for _, user := range users {
		if user == exclude {
			continue
		}
		if sess, ok := srv.registry.Get(user); ok {
			sess.send(frame)
		}
	}
}

func (srv *Server) broadcastToRoom(room string, frame protocol.Frame, exclude string) {
	members, err := srv.svc.RoomMembers(room)
	if err != nil {
		return
	}
	srv.broadcastToUsers(members, frame, exclude)
}
