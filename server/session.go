package server

import (
	"bufio"
	"log/slog"
	"net"
	"sync"

	"nexus-chat/protocol"
)

// outboundQueueCap bounds each session's send queue. A recipient that
// stalls long enough to fill it is disconnected rather than having frames
// silently dropped, which would break observed message order.
const outboundQueueCap = 64

// Session is one connected, possibly-authenticated client. Reading and
// writing are decoupled: the read loop parses and dispatches frames while
// the write loop drains the outbound queue, so one slow reader never
// blocks delivery to anyone else.
type Session struct {
	conn   net.Conn
	reader *bufio.Reader
	out    chan protocol.Frame
	done   chan struct{}
	once   sync.Once
	log    *slog.Logger

	// user is set exactly once, by the session's own read loop, when
	// authentication succeeds.
	user string
}

func newSession(conn net.Conn, log *slog.Logger) *Session {
	return &Session{
		conn:   conn,
		reader: bufio.NewReader(conn),
		out:    make(chan protocol.Frame, outboundQueueCap),
		done:   make(chan struct{}),
		log:    log.With("remote", conn.RemoteAddr().String()),
	}
}

// send enqueues a frame for delivery. It never blocks: when the queue is
// full the session is stalled beyond recovery and gets closed instead.
func (s *Session) send(frame protocol.Frame) {
	select {
	case <-s.done:
	case s.out <- frame:
	default:
		s.log.Warn("outbound queue overflow, disconnecting session", "user", s.user)
		s.close()
	}
}

// writeLoop serializes the outbound queue to the socket until the session
// is closed or a write fails.
func (s *Session) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case frame := <-s.out:
			encoded, err := protocol.Encode(frame)
			if err != nil {
				s.log.Error("encode frame", "type", frame.Type, "error", err)
				continue
			}
			if _, err := s.conn.Write(encoded); err != nil {
				s.close()
				return
			}
		}
	}
}

// close tears the connection down exactly once, regardless of which side
// initiated it. Closing the socket also unblocks the read loop.
func (s *Session) close() {
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}
