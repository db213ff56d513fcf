package server

import (
	"errors"
	"fmt"

	"github.com/samber/lo"

	"nexus-chat/domain"
	"nexus-chat/protocol"
	"nexus-chat/services"
)

// dispatch routes one authenticated frame. Every failure is reported to
// the issuing session only; nothing here can abort the session or touch
// another client's state.
func (srv *Server) dispatch(sess *Session, frame protocol.Frame) {
	switch frame.Type {
	case protocol.KindChat:
		var chat protocol.Chat
		if err := protocol.Into(frame, &chat); err != nil {
			sess.send(errorFrame(err))
			return
		}
		srv.handleChat(sess, chat)

	case protocol.KindJoin:
		var join protocol.Join
		if err := protocol.Into(frame, &join); err != nil {
			sess.send(errorFrame(err))
			return
		}
		srv.handleJoin(sess, join)

	case protocol.KindCreateRoom:
		var create protocol.CreateRoom
		if err := protocol.Into(frame, &create); err != nil {
			sess.send(errorFrame(err))
			return
		}
		srv.handleCreateRoom(sess, create)

	case protocol.KindDeleteRoom:
		var del protocol.DeleteRoom
		if err := protocol.Into(frame, &del); err != nil {
			sess.send(errorFrame(err))
			return
		}
		srv.handleDeleteRoom(sess, del)

	case protocol.KindDM:
		var dm protocol.DM
		if err := protocol.Into(frame, &dm); err != nil {
			sess.send(errorFrame(err))
			return
		}
		srv.handleDM(sess, dm)

	case protocol.KindDMHistory:
		var req protocol.DMHistoryRequest
		if err := protocol.Into(frame, &req); err != nil {
			sess.send(errorFrame(err))
			return
		}
		srv.handleDMHistory(sess, req)

	case protocol.KindHistory:
		var req protocol.HistoryRequest
		if len(frame.Payload) > 0 {
			if err := protocol.Into(frame, &req); err != nil {
				sess.send(errorFrame(err))
				return
			}
		}
		srv.handleHistory(sess, req)

	case protocol.KindRooms:
		sess.send(protocol.MustNew(protocol.KindRoomList, protocol.RoomList{
			Rooms: roomSummaries(srv.svc.ListRooms()),
		}))

	case protocol.KindOnline:
		sess.send(protocol.MustNew(protocol.KindOnlineList, protocol.OnlineList{
			Users: srv.svc.ListOnline(),
		}))

	case protocol.KindWhois:
		var whois protocol.Whois
		if err := protocol.Into(frame, &whois); err != nil {
			sess.send(errorFrame(err))
			return
		}
		srv.handleWhois(sess, whois)

	case protocol.KindSetBio:
		var bio protocol.SetBio
		if err := protocol.Into(frame, &bio); err != nil {
			sess.send(errorFrame(err))
			return
		}
		if err := srv.svc.SetBio(sess.user, bio.Bio); err != nil {
			sess.send(errorFrame(err))
			return
		}
		sess.send(systemFrame("Bio updated."))

	case protocol.KindPing:
		sess.send(protocol.MustNew(protocol.KindPong, nil))

	case protocol.KindRegister, protocol.KindLogin:
		sess.send(protocol.MustNew(protocol.KindError, protocol.Error{
			Code:    "already_authenticated",
			Message: "session is already logged in",
		}))

	default:
		sess.send(protocol.MustNew(protocol.KindError, protocol.Error{
			Code:    "unknown_command",
			Message: fmt.Sprintf("unknown frame type %q", frame.Type),
		}))
	}
}

// handleChat posts to the sender's current room and fans out to the
// presence snapshot taken with the append, sender included (echo).
func (srv *Server) handleChat(sess *Session, chat protocol.Chat) {
	res, err := srv.svc.PostRoomMessage(sess.user, chat.Body)
	if err != nil && !errors.Is(err, services.ErrFlushFailed) {
		sess.send(errorFrame(err))
		return
	}
	if err != nil {
		// Memory stays authoritative on a failed flush: the message is
		// delivered, and the sender is told durability is degraded.
		sess.send(errorFrame(err))
	}
	srv.broadcastToUsers(res.Recipients, protocol.MustNew(protocol.KindChatEvent, protocol.ChatEvent{
		Room: res.Room,
		From: res.Message.Sender,
		Body: res.Message.Body,
		At:   res.Message.At,
	}), "")
}

func (srv *Server) handleJoin(sess *Session, join protocol.Join) {
	res, err := srv.svc.JoinRoom(sess.user, join.Room)
	if err != nil {
		sess.send(errorFrame(err))
		return
	}

	sess.send(protocol.MustNew(protocol.KindRoomJoined, protocol.RoomJoined{
		Room:    res.Room,
		Topic:   res.Topic,
		Members: res.Members,
		History: toWireMessages(res.History),
	}))

	if res.Rejoined {
		return
	}
	if res.Previous != "" {
		srv.broadcastToRoom(res.Previous, systemFrame(fmt.Sprintf("%s left #%s", sess.user, res.Previous)), sess.user)
	}
	srv.broadcastToUsers(res.Members, systemFrame(fmt.Sprintf("%s joined #%s", sess.user, res.Room)), sess.user)
}

func (srv *Server) handleCreateRoom(sess *Session, create protocol.CreateRoom) {
	info, err := srv.svc.CreateRoom(sess.user, create.Name, create.Topic)
	if err != nil {
		sess.send(errorFrame(err))
		return
	}
	srv.log.Info("room created", "room", info.Name, "owner", sess.user)
	srv.broadcastAll(systemFrame(fmt.Sprintf("New room #%s created by %s.", info.Name, sess.user)), "")
}

func (srv *Server) handleDeleteRoom(sess *Session, del protocol.DeleteRoom) {
	res, err := srv.svc.DeleteRoom(sess.user, del.Name)
	if err != nil && !errors.Is(err, services.ErrFlushFailed) {
		sess.send(errorFrame(err))
		return
	}
	if err != nil {
		// The room is already gone from authoritative memory; relocation
		// frames must still go out alongside the persistence error.
		sess.send(errorFrame(err))
	}

	// Members of the deleted room are relocated to the home room and get
	// its state the same way a voluntary join would deliver it.
	relocated := protocol.MustNew(protocol.KindRoomJoined, protocol.RoomJoined{
		Room:    res.Home.Room,
		Topic:   res.Home.Topic,
		Members: res.Home.Members,
		History: toWireMessages(res.Home.History),
	})
	for _, user := range res.Moved {
		if moved, ok := srv.registry.Get(user); ok {
			moved.send(relocated)
		}
	}
	srv.broadcastAll(systemFrame(fmt.Sprintf("Room #%s was deleted by %s.", res.Room, sess.user)), "")
	srv.log.Info("room deleted", "room", res.Room, "owner", sess.user, "relocated", len(res.Moved))
}

func (srv *Server) handleDM(sess *Session, dm protocol.DM) {
	res, err := srv.svc.PostDirectMessage(sess.user, dm.To, dm.Body)
	if err != nil && !errors.Is(err, services.ErrFlushFailed) {
		sess.send(errorFrame(err))
		return
	}
	if err != nil {
		sess.send(errorFrame(err))
	}

	event := protocol.MustNew(protocol.KindDMEvent, protocol.DMEvent{
		From: sess.user,
		To:   dm.To,
		Body: res.Message.Body,
		At:   res.Message.At,
	})
	sess.send(event) // echo to sender
	if res.RecipientOnline {
		if recipient, ok := srv.registry.Get(dm.To); ok {
			recipient.send(event)
		}
	} else {
		sess.send(systemFrame(fmt.Sprintf("%s is offline. Message saved.", dm.To)))
	}
}

func (srv *Server) handleDMHistory(sess *Session, req protocol.DMHistoryRequest) {
	messages, err := srv.svc.FetchDMHistory(sess.user, req.With, domain.DefaultHistoryWindow)
	if err != nil {
		sess.send(errorFrame(err))
		return
	}
	sess.send(protocol.MustNew(protocol.KindDMThread, protocol.DMThread{
		With:     req.With,
		Messages: toWireMessages(messages),
	}))
}

func (srv *Server) handleHistory(sess *Session, req protocol.HistoryRequest) {
	room := req.Room
	if room == "" {
		current, _ := srv.svc.CurrentRoom(sess.user)
		room = current
	}
	messages, err := srv.svc.FetchRoomHistory(room, req.Limit)
	if err != nil {
		sess.send(errorFrame(err))
		return
	}
	sess.send(protocol.MustNew(protocol.KindHistorySet, protocol.HistorySet{
		Room:     services.NormalizeRoomName(room),
		Messages: toWireMessages(messages),
	}))
}

func (srv *Server) handleWhois(sess *Session, whois protocol.Whois) {
	profile, err := srv.svc.LookupUser(whois.User)
	if err != nil {
		sess.send(errorFrame(err))
		return
	}
	sess.send(protocol.MustNew(protocol.KindProfile, protocol.Profile{
		User:   profile.User,
		Bio:    profile.Bio,
		Joined: profile.Joined,
		Online: profile.Online,
		Room:   profile.Room,
	}))
}

func toWireMessages(messages []domain.Message) []protocol.Message {
	return lo.Map(messages, func(m domain.Message, _ int) protocol.Message {
		return protocol.Message{From: m.Sender, Body: m.Body, At: m.At}
	})
}

func roomSummaries(rooms []services.RoomInfo) []protocol.RoomSummary {
	return lo.Map(rooms, func(r services.RoomInfo, _ int) protocol.RoomSummary {
		return protocol.RoomSummary{Name: r.Name, Topic: r.Topic, Owner: r.Owner, Members: r.Members}
	})
}

func systemFrame(text string) protocol.Frame {
	return protocol.MustNew(protocol.KindSystem, protocol.System{Text: text})
}

func loginFail(err error) protocol.Frame {
	return protocol.MustNew(protocol.KindLoginFail, protocol.LoginFail{Reason: err.Error()})
}

// errorFrame maps a failure to its wire code. Domain errors keep their
// typed identity; everything else degrades to a generic class.
func errorFrame(err error) protocol.Frame {
	return protocol.MustNew(protocol.KindError, protocol.Error{
		Code:    errorCode(err),
		Message: err.Error(),
	})
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrUsernameTaken):
		return "username_taken"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrAlreadyLoggedIn):
		return "already_logged_in"
	case errors.Is(err, domain.ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, domain.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, domain.ErrRoomAlreadyExists):
		return "room_already_exists"
	case errors.Is(err, domain.ErrNotOwner):
		return "not_owner"
	case errors.Is(err, domain.ErrCannotDeleteDefaultRoom):
		return "cannot_delete_default_room"
	case errors.Is(err, domain.ErrSelfDirectMessage):
		return "self_dm"
	case errors.Is(err, services.ErrFlushFailed):
		return "persistence_failed"
	case errors.Is(err, protocol.ErrMalformed):
		return "malformed"
	default:
		return "internal"
	}
}
