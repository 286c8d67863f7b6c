// Package runtime wires the chat core together: the single-writer
// coordinator loop, the session registry, and the censored-word loader.
// It orchestrates the system without containing domain rules itself.
package runtime

import (
	"context"
	"log/slog"

	"chathub/auth"
	"chathub/directory"
	"chathub/domain"
	"chathub/domain/event"
	"chathub/errors"
	"chathub/moderation"
	"chathub/observability"
	"chathub/presence"
	"chathub/rooms"
	"chathub/router"
	"chathub/search"

	"github.com/samber/lo"
)

const searchResultLimit = 20

// Coordinator is the single logical owner of all mutable chat state. It
// runs as a supervised worker consuming inbound commands one at a time to
// completion, so every handler is atomic with respect to every other
// handler. Acknowledgments fire inside the handler; outbound envelopes
// carry recipient sets resolved before enqueue, so the fanout worker never
// reads mutable room state.
type Coordinator struct {
	log        *slog.Logger
	directory  *directory.Directory
	rooms      *rooms.Registry
	moderation *moderation.Controller
	router     *router.Router
	presence   *presence.Publisher
	index      *search.Index
	stats      *observability.Stats
	commands   chan domain.Command
	envelopes  chan event.Envelope
}

func NewCoordinator(log *slog.Logger, dir *directory.Directory, reg *rooms.Registry,
	mod *moderation.Controller, rt *router.Router, pres *presence.Publisher,
	index *search.Index, stats *observability.Stats,
	bufferSize int, envelopes chan event.Envelope) *Coordinator {
	return &Coordinator{
		log:        log,
		directory:  dir,
		rooms:      reg,
		moderation: mod,
		router:     rt,
		presence:   pres,
		index:      index,
		stats:      stats,
		commands:   make(chan domain.Command, bufferSize),
		envelopes:  envelopes,
	}
}

// Dispatch hands an inbound command to the coordinator loop. Commands from
// one connection arrive through one gateway read loop, so their order on
// the channel is their receipt order. When the queue is full the command is
// refused and its ack (if any) reports the overload.
func (c *Coordinator) Dispatch(cmd domain.Command) {
	select {
	case c.commands <- cmd:
	default:
		c.log.Warn("Command queue full, refusing command", "conn", cmd.Conn())
		if ack := ackOf(cmd); ack != nil {
			ack(domain.Fail(errors.Reason(errors.ErrServerBusy)))
		}
	}
}

// Run is the coordinator loop. It exits only on context cancellation.
func (c *Coordinator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			c.log.Debug("Context done, stopping coordinator")
			return nil
		case cmd := <-c.commands:
			c.handle(ctx, cmd)
		}
	}
}

func (c *Coordinator) handle(ctx context.Context, cmd domain.Command) {
	switch cmd := cmd.(type) {
	case domain.LoginCommand:
		c.handleLogin(cmd)
	case domain.CreateRoomCommand:
		c.handleCreateRoom(cmd)
	case domain.JoinRoomCommand:
		c.handleJoinRoom(cmd)
	case domain.LeaveRoomCommand:
		c.handleLeaveRoom(cmd)
	case domain.KickCommand:
		c.handleEviction(cmd.ConnID, cmd.TargetNickname, cmd.Ack, false)
	case domain.BanCommand:
		c.handleEviction(cmd.ConnID, cmd.TargetNickname, cmd.Ack, true)
	case domain.SendMessageCommand:
		c.handleSendMessage(cmd)
	case domain.DeleteMessageCommand:
		c.handleDeleteMessage(cmd)
	case domain.TypingCommand:
		c.handleTyping(cmd)
	case domain.SearchCommand:
		c.handleSearch(ctx, cmd)
	case domain.DisconnectCommand:
		c.handleDisconnect(cmd)
	default:
		c.log.Warn("Unknown command dropped", "conn", cmd.Conn())
	}
}

func (c *Coordinator) handleLogin(cmd domain.LoginCommand) {
	nickname, err := auth.ValidateNickname(cmd.Nickname)
	if err != nil {
		c.ack(cmd.Ack, domain.Fail(errors.Reason(err)))
		return
	}
	if _, err := c.directory.Register(cmd.ConnID, nickname); err != nil {
		c.ack(cmd.Ack, domain.Fail(errors.Reason(err)))
		return
	}
	c.rooms.PlaceInLobby(cmd.ConnID)
	c.stats.IncrLogins()
	c.ack(cmd.Ack, domain.OK())

	c.emitRoom(domain.Lobby, c.presence.Members(domain.Lobby))
	c.emitConn(cmd.ConnID, c.presence.RoomList())
	c.log.Info("User logged in", "nickname", nickname)
}

func (c *Coordinator) handleCreateRoom(cmd domain.CreateRoomCommand) {
	user := c.directory.Lookup(cmd.ConnID)
	if user == nil {
		c.ack(cmd.Ack, domain.Fail(errors.Reason(errors.ErrNotLoggedIn)))
		return
	}
	name, err := auth.ValidateRoomName(cmd.Name)
	if err != nil {
		c.ack(cmd.Ack, domain.Fail(errors.Reason(err)))
		return
	}
	if err := c.rooms.Create(name, cmd.Private, cmd.Password, user.Nickname); err != nil {
		c.ack(cmd.Ack, domain.Fail(errors.Reason(err)))
		return
	}

	// Owner auto-joins the room it just created.
	previous := user.Room
	if err := c.rooms.Join(cmd.ConnID, name, cmd.Password); err != nil {
		c.ack(cmd.Ack, domain.Fail(errors.Reason(err)))
		return
	}

	c.ack(cmd.Ack, domain.Result{OK: true, Room: name, Owner: user.Nickname})
	c.emitAll(c.presence.RoomList())
	c.emitRoom(name, c.presence.Members(name))
	c.emitRoom(previous, c.presence.Members(previous))
}

func (c *Coordinator) handleJoinRoom(cmd domain.JoinRoomCommand) {
	user := c.directory.Lookup(cmd.ConnID)
	if user == nil {
		c.ack(cmd.Ack, domain.Fail(errors.Reason(errors.ErrNotLoggedIn)))
		return
	}

	previous := user.Room
	if err := c.rooms.Join(cmd.ConnID, cmd.Name, cmd.Password); err != nil {
		c.ack(cmd.Ack, domain.Fail(errors.Reason(err)))
		return
	}

	room := c.rooms.Get(cmd.Name)
	c.ack(cmd.Ack, domain.Result{OK: true, Room: room.Name, Owner: room.Owner})

	c.emitRoom(room.Name, c.presence.Members(room.Name))
	if previous != "" && previous != room.Name {
		c.emitRoom(previous, c.presence.Members(previous))
	}
	c.emitAll(c.presence.RoomList())
	c.replayHistory(cmd.ConnID, room.Name)
}

// replayHistory sends the room's retained messages to the joining
// connection only.
func (c *Coordinator) replayHistory(conn domain.ConnID, room string) {
	messages, err := c.rooms.History(room)
	if err != nil {
		c.log.Warn("History replay failed", "room", room, "error", err)
		return
	}
	c.emitConn(conn, event.History{Room: room, Messages: messages})
}

func (c *Coordinator) handleLeaveRoom(cmd domain.LeaveRoomCommand) {
	user := c.directory.Lookup(cmd.ConnID)
	if user == nil {
		c.ack(cmd.Ack, domain.Fail(errors.Reason(errors.ErrNotLoggedIn)))
		return
	}

	previous := user.Room
	c.rooms.Leave(cmd.ConnID)
	c.ack(cmd.Ack, domain.OK())

	if previous != "" && previous != domain.Lobby {
		c.emitRoom(previous, c.presence.Members(previous))
	}
	c.emitRoom(domain.Lobby, c.presence.Members(domain.Lobby))
	c.emitAll(c.presence.RoomList())
}

// handleEviction covers kick and ban; a ban is an eviction that also
// records the nickname permanently. The evicted connection is re-homed in
// the lobby after the notice is addressed.
func (c *Coordinator) handleEviction(conn domain.ConnID, target string, ack domain.Ack, ban bool) {
	user := c.directory.Lookup(conn)
	if user == nil || user.Room == "" {
		c.ack(ack, domain.Fail(errors.Reason(errors.ErrNotInRoom)))
		return
	}

	roomName := user.Room
	var evicted domain.ConnID
	var err error
	if ban {
		evicted, err = c.moderation.Ban(conn, roomName, target)
	} else {
		evicted, err = c.moderation.Kick(conn, roomName, target)
	}
	if err != nil {
		c.ack(ack, domain.Fail(errors.Reason(err)))
		return
	}

	if ban {
		c.emitConn(evicted, event.Banned{Room: roomName})
	} else {
		c.emitConn(evicted, event.Kicked{Room: roomName})
	}
	c.rooms.PlaceInLobby(evicted)
	c.ack(ack, domain.OK())

	c.emitRoom(roomName, c.presence.Members(roomName))
	c.emitRoom(domain.Lobby, c.presence.Members(domain.Lobby))
	c.emitAll(c.presence.RoomList())
}

func (c *Coordinator) handleSendMessage(cmd domain.SendMessageCommand) {
	delivery, err := c.router.Send(cmd.ConnID, cmd.Text, cmd.To, cmd.ReplyTo)
	if err != nil {
		c.ack(cmd.Ack, domain.Fail(errors.Reason(err)))
		return
	}

	if delivery.Private {
		c.stats.IncrPrivateMessages()
		c.emit(event.Envelope{To: delivery.Recipients, Payload: event.PrivateMessage{Message: delivery.Message}})
	} else {
		c.stats.IncrMessagesRouted()
		if err := c.index.Add(delivery.Message); err != nil {
			c.log.Warn("Message indexing failed", "error", err)
		}
		c.emit(event.Envelope{To: delivery.Recipients, Payload: event.PublicMessage{Message: delivery.Message}})
	}
	c.ack(cmd.Ack, domain.OK())
}

func (c *Coordinator) handleDeleteMessage(cmd domain.DeleteMessageCommand) {
	roomName, err := c.router.SoftDelete(cmd.ConnID, cmd.MessageID)
	if err != nil {
		c.ack(cmd.Ack, domain.Fail(errors.Reason(err)))
		return
	}
	c.ack(cmd.Ack, domain.OK())
	c.emitRoom(roomName, event.MessageDeleted{Room: roomName, MessageID: cmd.MessageID})
}

// handleTyping relays one user's typing state verbatim to the other
// members of the room. No aggregation happens here.
func (c *Coordinator) handleTyping(cmd domain.TypingCommand) {
	user := c.directory.Lookup(cmd.ConnID)
	if user == nil || user.Room == "" {
		return
	}
	others := lo.Filter(c.rooms.MemberConns(user.Room), func(conn domain.ConnID, _ int) bool {
		return conn != cmd.ConnID
	})
	if len(others) == 0 {
		return
	}
	c.emit(event.Envelope{To: others, Payload: c.presence.Typing(user.Nickname, cmd.IsTyping)})
}

func (c *Coordinator) handleSearch(ctx context.Context, cmd domain.SearchCommand) {
	user := c.directory.Lookup(cmd.ConnID)
	if user == nil || user.Room == "" {
		c.ack(cmd.Ack, domain.Fail(errors.Reason(errors.ErrNotInRoom)))
		return
	}

	ids, err := c.index.Search(ctx, user.Room, cmd.Query, searchResultLimit)
	if err != nil {
		c.log.Warn("History search failed", "room", user.Room, "error", err)
		c.ack(cmd.Ack, domain.Fail(errors.Reason(errors.ErrServerBusy)))
		return
	}

	// The index may still hold evicted or tombstoned messages; resolving
	// against history filters them out.
	var matches []domain.Message
	for _, id := range ids {
		if msg, ok := c.rooms.LookupMessage(user.Room, id); ok && !msg.Deleted {
			matches = append(matches, msg)
		}
	}
	c.ack(cmd.Ack, domain.Result{OK: true, Matches: matches})
}

func (c *Coordinator) handleDisconnect(cmd domain.DisconnectCommand) {
	user := c.directory.Unregister(cmd.ConnID)
	if user == nil {
		return
	}
	c.rooms.Remove(cmd.ConnID, user.Room)
	c.stats.IncrDisconnects()

	if user.Room != "" && user.Room != domain.Lobby {
		c.emitRoom(user.Room, c.presence.Members(user.Room))
	}
	c.emitRoom(domain.Lobby, c.presence.Members(domain.Lobby))
	c.emitAll(c.presence.RoomList())
	c.log.Info("User disconnected", "nickname", user.Nickname)
}

func (c *Coordinator) ack(ack domain.Ack, result domain.Result) {
	if ack != nil {
		ack(result)
	}
}

func (c *Coordinator) emit(env event.Envelope) {
	select {
	case c.envelopes <- env:
	default:
		c.stats.IncrDroppedEvents()
		c.log.Warn("Envelope queue full, event lost", "event", env.Payload.Name())
	}
}

func (c *Coordinator) emitConn(conn domain.ConnID, payload event.Event) {
	c.emit(event.Envelope{To: []domain.ConnID{conn}, Payload: payload})
}

func (c *Coordinator) emitRoom(room string, payload event.Event) {
	conns := c.rooms.MemberConns(room)
	if len(conns) == 0 {
		return
	}
	c.emit(event.Envelope{To: conns, Payload: payload})
}

func (c *Coordinator) emitAll(payload event.Event) {
	c.emit(event.Envelope{All: true, Payload: payload})
}

func ackOf(cmd domain.Command) domain.Ack {
	switch cmd := cmd.(type) {
	case domain.LoginCommand:
		return cmd.Ack
	case domain.CreateRoomCommand:
		return cmd.Ack
	case domain.JoinRoomCommand:
		return cmd.Ack
	case domain.LeaveRoomCommand:
		return cmd.Ack
	case domain.KickCommand:
		return cmd.Ack
	case domain.BanCommand:
		return cmd.Ack
	case domain.SendMessageCommand:
		return cmd.Ack
	case domain.DeleteMessageCommand:
		return cmd.Ack
	case domain.SearchCommand:
		return cmd.Ack
	default:
		return nil
	}
}
