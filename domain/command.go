package domain

import "github.com/google/uuid"

// Result is the acknowledgment payload returned to the connection that
// triggered a command. Extra fields are populated per operation: Room and
// Owner on create/join, Matches on history search.
type Result struct {
	OK      bool      `json:"ok"`
	Error   string    `json:"error,omitempty"`
	Room    string    `json:"room,omitempty"`
	Owner   string    `json:"owner,omitempty"`
	Matches []Message `json:"matches,omitempty"`
}

// Ack delivers a Result back over the triggering connection. A nil Ack is
// legal: fire-and-forget events like typing carry none.
type Ack func(Result)

func OK() Result                { return Result{OK: true} }
func Fail(reason string) Result { return Result{OK: false, Error: reason} }

// Command is an inbound event from one connection. Commands from the same
// connection are applied in receipt order.
type Command interface {
	Conn() ConnID
}

type LoginCommand struct {
	ConnID   ConnID
	Nickname string
	Ack      Ack
}

type CreateRoomCommand struct {
	ConnID   ConnID
	Name     string
	Private  bool
	Password string
	Ack      Ack
}

type JoinRoomCommand struct {
	ConnID   ConnID
	Name     string
	Password string
	Ack      Ack
}

type LeaveRoomCommand struct {
	ConnID ConnID
	Ack    Ack
}

type KickCommand struct {
	ConnID         ConnID
	TargetNickname string
	Ack            Ack
}

type BanCommand struct {
	ConnID         ConnID
	TargetNickname string
	Ack            Ack
}

type SendMessageCommand struct {
	ConnID  ConnID
	Text    string
	To      string
	ReplyTo *uuid.UUID
	Ack     Ack
}

type DeleteMessageCommand struct {
	ConnID    ConnID
	MessageID uuid.UUID
	Ack       Ack
}

type TypingCommand struct {
	ConnID   ConnID
	IsTyping bool
}

type SearchCommand struct {
	ConnID ConnID
	Query  string
	Ack    Ack
}

type DisconnectCommand struct {
	ConnID ConnID
}

func (c LoginCommand) Conn() ConnID         { return c.ConnID }
func (c CreateRoomCommand) Conn() ConnID    { return c.ConnID }
func (c JoinRoomCommand) Conn() ConnID      { return c.ConnID }
func (c LeaveRoomCommand) Conn() ConnID     { return c.ConnID }
func (c KickCommand) Conn() ConnID          { return c.ConnID }
func (c BanCommand) Conn() ConnID           { return c.ConnID }
func (c SendMessageCommand) Conn() ConnID   { return c.ConnID }
func (c DeleteMessageCommand) Conn() ConnID { return c.ConnID }
func (c TypingCommand) Conn() ConnID        { return c.ConnID }
func (c SearchCommand) Conn() ConnID        { return c.ConnID }
func (c DisconnectCommand) Conn() ConnID    { return c.ConnID }
