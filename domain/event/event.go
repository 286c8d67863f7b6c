// Package event defines the outbound broadcasts the coordinator emits and
// the addressed envelope the fanout worker delivers them in.
package event

import (
	"chathub/domain"

	"github.com/google/uuid"
)

// Event is one outbound payload. Name is the wire event identifier the
// gateway writes on the frame.
type Event interface {
	Name() string
}

// Envelope addresses an Event either to an explicit set of connections or
// to everyone currently connected. The payload is fully built before the
// envelope is enqueued, so every recipient sees identical content.
type Envelope struct {
	To      []domain.ConnID
	All     bool
	Payload Event
}

type RoomSummary struct {
	Name      string `json:"name"`
	IsPrivate bool   `json:"isPrivate"`
	Count     int    `json:"count"`
}

// RoomList is the lobby-visible room list. The lobby itself is never in it.
type RoomList struct {
	Rooms []RoomSummary `json:"rooms"`
}

// RoomMembers is the nickname list of one room.
type RoomMembers struct {
	Room    string   `json:"room"`
	Members []string `json:"members"`
}

type PublicMessage struct {
	domain.Message
}

type PrivateMessage struct {
	domain.Message
}

// MessageDeleted is the soft-delete tombstone. Clients render the message
// as deleted; the id is enough to locate it.
type MessageDeleted struct {
	Room      string    `json:"room"`
	MessageID uuid.UUID `json:"msgId"`
}

// History replays a room's retained messages to one joining connection.
type History struct {
	Room     string           `json:"room"`
	Messages []domain.Message `json:"messages"`
}

type Kicked struct {
	Room string `json:"room"`
}

type Banned struct {
	Room string `json:"room"`
}

// Typing relays one user's typing state verbatim. Aggregating several
// typers into one line is a presentation concern.
type Typing struct {
	Nickname string `json:"nickname"`
	IsTyping bool   `json:"isTyping"`
}

func (RoomList) Name() string       { return "lobby:rooms" }
func (RoomMembers) Name() string    { return "room:users" }
func (PublicMessage) Name() string  { return "chat:public" }
func (PrivateMessage) Name() string { return "chat:private" }
func (MessageDeleted) Name() string { return "chat:deleted" }
func (History) Name() string        { return "chat:history" }
func (Kicked) Name() string         { return "room:kicked" }
func (Banned) Name() string         { return "room:banned" }
func (Typing) Name() string         { return "typing" }
