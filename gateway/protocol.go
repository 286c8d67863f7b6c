// Package gateway is the websocket transport. It translates JSON frames
// into commands, streams coordinator events back out, and owns nothing
// else: all chat rules live behind the service boundary.
package gateway

import (
	"encoding/json"

	"chathub/domain"
	"chathub/domain/event"

	"github.com/google/uuid"
)

// Inbound wire event names.
const (
	evLogin      = "login"
	evRoomCreate = "room:create"
	evRoomJoin   = "room:join"
	evRoomLeave  = "room:leave"
	evRoomKick   = "room:kick"
	evRoomBan    = "room:ban"
	evChatSend   = "chat:send"
	evChatDelete = "chat:delete"
	evChatSearch = "chat:search"
	evTyping     = "typing"

	evAck = "ack"
)

// Frame is the envelope every websocket message travels in, both
// directions. Seq is a client-chosen correlation id echoed back on the
// matching ack; frames that expect no ack may omit it.
type Frame struct {
	Event   string          `json:"event"`
	Seq     uint64          `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type loginPayload struct {
	Nickname string `json:"nickname"`
}

type createRoomPayload struct {
	Room     string `json:"room"`
	Private  bool   `json:"private"`
	Password string `json:"password"`
}

type joinRoomPayload struct {
	Room     string `json:"room"`
	Password string `json:"password"`
}

type targetPayload struct {
	Nickname string `json:"nickname"`
}

type sendPayload struct {
	Text    string     `json:"text"`
	To      string     `json:"to,omitempty"`
	ReplyTo *uuid.UUID `json:"replyTo,omitempty"`
}

type deletePayload struct {
	MessageID uuid.UUID `json:"msgId"`
}

type typingPayload struct {
	IsTyping bool `json:"isTyping"`
}

type searchPayload struct {
	Query string `json:"query"`
}

// encodeEvent renders an outbound event as a complete frame, ready for the
// write loop.
func encodeEvent(e event.Event) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: e.Name(), Payload: payload})
}

// encodeAck renders an acknowledgment frame correlated to the inbound seq.
func encodeAck(seq uint64, result domain.Result) ([]byte, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: evAck, Seq: seq, Payload: payload})
}
