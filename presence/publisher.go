// Package presence derives the outward-facing views other components emit
// after mutating operations. Pure derivation, no mutation.
package presence

import (
	"chathub/domain"
	"chathub/domain/event"
	"chathub/rooms"

	"github.com/samber/lo"
)

type Publisher struct {
	rooms *rooms.Registry
}

func NewPublisher(reg *rooms.Registry) *Publisher {
	return &Publisher{rooms: reg}
}

// RoomList builds the lobby-visible room list: every non-lobby room with
// its visibility and live member count, in creation order.
func (p *Publisher) RoomList() event.RoomList {
	summaries := lo.Map(p.rooms.PublicRooms(), func(room *domain.Room, _ int) event.RoomSummary {
		return event.RoomSummary{
			Name:      room.Name,
			IsPrivate: room.IsPrivate(),
			Count:     len(room.Members),
		}
	})
	return event.RoomList{Rooms: summaries}
}

// Members builds the nickname list for one room.
func (p *Publisher) Members(room string) event.RoomMembers {
	return event.RoomMembers{Room: room, Members: p.rooms.MemberNicknames(room)}
}

// Typing builds the relay payload for one user's typing state.
func (p *Publisher) Typing(nickname string, isTyping bool) event.Typing {
	return event.Typing{Nickname: nickname, IsTyping: isTyping}
}
