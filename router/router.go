// Package router builds and routes chat messages: public broadcast,
// private delivery, reply resolution and soft delete.
package router

import (
	"log/slog"
	"time"

	"chathub/directory"
	"chathub/domain"
	"chathub/errors"
	"chathub/moderation"
	"chathub/rooms"

	"github.com/google/uuid"
)

// Delivery is a routed message together with its recipient set. Private is
// true when the message went to exactly the sender and the target and must
// not appear in history.
type Delivery struct {
	Message    domain.Message
	Recipients []domain.ConnID
	Private    bool
}

type Router struct {
	directory *directory.Directory
	rooms     *rooms.Registry
	censor    *moderation.Censor
	log       *slog.Logger
}

func NewRouter(dir *directory.Directory, reg *rooms.Registry, censor *moderation.Censor, log *slog.Logger) *Router {
	return &Router{directory: dir, rooms: reg, censor: censor, log: log}
}

// Send builds a message from the sender's current room context and routes
// it. With a target nickname the message is private: delivered to sender
// and target only, never appended to history. Without one it is appended to
// the room's bounded history and addressed to every current member.
//
// A replyTo id is resolved against the sender's room history; when the
// referenced message is gone (evicted or never existed) the message is
// still sent, just without the reply fields.
func (r *Router) Send(conn domain.ConnID, text, to string, replyTo *uuid.UUID) (Delivery, error) {
	user := r.directory.Lookup(conn)
	if user == nil {
		return Delivery{}, errors.ErrNotLoggedIn
	}
	if user.Room == "" {
		return Delivery{}, errors.ErrNotInRoom
	}

	if r.censor != nil {
		text, _ = r.censor.Censor(text)
	}

	msg := domain.Message{
		ID:   uuid.New(),
		Room: user.Room,
		From: user.Nickname,
		Text: text,
		At:   time.Now().UTC(),
	}

	if replyTo != nil {
		if original, ok := r.rooms.LookupMessage(user.Room, *replyTo); ok {
			msg.Reply = &domain.ReplyRef{ID: original.ID, Text: original.Text, From: original.From}
		}
	}

	if to != "" {
		target, ok := r.rooms.MemberByNickname(user.Room, to)
		if !ok {
			return Delivery{}, errors.ErrTargetNotInRoom
		}
		msg.To = to
		recipients := []domain.ConnID{conn}
		if target != conn {
			recipients = append(recipients, target)
		}
		return Delivery{Message: msg, Recipients: recipients, Private: true}, nil
	}

	if err := r.rooms.AppendHistory(user.Room, msg); err != nil {
		return Delivery{}, err
	}
	return Delivery{Message: msg, Recipients: r.rooms.MemberConns(user.Room)}, nil
}

// SoftDelete marks a message deleted for broadcast purposes. The only
// check is that the message lives in the deleter's current room. Returns
// the room so the caller can address the tombstone.
func (r *Router) SoftDelete(conn domain.ConnID, id uuid.UUID) (string, error) {
	user := r.directory.Lookup(conn)
	if user == nil {
		return "", errors.ErrNotLoggedIn
	}
	if user.Room == "" {
		return "", errors.ErrNotInRoom
	}
	if !r.rooms.MarkDeleted(user.Room, id) {
		return "", errors.ErrMessageNotFound
	}
	return user.Room, nil
}
