// Package moderation enforces room moderation: owner-only kick/ban, plus
// the text censor applied to outgoing messages.
package moderation

import (
	"log/slog"

	"chathub/directory"
	"chathub/domain"
	"chathub/errors"
	"chathub/rooms"
)

// Controller checks ownership and performs evictions. Ownership is compared
// by nickname, not connection id, so it survives reconnection under the
// same nickname.
type Controller struct {
	directory *directory.Directory
	rooms     *rooms.Registry
	log       *slog.Logger
}

func NewController(dir *directory.Directory, reg *rooms.Registry, log *slog.Logger) *Controller {
	return &Controller{directory: dir, rooms: reg, log: log}
}

// IsOwner reports whether the connection's nickname owns the room. The
// lobby has no owner, which keeps it exempt from moderation without a
// special case.
func (c *Controller) IsOwner(conn domain.ConnID, roomName string) bool {
	room := c.rooms.Get(roomName)
	user := c.directory.Lookup(conn)
	return room != nil && user != nil && room.Owner != "" && room.Owner == user.Nickname
}

// Kick evicts a member from the room. The requester must currently occupy
// the room and own it. The target ends up roomless; the caller decides
// whether to re-home it. Returns the evicted connection id so the caller
// can notify that socket.
func (c *Controller) Kick(requester domain.ConnID, roomName, targetNickname string) (domain.ConnID, error) {
	user := c.directory.Lookup(requester)
	if user == nil || user.Room == "" {
		return "", errors.ErrNotInRoom
	}
	if user.Room != roomName || !c.IsOwner(requester, roomName) {
		return "", errors.ErrNotOwner
	}

	target, ok := c.rooms.MemberByNickname(roomName, targetNickname)
	if !ok {
		return "", errors.ErrUserNotFound
	}

	c.rooms.Evict(target)
	c.log.Info("User kicked", "room", roomName, "target", targetNickname, "by", user.Nickname)
	return target, nil
}

// Ban records a permanent ban for the nickname and, when the target is
// currently present, also kicks it. A ban always implies the kick.
func (c *Controller) Ban(requester domain.ConnID, roomName, targetNickname string) (domain.ConnID, error) {
	evicted, err := c.Kick(requester, roomName, targetNickname)
	if err != nil {
		return "", err
	}
	c.rooms.BanNickname(roomName, targetNickname)
	c.log.Info("User banned", "room", roomName, "target", targetNickname)
	return evicted, nil
}
