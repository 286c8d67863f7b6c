// Package rooms owns room entities: creation, membership transfer,
// ownership and ban bookkeeping, and the bounded history behind each room.
package rooms

import (
	"log/slog"

	"chathub/auth"
	"chathub/directory"
	"chathub/domain"
	"chathub/errors"
	"chathub/repositories"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Registry is the room table. Like the Directory it is owned by the
// coordinator goroutine and carries no lock. Non-lobby rooms live until the
// process exits, even when empty: ownership is nickname-based and an owner
// may be transiently disconnected.
type Registry struct {
	rooms     map[string]*domain.Room
	order     []string
	directory *directory.Directory
	history   repositories.IHistoryRepository
	log       *slog.Logger
}

func NewRegistry(dir *directory.Directory, history repositories.IHistoryRepository, log *slog.Logger) *Registry {
	r := &Registry{
		rooms:     make(map[string]*domain.Room),
		directory: dir,
		history:   history,
		log:       log,
	}
	r.rooms[domain.Lobby] = domain.NewRoom(domain.Lobby, domain.Public, "", "")
	return r
}

// Get returns a room by name, or nil.
func (r *Registry) Get(name string) *domain.Room { return r.rooms[name] }

// PublicRooms returns every non-lobby room in insertion order. The order is
// stable across calls absent mutation.
func (r *Registry) PublicRooms() []*domain.Room {
	return lo.Map(r.order, func(name string, _ int) *domain.Room {
		return r.rooms[name]
	})
}

// Create registers a new room owned by the given nickname. Private rooms
// store a derived credential; public rooms ignore any supplied password.
func (r *Registry) Create(name string, private bool, password, owner string) error {
	if name == "" {
		return errors.ErrInvalidRoomName
	}
	if _, exists := r.rooms[name]; exists {
		return errors.ErrRoomExists
	}

	visibility := domain.Public
	hash := ""
	if private {
		visibility = domain.Private
		var err error
		if hash, err = auth.HashPassword(password); err != nil {
			return err
		}
	}

	r.rooms[name] = domain.NewRoom(name, visibility, hash, owner)
	r.order = append(r.order, name)
	r.log.Info("Room created", "room", name, "owner", owner, "visibility", visibility)
	return nil
}

// Join moves a connection into the target room after ban and password
// checks. The transfer is atomic: the connection leaves its previous room
// and enters the new one in the same step, so it is never absent from all
// rooms nor present in two.
func (r *Registry) Join(conn domain.ConnID, name, password string) error {
	user := r.directory.Lookup(conn)
	if user == nil {
		return errors.ErrNotLoggedIn
	}
	room, ok := r.rooms[name]
	if !ok {
		return errors.ErrRoomNotFound
	}
	if _, banned := room.Banned[user.Nickname]; banned {
		return errors.ErrBanned
	}
	if room.IsPrivate() {
		match, err := auth.ComparePassword(password, room.PasswordHash)
		if err != nil || !match {
			return errors.ErrWrongPassword
		}
	}

	r.move(user, room)
	return nil
}

// Leave returns a connection to the lobby. No-op if already there.
func (r *Registry) Leave(conn domain.ConnID) {
	user := r.directory.Lookup(conn)
	if user == nil || user.Room == domain.Lobby {
		return
	}
	r.move(user, r.rooms[domain.Lobby])
}

// PlaceInLobby puts a freshly registered or evicted connection into the
// lobby without touching any previous membership.
func (r *Registry) PlaceInLobby(conn domain.ConnID) {
	user := r.directory.Lookup(conn)
	if user == nil {
		return
	}
	r.move(user, r.rooms[domain.Lobby])
}

// Evict removes a connection from its current room and leaves it roomless.
// Kick and ban are evictions, not relocations; the caller decides where the
// user lands next.
func (r *Registry) Evict(conn domain.ConnID) {
	user := r.directory.Lookup(conn)
	if user == nil {
		return
	}
	if current, ok := r.rooms[user.Room]; ok {
		delete(current.Members, conn)
	}
	user.Room = ""
}

// Remove drops a connection from whatever room it occupies. Used on
// disconnect, after the Directory entry is gone.
func (r *Registry) Remove(conn domain.ConnID, roomName string) {
	if room, ok := r.rooms[roomName]; ok {
		delete(room.Members, conn)
	}
}

func (r *Registry) move(user *domain.User, target *domain.Room) {
	if previous, ok := r.rooms[user.Room]; ok {
		delete(previous.Members, user.ID)
	}
	target.Members[user.ID] = struct{}{}
	user.Room = target.Name
}

// MemberNicknames resolves a room's member connections to nicknames.
// Connections that no longer resolve are dropped silently: a stale entry is
// treated as absent rather than raised.
func (r *Registry) MemberNicknames(name string) []string {
	room, ok := r.rooms[name]
	if !ok {
		return nil
	}
	nicknames := make([]string, 0, len(room.Members))
	for conn := range room.Members {
		if user := r.directory.Lookup(conn); user != nil {
			nicknames = append(nicknames, user.Nickname)
		}
	}
	return nicknames
}

// MemberConns returns the room's member connection ids.
func (r *Registry) MemberConns(name string) []domain.ConnID {
	room, ok := r.rooms[name]
	if !ok {
		return nil
	}
	return lo.Keys(room.Members)
}

// MemberByNickname finds a currently-present member of the room carrying
// the given nickname.
func (r *Registry) MemberByNickname(name, nickname string) (domain.ConnID, bool) {
	room, ok := r.rooms[name]
	if !ok {
		return "", false
	}
	for conn := range room.Members {
		user := r.directory.Lookup(conn)
		if user != nil && user.Nickname == nickname {
			return conn, true
		}
	}
	return "", false
}

// BanNickname records a permanent (process-lifetime) ban. No unban exists.
func (r *Registry) BanNickname(name, nickname string) {
	if room, ok := r.rooms[name]; ok {
		room.Banned[nickname] = struct{}{}
	}
}

// IsBanned reports whether a nickname is banned from the room.
func (r *Registry) IsBanned(name, nickname string) bool {
	room, ok := r.rooms[name]
	if !ok {
		return false
	}
	_, banned := room.Banned[nickname]
	return banned
}

// AppendHistory stores a public message in the room's bounded history.
func (r *Registry) AppendHistory(name string, msg domain.Message) error {
	return r.history.Append(name, msg)
}

// History returns the room's retained messages, oldest first.
func (r *Registry) History(name string) ([]domain.Message, error) {
	return r.history.Messages(name)
}

// LookupMessage finds one history entry by id.
func (r *Registry) LookupMessage(name string, id uuid.UUID) (domain.Message, bool) {
	msg, ok, err := r.history.Find(name, id)
	if err != nil {
		r.log.Warn("History lookup failed", "room", name, "error", err)
		return domain.Message{}, false
	}
	return msg, ok
}

// MarkDeleted flips the tombstone on a stored message.
func (r *Registry) MarkDeleted(name string, id uuid.UUID) bool {
	ok, err := r.history.MarkDeleted(name, id)
	if err != nil {
		r.log.Warn("History tombstone failed", "room", name, "error", err)
		return false
	}
	return ok
}
