package domain

// Lobby is the always-present public room every user occupies by default.
// It has no owner, is never listed publicly, and is exempt from moderation.
const Lobby = "lobby"

type Visibility string

const (
	Public  Visibility = "public"
	Private Visibility = "private"
)

// Room is a chat room. Members holds connection ids whose User.Room equals
// this room's name. Banned holds nicknames, not connection ids, so a ban
// survives reconnection. PasswordHash is an argon2id credential and is
// empty for public rooms.
type Room struct {
	Name         string
	Visibility   Visibility
	PasswordHash string
	Owner        string
	Members      map[ConnID]struct{}
	Banned       map[string]struct{}
}

func NewRoom(name string, visibility Visibility, passwordHash, owner string) *Room {
	return &Room{
		Name:         name,
		Visibility:   visibility,
		PasswordHash: passwordHash,
		Owner:        owner,
		Members:      make(map[ConnID]struct{}),
		Banned:       make(map[string]struct{}),
	}
}

func (r *Room) IsPrivate() bool { return r.Visibility == Private }
