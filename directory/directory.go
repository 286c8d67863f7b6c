// Package directory holds the user/session table: which connection carries
// which nickname, and which room it currently occupies.
package directory

import (
	"chathub/domain"
	"chathub/errors"
)

// Directory maps connections to users and enforces global nickname
// uniqueness (case-sensitive). It carries no lock of its own: all access
// goes through the coordinator goroutine.
type Directory struct {
	users  map[domain.ConnID]*domain.User
	byNick map[string]domain.ConnID
}

func New() *Directory {
	return &Directory{
		users:  make(map[domain.ConnID]*domain.User),
		byNick: make(map[string]domain.ConnID),
	}
}

// Register creates the user entry for a connection. A nickname collision
// fails without leaving a partial entry. The caller is responsible for
// placing the new user in the lobby afterwards.
func (d *Directory) Register(conn domain.ConnID, nickname string) (*domain.User, error) {
	if nickname == "" {
		return nil, errors.ErrNicknameRequired
	}
	if _, taken := d.byNick[nickname]; taken {
		return nil, errors.ErrNicknameTaken
	}

	user := &domain.User{ID: conn, Nickname: nickname}
	d.users[conn] = user
	d.byNick[nickname] = conn
	return user, nil
}

// Lookup returns the user for a connection, or nil when the connection
// never logged in.
func (d *Directory) Lookup(conn domain.ConnID) *domain.User {
	return d.users[conn]
}

// ByNickname resolves a currently-registered nickname to its connection.
func (d *Directory) ByNickname(nickname string) (*domain.User, bool) {
	conn, ok := d.byNick[nickname]
	if !ok {
		return nil, false
	}
	return d.users[conn], true
}

// Unregister removes the user entry. It is the only path that permanently
// frees a nickname. Returns the removed user so the caller can clean up
// room membership.
func (d *Directory) Unregister(conn domain.ConnID) *domain.User {
	user, ok := d.users[conn]
	if !ok {
		return nil
	}
	delete(d.users, conn)
	delete(d.byNick, user.Nickname)
	return user
}

// Len reports the number of currently-registered users.
func (d *Directory) Len() int { return len(d.users) }
