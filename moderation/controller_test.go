package moderation

import (
	"log/slog"
	"testing"

	"chathub/directory"
	"chathub/domain"
	"chathub/errors"
	"chathub/internal"
	"chathub/repositories"
	"chathub/rooms"

	"github.com/stretchr/testify/require"
)

type fixture struct {
	controller *Controller
	registry   *rooms.Registry
	directory  *directory.Directory
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db, err := repositories.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := internal.GetLoggerFromLevel(slog.LevelWarn)
	dir := directory.New()
	reg := rooms.NewRegistry(dir, repositories.NewHistoryRepository(db, log, 100), log)
	return fixture{controller: NewController(dir, reg, log), registry: reg, directory: dir}
}

func (f fixture) login(t *testing.T, conn domain.ConnID, nickname string) {
	t.Helper()
	_, err := f.directory.Register(conn, nickname)
	require.NoError(t, err)
	f.registry.PlaceInLobby(conn)
}

func TestController_IsOwner(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.login(t, "conn-1", "alice")
	f.login(t, "conn-2", "bob")
	req.NoError(f.registry.Create("general", false, "", "alice"))

	req.True(f.controller.IsOwner("conn-1", "general"))
	req.False(f.controller.IsOwner("conn-2", "general"))

	// The lobby is ownerless, so nobody moderates it
	req.False(f.controller.IsOwner("conn-1", domain.Lobby))
}

func TestController_Kick(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.login(t, "conn-1", "alice")
	f.login(t, "conn-2", "bob")
	req.NoError(f.registry.Create("general", false, "", "alice"))
	req.NoError(f.registry.Join("conn-1", "general", ""))
	req.NoError(f.registry.Join("conn-2", "general", ""))

	// A non-owner may not kick
	_, err := f.controller.Kick("conn-2", "general", "alice")
	req.ErrorIs(err, errors.ErrNotOwner)

	// Kicking an absent nickname fails without side effects
	_, err = f.controller.Kick("conn-1", "general", "nobody")
	req.ErrorIs(err, errors.ErrUserNotFound)

	// The owner evicts bob; bob ends up roomless, not relocated
	evicted, err := f.controller.Kick("conn-1", "general", "bob")
	req.NoError(err)
	req.Equal(domain.ConnID("conn-2"), evicted)
	req.Empty(f.directory.Lookup("conn-2").Room)
	req.NotContains(f.registry.MemberConns("general"), domain.ConnID("conn-2"))

	// A kicked user may come back
	f.registry.PlaceInLobby("conn-2")
	req.NoError(f.registry.Join("conn-2", "general", ""))
}

func TestController_KickRequiresPresence(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.login(t, "conn-1", "alice")
	f.login(t, "conn-2", "bob")
	req.NoError(f.registry.Create("general", false, "", "alice"))
	req.NoError(f.registry.Join("conn-2", "general", ""))

	// The owner is still in the lobby, so it cannot moderate the room
	_, err := f.controller.Kick("conn-1", "general", "bob")
	req.ErrorIs(err, errors.ErrNotOwner)
}

func TestController_Ban(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.login(t, "conn-1", "alice")
	f.login(t, "conn-2", "bob")
	req.NoError(f.registry.Create("general", false, "", "alice"))
	req.NoError(f.registry.Join("conn-1", "general", ""))
	req.NoError(f.registry.Join("conn-2", "general", ""))

	// Ban evicts and records the nickname
	evicted, err := f.controller.Ban("conn-1", "general", "bob")
	req.NoError(err)
	req.Equal(domain.ConnID("conn-2"), evicted)
	req.True(f.registry.IsBanned("general", "bob"))

	// The banned user cannot rejoin
	f.registry.PlaceInLobby("conn-2")
	req.ErrorIs(f.registry.Join("conn-2", "general", ""), errors.ErrBanned)

	// Banning an absent target fails and records nothing
	_, err = f.controller.Ban("conn-1", "general", "ghost")
	req.ErrorIs(err, errors.ErrUserNotFound)
	req.False(f.registry.IsBanned("general", "ghost"))
}
