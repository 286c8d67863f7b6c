// Package domain contains core concepts of the chat system.
// No runtime, network, or UI logic should be added here.
package domain

// ConnID identifies one live connection. It is assigned by the transport
// and stays stable for the connection's lifetime; a reconnecting user gets
// a fresh one.
type ConnID string

// User is a logged-in connection. Room is the name of the single room the
// user currently occupies; it is empty only transiently, between an
// eviction and the re-homing into the lobby.
type User struct {
	ID       ConnID
	Nickname string
	Room     string
}
