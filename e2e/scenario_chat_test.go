package e2e

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ChatScenarioSuite struct {
	BaseWsSuite
}

func TestChatScenarios(t *testing.T) {
	suite.Run(t, new(ChatScenarioSuite))
}

func (s *ChatScenarioSuite) TestNicknameUniqueness() {
	s.Header(s.T(), "Nickname uniqueness")

	alice := s.Login(s.T(), "alice-e2e")
	defer alice.Drain()

	// A second connection claiming the same nickname is refused
	intruder := s.Dial(s.T())
	res := intruder.Ack(intruder.Send("login", map[string]any{"nickname": "alice-e2e"}))
	s.Require().False(res.OK)
	s.Require().Contains(res.Error, "in use")

	// The refused connection can retry with a free nickname
	res = intruder.Ack(intruder.Send("login", map[string]any{"nickname": "alice-e2e-2"}))
	s.Require().True(res.OK)
}

func (s *ChatScenarioSuite) TestRoomLifecycle() {
	s.Header(s.T(), "Room lifecycle")
	t := s.T()

	owner := s.Login(t, "owner-e2e")
	guest := s.Login(t, "guest-e2e")

	// Owner creates a room and lands in it
	res := owner.Ack(owner.Send("room:create", map[string]any{"room": "general-e2e"}))
	s.Require().True(res.OK, res.Error)
	s.Require().Equal("general-e2e", res.Room)
	s.Require().Equal("owner-e2e", res.Owner)

	// The lobby sees the new room
	guest.Event("lobby:rooms")
	guest.Drain()

	// Guest joins, gets the member list and an (empty) history replay
	res = guest.Ack(guest.Send("room:join", map[string]any{"room": "general-e2e"}))
	s.Require().True(res.OK, res.Error)
	s.Require().Equal("owner-e2e", res.Owner)
	guest.Event("chat:history")
	guest.Drain()
	owner.Drain()

	// A public message reaches both members
	res = owner.Ack(owner.Send("chat:send", map[string]any{"text": "hello room"}))
	s.Require().True(res.OK, res.Error)
	got := DecodeMessage(t, guest.Event("chat:public"))
	s.Require().Equal("hello room", got.Text)
	s.Require().Equal("owner-e2e", got.From)
	mine := DecodeMessage(t, owner.Event("chat:public"))
	s.Require().Equal(got.ID, mine.ID)

	// A private message reaches only its target
	res = owner.Ack(owner.Send("chat:send", map[string]any{"to": "guest-e2e", "text": "psst"}))
	s.Require().True(res.OK, res.Error)
	whisper := DecodeMessage(t, guest.Event("chat:private"))
	s.Require().Equal("psst", whisper.Text)
	s.Require().Equal("guest-e2e", whisper.To)

	// Replying links back to the original
	res = guest.Ack(guest.Send("chat:send", map[string]any{"text": "hi back", "replyTo": got.ID}))
	s.Require().True(res.OK, res.Error)
	reply := DecodeMessage(t, owner.Event("chat:public"))
	s.Require().NotNil(reply.Reply)
	s.Require().Equal(got.ID, reply.Reply.ID)
	s.Require().Equal("hello room", reply.Reply.Text)

	// Deleting tombstones the message for everyone
	res = owner.Ack(owner.Send("chat:delete", map[string]any{"msgId": got.ID}))
	s.Require().True(res.OK, res.Error)
	room, deletedID := DecodeDeleted(t, guest.Event("chat:deleted"))
	s.Require().Equal("general-e2e", room)
	s.Require().Equal(got.ID, deletedID)

	// A latecomer sees the tombstone in the replay
	late := s.Login(t, "late-e2e")
	res = late.Ack(late.Send("room:join", map[string]any{"room": "general-e2e"}))
	s.Require().True(res.OK, res.Error)
	history := late.Event("chat:history")
	s.Require().Contains(string(history.Payload), deletedID.String())
}

func (s *ChatScenarioSuite) TestPrivateRoomPassword() {
	s.Header(s.T(), "Private room password")
	t := s.T()

	owner := s.Login(t, "vault-owner")
	res := owner.Ack(owner.Send("room:create",
		map[string]any{"room": "vault-e2e", "private": true, "password": "sesame"}))
	s.Require().True(res.OK, res.Error)

	guest := s.Login(t, "vault-guest")
	res = guest.Ack(guest.Send("room:join", map[string]any{"room": "vault-e2e", "password": "nope"}))
	s.Require().False(res.OK)

	res = guest.Ack(guest.Send("room:join", map[string]any{"room": "vault-e2e", "password": "sesame"}))
	s.Require().True(res.OK, res.Error)
}

func (s *ChatScenarioSuite) TestKickAndBan() {
	s.Header(s.T(), "Kick and ban")
	t := s.T()

	owner := s.Login(t, "mod-owner")
	res := owner.Ack(owner.Send("room:create", map[string]any{"room": "strict-e2e"}))
	s.Require().True(res.OK, res.Error)

	troll := s.Login(t, "troll-e2e")
	res = troll.Ack(troll.Send("room:join", map[string]any{"room": "strict-e2e"}))
	s.Require().True(res.OK, res.Error)
	troll.Drain()

	// Only the owner may kick
	res = troll.Ack(troll.Send("room:kick", map[string]any{"nickname": "mod-owner"}))
	s.Require().False(res.OK)

	// Kick sends the target back to the lobby; it may rejoin
	res = owner.Ack(owner.Send("room:kick", map[string]any{"nickname": "troll-e2e"}))
	s.Require().True(res.OK, res.Error)
	troll.Event("room:kicked")
	troll.Drain()
	res = troll.Ack(troll.Send("room:join", map[string]any{"room": "strict-e2e"}))
	s.Require().True(res.OK, res.Error)
	troll.Drain()

	// Ban evicts and bars rejoining for good
	res = owner.Ack(owner.Send("room:ban", map[string]any{"nickname": "troll-e2e"}))
	s.Require().True(res.OK, res.Error)
	troll.Event("room:banned")
	troll.Drain()
	res = troll.Ack(troll.Send("room:join", map[string]any{"room": "strict-e2e"}))
	s.Require().False(res.OK)
	s.Require().Contains(res.Error, "banned")
}

func (s *ChatScenarioSuite) TestTypingRelay() {
	s.Header(s.T(), "Typing relay")
	t := s.T()

	a := s.Login(t, "typer-a")
	b := s.Login(t, "typer-b")
	res := a.Ack(a.Send("room:create", map[string]any{"room": "typing-e2e"}))
	s.Require().True(res.OK, res.Error)
	res = b.Ack(b.Send("room:join", map[string]any{"room": "typing-e2e"}))
	s.Require().True(res.OK, res.Error)
	a.Drain()
	b.Drain()

	// Typing reaches the other member but never echoes back
	a.Send("typing", map[string]any{"isTyping": true})
	typing := b.Event("typing")
	s.Require().Contains(string(typing.Payload), "typer-a")
	a.NoEvent("typing", 300*time.Millisecond)
}

func (s *ChatScenarioSuite) TestHistorySearch() {
	s.Header(s.T(), "History search")
	t := s.T()

	a := s.Login(t, "search-a")
	res := a.Ack(a.Send("room:create", map[string]any{"room": "search-e2e"}))
	s.Require().True(res.OK, res.Error)

	res = a.Ack(a.Send("chat:send", map[string]any{"text": "the quick brown fox"}))
	s.Require().True(res.OK, res.Error)
	res = a.Ack(a.Send("chat:send", map[string]any{"text": "an unrelated line"}))
	s.Require().True(res.OK, res.Error)

	res = a.Ack(a.Send("chat:search", map[string]any{"query": "fox"}))
	s.Require().True(res.OK, res.Error)
	s.Require().Len(res.Matches, 1)
	s.Require().Equal("the quick brown fox", res.Matches[0].Text)
}
