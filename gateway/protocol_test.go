package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"chathub/domain"
	"chathub/domain/event"
	"chathub/internal"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func rawFrame(t *testing.T, eventName string, seq uint64, payload any) Frame {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return Frame{Event: eventName, Seq: seq, Payload: data}
}

func TestDecode_CommandMapping(t *testing.T) {
	req := require.New(t)
	log := internal.GetLoggerFromLevel(slog.LevelWarn)
	h := NewHandler(log, nil, 4, time.Second)
	sink := newConnSink(log, 4)
	replyTo := uuid.New()

	tests := []struct {
		name    string
		frame   Frame
		inspect func(cmd domain.Command)
	}{
		{
			name:  "login",
			frame: rawFrame(t, "login", 1, map[string]any{"nickname": "alice"}),
			inspect: func(cmd domain.Command) {
				login := cmd.(domain.LoginCommand)
				req.Equal("alice", login.Nickname)
				req.NotNil(login.Ack)
			},
		},
		{
			name:  "room create with password",
			frame: rawFrame(t, "room:create", 2, map[string]any{"room": "vault", "private": true, "password": "pw"}),
			inspect: func(cmd domain.Command) {
				create := cmd.(domain.CreateRoomCommand)
				req.Equal("vault", create.Name)
				req.True(create.Private)
				req.Equal("pw", create.Password)
			},
		},
		{
			name:  "join",
			frame: rawFrame(t, "room:join", 3, map[string]any{"room": "vault", "password": "pw"}),
			inspect: func(cmd domain.Command) {
				join := cmd.(domain.JoinRoomCommand)
				req.Equal("vault", join.Name)
			},
		},
		{
			name:    "leave",
			frame:   rawFrame(t, "room:leave", 4, map[string]any{}),
			inspect: func(cmd domain.Command) { _ = cmd.(domain.LeaveRoomCommand) },
		},
		{
			name:  "kick",
			frame: rawFrame(t, "room:kick", 5, map[string]any{"nickname": "bob"}),
			inspect: func(cmd domain.Command) {
				req.Equal("bob", cmd.(domain.KickCommand).TargetNickname)
			},
		},
		{
			name:  "ban",
			frame: rawFrame(t, "room:ban", 6, map[string]any{"nickname": "bob"}),
			inspect: func(cmd domain.Command) {
				req.Equal("bob", cmd.(domain.BanCommand).TargetNickname)
			},
		},
		{
			name:  "send with reply",
			frame: rawFrame(t, "chat:send", 7, map[string]any{"text": "hi", "to": "bob", "replyTo": replyTo}),
			inspect: func(cmd domain.Command) {
				send := cmd.(domain.SendMessageCommand)
				req.Equal("hi", send.Text)
				req.Equal("bob", send.To)
				req.NotNil(send.ReplyTo)
				req.Equal(replyTo, *send.ReplyTo)
			},
		},
		{
			name:  "delete",
			frame: rawFrame(t, "chat:delete", 8, map[string]any{"msgId": replyTo}),
			inspect: func(cmd domain.Command) {
				req.Equal(replyTo, cmd.(domain.DeleteMessageCommand).MessageID)
			},
		},
		{
			name:  "search",
			frame: rawFrame(t, "chat:search", 9, map[string]any{"query": "fox"}),
			inspect: func(cmd domain.Command) {
				req.Equal("fox", cmd.(domain.SearchCommand).Query)
			},
		},
		{
			name:  "typing",
			frame: rawFrame(t, "typing", 0, map[string]any{"isTyping": true}),
			inspect: func(cmd domain.Command) {
				req.True(cmd.(domain.TypingCommand).IsTyping)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := h.decode("conn-1", tt.frame, sink)
			req.NotNil(cmd)
			req.Equal(domain.ConnID("conn-1"), cmd.Conn())
			tt.inspect(cmd)
		})
	}
}

func TestDecode_MalformedPayloadAcksFailure(t *testing.T) {
	req := require.New(t)
	log := internal.GetLoggerFromLevel(slog.LevelWarn)
	h := NewHandler(log, nil, 4, time.Second)
	sink := newConnSink(log, 4)

	frame := Frame{Event: "login", Seq: 9, Payload: json.RawMessage(`{"nickname":`)}
	cmd := h.decode("conn-1", frame, sink)
	req.Nil(cmd)

	// The failure ack is already queued on the sink
	select {
	case data := <-sink.out:
		var out Frame
		req.NoError(json.Unmarshal(data, &out))
		req.Equal("ack", out.Event)
		req.Equal(uint64(9), out.Seq)
		var res domain.Result
		req.NoError(json.Unmarshal(out.Payload, &res))
		req.False(res.OK)
	default:
		req.Fail("no ack frame queued")
	}
}

func TestDecode_UnknownEventIgnored(t *testing.T) {
	req := require.New(t)
	log := internal.GetLoggerFromLevel(slog.LevelWarn)
	h := NewHandler(log, nil, 4, time.Second)
	sink := newConnSink(log, 4)

	req.Nil(h.decode("conn-1", Frame{Event: "bogus"}, sink))
	req.Empty(sink.out)
}

func TestConnSink_ConsumeAndClose(t *testing.T) {
	req := require.New(t)
	log := internal.GetLoggerFromLevel(slog.LevelWarn)
	sink := newConnSink(log, 1)

	// A consumed event arrives as an encoded frame
	err := sink.Consume(context.Background(), event.Kicked{Room: "general"})
	req.NoError(err)
	var f Frame
	req.NoError(json.Unmarshal(<-sink.out, &f))
	req.Equal("room:kicked", f.Event)

	// A full buffer blocks until the delivery context gives up
	req.NoError(sink.Consume(context.Background(), event.Kicked{Room: "general"}))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = sink.Consume(ctx, event.Kicked{Room: "general"})
	req.ErrorIs(err, context.DeadlineExceeded)

	// After close, consumption reports the sink gone
	sink.Close()
	sink.Close() // idempotent
	err = sink.Consume(context.Background(), event.Kicked{Room: "general"})
	req.ErrorIs(err, errSinkClosed)
}
