package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chathub/directory"
	"chathub/domain"
	"chathub/domain/event"
	"chathub/gateway"
	"chathub/internal"
	"chathub/moderation"
	"chathub/observability"
	"chathub/presence"
	"chathub/repositories"
	"chathub/rooms"
	"chathub/router"
	"chathub/runtime"
	"chathub/runtime/workers"
	"chathub/search"
	"chathub/services"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

const readTimeout = 3 * time.Second

// BaseWsSuite boots a full in-process chat server (coordinator, fanout,
// gateway) behind httptest, unless E2E_SERVER_URL points at an external
// one.
type BaseWsSuite struct {
	suite.Suite
	Config Config

	url    string
	server *httptest.Server
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *BaseWsSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	if s.Config.ServerURL != "" {
		s.url = s.Config.ServerURL
		return
	}

	log := internal.GetLoggerFromLevel(slog.LevelWarn)

	db, err := repositories.OpenInMemory()
	s.Require().NoError(err)

	index, err := search.NewInMemory(log)
	s.Require().NoError(err)

	loader := runtime.NewCensoredLoader(runtime.CensoredFS)
	data, err := loader.LoadAll("censored")
	s.Require().NoError(err)
	censor, err := moderation.NewCensor(data.Words, '*', log)
	s.Require().NoError(err)

	stats := &observability.Stats{}
	dir := directory.New()
	history := repositories.NewHistoryRepository(db, log, s.Config.HistoryLimit)
	registry := rooms.NewRegistry(dir, history, log)
	controller := moderation.NewController(dir, registry, log)
	rt := router.NewRouter(dir, registry, censor, log)
	publisher := presence.NewPublisher(registry)

	envelopes := make(chan event.Envelope, 256)
	coordinator := runtime.NewCoordinator(log, dir, registry, controller, rt,
		publisher, index, stats, 256, envelopes)

	sessions := runtime.NewRegistry()
	fanout := workers.NewEventFanout(log, sessions, envelopes, time.Second, stats)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	sup := workers.NewSupervisor(log)
	sup.Add(coordinator, fanout)
	go func() {
		defer close(s.done)
		sup.Run(ctx)
	}()

	service := services.NewChatService(log, coordinator, sessions)
	handler := gateway.NewHandler(log, service, 64, time.Second)
	s.server = httptest.NewServer(handler.Router())
	s.url = "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws"
}

func (s *BaseWsSuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

// Header prints a colorized scenario banner, matching the log style of the
// other suites.
func (s *BaseWsSuite) Header(t *testing.T, name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)
}

// Dial opens a fresh websocket client against the suite's server.
func (s *BaseWsSuite) Dial(t *testing.T) *wsClient {
	conn, _, err := websocket.DefaultDialer.Dial(s.url, nil)
	s.Require().NoError(err)
	t.Cleanup(func() { _ = conn.Close() })
	return &wsClient{t: t, conn: conn}
}

// Login dials and logs a nickname in, requiring success.
func (s *BaseWsSuite) Login(t *testing.T, nickname string) *wsClient {
	c := s.Dial(t)
	res := c.Ack(c.Send("login", map[string]any{"nickname": nickname}))
	s.Require().True(res.OK, "login of %s failed: %s", nickname, res.Error)
	return c
}

type frame struct {
	Event   string          `json:"event"`
	Seq     uint64          `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// wsClient is a test-side connection. Reads buffer out-of-band events so
// acks and broadcasts can interleave freely.
type wsClient struct {
	t       *testing.T
	conn    *websocket.Conn
	seq     uint64
	pending []frame
}

func (c *wsClient) Send(event string, payload any) uint64 {
	data, err := json.Marshal(payload)
	if err != nil {
		c.t.Fatalf("payload encoding failed: %v", err)
	}
	c.seq++
	if err := c.conn.WriteJSON(frame{Event: event, Seq: c.seq, Payload: data}); err != nil {
		c.t.Fatalf("frame write failed: %v", err)
	}
	return c.seq
}

// Ack reads until the acknowledgment for seq arrives, buffering everything
// else.
func (c *wsClient) Ack(seq uint64) domain.Result {
	deadline := time.Now().Add(readTimeout)
	for time.Now().Before(deadline) {
		f := c.read(deadline)
		if f.Event == "ack" && f.Seq == seq {
			var res domain.Result
			if err := json.Unmarshal(f.Payload, &res); err != nil {
				c.t.Fatalf("ack decoding failed: %v", err)
			}
			return res
		}
		c.pending = append(c.pending, f)
	}
	c.t.Fatalf("no ack for seq %d within %v", seq, readTimeout)
	return domain.Result{}
}

// Event returns the next frame carrying the given event name, consuming
// buffered frames first.
func (c *wsClient) Event(name string) frame {
	for i, f := range c.pending {
		if f.Event == name {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return f
		}
	}
	deadline := time.Now().Add(readTimeout)
	for time.Now().Before(deadline) {
		f := c.read(deadline)
		if f.Event == name {
			return f
		}
		c.pending = append(c.pending, f)
	}
	c.t.Fatalf("no %q event within %v", name, readTimeout)
	return frame{}
}

// NoEvent asserts that no frame with the given name shows up for a short
// window.
func (c *wsClient) NoEvent(name string, window time.Duration) {
	for _, f := range c.pending {
		if f.Event == name {
			c.t.Fatalf("unexpected %q event: %s", name, f.Payload)
		}
	}
	deadline := time.Now().Add(window)
	for time.Now().Before(deadline) {
		_ = c.conn.SetReadDeadline(deadline)
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return // timeout means silence, which is the success case
		}
		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.t.Fatalf("malformed frame: %v", err)
		}
		if f.Event == name {
			c.t.Fatalf("unexpected %q event: %s", name, f.Payload)
		}
		c.pending = append(c.pending, f)
	}
}

// Drain forgets all buffered frames.
func (c *wsClient) Drain() { c.pending = nil }

func (c *wsClient) read(deadline time.Time) frame {
	_ = c.conn.SetReadDeadline(deadline)
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		c.t.Fatalf("frame read failed: %v", err)
	}
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		c.t.Fatalf("malformed frame: %v", err)
	}
	return f
}

// DecodeMessage unpacks a chat frame payload.
func DecodeMessage(t *testing.T, f frame) domain.Message {
	var m domain.Message
	if err := json.Unmarshal(f.Payload, &m); err != nil {
		t.Fatalf("message decoding failed: %v", err)
	}
	return m
}

// DecodeDeleted parses the room and uuid out of a chat:deleted payload.
func DecodeDeleted(t *testing.T, f frame) (string, uuid.UUID) {
	var p struct {
		Room      string    `json:"room"`
		MessageID uuid.UUID `json:"msgId"`
	}
	if err := json.Unmarshal(f.Payload, &p); err != nil {
		t.Fatalf("deleted decoding failed: %v", err)
	}
	return p.Room, p.MessageID
}
