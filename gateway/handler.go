package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"chathub/domain"
	"chathub/services"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Handler terminates websocket connections. Each connection gets a fresh
// ConnID, a buffered sink, one read loop and one write loop; everything
// else goes through the chat service.
type Handler struct {
	log          *slog.Logger
	service      services.IChatService
	upgrader     websocket.Upgrader
	sinkBuffer   int
	writeTimeout time.Duration
}

func NewHandler(log *slog.Logger, service services.IChatService,
	sinkBuffer int, writeTimeout time.Duration) *Handler {
	return &Handler{
		log:     log,
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		sinkBuffer:   sinkBuffer,
		writeTimeout: writeTimeout,
	}
}

func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", h.handleWS)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	return r
}

func (h *Handler) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	connID := domain.ConnID(uuid.NewString())
	sink := newConnSink(h.log, h.sinkBuffer)
	h.service.Subscribe(connID, sink)
	h.log.Info("Connection opened", "conn", connID, "remote", r.RemoteAddr)

	go h.writeLoop(conn, sink)
	h.readLoop(conn, connID, sink)

	sink.Close()
	h.service.Unsubscribe(connID)
	_ = conn.Close()
	h.log.Info("Connection closed", "conn", connID)
}

// writeLoop is the sole websocket writer for its connection.
func (h *Handler) writeLoop(conn *websocket.Conn, sink *connSink) {
	for {
		select {
		case data := <-sink.out:
			_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				sink.Close()
				return
			}
		case <-sink.closed:
			_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (h *Handler) readLoop(conn *websocket.Conn, connID domain.ConnID, sink *connSink) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Warn("Connection dropped", "conn", connID, "error", err)
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.log.Warn("Malformed frame ignored", "conn", connID, "error", err)
			continue
		}

		if cmd := h.decode(connID, frame, sink); cmd != nil {
			h.service.Dispatch(cmd)
		}
	}
}

// decode maps one inbound frame to a command. The returned ack closure
// runs on the coordinator goroutine, so it only queues onto the sink.
func (h *Handler) decode(connID domain.ConnID, frame Frame, sink *connSink) domain.Command {
	ack := func(result domain.Result) {
		data, err := encodeAck(frame.Seq, result)
		if err != nil {
			h.log.Error("Ack encoding failed", "error", err)
			return
		}
		sink.Ack(frame.Seq, data)
	}

	fail := func(reason string) domain.Command {
		ack(domain.Fail(reason))
		return nil
	}

	switch frame.Event {
	case evLogin:
		var p loginPayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return fail("malformed payload")
		}
		return domain.LoginCommand{ConnID: connID, Nickname: p.Nickname, Ack: ack}

	case evRoomCreate:
		var p createRoomPayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return fail("malformed payload")
		}
		return domain.CreateRoomCommand{ConnID: connID, Name: p.Room,
			Private: p.Private, Password: p.Password, Ack: ack}

	case evRoomJoin:
		var p joinRoomPayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return fail("malformed payload")
		}
		return domain.JoinRoomCommand{ConnID: connID, Name: p.Room, Password: p.Password, Ack: ack}

	case evRoomLeave:
		return domain.LeaveRoomCommand{ConnID: connID, Ack: ack}

	case evRoomKick:
		var p targetPayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return fail("malformed payload")
		}
		return domain.KickCommand{ConnID: connID, TargetNickname: p.Nickname, Ack: ack}

	case evRoomBan:
		var p targetPayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return fail("malformed payload")
		}
		return domain.BanCommand{ConnID: connID, TargetNickname: p.Nickname, Ack: ack}

	case evChatSend:
		var p sendPayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return fail("malformed payload")
		}
		return domain.SendMessageCommand{ConnID: connID, Text: p.Text,
			To: p.To, ReplyTo: p.ReplyTo, Ack: ack}

	case evChatDelete:
		var p deletePayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return fail("malformed payload")
		}
		return domain.DeleteMessageCommand{ConnID: connID, MessageID: p.MessageID, Ack: ack}

	case evChatSearch:
		var p searchPayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return fail("malformed payload")
		}
		return domain.SearchCommand{ConnID: connID, Query: p.Query, Ack: ack}

	case evTyping:
		var p typingPayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return nil
		}
		return domain.TypingCommand{ConnID: connID, IsTyping: p.IsTyping}

	default:
		h.log.Warn("Unknown event ignored", "conn", connID, "event", frame.Event)
		return nil
	}
}
