// Command client is a line-oriented terminal client for the chat server.
// It renders server events as they arrive and turns slash commands into
// frames. Typing indicators from other users are aggregated locally into a
// single status line.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"chathub/domain"
	"chathub/internal"

	"github.com/Netflix/go-env"
	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/olekukonko/tablewriter"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const typingTTL = 4 * time.Second

type Config struct {
	ServerURL string `env:"CHAT_SERVER_URL,default=ws://localhost:8080/ws"`
	Nickname  string `env:"CHAT_NICKNAME"`
	LogLevel  string `env:"LOG_LEVEL,default=WARN"`
}

type frame struct {
	Event   string          `json:"event"`
	Seq     uint64          `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := internal.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to %s: %w", config.ServerURL, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = conn.Close()
	}()

	c := &client{conn: conn, typers: make(map[string]time.Time)}
	color.Green.Printf(">>> Connected to %s (Ctrl+C to quit, /help for commands)\n", config.ServerURL)

	go c.receive(ctx)

	if config.Nickname != "" {
		c.send(frame{Event: "login"}, map[string]any{"nickname": config.Nickname})
	} else {
		color.Yellow.Println("Pick a nickname with: /login <nickname>")
	}

	c.inputLoop(ctx)
	return exitOK, nil
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
	seq  uint64

	typersMu sync.Mutex
	typers   map[string]time.Time
}

// send marshals the payload and writes the frame. The mutex keeps a single
// websocket writer even though acks and input interleave.
func (c *client) send(f frame, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		color.Red.Println("cannot encode payload:", err)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	f.Seq = c.seq
	f.Payload = data
	if err := c.conn.WriteJSON(f); err != nil {
		color.Red.Println("send failed:", err)
	}
}

func (c *client) inputLoop(ctx context.Context) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			c.send(frame{Event: "chat:send"}, map[string]any{"text": line})
			continue
		}
		if quit := c.command(line); quit {
			return
		}
	}
}

// command interprets one slash command. Returns true on /quit.
func (c *client) command(line string) bool {
	parts := strings.SplitN(line, " ", 3)
	switch parts[0] {
	case "/help":
		fmt.Println(`/login <nick>             pick a nickname
/create <room> [password] create (and join) a room
/join <room> [password]   join a room
/leave                    go back to the lobby
/pm <nick> <text>         private message to a room member
/reply <msgId> <text>     reply to a message
/delete <msgId>           delete one of your messages
/kick <nick>              evict a user (owner only)
/ban <nick>               evict and ban a user (owner only)
/search <query>           search the room history
/quit                     exit`)
	case "/login":
		if len(parts) < 2 {
			color.Red.Println("usage: /login <nickname>")
			return false
		}
		c.send(frame{Event: "login"}, map[string]any{"nickname": parts[1]})
	case "/create":
		if len(parts) < 2 {
			color.Red.Println("usage: /create <room> [password]")
			return false
		}
		payload := map[string]any{"room": parts[1]}
		if len(parts) == 3 {
			payload["private"] = true
			payload["password"] = parts[2]
		}
		c.send(frame{Event: "room:create"}, payload)
	case "/join":
		if len(parts) < 2 {
			color.Red.Println("usage: /join <room> [password]")
			return false
		}
		payload := map[string]any{"room": parts[1]}
		if len(parts) == 3 {
			payload["password"] = parts[2]
		}
		c.send(frame{Event: "room:join"}, payload)
	case "/leave":
		c.send(frame{Event: "room:leave"}, map[string]any{})
	case "/pm":
		if len(parts) < 3 {
			color.Red.Println("usage: /pm <nickname> <text>")
			return false
		}
		c.send(frame{Event: "chat:send"}, map[string]any{"to": parts[1], "text": parts[2]})
	case "/reply":
		if len(parts) < 3 {
			color.Red.Println("usage: /reply <msgId> <text>")
			return false
		}
		id, err := uuid.Parse(parts[1])
		if err != nil {
			color.Red.Println("invalid message id")
			return false
		}
		c.send(frame{Event: "chat:send"}, map[string]any{"replyTo": id, "text": parts[2]})
	case "/delete":
		if len(parts) < 2 {
			color.Red.Println("usage: /delete <msgId>")
			return false
		}
		id, err := uuid.Parse(parts[1])
		if err != nil {
			color.Red.Println("invalid message id")
			return false
		}
		c.send(frame{Event: "chat:delete"}, map[string]any{"msgId": id})
	case "/kick", "/ban":
		if len(parts) < 2 {
			color.Red.Printf("usage: %s <nickname>\n", parts[0])
			return false
		}
		c.send(frame{Event: "room" + strings.Replace(parts[0], "/", ":", 1)}, map[string]any{"nickname": parts[1]})
	case "/search":
		if len(parts) < 2 {
			color.Red.Println("usage: /search <query>")
			return false
		}
		c.send(frame{Event: "chat:search"}, map[string]any{"query": strings.Join(parts[1:], " ")})
	case "/quit":
		return true
	default:
		color.Red.Println("unknown command, try /help")
	}
	return false
}

func (c *client) receive(ctx context.Context) {
	for {
		var f frame
		if err := c.conn.ReadJSON(&f); err != nil {
			if ctx.Err() == nil {
				color.Red.Println("connection lost:", err)
			}
			os.Exit(exitRuntime)
		}
		c.render(f)
	}
}

func (c *client) render(f frame) {
	switch f.Event {
	case "ack":
		var res domain.Result
		_ = json.Unmarshal(f.Payload, &res)
		if !res.OK {
			color.Red.Println("error:", res.Error)
			return
		}
		if res.Room != "" {
			color.Green.Printf("ok: room %s (owner %s)\n", res.Room, res.Owner)
		}
		for _, m := range res.Matches {
			color.Gray.Printf("[found] %s <%s> %s (%s)\n",
				m.At.Format("15:04"), m.From, m.Text, m.ID)
		}

	case "lobby:rooms":
		var p struct {
			Rooms []struct {
				Name      string `json:"name"`
				IsPrivate bool   `json:"isPrivate"`
				Count     int    `json:"count"`
			} `json:"rooms"`
		}
		_ = json.Unmarshal(f.Payload, &p)
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Room", "Private", "Users"})
		table.SetAutoWrapText(false)
		table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		table.SetBorder(false)
		for _, r := range p.Rooms {
			private := ""
			if r.IsPrivate {
				private = "yes"
			}
			table.Append([]string{r.Name, private, fmt.Sprint(r.Count)})
		}
		table.Render()

	case "room:users":
		var p struct {
			Room    string   `json:"room"`
			Members []string `json:"members"`
		}
		_ = json.Unmarshal(f.Payload, &p)
		color.Cyan.Printf("[%s] here: %s\n", p.Room, strings.Join(p.Members, ", "))

	case "chat:public", "chat:private":
		var m domain.Message
		_ = json.Unmarshal(f.Payload, &m)
		c.clearTyper(m.From)
		prefix := ""
		if f.Event == "chat:private" {
			prefix = color.Magenta.Render("(private) ")
		}
		reply := ""
		if m.Reply != nil {
			reply = color.Gray.Sprintf("> %s: %q ", m.Reply.From, m.Reply.Text)
		}
		fmt.Printf("%s%s %s<%s> %s\n", prefix, m.At.Format("15:04"),
			reply, color.Yellow.Render(m.From), m.Text)

	case "chat:deleted":
		var p struct {
			Room      string    `json:"room"`
			MessageID uuid.UUID `json:"msgId"`
		}
		_ = json.Unmarshal(f.Payload, &p)
		color.Gray.Printf("[%s] message %s was deleted\n", p.Room, p.MessageID)

	case "chat:history":
		var p struct {
			Room     string           `json:"room"`
			Messages []domain.Message `json:"messages"`
		}
		_ = json.Unmarshal(f.Payload, &p)
		color.Cyan.Printf("--- last %d messages in %s ---\n", len(p.Messages), p.Room)
		for _, m := range p.Messages {
			if m.Deleted {
				color.Gray.Printf("%s <%s> [deleted]\n", m.At.Format("15:04"), m.From)
				continue
			}
			fmt.Printf("%s <%s> %s\n", m.At.Format("15:04"), m.From, m.Text)
		}

	case "room:kicked":
		var p struct {
			Room string `json:"room"`
		}
		_ = json.Unmarshal(f.Payload, &p)
		color.Red.Printf("you were kicked from %s, back to the lobby\n", p.Room)

	case "room:banned":
		var p struct {
			Room string `json:"room"`
		}
		_ = json.Unmarshal(f.Payload, &p)
		color.Red.Printf("you were banned from %s, back to the lobby\n", p.Room)

	case "typing":
		var p struct {
			Nickname string `json:"nickname"`
			IsTyping bool   `json:"isTyping"`
		}
		_ = json.Unmarshal(f.Payload, &p)
		if p.IsTyping {
			c.setTyper(p.Nickname)
		} else {
			c.clearTyper(p.Nickname)
		}
		c.renderTypers()
	}
}

// setTyper records a typing user; entries expire after typingTTL so a
// vanished stop-typing event cannot freeze the indicator.
func (c *client) setTyper(nickname string) {
	c.typersMu.Lock()
	defer c.typersMu.Unlock()
	c.typers[nickname] = time.Now().Add(typingTTL)
}

func (c *client) clearTyper(nickname string) {
	c.typersMu.Lock()
	defer c.typersMu.Unlock()
	delete(c.typers, nickname)
}

// renderTypers collapses the live typer set into one status line.
func (c *client) renderTypers() {
	c.typersMu.Lock()
	now := time.Now()
	var names []string
	for name, expiry := range c.typers {
		if expiry.Before(now) {
			delete(c.typers, name)
			continue
		}
		names = append(names, name)
	}
	c.typersMu.Unlock()

	switch {
	case len(names) == 0:
	case len(names) == 1:
		color.Gray.Printf("%s is typing...\n", names[0])
	case len(names) == 2:
		color.Gray.Printf("%s and %s are typing...\n", names[0], names[1])
	default:
		color.Gray.Println("several people are typing...")
	}
}
