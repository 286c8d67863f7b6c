// Messages are immutable once routed except for the Deleted tombstone.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReplyRef carries a copy of the referenced message, resolved at send time
// from the room's history. The full text is stored; truncation for display
// is a presentation concern.
type ReplyRef struct {
	ID   uuid.UUID `json:"id"`
	Text string    `json:"text"`
	From string    `json:"from"`
}

// Message is one routed chat message. To is set only for private messages,
// which are delivered to exactly the sender and the target and never enter
// room history.
type Message struct {
	ID      uuid.UUID `json:"id"`
	Room    string    `json:"room"`
	From    string    `json:"from"`
	To      string    `json:"to,omitempty"`
	Text    string    `json:"text"`
	At      time.Time `json:"ts"`
	Reply   *ReplyRef `json:"replyTo,omitempty"`
	Deleted bool      `json:"deleted,omitempty"`
}
