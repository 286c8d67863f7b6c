// Package observability aggregates runtime counters for periodic
// self-reporting.
package observability

import "sync/atomic"

// Stats holds the chat-level counters the monitoring worker reports.
// All counters are atomic; increments come from the coordinator and the
// fanout worker.
type Stats struct {
	Logins          uint64
	Disconnects     uint64
	MessagesRouted  uint64
	PrivateMessages uint64
	Broadcasts      uint64
	DroppedEvents   uint64
}

func (s *Stats) IncrLogins()          { atomic.AddUint64(&s.Logins, 1) }
func (s *Stats) IncrDisconnects()     { atomic.AddUint64(&s.Disconnects, 1) }
func (s *Stats) IncrMessagesRouted()  { atomic.AddUint64(&s.MessagesRouted, 1) }
func (s *Stats) IncrPrivateMessages() { atomic.AddUint64(&s.PrivateMessages, 1) }
func (s *Stats) IncrBroadcasts()      { atomic.AddUint64(&s.Broadcasts, 1) }
func (s *Stats) IncrDroppedEvents()   { atomic.AddUint64(&s.DroppedEvents, 1) }

// Snapshot reads every counter at once for reporting.
type Snapshot struct {
	Logins          uint64
	Disconnects     uint64
	MessagesRouted  uint64
	PrivateMessages uint64
	Broadcasts      uint64
	DroppedEvents   uint64
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Logins:          atomic.LoadUint64(&s.Logins),
		Disconnects:     atomic.LoadUint64(&s.Disconnects),
		MessagesRouted:  atomic.LoadUint64(&s.MessagesRouted),
		PrivateMessages: atomic.LoadUint64(&s.PrivateMessages),
		Broadcasts:      atomic.LoadUint64(&s.Broadcasts),
		DroppedEvents:   atomic.LoadUint64(&s.DroppedEvents),
	}
}
