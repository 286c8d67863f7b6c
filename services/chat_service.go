// Package services exposes the narrow surface the transport layer is
// allowed to touch. The gateway never reaches into the coordinator or the
// session registry directly.
package services

import (
	"log/slog"

	"chathub/contract"
	"chathub/domain"
)

type IChatService interface {
	// Dispatch forwards an inbound command to the coordinator.
	Dispatch(cmd domain.Command)
	// Subscribe attaches an event sink to a live connection.
	Subscribe(conn domain.ConnID, sink contract.EventSink)
	// Unsubscribe detaches the sink and tells the coordinator the
	// connection is gone.
	Unsubscribe(conn domain.ConnID)
}

type ChatService struct {
	log         *slog.Logger
	coordinator contract.ICoordinator
	registry    contract.ISessionRegistry
}

func NewChatService(log *slog.Logger, coordinator contract.ICoordinator,
	registry contract.ISessionRegistry) *ChatService {
	return &ChatService{
		log:         log,
		coordinator: coordinator,
		registry:    registry,
	}
}

func (s *ChatService) Dispatch(cmd domain.Command) {
	s.coordinator.Dispatch(cmd)
}

func (s *ChatService) Subscribe(conn domain.ConnID, sink contract.EventSink) {
	s.registry.Subscribe(conn, sink)
	s.log.Debug("Session subscribed", "conn", conn)
}

// Unsubscribe is ordered so the sink stops receiving events before room
// state is mutated, otherwise the fanout could race a closing connection.
func (s *ChatService) Unsubscribe(conn domain.ConnID) {
	s.registry.Unsubscribe(conn)
	s.coordinator.Dispatch(domain.DisconnectCommand{ConnID: conn})
	s.log.Debug("Session unsubscribed", "conn", conn)
}
