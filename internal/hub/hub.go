// Package hub keeps one realtime room per session.
package hub

import (
	"context"

	"github.com/google/uuid"

	"github.com/prodraft/draft-series-backend/internal/room"
)

type HubMsg interface{ isHubMsg() }

type EnsureRoom struct {
	SessionID uuid.UUID
	Reply     chan *room.Room
}

type GetRoom struct {
	SessionID uuid.UUID
	Reply     chan *room.Room
}

type RemoveRoom struct{ SessionID uuid.UUID }

type ShutdownHub struct{}

func (EnsureRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

type Hub struct {
	inbox  chan HubMsg
	rooms  map[uuid.UUID]*room.Room
	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[uuid.UUID]*room.Room),
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case EnsureRoom:
				rm := h.rooms[msg.SessionID]
				if rm == nil {
					rm = room.New(h.ctx)
					h.rooms[msg.SessionID] = rm
				}
				msg.Reply <- rm

			case GetRoom:
				msg.Reply <- h.rooms[msg.SessionID] // may be nil

			case RemoveRoom:
				if rm := h.rooms[msg.SessionID]; rm != nil {
					rm.Inbox() <- room.Shutdown{}
					delete(h.rooms, msg.SessionID)
				}

			case ShutdownHub:
				for _, rm := range h.rooms {
					rm.Inbox() <- room.Shutdown{}
				}
				clear(h.rooms)
				h.cancel()
			}
		}
	}
}

// Ensure returns the session's room, creating it if needed.
func (h *Hub) Ensure(sessionID uuid.UUID) *room.Room {
	reply := make(chan *room.Room, 1)
	h.inbox <- EnsureRoom{SessionID: sessionID, Reply: reply}
	return <-reply
}

// Publish delivers a signal to the session's room, if anyone is listening.
func (h *Hub) Publish(sessionID uuid.UUID, sig room.Signal) {
	reply := make(chan *room.Room, 1)
	h.inbox <- GetRoom{SessionID: sessionID, Reply: reply}
	if rm := <-reply; rm != nil {
		rm.Inbox() <- room.Publish{Signal: sig}
	}
}

// Notifier adapts the hub to the service layer's notification interface.
type Notifier struct {
	Hub *Hub
}

func (n Notifier) Changed(sessionID uuid.UUID, topic string) {
	n.Hub.Publish(sessionID, room.Signal{Topic: topic})
}
