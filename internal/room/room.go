// Package room fans realtime signals out to the clients watching one draft
// session. Signals are either coarse "refetch this topic" pings for
// authoritative state or ephemeral hover previews; a room never carries
// state deltas.
package room

import (
	"context"

	"github.com/prodraft/draft-series-backend/internal/domain"
)

// Reserved topics handled by the room itself; everything else passes
// through for clients to refetch.
const (
	TopicHover = "hover"
	TopicSync  = "sync"
)

type Signal struct {
	Topic      string      `json:"topic"`
	Side       domain.Side `json:"side,omitempty"`
	ChampionID int         `json:"championId,omitempty"`
}

type Msg interface{ isRoomMsg() }

type Join struct {
	ClientID string
	Outbox   chan Signal
}

type Leave struct{ ClientID string }

type Publish struct{ Signal Signal }

type Shutdown struct{}

type GetState struct {
	Reply chan View
}

func (Join) isRoomMsg()     {}
func (Leave) isRoomMsg()    {}
func (Publish) isRoomMsg()  {}
func (Shutdown) isRoomMsg() {}
func (GetState) isRoomMsg() {}

// View reflects room internals without data races; test-only.
type View struct {
	NumClients int
	Hovers     map[domain.Side]int
}

type Room struct {
	inbox   chan Msg
	clients map[string]chan Signal
	hovers  map[domain.Side]int
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(parent context.Context) *Room {
	ctx, cancel := context.WithCancel(parent)
	r := &Room{
		inbox:   make(chan Msg, 64),
		clients: make(map[string]chan Signal),
		hovers:  make(map[domain.Side]int),
		ctx:     ctx,
		cancel:  cancel,
	}
	go r.loop()
	return r
}

func (r *Room) Inbox() chan<- Msg { return r.inbox }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.clients[msg.ClientID] = msg.Outbox
				// the new client refetches everything, then catches up
				// on live hovers
				msg.Outbox <- Signal{Topic: TopicSync}
				for side, champ := range r.hovers {
					msg.Outbox <- Signal{Topic: TopicHover, Side: side, ChampionID: champ}
				}

			case Leave:
				delete(r.clients, msg.ClientID)

			case Publish:
				if msg.Signal.Topic == TopicHover {
					if msg.Signal.ChampionID == 0 {
						delete(r.hovers, msg.Signal.Side)
					} else {
						r.hovers[msg.Signal.Side] = msg.Signal.ChampionID
					}
				}
				r.broadcast(msg.Signal)

			case GetState:
				hovers := make(map[domain.Side]int, len(r.hovers))
				for k, v := range r.hovers {
					hovers[k] = v
				}
				msg.Reply <- View{NumClients: len(r.clients), Hovers: hovers}

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) shutdown() {
	for id, ch := range r.clients {
		close(ch)
		delete(r.clients, id)
	}
	r.cancel()
}

func (r *Room) broadcast(sig Signal) {
	for id, ch := range r.clients {
		select {
		case ch <- sig:
		default:
			// slow or stuck client, drop it
			close(ch)
			delete(r.clients, id)
		}
	}
}
