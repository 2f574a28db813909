package room

import (
	"context"
	"testing"
	"time"

	"github.com/prodraft/draft-series-backend/internal/domain"
)

// helper: receive one signal with a timeout so tests never hang
func recvSignal(t *testing.T, ch <-chan Signal, within time.Duration) Signal {
	t.Helper()
	select {
	case sig, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return sig
	case <-time.After(within):
		t.Fatalf("timed out waiting for signal")
		return Signal{} // unreachable
	}
}

func recvNoSignal(t *testing.T, ch <-chan Signal, within time.Duration) {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			return // closed is fine, nothing more can arrive
		}
		t.Fatalf("expected no signal within %v, but got: %+v", within, s)
	case <-time.After(within):
	}
}

func recvView(t *testing.T, ch <-chan View, within time.Duration) View {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(within):
		t.Fatalf("timed out waiting for view")
		return View{} // unreachable
	}
}

func TestRoom_JoinSendsSyncThenBroadcasts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := New(ctx)

	clientOut := make(chan Signal, 4)
	r.Inbox() <- Join{ClientID: "c1", Outbox: clientOut}

	first := recvSignal(t, clientOut, 100*time.Millisecond)
	if first.Topic != TopicSync {
		t.Fatalf("after join: want topic %q, got %q", TopicSync, first.Topic)
	}

	r.Inbox() <- Publish{Signal: Signal{Topic: "game"}}
	next := recvSignal(t, clientOut, 100*time.Millisecond)
	if next.Topic != "game" {
		t.Fatalf("want topic game, got %q", next.Topic)
	}

	r.Inbox() <- Shutdown{}
}

func TestRoom_HoverReplayedToLateJoiner(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := New(ctx)
	r.Inbox() <- Publish{Signal: Signal{Topic: TopicHover, Side: domain.SideBlue, ChampionID: 266}}

	clientOut := make(chan Signal, 4)
	r.Inbox() <- Join{ClientID: "late", Outbox: clientOut}

	if sig := recvSignal(t, clientOut, 100*time.Millisecond); sig.Topic != TopicSync {
		t.Fatalf("want sync first, got %+v", sig)
	}
	hover := recvSignal(t, clientOut, 100*time.Millisecond)
	if hover.Topic != TopicHover || hover.Side != domain.SideBlue || hover.ChampionID != 266 {
		t.Fatalf("want replayed hover for blue/266, got %+v", hover)
	}

	// champion 0 clears the preview; nothing left to replay
	r.Inbox() <- Publish{Signal: Signal{Topic: TopicHover, Side: domain.SideBlue, ChampionID: 0}}
	recvSignal(t, clientOut, 100*time.Millisecond) // the clear itself is broadcast

	late2 := make(chan Signal, 4)
	r.Inbox() <- Join{ClientID: "later", Outbox: late2}
	recvSignal(t, late2, 100*time.Millisecond) // sync
	recvNoSignal(t, late2, 50*time.Millisecond)

	r.Inbox() <- Shutdown{}
}

func TestRoom_DropSlowClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := New(ctx)

	// buffer of one is consumed by the join sync; the next broadcast
	// cannot be delivered
	clientOut := make(chan Signal, 1)
	r.Inbox() <- Join{ClientID: "c1", Outbox: clientOut}
	r.Inbox() <- Publish{Signal: Signal{Topic: "chat"}}

	reply := make(chan View, 1)
	r.Inbox() <- GetState{Reply: reply}
	view := recvView(t, reply, 100*time.Millisecond)
	if view.NumClients != 0 {
		t.Fatalf("expected slow client to be dropped; NumClients=%d", view.NumClients)
	}

	r.Inbox() <- Shutdown{}
}

func TestRoom_LeaveStopsDelivery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := New(ctx)

	clientOut := make(chan Signal, 4)
	r.Inbox() <- Join{ClientID: "c1", Outbox: clientOut}
	recvSignal(t, clientOut, 100*time.Millisecond) // sync

	r.Inbox() <- Leave{ClientID: "c1"}
	r.Inbox() <- Publish{Signal: Signal{Topic: "game"}}
	recvNoSignal(t, clientOut, 50*time.Millisecond)

	reply := make(chan View, 1)
	r.Inbox() <- GetState{Reply: reply}
	if view := recvView(t, reply, 100*time.Millisecond); view.NumClients != 0 {
		t.Fatalf("expected no clients, got %d", view.NumClients)
	}

	r.Inbox() <- Shutdown{}
}
