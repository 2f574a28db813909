// Package ws bridges websocket clients to their session's realtime room.
// Inbound traffic is hover previews only; every mutation goes through the
// HTTP surface so there is exactly one authority path.
package ws

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"math/big"
	"net/http"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"

	"github.com/prodraft/draft-series-backend/internal/domain"
	"github.com/prodraft/draft-series-backend/internal/hub"
	"github.com/prodraft/draft-series-backend/internal/room"
)

// SessionChecker reports whether a session exists; the ws layer refuses to
// open rooms for unknown ids.
type SessionChecker func(ctx context.Context, id uuid.UUID) bool

type clientMessage struct {
	Type       string      `json:"type"`
	Side       domain.Side `json:"side,omitempty"`
	ChampionID int         `json:"champion_id,omitempty"`
}

func Handler(h *hub.Hub, exists SessionChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := uuid.Parse(r.URL.Query().Get("session"))
		if err != nil {
			http.Error(w, "missing or invalid session", http.StatusBadRequest)
			return
		}
		if !exists(r.Context(), sessionID) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		rm := h.Ensure(sessionID)
		out := make(chan room.Signal, 8)
		clientID := randID(8)

		rm.Inbox() <- room.Join{ClientID: clientID, Outbox: out}
		defer func() { rm.Inbox() <- room.Leave{ClientID: clientID} }()

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for sig := range out {
				payload, _ := json.Marshal(sig)
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var cm clientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = conn.Write(r.Context(), websocket.MessageText,
					[]byte(`{"topic":"error","error":"bad json"}`))
				continue
			}
			if cm.Type != "hover" || (cm.Side != domain.SideBlue && cm.Side != domain.SideRed) {
				_ = conn.Write(r.Context(), websocket.MessageText,
					[]byte(`{"topic":"error","error":"unknown type"}`))
				continue
			}

			// hovers are UI feedback, never intent; they bypass the store
			rm.Inbox() <- room.Publish{Signal: room.Signal{
				Topic:      room.TopicHover,
				Side:       cm.Side,
				ChampionID: cm.ChampionID,
			}}
		}
	}
}

func randID(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			b[i] = charset[0]
			continue
		}
		b[i] = charset[num.Int64()]
	}
	return string(b)
}
