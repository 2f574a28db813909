package httpapi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/prodraft/draft-series-backend/internal/domain"
	"github.com/prodraft/draft-series-backend/internal/service"
)

type joinRequest struct {
	Role        domain.Role `json:"role"`
	DisplayName string      `json:"display_name"`
	UserID      *uuid.UUID  `json:"user_id"`
	AnonToken   string      `json:"anon_token"`
}

func (a *API) joinSession(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	var req joinRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	if req.Role == "" {
		req.Role = domain.RoleSpectator
	}
	result, err := a.Participants.Join(r.Context(), service.JoinInput{
		SessionID:   id,
		Role:        req.Role,
		DisplayName: req.DisplayName,
		UserID:      req.UserID,
		AnonToken:   req.AnonToken,
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	respond(w, http.StatusOK, result)
}

func (a *API) leaveSession(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	pid, err := uuid.Parse(chi.URLParam(r, "pid"))
	if err != nil {
		a.fail(w, fmt.Errorf("%w: invalid participant id", service.ErrValidation))
		return
	}
	if err := a.Participants.Leave(r.Context(), id, pid); err != nil {
		a.fail(w, err)
		return
	}
	respond(w, http.StatusNoContent, nil)
}

type heartbeatRequest struct {
	Connected *bool `json:"connected"`
}

func (a *API) heartbeat(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	pid, err := uuid.Parse(chi.URLParam(r, "pid"))
	if err != nil {
		a.fail(w, fmt.Errorf("%w: invalid participant id", service.ErrValidation))
		return
	}
	var req heartbeatRequest
	if r.ContentLength > 0 {
		if err := decode(r, &req); err != nil {
			a.fail(w, err)
			return
		}
	}
	connected := true
	if req.Connected != nil {
		connected = *req.Connected
	}
	if err := a.Participants.Heartbeat(r.Context(), id, pid, connected); err != nil {
		a.fail(w, err)
		return
	}
	respond(w, http.StatusNoContent, nil)
}

func (a *API) listParticipants(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	participants, err := a.Participants.List(r.Context(), id)
	if err != nil {
		a.fail(w, err)
		return
	}
	respond(w, http.StatusOK, participants)
}

type sendMessageRequest struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	Content       string    `json:"content"`
}

func (a *API) sendMessage(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	var req sendMessageRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	msg, err := a.Chat.Send(r.Context(), service.SendMessageInput{
		SessionID:     id,
		ParticipantID: req.ParticipantID,
		Content:       req.Content,
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	respond(w, http.StatusCreated, msg)
}

func (a *API) listMessages(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	msgs, err := a.Chat.List(r.Context(), id)
	if err != nil {
		a.fail(w, err)
		return
	}
	respond(w, http.StatusOK, msgs)
}

type markSeenRequest struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	Count         int       `json:"count"`
}

func (a *API) markChatSeen(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	var req markSeenRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	a.Chat.MarkSeen(id, req.ParticipantID, req.Count)
	respond(w, http.StatusNoContent, nil)
}

func (a *API) getChatSeen(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	pid, err := uuid.Parse(r.URL.Query().Get("participant_id"))
	if err != nil {
		a.fail(w, fmt.Errorf("%w: invalid participant id", service.ErrValidation))
		return
	}
	respond(w, http.StatusOK, map[string]int{"count": a.Chat.LastSeen(id, pid)})
}

func (a *API) listLedger(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	entries, err := a.Ledger.List(r.Context(), id)
	if err != nil {
		a.fail(w, err)
		return
	}
	respond(w, http.StatusOK, entries)
}
