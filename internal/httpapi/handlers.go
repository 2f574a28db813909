package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prodraft/draft-series-backend/internal/domain"
	"github.com/prodraft/draft-series-backend/internal/service"
)

// API wires the exposed surface to the service layer. Every state-changing
// handler responds with the fresh authoritative snapshot of whatever it
// changed, or a structured error.
type API struct {
	Log          *zap.Logger
	Sessions     *service.SessionService
	Games        *service.GameService
	Ledger       *service.LedgerService
	Participants *service.ParticipantService
	Chat         *service.ChatService

	DefaultBanSeconds  int
	DefaultPickSeconds int
}

func (a *API) fail(w http.ResponseWriter, err error) {
	respondError(w, a.Log, err)
}

func sessionID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid session id", service.ErrValidation)
	}
	return id, nil
}

func intParam(r *http.Request, name string) (int, error) {
	n, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s", service.ErrValidation, name)
	}
	return n, nil
}

type createSessionRequest struct {
	Name         string           `json:"name"`
	Mode         domain.DraftMode `json:"mode"`
	PlannedGames int              `json:"planned_games"`
	BanSeconds   int              `json:"ban_seconds"`
	PickSeconds  int              `json:"pick_seconds"`
	Team1Name    string           `json:"team1_name"`
	Team2Name    string           `json:"team2_name"`
}

func (a *API) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	if req.Mode == "" {
		req.Mode = domain.ModeNormal
	}
	if req.PlannedGames == 0 {
		req.PlannedGames = 1
	}
	if req.BanSeconds == 0 {
		req.BanSeconds = a.DefaultBanSeconds
	}
	if req.PickSeconds == 0 {
		req.PickSeconds = a.DefaultPickSeconds
	}

	sess, err := a.Sessions.Create(r.Context(), service.CreateSessionInput{
		Name:         req.Name,
		Mode:         req.Mode,
		PlannedGames: req.PlannedGames,
		BanSeconds:   req.BanSeconds,
		PickSeconds:  req.PickSeconds,
		Team1Name:    req.Team1Name,
		Team2Name:    req.Team2Name,
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	respond(w, http.StatusCreated, sess)
}

func (a *API) getSessionByInvite(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		a.fail(w, fmt.Errorf("%w: missing token", service.ErrValidation))
		return
	}
	sess, err := a.Sessions.GetByInviteToken(r.Context(), token)
	if err != nil {
		a.fail(w, err)
		return
	}
	respond(w, http.StatusOK, sess)
}

func (a *API) getSession(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	sess, err := a.Sessions.Get(r.Context(), id)
	if err != nil {
		a.fail(w, err)
		return
	}
	respond(w, http.StatusOK, sess)
}

type updateSessionRequest struct {
	Name         *string           `json:"name"`
	Mode         *domain.DraftMode `json:"mode"`
	PlannedGames *int              `json:"planned_games"`
	BanSeconds   *int              `json:"ban_seconds"`
	PickSeconds  *int              `json:"pick_seconds"`
}

func (a *API) updateSession(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	var req updateSessionRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	sess, err := a.Sessions.Update(r.Context(), id, service.UpdateSessionInput{
		Name:         req.Name,
		Mode:         req.Mode,
		PlannedGames: req.PlannedGames,
		BanSeconds:   req.BanSeconds,
		PickSeconds:  req.PickSeconds,
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	respond(w, http.StatusOK, sess)
}

type endSessionRequest struct {
	CompletedGames *int `json:"completed_games"`
}

func (a *API) endSession(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	var req endSessionRequest
	if r.ContentLength > 0 {
		if err := decode(r, &req); err != nil {
			a.fail(w, err)
			return
		}
	}
	sess, err := a.Sessions.End(r.Context(), id, req.CompletedGames)
	if err != nil {
		a.fail(w, err)
		return
	}
	respond(w, http.StatusOK, sess)
}

func (a *API) cancelSession(w http.ResponseWriter, r *http.Request) {
	a.sessionTransition(w, r, a.Sessions.Cancel)
}

func (a *API) pauseSession(w http.ResponseWriter, r *http.Request) {
	a.sessionTransition(w, r, a.Sessions.Pause)
}

func (a *API) resumeSession(w http.ResponseWriter, r *http.Request) {
	a.sessionTransition(w, r, a.Sessions.Resume)
}

func (a *API) sessionTransition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id uuid.UUID) (*domain.Session, error)) {
	id, err := sessionID(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	sess, err := op(r.Context(), id)
	if err != nil {
		a.fail(w, err)
		return
	}
	respond(w, http.StatusOK, sess)
}

type extendSeriesRequest struct {
	PlannedGames int `json:"planned_games"`
}

func (a *API) extendSeries(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	var req extendSeriesRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	sess, err := a.Sessions.ExtendSeries(r.Context(), id, req.PlannedGames)
	if err != nil {
		a.fail(w, err)
		return
	}
	respond(w, http.StatusOK, sess)
}

func (a *API) deleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	if err := a.Sessions.Delete(r.Context(), id); err != nil {
		a.fail(w, err)
		return
	}
	respond(w, http.StatusNoContent, nil)
}

type slotRequest struct {
	ParticipantID uuid.UUID   `json:"participant_id"`
	Side          domain.Side `json:"side,omitempty"`
	Ready         *bool       `json:"ready,omitempty"`
}

func (a *API) claimSlot(w http.ResponseWriter, r *http.Request) {
	a.slotOp(w, r, func(id uuid.UUID, team int, req slotRequest) (*domain.Session, error) {
		return a.Sessions.ClaimSlot(r.Context(), id, team, req.ParticipantID)
	})
}

func (a *API) releaseSlot(w http.ResponseWriter, r *http.Request) {
	a.slotOp(w, r, func(id uuid.UUID, team int, req slotRequest) (*domain.Session, error) {
		return a.Sessions.ReleaseSlot(r.Context(), id, team, req.ParticipantID)
	})
}

func (a *API) selectSide(w http.ResponseWriter, r *http.Request) {
	a.slotOp(w, r, func(id uuid.UUID, team int, req slotRequest) (*domain.Session, error) {
		return a.Sessions.SelectSide(r.Context(), id, team, req.Side, req.ParticipantID)
	})
}

func (a *API) clearSide(w http.ResponseWriter, r *http.Request) {
	a.slotOp(w, r, func(id uuid.UUID, team int, req slotRequest) (*domain.Session, error) {
		return a.Sessions.ClearSide(r.Context(), id, team, req.ParticipantID)
	})
}

func (a *API) setReady(w http.ResponseWriter, r *http.Request) {
	a.slotOp(w, r, func(id uuid.UUID, team int, req slotRequest) (*domain.Session, error) {
		ready := true
		if req.Ready != nil {
			ready = *req.Ready
		}
		return a.Sessions.SetReady(r.Context(), id, team, ready, req.ParticipantID)
	})
}

func (a *API) slotOp(w http.ResponseWriter, r *http.Request, op func(id uuid.UUID, team int, req slotRequest) (*domain.Session, error)) {
	id, err := sessionID(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	team, err := intParam(r, "team")
	if err != nil {
		a.fail(w, err)
		return
	}
	var req slotRequest
	if r.ContentLength > 0 {
		if err := decode(r, &req); err != nil {
			a.fail(w, err)
			return
		}
	}
	sess, err := op(id, team, req)
	if err != nil {
		a.fail(w, err)
		return
	}
	respond(w, http.StatusOK, sess)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
