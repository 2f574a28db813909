package httpapi

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/prodraft/draft-series-backend/internal/domain"
	"github.com/prodraft/draft-series-backend/internal/service"
)

func (a *API) createNextGame(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	game, err := a.Games.CreateNext(r.Context(), id)
	if err != nil {
		a.fail(w, err)
		return
	}
	respond(w, http.StatusCreated, game)
}

func (a *API) listGames(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	games, err := a.Games.List(r.Context(), id)
	if err != nil {
		a.fail(w, err)
		return
	}
	respond(w, http.StatusOK, games)
}

func (a *API) getGame(w http.ResponseWriter, r *http.Request) {
	id, n, err := a.gameRef(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	game, err := a.Games.Get(r.Context(), id, n)
	if err != nil {
		a.fail(w, err)
		return
	}
	respond(w, http.StatusOK, game)
}

type submitActionRequest struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	ActionIndex   int       `json:"action_index"`
	ChampionID    *int      `json:"champion_id"`
	Auto          bool      `json:"auto"`
}

func (a *API) submitAction(w http.ResponseWriter, r *http.Request) {
	id, n, err := a.gameRef(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	var req submitActionRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	game, err := a.Games.SubmitAction(r.Context(), service.SubmitActionInput{
		SessionID:     id,
		GameNumber:    n,
		ParticipantID: req.ParticipantID,
		ActionIndex:   req.ActionIndex,
		ChampionID:    req.ChampionID,
		Auto:          req.Auto,
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	respond(w, http.StatusOK, game)
}

type editPickRequest struct {
	Side       domain.Side `json:"side"`
	Index      int         `json:"index"`
	ChampionID int         `json:"champion_id"`
}

func (a *API) editPick(w http.ResponseWriter, r *http.Request) {
	id, n, err := a.gameRef(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	var req editPickRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	game, err := a.Games.EditPick(r.Context(), service.EditPickInput{
		SessionID:  id,
		GameNumber: n,
		Side:       req.Side,
		Index:      req.Index,
		ChampionID: req.ChampionID,
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	respond(w, http.StatusOK, game)
}

type fillSlotRequest struct {
	Side       domain.Side   `json:"side"`
	Action     domain.Action `json:"action"`
	Index      int           `json:"index"`
	ChampionID int           `json:"champion_id"`
}

func (a *API) fillTimedOutSlot(w http.ResponseWriter, r *http.Request) {
	id, n, err := a.gameRef(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	var req fillSlotRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	game, err := a.Games.FillTimedOutSlot(r.Context(), service.FillSlotInput{
		SessionID:  id,
		GameNumber: n,
		Side:       req.Side,
		Action:     req.Action,
		Index:      req.Index,
		ChampionID: req.ChampionID,
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	respond(w, http.StatusOK, game)
}

func (a *API) resetGame(w http.ResponseWriter, r *http.Request) {
	id, n, err := a.gameRef(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	game, err := a.Games.Reset(r.Context(), id, n)
	if err != nil {
		a.fail(w, err)
		return
	}
	respond(w, http.StatusOK, game)
}

type winnerRequest struct {
	Winner domain.Side `json:"winner"`
}

func (a *API) setWinner(w http.ResponseWriter, r *http.Request) {
	id, n, err := a.gameRef(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	var req winnerRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	game, err := a.Games.SetWinner(r.Context(), id, n, req.Winner)
	if err != nil {
		a.fail(w, err)
		return
	}
	respond(w, http.StatusOK, game)
}

func (a *API) gameRef(r *http.Request) (uuid.UUID, int, error) {
	id, err := sessionID(r)
	if err != nil {
		return uuid.Nil, 0, err
	}
	n, err := intParam(r, "number")
	if err != nil {
		return uuid.Nil, 0, err
	}
	return id, n, nil
}
